package mml

import (
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	// NoteOffset converts an MML pitch to a MIDI key.
	NoteOffset = 12

	// VelocityScale converts an MML volume level to a MIDI velocity.
	VelocityScale = 8
)

// Sink receives MIDI messages at absolute ticks.
type Sink interface {
	Add(tick uint32, msg midi.Message)
}

// MIDIKey returns the MIDI key for an MML pitch.
func MIDIKey(pitch int) int {
	return pitch + NoteOffset
}

// MIDIVelocity returns the MIDI velocity for an MML volume level.
func MIDIVelocity(volume int) int {
	return volume * VelocityScale
}

// Materialize writes a note-on at the start and a note-off on the last tick
// of every note to sink. Notes without a velocity keep the previous volume.
// A note that does not fit a MIDI channel message is an error; nothing is
// clamped.
func (l *EventList) Materialize(sink Sink, channel int) error {
	if channel < 0 || channel > 15 {
		return fmt.Errorf("%w: channel %d out of range 0-15", ErrInvalidMessage, channel)
	}

	volume := DefaultVolume
	for _, n := range l.notes.notes {
		if level, ok := n.Velocity.Level(); ok {
			volume = level
		}

		key := MIDIKey(n.Pitch)
		if key < 0 || key > 127 {
			return fmt.Errorf("%w: key %d at tick %d out of range 0-127", ErrInvalidMessage, key, n.TickOffset)
		}
		velocity := MIDIVelocity(volume)
		if velocity < 0 || velocity > 127 {
			return fmt.Errorf("%w: velocity %d at tick %d out of range 0-127", ErrInvalidMessage, velocity, n.TickOffset)
		}

		sink.Add(uint32(n.TickOffset), midi.NoteOn(uint8(channel), uint8(key), uint8(velocity)))
		sink.Add(uint32(n.EndTick()-1), midi.NoteOff(uint8(channel), uint8(key)))
	}
	return nil
}

type timedMessage struct {
	tick uint32
	msg  midi.Message
}

// TrackSink collects messages at absolute ticks and renders them as an SMF
// track.
type TrackSink struct {
	events []timedMessage
}

// Add records msg at tick.
func (t *TrackSink) Add(tick uint32, msg midi.Message) {
	t.events = append(t.events, timedMessage{tick: tick, msg: msg})
}

// Len returns the number of recorded messages.
func (t *TrackSink) Len() int {
	return len(t.events)
}

// Track returns the recorded messages as a closed SMF track, ordered by tick.
// Messages on the same tick keep the order they were added in.
func (t *TrackSink) Track() smf.Track {
	events := make([]timedMessage, len(t.events))
	copy(events, t.events)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].tick < events[j].tick
	})

	var track smf.Track
	var last uint32
	for _, ev := range events {
		track.Add(ev.tick-last, ev.msg)
		last = ev.tick
	}
	track.Close(0)
	return track
}
