package mml

import (
	"fmt"
	"strings"
)

// DurationEncoder turns notes and rests into MML text. Note is given the
// previously emitted note so it can write the rest before the note and any
// octave moves relative to it.
type DurationEncoder interface {
	Note(note, prev NoteEvent) (string, error)
	Rest(ticks int) (string, error)
}

// initialPrev is where every track starts: octave 4, nothing sounded yet.
var initialPrev = NoteEvent{Pitch: 48}

type textWriter struct {
	enc    DurationEncoder
	sb     strings.Builder
	volume int
	prev   NoteEvent
}

// ToText encodes the track as MML. With withTempo set, tempo changes are
// written at their exact ticks, padding with silenced notes where no note
// ends on the change. If totalTick is past the end of the track, a rest fills
// the remainder.
//
// Notes still sounding at a tempo change are cut at the change in the output
// only; the stored track is not modified.
func (l *EventList) ToText(withTempo bool, totalTick int) (string, error) {
	if l.encoder == nil {
		return "", ErrNoEncoder
	}

	w := &textWriter{enc: l.encoder, volume: DefaultVolume, prev: initialPrev}
	c := l.tempo.cursor()

	for _, stored := range l.notes.notes {
		note := *stored

		for ev, ok := c.peek(); ok && ev.TickOffset <= note.TickOffset; ev, ok = c.peek() {
			if withTempo {
				if err := w.tempo(ev); err != nil {
					return "", err
				}
			}
			c.next()
		}

		if level, ok := note.Velocity.Level(); ok && level != w.volume {
			w.volume = level
			fmt.Fprintf(&w.sb, "v%d", level)
		}

		if ev, ok := c.peek(); ok && note.TickOffset < ev.TickOffset && ev.TickOffset < note.EndTick() {
			note.TickLength = ev.TickOffset - note.TickOffset
		}

		if err := w.note(note); err != nil {
			return "", err
		}
	}

	if withTempo {
		for ev, ok := c.peek(); ok; ev, ok = c.peek() {
			if err := w.tempo(ev); err != nil {
				return "", err
			}
			c.next()
		}
	}

	if rest := totalTick - w.prev.EndTick(); rest > 0 {
		s, err := w.enc.Rest(rest)
		if err != nil {
			return "", fmt.Errorf("failed to encode trailing rest of %d ticks: %w", rest, err)
		}
		w.sb.WriteString(s)
	}

	return w.sb.String(), nil
}

func (w *textWriter) note(note NoteEvent) error {
	s, err := w.enc.Note(note, w.prev)
	if err != nil {
		return fmt.Errorf("failed to encode note at tick %d: %w", note.TickOffset, err)
	}
	w.sb.WriteString(s)
	w.prev = note
	return nil
}

// tempo writes a tempo token, first filling any gap since the previous note
// with a silenced copy of it.
func (w *textWriter) tempo(ev TempoEvent) error {
	if gap := ev.TickOffset - w.prev.EndTick(); gap > 0 {
		filler := NoteEvent{
			Pitch:      w.prev.Pitch,
			TickOffset: w.prev.EndTick(),
			TickLength: gap,
		}
		w.sb.WriteString("v0")
		if err := w.note(filler); err != nil {
			return err
		}
		fmt.Fprintf(&w.sb, "v%d", w.volume)
	}
	fmt.Fprintf(&w.sb, "t%d", ev.BPM)
	return nil
}
