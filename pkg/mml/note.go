// Package mml provides the note and tempo event engine for a single track of
// Mabinogi-style MML: an ordered, non-overlapping note interval set, a shared
// tempo timeline, text encoding and MIDI materialization.
package mml

import "fmt"

const (
	// RestPitch marks a parsed rest. Rests never enter a NoteSet.
	RestPitch = -1

	// DefaultVolume is the running volume at the start of a track.
	DefaultVolume = 8

	// MaxVolume is the highest volume level an MML track can express.
	MaxVolume = 15
)

// Velocity is an optional volume level. The zero value is unset, which means
// "keep the previous level".
type Velocity struct {
	level int
	set   bool
}

// NoVelocity is the unset Velocity.
var NoVelocity = Velocity{}

// VelocityOf returns a Velocity set to level.
func VelocityOf(level int) Velocity {
	return Velocity{level: level, set: true}
}

// Level returns the level and whether it is set.
func (v Velocity) Level() (int, bool) {
	return v.level, v.set
}

// IsSet reports whether the velocity carries a level.
func (v Velocity) IsSet() bool {
	return v.set
}

func (v Velocity) String() string {
	if !v.set {
		return "-"
	}
	return fmt.Sprintf("%d", v.level)
}

// Event is a parsed MML event: either a *NoteEvent or a TempoEvent.
type Event interface {
	Tick() int
	mmlEvent()
}

// NoteEvent is a single note of a track. Pitch uses the MML numbering where
// octave 4 c is 48.
type NoteEvent struct {
	Pitch      int
	TickOffset int
	TickLength int
	Velocity   Velocity
}

// NewNote creates a note with no velocity change.
func NewNote(pitch, tickLength, tickOffset int) *NoteEvent {
	return &NoteEvent{Pitch: pitch, TickLength: tickLength, TickOffset: tickOffset}
}

// EndTick returns the first tick after the note.
func (n *NoteEvent) EndTick() int {
	return n.TickOffset + n.TickLength
}

// Tick returns the note's offset.
func (n *NoteEvent) Tick() int {
	return n.TickOffset
}

// IsRest reports whether the note is a rest marker.
func (n *NoteEvent) IsRest() bool {
	return n.Pitch < 0
}

func (n *NoteEvent) String() string {
	return fmt.Sprintf("[Note] note: %d, tick: %d, offset: %d, velocity: %s",
		n.Pitch, n.TickLength, n.TickOffset, n.Velocity)
}

func (*NoteEvent) mmlEvent() {}

// TempoEvent is a tempo change at a tick.
type TempoEvent struct {
	TickOffset int
	BPM        int
}

// Tick returns the tempo change's offset.
func (t TempoEvent) Tick() int {
	return t.TickOffset
}

func (t TempoEvent) String() string {
	return fmt.Sprintf("[Tempo] %d at %d", t.BPM, t.TickOffset)
}

func (TempoEvent) mmlEvent() {}
