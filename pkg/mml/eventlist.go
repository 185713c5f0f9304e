package mml

import "strings"

// EventList is one MML track: its notes plus a reference to the tempo
// timeline shared with the other tracks of the composition.
type EventList struct {
	notes   NoteSet
	tempo   *TempoTimeline
	encoder DurationEncoder
}

// Option configures an EventList.
type Option func(*EventList)

// WithEncoder sets the duration encoder used by ToText.
func WithEncoder(enc DurationEncoder) Option {
	return func(l *EventList) {
		l.encoder = enc
	}
}

// NewEventList creates an empty track using tempo as its timeline. When tempo
// is nil the track gets a timeline of its own.
func NewEventList(tempo *TempoTimeline, opts ...Option) *EventList {
	if tempo == nil {
		tempo = NewTempoTimeline()
	}
	l := &EventList{tempo: tempo}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Apply routes a parsed event to the collection that owns it. Rests are
// dropped.
func (l *EventList) Apply(ev Event) {
	switch e := ev.(type) {
	case TempoEvent:
		l.tempo.Append(e)
	case *NoteEvent:
		if e.IsRest() {
			return
		}
		if e.TickOffset >= l.notes.Length() && e.TickLength > 0 {
			l.notes.append(e)
			return
		}
		l.notes.Add(e)
	}
}

// Add inserts a note, resolving overlaps in favour of the new note.
func (l *EventList) Add(note *NoteEvent) {
	l.notes.Add(note)
}

// Delete removes note from the track.
func (l *EventList) Delete(note *NoteEvent) bool {
	return l.notes.Delete(note)
}

// Lookup returns the note sounding at tick.
func (l *EventList) Lookup(tick int) (*NoteEvent, bool) {
	return l.notes.Lookup(tick)
}

// Length returns the end tick of the last note. Trailing rests and tempo
// changes past the last note are not included.
func (l *EventList) Length() int {
	return l.notes.Length()
}

// Notes returns the notes in order.
func (l *EventList) Notes() []*NoteEvent {
	return l.notes.Notes()
}

// TempoTimeline returns the shared timeline.
func (l *EventList) TempoTimeline() *TempoTimeline {
	return l.tempo
}

// SetTempoTimeline points the track at another shared timeline.
func (l *EventList) SetTempoTimeline(tempo *TempoTimeline) {
	l.tempo = tempo
}

// Encoder returns the duration encoder used by ToText.
func (l *EventList) Encoder() DurationEncoder {
	return l.encoder
}

// SetEncoder sets the duration encoder used by ToText.
func (l *EventList) SetEncoder(enc DurationEncoder) {
	l.encoder = enc
}

// ClipAtTempo shortens every stored note that is still sounding when a tempo
// change happens, so that it ends on the change. ToText does the same on a
// copy; call this when the stored track should match the exported text.
func (l *EventList) ClipAtTempo() {
	c := l.tempo.cursor()
	for _, n := range l.notes.notes {
		for {
			ev, ok := c.peek()
			if !ok || ev.TickOffset > n.TickOffset {
				break
			}
			c.next()
		}
		if ev, ok := c.peek(); ok && ev.TickOffset < n.EndTick() {
			n.TickLength = ev.TickOffset - n.TickOffset
		}
	}
}

func (l *EventList) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	first := true
	for ev := range l.tempo.All() {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(ev.String())
	}
	sb.WriteString("][")
	for i, n := range l.notes.notes {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(n.String())
	}
	sb.WriteString("]")
	return sb.String()
}

