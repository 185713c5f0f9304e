package syntax

import (
	"errors"
	"testing"

	"github.com/james-see/mml2midi/pkg/mml"
)

func TestParse(t *testing.T) {
	events, err := Parse("t150 v10 o5 c8. d+4&d+4 r4 < b- l8 a")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	expected := []mml.Event{
		mml.TempoEvent{TickOffset: 0, BPM: 150},
		&mml.NoteEvent{Pitch: 60, TickLength: 72, TickOffset: 0, Velocity: mml.VelocityOf(10)},
		&mml.NoteEvent{Pitch: 63, TickLength: 192, TickOffset: 72},
		&mml.NoteEvent{Pitch: mml.RestPitch, TickLength: 96, TickOffset: 264},
		&mml.NoteEvent{Pitch: 58, TickLength: 96, TickOffset: 360},
		&mml.NoteEvent{Pitch: 57, TickLength: 48, TickOffset: 456},
	}
	if len(events) != len(expected) {
		t.Fatalf("Parse() returned %d events, want %d: %v", len(events), len(expected), events)
	}
	for i, want := range expected {
		if !sameEvent(events[i], want) {
			t.Errorf("event %d = %v, want %v", i, events[i], want)
		}
	}
}

func sameEvent(a, b mml.Event) bool {
	switch x := a.(type) {
	case mml.TempoEvent:
		y, ok := b.(mml.TempoEvent)
		return ok && x == y
	case *mml.NoteEvent:
		y, ok := b.(*mml.NoteEvent)
		return ok && *x == *y
	}
	return false
}

func TestParseSlurStartsNewNote(t *testing.T) {
	events, err := Parse("c4&d4")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Parse() returned %d events, want 2", len(events))
	}
	second := events[1].(*mml.NoteEvent)
	if second.Pitch != 50 || second.TickOffset != 96 {
		t.Errorf("second note = %v, want d at 96", second)
	}
}

func TestParseNoteNumber(t *testing.T) {
	events, err := Parse("l8n60")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	n := events[0].(*mml.NoteEvent)
	if n.Pitch != 60 || n.TickLength != 48 {
		t.Errorf("n60 = %v, want pitch 60 length 48", n)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"x", "o9c", "c65", "c0", "v16", "v", "t10", "<<<<<c", "n97",
		"v18446744073709551615c", "n99999999999999999999", "c18446744073709551680",
		"o8>c", "o0<c", "o8b+",
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Errorf("Parse(%q) error = %v, want *ParseError", src, err)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	tempo := mml.NewTempoTimeline(
		mml.TempoEvent{TickOffset: 0, BPM: 120},
		mml.TempoEvent{TickOffset: 384, BPM: 140},
	)
	l := mml.NewEventList(tempo, mml.WithEncoder(TickEncoder{}))
	l.Add(mml.NewNote(48, 96, 0))
	second := mml.NewNote(50, 48, 96)
	second.Velocity = mml.VelocityOf(12)
	l.Add(second)
	l.Add(mml.NewNote(60, 144, 288))
	l.Add(mml.NewNote(62, 48, 432))

	text, err := l.ToText(true, 0)
	if err != nil {
		t.Fatalf("ToText() error = %v", err)
	}
	if want := "t120c4v12d8r4.>c4t140r8d8"; text != want {
		t.Fatalf("ToText() = %q, want %q", text, want)
	}

	parsed, err := NewEventList(text, nil)
	if err != nil {
		t.Fatalf("NewEventList() error = %v", err)
	}

	// the note across the tempo change comes back cut at 384
	want := []mml.NoteEvent{
		{Pitch: 48, TickLength: 96, TickOffset: 0},
		{Pitch: 50, TickLength: 48, TickOffset: 96, Velocity: mml.VelocityOf(12)},
		{Pitch: 60, TickLength: 96, TickOffset: 288},
		{Pitch: 62, TickLength: 48, TickOffset: 432},
	}
	got := parsed.Notes()
	if len(got) != len(want) {
		t.Fatalf("parsed %d notes, want %d: %v", len(got), len(want), parsed)
	}
	for i := range want {
		if *got[i] != want[i] {
			t.Errorf("note %d = %v, want %v", i, got[i], &want[i])
		}
	}
	if parsed.TempoTimeline().Len() != 2 {
		t.Errorf("parsed tempo changes = %d, want 2", parsed.TempoTimeline().Len())
	}

	again, err := parsed.ToText(true, 0)
	if err != nil {
		t.Fatalf("ToText() error = %v", err)
	}
	if again != text {
		t.Errorf("second ToText() = %q, want %q", again, text)
	}
}

func TestRoundTripWithoutTempo(t *testing.T) {
	src := "o3a8b8>c+4.r2v15e16f16g8&g2"
	l, err := NewEventList(src, nil)
	if err != nil {
		t.Fatalf("NewEventList() error = %v", err)
	}
	text, err := l.ToText(false, 0)
	if err != nil {
		t.Fatalf("ToText() error = %v", err)
	}
	back, err := NewEventList(text, nil)
	if err != nil {
		t.Fatalf("NewEventList(%q) error = %v", text, err)
	}

	a, b := l.Notes(), back.Notes()
	if len(a) != len(b) {
		t.Fatalf("round trip of %q via %q: %d notes, want %d", src, text, len(b), len(a))
	}
	for i := range a {
		if *a[i] != *b[i] {
			t.Errorf("note %d = %v, want %v (text %q)", i, b[i], a[i], text)
		}
	}
}

func TestNewEventListSharesTempo(t *testing.T) {
	tempo := mml.NewTempoTimeline()
	if _, err := NewEventList("t100c4", tempo); err != nil {
		t.Fatalf("NewEventList() error = %v", err)
	}
	if _, err := NewEventList("r4t90c4", tempo); err != nil {
		t.Fatalf("NewEventList() error = %v", err)
	}
	if tempo.Len() != 2 {
		t.Errorf("shared timeline Len() = %d, want 2", tempo.Len())
	}
}
