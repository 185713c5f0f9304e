package converter

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/james-see/mml2midi/pkg/mml"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func quietConverter(opts ...Option) *Converter {
	return New(append([]Option{WithLogger(log.New(io.Discard))}, opts...)...)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		expected Format
	}{
		{"test.mid", FormatMIDI},
		{"test.MIDI", FormatMIDI},
		{"test.mml", FormatMML},
		{"test.txt", FormatMML},
		{"test.seq", FormatUnknown},
		{"test", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			result := DetectFormat(tt.filename)
			if result != tt.expected {
				t.Errorf("DetectFormat(%q) = %v, want %v", tt.filename, result, tt.expected)
			}
		})
	}
}

func TestDetectFormatFromContent(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected Format
	}{
		{"MIDI file", []byte("MThd\x00\x00\x00\x06"), FormatMIDI},
		{"Mabinogi envelope", []byte("MML@t120c4;"), FormatMML},
		{"Plain track", []byte("o5cdefg\n"), FormatMML},
		{"Short data", []byte{0x00, 0x01}, FormatUnknown},
		{"Binary data", []byte{0xF0, 0x00, 0x20, 0x32, 0x00, 0xF7}, FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DetectFormatFromContent(tt.data)
			if result != tt.expected {
				t.Errorf("DetectFormatFromContent() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestValidateEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"three tracks", "MML@c4,e4,g4;", false},
		{"lower case", "mml@c4;", false},
		{"surrounding space", "  MML@c4;\n", false},
		{"missing end", "MML@c4", true},
		{"too short", "MM", true},
		{"wrong start", "ABC@c4;", true},
		{"stray end", "MML@c4;d4;", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEnvelope(tt.text)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEnvelope(%q) error = %v, wantErr %v", tt.text, err, tt.wantErr)
			}
		})
	}
}

func TestSplitTracks(t *testing.T) {
	tests := []struct {
		text     string
		expected []string
	}{
		{"MML@c4,e4;", []string{"c4", "e4"}},
		{"c4,e4", []string{"c4", "e4"}},
		{"MML@;", nil},
		{"MML@c4,,g4;", []string{"c4", "", "g4"}},
	}

	for _, tt := range tests {
		got := SplitTracks(tt.text)
		if !slices.Equal(got, tt.expected) {
			t.Errorf("SplitTracks(%q) = %q, want %q", tt.text, got, tt.expected)
		}
	}
}

func TestParseScoreSharesTempo(t *testing.T) {
	score, err := ParseScore("MML@t120c4,r4t150e4;")
	if err != nil {
		t.Fatalf("ParseScore() error = %v", err)
	}
	if len(score.Tracks) != 2 {
		t.Fatalf("ParseScore() tracks = %d, want 2", len(score.Tracks))
	}
	if score.Tempo.Len() != 2 {
		t.Errorf("tempo changes = %d, want 2", score.Tempo.Len())
	}
	for i, track := range score.Tracks {
		if track.TempoTimeline() != score.Tempo {
			t.Errorf("track %d does not use the score tempo timeline", i)
		}
	}
}

func TestParseScoreErrors(t *testing.T) {
	tests := []string{"MML@c4", "MML@c4,x4;", "MML@c4;d4;"}
	for _, text := range tests {
		if _, err := ParseScore(text); err == nil {
			t.Errorf("ParseScore(%q) returned no error", text)
		}
	}
}

func TestScoreLength(t *testing.T) {
	tests := []struct {
		text     string
		expected int
	}{
		{"MML@c4d4,e1;", 384},
		{"MML@c4,r1t90;", 384},
		{"MML@;", 0},
	}

	for _, tt := range tests {
		score, err := ParseScore(tt.text)
		if err != nil {
			t.Fatalf("ParseScore(%q) error = %v", tt.text, err)
		}
		if got := score.Length(); got != tt.expected {
			t.Errorf("Length() of %q = %d, want %d", tt.text, got, tt.expected)
		}
	}
}

func TestScoreText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		pad      bool
		expected string
	}{
		{"tempo in first track only", "MML@t120c4d4,e2;", false, "MML@t120c4d4,e2;"},
		{"padded", "MML@c4,e2;", true, "MML@c4r4,e2;"},
		{"normalized", "mml@ T120 C4 D4 , E2 ;", false, "MML@t120c4d4,e2;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := ParseScore(tt.text)
			if err != nil {
				t.Fatalf("ParseScore() error = %v", err)
			}
			got, err := score.Text(tt.pad)
			if err != nil {
				t.Fatalf("Text() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("Text() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTrackChannel(t *testing.T) {
	tests := []struct {
		track    int
		expected int
	}{
		{0, 0},
		{8, 8},
		{9, 10},
		{14, 15},
	}

	for _, tt := range tests {
		if got := TrackChannel(tt.track); got != tt.expected {
			t.Errorf("TrackChannel(%d) = %d, want %d", tt.track, got, tt.expected)
		}
	}
}

func TestGenerateMIDITooManyTracks(t *testing.T) {
	score := NewScore()
	for range 16 {
		score.NewTrack()
	}
	m := NewMIDIConverter(log.New(io.Discard))
	if _, err := m.GenerateMIDI(score); !errors.Is(err, mml.ErrInvalidMessage) {
		t.Errorf("GenerateMIDI() error = %v, want %v", err, mml.ErrInvalidMessage)
	}
}

func TestGenerateMIDILayout(t *testing.T) {
	score, err := ParseScore("MML@t120c4,e4;")
	if err != nil {
		t.Fatalf("ParseScore() error = %v", err)
	}
	data, err := NewMIDIConverter(log.New(io.Discard)).GenerateMIDI(score)
	if err != nil {
		t.Fatalf("GenerateMIDI() error = %v", err)
	}

	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("smf.ReadFrom() error = %v", err)
	}
	if got := len(s.Tracks); got != 3 {
		t.Fatalf("tracks = %d, want 3", got)
	}
	if mt, ok := s.TimeFormat.(smf.MetricTicks); !ok || mt.Resolution() != 96 {
		t.Errorf("TimeFormat = %v, want 96 ticks per quarter", s.TimeFormat)
	}

	var bpm float64
	found := false
	for _, ev := range s.Tracks[0] {
		if ev.Message.GetMetaTempo(&bpm) {
			found = true
		}
	}
	if !found || bpm != 120 {
		t.Errorf("conductor tempo = %v (found %v), want 120", bpm, found)
	}

	var ch, key, vel uint8
	if !midi.Message(s.Tracks[2][0].Message).GetNoteOn(&ch, &key, &vel) {
		t.Fatalf("second track starts with %v, want a note on", s.Tracks[2][0].Message)
	}
	if ch != 1 || key != 64 || vel != 64 {
		t.Errorf("note on = ch %d key %d vel %d, want ch 1 key 64 vel 64", ch, key, vel)
	}
}

func TestMIDIRoundTrip(t *testing.T) {
	tests := []string{
		"MML@t120c4d4,e2;",
		"MML@t100v12c4v8d4r4>c8;",
		"MML@t120c4t90d4;",
	}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			conv := quietConverter()
			midiData, err := conv.MMLToMIDI([]byte(text))
			if err != nil {
				t.Fatalf("MMLToMIDI() error = %v", err)
			}
			back, err := conv.MIDIToMML(midiData)
			if err != nil {
				t.Fatalf("MIDIToMML() error = %v", err)
			}
			if string(back) != text {
				t.Errorf("round trip = %q, want %q", back, text)
			}
		})
	}
}

func TestParseMIDIRescales(t *testing.T) {
	var track smf.Track
	track.Add(0, midi.NoteOn(0, 60, 100))
	track.Add(0, midi.NoteOn(0, 5, 100))
	track.Add(480, midi.NoteOff(0, 60))
	track.Add(0, midi.NoteOff(0, 5))
	track.Add(240, midi.NoteOn(3, 62, 64))
	track.Add(240, midi.NoteOn(3, 62, 0))
	track.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(480)
	if err := s.Add(track); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}

	score, err := NewMIDIConverter(log.New(io.Discard)).ParseMIDI(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseMIDI() error = %v", err)
	}
	if len(score.Tracks) != 2 {
		t.Fatalf("tracks = %d, want 2", len(score.Tracks))
	}

	want := [][]mml.NoteEvent{
		{{Pitch: 48, TickOffset: 0, TickLength: 96, Velocity: mml.VelocityOf(12)}},
		{{Pitch: 50, TickOffset: 144, TickLength: 48}},
	}
	for i, track := range score.Tracks {
		notes := track.Notes()
		if len(notes) != len(want[i]) {
			t.Fatalf("track %d has %d notes, want %d", i, len(notes), len(want[i]))
		}
		for j, n := range notes {
			if *n != want[i][j] {
				t.Errorf("track %d note %d = %v, want %v", i, j, n, &want[i][j])
			}
		}
	}
}

func TestParseMIDIChordKeepsVolume(t *testing.T) {
	var track smf.Track
	track.Add(0, midi.NoteOn(0, 72, 80))
	track.Add(0, midi.NoteOn(0, 76, 80))
	track.Add(96, midi.NoteOff(0, 72))
	track.Add(0, midi.NoteOff(0, 76))
	track.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(96)
	if err := s.Add(track); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}

	score, err := NewMIDIConverter(log.New(io.Discard)).ParseMIDI(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseMIDI() error = %v", err)
	}
	if len(score.Tracks) != 1 {
		t.Fatalf("tracks = %d, want 1", len(score.Tracks))
	}
	notes := score.Tracks[0].Notes()
	if len(notes) != 1 {
		t.Fatalf("notes = %v, want the top note of the chord only", notes)
	}
	want := mml.NoteEvent{Pitch: 64, TickOffset: 0, TickLength: 96, Velocity: mml.VelocityOf(10)}
	if *notes[0] != want {
		t.Errorf("note = %v, want %v", notes[0], &want)
	}
}

func TestParseMIDIInvalid(t *testing.T) {
	if _, err := NewMIDIConverter(log.New(io.Discard)).ParseMIDI([]byte("not a midi file")); err == nil {
		t.Error("ParseMIDI() returned no error for garbage")
	}
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "song.mml")
	mid := filepath.Join(dir, "song.mid")
	out := filepath.Join(dir, "back.mml")

	const text = "MML@t120c4d4,e2;"
	if err := os.WriteFile(in, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}

	conv := quietConverter()
	if err := conv.ConvertFile(in, mid); err != nil {
		t.Fatalf("ConvertFile(mml -> midi) error = %v", err)
	}
	if err := conv.ConvertFile(mid, out); err != nil {
		t.Fatalf("ConvertFile(midi -> mml) error = %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != text {
		t.Errorf("converted text = %q, want %q", got, text)
	}

	if err := conv.ConvertFile(in, filepath.Join(dir, "song.wav")); err == nil {
		t.Error("ConvertFile() to an unknown format returned no error")
	}
}

func TestConverterNew(t *testing.T) {
	conv := New()
	if conv == nil {
		t.Fatal("New() returned nil")
	}
	if conv.GetLogger() == nil {
		t.Error("GetLogger() returned nil")
	}

	logger := log.New(io.Discard)
	conv.SetLogger(logger)
	if conv.GetLogger() != logger {
		t.Error("SetLogger() did not replace the logger")
	}
}

func TestGetSupportedConversions(t *testing.T) {
	conversions := GetSupportedConversions()
	if !slices.Contains(conversions, "mml -> midi") || !slices.Contains(conversions, "midi -> mml") {
		t.Errorf("GetSupportedConversions() = %v", conversions)
	}
}
