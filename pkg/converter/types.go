// Package converter provides conversion between MML scores and Standard MIDI Files
package converter

import (
	"github.com/charmbracelet/log"
	"github.com/james-see/mml2midi/pkg/mml"
	"github.com/james-see/mml2midi/pkg/mml/syntax"
)

// Score is a composition: one or more MML tracks sharing a tempo timeline
type Score struct {
	Name   string
	Tempo  *mml.TempoTimeline
	Tracks []*mml.EventList
}

// NewScore creates an empty score
func NewScore() *Score {
	return &Score{Tempo: mml.NewTempoTimeline()}
}

// NewTrack appends an empty track sharing the score's tempo timeline
func (s *Score) NewTrack() *mml.EventList {
	track := mml.NewEventList(s.Tempo, mml.WithEncoder(syntax.TickEncoder{}))
	s.Tracks = append(s.Tracks, track)
	return track
}

// AddTrack parses MML text into a new track
func (s *Score) AddTrack(text string) (*mml.EventList, error) {
	track, err := syntax.NewEventList(text, s.Tempo)
	if err != nil {
		return nil, err
	}
	s.Tracks = append(s.Tracks, track)
	return track, nil
}

// Length returns the end of the longest track or the last tempo change,
// whichever is later
func (s *Score) Length() int {
	length := 0
	for _, t := range s.Tracks {
		length = max(length, t.Length())
	}
	if last, ok := s.Tempo.Last(); ok {
		length = max(length, last.TickOffset)
	}
	return length
}

// Converter handles format conversions
type Converter struct {
	midi      *MIDIConverter
	logger    *log.Logger
	padTracks bool
}

// Option configures a Converter
type Option func(*Converter)

// WithLogger sets the logger used for conversion warnings
func WithLogger(logger *log.Logger) Option {
	return func(c *Converter) {
		c.logger = logger
	}
}

// WithPadTracks makes written MML pad every track to the score length
func WithPadTracks(pad bool) Option {
	return func(c *Converter) {
		c.padTracks = pad
	}
}

// New creates a new Converter
func New(opts ...Option) *Converter {
	c := &Converter{logger: log.Default()}
	for _, opt := range opts {
		opt(c)
	}
	c.midi = NewMIDIConverter(c.logger)
	return c
}

// GetLogger returns the converter's logger
func (c *Converter) GetLogger() *log.Logger {
	return c.logger
}

// SetLogger sets the logger for conversion
func (c *Converter) SetLogger(logger *log.Logger) {
	c.logger = logger
	c.midi.logger = logger
}
