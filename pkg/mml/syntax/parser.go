package syntax

import (
	"fmt"
	"io"
	"strings"

	"github.com/james-see/mml2midi/pkg/mml"
)

// semitones maps note letters to their offset within an octave.
var semitones = map[byte]int{'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11}

const (
	minOctave = 0
	maxOctave = 8
	maxNote   = 96
	minTempo  = 32
	maxTempo  = 255
	// maxNumber bounds numeric arguments; every valid one is far below it
	maxNumber = 1 << 16
)

// ParseError reports where in the text parsing stopped.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("mml: %s at position %d", e.Msg, e.Pos)
}

// Parser tokenizes one MML track. Each call to Next yields a note (rests
// included, with mml.RestPitch) or a tempo change, with offsets implied by
// the position in the text.
type Parser struct {
	src      string
	pos      int
	octave   int
	length   int
	tick     int
	velocity mml.Velocity
}

// NewParser creates a parser for one track of MML text.
func NewParser(src string) *Parser {
	return &Parser{
		src:    strings.ToLower(src),
		octave: DefaultOctave,
		length: TicksPerWhole / 4,
	}
}

// Tick returns the offset of the next event.
func (p *Parser) Tick() int {
	return p.tick
}

// Next returns the next event, or io.EOF at the end of the text.
func (p *Parser) Next() (mml.Event, error) {
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, io.EOF
		}

		start := p.pos
		c := p.src[p.pos]
		p.pos++

		switch {
		case isNoteLetter(c):
			return p.note(start, p.octave*12+semitones[c]+p.accidental())
		case c == 'n':
			n, ok := p.number()
			if !ok || n < 0 || n > maxNote {
				return nil, &ParseError{start, "invalid note number"}
			}
			return p.noteTicks(start, n, p.length)
		case c == 'r':
			ticks, err := p.duration(start)
			if err != nil {
				return nil, err
			}
			ev := &mml.NoteEvent{Pitch: mml.RestPitch, TickOffset: p.tick, TickLength: ticks}
			p.tick += ticks
			return ev, nil
		case c == 'o':
			n, ok := p.number()
			if !ok || n < minOctave || n > maxOctave {
				return nil, &ParseError{start, "invalid octave"}
			}
			p.octave = n
		case c == '>':
			if p.octave == maxOctave {
				return nil, &ParseError{start, "octave above 8"}
			}
			p.octave++
		case c == '<':
			if p.octave == minOctave {
				return nil, &ParseError{start, "octave below 0"}
			}
			p.octave--
		case c == '&':
			// a tie with nothing to tie to
		case c == 'l':
			ticks, err := p.duration(start)
			if err != nil {
				return nil, err
			}
			p.length = ticks
		case c == 'v':
			n, ok := p.number()
			if !ok || n < 0 || n > mml.MaxVolume {
				return nil, &ParseError{start, "invalid volume"}
			}
			p.velocity = mml.VelocityOf(n)
		case c == 't':
			n, ok := p.number()
			if !ok || n < minTempo || n > maxTempo {
				return nil, &ParseError{start, "invalid tempo"}
			}
			return mml.TempoEvent{TickOffset: p.tick, BPM: n}, nil
		default:
			return nil, &ParseError{start, fmt.Sprintf("unexpected %q", c)}
		}
	}
}

func (p *Parser) note(start, pitch int) (mml.Event, error) {
	ticks, err := p.duration(start)
	if err != nil {
		return nil, err
	}
	return p.noteTicks(start, pitch, ticks)
}

// noteTicks finishes a note, folding in notes of the same pitch tied to it
// with &. A & before a different pitch is a slur and leaves that note for the
// next call.
func (p *Parser) noteTicks(start, pitch, ticks int) (mml.Event, error) {
	if pitch < 0 {
		return nil, &ParseError{start, "note below octave 0"}
	}
	if pitch > MaxPitch {
		return nil, &ParseError{start, "note above octave 8"}
	}
	for p.peek() == '&' {
		p.pos++
		save := p.pos
		p.skipSpace()
		c := p.peek()
		if !isNoteLetter(c) {
			p.pos = save
			break
		}
		p.pos++
		if p.octave*12+semitones[c]+p.accidental() != pitch {
			p.pos = save
			break
		}
		more, err := p.duration(save)
		if err != nil {
			return nil, err
		}
		ticks += more
	}

	ev := &mml.NoteEvent{Pitch: pitch, TickOffset: p.tick, TickLength: ticks, Velocity: p.velocity}
	p.velocity = mml.NoVelocity
	p.tick += ticks
	return ev, nil
}

func isNoteLetter(c byte) bool {
	_, ok := semitones[c]
	return ok
}

func (p *Parser) accidental() int {
	switch p.peek() {
	case '+', '#':
		p.pos++
		return 1
	case '-':
		p.pos++
		return -1
	}
	return 0
}

// duration reads an optional length number and dots.
func (p *Parser) duration(start int) (int, error) {
	ticks := p.length
	if n, ok := p.number(); ok {
		if n < MinLength || n > MaxLength {
			return 0, &ParseError{start, fmt.Sprintf("invalid length %d", n)}
		}
		ticks = TicksPerWhole / n
	}
	add := ticks
	for p.peek() == '.' {
		p.pos++
		add /= 2
		ticks += add
	}
	return ticks, nil
}

// number reads a decimal argument. Long digit runs saturate just past
// maxNumber instead of wrapping, so every range check rejects them.
func (p *Parser) number() (int, bool) {
	start := p.pos
	n := 0
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		n = min(n*10+int(p.src[p.pos]-'0'), maxNumber+1)
		p.pos++
	}
	return n, p.pos > start
}

func (p *Parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *Parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

// Parse tokenizes a whole track.
func Parse(src string) ([]mml.Event, error) {
	p := NewParser(src)
	var events []mml.Event
	for {
		ev, err := p.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
}

// NewEventList parses src into a track that uses tempo as its timeline and
// writes text with a TickEncoder.
func NewEventList(src string, tempo *mml.TempoTimeline) (*mml.EventList, error) {
	events, err := Parse(src)
	if err != nil {
		return nil, err
	}
	l := mml.NewEventList(tempo, mml.WithEncoder(TickEncoder{}))
	for _, ev := range events {
		l.Apply(ev)
	}
	return l, nil
}
