// Package syntax reads and writes Mabinogi MML text: a tokenizer that turns
// text into mml events, and a TickEncoder that writes notes back as text.
package syntax

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/james-see/mml2midi/pkg/mml"
)

const (
	// TicksPerWhole is the length of a whole note.
	TicksPerWhole = 384

	// TicksPerQuarter is the MIDI resolution matching TicksPerWhole.
	TicksPerQuarter = TicksPerWhole / 4

	// MinLength and MaxLength bound the length numbers MML accepts.
	MinLength = 1
	MaxLength = 64

	// DefaultOctave is the octave a track starts in.
	DefaultOctave = 4

	// MaxPitch is the highest pitch an o command can reach, b in octave 8.
	MaxPitch = (maxOctave+1)*12 - 1
)

// ErrUnrepresentable is returned for durations no combination of note
// lengths can express.
var ErrUnrepresentable = errors.New("tick count cannot be written as note lengths")

var noteNames = [12]string{"c", "c+", "d", "d+", "e", "f", "f+", "g", "g+", "a", "a+", "b"}

type lengthToken struct {
	text  string
	ticks int
}

// lengthTokens lists every single length token that is an exact number of
// ticks, longest first.
var lengthTokens = func() []lengthToken {
	var tokens []lengthToken
	for l := MinLength; l <= MaxLength; l++ {
		if TicksPerWhole%l != 0 {
			continue
		}
		base := TicksPerWhole / l
		tokens = append(tokens, lengthToken{strconv.Itoa(l), base})
		if base%2 == 0 {
			tokens = append(tokens, lengthToken{strconv.Itoa(l) + ".", base + base/2})
		}
	}
	sort.SliceStable(tokens, func(i, j int) bool {
		return tokens[i].ticks > tokens[j].ticks
	})
	return tokens
}()

// splitTicks decomposes ticks into the fewest length tokens, longest first.
func splitTicks(ticks int) ([]string, error) {
	if ticks <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnrepresentable, ticks)
	}

	var tail []lengthToken
	// whole notes first; the search below only needs to cover the rest
	for ticks > 3*TicksPerWhole {
		tail = append(tail, lengthToken{"1", TicksPerWhole})
		ticks -= TicksPerWhole
	}

	count := make([]int, ticks+1)
	choice := make([]int, ticks+1)
	for t := 1; t <= ticks; t++ {
		count[t] = -1
		for i, tok := range lengthTokens {
			if tok.ticks > t || count[t-tok.ticks] < 0 {
				continue
			}
			if c := count[t-tok.ticks] + 1; count[t] < 0 || c < count[t] {
				count[t] = c
				choice[t] = i
			}
		}
	}
	if count[ticks] < 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnrepresentable, ticks)
	}

	for t := ticks; t > 0; t -= lengthTokens[choice[t]].ticks {
		tail = append(tail, lengthTokens[choice[t]])
	}
	sort.SliceStable(tail, func(i, j int) bool {
		return tail[i].ticks > tail[j].ticks
	})
	out := make([]string, len(tail))
	for i, tok := range tail {
		out[i] = tok.text
	}
	return out, nil
}

// TickEncoder writes notes and rests as MML. It implements
// mml.DurationEncoder.
type TickEncoder struct{}

// Rest writes a rest of the given length.
func (TickEncoder) Rest(ticks int) (string, error) {
	parts, err := splitTicks(ticks)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString("r")
		sb.WriteString(p)
	}
	return sb.String(), nil
}

// Note writes the rest between prev and note, the octave change from prev,
// then the note itself, tying lengths with &.
func (e TickEncoder) Note(note, prev mml.NoteEvent) (string, error) {
	if note.Pitch < 0 {
		return "", fmt.Errorf("cannot write pitch %d as a note", note.Pitch)
	}

	var sb strings.Builder
	if gap := note.TickOffset - prev.EndTick(); gap > 0 {
		rest, err := e.Rest(gap)
		if err != nil {
			return "", fmt.Errorf("rest before note: %w", err)
		}
		sb.WriteString(rest)
	}

	sb.WriteString(octaveChange(octaveOf(prev.Pitch), octaveOf(note.Pitch)))

	parts, err := splitTicks(note.TickLength)
	if err != nil {
		return "", err
	}
	name := noteNames[note.Pitch%12]
	for i, p := range parts {
		if i > 0 {
			sb.WriteString("&")
		}
		sb.WriteString(name)
		sb.WriteString(p)
	}
	return sb.String(), nil
}

func octaveOf(pitch int) int {
	if pitch < 0 {
		return DefaultOctave
	}
	return pitch / 12
}

func octaveChange(from, to int) string {
	switch diff := to - from; {
	case diff == 0:
		return ""
	case diff > 0 && diff <= 2:
		return strings.Repeat(">", diff)
	case diff < 0 && diff >= -2:
		return strings.Repeat("<", -diff)
	default:
		return "o" + strconv.Itoa(to)
	}
}
