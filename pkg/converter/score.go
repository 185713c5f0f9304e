package converter

import (
	"fmt"
	"os"
	"strings"

	"github.com/james-see/mml2midi/pkg/mml/syntax"
)

// ParseScoreFile reads an .mml file and returns a Score
func ParseScoreFile(filename string) (*Score, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read mml file: %w", err)
	}
	return ParseScore(string(data))
}

// ParseScore parses MML text, with or without the MML@ envelope, into a
// Score whose tracks share one tempo timeline
func ParseScore(text string) (*Score, error) {
	if IsMabinogiMML(text) {
		if err := ValidateEnvelope(text); err != nil {
			return nil, err
		}
	}

	score := NewScore()
	for i, src := range SplitTracks(text) {
		if _, err := score.AddTrack(src); err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}
	}
	return score, nil
}

// Text encodes the score in a Mabinogi envelope. Tempo changes are written
// into the first track only. With pad set, every track is filled with rests
// up to the score length.
func (s *Score) Text(pad bool) (string, error) {
	total := 0
	if pad {
		total = s.Length()
	}

	tracks := make([]string, len(s.Tracks))
	for i, t := range s.Tracks {
		if t.Encoder() == nil {
			t.SetEncoder(syntax.TickEncoder{})
		}
		text, err := t.ToText(i == 0, total)
		if err != nil {
			return "", fmt.Errorf("track %d: %w", i, err)
		}
		tracks[i] = text
	}
	return JoinTracks(tracks), nil
}

// WriteScoreFile writes the score as MML text to a file
func WriteScoreFile(score *Score, filename string, pad bool) error {
	text, err := score.Text(pad)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, []byte(text+"\n"), 0644)
}

// ValidateMML checks that every track of an MML score parses
func ValidateMML(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("mml data is empty")
	}
	_, err := ParseScore(text)
	return err
}
