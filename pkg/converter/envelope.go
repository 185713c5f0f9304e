package converter

import (
	"errors"
	"fmt"
	"strings"
)

// Mabinogi MML envelope markers
const (
	EnvelopeStart = "MML@"
	EnvelopeEnd   = ";"
	TrackSep      = ","
)

// ValidateEnvelope validates the MML@...; framing
func ValidateEnvelope(text string) error {
	text = strings.TrimSpace(text)
	if len(text) < len(EnvelopeStart)+len(EnvelopeEnd) {
		return errors.New("mml data too short")
	}

	if !strings.EqualFold(text[:len(EnvelopeStart)], EnvelopeStart) {
		return fmt.Errorf("invalid MML envelope: expected start %q, got %q", EnvelopeStart, text[:len(EnvelopeStart)])
	}

	if !strings.HasSuffix(text, EnvelopeEnd) {
		return fmt.Errorf("invalid MML envelope: expected end %q", EnvelopeEnd)
	}

	body := text[len(EnvelopeStart) : len(text)-len(EnvelopeEnd)]
	if strings.ContainsAny(body, EnvelopeEnd+"@") {
		return errors.New("invalid MML envelope: stray marker inside tracks")
	}

	return nil
}

// SplitTracks returns the track texts of an MML score. Text in a Mabinogi
// envelope is unwrapped; anything else is split on commas as is.
func SplitTracks(text string) []string {
	text = strings.TrimSpace(text)
	if IsMabinogiMML(text) {
		text = strings.TrimSuffix(text[len(EnvelopeStart):], EnvelopeEnd)
	}
	if text == "" {
		return nil
	}
	return strings.Split(text, TrackSep)
}

// JoinTracks wraps track texts in a Mabinogi envelope
func JoinTracks(tracks []string) string {
	return EnvelopeStart + strings.Join(tracks, TrackSep) + EnvelopeEnd
}

// IsMabinogiMML checks if the text is framed as a Mabinogi score
func IsMabinogiMML(text string) bool {
	text = strings.TrimSpace(text)
	return len(text) >= len(EnvelopeStart) &&
		strings.EqualFold(text[:len(EnvelopeStart)], EnvelopeStart)
}
