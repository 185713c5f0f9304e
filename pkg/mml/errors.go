package mml

import "errors"

var (
	// ErrInvalidMessage is returned when a note cannot be expressed as a
	// MIDI channel message.
	ErrInvalidMessage = errors.New("invalid MIDI message")

	// ErrNoEncoder is returned by ToText when the list has no DurationEncoder.
	ErrNoEncoder = errors.New("no duration encoder configured")
)
