package converter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Format represents a file format
type Format string

const (
	FormatMIDI    Format = "midi"
	FormatMML     Format = "mml"
	FormatUnknown Format = "unknown"
)

// DetectFormat detects the format of a file based on extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mid", ".midi":
		return FormatMIDI
	case ".mml", ".txt":
		return FormatMML
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}

	// Check for MIDI file signature "MThd"
	if string(data[:4]) == "MThd" {
		return FormatMIDI
	}

	if IsMabinogiMML(string(data)) {
		return FormatMML
	}

	// Plain MML tracks are printable text
	if utf8.Valid(data) && !bytes.ContainsFunc(data, func(r rune) bool {
		return r < 0x20 && r != '\n' && r != '\r' && r != '\t'
	}) {
		return FormatMML
	}

	return FormatUnknown
}

// ConvertFile converts a file from one format to another
func (c *Converter) ConvertFile(inputPath, outputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	inputFormat := DetectFormat(inputPath)
	if inputFormat == FormatUnknown {
		inputFormat = DetectFormatFromContent(data)
	}

	outputFormat := DetectFormat(outputPath)
	if outputFormat == FormatUnknown {
		return errors.New("cannot determine output format from filename")
	}

	c.logger.Debug("converting", "input", inputPath, "from", inputFormat, "output", outputPath, "to", outputFormat)

	var outputData []byte
	switch {
	case inputFormat == FormatMML && outputFormat == FormatMIDI:
		outputData, err = c.MMLToMIDI(data)
	case inputFormat == FormatMIDI && outputFormat == FormatMML:
		outputData, err = c.MIDIToMML(data)
	case inputFormat == FormatMML && outputFormat == FormatMML:
		outputData, err = c.FormatMML(data)
	default:
		return fmt.Errorf("unsupported conversion: %s to %s", inputFormat, outputFormat)
	}

	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	if err := os.WriteFile(outputPath, outputData, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	return nil
}

// MMLToMIDI converts MML text to a Standard MIDI File
func (c *Converter) MMLToMIDI(mmlData []byte) ([]byte, error) {
	score, err := ParseScore(string(mmlData))
	if err != nil {
		return nil, err
	}
	return c.midi.GenerateMIDI(score)
}

// MIDIToMML converts a Standard MIDI File to MML text
func (c *Converter) MIDIToMML(midiData []byte) ([]byte, error) {
	score, err := c.midi.ParseMIDI(midiData)
	if err != nil {
		return nil, err
	}
	text, err := score.Text(c.padTracks)
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

// FormatMML parses MML text and writes it back in canonical form. Notes that
// cross a tempo change come back cut at the change.
func (c *Converter) FormatMML(mmlData []byte) ([]byte, error) {
	score, err := ParseScore(string(mmlData))
	if err != nil {
		return nil, err
	}
	text, err := score.Text(c.padTracks)
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

// GetSupportedConversions returns a list of supported conversion paths
func GetSupportedConversions() []string {
	return []string{
		"mml -> midi",
		"midi -> mml",
		"mml -> mml",
	}
}
