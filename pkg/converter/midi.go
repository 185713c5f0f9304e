package converter

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/james-see/mml2midi/pkg/mml"
	"github.com/james-see/mml2midi/pkg/mml/syntax"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	// drumChannel is skipped when assigning channels to tracks
	drumChannel = 9

	// quantum is the tick grid MIDI input is snapped to, a 64th note
	quantum = syntax.TicksPerWhole / syntax.MaxLength

	defaultBPM = 120
	minBPM     = 32
	maxBPM     = 255
)

// MIDIConverter handles MIDI file parsing and generation
type MIDIConverter struct {
	ticksPerQuarter uint16
	logger          *log.Logger
}

// NewMIDIConverter creates a new MIDI converter
func NewMIDIConverter(logger *log.Logger) *MIDIConverter {
	if logger == nil {
		logger = log.Default()
	}
	return &MIDIConverter{
		ticksPerQuarter: syntax.TicksPerQuarter,
		logger:          logger,
	}
}

// TrackChannel returns the MIDI channel of the i-th track. Channel 10 is
// reserved for drums and never assigned.
func TrackChannel(i int) int {
	if i >= drumChannel {
		return i + 1
	}
	return i
}

// ParseMIDIFile reads a MIDI file and extracts a score
func (m *MIDIConverter) ParseMIDIFile(filename string) (*Score, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return m.ParseMIDI(data)
}

type pendingNote struct {
	tick     int64
	velocity uint8
}

// ParseMIDI parses MIDI data into a score with one track per channel that
// plays notes. Times are rescaled to MML ticks and snapped to a 64th-note
// grid.
func (m *MIDIConverter) ParseMIDI(data []byte) (*Score, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, errors.New("unsupported MIDI time format: only metric ticks are supported")
	}
	resolution := int64(mt.Resolution())
	if resolution == 0 {
		return nil, errors.New("invalid MIDI resolution 0")
	}
	toMML := func(tick int64) int {
		scaled := (tick*syntax.TicksPerQuarter + resolution/2) / resolution
		return int((scaled + quantum/2) / quantum * quantum)
	}

	score := NewScore()
	score.Name = "MIDI Score"
	notes := map[uint8][]*mml.NoteEvent{}

	for trackNo, track := range s.Tracks {
		var tick int64
		pending := map[[2]uint8]pendingNote{}

		closeNote := func(ch, key uint8, end int64) {
			on, ok := pending[[2]uint8{ch, key}]
			if !ok {
				return
			}
			delete(pending, [2]uint8{ch, key})

			pitch := int(key) - mml.NoteOffset
			if pitch <= 0 || pitch > syntax.MaxPitch {
				m.logger.Warn("dropping note outside MML range", "track", trackNo, "channel", ch, "key", key)
				return
			}
			start := toMML(on.tick)
			length := toMML(end+1) - start
			if length <= 0 {
				length = quantum
			}
			note := mml.NewNote(pitch, length, start)
			note.Velocity = mml.VelocityOf(min(max(int(on.velocity)/mml.VelocityScale, 1), mml.MaxVolume))
			notes[ch] = append(notes[ch], note)
		}

		for _, ev := range track {
			tick += int64(ev.Delta)
			msg := ev.Message

			// Set Tempo: FF 51 03 tt tt tt
			if len(msg) >= 6 && msg[0] == 0xFF && msg[1] == 0x51 && msg[2] == 0x03 {
				microsecondsPerBeat := uint32(msg[3])<<16 | uint32(msg[4])<<8 | uint32(msg[5])
				if microsecondsPerBeat > 0 {
					score.Tempo.Append(mml.TempoEvent{
						TickOffset: toMML(tick),
						BPM:        m.bpm(60000000.0 / float64(microsecondsPerBeat)),
					})
				}
				continue
			}

			if len(msg) < 3 {
				continue
			}
			status, key, velocity := msg[0], msg[1], msg[2]
			ch := status & 0x0F
			switch {
			case status&0xF0 == 0x90 && velocity > 0:
				if _, ok := pending[[2]uint8{ch, key}]; ok {
					closeNote(ch, key, tick-1)
				}
				pending[[2]uint8{ch, key}] = pendingNote{tick: tick, velocity: velocity}
			case status&0xF0 == 0x80, status&0xF0 == 0x90:
				closeNote(ch, key, tick)
			}
		}

		for k := range pending {
			m.logger.Warn("dropping note without note-off", "track", trackNo, "channel", k[0], "key", k[1])
		}
	}

	channels := make([]uint8, 0, len(notes))
	for ch := range notes {
		channels = append(channels, ch)
	}
	slices.Sort(channels)

	for _, ch := range channels {
		chNotes := notes[ch]
		slices.SortStableFunc(chNotes, func(a, b *mml.NoteEvent) int {
			return a.TickOffset - b.TickOffset
		})

		track := score.NewTrack()
		for _, n := range chNotes {
			track.Add(n)
		}
		kept := track.Notes()
		if dropped := len(chNotes) - len(kept); dropped > 0 {
			m.logger.Debug("overlapping notes merged", "channel", ch, "notes", dropped)
		}

		// Only surviving notes decide where the volume changes
		volume := mml.DefaultVolume
		for _, n := range kept {
			level, _ := n.Velocity.Level()
			if level == volume {
				n.Velocity = mml.NoVelocity
			}
			volume = level
		}
	}

	return score, nil
}

// bpm rounds a MIDI tempo to a BPM an MML tempo command can carry
func (m *MIDIConverter) bpm(bpm float64) int {
	rounded := int(math.Round(bpm))
	if rounded < minBPM || rounded > maxBPM {
		clamped := max(minBPM, min(rounded, maxBPM))
		m.logger.Warn("tempo out of MML range", "bpm", bpm, "using", clamped)
		return clamped
	}
	return rounded
}

// GenerateMIDI creates a format 1 Standard MIDI File from a score. The first
// track carries the meter and the tempo timeline; every score track follows
// on its own channel.
func (m *MIDIConverter) GenerateMIDI(score *Score) ([]byte, error) {
	if score == nil {
		return nil, errors.New("nil score")
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(m.ticksPerQuarter)

	var conductor smf.Track
	conductor.Add(0, smf.MetaMeter(4, 4))
	var last uint32
	tempos := 0
	for ev := range score.Tempo.All() {
		conductor.Add(uint32(ev.TickOffset)-last, smf.MetaTempo(float64(ev.BPM)))
		last = uint32(ev.TickOffset)
		tempos++
	}
	if tempos == 0 {
		conductor.Add(0, smf.MetaTempo(defaultBPM))
	}
	conductor.Close(0)
	if err := s.Add(conductor); err != nil {
		return nil, fmt.Errorf("failed to add conductor track: %w", err)
	}

	for i, t := range score.Tracks {
		channel := TrackChannel(i)
		if channel > 15 {
			return nil, fmt.Errorf("%w: too many tracks (%d) for 15 melodic channels", mml.ErrInvalidMessage, len(score.Tracks))
		}

		var sink mml.TrackSink
		if err := t.Materialize(&sink, channel); err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}
		if err := s.Add(sink.Track()); err != nil {
			return nil, fmt.Errorf("failed to add track %d: %w", i, err)
		}
		m.logger.Debug("materialized track", "track", i, "channel", channel, "messages", sink.Len())
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteMIDIFile writes a score as a MIDI file
func (m *MIDIConverter) WriteMIDIFile(score *Score, filename string) error {
	data, err := m.GenerateMIDI(score)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
