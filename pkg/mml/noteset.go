package mml

import "slices"

// NoteSet is an ordered, non-overlapping collection of notes for one track.
// Notes are kept sorted by TickOffset and for every adjacent pair
// notes[i].EndTick() <= notes[i+1].TickOffset.
//
// A NoteSet is not safe for concurrent use.
type NoteSet struct {
	notes []*NoteEvent
}

// Add inserts a note. The new note wins over anything it overlaps: a note
// sounding at its start is shortened (or dropped if nothing is left), and
// every note starting before its end is removed. Notes with a non-positive
// pitch or length are ignored.
func (s *NoteSet) Add(note *NoteEvent) {
	if note == nil || note.Pitch <= 0 || note.TickLength <= 0 {
		return
	}

	i := 0
	for ; i < len(s.notes); i++ {
		n := s.notes[i]
		if note.TickOffset < n.TickOffset {
			break
		}
		overlap := n.EndTick() - note.TickOffset
		if overlap >= 0 {
			if n.TickLength-overlap <= 0 {
				s.notes = slices.Delete(s.notes, i, i+1)
			} else {
				n.TickLength -= overlap
				i++
			}
			break
		}
	}

	s.notes = slices.Insert(s.notes, i, note)

	end := note.EndTick()
	j := i + 1
	for j < len(s.notes) && s.notes[j].TickOffset < end {
		j++
	}
	s.notes = slices.Delete(s.notes, i+1, j)
}

// append adds a note known to start at or after the current end.
func (s *NoteSet) append(note *NoteEvent) {
	s.notes = append(s.notes, note)
}

// Delete removes the given note. Other notes are left untouched, so the gap
// becomes a rest. It reports whether the note was found.
func (s *NoteSet) Delete(note *NoteEvent) bool {
	i := slices.Index(s.notes, note)
	if i < 0 {
		return false
	}
	s.notes = slices.Delete(s.notes, i, i+1)
	return true
}

// Lookup returns the note sounding at tick, if any.
func (s *NoteSet) Lookup(tick int) (*NoteEvent, bool) {
	for _, n := range s.notes {
		if n.TickOffset > tick {
			break
		}
		if tick < n.EndTick() {
			return n, true
		}
	}
	return nil, false
}

// Length returns the end tick of the last note, or 0 when empty.
func (s *NoteSet) Length() int {
	if len(s.notes) == 0 {
		return 0
	}
	return s.notes[len(s.notes)-1].EndTick()
}

// Len returns the number of notes.
func (s *NoteSet) Len() int {
	return len(s.notes)
}

// Notes returns the notes in order. The slice is a copy; the notes are not.
func (s *NoteSet) Notes() []*NoteEvent {
	return slices.Clone(s.notes)
}
