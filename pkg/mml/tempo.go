package mml

import (
	"iter"
	"sort"
)

// TempoTimeline is the ordered list of tempo changes of a composition. One
// timeline is shared by pointer between every track of the composition, so a
// change made through any track is seen by all of them.
type TempoTimeline struct {
	events []TempoEvent
}

// NewTempoTimeline creates a timeline holding events in tick order.
func NewTempoTimeline(events ...TempoEvent) *TempoTimeline {
	t := &TempoTimeline{}
	for _, ev := range events {
		t.Append(ev)
	}
	return t
}

// Append adds a tempo change. A change at a tick that already has one
// replaces its BPM.
func (t *TempoTimeline) Append(ev TempoEvent) {
	n := len(t.events)
	if n == 0 || t.events[n-1].TickOffset < ev.TickOffset {
		t.events = append(t.events, ev)
		return
	}
	i := sort.Search(n, func(i int) bool {
		return t.events[i].TickOffset >= ev.TickOffset
	})
	if t.events[i].TickOffset == ev.TickOffset {
		t.events[i].BPM = ev.BPM
		return
	}
	t.events = append(t.events, TempoEvent{})
	copy(t.events[i+1:], t.events[i:])
	t.events[i] = ev
}

// All iterates the tempo changes in tick order.
func (t *TempoTimeline) All() iter.Seq[TempoEvent] {
	return func(yield func(TempoEvent) bool) {
		for _, ev := range t.events {
			if !yield(ev) {
				return
			}
		}
	}
}

// Len returns the number of tempo changes.
func (t *TempoTimeline) Len() int {
	return len(t.events)
}

// Last returns the latest tempo change.
func (t *TempoTimeline) Last() (TempoEvent, bool) {
	if len(t.events) == 0 {
		return TempoEvent{}, false
	}
	return t.events[len(t.events)-1], true
}

// cursor walks a timeline forward.
type cursor struct {
	events []TempoEvent
	pos    int
}

func (t *TempoTimeline) cursor() *cursor {
	if t == nil {
		return &cursor{}
	}
	return &cursor{events: t.events}
}

func (c *cursor) peek() (TempoEvent, bool) {
	if c.pos >= len(c.events) {
		return TempoEvent{}, false
	}
	return c.events[c.pos], true
}

func (c *cursor) next() {
	c.pos++
}
