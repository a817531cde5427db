package arbor

import (
	"time"

	"github.com/google/uuid"

	"arborcraft.ai/internal/sim/arbor/species"
)

type EventKind string

const (
	EventPlant    EventKind = "plant"
	EventGrow     EventKind = "grow"
	EventFell     EventKind = "fell"
	EventRot      EventKind = "rot"
	EventBurn     EventKind = "burn"
	EventFreeze   EventKind = "freeze"
	EventOverflow EventKind = "overflow"
)

// Event is one world change made by the engine, in the shape written to the
// event log and the index.
type Event struct {
	ID      string    `json:"id"`
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"time"`
	Kind    EventKind `json:"kind"`
	Pos     [3]int    `json:"pos"`
	Species string    `json:"species,omitempty"`

	Volume   int                 `json:"volume,omitempty"`
	Branches int                 `json:"branches,omitempty"`
	Items    []species.ItemStack `json:"items,omitempty"`
	Detail   string              `json:"detail,omitempty"`
}

type EventSink interface {
	WriteEvent(e Event) error
}

// MultiSink fans events out to every sink and returns the first error.
type MultiSink []EventSink

func (m MultiSink) WriteEvent(e Event) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.WriteEvent(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// MemorySink keeps events in memory. Tools and tests read Events directly.
type MemorySink struct {
	Events []Event
}

func (m *MemorySink) WriteEvent(e Event) error {
	m.Events = append(m.Events, e)
	return nil
}

func (m *MemorySink) Kinds() []EventKind {
	out := make([]EventKind, 0, len(m.Events))
	for _, e := range m.Events {
		out = append(out, e.Kind)
	}
	return out
}

func newEventID() string { return uuid.NewString() }
