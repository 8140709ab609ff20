package pipeline

import (
	"sync"
	"time"
)

// Severity of a pipeline event.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Event is one timestamped entry in the run event stream.
type Event struct {
	Seq      uint64         `json:"seq"`
	At       time.Time      `json:"at"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Fields   map[string]any `json:"fields,omitempty"`
}

// EventLog is a bounded ring of events owned by one coordinator instance.
// Appends and snapshot reads are safe from concurrent goroutines; once the
// capacity is reached the oldest entry is evicted.
type EventLog struct {
	mu       sync.Mutex
	events   []Event
	capacity int
	nextSeq  uint64
}

func NewEventLog(capacity int) *EventLog {
	if capacity < 1 {
		capacity = 1
	}
	return &EventLog{
		events:   make([]Event, 0, capacity),
		capacity: capacity,
		nextSeq:  1,
	}
}

func (l *EventLog) Append(severity Severity, msg string, fields map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == l.capacity {
		copy(l.events, l.events[1:])
		l.events = l.events[:l.capacity-1]
	}
	l.events = append(l.events, Event{
		Seq:      l.nextSeq,
		At:       time.Now().UTC(),
		Severity: severity,
		Message:  msg,
		Fields:   fields,
	})
	l.nextSeq++
}

// Events returns a copy of all retained events with Seq > afterSeq, in
// order. Pass 0 for everything.
func (l *EventLog) Events(afterSeq uint64) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, 0, len(l.events))
	for _, e := range l.events {
		if e.Seq > afterSeq {
			out = append(out, e)
		}
	}
	return out
}

// Len reports how many events are currently retained.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
