// Package status exposes a human-facing view of the instance: a bounded
// in-memory timeline of routing events, a status page, and an SMS status
// responder.
package status

import (
	"sync"
	"time"
)

const maxEvents = 200

type Event struct {
	Title     string    `json:"title"`
	Detail    string    `json:"detail"`
	Error     bool      `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Timeline is a bounded ring of recent events appended by route handlers.
type Timeline struct {
	mu     sync.Mutex
	events []Event
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

func (t *Timeline) Record(title, detail string) {
	t.append(Event{Title: title, Detail: detail, Timestamp: time.Now()})
}

func (t *Timeline) RecordError(title, detail string) {
	t.append(Event{Title: title, Detail: detail, Error: true, Timestamp: time.Now()})
}

func (t *Timeline) append(e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
	if len(t.events) > maxEvents {
		t.events = t.events[len(t.events)-maxEvents:]
	}
}

// Recent returns events newest first.
func (t *Timeline) Recent() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.events))
	for i, e := range t.events {
		out[len(t.events)-1-i] = e
	}
	return out
}

func (t *Timeline) HasErrors() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.events {
		if e.Error {
			return true
		}
	}
	return false
}

// Resolve clears recorded errors from the timeline, keeping the events.
func (t *Timeline) Resolve() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.events {
		t.events[i].Error = false
	}
}
