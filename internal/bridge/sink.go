package bridge

import (
	"encoding/json"
	"sync"
)

// Listener receives an application event's payload.
type Listener func(payload json.RawMessage)

type sinkEntry struct {
	id uint64
	fn Listener
}

// eventSink holds a channel's local event listeners. Dispatch is synchronous
// and preserves registration order. Entries carry ids because Go functions
// are not comparable.
type eventSink struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[string][]sinkEntry
}

func newEventSink() *eventSink {
	return &eventSink{listeners: make(map[string][]sinkEntry)}
}

func (s *eventSink) add(eventType string, fn Listener) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners[eventType] = append(s.listeners[eventType], sinkEntry{id: id, fn: fn})
	return id
}

func (s *eventSink) remove(eventType string, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.listeners[eventType]
	for i, entry := range entries {
		if entry.id == id {
			s.listeners[eventType] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(s.listeners[eventType]) == 0 {
		delete(s.listeners, eventType)
	}
}

// dispatch invokes listeners outside the sink lock so a listener may remove
// itself or register others without deadlocking.
func (s *eventSink) dispatch(eventType string, payload json.RawMessage) int {
	s.mu.Lock()
	entries := make([]sinkEntry, len(s.listeners[eventType]))
	copy(entries, s.listeners[eventType])
	s.mu.Unlock()

	for _, entry := range entries {
		entry.fn(payload)
	}
	return len(entries)
}

func (s *eventSink) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = make(map[string][]sinkEntry)
}

func (s *eventSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, entries := range s.listeners {
		n += len(entries)
	}
	return n
}
