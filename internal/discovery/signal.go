package discovery

import "sync"

// Signal reports the availability of a remote target. Watch invokes fn
// immediately with the current state and again on every change, until the
// returned stop function runs. ok is false while no target is available.
type Signal interface {
	Watch(fn func(target string, ok bool)) (stop func())
}

// Static is a signal permanently bound to one target.
type Static string

func (s Static) Watch(fn func(target string, ok bool)) (stop func()) {
	fn(string(s), true)
	return func() {}
}

// Manual is a settable signal. The zero value is unusable; use NewManual.
type Manual struct {
	mu       sync.Mutex
	target   string
	ok       bool
	nextID   uint64
	watchers map[uint64]func(string, bool)
}

func NewManual() *Manual {
	return &Manual{watchers: make(map[uint64]func(string, bool))}
}

// Set binds the signal to target and notifies watchers.
func (m *Manual) Set(target string) {
	m.update(target, true)
}

// Clear marks the target unavailable and notifies watchers.
func (m *Manual) Clear() {
	m.update("", false)
}

func (m *Manual) update(target string, ok bool) {
	m.mu.Lock()
	m.target = target
	m.ok = ok
	fns := make([]func(string, bool), 0, len(m.watchers))
	for _, fn := range m.watchers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(target, ok)
	}
}

func (m *Manual) Watch(fn func(target string, ok bool)) (stop func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = fn
	target, ok := m.target, m.ok
	m.mu.Unlock()

	fn(target, ok)

	return func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}
}
