package bridge

import (
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/framectl/internal/observability"
	"github.com/danmuck/framectl/internal/transport"
)

// Options configure a registry.
type Options struct {
	// OnListenerChange observes the shared transport listener lifecycle:
	// true on the 0→1 attach, false on the 1→0 detach.
	OnListenerChange func(active bool)
}

// Registry owns the channel table for one transport and the lifecycle of the
// transport's single inbound listener: attached when the registry becomes
// non-empty, detached when it empties. For any non-empty registry exactly
// one listener exists, regardless of how many channels are active.
type Registry struct {
	tr               transport.Transport
	onListenerChange func(bool)

	mu             sync.Mutex
	channels       map[string]*Channel
	listenerActive bool
}

func NewRegistry(tr transport.Transport, opts Options) *Registry {
	return &Registry{
		tr:               tr,
		onListenerChange: opts.OnListenerChange,
		channels:         make(map[string]*Channel),
	}
}

// Acquire returns the channel registered under id, creating it if absent.
// Acquisition is idempotent: a second acquire of the same identifier returns
// the existing channel and ignores mode and options.
func (r *Registry) Acquire(id string, mode Mode, opts ChannelOptions) (*Channel, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidChannelID
	}

	r.mu.Lock()
	if ch, ok := r.channels[id]; ok {
		r.mu.Unlock()
		return ch, nil
	}

	ch := newChannel(r, id, mode, opts)
	r.channels[id] = ch
	attached := false
	if !r.listenerActive {
		if err := r.tr.SetListener(r.dispatch); err != nil {
			delete(r.channels, id)
			r.mu.Unlock()
			return nil, err
		}
		r.listenerActive = true
		attached = true
	}
	count := len(r.channels)
	r.mu.Unlock()

	observability.SetActiveChannels(count)
	if attached {
		log.Debug().Msg("transport listener attached")
		if r.onListenerChange != nil {
			r.onListenerChange(true)
		}
	}

	if mode == ModeHost && opts.Discovery != nil {
		stop := opts.Discovery.Watch(ch.bindTarget)
		ch.setStopWatch(stop)
	}

	log.Info().Str("channel", id).Str("mode", mode.String()).Msg("channel acquired")
	return ch, nil
}

// release removes id from the registry, detaching the transport listener if
// the registry became empty. Called from Channel.Destroy.
func (r *Registry) release(id string) {
	r.mu.Lock()
	if _, ok := r.channels[id]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.channels, id)
	detached := false
	if len(r.channels) == 0 && r.listenerActive {
		r.tr.ClearListener()
		r.listenerActive = false
		detached = true
	}
	count := len(r.channels)
	r.mu.Unlock()

	observability.SetActiveChannels(count)
	if detached {
		log.Debug().Msg("transport listener detached")
		if r.onListenerChange != nil {
			r.onListenerChange(false)
		}
	}
}

// ListenerActive reports whether the shared transport listener is installed.
func (r *Registry) ListenerActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listenerActive
}

// Size returns the number of registered channels.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}

// Snapshot returns per-channel state ordered by identifier.
func (r *Registry) Snapshot() []ChannelInfo {
	r.mu.Lock()
	chs := make([]*Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		chs = append(chs, ch)
	}
	r.mu.Unlock()

	out := make([]ChannelInfo, 0, len(chs))
	for _, ch := range chs {
		out = append(out, ch.info())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *Registry) lookup(id string) (*Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[id]
	return ch, ok
}
