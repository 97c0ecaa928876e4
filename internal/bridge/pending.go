package bridge

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/danmuck/framectl/internal/observability"
)

type callResult struct {
	value json.RawMessage
	err   error
}

// pendingCall is one in-flight call record. Exactly one terminal outcome
// reaches the result channel; whoever removes the record from the table
// delivers it.
type pendingCall struct {
	result  chan callResult
	timer   *time.Timer
	started time.Time
}

// pendingTable maps call ids to in-flight records. Entries are transient:
// created on call initiation, removed on response, timeout, cancellation, or
// channel teardown.
type pendingTable struct {
	mu    sync.Mutex
	calls map[uint64]*pendingCall
}

func newPendingTable() *pendingTable {
	return &pendingTable{calls: make(map[uint64]*pendingCall)}
}

func (t *pendingTable) add(id uint64, pc *pendingCall) {
	t.mu.Lock()
	t.calls[id] = pc
	t.mu.Unlock()
	observability.CallStarted()
}

// take removes and returns the record for id. A missing id means the call
// already terminated (or never existed); callers treat that as inert.
func (t *pendingTable) take(id uint64) (*pendingCall, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pc, ok := t.calls[id]
	if ok {
		delete(t.calls, id)
	}
	return pc, ok
}

// drain removes every record, for channel teardown.
func (t *pendingTable) drain() []*pendingCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*pendingCall, 0, len(t.calls))
	for id, pc := range t.calls {
		out = append(out, pc)
		delete(t.calls, id)
	}
	return out
}

func (t *pendingTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

// settle stops the record's timer and delivers the terminal outcome. Must be
// called at most once per record; the table's removal discipline guarantees
// that.
func (pc *pendingCall) settle(res callResult, outcome string) {
	if pc.timer != nil {
		pc.timer.Stop()
	}
	observability.CallFinished(outcome, time.Since(pc.started))
	pc.result <- res
}
