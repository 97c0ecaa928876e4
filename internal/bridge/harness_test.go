package bridge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/danmuck/framectl/internal/discovery"
	"github.com/danmuck/framectl/internal/transport"
)

// duplex wires a host-side and a guest-side registry over an in-process
// transport pair, one registry per endpoint, the way two real contexts each
// run their own process-wide registry.
type duplex struct {
	hostEP   *transport.PairEndpoint
	guestEP  *transport.PairEndpoint
	hostReg  *Registry
	guestReg *Registry
}

func newDuplex(t *testing.T, cfg transport.PairConfig) *duplex {
	t.Helper()
	hostEP, guestEP := transport.NewPair(cfg)
	t.Cleanup(hostEP.Close)
	t.Cleanup(guestEP.Close)
	return &duplex{
		hostEP:   hostEP,
		guestEP:  guestEP,
		hostReg:  NewRegistry(hostEP, Options{}),
		guestReg: NewRegistry(guestEP, Options{}),
	}
}

// acquirePeers opens both ends of one logical channel. The host side binds
// its target to the guest endpoint immediately via a static signal.
func (d *duplex) acquirePeers(t *testing.T, id string, hostOpts, guestOpts ChannelOptions) (host, guest *Channel) {
	t.Helper()
	if hostOpts.Discovery == nil {
		hostOpts.Discovery = discovery.Static(d.hostEP.PeerID())
	}
	host, err := d.hostReg.Acquire(id, ModeHost, hostOpts)
	if err != nil {
		t.Fatalf("acquire host channel: %v", err)
	}
	guest, err = d.guestReg.Acquire(id, ModeGuest, guestOpts)
	if err != nil {
		t.Fatalf("acquire guest channel: %v", err)
	}
	return host, guest
}

func waitPayload(t *testing.T, ch chan json.RawMessage) json.RawMessage {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event payload")
		return nil
	}
}

// settleDelivery gives the pair transport's delivery goroutines a moment to
// drain, for assertions that something did NOT happen.
func settleDelivery() {
	time.Sleep(50 * time.Millisecond)
}
