package bridge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/danmuck/framectl/internal/protocol"
	"github.com/danmuck/framectl/internal/testutil/testlog"
	"github.com/danmuck/framectl/internal/transport"
)

func TestDispatcherDropsMismatchedOrigin(t *testing.T) {
	testlog.Start(t)
	d := newDuplex(t, transport.PairConfig{
		RightOrigin: protocol.VerifiedOrigin("https://evil.example"),
	})

	host, err := d.hostReg.Acquire("chan.alpha", ModeHost, ChannelOptions{
		OriginFilter: "https://app.example",
	})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	host.bindTarget(d.hostEP.PeerID(), true)

	invoked := make(chan struct{}, 1)
	host.On("probe", func(_ json.RawMessage) { invoked <- struct{}{} })

	// The raw envelope is valid; only its origin disqualifies it. The
	// origin hint is wildcard so the transport itself will deliver.
	data, err := protocol.EncodeEvent("chan.alpha", "probe", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := d.guestEP.Send(transport.Outbound{Data: data}); err != nil {
		t.Fatalf("send: %v", err)
	}
	settleDelivery()

	select {
	case <-invoked:
		t.Fatalf("listener invoked despite origin mismatch")
	default:
	}
}

func TestDispatcherAdmitsMatchingAndUnverifiableOrigins(t *testing.T) {
	testlog.Start(t)

	cases := []struct {
		name   string
		origin protocol.Origin
	}{
		{"prefix match", protocol.VerifiedOrigin("https://app.example/embed")},
		{"unverifiable tier", protocol.UnverifiableOrigin()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := newDuplex(t, transport.PairConfig{RightOrigin: tc.origin})
			host, err := d.hostReg.Acquire("chan.alpha", ModeHost, ChannelOptions{
				OriginFilter: "https://app.example",
			})
			if err != nil {
				t.Fatalf("acquire: %v", err)
			}
			host.bindTarget(d.hostEP.PeerID(), true)

			invoked := make(chan struct{}, 1)
			host.On("probe", func(_ json.RawMessage) { invoked <- struct{}{} })

			data, err := protocol.EncodeEvent("chan.alpha", "probe", json.RawMessage(`{}`))
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if err := d.guestEP.Send(transport.Outbound{Data: data}); err != nil {
				t.Fatalf("send: %v", err)
			}
			select {
			case <-invoked:
			case <-time.After(2 * time.Second):
				t.Fatalf("listener not invoked for admissible origin")
			}
		})
	}
}

func TestDispatcherHostModeRejectsWrongSource(t *testing.T) {
	testlog.Start(t)
	d := newDuplex(t, transport.PairConfig{})

	host, err := d.hostReg.Acquire("chan.alpha", ModeHost, ChannelOptions{})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	// Bound to some other remote: messages from the pair's guest endpoint
	// must be discarded.
	host.bindTarget("conn.someone-else", true)

	invoked := make(chan struct{}, 1)
	host.On("probe", func(_ json.RawMessage) { invoked <- struct{}{} })

	data, err := protocol.EncodeEvent("chan.alpha", "probe", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := d.guestEP.Send(transport.Outbound{Data: data}); err != nil {
		t.Fatalf("send: %v", err)
	}
	settleDelivery()
	select {
	case <-invoked:
		t.Fatalf("listener invoked despite source mismatch")
	default:
	}

	// Guest mode performs no source check: the same envelope reaches a
	// guest channel regardless of its source.
	guest, err := d.guestReg.Acquire("chan.alpha", ModeGuest, ChannelOptions{})
	if err != nil {
		t.Fatalf("acquire guest: %v", err)
	}
	guestInvoked := make(chan struct{}, 1)
	guest.On("probe", func(_ json.RawMessage) { guestInvoked <- struct{}{} })
	if err := d.hostEP.Send(transport.Outbound{Data: data}); err != nil {
		t.Fatalf("send to guest: %v", err)
	}
	select {
	case <-guestInvoked:
	case <-time.After(2 * time.Second):
		t.Fatalf("guest listener not invoked")
	}
}

func TestDispatcherDropsUnroutableMessages(t *testing.T) {
	testlog.Start(t)
	d := newDuplex(t, transport.PairConfig{})

	_, guest := d.acquirePeers(t, "chan.alpha", ChannelOptions{}, ChannelOptions{})
	invoked := make(chan struct{}, 1)
	guest.On("probe", func(_ json.RawMessage) { invoked <- struct{}{} })

	raws := []string{
		`not json at all`,
		`{"type":"probe"}`,
		`{"id":"chan.unknown","type":"probe"}`,
		`{"id":"chan.alpha","type":"_async","payload":{"type":"x"}}`,
		`{"id":"chan.alpha","type":"_asyncResponse","payload":{}}`,
	}
	for _, raw := range raws {
		if err := d.hostEP.Send(transport.Outbound{Data: []byte(raw)}); err != nil {
			t.Fatalf("send %q: %v", raw, err)
		}
	}
	settleDelivery()
	select {
	case <-invoked:
		t.Fatalf("listener invoked by an unroutable message")
	default:
	}

	// A valid envelope still routes afterwards: nothing crashed.
	data, err := protocol.EncodeEvent("chan.alpha", "probe", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := d.hostEP.Send(transport.Outbound{Data: data}); err != nil {
		t.Fatalf("send valid: %v", err)
	}
	select {
	case <-invoked:
	case <-time.After(2 * time.Second):
		t.Fatalf("valid message not routed after drops")
	}
}

func TestDispatcherRepliesNoHandlerForUnknownCallType(t *testing.T) {
	testlog.Start(t)
	d := newDuplex(t, transport.PairConfig{})
	_, _ = d.acquirePeers(t, "chan.alpha", ChannelOptions{}, ChannelOptions{})

	// Watch the raw response on the host endpoint's peer listener side by
	// sending a hand-built call from the host endpoint and reading the
	// response envelope that comes back.
	responses := make(chan transport.Inbound, 1)
	d.hostReg.release("chan.alpha") // detach bridge listener on host side
	if err := d.hostEP.SetListener(func(msg transport.Inbound) { responses <- msg }); err != nil {
		t.Fatalf("set raw listener: %v", err)
	}

	data, err := protocol.EncodeCall("chan.alpha", protocol.CallPayload{CallID: 42, Type: "missing.op"})
	if err != nil {
		t.Fatalf("encode call: %v", err)
	}
	if err := d.hostEP.Send(transport.Outbound{Data: data}); err != nil {
		t.Fatalf("send call: %v", err)
	}

	select {
	case msg := <-responses:
		env, err := protocol.DecodeEnvelope(msg.Data)
		if err != nil {
			t.Fatalf("decode response envelope: %v", err)
		}
		resp, err := protocol.DecodeResponse(env)
		if err != nil {
			t.Fatalf("decode response payload: %v", err)
		}
		if resp.CallID != 42 {
			t.Fatalf("response correlates wrong call id: %d", resp.CallID)
		}
		if resp.Error != `No Handler for Event "missing.op"` {
			t.Fatalf("unexpected error payload: %q", resp.Error)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no response envelope for unhandled call")
	}
}
