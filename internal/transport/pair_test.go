package transport

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/danmuck/framectl/internal/protocol"
	"github.com/danmuck/framectl/internal/testutil/testlog"
)

func collect(t *testing.T, ep *PairEndpoint) chan Inbound {
	t.Helper()
	got := make(chan Inbound, 16)
	if err := ep.SetListener(func(msg Inbound) { got <- msg }); err != nil {
		t.Fatalf("set listener: %v", err)
	}
	return got
}

func waitInbound(t *testing.T, ch chan Inbound) Inbound {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for inbound message")
		return Inbound{}
	}
}

func TestPairDeliversInOrderWithSourceAndOrigin(t *testing.T) {
	testlog.Start(t)

	left, right := NewPair(PairConfig{
		LeftID:     "ctx.parent",
		RightID:    "ctx.embed",
		LeftOrigin: protocol.VerifiedOrigin("https://parent.example"),
	})
	defer left.Close()
	defer right.Close()

	got := collect(t, right)
	for i := 0; i < 5; i++ {
		if err := left.Send(Outbound{Data: []byte{byte(i)}}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	for i := 0; i < 5; i++ {
		msg := waitInbound(t, got)
		if msg.Data[0] != byte(i) {
			t.Fatalf("out of order: got %d at position %d", msg.Data[0], i)
		}
		if msg.Source != "ctx.parent" {
			t.Fatalf("unexpected source: %q", msg.Source)
		}
		if msg.Origin.Tier != protocol.OriginVerified || msg.Origin.Value != "https://parent.example" {
			t.Fatalf("unexpected origin: %+v", msg.Origin)
		}
	}
}

func TestPairUnverifiableOriginByDefault(t *testing.T) {
	testlog.Start(t)

	left, right := NewPair(PairConfig{})
	defer left.Close()
	defer right.Close()

	got := collect(t, left)
	if err := right.Send(Outbound{Data: []byte("x")}); err != nil {
		t.Fatalf("send: %v", err)
	}
	msg := waitInbound(t, got)
	if msg.Origin.Tier != protocol.OriginUnverifiable {
		t.Fatalf("expected unverifiable origin, got %+v", msg.Origin)
	}
}

func TestPairOriginHintDropsMismatch(t *testing.T) {
	testlog.Start(t)

	left, right := NewPair(PairConfig{
		RightOrigin: protocol.VerifiedOrigin("https://embed.example"),
	})
	defer left.Close()
	defer right.Close()

	got := collect(t, right)
	if err := left.Send(Outbound{Data: []byte("a"), OriginHint: "https://other.example"}); err != nil {
		t.Fatalf("mismatched hint should drop silently: %v", err)
	}
	if err := left.Send(Outbound{Data: []byte("b"), OriginHint: "https://embed.example"}); err != nil {
		t.Fatalf("matching hint: %v", err)
	}
	msg := waitInbound(t, got)
	if string(msg.Data) != "b" {
		t.Fatalf("expected only the matching-hint message, got %q", msg.Data)
	}
}

func TestPairRejectsUnknownTarget(t *testing.T) {
	testlog.Start(t)

	left, right := NewPair(PairConfig{RightID: "ctx.embed"})
	defer left.Close()
	defer right.Close()

	if err := left.Send(Outbound{Data: []byte("x"), Target: "ctx.someone-else"}); !errors.Is(err, ErrUnknownTarget) {
		t.Fatalf("expected ErrUnknownTarget, got %v", err)
	}
	if err := left.Send(Outbound{Data: []byte("x"), Target: "ctx.embed"}); err != nil {
		t.Fatalf("peer target: %v", err)
	}
}

func TestPairSingleListener(t *testing.T) {
	testlog.Start(t)

	left, _ := NewPair(PairConfig{})
	defer left.Close()

	if err := left.SetListener(func(Inbound) {}); err != nil {
		t.Fatalf("first listener: %v", err)
	}
	if err := left.SetListener(func(Inbound) {}); !errors.Is(err, ErrListenerInstalled) {
		t.Fatalf("expected ErrListenerInstalled, got %v", err)
	}
	left.ClearListener()
	if err := left.SetListener(func(Inbound) {}); err != nil {
		t.Fatalf("listener after clear: %v", err)
	}
}

func TestPairClosedEndpointRefusesSend(t *testing.T) {
	testlog.Start(t)

	left, right := NewPair(PairConfig{})
	right.Close()

	err := left.Send(Outbound{Data: []byte("x")})
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestPairDataIsCopied(t *testing.T) {
	testlog.Start(t)

	left, right := NewPair(PairConfig{})
	defer left.Close()
	defer right.Close()

	got := collect(t, right)
	buf := []byte(fmt.Sprintf("payload-%d", 1))
	if err := left.Send(Outbound{Data: buf}); err != nil {
		t.Fatalf("send: %v", err)
	}
	buf[0] = 'X'
	msg := waitInbound(t, got)
	if string(msg.Data) != "payload-1" {
		t.Fatalf("delivered data aliased sender buffer: %q", msg.Data)
	}
}
