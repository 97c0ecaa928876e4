// Command framectl runs a self-contained bridge demo: a host channel and a
// guest channel joined by an in-process transport pair, exchanging events and
// calls in both directions.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/framectl/internal/bridge"
	"github.com/danmuck/framectl/internal/discovery"
	"github.com/danmuck/framectl/internal/observability"
	"github.com/danmuck/framectl/internal/protocol"
	"github.com/danmuck/framectl/internal/transport"
)

func main() {
	channelID := flag.String("channel", "app.main", "channel identifier shared by both sides")
	guestOrigin := flag.String("guest-origin", "http://localhost:3000", "origin the guest side declares")
	rounds := flag.Int("rounds", 3, "number of call rounds to run")
	callTimeout := flag.Duration("call-timeout", 2*time.Second, "per-call timeout")
	flag.Parse()

	logger := observability.InitLogger("framectl")
	observability.RegisterMetrics()

	hostEP, guestEP := transport.NewPair(transport.PairConfig{
		LeftID:      "demo.host",
		RightID:     "demo.guest",
		LeftOrigin:  protocol.VerifiedOrigin("framectl://host"),
		RightOrigin: protocol.VerifiedOrigin(*guestOrigin),
	})
	defer hostEP.Close()
	defer guestEP.Close()

	hostReg := bridge.NewRegistry(hostEP, bridge.Options{
		OnListenerChange: func(active bool) {
			logger.Debug().Bool("active", active).Msg("host listener")
		},
	})
	guestReg := bridge.NewRegistry(guestEP, bridge.Options{})

	host, err := hostReg.Acquire(*channelID, bridge.ModeHost, bridge.ChannelOptions{
		OriginFilter: *guestOrigin,
		CallTimeout:  *callTimeout,
		Discovery:    discovery.Static(hostEP.PeerID()),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("acquire host channel")
	}
	guest, err := guestReg.Acquire(*channelID, bridge.ModeGuest, bridge.ChannelOptions{
		CallTimeout: *callTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("acquire guest channel")
	}
	defer host.Destroy()
	defer guest.Destroy()

	host.HandleCall("demo.upper", func(_ context.Context, message json.RawMessage) (any, error) {
		var s string
		if err := json.Unmarshal(message, &s); err != nil {
			return nil, err
		}
		return strings.ToUpper(s), nil
	})
	guest.HandleCall("demo.stamp", func(_ context.Context, _ json.RawMessage) (any, error) {
		return map[string]any{"stamped_at": time.Now().UnixMilli()}, nil
	})

	host.On("demo.progress", func(payload json.RawMessage) {
		logger.Info().RawJSON("payload", payload).Msg("guest progress")
	})
	guest.On("demo.notice", func(payload json.RawMessage) {
		logger.Info().RawJSON("payload", payload).Msg("host notice")
	})

	if err := host.Emit("demo.notice", map[string]string{"msg": "demo starting"}); err != nil {
		log.Fatal().Err(err).Msg("host emit")
	}

	ctx := context.Background()
	for round := 1; round <= *rounds; round++ {
		raw, err := guest.Call(ctx, "demo.upper", "round "+strconv.Itoa(round))
		if err != nil {
			log.Fatal().Err(err).Int("round", round).Msg("guest call failed")
		}
		logger.Info().Int("round", round).RawJSON("result", raw).Msg("demo.upper")

		raw, err = host.Call(ctx, "demo.stamp", nil)
		if err != nil {
			log.Fatal().Err(err).Int("round", round).Msg("host call failed")
		}
		logger.Info().Int("round", round).RawJSON("result", raw).Msg("demo.stamp")

		if err := guest.Emit("demo.progress", map[string]int{"round": round}); err != nil {
			log.Fatal().Err(err).Msg("guest emit")
		}
	}

	// Demonstrate the unhandled-call error path before tearing down.
	if _, err := guest.Call(ctx, "demo.missing", nil); err != nil {
		logger.Info().Str("error", err.Error()).Msg("unhandled call rejected")
	}

	// Give the delivery goroutines time to flush the last events.
	time.Sleep(100 * time.Millisecond)
	logger.Info().Msg("demo complete")
}
