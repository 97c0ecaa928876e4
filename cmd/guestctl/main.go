package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/framectl/internal/bridge"
	"github.com/danmuck/framectl/internal/config"
	"github.com/danmuck/framectl/internal/observability"
	"github.com/danmuck/framectl/internal/transport"
)

func main() {
	configPath := flag.String("config", "cmd/guestctl/config.toml", "guest config path")
	pollEvery := flag.Duration("poll", 10*time.Second, "interval for the demo bridge.time call (0 disables)")
	flag.Parse()

	cfg, err := config.LoadGuestConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger := observability.InitLogger(cfg.Name)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	tr, err := transport.DialWebsocket(ctx, cfg.HostURL, cfg.Origin)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.HostURL).Msg("dial host")
	}
	defer tr.Close()
	logger.Info().Str("url", cfg.HostURL).Str("host", tr.HostID()).Msg("connected")

	registry := bridge.NewRegistry(tr, bridge.Options{})
	channels := make([]*bridge.Channel, 0, len(cfg.Channels))
	for _, entry := range cfg.Channels {
		ch, err := registry.Acquire(entry.ID, bridge.ModeGuest, bridge.ChannelOptions{
			OriginFilter: entry.OriginFilter,
			CallTimeout:  entry.CallTimeoutDuration(),
		})
		if err != nil {
			log.Fatal().Err(err).Str("channel", entry.ID).Msg("acquire channel")
		}
		registerGuestHandlers(ch, cfg.Name)
		if err := ch.Emit("guest.hello", map[string]string{"name": cfg.Name}); err != nil {
			logger.Warn().Err(err).Str("channel", entry.ID).Msg("hello emit failed")
		}
		channels = append(channels, ch)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	if *pollEvery > 0 && len(channels) > 0 {
		ticker := time.NewTicker(*pollEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				raw, err := channels[0].Call(context.Background(), "bridge.time", nil)
				if err != nil {
					logger.Warn().Err(err).Msg("bridge.time call failed")
					continue
				}
				logger.Info().RawJSON("result", raw).Msg("bridge.time")
			case <-stop:
				logger.Info().Msg("shutting down")
				return
			}
		}
	}

	<-stop
	logger.Info().Msg("shutting down")
}

func registerGuestHandlers(ch *bridge.Channel, node string) {
	ch.HandleCall("guest.ping", func(_ context.Context, _ json.RawMessage) (any, error) {
		return map[string]string{"node": node, "status": "ok"}, nil
	})
	ch.On("host.notice", func(payload json.RawMessage) {
		log.Info().Str("channel", ch.ID()).RawJSON("payload", payload).Msg("host.notice")
	})
}
