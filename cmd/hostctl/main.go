package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/framectl/internal/bridge"
	"github.com/danmuck/framectl/internal/config"
	"github.com/danmuck/framectl/internal/observability"
	"github.com/danmuck/framectl/internal/transport"
)

func main() {
	configPath := flag.String("config", "cmd/hostctl/config.toml", "host config path")
	flag.Parse()

	cfg, err := config.LoadHostConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger := observability.InitLogger(cfg.Name)
	observability.RegisterMetrics()

	tr := transport.NewWebsocketHost(cfg.AllowedOrigins)
	registry := bridge.NewRegistry(tr, bridge.Options{
		OnListenerChange: func(active bool) {
			logger.Info().Bool("active", active).Msg("bridge listener")
		},
	})

	for _, entry := range cfg.Channels {
		ch, err := registry.Acquire(entry.ID, bridge.ModeHost, bridge.ChannelOptions{
			OriginFilter: entry.OriginFilter,
			CallTimeout:  entry.CallTimeoutDuration(),
			Discovery:    tr.Signal(),
		})
		if err != nil {
			log.Fatal().Err(err).Str("channel", entry.ID).Msg("acquire channel")
		}
		registerHostHandlers(ch, cfg.Name)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware(cfg.Name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CorsOrigins,
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	startedAt := time.Now()
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(startedAt).String(),
			"service": cfg.Name,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/channels", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"listener_active": registry.ListenerActive(),
			"channels":        registry.Snapshot(),
		})
	})
	r.GET("/bridge", func(c *gin.Context) {
		tr.Handle(c.Writer, c.Request)
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: r}
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("host node listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("serve")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	tr.Close()
}

func registerHostHandlers(ch *bridge.Channel, node string) {
	ch.HandleCall("bridge.echo", func(_ context.Context, message json.RawMessage) (any, error) {
		return message, nil
	})
	ch.HandleCall("bridge.time", func(_ context.Context, _ json.RawMessage) (any, error) {
		return map[string]any{
			"node":         node,
			"timestamp_ms": time.Now().UnixMilli(),
		}, nil
	})
	ch.On("guest.hello", func(payload json.RawMessage) {
		log.Info().Str("channel", ch.ID()).RawJSON("payload", payload).Msg("guest.hello")
	})
}
