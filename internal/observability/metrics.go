package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Inbound message dispositions recorded by the dispatcher.
const (
	InboundEvent    = "event"
	InboundCall     = "call"
	InboundResponse = "response"
	InboundDropped  = "dropped"

	DropDecode         = "decode"
	DropUnknownChannel = "unknown_channel"
	DropOrigin         = "origin"
	DropSource         = "source"
	DropPayload        = "payload"
)

// Call outcomes recorded when a pending call terminates.
const (
	CallResolved  = "resolved"
	CallRejected  = "rejected"
	CallTimedOut  = "timeout"
	CallDestroyed = "destroyed"
	CallCancelled = "cancelled"
)

var (
	registerOnce sync.Once

	inboundMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framectl",
			Subsystem: "bridge",
			Name:      "inbound_messages_total",
			Help:      "Inbound transport messages by dispatch disposition.",
		},
		[]string{"disposition", "reason"},
	)
	callsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "framectl",
			Subsystem: "bridge",
			Name:      "calls_in_flight",
			Help:      "Pending calls awaiting a response across all channels.",
		},
	)
	callDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "framectl",
			Subsystem: "bridge",
			Name:      "call_duration_seconds",
			Help:      "Call round-trip duration by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	activeChannels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "framectl",
			Subsystem: "bridge",
			Name:      "active_channels",
			Help:      "Channels currently registered.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framectl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "framectl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			inboundMessages, callsInFlight, callDuration, activeChannels,
			httpRequests, httpDuration,
		)
	})
}

func RecordInbound(disposition string) {
	RegisterMetrics()
	inboundMessages.WithLabelValues(disposition, "").Inc()
}

func RecordDrop(reason string) {
	RegisterMetrics()
	inboundMessages.WithLabelValues(InboundDropped, reason).Inc()
}

func CallStarted() {
	RegisterMetrics()
	callsInFlight.Inc()
}

func CallFinished(outcome string, duration time.Duration) {
	RegisterMetrics()
	callsInFlight.Dec()
	callDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func SetActiveChannels(n int) {
	RegisterMetrics()
	activeChannels.Set(float64(n))
}
