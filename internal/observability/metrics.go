// Package observability exposes the agent's prometheus counters and an
// optional local scrape endpoint. Metrics are always recorded; the HTTP
// listener starts only when an address is configured.
package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	registerOnce sync.Once

	// EventsTotal counts routed operator events by action kind and outcome.
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hostctl",
			Name:      "events_total",
			Help:      "Operator events routed, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// CommandsTotal counts shell executions by outcome (ok, blocked,
	// timeout, error).
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hostctl",
			Name:      "commands_total",
			Help:      "Shell commands executed, by outcome.",
		},
		[]string{"outcome"},
	)

	// KillsTotal counts process termination attempts by outcome.
	KillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hostctl",
			Name:      "kills_total",
			Help:      "Process termination attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	// TransfersTotal counts file transfers by direction and outcome.
	TransfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hostctl",
			Name:      "transfers_total",
			Help:      "File transfers, by direction and outcome.",
		},
		[]string{"direction", "outcome"},
	)

	// PollRestartsTotal counts poll loop restarts by failure class.
	PollRestartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hostctl",
			Name:      "poll_restarts_total",
			Help:      "Poll loop restarts, by failure class.",
		},
		[]string{"class"},
	)
)

// Register installs the collectors exactly once; later calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EventsTotal,
			CommandsTotal,
			KillsTotal,
			TransfersTotal,
			PollRestartsTotal,
		)
	})
}

// Serve starts the scrape endpoint on addr in a background goroutine.
// Empty addr disables it. The listener is best-effort; a bind failure
// is logged and the agent keeps running.
func Serve(addr string) {
	if addr == "" {
		return
	}
	Register()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", addr).Msg("metrics listener starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("metrics listener stopped")
		}
	}()
}
