// Package supervisor owns the agent lifecycle: the single-instance
// lock, the long-poll loop and the tiered recovery waits around it.
package supervisor

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/hostctl/internal/observability"
	"github.com/danmuck/hostctl/internal/transport"
)

type Config struct {
	// ConflictWait applies when another consumer holds the poll.
	ConflictWait time.Duration
	// TransportWait applies to network-level receive failures.
	TransportWait time.Duration
	// RetryWait applies to anything unexpected.
	RetryWait time.Duration
}

func DefaultConfig() Config {
	return Config{
		ConflictWait:  30 * time.Second,
		TransportWait: 10 * time.Second,
		RetryWait:     5 * time.Second,
	}
}

// Supervisor drives the receive loop and dispatches events to the
// handler one at a time.
type Supervisor struct {
	tr     transport.Transport
	handle func(context.Context, transport.Event)
	cfg    Config
	rng    *rand.Rand

	stopped atomic.Bool
}

func New(tr transport.Transport, handle func(context.Context, transport.Event), cfg Config) *Supervisor {
	def := DefaultConfig()
	if cfg.ConflictWait <= 0 {
		cfg.ConflictWait = def.ConflictWait
	}
	if cfg.TransportWait <= 0 {
		cfg.TransportWait = def.TransportWait
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = def.RetryWait
	}
	return &Supervisor{
		tr:     tr,
		handle: handle,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Stop makes Run return after the current iteration. Safe from any
// goroutine.
func (s *Supervisor) Stop() {
	s.stopped.Store(true)
}

// Run polls until the context ends, Stop is called, or the credential
// is rejected. A rejected credential is the one failure waiting cannot
// fix, so it is returned instead of retried.
func (s *Supervisor) Run(ctx context.Context) error {
	attempt := 0
	for !s.stopped.Load() {
		if err := ctx.Err(); err != nil {
			return nil
		}

		events, err := s.tr.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			if errors.Is(err, transport.ErrUnauthorized) {
				log.Error().Err(err).Msg("credential rejected, giving up")
				observability.PollRestartsTotal.WithLabelValues("auth").Inc()
				return err
			}

			attempt++
			class, base := s.classify(err)
			observability.PollRestartsTotal.WithLabelValues(class).Inc()
			delay := NextDelay(base, attempt-1, s.rng)
			log.Warn().Err(err).Str("class", class).Dur("wait", delay).Msg("poll failed, backing off")
			if !sleep(ctx, delay) {
				return nil
			}
			continue
		}
		attempt = 0

		for _, ev := range events {
			if s.stopped.Load() {
				return nil
			}
			s.handle(ctx, ev)
		}
	}
	return nil
}

func (s *Supervisor) classify(err error) (string, time.Duration) {
	switch {
	case errors.Is(err, transport.ErrConflict):
		return "conflict", s.cfg.ConflictWait
	case isNetworkErr(err):
		return "transport", s.cfg.TransportWait
	default:
		return "unexpected", s.cfg.RetryWait
	}
}

// sleep waits the delay unless the context ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
