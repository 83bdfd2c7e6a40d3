package token

import (
	"context"
	"sync"
	"time"

	"github.com/port-experimental/port-pr-chart/internal/config"
	"github.com/port-experimental/port-pr-chart/internal/logging"
	"github.com/rs/zerolog"
)

// Rotator is the part of Manager the scheduler drives.
type Rotator interface {
	Rotate(ctx context.Context) Outcome
}

// TickerFunc returns a tick channel for the interval and a function to stop it.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func defaultTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Scheduler triggers rotation on a fixed interval. It relies on the
// Rotator's own single-flight guard to coexist with manual and reactive
// rotations.
type Scheduler struct {
	rotator  Rotator
	interval time.Duration
	ticker   TickerFunc
	log      zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a stopped scheduler. A nil ticker uses time.Ticker and
// a non-positive interval falls back to the default rotation interval.
func NewScheduler(rotator Rotator, interval time.Duration, ticker TickerFunc) *Scheduler {
	if ticker == nil {
		ticker = defaultTicker
	}
	if interval <= 0 {
		interval = config.DefaultRotationInterval
	}
	return &Scheduler{
		rotator:  rotator,
		interval: interval,
		ticker:   ticker,
		log:      logging.Component("scheduler"),
	}
}

// Start launches the rotation loop. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	ticks, stop := s.ticker(s.interval)
	go s.run(ctx, ticks, stop, s.done)

	s.log.Info().Dur("interval", s.interval).Msg("Token rotation scheduler started")
}

// Stop cancels the loop and waits for an in-progress rotation to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.log.Info().Msg("Token rotation scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, ticks <-chan time.Time, stop func(), done chan struct{}) {
	defer close(done)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			outcome := s.rotator.Rotate(ctx)
			s.log.Info().Str("outcome", string(outcome)).Msg("Scheduled token rotation")
		}
	}
}
