package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"coop-payments/internal/core/ports"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ProbeSweeper periodically re-verifies every active binding.
type ProbeSweeper struct {
	bindings    ports.BindingRepository
	probe       ports.ConnectivityProbe
	interval    time.Duration
	concurrency int
	log         zerolog.Logger
}

// NewProbeSweeper creates a sweeper. A non-positive interval disables Run.
func NewProbeSweeper(bindings ports.BindingRepository, probe ports.ConnectivityProbe, interval time.Duration, concurrency int, log zerolog.Logger) *ProbeSweeper {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ProbeSweeper{
		bindings:    bindings,
		probe:       probe,
		interval:    interval,
		concurrency: concurrency,
		log:         log,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *ProbeSweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info().Msg("probe sweeper disabled")
		return
	}

	s.log.Info().Dur("interval", s.interval).Int("concurrency", s.concurrency).Msg("probe sweeper started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("probe sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.log.Error().Err(err).Msg("probe sweep failed")
			}
		}
	}
}

// SweepOnce verifies all active bindings and returns how many were probed.
// Individual probe failures are logged and do not abort the sweep.
func (s *ProbeSweeper) SweepOnce(ctx context.Context) (int, error) {
	start := time.Now()

	active, err := s.bindings.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active bindings: %w", err)
	}

	var probed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, b := range active {
		cooperativeID := b.CooperativeID
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if _, err := s.probe.Verify(gctx, cooperativeID); err != nil {
				failed.Add(1)
				s.log.Warn().Err(err).Str("cooperative_id", cooperativeID).Msg("scheduled probe failed")
				return nil
			}
			probed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info().
		Int("bindings", len(active)).
		Int64("probed", probed.Load()).
		Int64("failed", failed.Load()).
		Dur("took", time.Since(start)).
		Msg("probe sweep completed")

	return int(probed.Load()), ctx.Err()
}
