// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package risk

import (
	"context"
	"time"

	"github.com/tomtom215/drayline/internal/logging"
)

const defaultInterval = 30 * time.Minute

// Scheduler runs the batch runner on a fixed interval. It implements
// suture.Service and stops cleanly on context cancellation.
type Scheduler struct {
	runner   *Runner
	interval time.Duration
}

// NewScheduler creates a scheduler over the runner. A non-positive interval
// falls back to the default.
func NewScheduler(runner *Runner, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{runner: runner, interval: interval}
}

// Serve runs one batch immediately, then one per interval, until the
// context is canceled. Batch errors are logged, not fatal; the next tick
// tries again.
func (s *Scheduler) Serve(ctx context.Context) error {
	logging.Info().
		Dur("interval", s.interval).
		Msg("Starting risk assessment scheduler")

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Risk assessment scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.runner.RunBatch(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("Risk assessment batch failed")
	}
}

// String names the service in supervisor logs.
func (s *Scheduler) String() string {
	return "risk-scheduler"
}
