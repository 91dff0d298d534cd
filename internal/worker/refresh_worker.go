// Package worker runs the background loops that keep the catalogue warm and
// the lead pipeline moving. Workers start alongside the HTTP server and stop
// when the process context is cancelled.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Adeyeye93/fitvantage/internal/services"
)

// RefreshWorker periodically sweeps one refresh tier. Two instances run in
// production: a short-interval one for the top tier and a long-interval one
// for everything else. An immediate sweep runs on start so a cold deployment
// does not wait a full interval for its first caches.
type RefreshWorker struct {
	svc      *services.RefreshService
	tier     string
	interval time.Duration
}

// NewRefreshWorker constructs a RefreshWorker for the given tier and sweep
// cadence.
func NewRefreshWorker(svc *services.RefreshService, tier string, interval time.Duration) *RefreshWorker {
	return &RefreshWorker{svc: svc, tier: tier, interval: interval}
}

// Start begins the periodic refresh loop until context is canceled.
func (w *RefreshWorker) Start(ctx context.Context) {
	log.Info().
		Str("tier", w.tier).
		Dur("interval", w.interval).
		Msg("Starting refresh worker")

	w.run(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Str("tier", w.tier).Msg("Refresh worker stopped")
			return
		}
	}
}

func (w *RefreshWorker) run(ctx context.Context) {
	start := time.Now()
	sum, err := w.svc.RefreshTier(ctx, w.tier)
	if err != nil {
		if errors.Is(err, services.ErrRefreshRunning) {
			log.Debug().Str("tier", w.tier).Msg("Sweep already in flight, skipping tick")
			return
		}
		log.Error().Err(err).Str("tier", w.tier).Msg("Refresh sweep failed")
		return
	}
	log.Info().
		Str("tier", w.tier).
		Int("refreshed", sum.Refreshed).
		Int("errored", sum.Errored).
		Dur("took", time.Since(start)).
		Msg("Refresh sweep finished")
}
