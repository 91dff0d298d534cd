package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Adeyeye93/fitvantage/internal/services"
)

// LeadWorker drives the lead lifecycle: each tick routes NEW leads to
// covering providers, and once a day expires unclaimed leads and bills
// qualified ones.
type LeadWorker struct {
	svc      *services.LeadService
	interval time.Duration

	lastDaily time.Time
}

// NewLeadWorker constructs a LeadWorker with the given routing cadence.
func NewLeadWorker(svc *services.LeadService, interval time.Duration) *LeadWorker {
	return &LeadWorker{svc: svc, interval: interval}
}

// Start begins the periodic lead loop until context is canceled.
func (w *LeadWorker) Start(ctx context.Context) {
	log.Info().
		Dur("interval", w.interval).
		Msg("Starting lead worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Lead worker stopped")
			return
		}
	}
}

func (w *LeadWorker) run(ctx context.Context) {
	routed, err := w.svc.RoutePending(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to route pending leads")
	} else if routed > 0 {
		log.Info().Int("routed", routed).Msg("Routed pending leads")
	}

	// Daily bookkeeping: expiry and billing.
	now := time.Now().UTC()
	if now.Sub(w.lastDaily) < 24*time.Hour {
		return
	}
	w.lastDaily = now

	expired, err := w.svc.ExpireStale(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to expire stale leads")
	} else if expired > 0 {
		log.Info().Int64("expired", expired).Msg("Expired stale leads")
	}

	billed, err := w.svc.BillQualified(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to bill qualified leads")
	} else if billed > 0 {
		log.Info().Int("billed", billed).Msg("Billed qualified leads")
	}
}
