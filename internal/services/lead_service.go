// Package services – LeadService
//
// This file implements lead capture and the bookkeeping the lead worker
// drives: routing NEW leads to covering providers, expiring leads nobody
// claimed, and marking qualified leads billed at the provider's price.
// Outbound notification goes through the opaque ContactDispatcher seam;
// payment execution happens elsewhere. Beyond that the service only moves
// rows through the lifecycle.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Adeyeye93/fitvantage/internal/domain"
)

// LeadRepo defines the persistence contract required by LeadService.
type LeadRepo interface {
	CreateLead(ctx context.Context, db *gorm.DB, l *domain.Lead) error
	ListUnroutedLeads(ctx context.Context, db *gorm.DB, limit int) ([]domain.Lead, error)
	AssignLead(ctx context.Context, db *gorm.DB, leadID, providerID string) error
	ExpireStaleLeads(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
	ListBillableLeads(ctx context.Context, db *gorm.DB, limit int) ([]domain.Lead, error)
	MarkLeadBilled(ctx context.Context, db *gorm.DB, leadID string, amount float64) error
	ListActiveProviders(ctx context.Context, db *gorm.DB) ([]domain.Provider, error)
	GetProvider(ctx context.Context, db *gorm.DB, id string) (*domain.Provider, error)
}

// ContactDispatcher hands a routed lead to whatever channel actually reaches
// the provider (telephony, email, a CRM webhook). The service treats it as
// opaque: a dispatch failure is logged but the assignment stands, and the
// lead ages out through the normal TTL if the provider never hears of it.
type ContactDispatcher interface {
	Contact(ctx context.Context, lead domain.Lead, provider domain.Provider) error
}

// LogDispatcher is the stand-in channel: it records the handoff in the
// structured log so operators can relay it manually until a real telephony
// or CRM integration lands.
type LogDispatcher struct {
	Log zerolog.Logger
}

func (d LogDispatcher) Contact(ctx context.Context, lead domain.Lead, provider domain.Provider) error {
	d.Log.Info().
		Str("lead", lead.ID).
		Str("provider", provider.ID).
		Str("service", lead.Service).
		Str("city", lead.City).
		Msg("lead handed to provider")
	return nil
}

// LeadService provides lead capture and lifecycle operations.
type LeadService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the lead repository.
	Repo LeadRepo
	// Dispatch notifies providers of routed leads. Nil disables dispatch.
	Dispatch ContactDispatcher
	// Log is the service's structured logger.
	Log zerolog.Logger

	// LeadTTL is how long an unqualified lead (NEW or CONTACTED) survives
	// before expiry.
	LeadTTL time.Duration
	// RouteBatch caps how many leads one routing pass processes.
	RouteBatch int
}

// NewLeadService constructs a LeadService with production defaults.
func NewLeadService(db *gorm.DB, r LeadRepo, log zerolog.Logger) *LeadService {
	return &LeadService{
		DB:         db,
		Repo:       r,
		Log:        log,
		LeadTTL:    30 * 24 * time.Hour,
		RouteBatch: 100,
	}
}

// Capture validates and stores an incoming lead in status NEW.
// Name, phone, service and city are required.
func (s *LeadService) Capture(ctx context.Context, l *domain.Lead) (*domain.Lead, error) {
	l.Name = normalizeText(l.Name)
	l.Phone = strings.TrimSpace(l.Phone)
	l.Service = normalizeText(l.Service)
	l.City = normalizeText(l.City)
	if l.Name == "" || l.Phone == "" || l.Service == "" || l.City == "" {
		return nil, ErrInvalidLead
	}
	l.Status = domain.LeadStatusNew
	if err := s.Repo.CreateLead(ctx, s.DB, l); err != nil {
		return nil, err
	}
	return l, nil
}

// RoutePending assigns unrouted NEW leads to the first active provider
// covering their service and city. Leads with no covering provider stay NEW
// until they expire. Returns how many leads were routed.
func (s *LeadService) RoutePending(ctx context.Context) (int, error) {
	leads, err := s.Repo.ListUnroutedLeads(ctx, s.DB, s.RouteBatch)
	if err != nil {
		return 0, err
	}
	if len(leads) == 0 {
		return 0, nil
	}
	providers, err := s.Repo.ListActiveProviders(ctx, s.DB)
	if err != nil {
		return 0, err
	}

	routed := 0
	for _, lead := range leads {
		for _, p := range providers {
			if !p.Covers(lead.Service, lead.City) {
				continue
			}
			if err := s.Repo.AssignLead(ctx, s.DB, lead.ID, p.ID); err != nil {
				s.Log.Error().Err(err).Str("lead", lead.ID).Msg("assign lead")
				break
			}
			if s.Dispatch != nil {
				if err := s.Dispatch.Contact(ctx, lead, p); err != nil {
					s.Log.Error().Err(err).Str("lead", lead.ID).Str("provider", p.ID).Msg("dispatch lead")
				}
			}
			routed++
			break
		}
	}
	return routed, nil
}

// ExpireStale moves NEW and CONTACTED leads older than LeadTTL to EXPIRED
// and returns how many rows changed.
func (s *LeadService) ExpireStale(ctx context.Context) (int64, error) {
	return s.Repo.ExpireStaleLeads(ctx, s.DB, time.Now().UTC().Add(-s.LeadTTL))
}

// BillQualified marks qualified, unbilled leads billed at their provider's
// price per lead. Providers without a configured price are skipped.
// Returns how many leads were billed.
func (s *LeadService) BillQualified(ctx context.Context) (int, error) {
	leads, err := s.Repo.ListBillableLeads(ctx, s.DB, s.RouteBatch)
	if err != nil {
		return 0, err
	}

	billed := 0
	for _, lead := range leads {
		if lead.ProviderID == nil {
			continue
		}
		p, err := s.Repo.GetProvider(ctx, s.DB, *lead.ProviderID)
		if err != nil {
			s.Log.Error().Err(err).Str("lead", lead.ID).Msg("load provider for billing")
			continue
		}
		if p.PricePerLead == nil {
			continue
		}
		if err := s.Repo.MarkLeadBilled(ctx, s.DB, lead.ID, *p.PricePerLead); err != nil {
			s.Log.Error().Err(err).Str("lead", lead.ID).Msg("mark lead billed")
			continue
		}
		billed++
	}
	return billed, nil
}
