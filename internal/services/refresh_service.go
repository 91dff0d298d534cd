// Package services – RefreshService
//
// This file implements the cache refresh pipeline. A refresh sweep selects
// the categories of a tier, and for each category fetches candidates from
// the upstream catalogue, filters them through the category's effective
// eligibility rule, ranks the survivors and writes the top ASINs into the
// category's cache row. Failures are isolated per category: a failing
// category records its error on the cache row and the sweep moves on.
//
// Two periodic tiers exist. The "top" tier covers featured active
// categories, capped, on a short interval; the "other" tier covers the
// remaining active categories on a longer interval. A single category can
// also be refreshed on demand.
//
// A sweep whose category selection fails outright, or whose product source
// turned out to be down for every selected category, is retried a fixed
// number of times with a flat backoff before the run is recorded as failed.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/Adeyeye93/fitvantage/internal/amazon"
	"github.com/Adeyeye93/fitvantage/internal/domain"
)

// Refresh tiers.
const (
	TierTop   = "top"
	TierOther = "other"
)

const (
	// TopTierCap bounds how many featured categories the top tier refreshes.
	TopTierCap = 20
	// CacheSize is how many ranked ASINs each category cache stores.
	CacheSize = 20
)

// Pipeline metrics.
var (
	refreshCategoriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refresh_categories_total",
		Help: "Category refresh outcomes by tier and result.",
	}, []string{"tier", "result"})

	refreshSweepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "refresh_sweep_duration_seconds",
		Help:    "Wall time of a full refresh sweep by tier.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tier"})

	refreshCandidates = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "refresh_candidates_per_category",
		Help:    "Candidate counts per category before and after filtering.",
		Buckets: []float64{0, 5, 10, 20, 50, 100, 200, 500},
	}, []string{"stage"})
)

// ProductSource fetches refresh candidates for an upstream category ID.
type ProductSource interface {
	FetchCandidates(ctx context.Context, amazonCategoryID string) ([]amazon.Candidate, error)
}

// RefreshRepo defines the persistence contract required by RefreshService.
type RefreshRepo interface {
	ListActiveCategories(ctx context.Context, db *gorm.DB) ([]domain.Category, error)
	ListFeaturedCategories(ctx context.Context, db *gorm.DB, limit int) ([]domain.Category, error)
	GetCategoryBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Category, error)
	GetRuleByCategory(ctx context.Context, db *gorm.DB, categoryID string) (*domain.EligibilityRule, error)
	UpsertProduct(ctx context.Context, db *gorm.DB, p *domain.Product) error
	LinkProductsToCategory(ctx context.Context, db *gorm.DB, categoryID string, asins []string) error
	WriteCache(ctx context.Context, db *gorm.DB, categoryID string, asins []string, next time.Time) (*domain.CategoryCache, error)
	RecordCacheError(ctx context.Context, db *gorm.DB, categoryID, cause string) error
	StartTaskRun(ctx context.Context, db *gorm.DB, taskName, tier string) (*domain.TaskRun, error)
	FinishTaskRun(ctx context.Context, db *gorm.DB, id, status string, refreshed, errored int, cause string) error
}

// RefreshService drives the cache refresh pipeline.
type RefreshService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the persistence contract.
	Repo RefreshRepo
	// Source is the upstream candidate catalogue.
	Source ProductSource
	// Log is the service's structured logger.
	Log zerolog.Logger

	// TopInterval is how long a top-tier cache stays fresh.
	TopInterval time.Duration
	// OtherInterval is how long an other-tier cache stays fresh.
	OtherInterval time.Duration
	// Concurrency bounds how many categories refresh in parallel.
	Concurrency int
	// MaxAttempts is how many times a sweep whose selection fails is tried.
	MaxAttempts int
	// RetryBackoff is the flat wait between sweep attempts.
	RetryBackoff time.Duration

	mu      sync.Mutex
	running map[string]bool
}

// NewRefreshService constructs a RefreshService with production defaults.
func NewRefreshService(db *gorm.DB, r RefreshRepo, src ProductSource, log zerolog.Logger) *RefreshService {
	return &RefreshService{
		DB:            db,
		Repo:          r,
		Source:        src,
		Log:           log,
		TopInterval:   24 * time.Hour,
		OtherInterval: 7 * 24 * time.Hour,
		Concurrency:   4,
		MaxAttempts:   3,
		RetryBackoff:  5 * time.Minute,
	}
}

// RefreshSummary reports the outcome of one sweep.
type RefreshSummary struct {
	Tier      string `json:"tier"`
	Refreshed int    `json:"refreshed"`
	Errored   int    `json:"errored"`
}

// RefreshTier runs a full sweep for the named tier. It returns
// ErrUnknownTier for tiers it does not know and ErrRefreshRunning when a
// sweep for the same tier is already in flight. Category selection failures
// are retried up to MaxAttempts with RetryBackoff between attempts,
// honouring ctx cancellation.
func (s *RefreshService) RefreshTier(ctx context.Context, tier string) (*RefreshSummary, error) {
	if tier != TierTop && tier != TierOther {
		return nil, ErrUnknownTier
	}
	if !s.acquire(tier) {
		return nil, ErrRefreshRunning
	}
	defer s.release(tier)

	run, err := s.Repo.StartTaskRun(ctx, s.DB, "refresh_category_caches", tier)
	if err != nil {
		return nil, err
	}

	var (
		summary *RefreshSummary
		lastErr error
	)
attempts:
	for attempt := 1; attempt <= s.MaxAttempts; attempt++ {
		summary, lastErr = s.sweep(ctx, tier)
		if lastErr == nil {
			break
		}
		s.Log.Warn().Err(lastErr).Str("tier", tier).Int("attempt", attempt).Msg("refresh sweep failed")
		if attempt == s.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			break attempts
		case <-time.After(s.RetryBackoff):
		}
	}

	if lastErr != nil {
		_ = s.Repo.FinishTaskRun(ctx, s.DB, run.ID, domain.TaskRunStatusFailed, 0, 0, lastErr.Error())
		return nil, lastErr
	}
	if err := s.Repo.FinishTaskRun(ctx, s.DB, run.ID, domain.TaskRunStatusCompleted, summary.Refreshed, summary.Errored, ""); err != nil {
		s.Log.Error().Err(err).Str("run", run.ID).Msg("finish task run")
	}
	return summary, nil
}

// RefreshCategory refreshes a single category addressed by slug, outside the
// tier machinery. The cache interval follows the category's tier membership.
func (s *RefreshService) RefreshCategory(ctx context.Context, slug string) error {
	cat, err := s.Repo.GetCategoryBySlug(ctx, s.DB, slug)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrCategoryNotFound
		}
		return err
	}
	interval := s.OtherInterval
	if cat.Featured {
		interval = s.TopInterval
	}
	return s.refreshOne(ctx, *cat, interval)
}

// sweep selects the tier's categories and refreshes them with bounded
// parallelism. Selection errors abort the sweep; per-category errors are
// recorded and counted but never abort it.
func (s *RefreshService) sweep(ctx context.Context, tier string) (*RefreshSummary, error) {
	start := time.Now()

	cats, interval, err := s.selectTier(ctx, tier)
	if err != nil {
		return nil, fmt.Errorf("select %s tier: %w", tier, err)
	}

	var (
		mu         sync.Mutex
		refreshed  int
		errored    int
		sourceDown int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Concurrency)
	for _, cat := range cats {
		cat := cat
		g.Go(func() error {
			if err := s.refreshOne(gctx, cat, interval); err != nil {
				mu.Lock()
				errored++
				if errors.Is(err, amazon.ErrSourceUnavailable) {
					sourceDown++
				}
				mu.Unlock()
				refreshCategoriesTotal.WithLabelValues(tier, "error").Inc()
				return nil // isolation: one bad category never stops the sweep
			}
			mu.Lock()
			refreshed++
			mu.Unlock()
			refreshCategoriesTotal.WithLabelValues(tier, "ok").Inc()
			return nil
		})
	}
	_ = g.Wait()

	// Per-category failures stay isolated, but a source that answered for
	// nobody is a sweep-level failure: hand it to the attempts loop instead
	// of reporting a "successful" sweep that refreshed nothing.
	if refreshed == 0 && errored > 0 && sourceDown == errored {
		return nil, fmt.Errorf("source unavailable for all %d categories: %w", errored, amazon.ErrSourceUnavailable)
	}

	took := time.Since(start)
	refreshSweepDuration.WithLabelValues(tier).Observe(took.Seconds())
	s.Log.Info().
		Str("tier", tier).
		Int("refreshed", refreshed).
		Int("errored", errored).
		Dur("took", took).
		Msg("refresh sweep complete")
	return &RefreshSummary{Tier: tier, Refreshed: refreshed, Errored: errored}, nil
}

// selectTier returns the categories of a tier and their cache interval.
// The top tier holds featured active categories, capped; the other tier
// holds every remaining active category.
func (s *RefreshService) selectTier(ctx context.Context, tier string) ([]domain.Category, time.Duration, error) {
	if tier == TierTop {
		cats, err := s.Repo.ListFeaturedCategories(ctx, s.DB, TopTierCap)
		return cats, s.TopInterval, err
	}

	all, err := s.Repo.ListActiveCategories(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	top, err := s.Repo.ListFeaturedCategories(ctx, s.DB, TopTierCap)
	if err != nil {
		return nil, 0, err
	}
	inTop := make(map[string]bool, len(top))
	for _, c := range top {
		inTop[c.ID] = true
	}
	rest := make([]domain.Category, 0, len(all))
	for _, c := range all {
		if !inTop[c.ID] {
			rest = append(rest, c)
		}
	}
	return rest, s.OtherInterval, nil
}

// refreshOne runs the fetch-filter-rank-cache pipeline for one category.
// Any failure is recorded on the category's cache row before returning.
func (s *RefreshService) refreshOne(ctx context.Context, cat domain.Category, interval time.Duration) error {
	log := s.Log.With().Str("category", cat.Slug).Logger()

	rule, err := ResolveRule(ctx, s.DB, s.Repo, cat.ID)
	if err != nil {
		return s.fail(ctx, cat, log, fmt.Errorf("resolve rule: %w", err))
	}

	candidates, err := s.Source.FetchCandidates(ctx, cat.AmazonCategoryID)
	if err != nil {
		return s.fail(ctx, cat, log, fmt.Errorf("fetch candidates: %w", err))
	}
	refreshCandidates.WithLabelValues("fetched").Observe(float64(len(candidates)))

	eligible := FilterEligible(candidates, rule)
	refreshCandidates.WithLabelValues("eligible").Observe(float64(len(eligible)))

	asins := TopASINs(eligible, CacheSize)
	now := time.Now().UTC()
	seen := make([]string, 0, len(eligible))
	for _, c := range eligible {
		p := candidateToProduct(c, now)
		if err := s.Repo.UpsertProduct(ctx, s.DB, p); err != nil {
			return s.fail(ctx, cat, log, fmt.Errorf("upsert %s: %w", c.ASIN, err))
		}
		seen = append(seen, c.ASIN)
	}
	if err := s.Repo.LinkProductsToCategory(ctx, s.DB, cat.ID, seen); err != nil {
		return s.fail(ctx, cat, log, fmt.Errorf("link products: %w", err))
	}

	if _, err := s.Repo.WriteCache(ctx, s.DB, cat.ID, asins, now.Add(interval)); err != nil {
		return s.fail(ctx, cat, log, fmt.Errorf("write cache: %w", err))
	}

	log.Debug().Int("cached", len(asins)).Int("eligible", len(eligible)).Msg("category refreshed")
	return nil
}

func (s *RefreshService) fail(ctx context.Context, cat domain.Category, log zerolog.Logger, cause error) error {
	log.Error().Err(cause).Msg("category refresh failed")
	if err := s.Repo.RecordCacheError(ctx, s.DB, cat.ID, cause.Error()); err != nil {
		log.Error().Err(err).Msg("record cache error")
	}
	return cause
}

func (s *RefreshService) acquire(tier string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running == nil {
		s.running = make(map[string]bool)
	}
	if s.running[tier] {
		return false
	}
	s.running[tier] = true
	return true
}

func (s *RefreshService) release(tier string) {
	s.mu.Lock()
	delete(s.running, tier)
	s.mu.Unlock()
}

// candidateToProduct maps an upstream candidate onto the stored product row.
func candidateToProduct(c amazon.Candidate, verified time.Time) *domain.Product {
	currency := c.Currency
	if currency == "" {
		currency = "GBP"
	}
	return &domain.Product{
		ASIN:         c.ASIN,
		Title:        c.Title,
		URL:          c.URL,
		ImageURL:     c.ImageURL,
		Price:        c.Price,
		Currency:     currency,
		Rating:       c.Rating,
		ReviewCount:  c.ReviewCount,
		InStock:      c.InStock,
		BSRRank:      c.BSRRank,
		BSRCategory:  c.BSRCategory,
		Status:       domain.ProductStatusActive,
		LastVerified: verified,
	}
}
