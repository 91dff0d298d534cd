package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Adeyeye93/fitvantage/internal/amazon"
	"github.com/Adeyeye93/fitvantage/internal/domain"
	"github.com/Adeyeye93/fitvantage/internal/services"
)

// sweepRepo serves a single featured category and counts cache writes.
type sweepRepo struct {
	cacheWrites atomic.Int64
	runStarts   atomic.Int64
	runFinishes atomic.Int64
}

func (r *sweepRepo) ListActiveCategories(ctx context.Context, db *gorm.DB) ([]domain.Category, error) {
	return nil, nil
}

func (r *sweepRepo) ListFeaturedCategories(ctx context.Context, db *gorm.DB, limit int) ([]domain.Category, error) {
	return []domain.Category{{
		ID:               "cat-1",
		Slug:             "home-gym",
		AmazonCategoryID: "node-123",
		Status:           domain.CategoryStatusActive,
		Featured:         true,
	}}, nil
}

func (r *sweepRepo) GetCategoryBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Category, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *sweepRepo) GetRuleByCategory(ctx context.Context, db *gorm.DB, categoryID string) (*domain.EligibilityRule, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *sweepRepo) UpsertProduct(ctx context.Context, db *gorm.DB, p *domain.Product) error {
	return nil
}

func (r *sweepRepo) LinkProductsToCategory(ctx context.Context, db *gorm.DB, categoryID string, asins []string) error {
	return nil
}

func (r *sweepRepo) WriteCache(ctx context.Context, db *gorm.DB, categoryID string, asins []string, next time.Time) (*domain.CategoryCache, error) {
	r.cacheWrites.Add(1)
	return &domain.CategoryCache{CategoryID: categoryID}, nil
}

func (r *sweepRepo) RecordCacheError(ctx context.Context, db *gorm.DB, categoryID, cause string) error {
	return nil
}

func (r *sweepRepo) StartTaskRun(ctx context.Context, db *gorm.DB, taskName, tier string) (*domain.TaskRun, error) {
	r.runStarts.Add(1)
	return &domain.TaskRun{ID: "run-1", TaskName: taskName, Tier: tier}, nil
}

func (r *sweepRepo) FinishTaskRun(ctx context.Context, db *gorm.DB, id, status string, refreshed, errored int, cause string) error {
	r.runFinishes.Add(1)
	return nil
}

type staticSource struct{}

func (staticSource) FetchCandidates(ctx context.Context, amazonCategoryID string) ([]amazon.Candidate, error) {
	rating := 4.6
	return []amazon.Candidate{{
		ASIN:        "B0WRKTEST1",
		Title:       "Adjustable Dumbbell Set",
		Rating:      &rating,
		ReviewCount: 300,
		InStock:     true,
	}}, nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRefreshWorker_RunsSweepOnStart(t *testing.T) {
	repo := &sweepRepo{}
	svc := services.NewRefreshService(nil, repo, staticSource{}, zerolog.Nop())
	svc.RetryBackoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewRefreshWorker(svc, services.TierTop, time.Hour).Start(ctx)
	}()

	// The first sweep runs before the first tick, so a long interval still
	// produces a cache write almost immediately.
	waitFor(t, "cache write", func() bool { return repo.cacheWrites.Load() >= 1 })
	waitFor(t, "task run finish", func() bool { return repo.runFinishes.Load() >= 1 })

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on context cancel")
	}

	if got := repo.runStarts.Load(); got < 1 {
		t.Fatalf("runStarts = %d, want >= 1", got)
	}
}

func TestRefreshWorker_TicksRepeatedly(t *testing.T) {
	repo := &sweepRepo{}
	svc := services.NewRefreshService(nil, repo, staticSource{}, zerolog.Nop())
	svc.RetryBackoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewRefreshWorker(svc, services.TierTop, 10*time.Millisecond).Start(ctx)

	waitFor(t, "repeated sweeps", func() bool { return repo.cacheWrites.Load() >= 2 })
}
