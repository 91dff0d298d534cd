package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Adeyeye93/fitvantage/internal/domain"
)

func newRuleRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("rule_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestGetRuleByCategory_Missing(t *testing.T) {
	db := newRuleRepoDB(t, &domain.EligibilityRule{})

	_, err := GetRuleByCategory(context.Background(), db, "no-such-category")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v; want ErrNotFound", err)
	}
}

func TestUpsertRule_InsertThenReplace(t *testing.T) {
	db := newRuleRepoDB(t, &domain.EligibilityRule{})
	ctx := context.Background()

	r := &domain.EligibilityRule{
		CategoryID:       "cat-1",
		MinRating:        4.2,
		MinReviewCount:   300,
		MaxBSRPercentile: 10,
		InStockOnly:      true,
		UKMarketplace:    true,
		Active:           true,
	}
	if err := UpsertRule(ctx, db, r); err != nil {
		t.Fatalf("UpsertRule insert: %v", err)
	}
	if r.ID == "" {
		t.Fatalf("inserted rule has no id")
	}
	firstID := r.ID

	// Upsert for the same category tightens the thresholds; the row count
	// must stay at one.
	r2 := &domain.EligibilityRule{
		CategoryID:     "cat-1",
		MinRating:      4.5,
		MinReviewCount: 500,
		Active:         true,
	}
	if err := UpsertRule(ctx, db, r2); err != nil {
		t.Fatalf("UpsertRule replace: %v", err)
	}

	var count int64
	if err := db.Model(&domain.EligibilityRule{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("rule rows = %d; want 1", count)
	}

	got, err := GetRuleByCategory(ctx, db, "cat-1")
	if err != nil {
		t.Fatalf("GetRuleByCategory: %v", err)
	}
	if got.ID != firstID {
		t.Fatalf("upsert changed primary key: %q -> %q", firstID, got.ID)
	}
	if got.MinRating != 4.5 || got.MinReviewCount != 500 {
		t.Fatalf("thresholds not replaced: %+v", got)
	}
}

func TestUpsertRule_IndependentCategories(t *testing.T) {
	db := newRuleRepoDB(t, &domain.EligibilityRule{})
	ctx := context.Background()

	for _, cat := range []string{"cat-a", "cat-b"} {
		if err := UpsertRule(ctx, db, &domain.EligibilityRule{CategoryID: cat, MinRating: 4.0, Active: true}); err != nil {
			t.Fatalf("UpsertRule %s: %v", cat, err)
		}
	}

	var count int64
	if err := db.Model(&domain.EligibilityRule{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("rule rows = %d; want 2", count)
	}
}
