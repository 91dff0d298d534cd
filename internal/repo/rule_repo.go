// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// EligibilityRule model (one rule per category).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Adeyeye93/fitvantage/internal/domain"
)

// GetRuleByCategory fetches the eligibility rule attached to categoryID.
// If no rule exists, it returns ErrNotFound; callers synthesize defaults.
func GetRuleByCategory(ctx context.Context, db *gorm.DB, categoryID string) (*domain.EligibilityRule, error) {
	var r domain.EligibilityRule
	err := db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpsertRule inserts r, or replaces the existing rule for the same category.
// CategoryID is the conflict key since each category carries at most one rule.
func UpsertRule(ctx context.Context, db *gorm.DB, r *domain.EligibilityRule) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "category_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"min_rating", "min_review_count", "max_bsr_percentile",
				"in_stock_only", "uk_marketplace", "min_price", "max_price",
				"active", "updated_at",
			}),
		}).
		Create(r).Error
}
