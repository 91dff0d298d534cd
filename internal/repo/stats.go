// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Adeyeye93/fitvantage/internal/domain"
)

// CategoriesStats returns aggregate metadata for ACTIVE categories: the total
// number of rows and the maximum UpdatedAt timestamp among those rows.
//
// When there are no active categories, the returned count is 0 and
// maxUpdatedAt is nil.
//
// Return values:
//   - count:        total ACTIVE categories
//   - maxUpdatedAt: pointer to the greatest UpdatedAt, or nil if no rows
//   - err:          database error, if any
func CategoriesStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Category{}).Where("status = ?", domain.CategoryStatusActive)

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// PostsStats returns aggregate metadata for PUBLISHED posts, optionally
// scoped to a category: the total number of rows and the maximum UpdatedAt
// timestamp among those rows.
//
// When there are no matching posts, the returned count is 0 and maxUpdatedAt
// is nil.
func PostsStats(ctx context.Context, db *gorm.DB, categoryID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := publishedScope(db.WithContext(ctx), categoryID)

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
