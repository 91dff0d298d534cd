// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// CategoryCache model, the per-category list of cached ASINs maintained by
// the refresh pipeline.
//
// Error semantics:
//   - When a cache row is not found, functions return gorm.ErrRecordNotFound
//     (also exported as ErrNotFound).
//   - On DB errors, the raw gorm error is propagated.
//
// Functions:
//
//   - WriteCache(ctx, db, categoryID, asins, next) -> *domain.CategoryCache, error
//     Replaces the cached ASIN list for a category, marking it fresh and
//     clearing any accumulated error state. One row per category; repeated
//     writes for the same category update the same row.
//
//   - ReadCache(ctx, db, categoryID) -> *domain.CategoryCache, error
//     Fetches the cache row for a category, or ErrNotFound.
//
//   - RecordCacheError(ctx, db, categoryID, cause) -> error
//     Increments the error counter and stores the failure message without
//     touching freshness or the ASIN list: a failed refresh keeps the
//     last-known-good list visible. Creates the row if it does not exist yet
//     so that the error is visible even for never-refreshed categories.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Adeyeye93/fitvantage/internal/domain"
)

// WriteCache replaces the cached ASIN list for categoryID. The row is marked
// fresh, LastUpdated is set to now, NextRefresh to next, and the error
// counter and last error are cleared. The write is idempotent per category:
// the unique category_id index guarantees at most one row.
func WriteCache(ctx context.Context, db *gorm.DB, categoryID string, asins []string, next time.Time) (*domain.CategoryCache, error) {
	now := time.Now().UTC()

	var c domain.CategoryCache
	err := db.WithContext(ctx).Where("category_id = ?", categoryID).First(&c).Error
	switch {
	case err == nil:
		// update in place
	case err == gorm.ErrRecordNotFound:
		c = domain.CategoryCache{
			ID:         uuid.NewString(),
			CategoryID: categoryID,
			CreatedAt:  now,
		}
	default:
		return nil, err
	}

	c.CachedASINs = datatypes.NewJSONSlice(asins)
	c.IsFresh = true
	c.LastUpdated = now
	c.NextRefresh = &next
	c.ErrorCount = 0
	c.LastError = ""
	if err := db.WithContext(ctx).Save(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ReadCache fetches the cache row for categoryID, or ErrNotFound when the
// category has never been refreshed.
func ReadCache(ctx context.Context, db *gorm.DB, categoryID string) (*domain.CategoryCache, error) {
	var c domain.CategoryCache
	err := db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// RecordCacheError increments the error counter for categoryID's cache row
// and records cause as the last error. Freshness and the cached ASIN list are
// left alone: readers keep serving the last-known-good list until the next
// successful refresh replaces it. A missing row is created so the failure is
// observable for never-refreshed categories.
func RecordCacheError(ctx context.Context, db *gorm.DB, categoryID, cause string) error {
	now := time.Now().UTC()

	var c domain.CategoryCache
	err := db.WithContext(ctx).Where("category_id = ?", categoryID).First(&c).Error
	switch {
	case err == nil:
	case err == gorm.ErrRecordNotFound:
		c = domain.CategoryCache{
			ID:         uuid.NewString(),
			CategoryID: categoryID,
			CreatedAt:  now,
		}
	default:
		return err
	}

	c.ErrorCount++
	c.LastError = cause
	return db.WithContext(ctx).Save(&c).Error
}

// ListStaleCaches returns cache rows whose NextRefresh has passed or which
// are explicitly marked stale, for the given category IDs.
func ListStaleCaches(ctx context.Context, db *gorm.DB, now time.Time) ([]domain.CategoryCache, error) {
	var out []domain.CategoryCache
	err := db.WithContext(ctx).
		Where("is_fresh = ? OR (next_refresh IS NOT NULL AND next_refresh < ?)", false, now).
		Find(&out).Error
	return out, err
}
