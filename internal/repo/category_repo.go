// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Category
// model and its self-referential parent/child hierarchy.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a category is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Functions:
//
//   - CreateCategory(ctx, db, c) -> error
//     Inserts a new Category row, assigning a UUID primary key when unset.
//
//   - GetCategory(ctx, db, id) -> *domain.Category, error
//     Fetches a single category by ID, or ErrNotFound if missing.
//
//   - GetCategoryBySlug(ctx, db, slug) -> *domain.Category, error
//     Fetches a single ACTIVE category by its URL slug.
//
//   - ListActiveCategories(ctx, db) -> []domain.Category, error
//     Returns every ACTIVE category ordered by display order, then name.
//
//   - ListFeaturedCategories(ctx, db, limit) -> []domain.Category, error
//     Returns ACTIVE featured categories ordered by display order, capped.
//
//   - ListChildCategories(ctx, db, parentID) -> []domain.Category, error
//     Returns the ACTIVE direct children of a category.
//
// This repository is designed to be wrapped by a higher-level service
// (see services.CatalogService) which enforces business rules, caching,
// or cross-aggregate behavior.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Adeyeye93/fitvantage/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateCategory inserts a new Category row. When c.ID is empty a random
// UUID is assigned, and CreatedAt defaults to UTC now.
func CreateCategory(ctx context.Context, db *gorm.DB, c *domain.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(c).Error
}

// GetCategory fetches a single category by its ID. If the record does not
// exist, it returns ErrNotFound. On other DB errors, the raw error is returned.
func GetCategory(ctx context.Context, db *gorm.DB, id string) (*domain.Category, error) {
	var c domain.Category
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCategoryBySlug fetches a single ACTIVE category by its URL slug.
// If the record does not exist (or is not ACTIVE), it returns ErrNotFound.
func GetCategoryBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Category, error) {
	var c domain.Category
	err := db.WithContext(ctx).
		Where("slug = ? AND status = ?", slug, domain.CategoryStatusActive).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListActiveCategories returns every ACTIVE category ordered by display order
// ascending, then name ascending. It returns an empty slice when none exist.
func ListActiveCategories(ctx context.Context, db *gorm.DB) ([]domain.Category, error) {
	var out []domain.Category
	err := db.WithContext(ctx).
		Where("status = ?", domain.CategoryStatusActive).
		Order("display_order asc, name asc").
		Find(&out).Error
	return out, err
}

// ListFeaturedCategories returns ACTIVE featured categories ordered by display
// order ascending, capped at limit rows. A limit <= 0 means no cap.
func ListFeaturedCategories(ctx context.Context, db *gorm.DB, limit int) ([]domain.Category, error) {
	q := db.WithContext(ctx).
		Where("status = ? AND featured = ?", domain.CategoryStatusActive, true).
		Order("display_order asc, name asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.Category
	err := q.Find(&out).Error
	return out, err
}

// ListChildCategories returns the ACTIVE direct children of parentID, ordered
// by display order ascending, then name ascending.
func ListChildCategories(ctx context.Context, db *gorm.DB, parentID string) ([]domain.Category, error) {
	var out []domain.Category
	err := db.WithContext(ctx).
		Where("parent_id = ? AND status = ?", parentID, domain.CategoryStatusActive).
		Order("display_order asc, name asc").
		Find(&out).Error
	return out, err
}
