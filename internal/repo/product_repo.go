// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Product
// model, including ASIN upserts used by the refresh pipeline.
//
// Error semantics:
//   - When a product is not found, functions return gorm.ErrRecordNotFound
//     (also exported as ErrNotFound).
//   - On DB errors, the raw gorm error is propagated.
//
// Functions:
//
//   - UpsertProduct(ctx, db, p) -> error
//     Inserts a product, or updates the existing row with the same ASIN.
//
//   - GetProductByASIN(ctx, db, asin) -> *domain.Product, error
//     Fetches a single ACTIVE product by ASIN, or ErrNotFound.
//
//   - ResolveProducts(ctx, db, asins) -> []domain.Product, error
//     Resolves a list of ASINs into products, preserving input order and
//     silently dropping ASINs with no matching ACTIVE row.
//
//   - SearchProducts(ctx, db, query, offset, limit) -> []domain.Product, error
//     Case-insensitive substring search over product titles.
//
//   - CountSearchProducts(ctx, db, query) -> (int64, error)
//     Returns the total number of rows SearchProducts would match.
//
//   - ListTopProducts(ctx, db, limit) -> []domain.Product, error
//     Returns the globally best ACTIVE in-stock products by rating, then
//     review count. Used as the last-resort fallback source.
//
//   - LinkProductsToCategory(ctx, db, categoryID, asins) -> error
//     Records category membership for the given ASINs in the join table.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Adeyeye93/fitvantage/internal/domain"
)

// UpsertProduct inserts p, or updates the existing row carrying the same ASIN.
// The ASIN is the conflict key; on conflict the listed mutable columns are
// overwritten and the original primary key and CreatedAt are preserved.
func UpsertProduct(ctx context.Context, db *gorm.DB, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "asin"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "url", "image_url", "price", "currency",
				"rating", "review_count", "in_stock", "bsr_rank", "bsr_category",
				"status", "raw_data", "last_verified", "updated_at",
			}),
		}).
		Create(p).Error
}

// GetProductByASIN fetches a single ACTIVE product by its ASIN, with the
// categories it has been observed in preloaded. If the record does not
// exist, it returns ErrNotFound.
func GetProductByASIN(ctx context.Context, db *gorm.DB, asin string) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).
		Preload("Categories", "status = ?", domain.CategoryStatusActive).
		Where("asin = ? AND status = ?", asin, domain.ProductStatusActive).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ResolveProducts maps an ordered list of ASINs to their ACTIVE product rows,
// preserving the input order. ASINs without a matching row are dropped
// silently; callers treat the cached list as advisory, not authoritative.
func ResolveProducts(ctx context.Context, db *gorm.DB, asins []string) ([]domain.Product, error) {
	if len(asins) == 0 {
		return nil, nil
	}
	var rows []domain.Product
	err := db.WithContext(ctx).
		Where("asin IN ? AND status = ?", asins, domain.ProductStatusActive).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	byASIN := make(map[string]domain.Product, len(rows))
	for _, p := range rows {
		byASIN[p.ASIN] = p
	}
	out := make([]domain.Product, 0, len(asins))
	for _, a := range asins {
		if p, ok := byASIN[a]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// SearchProducts performs a case-insensitive substring search over ACTIVE
// product titles, ordered by rating descending (unrated rows last), then
// review count descending.
func SearchProducts(ctx context.Context, db *gorm.DB, query string, offset, limit int) ([]domain.Product, error) {
	var out []domain.Product
	err := searchScope(db.WithContext(ctx), query).
		Order("rating IS NULL, rating desc, review_count desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountSearchProducts returns the total number of rows SearchProducts would
// match for query, for pagination metadata.
func CountSearchProducts(ctx context.Context, db *gorm.DB, query string) (int64, error) {
	var total int64
	err := searchScope(db.WithContext(ctx), query).Count(&total).Error
	return total, err
}

func searchScope(db *gorm.DB, query string) *gorm.DB {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	return db.Model(&domain.Product{}).
		Where("status = ?", domain.ProductStatusActive).
		Where("LOWER(title) LIKE ?", pattern)
}

// ListTopProducts returns the globally best ACTIVE in-stock products ordered
// by rating descending (unrated rows last), then review count descending.
// This is the last resort when neither a category cache nor its parent's
// cache can serve a request.
func ListTopProducts(ctx context.Context, db *gorm.DB, limit int) ([]domain.Product, error) {
	var out []domain.Product
	err := db.WithContext(ctx).
		Where("status = ? AND in_stock = ?", domain.ProductStatusActive, true).
		Order("rating IS NULL, rating desc, review_count desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// LinkProductsToCategory records category membership for the products behind
// the given ASINs. Links accumulate: a product observed in several categories
// keeps every membership, and re-linking an existing pair is a no-op.
func LinkProductsToCategory(ctx context.Context, db *gorm.DB, categoryID string, asins []string) error {
	if len(asins) == 0 {
		return nil
	}
	var ids []string
	if err := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("asin IN ?", asins).
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	for _, id := range ids {
		err := db.WithContext(ctx).
			Table("product_categories").
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(map[string]any{"product_id": id, "category_id": categoryID}).Error
		if err != nil {
			return err
		}
	}
	return nil
}
