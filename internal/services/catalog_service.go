// Package services – CatalogService
//
// This file implements the public read side of the product catalogue:
// category listings and hierarchy, cached product lists with fallback,
// product search and product detail.
//
// A category's product list is served from its cache row when that row is
// usable (fresh, non-empty, not past its refresh deadline). When it is not,
// resolution falls back first to the parent category's cache and finally to
// a global best-sellers query, so a category page never renders empty just
// because its cache expired.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Adeyeye93/fitvantage/internal/domain"
)

// Product list sources, reported alongside fallback results.
const (
	SourceCache  = "cache"
	SourceParent = "parent"
	SourceGlobal = "global"
)

// CatalogRepo defines the persistence contract required by CatalogService.
type CatalogRepo interface {
	GetCategory(ctx context.Context, db *gorm.DB, id string) (*domain.Category, error)
	GetCategoryBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Category, error)
	ListActiveCategories(ctx context.Context, db *gorm.DB) ([]domain.Category, error)
	ListFeaturedCategories(ctx context.Context, db *gorm.DB, limit int) ([]domain.Category, error)
	ListChildCategories(ctx context.Context, db *gorm.DB, parentID string) ([]domain.Category, error)
	ReadCache(ctx context.Context, db *gorm.DB, categoryID string) (*domain.CategoryCache, error)
	ResolveProducts(ctx context.Context, db *gorm.DB, asins []string) ([]domain.Product, error)
	ListTopProducts(ctx context.Context, db *gorm.DB, limit int) ([]domain.Product, error)
	SearchProducts(ctx context.Context, db *gorm.DB, query string, offset, limit int) ([]domain.Product, error)
	CountSearchProducts(ctx context.Context, db *gorm.DB, query string) (int64, error)
	GetProductByASIN(ctx context.Context, db *gorm.DB, asin string) (*domain.Product, error)
}

// CatalogService provides read access to categories and products.
type CatalogService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the catalogue repository.
	Repo CatalogRepo
	// Log is the service's structured logger.
	Log zerolog.Logger

	// Now is the clock used for staleness checks, overridable in tests.
	Now func() time.Time
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(db *gorm.DB, r CatalogRepo, log zerolog.Logger) *CatalogService {
	return &CatalogService{DB: db, Repo: r, Log: log, Now: time.Now}
}

// Categories returns all publicly visible categories.
func (s *CatalogService) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.Repo.ListActiveCategories(ctx, s.DB)
}

// FeaturedCategories returns the featured categories shown on the home page.
func (s *CatalogService) FeaturedCategories(ctx context.Context, limit int) ([]domain.Category, error) {
	return s.Repo.ListFeaturedCategories(ctx, s.DB, limit)
}

// CategoryBySlug fetches a category by slug, with its direct children.
func (s *CatalogService) CategoryBySlug(ctx context.Context, slug string) (*domain.Category, []domain.Category, error) {
	cat, err := s.Repo.GetCategoryBySlug(ctx, s.DB, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrCategoryNotFound
		}
		return nil, nil, err
	}
	children, err := s.Repo.ListChildCategories(ctx, s.DB, cat.ID)
	if err != nil {
		return nil, nil, err
	}
	return cat, children, nil
}

// CategoryProducts returns up to limit products for the category addressed
// by slug, together with the source that served them: the category's own
// cache, the parent category's cache, or the global best-sellers fallback.
func (s *CatalogService) CategoryProducts(ctx context.Context, slug string, limit int) ([]domain.Product, string, error) {
	if limit <= 0 {
		limit = CacheSize
	}
	cat, err := s.Repo.GetCategoryBySlug(ctx, s.DB, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrCategoryNotFound
		}
		return nil, "", err
	}

	if products, ok := s.fromCache(ctx, cat.ID, limit); ok {
		return products, SourceCache, nil
	}

	// The parent step asks only whether the parent's stored list is
	// non-empty; a stale parent cache still beats the global pool. Parent
	// cache errors are treated as a missing cache: the request still has
	// the global fallback to land on.
	if cat.ParentID != nil {
		if products, ok := s.fromParentCache(ctx, *cat.ParentID, limit); ok {
			s.Log.Debug().Str("category", slug).Msg("served from parent cache")
			return products, SourceParent, nil
		}
	}

	products, err := s.Repo.ListTopProducts(ctx, s.DB, limit)
	if err != nil {
		return nil, "", err
	}
	s.Log.Debug().Str("category", slug).Msg("served from global fallback")
	return products, SourceGlobal, nil
}

// fromCache resolves a category's cache row into products. The second return
// is false when the row is missing, stale or resolves to no products.
func (s *CatalogService) fromCache(ctx context.Context, categoryID string, limit int) ([]domain.Product, bool) {
	cache, err := s.Repo.ReadCache(ctx, s.DB, categoryID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.Log.Warn().Err(err).Str("category_id", categoryID).Msg("read cache")
		}
		return nil, false
	}
	if cache.Stale(s.Now().UTC()) {
		return nil, false
	}
	products, err := s.Repo.ResolveProducts(ctx, s.DB, cache.CachedASINs)
	if err != nil {
		s.Log.Warn().Err(err).Str("category_id", categoryID).Msg("resolve cached products")
		return nil, false
	}
	if len(products) == 0 {
		return nil, false
	}
	if len(products) > limit {
		products = products[:limit]
	}
	return products, true
}

// fromParentCache resolves a parent category's stored list regardless of
// freshness. The second return is false when the row is missing, empty or
// resolves to no products.
func (s *CatalogService) fromParentCache(ctx context.Context, parentID string, limit int) ([]domain.Product, bool) {
	cache, err := s.Repo.ReadCache(ctx, s.DB, parentID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.Log.Warn().Err(err).Str("category_id", parentID).Msg("read parent cache")
		}
		return nil, false
	}
	if len(cache.CachedASINs) == 0 {
		return nil, false
	}
	products, err := s.Repo.ResolveProducts(ctx, s.DB, cache.CachedASINs)
	if err != nil {
		s.Log.Warn().Err(err).Str("category_id", parentID).Msg("resolve parent cached products")
		return nil, false
	}
	if len(products) == 0 {
		return nil, false
	}
	if len(products) > limit {
		products = products[:limit]
	}
	return products, true
}

// ProductCount reports the length of a category's stored cache list. The
// count describes what the cache holds, not what currently resolves to an
// active product row; a never-refreshed category counts as zero.
func (s *CatalogService) ProductCount(ctx context.Context, slug string) (int64, error) {
	cat, err := s.Repo.GetCategoryBySlug(ctx, s.DB, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrCategoryNotFound
		}
		return 0, err
	}
	cache, err := s.Repo.ReadCache(ctx, s.DB, cat.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return int64(len(cache.CachedASINs)), nil
}

// ProductByASIN returns a single active product.
func (s *CatalogService) ProductByASIN(ctx context.Context, asin string) (*domain.Product, error) {
	p, err := s.Repo.GetProductByASIN(ctx, s.DB, asin)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

// TopProducts returns the globally best active in-stock products.
func (s *CatalogService) TopProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = CacheSize
	}
	return s.Repo.ListTopProducts(ctx, s.DB, limit)
}

// Search performs a paginated title search. It applies defaults for invalid
// page/pageSize and returns the total match count.
func (s *CatalogService) Search(ctx context.Context, query string, page, pageSize int) ([]domain.Product, int64, error) {
	if strings.TrimSpace(query) == "" {
		return nil, 0, ErrEmptyQuery
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountSearchProducts(ctx, s.DB, query)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Product{}, 0, nil
	}
	items, err := s.Repo.SearchProducts(ctx, s.DB, query, offset, pageSize)
	return items, total, err
}
