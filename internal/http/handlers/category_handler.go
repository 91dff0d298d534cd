// Category HTTP handlers.
//
// This file exposes REST endpoints for category resources:
//   - GET /categories                      (list, ETag support)
//   - GET /categories/featured             (featured listing)
//   - GET /categories/{slug}               (detail with children and recent posts)
//   - GET /categories/{slug}/products      (cached products with fallback)
//   - GET /categories/{slug}/product-count (length of the stored cache list)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Adeyeye93/fitvantage/internal/domain"
	"github.com/Adeyeye93/fitvantage/internal/repo"
	"github.com/Adeyeye93/fitvantage/internal/services"
	"github.com/Adeyeye93/fitvantage/internal/utils"
)

//
// Service contracts (context-aware)
//

// CatalogService defines catalogue read operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type CatalogService interface {
	// Categories returns all publicly visible categories.
	Categories(ctx context.Context) ([]domain.Category, error)
	// FeaturedCategories returns featured categories for the home page.
	FeaturedCategories(ctx context.Context, limit int) ([]domain.Category, error)
	// CategoryBySlug fetches a category and its direct children.
	CategoryBySlug(ctx context.Context, slug string) (*domain.Category, []domain.Category, error)
	// CategoryProducts returns cached products for a category with fallback.
	CategoryProducts(ctx context.Context, slug string, limit int) ([]domain.Product, string, error)
	// ProductCount returns the active product count of a category.
	ProductCount(ctx context.Context, slug string) (int64, error)
	// ProductByASIN returns a single active product.
	ProductByASIN(ctx context.Context, asin string) (*domain.Product, error)
	// TopProducts returns the globally best active in-stock products.
	TopProducts(ctx context.Context, limit int) ([]domain.Product, error)
	// Search performs a paginated title search.
	Search(ctx context.Context, query string, page, pageSize int) ([]domain.Product, int64, error)
}

// PostService defines editorial content operations consumed by HTTP handlers.
type PostService interface {
	// ListPage returns a page of published posts, optionally by category.
	ListPage(ctx context.Context, categorySlug string, page, pageSize int) ([]domain.Post, int64, error)
	// BySlug returns a published post and counts the view.
	BySlug(ctx context.Context, slug string) (*domain.Post, error)
}

// LeadService defines lead capture operations consumed by HTTP handlers.
type LeadService interface {
	// Capture validates and stores an incoming lead.
	Capture(ctx context.Context, l *domain.Lead) (*domain.Lead, error)
}

// RefreshService defines the admin refresh operations.
type RefreshService interface {
	// RefreshTier runs a full sweep for the named tier.
	RefreshTier(ctx context.Context, tier string) (*services.RefreshSummary, error)
	// RefreshCategory refreshes a single category by slug.
	RefreshCategory(ctx context.Context, slug string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for categories, products, posts, leads and
// admin refresh. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	catalogSvc CatalogService
	postSvc    PostService
	leadSvc    LeadService
	refreshSvc RefreshService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(catalogSvc CatalogService, postSvc PostService, leadSvc LeadService, refreshSvc RefreshService) *Handlers {
	return &Handlers{catalogSvc: catalogSvc, postSvc: postSvc, leadSvc: leadSvc, refreshSvc: refreshSvc}
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// CategoryDetailResponse wraps a category with its direct children and its
// most recent published posts.
type CategoryDetailResponse struct {
	Category domain.Category   `json:"category"`
	Children []domain.Category `json:"children"`
	Posts    []domain.Post     `json:"posts"`
}

// CategoryProductCountResponse reports how many ASINs a category's cache
// currently stores.
type CategoryProductCountResponse struct {
	Slug         string `json:"slug"`
	ProductCount int64  `json:"product_count"`
}

// CategoryProductsResponse wraps a category's product list and the source
// that served it (cache, parent, or global).
type CategoryProductsResponse struct {
	Products []domain.Product `json:"products"`
	Source   string           `json:"source"`
	Count    int              `json:"count"`
}

//
// Helpers
//

// recentPostCount bounds the post block embedded in the category detail, and
// productBlockSize the product block embedded in the post detail.
const (
	recentPostCount  = 6
	productBlockSize = 6
)

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// clampLimit parses and bounds the limit query param.
func clampLimit(c *gin.Context, def, max int) int {
	return utils.ClampInt(utils.AtoiDefault(c.Query("limit"), def), 1, max)
}

//
// Handlers
//

// ListCategories godoc
// @ID          listCategories
// @Summary     List categories
// @Description Returns all active categories. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Categories
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
//
// @Success     200  {array}  domain.Category
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /categories [get]
func (h *Handlers) ListCategories(c *gin.Context) {
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, isConcrete := h.catalogSvc.(*services.CatalogService); isConcrete {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.CategoriesStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"categories:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	cats, err := h.catalogSvc.Categories(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, cats)
}

// ListFeaturedCategories godoc
// @ID          listFeaturedCategories
// @Summary     List featured categories
// @Description Returns active featured categories ordered by display order.
// @Tags        Categories
// @Produce     json
//
// @Param       limit  query  int  false "Maximum results"  minimum(1) maximum(50) default(20)
//
// @Success     200  {array}  domain.Category
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /categories/featured [get]
func (h *Handlers) ListFeaturedCategories(c *gin.Context) {
	limit := clampLimit(c, 20, 50)
	cats, err := h.catalogSvc.FeaturedCategories(c.Request.Context(), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, cats)
}

// GetCategory godoc
// @ID          getCategory
// @Summary     Get a category
// @Description Returns a category by slug, with its direct children and its
// @Description most recent published posts.
// @Tags        Categories
// @Produce     json
//
// @Param       slug  path  string  true "Category slug"  example(home-gym)
//
// @Success     200  {object} handlers.CategoryDetailResponse
// @Failure     404  {object} handlers.ErrorResponse "Category not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /categories/{slug} [get]
func (h *Handlers) GetCategory(c *gin.Context) {
	ctx := c.Request.Context()
	slug := c.Param("slug")

	cat, children, err := h.catalogSvc.CategoryBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, services.ErrCategoryNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "category not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if children == nil {
		children = []domain.Category{}
	}

	posts, _, err := h.postSvc.ListPage(ctx, slug, 1, recentPostCount)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if posts == nil {
		posts = []domain.Post{}
	}

	ok(c, http.StatusOK, CategoryDetailResponse{Category: *cat, Children: children, Posts: posts})
}

// GetCategoryProductCount godoc
// @ID          getCategoryProductCount
// @Summary     Count a category's cached products
// @Description Returns the length of the category's stored cache list. The count
// @Description reflects what the cache holds, not what currently resolves.
// @Tags        Categories
// @Produce     json
//
// @Param       slug  path  string  true "Category slug"  example(home-gym)
//
// @Success     200  {object} handlers.CategoryProductCountResponse
// @Failure     404  {object} handlers.ErrorResponse "Category not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /categories/{slug}/product-count [get]
func (h *Handlers) GetCategoryProductCount(c *gin.Context) {
	slug := c.Param("slug")
	count, err := h.catalogSvc.ProductCount(c.Request.Context(), slug)
	if err != nil {
		if errors.Is(err, services.ErrCategoryNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "category not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, CategoryProductCountResponse{Slug: slug, ProductCount: count})
}

// GetCategoryProducts godoc
// @ID          getCategoryProducts
// @Summary     Get a category's products
// @Description Returns the cached product list for a category. When the cache is
// @Description unusable the response is served from the parent category's cache or
// @Description the global best-sellers; the `source` field reports which.
// @Tags        Categories
// @Produce     json
//
// @Param       slug   path   string  true  "Category slug"   example(home-gym)
// @Param       limit  query  int     false "Maximum results" minimum(1) maximum(50) default(20)
//
// @Success     200  {object} handlers.CategoryProductsResponse
// @Failure     404  {object} handlers.ErrorResponse "Category not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /categories/{slug}/products [get]
func (h *Handlers) GetCategoryProducts(c *gin.Context) {
	limit := clampLimit(c, 20, 50)
	products, source, err := h.catalogSvc.CategoryProducts(c.Request.Context(), c.Param("slug"), limit)
	if err != nil {
		if errors.Is(err, services.ErrCategoryNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "category not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	ok(c, http.StatusOK, CategoryProductsResponse{
		Products: products,
		Source:   source,
		Count:    len(products),
	})
}
