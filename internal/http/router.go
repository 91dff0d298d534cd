// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/Adeyeye93/fitvantage/internal/amazon"
	"github.com/Adeyeye93/fitvantage/internal/config"
	"github.com/Adeyeye93/fitvantage/internal/domain"
	"github.com/Adeyeye93/fitvantage/internal/http/handlers"
	"github.com/Adeyeye93/fitvantage/internal/http/middleware"
	"github.com/Adeyeye93/fitvantage/internal/repo"
	"github.com/Adeyeye93/fitvantage/internal/services"
)

// catalogRepoShim adapts the repository free functions to the
// services.CatalogRepo interface expected by the CatalogService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type catalogRepoShim struct{}

func (catalogRepoShim) GetCategory(ctx context.Context, db *gorm.DB, id string) (*domain.Category, error) {
	return repo.GetCategory(ctx, db, id)
}

func (catalogRepoShim) GetCategoryBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Category, error) {
	return repo.GetCategoryBySlug(ctx, db, slug)
}

func (catalogRepoShim) ListActiveCategories(ctx context.Context, db *gorm.DB) ([]domain.Category, error) {
	return repo.ListActiveCategories(ctx, db)
}

func (catalogRepoShim) ListFeaturedCategories(ctx context.Context, db *gorm.DB, limit int) ([]domain.Category, error) {
	return repo.ListFeaturedCategories(ctx, db, limit)
}

func (catalogRepoShim) ListChildCategories(ctx context.Context, db *gorm.DB, parentID string) ([]domain.Category, error) {
	return repo.ListChildCategories(ctx, db, parentID)
}

func (catalogRepoShim) ReadCache(ctx context.Context, db *gorm.DB, categoryID string) (*domain.CategoryCache, error) {
	return repo.ReadCache(ctx, db, categoryID)
}

func (catalogRepoShim) ResolveProducts(ctx context.Context, db *gorm.DB, asins []string) ([]domain.Product, error) {
	return repo.ResolveProducts(ctx, db, asins)
}

func (catalogRepoShim) ListTopProducts(ctx context.Context, db *gorm.DB, limit int) ([]domain.Product, error) {
	return repo.ListTopProducts(ctx, db, limit)
}

func (catalogRepoShim) SearchProducts(ctx context.Context, db *gorm.DB, query string, offset, limit int) ([]domain.Product, error) {
	return repo.SearchProducts(ctx, db, query, offset, limit)
}

func (catalogRepoShim) CountSearchProducts(ctx context.Context, db *gorm.DB, query string) (int64, error) {
	return repo.CountSearchProducts(ctx, db, query)
}

func (catalogRepoShim) GetProductByASIN(ctx context.Context, db *gorm.DB, asin string) (*domain.Product, error) {
	return repo.GetProductByASIN(ctx, db, asin)
}


// refreshRepoShim adapts the repository free functions to services.RefreshRepo.
type refreshRepoShim struct{}

func (refreshRepoShim) ListActiveCategories(ctx context.Context, db *gorm.DB) ([]domain.Category, error) {
	return repo.ListActiveCategories(ctx, db)
}

func (refreshRepoShim) ListFeaturedCategories(ctx context.Context, db *gorm.DB, limit int) ([]domain.Category, error) {
	return repo.ListFeaturedCategories(ctx, db, limit)
}

func (refreshRepoShim) GetCategoryBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Category, error) {
	return repo.GetCategoryBySlug(ctx, db, slug)
}

func (refreshRepoShim) GetRuleByCategory(ctx context.Context, db *gorm.DB, categoryID string) (*domain.EligibilityRule, error) {
	return repo.GetRuleByCategory(ctx, db, categoryID)
}

func (refreshRepoShim) UpsertProduct(ctx context.Context, db *gorm.DB, p *domain.Product) error {
	return repo.UpsertProduct(ctx, db, p)
}

func (refreshRepoShim) LinkProductsToCategory(ctx context.Context, db *gorm.DB, categoryID string, asins []string) error {
	return repo.LinkProductsToCategory(ctx, db, categoryID, asins)
}

func (refreshRepoShim) WriteCache(ctx context.Context, db *gorm.DB, categoryID string, asins []string, next time.Time) (*domain.CategoryCache, error) {
	return repo.WriteCache(ctx, db, categoryID, asins, next)
}

func (refreshRepoShim) RecordCacheError(ctx context.Context, db *gorm.DB, categoryID, cause string) error {
	return repo.RecordCacheError(ctx, db, categoryID, cause)
}

func (refreshRepoShim) StartTaskRun(ctx context.Context, db *gorm.DB, taskName, tier string) (*domain.TaskRun, error) {
	return repo.StartTaskRun(ctx, db, taskName, tier)
}

func (refreshRepoShim) FinishTaskRun(ctx context.Context, db *gorm.DB, id, status string, refreshed, errored int, cause string) error {
	return repo.FinishTaskRun(ctx, db, id, status, refreshed, errored, cause)
}

// postRepoShim adapts the repository free functions to services.PostRepo.
type postRepoShim struct{}

func (postRepoShim) CreatePost(ctx context.Context, db *gorm.DB, p *domain.Post) error {
	return repo.CreatePost(ctx, db, p)
}

func (postRepoShim) GetPostBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Post, error) {
	return repo.GetPostBySlug(ctx, db, slug)
}

func (postRepoShim) ListPublishedPosts(ctx context.Context, db *gorm.DB, categoryID string, offset, limit int) ([]domain.Post, error) {
	return repo.ListPublishedPosts(ctx, db, categoryID, offset, limit)
}

func (postRepoShim) CountPublishedPosts(ctx context.Context, db *gorm.DB, categoryID string) (int64, error) {
	return repo.CountPublishedPosts(ctx, db, categoryID)
}

func (postRepoShim) IncrementPostViews(ctx context.Context, db *gorm.DB, id string) error {
	return repo.IncrementPostViews(ctx, db, id)
}

func (postRepoShim) GetCategoryBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Category, error) {
	return repo.GetCategoryBySlug(ctx, db, slug)
}

// leadRepoShim adapts the repository free functions to services.LeadRepo.
type leadRepoShim struct{}

func (leadRepoShim) CreateLead(ctx context.Context, db *gorm.DB, l *domain.Lead) error {
	return repo.CreateLead(ctx, db, l)
}

func (leadRepoShim) ListUnroutedLeads(ctx context.Context, db *gorm.DB, limit int) ([]domain.Lead, error) {
	return repo.ListUnroutedLeads(ctx, db, limit)
}

func (leadRepoShim) AssignLead(ctx context.Context, db *gorm.DB, leadID, providerID string) error {
	return repo.AssignLead(ctx, db, leadID, providerID)
}

func (leadRepoShim) ExpireStaleLeads(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	return repo.ExpireStaleLeads(ctx, db, cutoff)
}

func (leadRepoShim) ListBillableLeads(ctx context.Context, db *gorm.DB, limit int) ([]domain.Lead, error) {
	return repo.ListBillableLeads(ctx, db, limit)
}

func (leadRepoShim) MarkLeadBilled(ctx context.Context, db *gorm.DB, leadID string, amount float64) error {
	return repo.MarkLeadBilled(ctx, db, leadID, amount)
}

func (leadRepoShim) ListActiveProviders(ctx context.Context, db *gorm.DB) ([]domain.Provider, error) {
	return repo.ListActiveProviders(ctx, db)
}

func (leadRepoShim) GetProvider(ctx context.Context, db *gorm.DB, id string) (*domain.Provider, error) {
	return repo.GetProvider(ctx, db, id)
}

// Services bundles the application services the router depends on. Callers
// that need the services outside HTTP (background workers) build them once
// via NewServices and share the instances.
type Services struct {
	Catalog *services.CatalogService
	Post    *services.PostService
	Lead    *services.LeadService
	Refresh *services.RefreshService
}

// NewServices performs dependency injection: repo shims and the upstream
// catalogue client are bound into service instances configured from cfg.
func NewServices(db *gorm.DB, cfg config.Config) *Services {
	source := amazon.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.PartnerTag, cfg.Catalog.RPS,
		log.With().Str("component", "amazon").Logger())

	refreshSvc := services.NewRefreshService(db, refreshRepoShim{}, source,
		log.With().Str("component", "refresh").Logger())
	refreshSvc.TopInterval = cfg.Refresh.TopInterval
	refreshSvc.OtherInterval = cfg.Refresh.OtherInterval
	refreshSvc.Concurrency = cfg.Refresh.Concurrency

	leadSvc := services.NewLeadService(db, leadRepoShim{},
		log.With().Str("component", "leads").Logger())
	leadSvc.LeadTTL = cfg.Lead.TTL
	leadSvc.Dispatch = services.LogDispatcher{
		Log: log.With().Str("component", "lead-dispatch").Logger(),
	}

	return &Services{
		Catalog: services.NewCatalogService(db, catalogRepoShim{},
			log.With().Str("component", "catalog").Logger()),
		Post:    services.NewPostService(db, postRepoShim{}),
		Lead:    leadSvc,
		Refresh: refreshSvc,
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting,
// CORS and security headers, health and metrics endpoints, and then mounts
// the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per client IP)
//  8. CORS and Security headers
func RegisterRoutes(r *gin.Engine, svcs *Services, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with PII scrubbing
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per client IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	h := handlers.New(svcs.Catalog, svcs.Post, svcs.Lead, svcs.Refresh)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Categories
		api.GET("/categories", h.ListCategories)
		api.GET("/categories/featured", h.ListFeaturedCategories)
		api.GET("/categories/:slug", h.GetCategory)
		api.GET("/categories/:slug/products", h.GetCategoryProducts)
		api.GET("/categories/:slug/product-count", h.GetCategoryProductCount)

		// Products
		api.GET("/products/search", h.SearchProducts)
		api.GET("/products/top", h.ListTopProducts)
		api.GET("/products/:asin", h.GetProduct)

		// Posts
		api.GET("/posts", h.ListPosts)
		api.GET("/posts/:slug", h.GetPost)

		// Leads
		api.POST("/leads", h.CreateLead)

		// Admin
		api.POST("/admin/refresh", h.TriggerRefresh)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
