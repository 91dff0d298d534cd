package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Adeyeye93/fitvantage/internal/config"
	"github.com/Adeyeye93/fitvantage/internal/domain"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// schema so handlers don't explode on list endpoints
	if err := db.AutoMigrate(
		&domain.Category{}, &domain.Product{}, &domain.EligibilityRule{},
		&domain.CategoryCache{}, &domain.Post{},
		&domain.Lead{}, &domain.Provider{}, &domain.TaskRun{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig(basePath string) config.Config {
	return config.Config{
		APIBasePath: basePath,
		RateRPS:     100,
		RateBurst:   10,
		CORS:        config.CORSConfig{},
		Security:    config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
		Catalog:     config.CatalogConfig{BaseURL: "http://localhost:9090/v1", PartnerTag: "fitvantage-21", RPS: 10},
		Refresh:     config.RefreshConfig{TopInterval: 24 * time.Hour, OtherInterval: 7 * 24 * time.Hour, Concurrency: 2},
		Lead:        config.LeadConfig{TTL: 72 * time.Hour, Interval: 5 * time.Minute},
	}
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := testConfig("/api/v1")
	db := newTestDB(t)

	RegisterRoutes(r, NewServices(db, cfg), cfg)

	// /health works
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) -> header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	// /metrics is wired
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || len(w.Body.Bytes()) == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute -> 404
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod -> 405 (POST /health)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := testConfig("/api/v2")
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	db := newTestDB(t)

	RegisterRoutes(r, NewServices(db, cfg), cfg)

	// Any request runs through CORS middleware; header should reflect origin.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func TestRegisterRoutes_CatalogueEndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := testConfig("/api/v1")
	db := newTestDB(t)
	RegisterRoutes(r, NewServices(db, cfg), cfg)

	// Seed a category and a product so public endpoints have data.
	cat := &domain.Category{
		ID: "c1", Name: "Home Gym", Slug: "home-gym",
		Status: domain.CategoryStatusActive,
	}
	if err := db.Create(cat).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	rating := 4.6
	p := &domain.Product{
		ID: "p1", ASIN: "B0TEST0001", Title: "Adjustable Kettlebell",
		URL: "https://www.amazon.co.uk/dp/B0TEST0001", Currency: "GBP",
		Rating: &rating, ReviewCount: 1200, InStock: true,
		Status: domain.ProductStatusActive,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	// GET /api/v1/categories
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /categories = %d body=%s", w.Code, w.Body.String())
	}
	if w.Header().Get("ETag") == "" {
		t.Fatalf("expected ETag on category listing")
	}
	var cats []domain.Category
	if err := json.Unmarshal(w.Body.Bytes(), &cats); err != nil {
		t.Fatalf("decode categories: %v", err)
	}
	if len(cats) != 1 || cats[0].Slug != "home-gym" {
		t.Fatalf("unexpected categories: %+v", cats)
	}

	// Conditional request with the returned ETag -> 304
	etag := w.Header().Get("ETag")
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("conditional GET /categories = %d; want 304", w.Code)
	}

	// GET /api/v1/categories/home-gym
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/categories/home-gym", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /categories/home-gym = %d", w.Code)
	}

	// GET /api/v1/categories/home-gym/products: no cache row yet, so the
	// global fallback serves the seeded product.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/categories/home-gym/products", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET category products = %d body=%s", w.Code, w.Body.String())
	}
	var cp struct {
		Products []domain.Product `json:"products"`
		Source   string           `json:"source"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &cp); err != nil {
		t.Fatalf("decode products: %v", err)
	}
	if cp.Source != "global" || len(cp.Products) != 1 {
		t.Fatalf("products response = %+v", cp)
	}

	// GET /api/v1/categories/home-gym/product-count reports the stored list size.
	cacheRow := &domain.CategoryCache{
		ID:          "cache-c1",
		CategoryID:  "c1",
		CachedASINs: datatypes.NewJSONSlice([]string{"B0TEST0001", "B0TEST9999"}),
	}
	if err := db.Create(cacheRow).Error; err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/categories/home-gym/product-count", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET product-count = %d body=%s", w.Code, w.Body.String())
	}
	var pc struct {
		Slug         string `json:"slug"`
		ProductCount int64  `json:"product_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &pc); err != nil {
		t.Fatalf("decode product-count: %v", err)
	}
	if pc.Slug != "home-gym" || pc.ProductCount != 2 {
		t.Fatalf("product-count response = %+v", pc)
	}

	// GET /api/v1/products/B0TEST0001
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products/B0TEST0001", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET product = %d", w.Code)
	}

	// GET /api/v1/products/search
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products/search?q=kettlebell", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET search = %d body=%s", w.Code, w.Body.String())
	}

	// Missing q -> 400
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products/search", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("GET search without q = %d; want 400", w.Code)
	}

	// POST /api/v1/leads
	body := bytes.NewBufferString(`{"name":"Jane","phone":"+44 7700 900123","service":"personal-training","city":"Leeds"}`)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/leads", body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /leads = %d body=%s", w.Code, w.Body.String())
	}
	var leadResp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &leadResp); err != nil {
		t.Fatalf("decode lead response: %v", err)
	}
	if leadResp.ID == "" || leadResp.Status != domain.LeadStatusNew {
		t.Fatalf("lead response = %+v", leadResp)
	}

	// POST /api/v1/admin/refresh with an unknown tier -> 400
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/refresh", bytes.NewBufferString(`{"tier":"bogus"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("refresh bogus tier = %d; want 400", w.Code)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	root1 := groupWithPrefix(r, "/")
	root1.GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	root2 := groupWithPrefix(r, "")
	root2.GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })

	// non-root prefix
	api := groupWithPrefix(r, "/api")
	api.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/one", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "one" {
		t.Fatalf("GET /one got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/two", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "two" {
		t.Fatalf("GET /two got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Fatalf("GET /api/ping got %d %q", rec.Code, rec.Body.String())
	}
}

// Smoke test that a request traverses the otel + ratelimit + security headers pipeline.
func TestPipeline_Smoke(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := testConfig("/api/v1")
	cfg.Security = config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: time.Hour} // only set on https
	db := newTestDB(t)
	RegisterRoutes(r, NewServices(db, cfg), cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.URL.Scheme = "https"
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("pipeline GET /health = %d", w.Code)
	}
	// RequestID header should be present (from RequestID middleware)
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
}

func Test_catalogRepoShim_Proxies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)

	shim := catalogRepoShim{}
	ctx := context.Background()

	cat := &domain.Category{ID: "c-shim-1", Name: "Fitness Tech", Slug: "fitness-tech", Status: domain.CategoryStatusActive}
	if err := db.Create(cat).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}

	got, err := shim.GetCategoryBySlug(ctx, db, "fitness-tech")
	if err != nil {
		t.Fatalf("GetCategoryBySlug: %v", err)
	}
	if got.Slug != "fitness-tech" {
		t.Fatalf("GetCategoryBySlug mismatch: %+v", got)
	}

	byID, err := shim.GetCategory(ctx, db, got.ID)
	if err != nil || byID.ID != got.ID {
		t.Fatalf("GetCategory: %v %+v", err, byID)
	}

	all, err := shim.ListActiveCategories(ctx, db)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListActiveCategories: %v len=%d", err, len(all))
	}

	kids, err := shim.ListChildCategories(ctx, db, got.ID)
	if err != nil || len(kids) != 0 {
		t.Fatalf("ListChildCategories: %v len=%d", err, len(kids))
	}

	if _, err := shim.ReadCache(ctx, db, got.ID); err == nil {
		t.Fatalf("ReadCache on empty table should error")
	}
}

func Test_leadRepoShim_Proxies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)

	shim := leadRepoShim{}
	ctx := context.Background()

	l := &domain.Lead{Name: "Jane", Phone: "07700900123", Service: "pt", City: "Leeds"}
	if err := shim.CreateLead(ctx, db, l); err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	if l.ID == "" || l.Status != domain.LeadStatusNew {
		t.Fatalf("lead defaults not applied: %+v", l)
	}

	pending, err := shim.ListUnroutedLeads(ctx, db, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("ListUnroutedLeads: %v len=%d", err, len(pending))
	}

	expired, err := shim.ExpireStaleLeads(ctx, db, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("ExpireStaleLeads: %v", err)
	}
	if expired != 1 {
		t.Fatalf("ExpireStaleLeads = %d; want 1", expired)
	}
}

func Test_refreshRepoShim_Proxies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)

	shim := refreshRepoShim{}
	ctx := context.Background()

	run, err := shim.StartTaskRun(ctx, db, "cache_refresh", "top")
	if err != nil {
		t.Fatalf("StartTaskRun: %v", err)
	}
	if run.Status != domain.TaskRunStatusRunning {
		t.Fatalf("run status = %q", run.Status)
	}
	if err := shim.FinishTaskRun(ctx, db, run.ID, domain.TaskRunStatusCompleted, 3, 0, ""); err != nil {
		t.Fatalf("FinishTaskRun: %v", err)
	}

	cache, err := shim.WriteCache(ctx, db, "c-shim", []string{"B01", "B02"}, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("WriteCache: %v", err)
	}
	if !cache.IsFresh || len(cache.CachedASINs) != 2 {
		t.Fatalf("cache row = %+v", cache)
	}

	cat := &domain.Category{ID: "c-shim", Name: "Bands", Slug: "bands", Status: domain.CategoryStatusActive}
	if err := db.Create(cat).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	p := &domain.Product{ID: "p-shim", ASIN: "B01", Title: "Bands", Status: domain.ProductStatusActive}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if err := shim.LinkProductsToCategory(ctx, db, "c-shim", []string{"B01"}); err != nil {
		t.Fatalf("LinkProductsToCategory: %v", err)
	}
	var links int64
	if err := db.Table("product_categories").Where("category_id = ?", "c-shim").Count(&links).Error; err != nil {
		t.Fatalf("count links: %v", err)
	}
	if links != 1 {
		t.Fatalf("expected 1 membership row, got %d", links)
	}
}
