// Package domain defines the persistence models for the affiliate catalog:
// categories, product snapshots, eligibility rules, and the per-category
// product cache. These types are mapped with GORM and form the core data
// layer of the application.
package domain

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Category statuses. Only ACTIVE categories are served or refreshed.
const (
	CategoryStatusActive   = "ACTIVE"
	CategoryStatusInactive = "INACTIVE"
	CategoryStatusDraft    = "DRAFT"
)

// Product statuses. Products are never deleted by the pipeline; they are
// marked DISCONTINUED or OUT_OF_STOCK instead.
const (
	ProductStatusActive       = "ACTIVE"
	ProductStatusInactive     = "INACTIVE"
	ProductStatusDiscontinued = "DISCONTINUED"
	ProductStatusOutOfStock   = "OUT_OF_STOCK"
)

// Category is a node in the two-level affiliate taxonomy. A category may have
// a parent (subcategory) and owns at most one CategoryCache and at most one
// EligibilityRule, both cascade-deleted with the category.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Name / Slug: unique; Slug is the public URL identifier.
//   - ParentID: optional self-reference for subcategories (SET NULL on delete).
//   - AmazonCategoryID: browse-node token passed to the product source.
//   - Status: ACTIVE, INACTIVE, or DRAFT; only ACTIVE is publicly visible.
//   - Featured: featured categories form the "top" refresh tier.
//   - DisplayOrder: operator-controlled listing order.
type Category struct {
	ID               string  `json:"id"                 gorm:"type:char(36);primaryKey"`
	Name             string  `json:"name"               gorm:"type:varchar(200);not null;uniqueIndex"`
	Slug             string  `json:"slug"               gorm:"type:varchar(200);not null;uniqueIndex"`
	Description      string  `json:"description"        gorm:"type:text"`
	ParentID         *string `json:"parent_id,omitempty" gorm:"type:char(36);index:idx_cat_parent_status,priority:1"`
	AmazonCategoryID string  `json:"amazon_category_id" gorm:"type:varchar(50)"`
	Status           string  `json:"status"             gorm:"type:varchar(20);not null;default:'DRAFT';index:idx_cat_parent_status,priority:2;index:idx_cat_status_order,priority:1;check:status IN ('ACTIVE','INACTIVE','DRAFT')"`
	Featured         bool    `json:"featured"           gorm:"not null;default:false"`
	DisplayOrder     int     `json:"display_order"      gorm:"not null;default:0;index:idx_cat_status_order,priority:2"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Parent is the optional parent category. Deleting a parent orphans its
	// children rather than removing them.
	Parent *Category `json:"-" gorm:"foreignKey:ParentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

// TableName returns the database table name for Category.
func (Category) TableName() string { return "categories" }

// Product is a denormalized snapshot of one external product. Rows are
// created and updated whenever the product source is queried; the pipeline
// never deletes them.
//
// Rating and Price are pointers because "unknown" is a meaningful state that
// must not collapse to zero: a product without a rating fails eligibility,
// while a product without a price is never rejected on price grounds.
type Product struct {
	ID          string         `json:"id"            gorm:"type:char(36);primaryKey"`
	ASIN        string         `json:"asin"          gorm:"type:varchar(20);not null;uniqueIndex"`
	Title       string         `json:"title"         gorm:"type:varchar(500);not null"`
	URL         string         `json:"url"           gorm:"type:varchar(500)"`
	Price       *float64       `json:"price,omitempty"`
	Currency    string         `json:"currency"      gorm:"type:char(3);default:'GBP'"`
	Rating      *float64       `json:"rating,omitempty" gorm:"index:idx_prod_rank,priority:1"`
	ReviewCount int            `json:"review_count"  gorm:"not null;default:0;index:idx_prod_rank,priority:2"`
	InStock     bool           `json:"in_stock"      gorm:"not null;default:true;index:idx_prod_status_stock,priority:2"`
	BSRRank     *int           `json:"bsr_rank,omitempty"`
	BSRCategory string         `json:"bsr_category,omitempty" gorm:"type:varchar(100)"`
	ImageURL    string         `json:"image_url"     gorm:"type:varchar(500)"`
	Status      string         `json:"status"        gorm:"type:varchar(20);not null;default:'ACTIVE';index:idx_prod_status_stock,priority:1;check:status IN ('ACTIVE','INACTIVE','DISCONTINUED','OUT_OF_STOCK')"`
	RawData     datatypes.JSON `json:"-"`

	// LastVerified is bumped every time the source returns this product.
	LastVerified time.Time `json:"last_verified"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Categories this product has been observed in. Membership does not imply
	// display: only categories whose cache references the ASIN show it.
	Categories []Category `json:"-" gorm:"many2many:product_categories"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// EligibilityRule holds the per-category thresholds a product must clear to
// enter that category's cache. At most one rule exists per category; when the
// row is missing (or inactive) the pipeline synthesizes documented defaults
// instead of failing. Rules are operator-owned and read-only to the pipeline.
type EligibilityRule struct {
	ID               string   `json:"id"          gorm:"type:char(36);primaryKey"`
	CategoryID       string   `json:"category_id" gorm:"type:char(36);not null;uniqueIndex"`
	MinRating        float64  `json:"min_rating"          gorm:"not null;default:4.0"`
	MinReviewCount   int      `json:"min_review_count"    gorm:"not null;default:200"`
	MaxBSRPercentile int      `json:"max_bsr_percentile"  gorm:"not null;default:10"`
	InStockOnly      bool     `json:"in_stock_only"       gorm:"not null;default:true"`
	UKMarketplace    bool     `json:"uk_marketplace_only" gorm:"not null;default:true"`
	MinPrice         *float64 `json:"min_price,omitempty"`
	MaxPrice         *float64 `json:"max_price,omitempty"`
	Active           bool     `json:"active"              gorm:"not null;default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Category owning this rule; the rule dies with the category.
	Category Category `json:"-" gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for EligibilityRule.
func (EligibilityRule) TableName() string { return "eligibility_rules" }

// CategoryCache is the per-category ordered list of displayable ASINs with
// freshness metadata. It is the only object page-rendering paths read; the
// refresh pipeline is its only writer.
//
// The order of CachedASINs is the authoritative display order and must be
// preserved verbatim when ASINs are resolved back to Product rows.
type CategoryCache struct {
	ID          string                      `json:"id"           gorm:"type:char(36);primaryKey"`
	CategoryID  string                      `json:"category_id"  gorm:"type:char(36);not null;uniqueIndex"`
	CachedASINs datatypes.JSONSlice[string] `json:"cached_asins"`
	IsFresh     bool                        `json:"is_fresh"     gorm:"not null;default:false"`
	LastUpdated time.Time                   `json:"last_updated"`
	NextRefresh *time.Time                  `json:"next_refresh,omitempty"`
	ErrorCount  int                         `json:"error_count"  gorm:"not null;default:0"`
	LastError   string                      `json:"last_error"   gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Category owning this cache; the cache dies with the category.
	Category Category `json:"-" gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for CategoryCache.
func (CategoryCache) TableName() string { return "category_caches" }

// Stale reports whether this cache must not be trusted for primary display:
// never refreshed successfully, explicitly marked unfresh, empty, or past its
// scheduled refresh time. Staleness is a read-side condition; callers decide
// whether to fall back.
func (c *CategoryCache) Stale(now time.Time) bool {
	if !c.IsFresh || len(c.CachedASINs) == 0 {
		return true
	}
	if c.NextRefresh != nil && now.After(*c.NextRefresh) {
		return true
	}
	return false
}

// Post statuses.
const (
	PostStatusDraft     = "DRAFT"
	PostStatusPublished = "PUBLISHED"
	PostStatusArchived  = "ARCHIVED"
)

// Post is a blog/guide article tied to a category. Detail pages embed the
// category's cached product block; the post itself carries no product data.
type Post struct {
	ID          string     `json:"id"       gorm:"type:char(36);primaryKey"`
	Title       string     `json:"title"    gorm:"type:varchar(300);not null"`
	Slug        string     `json:"slug"     gorm:"type:varchar(300);not null;uniqueIndex"`
	Excerpt     string     `json:"excerpt"  gorm:"type:varchar(500)"`
	Content     string     `json:"content"  gorm:"type:text;not null"`
	CategoryID  string     `json:"category_id" gorm:"type:char(36);not null;index:idx_post_cat_status,priority:1"`
	Author      string     `json:"author"   gorm:"type:varchar(200)"`
	Status      string     `json:"status"   gorm:"type:varchar(20);not null;default:'DRAFT';index:idx_post_cat_status,priority:2;check:status IN ('DRAFT','PUBLISHED','ARCHIVED')"`
	PublishedAt *time.Time `json:"published_at,omitempty" gorm:"index"`
	ViewCount   int        `json:"view_count" gorm:"not null;default:0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Category this post belongs to. Posts are cascade-deleted with it.
	Category Category `json:"-" gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string { return "posts" }
