// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Post model
// (editorial content attached to categories).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Adeyeye93/fitvantage/internal/domain"
)

// CreatePost inserts a new Post row, assigning a UUID primary key when unset.
func CreatePost(ctx context.Context, db *gorm.DB, p *domain.Post) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(p).Error
}

// GetPostBySlug fetches a single PUBLISHED post by its URL slug, with its
// category preloaded, or ErrNotFound when no published post carries that
// slug.
func GetPostBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Post, error) {
	var p domain.Post
	err := db.WithContext(ctx).
		Preload("Category").
		Where("slug = ? AND status = ?", slug, domain.PostStatusPublished).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPublishedPosts returns a paginated slice of PUBLISHED posts ordered by
// publication time descending. When categoryID is non-empty the listing is
// scoped to that category.
func ListPublishedPosts(ctx context.Context, db *gorm.DB, categoryID string, offset, limit int) ([]domain.Post, error) {
	q := publishedScope(db.WithContext(ctx), categoryID)
	var out []domain.Post
	err := q.Order("published_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountPublishedPosts returns the total number of PUBLISHED posts, optionally
// scoped to categoryID, for pagination metadata.
func CountPublishedPosts(ctx context.Context, db *gorm.DB, categoryID string) (int64, error) {
	var total int64
	err := publishedScope(db.WithContext(ctx), categoryID).Count(&total).Error
	return total, err
}

func publishedScope(db *gorm.DB, categoryID string) *gorm.DB {
	q := db.Model(&domain.Post{}).Where("status = ?", domain.PostStatusPublished)
	if categoryID != "" {
		q = q.Where("category_id = ?", categoryID)
	}
	return q
}

// IncrementPostViews bumps the view counter of a post by one. Missing posts
// are ignored; view counting is best effort.
func IncrementPostViews(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}
