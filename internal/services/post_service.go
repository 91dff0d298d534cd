// Package services – PostService
//
// This file implements the editorial content service: creating posts,
// public listings scoped to a category, and slug-addressed reads with
// best-effort view counting. Slugs are derived from titles when absent and
// titles are normalized before storage.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/Adeyeye93/fitvantage/internal/domain"
	"github.com/Adeyeye93/fitvantage/internal/utils"
)

// PostRepo defines the persistence contract required by PostService.
type PostRepo interface {
	CreatePost(ctx context.Context, db *gorm.DB, p *domain.Post) error
	GetPostBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Post, error)
	ListPublishedPosts(ctx context.Context, db *gorm.DB, categoryID string, offset, limit int) ([]domain.Post, error)
	CountPublishedPosts(ctx context.Context, db *gorm.DB, categoryID string) (int64, error)
	IncrementPostViews(ctx context.Context, db *gorm.DB, id string) error
	GetCategoryBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Category, error)
}

// PostService provides editorial content operations.
type PostService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the post repository.
	Repo PostRepo

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
	// titleCaser title-cases fallback titles derived from slugs.
	titleCaser cases.Caser
}

// NewPostService constructs a PostService with sane defaults.
func NewPostService(db *gorm.DB, r PostRepo) *PostService {
	return &PostService{
		DB:          db,
		Repo:        r,
		TitleMaxLen: 300,
		titleCaser:  cases.Title(language.BritishEnglish),
	}
}

// Create inserts a new post. The title is normalized and the slug derived
// from it when blank; a blank title is derived from the slug instead.
func (s *PostService) Create(ctx context.Context, p *domain.Post) (*domain.Post, error) {
	p.Title = normalizeText(p.Title)
	if p.Title == "" && p.Slug != "" {
		p.Title = s.titleCaser.String(strings.ReplaceAll(p.Slug, "-", " "))
	}
	if p.Slug == "" {
		p.Slug = utils.Slugify(p.Title)
	}
	if p.Status == "" {
		p.Status = domain.PostStatusDraft
	}
	if p.Status == domain.PostStatusPublished && p.PublishedAt == nil {
		now := time.Now().UTC()
		p.PublishedAt = &now
	}
	if err := s.Repo.CreatePost(ctx, s.DB, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPage returns a page of published posts, optionally scoped to the
// category addressed by categorySlug. It applies defaults for invalid
// page/pageSize and returns the total count.
func (s *PostService) ListPage(ctx context.Context, categorySlug string, page, pageSize int) ([]domain.Post, int64, error) {
	var categoryID string
	if categorySlug != "" {
		cat, err := s.Repo.GetCategoryBySlug(ctx, s.DB, categorySlug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, ErrCategoryNotFound
			}
			return nil, 0, err
		}
		categoryID = cat.ID
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountPublishedPosts(ctx, s.DB, categoryID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Post{}, 0, nil
	}
	items, err := s.Repo.ListPublishedPosts(ctx, s.DB, categoryID, offset, pageSize)
	return items, total, err
}

// BySlug returns a published post and bumps its view counter. A failed
// counter update is logged by the repo path but never fails the read.
func (s *PostService) BySlug(ctx context.Context, slug string) (*domain.Post, error) {
	p, err := s.Repo.GetPostBySlug(ctx, s.DB, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	_ = s.Repo.IncrementPostViews(ctx, s.DB, p.ID)
	return p, nil
}

// normalizeText trims whitespace and collapses multiple spaces to one.
func normalizeText(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
