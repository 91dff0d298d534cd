package repo

import (
	"context"
	"testing"
	"time"

	"github.com/Adeyeye93/fitvantage/internal/domain"
)

func TestCategoriesStats_EmptyAndPopulated(t *testing.T) {
	db := newCategoryRepoDB(t, &domain.Category{})
	ctx := context.Background()

	count, maxUpd, err := CategoriesStats(ctx, db)
	if err != nil {
		t.Fatalf("CategoriesStats empty: %v", err)
	}
	if count != 0 || maxUpd != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxUpd)
	}

	older := time.Now().UTC().Add(-time.Hour)
	newer := time.Now().UTC()
	rows := []domain.Category{
		{ID: "c1", Name: "Yoga", Slug: "yoga", Status: domain.CategoryStatusActive, UpdatedAt: older},
		{ID: "c2", Name: "Cardio", Slug: "cardio", Status: domain.CategoryStatusActive, UpdatedAt: newer},
		{ID: "c3", Name: "Hidden", Slug: "hidden", Status: domain.CategoryStatusDraft, UpdatedAt: newer},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed category %s: %v", rows[i].ID, err)
		}
	}

	count, maxUpd, err = CategoriesStats(ctx, db)
	if err != nil {
		t.Fatalf("CategoriesStats: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2 (draft excluded)", count)
	}
	if maxUpd == nil {
		t.Fatalf("expected non-nil maxUpdatedAt")
	}
	if maxUpd.Before(older) {
		t.Fatalf("maxUpdatedAt %v predates oldest active row %v", maxUpd, older)
	}
}

func TestPostsStats_ScopedByCategory(t *testing.T) {
	db := newPostRepoDB(t, &domain.Post{})
	ctx := context.Background()

	rows := []domain.Post{
		{ID: "p1", Title: "Best Kettlebells", Slug: "best-kettlebells", Content: "guide", CategoryID: "cat-a", Status: domain.PostStatusPublished},
		{ID: "p2", Title: "Yoga Mats Guide", Slug: "yoga-mats-guide", Content: "guide", CategoryID: "cat-b", Status: domain.PostStatusPublished},
		{ID: "p3", Title: "Unfinished", Slug: "unfinished", Content: "wip", CategoryID: "cat-a", Status: domain.PostStatusDraft},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed post %s: %v", rows[i].ID, err)
		}
	}

	count, maxUpd, err := PostsStats(ctx, db, "")
	if err != nil {
		t.Fatalf("PostsStats all: %v", err)
	}
	if count != 2 || maxUpd == nil {
		t.Fatalf("all published: got (%d, %v), want (2, non-nil)", count, maxUpd)
	}

	count, _, err = PostsStats(ctx, db, "cat-a")
	if err != nil {
		t.Fatalf("PostsStats cat-a: %v", err)
	}
	if count != 1 {
		t.Fatalf("cat-a published = %d, want 1 (draft excluded)", count)
	}

	count, maxUpd, err = PostsStats(ctx, db, "cat-none")
	if err != nil {
		t.Fatalf("PostsStats cat-none: %v", err)
	}
	if count != 0 || maxUpd != nil {
		t.Fatalf("unknown category: got (%d, %v), want (0, nil)", count, maxUpd)
	}
}
