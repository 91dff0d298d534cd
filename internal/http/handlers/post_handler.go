// Post HTTP handlers: published listings and single-post reads.
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Adeyeye93/fitvantage/internal/domain"
	"github.com/Adeyeye93/fitvantage/internal/repo"
	"github.com/Adeyeye93/fitvantage/internal/services"
)

// PostListResponse wraps a page of published posts.
type PostListResponse struct {
	Posts      []domain.Post `json:"posts"`
	Pagination Pagination    `json:"pagination"`
}

// ListPosts godoc
// @ID          listPosts
// @Summary     List published posts
// @Description Returns published posts newest first, optionally filtered by
// @Description category slug. Supports weak ETag via If-None-Match.
// @Tags        Posts
// @Produce     json
//
// @Param       category   query  string  false "Category slug filter"  example(home-gym)
// @Param       page       query  int     false "Page (1-based)"        minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"        minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.PostListResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     404  {object} handlers.ErrorResponse "Category not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /posts [get]
func (h *Handlers) ListPosts(c *gin.Context) {
	ctx := c.Request.Context()
	categorySlug := c.Query("category")
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort, unfiltered listings only).
	var db *gorm.DB
	if svc, isConcrete := h.postSvc.(*services.PostService); isConcrete {
		db = svc.DB
	}
	if db != nil && categorySlug == "" {
		count, maxTS, err := repo.PostsStats(ctx, db, "")
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"posts:%d:%d:%d:%d"`, count, ts, page, pageSize)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	posts, total, err := h.postSvc.ListPage(ctx, categorySlug, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrCategoryNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "category not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if posts == nil {
		posts = []domain.Post{}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, PostListResponse{
		Posts: posts,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// PostDetailResponse wraps a post with the product block of its category.
// Products carries the category's cached list (with the usual fallback) so an
// article page can render recommendations without a second round trip.
type PostDetailResponse struct {
	Post     domain.Post      `json:"post"`
	Products []domain.Product `json:"products"`
	Source   string           `json:"source,omitempty"`
}

// GetPost godoc
// @ID          getPost
// @Summary     Get a post
// @Description Returns a published post by slug, records the view, and embeds
// @Description the product block of the post's category.
// @Tags        Posts
// @Produce     json
//
// @Param       slug  path  string  true "Post slug"  example(best-kettlebells-2026)
//
// @Success     200  {object} handlers.PostDetailResponse
// @Failure     404  {object} handlers.ErrorResponse "Post not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /posts/{slug} [get]
func (h *Handlers) GetPost(c *gin.Context) {
	ctx := c.Request.Context()

	post, err := h.postSvc.BySlug(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, services.ErrPostNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "post not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	// An inactive or vanished category costs the article its product block,
	// not its body.
	products := []domain.Product{}
	source := ""
	if post.Category.Slug != "" {
		ps, src, err := h.catalogSvc.CategoryProducts(ctx, post.Category.Slug, productBlockSize)
		switch {
		case err == nil:
			if ps != nil {
				products = ps
			}
			source = src
		case errors.Is(err, services.ErrCategoryNotFound):
			// leave the block empty
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
			return
		}
	}

	ok(c, http.StatusOK, PostDetailResponse{Post: *post, Products: products, Source: source})
}
