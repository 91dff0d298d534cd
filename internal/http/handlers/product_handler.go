// Product HTTP handlers: search, global top list, and single-product lookup.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Adeyeye93/fitvantage/internal/domain"
	"github.com/Adeyeye93/fitvantage/internal/services"
)

// SearchResponse wraps a search result page with pagination metadata.
type SearchResponse struct {
	Products   []domain.Product `json:"products"`
	Pagination Pagination       `json:"pagination"`
}

// SearchProducts godoc
// @ID          searchProducts
// @Summary     Search products
// @Description Case-insensitive title search over active products, paginated.
// @Tags        Products
// @Produce     json
//
// @Param       q          query  string  true  "Search query"       example(kettlebell)
// @Param       page       query  int     false "Page (1-based)"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"     minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.SearchResponse
// @Failure     400  {object} handlers.ErrorResponse "Missing or blank query"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /products/search [get]
func (h *Handlers) SearchProducts(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	page, pageSize := clampPagination(c)

	products, total, err := h.catalogSvc.Search(c.Request.Context(), query, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrEmptyQuery) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query parameter q is required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeSearchFailed, err.Error())
		return
	}
	if products == nil {
		products = []domain.Product{}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, SearchResponse{
		Products: products,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// ListTopProducts godoc
// @ID          listTopProducts
// @Summary     List top products
// @Description Returns the best active in-stock products across all categories.
// @Tags        Products
// @Produce     json
//
// @Param       limit  query  int  false "Maximum results"  minimum(1) maximum(50) default(20)
//
// @Success     200  {array}  domain.Product
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /products/top [get]
func (h *Handlers) ListTopProducts(c *gin.Context) {
	limit := clampLimit(c, 20, 50)
	products, err := h.catalogSvc.TopProducts(c.Request.Context(), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, products)
}

// GetProduct godoc
// @ID          getProduct
// @Summary     Get a product
// @Description Returns a single active product by its ASIN.
// @Tags        Products
// @Produce     json
//
// @Param       asin  path  string  true "Product ASIN"  example(B0ABCDEFGH)
//
// @Success     200  {object} domain.Product
// @Failure     404  {object} handlers.ErrorResponse "Product not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /products/{asin} [get]
func (h *Handlers) GetProduct(c *gin.Context) {
	product, err := h.catalogSvc.ProductByASIN(c.Request.Context(), c.Param("asin"))
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "product not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, product)
}
