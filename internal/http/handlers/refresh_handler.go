// Admin refresh handlers. These trigger the product-cache refresh pipeline
// for a whole tier or a single category.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Adeyeye93/fitvantage/internal/services"
)

// RefreshRequest selects what to refresh. Exactly one of Tier or Slug should
// be set; Tier wins when both are present.
type RefreshRequest struct {
	Tier string `json:"tier" example:"top"`
	Slug string `json:"slug" example:"home-gym"`
}

// RefreshResponse reports the outcome of a tier sweep.
type RefreshResponse struct {
	Tier      string `json:"tier,omitempty"`
	Slug      string `json:"slug,omitempty"`
	Refreshed int    `json:"refreshed"`
	Errored   int    `json:"errored"`
}

// TriggerRefresh godoc
// @ID          triggerRefresh
// @Summary     Trigger a cache refresh
// @Description Runs the refresh pipeline synchronously for a tier ("top" or
// @Description "other") or for a single category slug. Only one sweep per tier
// @Description may run at a time.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       payload  body  handlers.RefreshRequest  true "Refresh target"
//
// @Success     200  {object} handlers.RefreshResponse
// @Failure     400  {object} handlers.ErrorResponse "Unknown tier or missing target"
// @Failure     404  {object} handlers.ErrorResponse "Category not found"
// @Failure     409  {object} handlers.ErrorResponse "Refresh already running"
// @Failure     500  {object} handlers.ErrorResponse "Refresh failed"
// @Router      /admin/refresh [post]
func (h *Handlers) TriggerRefresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	// Query params as a convenience for curl-driven ops.
	if req.Tier == "" {
		req.Tier = c.Query("tier")
	}
	if req.Slug == "" {
		req.Slug = c.Query("slug")
	}

	ctx := c.Request.Context()

	switch {
	case req.Tier != "":
		summary, err := h.refreshSvc.RefreshTier(ctx, req.Tier)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrUnknownTier):
				fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown tier")
			case errors.Is(err, services.ErrRefreshRunning):
				fail(c, http.StatusConflict, ErrCodeRefreshRunning, "refresh already running for tier")
			default:
				fail(c, http.StatusInternalServerError, ErrCodeRefreshFailed, err.Error())
			}
			return
		}
		ok(c, http.StatusOK, RefreshResponse{
			Tier:      summary.Tier,
			Refreshed: summary.Refreshed,
			Errored:   summary.Errored,
		})
	case req.Slug != "":
		if err := h.refreshSvc.RefreshCategory(ctx, req.Slug); err != nil {
			if errors.Is(err, services.ErrCategoryNotFound) {
				fail(c, http.StatusNotFound, ErrCodeNotFound, "category not found")
				return
			}
			fail(c, http.StatusInternalServerError, ErrCodeRefreshFailed, err.Error())
			return
		}
		ok(c, http.StatusOK, RefreshResponse{Slug: req.Slug, Refreshed: 1})
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "tier or slug is required")
	}
}
