// Lead HTTP handlers: public lead capture.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Adeyeye93/fitvantage/internal/domain"
	"github.com/Adeyeye93/fitvantage/internal/services"
)

// CreateLeadRequest is the payload for submitting a new lead.
type CreateLeadRequest struct {
	Name    string `json:"name" binding:"required" example:"Jane Smith"`
	Phone   string `json:"phone" binding:"required" example:"+44 7700 900123"`
	Email   string `json:"email" example:"jane@example.com"`
	Service string `json:"service" binding:"required" example:"personal-training"`
	City    string `json:"city" binding:"required" example:"Manchester"`
	Notes   string `json:"notes" example:"Looking for twice-weekly sessions"`
}

// CreateLeadResponse acknowledges a captured lead without echoing contact
// details back to the caller.
type CreateLeadResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreateLead godoc
// @ID          createLead
// @Summary     Submit a lead
// @Description Captures a service enquiry for routing to a provider.
// @Tags        Leads
// @Accept      json
// @Produce     json
//
// @Param       payload  body  handlers.CreateLeadRequest  true "Lead details"
//
// @Success     201  {object} handlers.CreateLeadResponse
// @Failure     400  {object} handlers.ErrorResponse "Validation error"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /leads [post]
func (h *Handlers) CreateLead(c *gin.Context) {
	var req CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	lead, err := h.leadSvc.Capture(c.Request.Context(), &domain.Lead{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Service: req.Service,
		City:    req.City,
		Notes:   req.Notes,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidLead) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, CreateLeadResponse{ID: lead.ID, Status: lead.Status})
}
