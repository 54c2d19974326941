package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rsaf-qualification-api/internal/dto"
	"github.com/noah-isme/rsaf-qualification-api/internal/models"
	appErrors "github.com/noah-isme/rsaf-qualification-api/pkg/errors"
	"github.com/noah-isme/rsaf-qualification-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context, actor models.Identity) (*dto.SummaryResponse, error)
}

// DashboardHandler wires the dashboard counters to HTTP.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary godoc
// @Summary Dashboard counters
// @Description Total qualifications, the caller's enrollments, pending work and completed qualifications.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, map[string]interface{}{"role": actor.Role})
}
