package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rsaf-qualification-api/internal/dto"
	"github.com/noah-isme/rsaf-qualification-api/internal/models"
	appErrors "github.com/noah-isme/rsaf-qualification-api/pkg/errors"
	"github.com/noah-isme/rsaf-qualification-api/pkg/response"
)

type catalogService interface {
	Catalog(ctx context.Context, actor models.Identity, filter models.QualificationFilter) ([]dto.CatalogItem, []string, error)
	Qualification(ctx context.Context, id int) (*models.Qualification, error)
}

// CatalogHandler serves the qualification catalog.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(service catalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// List godoc
// @Summary Browse qualifications
// @Description Case-insensitive search over title, code and description, optionally narrowed to one category. Each entry carries the caller's enrollment flag.
// @Tags Qualifications
// @Produce json
// @Param search query string false "Search term"
// @Param category query string false "Aircraft, Maintenance, Operations or Safety"
// @Success 200 {object} response.Envelope
// @Router /qualifications [get]
func (h *CatalogHandler) List(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.QualificationFilter{Search: c.Query("search")}
	if raw := strings.TrimSpace(c.Query("category")); raw != "" {
		category, ok := models.ParseCategory(raw)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown category "+raw))
			return
		}
		filter.Category = category
	}
	items, suggestions, err := h.service.Catalog(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{"total": len(items)}
	if len(suggestions) > 0 {
		meta["suggestions"] = suggestions
	}
	response.JSON(c, http.StatusOK, items, meta)
}

// Get godoc
// @Summary Qualification details
// @Tags Qualifications
// @Produce json
// @Param id path int true "Qualification ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /qualifications/{id} [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "qualification id must be a positive integer"))
		return
	}
	qualification, err := h.service.Qualification(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, qualification)
}
