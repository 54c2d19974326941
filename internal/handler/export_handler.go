package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rsaf-qualification-api/internal/models"
	"github.com/noah-isme/rsaf-qualification-api/internal/service"
	appErrors "github.com/noah-isme/rsaf-qualification-api/pkg/errors"
	"github.com/noah-isme/rsaf-qualification-api/pkg/response"
)

type exportService interface {
	MyEnrollments(ctx context.Context, actor models.Identity, format service.ExportFormat) (*service.ExportFile, error)
	PendingApprovals(ctx context.Context, actor models.Identity, format service.ExportFormat) (*service.ExportFile, error)
}

// ExportHandler streams enrollment tables as downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Mine godoc
// @Summary Export the caller's enrollments
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /enrollments/mine/export [get]
func (h *ExportHandler) Mine(c *gin.Context) {
	h.serve(c, h.service.MyEnrollments)
}

// Pending godoc
// @Summary Export the caller's pending approvals
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /approvals/pending/export [get]
func (h *ExportHandler) Pending(c *gin.Context) {
	h.serve(c, h.service.PendingApprovals)
}

func (h *ExportHandler) serve(c *gin.Context, render func(context.Context, models.Identity, service.ExportFormat) (*service.ExportFile, error)) {
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := render(c.Request.Context(), actor, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
