package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rsaf-qualification-api/internal/dto"
	"github.com/noah-isme/rsaf-qualification-api/internal/models"
	"github.com/noah-isme/rsaf-qualification-api/internal/service"
	appErrors "github.com/noah-isme/rsaf-qualification-api/pkg/errors"
	"github.com/noah-isme/rsaf-qualification-api/pkg/response"
)

type workflowService interface {
	Enroll(ctx context.Context, actor models.Identity, cmd service.EnrollCommand) (*models.Enrollment, error)
	Approve(ctx context.Context, actor models.Identity, cmd service.ApproveCommand) (*models.Enrollment, error)
	Reject(ctx context.Context, actor models.Identity, cmd service.RejectCommand) (*models.Enrollment, error)
	Get(ctx context.Context, actor models.Identity, id string) (*models.Enrollment, error)
}

type enrollmentQueries interface {
	MyEnrollmentRows(ctx context.Context, actor models.Identity) ([]dto.EnrollmentRow, error)
	PendingRows(ctx context.Context, actor models.Identity) ([]dto.PendingApprovalRow, error)
	Detail(ctx context.Context, enrollment models.Enrollment) (*dto.EnrollmentDetail, error)
}

// EnrollmentHandler exposes the trainee side of the enrollment workflow.
type EnrollmentHandler struct {
	workflow workflowService
	queries  enrollmentQueries
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(workflow workflowService, queries enrollmentQueries) *EnrollmentHandler {
	return &EnrollmentHandler{workflow: workflow, queries: queries}
}

// Enroll godoc
// @Summary Enroll in a qualification
// @Description The enrollment starts Pending and awaits trainer approval.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.EnrollRequest true "Qualification to enroll in"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid enrollment payload"))
		return
	}
	cmd, err := service.NewEnrollCommand(req.QualificationID)
	if err != nil {
		response.Error(c, err)
		return
	}
	enrollment, err := h.workflow.Enroll(c.Request.Context(), actor, cmd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Mine godoc
// @Summary List the caller's enrollments
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollments/mine [get]
func (h *EnrollmentHandler) Mine(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	rows, err := h.queries.MyEnrollmentRows(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, map[string]interface{}{"total": len(rows)})
}

// Get godoc
// @Summary Enrollment details with approval progress
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	enrollment, err := h.workflow.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.queries.Detail(c.Request.Context(), *enrollment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail)
}
