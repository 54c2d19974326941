package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rsaf-qualification-api/internal/dto"
	"github.com/noah-isme/rsaf-qualification-api/internal/service"
	appErrors "github.com/noah-isme/rsaf-qualification-api/pkg/errors"
	"github.com/noah-isme/rsaf-qualification-api/pkg/response"
)

// ApprovalHandler exposes the approver side of the enrollment workflow.
type ApprovalHandler struct {
	workflow workflowService
	queries  enrollmentQueries
}

// NewApprovalHandler constructs the handler.
func NewApprovalHandler(workflow workflowService, queries enrollmentQueries) *ApprovalHandler {
	return &ApprovalHandler{workflow: workflow, queries: queries}
}

// Pending godoc
// @Summary Enrollments awaiting the caller's decision
// @Tags Approvals
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /approvals/pending [get]
func (h *ApprovalHandler) Pending(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	rows, err := h.queries.PendingRows(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, map[string]interface{}{"total": len(rows)})
}

// Approve godoc
// @Summary Approve the current stage of an enrollment
// @Tags Approvals
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/{id}/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	cmd, err := service.NewApproveCommand(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	enrollment, err := h.workflow.Approve(c.Request.Context(), actor, cmd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment)
}

// Reject godoc
// @Summary Reject an enrollment
// @Description A non-blank reason is required.
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body dto.RejectRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/{id}/reject [post]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	actor, ok := identityFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rejection payload"))
		return
	}
	cmd, err := service.NewRejectCommand(c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	enrollment, err := h.workflow.Reject(c.Request.Context(), actor, cmd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment)
}
