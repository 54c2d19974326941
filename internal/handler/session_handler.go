package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rsaf-qualification-api/internal/dto"
	appErrors "github.com/noah-isme/rsaf-qualification-api/pkg/errors"
	"github.com/noah-isme/rsaf-qualification-api/pkg/response"
)

type sessionService interface {
	Current(ctx context.Context) (*dto.SessionResponse, error)
	Switch(ctx context.Context, req dto.SessionRequest) (*dto.SessionResponse, error)
	Logout(ctx context.Context) error
}

// SessionHandler exposes role selection endpoints.
type SessionHandler struct {
	service sessionService
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(service sessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

// Current godoc
// @Summary Resolve the persisted role selection
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /session [get]
func (h *SessionHandler) Current(c *gin.Context) {
	session, err := h.service.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// Switch godoc
// @Summary Switch the acting role
// @Tags Session
// @Accept json
// @Produce json
// @Param payload body dto.SessionRequest true "Role to act as"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /session [post]
func (h *SessionHandler) Switch(c *gin.Context) {
	var req dto.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid session payload"))
		return
	}
	session, err := h.service.Switch(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// Logout godoc
// @Summary Clear the persisted role selection
// @Tags Session
// @Success 204
// @Router /session [delete]
func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
