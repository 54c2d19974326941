package dto

import "github.com/noah-isme/rsaf-qualification-api/internal/models"

// SessionRequest switches the acting role.
type SessionRequest struct {
	Role string `json:"role" validate:"required"`
}

// SessionResponse returns the active identity and a token carrying it.
type SessionResponse struct {
	Identity    models.Identity `json:"identity"`
	AccessToken string          `json:"access_token"`
	ExpiresIn   int64           `json:"expires_in"`
}
