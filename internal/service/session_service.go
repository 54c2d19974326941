package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/rsaf-qualification-api/internal/dto"
	"github.com/noah-isme/rsaf-qualification-api/internal/models"
	appErrors "github.com/noah-isme/rsaf-qualification-api/pkg/errors"
)

type roleSelectionStore interface {
	Get(ctx context.Context) (models.Role, error)
	Set(ctx context.Context, role models.Role) error
	Delete(ctx context.Context) error
}

// SessionConfig configures session tokens.
type SessionConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// SessionService resolves the acting identity and issues tokens carrying it.
type SessionService struct {
	roles     roleSelectionStore
	directory models.Directory
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SessionConfig
	now       func() time.Time
}

// NewSessionService constructs SessionService. A nil directory falls back to the demo users.
func NewSessionService(roles roleSelectionStore, directory models.Directory, cfg SessionConfig, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if directory == nil {
		directory = models.DefaultDirectory()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	return &SessionService{roles: roles, directory: directory, validator: validate, logger: logger, cfg: cfg, now: time.Now}
}

// Current returns the identity for the persisted role selection.
func (s *SessionService) Current(ctx context.Context) (*dto.SessionResponse, error) {
	role, err := s.roles.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role selection")
	}
	identity, ok := s.directory[role]
	if !ok {
		identity = s.directory[models.RoleTrainee]
	}
	return s.issue(identity)
}

// Switch persists a new role selection and returns its identity.
func (s *SessionService) Switch(ctx context.Context, req dto.SessionRequest) (*dto.SessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "role is required")
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown role %q", req.Role))
	}
	identity, ok := s.directory[role]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("no user acts as %s", role))
	}
	if err := s.roles.Set(ctx, role); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save role selection")
	}
	s.logger.Info("role switched", zap.String("role", string(role)), zap.String("name", identity.Name))
	return s.issue(identity)
}

// Logout clears the persisted role selection.
func (s *SessionService) Logout(ctx context.Context) error {
	if err := s.roles.Delete(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear role selection")
	}
	return nil
}

// ValidateToken parses a session token and checks that it names a known identity.
func (s *SessionService) ValidateToken(tokenString string) (*models.SessionClaims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if identity, known := s.directory[claims.Role]; !known || identity.Name != claims.Name {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unknown session identity")
	}
	return claims, nil
}

func (s *SessionService) issue(identity models.Identity) (*dto.SessionResponse, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.cfg.TTL)
	claims := &models.SessionClaims{
		Name: identity.Name,
		Role: identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   identity.Role.Key(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign session token")
	}
	return &dto.SessionResponse{Identity: identity, AccessToken: signed, ExpiresIn: int64(s.cfg.TTL.Seconds())}, nil
}
