package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/rsaf-qualification-api/internal/models"
	"github.com/noah-isme/rsaf-qualification-api/pkg/storage"
)

// DefaultRoleKey is the storage key holding the persisted role selection.
const DefaultRoleKey = "userRole"

// SessionRepository persists which role the operator last selected.
type SessionRepository struct {
	store storage.KeyValueStore
	key   string
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(store storage.KeyValueStore, key string) *SessionRepository {
	if key == "" {
		key = DefaultRoleKey
	}
	return &SessionRepository{store: store, key: key}
}

// Get returns the persisted role, defaulting to Trainee when nothing is stored or the value is unknown.
func (r *SessionRepository) Get(ctx context.Context) (models.Role, error) {
	raw, err := r.store.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return models.RoleTrainee, nil
		}
		return "", fmt.Errorf("get role selection: %w", err)
	}
	role, ok := models.ParseRole(strings.TrimSpace(string(raw)))
	if !ok {
		return models.RoleTrainee, nil
	}
	return role, nil
}

// Set persists the role under its lower-case key.
func (r *SessionRepository) Set(ctx context.Context, role models.Role) error {
	if err := r.store.Put(ctx, r.key, []byte(role.Key())); err != nil {
		return fmt.Errorf("set role selection: %w", err)
	}
	return nil
}

// Delete clears the persisted role.
func (r *SessionRepository) Delete(ctx context.Context) error {
	if err := r.store.Delete(ctx, r.key); err != nil {
		return fmt.Errorf("delete role selection: %w", err)
	}
	return nil
}
