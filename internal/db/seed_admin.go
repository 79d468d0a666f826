package db

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/security"
	"github.com/google/uuid"
)

type adminUserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) error
}

// EnsureAdminUser seeds the configured admin account if it is not present.
func EnsureAdminUser(ctx context.Context, users adminUserStore, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	// check if the user exists

	_, err := users.GetByEmail(ctx, cfg.AdminEmail)

	if err == nil {
		return nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	return users.Create(ctx, user.User{
		ID:            uuid.NewString(),
		Email:         cfg.AdminEmail,
		PasswordHash:  hash,
		PasswordSet:   true,
		EmailVerified: true,
		Role:          cfg.AdminRole,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}
