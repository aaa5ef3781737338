// Package users persists the identity records used by authentication.
package users

import (
	"context"

	"github.com/avoronov/contenthub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}
