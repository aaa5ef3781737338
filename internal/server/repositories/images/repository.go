// Package images persists metadata for generated and uploaded images.
package images

import (
	"context"

	"github.com/avoronov/contenthub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, img *models.Image) (*models.Image, error)
	GetByID(ctx context.Context, id int64) (*models.Image, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Image, error)
}
