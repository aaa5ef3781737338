// Package conversations persists conversation records.
package conversations

import (
	"context"

	"github.com/avoronov/contenthub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, conv *models.Conversation) (*models.Conversation, error)
	GetByID(ctx context.Context, id int64) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Conversation, error)
	Delete(ctx context.Context, id int64) error
}
