// Package turns persists the immutable dialogue turns of a conversation.
package turns

import (
	"context"

	"github.com/avoronov/contenthub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, turn *models.Turn) (*models.Turn, error)

	// ListByUserAndConversation returns the turns of (userID, conversationID)
	// ordered by generated_at ascending. The ordering is the contract the
	// conversation assembly depends on.
	ListByUserAndConversation(ctx context.Context, userID, conversationID int64) ([]*models.Turn, error)

	ListByUser(ctx context.Context, userID int64) ([]*models.Turn, error)
}
