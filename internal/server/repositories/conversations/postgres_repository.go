package conversations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avoronov/contenthub/internal/common"
	"github.com/avoronov/contenthub/internal/dbx"
	"github.com/avoronov/contenthub/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, conv *models.Conversation) (*models.Conversation, error) {

	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}

	query :=
		`INSERT INTO conversations (user_id, created_at)
         VALUES ($1, $2)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query, conv.UserID, conv.CreatedAt).Scan(&conv.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return conv, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Conversation, error) {
	query :=
		`SELECT id, user_id, created_at FROM conversations
		 WHERE id = $1
		 `

	conv := &models.Conversation{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&conv.ID, &conv.UserID, &conv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return conv, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Conversation, error) {
	query :=
		`SELECT id, user_id, created_at FROM conversations
		 WHERE user_id = $1
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Conversation
	for rows.Next() {
		conv := &models.Conversation{}
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// Delete removes a conversation; its turns go with it via ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}
