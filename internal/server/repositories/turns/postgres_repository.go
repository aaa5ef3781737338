package turns

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avoronov/contenthub/internal/dbx"
	"github.com/avoronov/contenthub/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, turn *models.Turn) (*models.Turn, error) {

	query :=
		`INSERT INTO turns (conversation_id, user_id, role, source, kind, content, generated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		turn.ConversationID, turn.UserID, string(turn.Role), string(turn.Source),
		string(turn.Kind), turn.Content, turn.GeneratedAt).Scan(&turn.ID)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return turn, nil
}

func (r *PostgresRepository) ListByUserAndConversation(ctx context.Context, userID, conversationID int64) ([]*models.Turn, error) {
	query :=
		`SELECT id, conversation_id, user_id, role, source, kind, content, generated_at FROM turns
		 WHERE user_id = $1 AND conversation_id = $2
		 ORDER BY generated_at ASC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return scanTurns(rows)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Turn, error) {
	query :=
		`SELECT id, conversation_id, user_id, role, source, kind, content, generated_at FROM turns
		 WHERE user_id = $1
		 ORDER BY generated_at ASC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return scanTurns(rows)
}

func scanTurns(rows *sql.Rows) ([]*models.Turn, error) {
	defer rows.Close()

	var result []*models.Turn
	for rows.Next() {
		turn := &models.Turn{}
		var role string
		if err := rows.Scan(&turn.ID, &turn.ConversationID, &turn.UserID, &role,
			&turn.Source, &turn.Kind, &turn.Content, &turn.GeneratedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		parsed, err := models.ParseTurnRole(role)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		turn.Role = parsed
		result = append(result, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
