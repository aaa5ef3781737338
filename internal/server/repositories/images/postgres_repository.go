package images

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

func (r *PostgresRepository) Create(ctx context.Context, img *models.Image) (*models.Image, error) {

	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now()
	}

	query :=
		`INSERT INTO images (user_id, object_key, prompt, url, created_at)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		img.UserID, img.ObjectKey, img.Prompt, img.URL, img.CreatedAt).Scan(&img.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return img, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Image, error) {
	query :=
		`SELECT id, user_id, object_key, prompt, url, created_at FROM images
		 WHERE id = $1
		 `

	img := &models.Image{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&img.ID, &img.UserID, &img.ObjectKey, &img.Prompt, &img.URL, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return img, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Image, error) {
	query :=
		`SELECT id, user_id, object_key, prompt, url, created_at FROM images
		 WHERE user_id = $1
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Image
	for rows.Next() {
		img := &models.Image{}
		if err := rows.Scan(&img.ID, &img.UserID, &img.ObjectKey, &img.Prompt, &img.URL, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
