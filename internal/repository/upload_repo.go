package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jduhalde/consulting/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UploadRepository interface {
	CreateUpload(ctx context.Context, u *model.Upload) error
	GetUploadByID(ctx context.Context, userID, id string) (*model.Upload, error)
	ListUploads(ctx context.Context, userID, category string, limit int) ([]model.Upload, error)
	// MarkCompleted records the verified file size. Returns false if the
	// upload does not exist for this user or is already completed.
	MarkCompleted(ctx context.Context, userID, id string, size int64) (bool, error)
}

type uploadRepo struct {
	pool *pgxpool.Pool
}

func NewUploadRepo(pool *pgxpool.Pool) UploadRepository {
	return &uploadRepo{pool: pool}
}

func (r *uploadRepo) CreateUpload(ctx context.Context, u *model.Upload) error {
	const q = `
		INSERT INTO uploads (id, user_id, file_name, file_type, category, storage_path, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING uploaded_at`
	err := r.pool.QueryRow(ctx, q,
		u.ID, u.UserID, u.FileName, u.FileType, u.Category, u.StoragePath, u.Status,
	).Scan(&u.UploadedAt)
	if err != nil {
		return fmt.Errorf("creating upload for user %s: %w", u.UserID, err)
	}
	return nil
}

func (r *uploadRepo) GetUploadByID(ctx context.Context, userID, id string) (*model.Upload, error) {
	const q = `
		SELECT id, user_id, file_name, file_type, category, storage_path,
		       status, file_size, uploaded_at, completed_at
		FROM uploads
		WHERE id = $1 AND user_id = $2`
	var u model.Upload
	err := r.pool.QueryRow(ctx, q, id, userID).Scan(
		&u.ID, &u.UserID, &u.FileName, &u.FileType, &u.Category,
		&u.StoragePath, &u.Status, &u.FileSize, &u.UploadedAt, &u.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading upload %s: %w", id, err)
	}
	return &u, nil
}

func (r *uploadRepo) ListUploads(ctx context.Context, userID, category string, limit int) ([]model.Upload, error) {
	q := `
		SELECT id, user_id, file_name, file_type, category, storage_path,
		       status, file_size, uploaded_at, completed_at
		FROM uploads
		WHERE user_id = $1`
	args := []any{userID}
	if category != "" {
		args = append(args, category)
		q += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	q += fmt.Sprintf(" ORDER BY uploaded_at DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing uploads for user %s: %w", userID, err)
	}
	defer rows.Close()

	var uploads []model.Upload
	for rows.Next() {
		var u model.Upload
		if err := rows.Scan(
			&u.ID, &u.UserID, &u.FileName, &u.FileType, &u.Category,
			&u.StoragePath, &u.Status, &u.FileSize, &u.UploadedAt, &u.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning upload row: %w", err)
		}
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing uploads for user %s: %w", userID, err)
	}
	return uploads, nil
}

func (r *uploadRepo) MarkCompleted(ctx context.Context, userID, id string, size int64) (bool, error) {
	const q = `
		UPDATE uploads
		SET status = 'completed', file_size = $3, completed_at = now()
		WHERE id = $1 AND user_id = $2 AND status = 'pending'`
	tag, err := r.pool.Exec(ctx, q, id, userID, size)
	if err != nil {
		return false, fmt.Errorf("completing upload %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}
