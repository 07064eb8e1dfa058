package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jduhalde/consulting/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserProfilePatch carries the updatable profile fields. Nil fields are
// left unchanged.
type UserProfilePatch struct {
	DisplayName *string
	Company     *string
	Industry    *string
	Settings    map[string]any
}

type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, patch UserProfilePatch) error
	// IncrementUsage atomically adds cost to the user's monthly total and
	// bumps the request counter. Increment semantics, never read-modify-write.
	IncrementUsage(ctx context.Context, id string, cost float64) error
}

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

func (r *userRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	const q = `
		SELECT user_id, email, display_name, company, industry, role, status,
		       features, total_cost_this_month, total_requests_this_month,
		       settings, created_at, updated_at
		FROM users
		WHERE user_id = $1`
	var u model.User
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&u.UserID, &u.Email, &u.DisplayName, &u.Company, &u.Industry,
		&u.Role, &u.Status, &u.Features, &u.TotalCostThisMonth,
		&u.TotalRequestsThisMonth, &u.Settings, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading user %s: %w", id, err)
	}
	return &u, nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, id string, patch UserProfilePatch) error {
	const q = `
		UPDATE users
		SET display_name = COALESCE($2, display_name),
		    company      = COALESCE($3, company),
		    industry     = COALESCE($4, industry),
		    settings     = COALESCE($5, settings),
		    updated_at   = now()
		WHERE user_id = $1`
	var settings any
	if patch.Settings != nil {
		settings = patch.Settings
	}
	tag, err := r.pool.Exec(ctx, q, id, patch.DisplayName, patch.Company, patch.Industry, settings)
	if err != nil {
		return fmt.Errorf("updating profile for user %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepo) IncrementUsage(ctx context.Context, id string, cost float64) error {
	const q = `
		UPDATE users
		SET total_cost_this_month     = total_cost_this_month + $2,
		    total_requests_this_month = total_requests_this_month + 1,
		    updated_at                = now()
		WHERE user_id = $1`
	if _, err := r.pool.Exec(ctx, q, id, cost); err != nil {
		return fmt.Errorf("incrementing usage for user %s: %w", id, err)
	}
	return nil
}
