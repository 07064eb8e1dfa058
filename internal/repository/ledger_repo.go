package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jduhalde/consulting/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepository maintains the daily cost aggregate. Every write is a
// commutative upsert-increment so that concurrent jobs, across users,
// never lose updates on the shared daily row.
type LedgerRepository interface {
	IncrementDaily(ctx context.Context, day, userID, provider, agentID string, cost float64) error
	GetDaily(ctx context.Context, day string) (*model.CostLedgerEntry, error)
}

type ledgerRepo struct {
	pool *pgxpool.Pool
}

func NewLedgerRepo(pool *pgxpool.Pool) LedgerRepository {
	return &ledgerRepo{pool: pool}
}

func (r *ledgerRepo) IncrementDaily(ctx context.Context, day, userID, provider, agentID string, cost float64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting ledger transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const totalsQ = `
		INSERT INTO cost_ledger (day, total_cost, total_requests)
		VALUES ($1, $2, 1)
		ON CONFLICT (day) DO UPDATE
		SET total_cost     = cost_ledger.total_cost + EXCLUDED.total_cost,
		    total_requests = cost_ledger.total_requests + 1,
		    updated_at     = now()`
	if _, err := tx.Exec(ctx, totalsQ, day, cost); err != nil {
		return fmt.Errorf("incrementing ledger totals for %s: %w", day, err)
	}

	const breakdownQ = `
		INSERT INTO cost_ledger_breakdown (day, dimension, key, cost)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (day, dimension, key) DO UPDATE
		SET cost = cost_ledger_breakdown.cost + EXCLUDED.cost`
	for _, kv := range []struct{ dimension, key string }{
		{"user", userID},
		{"provider", provider},
		{"agent", agentID},
	} {
		if _, err := tx.Exec(ctx, breakdownQ, day, kv.dimension, kv.key, cost); err != nil {
			return fmt.Errorf("incrementing ledger %s breakdown for %s: %w", kv.dimension, day, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing ledger increments for %s: %w", day, err)
	}
	return nil
}

func (r *ledgerRepo) GetDaily(ctx context.Context, day string) (*model.CostLedgerEntry, error) {
	entry := &model.CostLedgerEntry{
		Day:        day,
		ByUser:     map[string]float64{},
		ByProvider: map[string]float64{},
		ByAgent:    map[string]float64{},
	}
	const totalsQ = `SELECT total_cost, total_requests, updated_at FROM cost_ledger WHERE day = $1`
	err := r.pool.QueryRow(ctx, totalsQ, day).Scan(&entry.TotalCost, &entry.TotalRequests, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading ledger for %s: %w", day, err)
	}

	const breakdownQ = `SELECT dimension, key, cost FROM cost_ledger_breakdown WHERE day = $1`
	rows, err := r.pool.Query(ctx, breakdownQ, day)
	if err != nil {
		return nil, fmt.Errorf("loading ledger breakdown for %s: %w", day, err)
	}
	defer rows.Close()
	for rows.Next() {
		var dimension, key string
		var cost float64
		if err := rows.Scan(&dimension, &key, &cost); err != nil {
			return nil, fmt.Errorf("scanning ledger breakdown row: %w", err)
		}
		switch dimension {
		case "user":
			entry.ByUser[key] = cost
		case "provider":
			entry.ByProvider[key] = cost
		case "agent":
			entry.ByAgent[key] = cost
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading ledger breakdown for %s: %w", day, err)
	}
	return entry, nil
}
