package budgets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/client/models"
	"github.com/dmitrijs2005/spendsync/internal/common"
	"github.com/dmitrijs2005/spendsync/internal/dbx"
	"github.com/dmitrijs2005/spendsync/internal/timex"
)

const columns = `id, owner_id, name, amount, period, category, enabled, warning_threshold, created_at, updated_at, synced`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBudget(s scanner) (models.Budget, error) {
	var (
		b                models.Budget
		created, updated string
	)
	err := s.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Amount, &b.Period, &b.Category,
		&b.Enabled, &b.WarningThreshold, &created, &updated, &b.Synced)
	if err != nil {
		return models.Budget{}, err
	}

	if b.CreatedAt, err = timex.ParseInstant(created); err != nil {
		return models.Budget{}, err
	}
	if b.UpdatedAt, err = timex.ParseInstant(updated); err != nil {
		return models.Budget{}, err
	}
	return b, nil
}

func args(b models.Budget) []any {
	return []any{
		b.ID, b.OwnerID, b.Name, b.Amount.String(), string(b.Period), b.Category, b.Enabled, b.WarningThreshold,
		timex.FormatInstant(b.CreatedAt), timex.FormatInstant(b.UpdatedAt), b.Synced,
	}
}

func (r *SQLiteRepository) Put(ctx context.Context, b models.Budget) error {
	query := `INSERT INTO budgets (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, args(b)...); err != nil {
		return fmt.Errorf("failed to insert budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Replace(ctx context.Context, b models.Budget) error {
	query := `INSERT INTO budgets (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			amount = excluded.amount,
			period = excluded.period,
			category = excluded.category,
			enabled = excluded.enabled,
			warning_threshold = excluded.warning_threshold,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			synced = excluded.synced
		WHERE budgets.owner_id = excluded.owner_id`
	if _, err := r.db.ExecContext(ctx, query, args(b)...); err != nil {
		return fmt.Errorf("failed to replace budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, ownerID, id string) (models.Budget, error) {
	query := `SELECT ` + columns + ` FROM budgets WHERE owner_id = ? AND id = ?`
	b, err := scanBudget(r.db.QueryRowContext(ctx, query, ownerID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Budget{}, common.ErrNotFound
	}
	if err != nil {
		return models.Budget{}, fmt.Errorf("failed to get budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) list(ctx context.Context, where string, qargs ...any) ([]models.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM budgets WHERE `+where+` ORDER BY created_at`, qargs...)
	if err != nil {
		return nil, fmt.Errorf("failed to select budgets: %w", err)
	}
	defer rows.Close()

	result := make([]models.Budget, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate budgets: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context, ownerID string) ([]models.Budget, error) {
	return r.list(ctx, `owner_id = ?`, ownerID)
}

func (r *SQLiteRepository) GetEnabled(ctx context.Context, ownerID string) ([]models.Budget, error) {
	return r.list(ctx, `owner_id = ? AND enabled = 1`, ownerID)
}

func (r *SQLiteRepository) GetUnsynced(ctx context.Context, ownerID string) ([]models.Budget, error) {
	return r.list(ctx, `owner_id = ? AND synced = 0`, ownerID)
}

func (r *SQLiteRepository) CountUnsynced(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM budgets WHERE owner_id = ? AND synced = 0`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unsynced budgets: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, ownerID, id string, patch models.BudgetPatch, now time.Time) (models.Budget, error) {
	b, err := r.Get(ctx, ownerID, id)
	if err != nil {
		return models.Budget{}, err
	}

	patch.Apply(&b)
	b.UpdatedAt = now.UTC()
	b.Synced = false

	query := `UPDATE budgets SET name = ?, amount = ?, period = ?, category = ?, enabled = ?, warning_threshold = ?,
		updated_at = ?, synced = 0 WHERE owner_id = ? AND id = ?`
	res, err := r.db.ExecContext(ctx, query, b.Name, b.Amount.String(), string(b.Period), b.Category, b.Enabled,
		b.WarningThreshold, timex.FormatInstant(b.UpdatedAt), ownerID, id)
	if err != nil {
		return models.Budget{}, fmt.Errorf("failed to update budget: %w", err)
	}
	if err := dbx.RequireOneRow(res, common.ErrNotFound); err != nil {
		return models.Budget{}, err
	}
	return b, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, ownerID, id string, updatedAt time.Time) error {
	query := `UPDATE budgets SET synced = 1 WHERE owner_id = ? AND id = ? AND updated_at = ?`
	if _, err := r.db.ExecContext(ctx, query, ownerID, id, timex.FormatInstant(updatedAt)); err != nil {
		return fmt.Errorf("failed to mark budget synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete budget: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete budget: %w", err)
	}
	return n > 0, nil
}
