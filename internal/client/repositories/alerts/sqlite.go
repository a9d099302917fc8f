package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/client/models"
	"github.com/dmitrijs2005/spendsync/internal/common"
	"github.com/dmitrijs2005/spendsync/internal/dbx"
	"github.com/dmitrijs2005/spendsync/internal/timex"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, a models.Alert) error {
	query := `INSERT INTO alerts (id, budget_id, owner_id, kind, message, current_amount, budget_amount,
			percentage, period, category, created_at, dismissed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.BudgetID, a.OwnerID, string(a.Kind), a.Message, a.CurrentAmount.String(), a.BudgetAmount.String(),
		a.Percentage, string(a.Period), a.Category, timex.FormatInstant(a.CreatedAt), a.Dismissed)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context, ownerID string, includeDismissed bool) ([]models.Alert, error) {
	query := `SELECT id, budget_id, owner_id, kind, message, current_amount, budget_amount,
			percentage, period, category, created_at, dismissed
		FROM alerts WHERE owner_id = ?`
	if !includeDismissed {
		query += ` AND dismissed = 0`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select alerts: %w", err)
	}
	defer rows.Close()

	result := make([]models.Alert, 0)
	for rows.Next() {
		var (
			a       models.Alert
			created string
		)
		if err := rows.Scan(&a.ID, &a.BudgetID, &a.OwnerID, &a.Kind, &a.Message, &a.CurrentAmount, &a.BudgetAmount,
			&a.Percentage, &a.Period, &a.Category, &created, &a.Dismissed); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		if a.CreatedAt, err = timex.ParseInstant(created); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) HasRecent(ctx context.Context, ownerID, budgetID string, kind models.AlertKind, since time.Time) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM alerts
		WHERE owner_id = ? AND budget_id = ? AND kind = ? AND dismissed = 0 AND created_at >= ?)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, ownerID, budgetID, string(kind), timex.FormatInstant(since)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to look up recent alert: %w", err)
	}
	return exists, nil
}

func (r *SQLiteRepository) Dismiss(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE alerts SET dismissed = 1 WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to dismiss alert: %w", err)
	}
	return dbx.RequireOneRow(res, common.ErrNotFound)
}

func (r *SQLiteRepository) DeleteByBudget(ctx context.Context, ownerID, budgetID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM alerts WHERE owner_id = ? AND budget_id = ?`, ownerID, budgetID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete budget alerts: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) DeleteOlderThan(ctx context.Context, ownerID string, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM alerts WHERE owner_id = ? AND created_at < ?`,
		ownerID, timex.FormatInstant(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old alerts: %w", err)
	}
	return res.RowsAffected()
}
