package expenses

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
	"github.com/shopspring/decimal"
)

const columns = `id, owner_id, amount, category, description, date, created_at, updated_at, synced`

// SQLiteRepository implements Repository over a dbx.DBTX.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (models.Expense, error) {
	var (
		e                  models.Expense
		created, updated string
	)
	if err := s.Scan(&e.ID, &e.OwnerID, &e.Amount, &e.Category, &e.Description, &e.Date, &created, &updated, &e.Synced); err != nil {
		return models.Expense{}, err
	}

	var err error
	if e.CreatedAt, err = timex.ParseInstant(created); err != nil {
		return models.Expense{}, err
	}
	if e.UpdatedAt, err = timex.ParseInstant(updated); err != nil {
		return models.Expense{}, err
	}
	return e, nil
}

func args(e models.Expense) []any {
	return []any{
		e.ID, e.OwnerID, e.Amount.String(), e.Category, e.Description, e.Date,
		timex.FormatInstant(e.CreatedAt), timex.FormatInstant(e.UpdatedAt), e.Synced,
	}
}

func (r *SQLiteRepository) Put(ctx context.Context, e models.Expense) error {
	query := `INSERT INTO expenses (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, args(e)...); err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Replace(ctx context.Context, e models.Expense) error {
	query := `INSERT INTO expenses (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			category = excluded.category,
			description = excluded.description,
			date = excluded.date,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			synced = excluded.synced
		WHERE expenses.owner_id = excluded.owner_id`
	if _, err := r.db.ExecContext(ctx, query, args(e)...); err != nil {
		return fmt.Errorf("failed to replace expense: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, ownerID, id string) (models.Expense, error) {
	query := `SELECT ` + columns + ` FROM expenses WHERE owner_id = ? AND id = ?`
	e, err := scanExpense(r.db.QueryRowContext(ctx, query, ownerID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Expense{}, common.ErrNotFound
	}
	if err != nil {
		return models.Expense{}, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string, qargs ...any) ([]models.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, qargs...)
	if err != nil {
		return nil, fmt.Errorf("failed to select expenses: %w", err)
	}
	defer rows.Close()

	result := make([]models.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context, ownerID string) ([]models.Expense, error) {
	return r.list(ctx, `SELECT `+columns+` FROM expenses WHERE owner_id = ?
		ORDER BY date DESC, created_at DESC`, ownerID)
}

func (r *SQLiteRepository) GetByRange(ctx context.Context, ownerID, start, end string) ([]models.Expense, error) {
	return r.list(ctx, `SELECT `+columns+` FROM expenses WHERE owner_id = ? AND date >= ? AND date <= ?
		ORDER BY date DESC, created_at DESC`, ownerID, start, end)
}

func (r *SQLiteRepository) GetUnsynced(ctx context.Context, ownerID string) ([]models.Expense, error) {
	return r.list(ctx, `SELECT `+columns+` FROM expenses WHERE owner_id = ? AND synced = 0
		ORDER BY created_at`, ownerID)
}

func (r *SQLiteRepository) CountUnsynced(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses WHERE owner_id = ? AND synced = 0`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unsynced expenses: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, ownerID, id string, patch models.ExpensePatch, now time.Time) (models.Expense, error) {
	e, err := r.Get(ctx, ownerID, id)
	if err != nil {
		return models.Expense{}, err
	}

	patch.Apply(&e)
	e.UpdatedAt = now.UTC()
	e.Synced = false

	query := `UPDATE expenses SET amount = ?, category = ?, description = ?, date = ?, updated_at = ?, synced = 0
		WHERE owner_id = ? AND id = ?`
	res, err := r.db.ExecContext(ctx, query,
		e.Amount.String(), e.Category, e.Description, e.Date, timex.FormatInstant(e.UpdatedAt), ownerID, id)
	if err != nil {
		return models.Expense{}, fmt.Errorf("failed to update expense: %w", err)
	}
	if err := dbx.RequireOneRow(res, common.ErrNotFound); err != nil {
		return models.Expense{}, err
	}
	return e, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, ownerID, id string, updatedAt time.Time) error {
	query := `UPDATE expenses SET synced = 1 WHERE owner_id = ? AND id = ? AND updated_at = ?`
	if _, err := r.db.ExecContext(ctx, query, ownerID, id, timex.FormatInstant(updatedAt)); err != nil {
		return fmt.Errorf("failed to mark expense synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete expense: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) Aggregate(ctx context.Context, ownerID string) (models.Stats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT amount, category, date FROM expenses WHERE owner_id = ?`, ownerID)
	if err != nil {
		return models.Stats{}, fmt.Errorf("failed to aggregate expenses: %w", err)
	}
	defer rows.Close()

	stats := models.Stats{Total: decimal.Zero, ByCategory: make(map[string]decimal.Decimal)}
	for rows.Next() {
		var (
			amount         decimal.Decimal
			category, date string
		)
		if err := rows.Scan(&amount, &category, &date); err != nil {
			return models.Stats{}, fmt.Errorf("failed to scan expense: %w", err)
		}

		stats.Count++
		stats.Total = stats.Total.Add(amount)
		stats.ByCategory[category] = stats.ByCategory[category].Add(amount)
		if stats.FirstDate == "" || date < stats.FirstDate {
			stats.FirstDate = date
		}
		if date > stats.LastDate {
			stats.LastDate = date
		}
	}
	if err := rows.Err(); err != nil {
		return models.Stats{}, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return stats, nil
}
