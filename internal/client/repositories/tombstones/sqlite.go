package tombstones

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/spendsync/internal/client/models"
	"github.com/dmitrijs2005/spendsync/internal/dbx"
	"github.com/dmitrijs2005/spendsync/internal/timex"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, t models.Tombstone) error {
	query := `INSERT INTO tombstones (owner_id, collection, id, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id, collection, id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, t.OwnerID, t.Collection, t.ID, timex.FormatInstant(t.CreatedAt)); err != nil {
		return fmt.Errorf("failed to add tombstone: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, ownerID string) ([]models.Tombstone, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT owner_id, collection, id, created_at FROM tombstones
		WHERE owner_id = ? ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tombstones: %w", err)
	}
	defer rows.Close()

	result := make([]models.Tombstone, 0)
	for rows.Next() {
		var (
			t       models.Tombstone
			created string
		)
		if err := rows.Scan(&t.OwnerID, &t.Collection, &t.ID, &created); err != nil {
			return nil, fmt.Errorf("failed to scan tombstone: %w", err)
		}
		if t.CreatedAt, err = timex.ParseInstant(created); err != nil {
			return nil, fmt.Errorf("failed to scan tombstone: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tombstones: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) IDs(ctx context.Context, ownerID, collection string) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM tombstones WHERE owner_id = ? AND collection = ?`, ownerID, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list tombstone ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tombstone id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tombstone ids: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) Count(ctx context.Context, ownerID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tombstones WHERE owner_id = ?`, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tombstones: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, ownerID, collection, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tombstones WHERE owner_id = ? AND collection = ? AND id = ?`,
		ownerID, collection, id)
	if err != nil {
		return fmt.Errorf("failed to remove tombstone: %w", err)
	}
	return nil
}
