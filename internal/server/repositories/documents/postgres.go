package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/spendsync/internal/common"
	"github.com/dmitrijs2005/spendsync/internal/dbx"
	"github.com/dmitrijs2005/spendsync/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Put relies on xmax being zero only for freshly inserted rows.
func (r *PostgresRepository) Put(ctx context.Context, ownerID, collection, id string, body json.RawMessage) (bool, error) {
	query := `
		INSERT INTO documents (owner_id, collection, id, body)
		VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT (owner_id, collection, id)
		DO UPDATE SET body = EXCLUDED.body, updated_at = now()
		RETURNING (xmax = 0)
	`
	var created bool
	if err := r.db.QueryRowContext(ctx, query, ownerID, collection, id, string(body)).Scan(&created); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

func (r *PostgresRepository) Get(ctx context.Context, ownerID, collection, id string) (*models.Document, error) {
	query := `
		SELECT body, updated_at
		FROM documents
		WHERE owner_id = $1 AND collection = $2 AND id = $3
	`
	doc := &models.Document{OwnerID: ownerID, Collection: collection, ID: id}
	var body []byte
	if err := r.db.QueryRowContext(ctx, query, ownerID, collection, id).Scan(&body, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	doc.Body = json.RawMessage(body)
	return doc, nil
}

func (r *PostgresRepository) Query(ctx context.Context, ownerID, collection string) ([]models.Document, error) {
	query := `
		SELECT id, body, updated_at
		FROM documents
		WHERE owner_id = $1 AND collection = $2
		ORDER BY body->>'createdAt' DESC, id
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID, collection)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		d := models.Document{OwnerID: ownerID, Collection: collection}
		var body []byte
		if err := rows.Scan(&d.ID, &body, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		d.Body = json.RawMessage(body)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return docs, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, collection, id string) (bool, error) {
	query := `
		DELETE FROM documents
		WHERE owner_id = $1 AND collection = $2 AND id = $3
	`
	res, err := r.db.ExecContext(ctx, query, ownerID, collection, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	if err := dbx.RequireOneRow(res, common.ErrNotFound); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}
