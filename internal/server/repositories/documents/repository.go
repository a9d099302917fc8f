// Package documents stores the JSON documents synced by clients, keyed by
// owner, collection and id.
package documents

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/spendsync/internal/server/models"
)

type Repository interface {
	// Put inserts or replaces a document and reports whether it was new.
	Put(ctx context.Context, ownerID, collection, id string, body json.RawMessage) (created bool, err error)
	// Get returns common.ErrNotFound when the document does not exist.
	Get(ctx context.Context, ownerID, collection, id string) (*models.Document, error)
	// Query lists a collection, newest createdAt first.
	Query(ctx context.Context, ownerID, collection string) ([]models.Document, error)
	// Delete reports whether a document was removed. Deleting a missing
	// document is not an error.
	Delete(ctx context.Context, ownerID, collection, id string) (bool, error)
}
