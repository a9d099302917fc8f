// Package tombstones queues remote deletes that could not be delivered when
// the record was deleted locally.
package tombstones

import (
	"context"

	"github.com/dmitrijs2005/spendsync/internal/client/models"
)

type Repository interface {
	// Add queues a tombstone; adding the same (collection, id) twice is a no-op.
	Add(ctx context.Context, t models.Tombstone) error
	List(ctx context.Context, ownerID string) ([]models.Tombstone, error)
	IDs(ctx context.Context, ownerID, collection string) (map[string]struct{}, error)
	Count(ctx context.Context, ownerID string) (int, error)
	Remove(ctx context.Context, ownerID, collection, id string) error
}
