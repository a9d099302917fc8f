package expenses

import (
	"context"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/client/models"
)

type Repository interface {
	// Put inserts a new expense as given, including its Synced flag.
	Put(ctx context.Context, e models.Expense) error

	// Replace overwrites an expense (or inserts it) with exactly the given
	// field values.
	Replace(ctx context.Context, e models.Expense) error

	// Get returns common.ErrNotFound when the expense does not exist.
	Get(ctx context.Context, ownerID, id string) (models.Expense, error)

	// GetAll lists all expenses, newest date first.
	GetAll(ctx context.Context, ownerID string) ([]models.Expense, error)

	// GetByRange lists expenses with start <= date <= end (calendar days).
	GetByRange(ctx context.Context, ownerID, start, end string) ([]models.Expense, error)

	GetUnsynced(ctx context.Context, ownerID string) ([]models.Expense, error)
	CountUnsynced(ctx context.Context, ownerID string) (int, error)

	// Update applies patch, stamps UpdatedAt=now and clears Synced.
	Update(ctx context.Context, ownerID, id string, patch models.ExpensePatch, now time.Time) (models.Expense, error)

	// MarkSynced flags the expense as synced only if it has not been modified
	// since the version identified by updatedAt.
	MarkSynced(ctx context.Context, ownerID, id string, updatedAt time.Time) error

	// Delete removes the expense and reports whether a row was removed;
	// deleting a missing expense is not an error.
	Delete(ctx context.Context, ownerID, id string) (bool, error)

	Aggregate(ctx context.Context, ownerID string) (models.Stats, error)
}
