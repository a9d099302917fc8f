// Package budgets is the local persistence layer for budget limits.
package budgets

import (
	"context"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/client/models"
)

// Repository mirrors expenses.Repository for budget limits. Deleting a budget
// does not touch its alerts; the storage layer cascades inside a transaction.
type Repository interface {
	Put(ctx context.Context, b models.Budget) error
	Replace(ctx context.Context, b models.Budget) error
	Get(ctx context.Context, ownerID, id string) (models.Budget, error)
	GetAll(ctx context.Context, ownerID string) ([]models.Budget, error)
	GetEnabled(ctx context.Context, ownerID string) ([]models.Budget, error)
	GetUnsynced(ctx context.Context, ownerID string) ([]models.Budget, error)
	CountUnsynced(ctx context.Context, ownerID string) (int, error)
	Update(ctx context.Context, ownerID, id string, patch models.BudgetPatch, now time.Time) (models.Budget, error)
	MarkSynced(ctx context.Context, ownerID, id string, updatedAt time.Time) error
	Delete(ctx context.Context, ownerID, id string) (bool, error)
}
