// Package alerts is the local persistence layer for budget alerts.
package alerts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/client/models"
)

type Repository interface {
	Put(ctx context.Context, a models.Alert) error

	// GetAll lists alerts, newest first. Dismissed alerts are included only
	// when includeDismissed is set.
	GetAll(ctx context.Context, ownerID string, includeDismissed bool) ([]models.Alert, error)

	// HasRecent reports whether an undismissed alert of kind exists for the
	// budget with CreatedAt >= since.
	HasRecent(ctx context.Context, ownerID, budgetID string, kind models.AlertKind, since time.Time) (bool, error)

	// Dismiss returns common.ErrNotFound when the alert does not exist.
	Dismiss(ctx context.Context, ownerID, id string) error

	DeleteByBudget(ctx context.Context, ownerID, budgetID string) (int64, error)

	// DeleteOlderThan removes alerts created before cutoff regardless of
	// their dismissed flag.
	DeleteOlderThan(ctx context.Context, ownerID string, cutoff time.Time) (int64, error)
}
