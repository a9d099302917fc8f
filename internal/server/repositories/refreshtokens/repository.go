// Package refreshtokens keeps the single-use refresh tokens handed out at
// login.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, token models.RefreshToken) error
	// Find returns common.ErrNotFound for an unknown token.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)
	// Delete is a no-op for an unknown token.
	Delete(ctx context.Context, token string) error
	// DeleteExpired drops every token that expired before now and reports
	// how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
