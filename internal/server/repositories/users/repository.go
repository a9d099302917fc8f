// Package users stores the accounts of the document store.
package users

import (
	"context"

	"github.com/dmitrijs2005/spendsync/internal/server/models"
)

type Repository interface {
	// Create inserts the user and fills in its generated id. A taken
	// username yields common.ErrValidation.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetUserByLogin returns common.ErrNotFound for an unknown username.
	GetUserByLogin(ctx context.Context, userName string) (*models.User, error)
}
