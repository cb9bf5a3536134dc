// Package accounts declares the repository contract for identity records.
package accounts

import (
	"context"

	"github.com/agrismart/auth/internal/server/models"
)

// Repository defines the account lookups and writes consumed by the auth
// service. Implementations return common.ErrNotFound for absent rows and
// common.ErrAlreadyExists for unique-constraint violations.
type Repository interface {
	// Create persists a new account and returns it with the generated id
	// and timestamps filled in.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	// GetByEmail returns the non-deleted account with the given email.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// GetByID returns the non-deleted account with the given id.
	GetByID(ctx context.Context, id string) (*models.Account, error)
}
