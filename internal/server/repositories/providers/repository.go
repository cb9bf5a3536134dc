// Package providers declares the repository contract for external-identity
// links. (account_id, provider) is unique: an account links a given provider
// kind at most once.
package providers

import (
	"context"

	"github.com/agrismart/auth/internal/server/models"
)

type Repository interface {
	// Create links an external identity to an account. A duplicate
	// (account, kind) pair yields common.ErrAlreadyExists.
	Create(ctx context.Context, provider *models.Provider) (*models.Provider, error)

	// GetByAccountAndKind returns the link for the given account and
	// provider kind, or common.ErrNotFound.
	GetByAccountAndKind(ctx context.Context, accountID string, kind models.ProviderKind) (*models.Provider, error)
}
