// Package sessions declares the repository contract for session rows. A row
// is the durable counterpart of a still-valid refresh token; its deletion is
// what invalidates the token.
package sessions

import (
	"context"

	"github.com/agrismart/auth/internal/server/models"
)

type Repository interface {
	// Create persists a session row and returns it with the generated id
	// and timestamps filled in.
	Create(ctx context.Context, session *models.Session) (*models.Session, error)

	// DeleteByJTI removes the session keyed by the access-token jti and
	// reports the number of rows removed. Zero rows is not an error: the
	// caller uses the count to detect an already-consumed refresh token.
	DeleteByJTI(ctx context.Context, jti string) (int64, error)

	// DeleteByAccount removes every session of the account.
	DeleteByAccount(ctx context.Context, accountID string) (int64, error)

	// DeleteExpired removes rows with expired_at strictly below the given
	// unix timestamp. A row expiring exactly at the boundary survives the
	// sweep and is collected on the next one.
	DeleteExpired(ctx context.Context, before int64) (int64, error)
}
