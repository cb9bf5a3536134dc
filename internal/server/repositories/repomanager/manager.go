// Package repomanager hands out repositories bound to a database handle.
// Callers pass either *sql.DB or, inside dbx.WithTx, the transactional
// handle, so the same repository code participates in transactions.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/agrismart/auth/internal/dbx"
	"github.com/agrismart/auth/internal/server/repositories/accounts"
	"github.com/agrismart/auth/internal/server/repositories/providers"
	"github.com/agrismart/auth/internal/server/repositories/sessions"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Providers(db dbx.DBTX) providers.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
