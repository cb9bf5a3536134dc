package providers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agrismart/auth/internal/common"
	"github.com/agrismart/auth/internal/dbx"
	"github.com/agrismart/auth/internal/server/models"
)

const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, provider *models.Provider) (*models.Provider, error) {

	query :=
		`INSERT INTO providers (account_id, provider, provider_id)
         VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		provider.AccountID, provider.Kind, provider.SubjectID).
		Scan(&provider.ID, &provider.CreatedAt, &provider.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.Wrap(common.CodeAlreadyExists, "provider already linked", err)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return provider, nil
}

func (r *PostgresRepository) GetByAccountAndKind(ctx context.Context, accountID string, kind models.ProviderKind) (*models.Provider, error) {
	query :=
		`SELECT id, account_id, provider, provider_id, created_at, updated_at FROM providers
		 WHERE account_id = $1 AND provider = $2
		 `

	provider := &models.Provider{}
	err := r.db.QueryRowContext(ctx, query, accountID, kind).
		Scan(&provider.ID, &provider.AccountID, &provider.Kind,
			&provider.SubjectID, &provider.CreatedAt, &provider.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return provider, nil
}
