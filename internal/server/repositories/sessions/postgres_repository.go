package sessions

import (
	"context"
	"fmt"

	"github.com/agrismart/auth/internal/dbx"
	"github.com/agrismart/auth/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {

	query :=
		`INSERT INTO sessions (account_id, access_token_jti, refresh_token, expired_at, device_id, ip_address)
         VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		session.AccountID, session.AccessTokenJTI, session.RefreshToken,
		session.ExpiredAt, session.DeviceID, session.IPAddress).
		Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return session, nil
}

func (r *PostgresRepository) DeleteByJTI(ctx context.Context, jti string) (int64, error) {
	return r.delete(ctx, `DELETE FROM sessions WHERE access_token_jti = $1`, jti)
}

func (r *PostgresRepository) DeleteByAccount(ctx context.Context, accountID string) (int64, error) {
	return r.delete(ctx, `DELETE FROM sessions WHERE account_id = $1`, accountID)
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, before int64) (int64, error) {
	return r.delete(ctx, `DELETE FROM sessions WHERE expired_at < $1`, before)
}

func (r *PostgresRepository) delete(ctx context.Context, query string, arg any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, arg)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return affected, nil
}
