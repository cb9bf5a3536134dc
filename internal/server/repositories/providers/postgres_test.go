package providers

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agrismart/auth/internal/common"
	"github.com/agrismart/auth/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const insertQuery = `(?s)^INSERT\s+INTO\s+providers\s*\(account_id,\s*provider,\s*provider_id\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*RETURNING\s+id,\s*created_at,\s*updated_at\s*$`
const selectQuery = `(?s)^SELECT\s+id,\s*account_id,\s*provider,\s*provider_id,\s*created_at,\s*updated_at\s+FROM\s+providers\s+WHERE\s+account_id\s*=\s*\$1\s+AND\s+provider\s*=\s*\$2\s*$`

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
		AddRow("p-1", now, now)
	mock.ExpectQuery(insertQuery).
		WithArgs("a-1", models.ProviderGoogle, "sub-123").
		WillReturnRows(rows)

	p := &models.Provider{AccountID: "a-1", Kind: models.ProviderGoogle, SubjectID: "sub-123"}
	got, err := repo.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "p-1" || got.Kind != models.ProviderGoogle {
		t.Fatalf("unexpected provider: %+v", got)
	}
}

func TestCreate_AlreadyLinked(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQuery).
		WithArgs("a-1", models.ProviderGoogle, "sub-123").
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

	_, err := repo.Create(context.Background(), &models.Provider{AccountID: "a-1", Kind: models.ProviderGoogle, SubjectID: "sub-123"})
	if !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("want common.ErrAlreadyExists, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQuery).
		WithArgs("a-1", models.ProviderGoogle, "sub-123").
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Provider{AccountID: "a-1", Kind: models.ProviderGoogle, SubjectID: "sub-123"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByAccountAndKind_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "account_id", "provider", "provider_id", "created_at", "updated_at"}).
		AddRow("p-1", "a-1", "google", "sub-123", now, now)
	mock.ExpectQuery(selectQuery).
		WithArgs("a-1", models.ProviderGoogle).
		WillReturnRows(rows)

	got, err := repo.GetByAccountAndKind(context.Background(), "a-1", models.ProviderGoogle)
	if err != nil {
		t.Fatalf("GetByAccountAndKind error: %v", err)
	}
	if got.SubjectID != "sub-123" {
		t.Fatalf("unexpected provider: %+v", got)
	}
}

func TestGetByAccountAndKind_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectQuery).
		WithArgs("a-1", models.ProviderGoogle).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByAccountAndKind(context.Background(), "a-1", models.ProviderGoogle)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}
