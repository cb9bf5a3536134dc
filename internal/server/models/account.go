// Package models defines the data records persisted by the auth core.
package models

import (
	"database/sql"
	"time"
)

// Account is an identity record. PasswordHash is empty for accounts that only
// authenticate through an external provider.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash sql.NullString
	Avatar       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    sql.NullTime
}

// HasPassword reports whether the account has an established password.
func (a *Account) HasPassword() bool {
	return a.PasswordHash.Valid && a.PasswordHash.String != ""
}
