package models

import "time"

// Session is the durable counterpart of a still-valid refresh token: one row
// per refresh cycle. Rows are superseded on refresh (old row deleted, new row
// inserted), bulk-deleted on sign-out, and swept by the janitor once
// ExpiredAt has passed.
type Session struct {
	ID             string
	AccountID      string
	AccessTokenJTI string
	RefreshToken   string
	// ExpiredAt is an absolute expiry in seconds since epoch, mirrored from
	// the refresh token's exp claim.
	ExpiredAt int64
	DeviceID  string
	IPAddress string
	CreatedAt time.Time
	UpdatedAt time.Time
}
