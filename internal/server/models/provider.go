package models

import "time"

// ProviderKind names an external identity source.
type ProviderKind string

const (
	ProviderGoogle ProviderKind = "google"
	ProviderGithub ProviderKind = "github"
	ProviderAzure  ProviderKind = "azure"
)

// Provider links one external identity to an account. An account may link a
// given provider kind at most once.
type Provider struct {
	ID        string
	AccountID string
	Kind      ProviderKind
	SubjectID string
	CreatedAt time.Time
	UpdatedAt time.Time
}
