// Package identity verifies ID tokens issued by external providers and
// extracts the profile the auth service needs to find or create an account.
package identity

import "context"

// Identity is the verified profile carried by a provider ID token.
type Identity struct {
	SubjectID string
	Email     string
	Name      string
	Picture   string
}

// Verifier checks a provider ID token. rawNonce is the client-side nonce the
// token was requested with; implementations bind the token to it.
type Verifier interface {
	Verify(ctx context.Context, idToken string, rawNonce string) (*Identity, error)
}
