// Package services contains server-side business logic. This file implements
// AuthService, which composes the key store, token codec, repositories,
// password hasher, and identity verifier into the authentication flows:
// provider login, password login/signup, refresh rotation, and sign-out.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/agrismart/auth/internal/common"
	"github.com/agrismart/auth/internal/cryptox"
	"github.com/agrismart/auth/internal/dbx"
	"github.com/agrismart/auth/internal/logging"
	"github.com/agrismart/auth/internal/server/config"
	"github.com/agrismart/auth/internal/server/identity"
	"github.com/agrismart/auth/internal/server/keystore"
	"github.com/agrismart/auth/internal/server/models"
	"github.com/agrismart/auth/internal/server/repositories/repomanager"
	"github.com/agrismart/auth/internal/server/token"
)

const bearerPrefix = "Bearer "

// TokenPair bundles a short-lived access token and a long-lived refresh
// token. Both carry the same jti and subject; the refresh token's lifetime is
// mirrored into the session row.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService provides the authentication operations:
//   - AuthWithGoogle: verify a Google ID token, find or create the account
//   - AuthWithPassword: password login with signup-on-first-use semantics
//   - Refresh: rotate a refresh token transactionally
//   - SignOut: drop every session of an account
//   - Authenticate: resolve a bearer header to an account
type AuthService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	codec                        *token.Codec
	hasher                       cryptox.Hasher
	verifier                     identity.Verifier
	logger                       logging.Logger
	tokenIssuer                  string
	tokenAudience                string
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	singleSession                bool
	now                          func() time.Time
}

// NewAuthService constructs an AuthService using repositories, collaborators,
// and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, codec *token.Codec,
	hasher cryptox.Hasher, verifier identity.Verifier, cfg *config.Config, logger logging.Logger) *AuthService {
	return &AuthService{
		db:                           db,
		repomanager:                  m,
		codec:                        codec,
		hasher:                       hasher,
		verifier:                     verifier,
		logger:                       logger,
		tokenIssuer:                  cfg.TokenIssuer,
		tokenAudience:                cfg.TokenAudience,
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		singleSession:                cfg.SingleSession,
		now:                          time.Now,
	}
}

// AuthWithGoogle verifies the supplied Google ID token and signs the verified
// identity in. A new email gets an account plus a provider link. An existing
// account must already carry the provider link; otherwise the caller is told
// to establish a password first, which prevents account takeover through an
// unlinked provider.
func (s *AuthService) AuthWithGoogle(ctx context.Context, idToken, rawNonce, deviceID, ipAddress string) (*TokenPair, error) {
	id, err := s.verifier.Verify(ctx, idToken, rawNonce)
	if err != nil {
		return nil, err
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, id.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return s.signUpWithProvider(ctx, id, deviceID, ipAddress)
		}
		return nil, common.Wrap(common.CodeInternal, "account lookup failed", err)
	}

	_, err = s.repomanager.Providers(s.db).GetByAccountAndKind(ctx, account.ID, models.ProviderGoogle)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.New(common.CodeRequiresPassword, "establish a password before signing in with this provider")
		}
		return nil, common.Wrap(common.CodeInternal, "provider lookup failed", err)
	}

	return s.login(ctx, account, deviceID, ipAddress)
}

// AuthWithPassword authenticates by email and secret. An unknown email signs
// up: the account is created with a hash of the secret. A known email must
// match the stored hash; accounts that only ever signed in through a provider
// have no hash and are refused until a password is established.
func (s *AuthService) AuthWithPassword(ctx context.Context, email, secret, deviceID, ipAddress string) (*TokenPair, error) {
	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return s.signUpWithPassword(ctx, email, secret, deviceID, ipAddress)
		}
		return nil, common.Wrap(common.CodeInternal, "account lookup failed", err)
	}

	if !account.HasPassword() {
		return nil, common.New(common.CodeRequiresPassword, "account has no password, sign in with the linked provider")
	}
	if !s.hasher.Verify(secret, account.PasswordHash.String) {
		return nil, common.New(common.CodeInvalidCredentials, "incorrect credentials")
	}

	return s.login(ctx, account, deviceID, ipAddress)
}

// Refresh validates a refresh token and rotates its session: the old row is
// removed and a new one created in a single transaction keyed on the old jti.
// A second refresh racing on the same token loses the delete and fails, so
// one refresh token never yields two live sessions.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, deviceID, ipAddress string) (*TokenPair, error) {
	claims, err := s.codec.Decode(refreshToken, keystore.Refresh)
	if err != nil {
		return nil, err
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.New(common.CodeUnauthenticated, "account no longer exists")
		}
		return nil, common.Wrap(common.CodeInternal, "account lookup failed", err)
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := s.repomanager.Sessions(tx).DeleteByJTI(ctx, claims.ID)
		if err != nil {
			return common.Wrap(common.CodeInternal, "session rotation failed", err)
		}
		if n == 0 {
			return common.New(common.CodeUnauthenticated, "refresh token already used")
		}
		pair, err = s.issueTokens(ctx, tx, account, deviceID, ipAddress)
		return err
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// SignOut removes every session of the account. Succeeds even when no
// sessions existed.
func (s *AuthService) SignOut(ctx context.Context, accountID string) error {
	n, err := s.repomanager.Sessions(s.db).DeleteByAccount(ctx, accountID)
	if err != nil {
		return common.Wrap(common.CodeInternal, "sign-out failed", err)
	}
	s.logger.Info(ctx, "signed out", "account_id", accountID, "sessions_removed", n)
	return nil
}

// Authenticate resolves an Authorization header to the account it belongs
// to. A missing or malformed header, an invalid access token, and a vanished
// account all surface as UNAUTHENTICATED.
func (s *AuthService) Authenticate(ctx context.Context, authorization string) (*models.Account, error) {
	if !strings.HasPrefix(authorization, bearerPrefix) {
		return nil, common.New(common.CodeUnauthenticated, "missing bearer token")
	}

	claims, err := s.codec.Decode(strings.TrimPrefix(authorization, bearerPrefix), keystore.Access)
	if err != nil {
		return nil, err
	}

	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.New(common.CodeUnauthenticated, "account no longer exists")
		}
		return nil, common.Wrap(common.CodeInternal, "account lookup failed", err)
	}
	return account, nil
}

// --- helpers below ---

func (s *AuthService) signUpWithProvider(ctx context.Context, id *identity.Identity, deviceID, ipAddress string) (*TokenPair, error) {
	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		account, err := s.repomanager.Accounts(tx).Create(ctx, &models.Account{
			Username: id.Name,
			Email:    id.Email,
			Avatar:   id.Picture,
		})
		if err != nil {
			return err
		}
		if _, err := s.repomanager.Providers(tx).Create(ctx, &models.Provider{
			AccountID: account.ID,
			Kind:      models.ProviderGoogle,
			SubjectID: id.SubjectID,
		}); err != nil {
			return err
		}
		pair, err = s.issueTokens(ctx, tx, account, deviceID, ipAddress)
		return err
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *AuthService) signUpWithPassword(ctx context.Context, email, secret, deviceID, ipAddress string) (*TokenPair, error) {
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, common.Wrap(common.CodeInternal, "password hashing failed", err)
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		account, err := s.repomanager.Accounts(tx).Create(ctx, &models.Account{
			Username:     email,
			Email:        email,
			PasswordHash: sql.NullString{String: hash, Valid: true},
		})
		if err != nil {
			return err
		}
		pair, err = s.issueTokens(ctx, tx, account, deviceID, ipAddress)
		return err
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// login issues a token pair and session for an already-authenticated account.
// With SingleSession enabled the account's previous sessions are dropped in
// the same transaction, so the new login supersedes them.
func (s *AuthService) login(ctx context.Context, account *models.Account, deviceID, ipAddress string) (*TokenPair, error) {
	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if s.singleSession {
			if _, err := s.repomanager.Sessions(tx).DeleteByAccount(ctx, account.ID); err != nil {
				return common.Wrap(common.CodeInternal, "session cleanup failed", err)
			}
		}
		var err error
		pair, err = s.issueTokens(ctx, tx, account, deviceID, ipAddress)
		return err
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// issueTokens mints an access/refresh pair sharing one jti and persists the
// matching session row on the given handle.
func (s *AuthService) issueTokens(ctx context.Context, tx dbx.DBTX, account *models.Account, deviceID, ipAddress string) (*TokenPair, error) {
	issued := s.now()
	jti := uuid.NewString()
	refreshExpires := issued.Add(s.refreshTokenValidityDuration)

	access, err := s.codec.Encode(s.newClaims(account, jti, deviceID, issued, s.accessTokenValidityDuration), keystore.Access)
	if err != nil {
		return nil, common.Wrap(common.CodeInternal, "access token signing failed", err)
	}
	refresh, err := s.codec.Encode(s.newClaims(account, jti, deviceID, issued, s.refreshTokenValidityDuration), keystore.Refresh)
	if err != nil {
		return nil, common.Wrap(common.CodeInternal, "refresh token signing failed", err)
	}

	if _, err := s.repomanager.Sessions(tx).Create(ctx, &models.Session{
		AccountID:      account.ID,
		AccessTokenJTI: jti,
		RefreshToken:   refresh,
		ExpiredAt:      refreshExpires.Unix(),
		DeviceID:       deviceID,
		IPAddress:      ipAddress,
	}); err != nil {
		return nil, common.Wrap(common.CodeInternal, "session creation failed", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) newClaims(account *models.Account, jti, deviceID string, issued time.Time, validity time.Duration) *token.Claims {
	return &token.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   account.ID,
			Issuer:    s.tokenIssuer,
			Audience:  jwt.ClaimStrings{s.tokenAudience},
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(validity)),
		},
		Email:    account.Email,
		DeviceID: deviceID,
	}
}
