// Package token signs and verifies the compact signed tokens issued by the
// auth core. The codec is stateless: all key material comes from the key
// store, and the signature algorithm follows the store's backend (EC keys
// sign ES256, RSA keys sign RS256). Access and refresh tokens use separate
// key pairs and are never cross-verifiable.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agrismart/auth/internal/common"
	"github.com/agrismart/auth/internal/server/config"
	"github.com/agrismart/auth/internal/server/keystore"
)

// Claims is the fixed token payload. Both tokens of one issuance cycle share
// the same jti (RegisteredClaims.ID) and subject (account id) but have
// different lifetimes.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	DeviceID string `json:"device_id,omitempty"`
}

// Codec encodes and decodes signed tokens using the key store's pairs.
type Codec struct {
	keys     *keystore.Store
	method   jwt.SigningMethod
	issuer   string
	audience string
	now      func() time.Time
}

func NewCodec(keys *keystore.Store, backend, issuer, audience string) (*Codec, error) {
	var method jwt.SigningMethod
	switch backend {
	case config.KeyBackendEC:
		method = jwt.SigningMethodES256
	case config.KeyBackendRSA:
		method = jwt.SigningMethodRS256
	default:
		return nil, fmt.Errorf("unsupported key backend %q", backend)
	}

	return &Codec{
		keys:     keys,
		method:   method,
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}, nil
}

// Encode signs claims with the private key of keyType.
func (c *Codec) Encode(claims *Claims, keyType keystore.KeyType) (string, error) {
	pemBytes, err := c.keys.Load(keyType, false)
	if err != nil {
		return "", err
	}

	key, err := c.parsePrivate(pemBytes)
	if err != nil {
		return "", err
	}

	return jwt.NewWithClaims(c.method, claims).SignedString(key)
}

// Decode verifies tokenString with the public key of keyType and returns its
// claims. The signature, algorithm, issuer, audience, and time claims
// (iat <= now <= exp, exp required) are all enforced, and jti, subject, and
// email must be present. Every verification failure surfaces uniformly as
// an UNAUTHENTICATED error so callers need no case analysis.
func (c *Codec) Decode(tokenString string, keyType keystore.KeyType) (*Claims, error) {
	pemBytes, err := c.keys.Load(keyType, true)
	if err != nil {
		return nil, err
	}

	key, err := c.parsePublic(pemBytes)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	if err != nil {
		return nil, common.Wrap(common.CodeUnauthenticated, "invalid token", err)
	}
	if !tok.Valid {
		return nil, common.New(common.CodeUnauthenticated, "invalid token")
	}
	if claims.ID == "" || claims.Subject == "" || claims.Email == "" {
		return nil, common.New(common.CodeUnauthenticated, "token is missing required claims")
	}

	return claims, nil
}

func (c *Codec) parsePrivate(pemBytes []byte) (any, error) {
	if c.method == jwt.SigningMethodES256 {
		return jwt.ParseECPrivateKeyFromPEM(pemBytes)
	}
	return jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
}

func (c *Codec) parsePublic(pemBytes []byte) (any, error) {
	if c.method == jwt.SigningMethodES256 {
		return jwt.ParseECPublicKeyFromPEM(pemBytes)
	}
	return jwt.ParseRSAPublicKeyFromPEM(pemBytes)
}
