// Package keystore generates, persists, and serves the asymmetric key pairs
// used to sign and verify tokens. Each key type (access, refresh) owns an
// independent pair under its own subdirectory:
//
//	<dir>/access/{private_key.pem,public_key.pem}
//	<dir>/refresh/{private_key.pem,public_key.pem}
//
// With a passphrase configured, private keys are written age-encrypted
// (scrypt) as private_key.pem.age instead of plaintext PEM.
package keystore

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"github.com/agrismart/auth/internal/common"
	"github.com/agrismart/auth/internal/logging"
	"github.com/agrismart/auth/internal/server/config"
)

// KeyType selects one of the two independent key pairs.
type KeyType string

const (
	Access  KeyType = "access"
	Refresh KeyType = "refresh"
)

const (
	publicKeyFilename  = "public_key.pem"
	privateKeyFilename = "private_key.pem"
	encryptedSuffix    = ".age"
	rsaKeySize         = 2048
)

// Options configures a Store.
type Options struct {
	// Directory is the root under which per-type key directories live.
	Directory string
	// Backend is config.KeyBackendEC or config.KeyBackendRSA.
	Backend string
	// Override regenerates pairs even when files already exist.
	Override bool
	// Caching loads all four keys into memory via Prime; Load then never
	// touches the disk.
	Caching bool
	// Passphrase, when non-empty, age-encrypts private keys at rest.
	Passphrase string
}

type cacheKey struct {
	keyType KeyType
	public  bool
}

// Store supplies PEM-encoded key material. The cache, when enabled, is
// populated once by Prime before concurrent use and is read-only afterwards.
type Store struct {
	opts   Options
	logger logging.Logger
	cache  map[cacheKey][]byte
}

func New(opts Options, logger logging.Logger) *Store {
	return &Store{
		opts:   opts,
		logger: logger.With("module", "keystore"),
	}
}

// Generate ensures both key pairs exist, creating any that are missing with
// the configured backend. Existing pairs are left untouched unless Override
// is set. Unsupported backends are a configuration error.
func (s *Store) Generate(ctx context.Context) error {
	switch s.opts.Backend {
	case config.KeyBackendEC, config.KeyBackendRSA:
	default:
		return fmt.Errorf("unsupported key backend %q", s.opts.Backend)
	}

	for _, kt := range []KeyType{Access, Refresh} {
		dir := filepath.Join(s.opts.Directory, string(kt))
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating key directory: %w", err)
		}

		if s.pairExists(dir) && !s.opts.Override {
			s.logger.Info(ctx, "key pair exists, skipping generation", "key_type", kt, "backend", s.opts.Backend)
			continue
		}

		if err := s.generatePair(dir); err != nil {
			return fmt.Errorf("generating %s key pair: %w", kt, err)
		}
		s.logger.Info(ctx, "key pair generated", "key_type", kt, "backend", s.opts.Backend)
	}

	return nil
}

// Prime loads all four keys into the in-memory cache. It must be called once
// at startup when caching is enabled, before any concurrent Load.
func (s *Store) Prime() error {
	if !s.opts.Caching {
		return nil
	}

	cache := make(map[cacheKey][]byte, 4)
	for _, kt := range []KeyType{Access, Refresh} {
		for _, public := range []bool{true, false} {
			b, err := s.read(kt, public)
			if err != nil {
				return err
			}
			cache[cacheKey{keyType: kt, public: public}] = b
		}
	}
	s.cache = cache

	return nil
}

// Load returns the PEM bytes for the requested key. With caching enabled the
// bytes come from the Prime snapshot; otherwise every call re-reads storage.
func (s *Store) Load(keyType KeyType, public bool) ([]byte, error) {
	if s.opts.Caching {
		if s.cache == nil {
			return nil, common.New(common.CodeInternal, "key cache not primed")
		}
		b, ok := s.cache[cacheKey{keyType: keyType, public: public}]
		if !ok {
			return nil, common.New(common.CodeNotFound, fmt.Sprintf("%s key not cached", keyType))
		}
		return b, nil
	}
	return s.read(keyType, public)
}

func (s *Store) read(keyType KeyType, public bool) ([]byte, error) {
	path := s.keyPath(keyType, public)

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.Wrap(common.CodeNotFound, fmt.Sprintf("key file not found: %s", path), err)
		}
		return nil, fmt.Errorf("reading key file: %w", err)
	}

	if !public && s.opts.Passphrase != "" {
		return s.decrypt(b)
	}
	return b, nil
}

func (s *Store) keyPath(keyType KeyType, public bool) string {
	dir := filepath.Join(s.opts.Directory, string(keyType))
	if public {
		return filepath.Join(dir, publicKeyFilename)
	}
	return filepath.Join(dir, s.privateFilename())
}

func (s *Store) privateFilename() string {
	if s.opts.Passphrase != "" {
		return privateKeyFilename + encryptedSuffix
	}
	return privateKeyFilename
}

func (s *Store) pairExists(dir string) bool {
	_, pubErr := os.Stat(filepath.Join(dir, publicKeyFilename))
	_, privErr := os.Stat(filepath.Join(dir, s.privateFilename()))
	return pubErr == nil && privErr == nil
}

func (s *Store) generatePair(dir string) error {
	var privPEM, pubPEM []byte
	var err error

	switch s.opts.Backend {
	case config.KeyBackendEC:
		privPEM, pubPEM, err = generateEC()
	case config.KeyBackendRSA:
		privPEM, pubPEM, err = generateRSA()
	}
	if err != nil {
		return err
	}

	if s.opts.Passphrase != "" {
		privPEM, err = s.encrypt(privPEM)
		if err != nil {
			return err
		}
	}

	if err := os.WriteFile(filepath.Join(dir, s.privateFilename()), privPEM, 0o600); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, publicKeyFilename), pubPEM, 0o644)
}

func generateEC() (privPEM, pubPEM []byte, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, err
	}

	privPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	pubPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privPEM, pubPEM, nil
}

func generateRSA() (privPEM, pubPEM []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeySize)
	if err != nil {
		return nil, nil, err
	}

	privDER := x509.MarshalPKCS1PrivateKey(key)
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, err
	}

	privPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: privDER})
	pubPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privPEM, pubPEM, nil
}

func (s *Store) encrypt(plain []byte) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(s.opts.Passphrase)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(plain); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Store) decrypt(encrypted []byte) ([]byte, error) {
	identity, err := age.NewScryptIdentity(s.opts.Passphrase)
	if err != nil {
		return nil, err
	}

	r, err := age.Decrypt(bytes.NewReader(encrypted), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting private key: %w", err)
	}
	return io.ReadAll(r)
}
