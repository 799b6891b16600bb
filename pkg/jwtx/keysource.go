package jwtx

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"sync"
	"time"
)

const rsaKeyBits = 2048

// ErrNoPrivateKey reports that no signing key could be loaded or generated.
var ErrNoPrivateKey = errors.New("jwtx: no private signing key available")

// ErrKeyNotFound is the miss sentinel the KeyStore must return when no key
// is stored. Only a miss triggers generation; any other Get failure aborts
// the call so a store outage cannot rotate the signing key.
var ErrKeyNotFound = errors.New("jwtx: signing key not found")

// KeyStore is the narrow persistence contract the KeySource needs. Get
// reports an empty slot with an error matching ErrKeyNotFound; a ttl of zero
// on Put means the entry never expires.
type KeyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string, ttl time.Duration) error
}

// KeySource lazily obtains the RSA signing key: it loads the PEM from the
// KeyStore, generating and persisting a fresh key on first use, and caches
// the parsed key in-process so token signing does not pay a store round trip
// per request.
type KeySource struct {
	store    KeyStore
	storeKey string

	mu    sync.RWMutex
	key   *rsa.PrivateKey
	keyID string
}

// NewKeySource creates a KeySource persisting under storeKey.
func NewKeySource(store KeyStore, storeKey string) *KeySource {
	return &KeySource{store: store, storeKey: storeKey}
}

// Private returns the signing key, loading or generating it on first call.
func (s *KeySource) Private(ctx context.Context) (*rsa.PrivateKey, error) {
	s.mu.RLock()
	if s.key != nil {
		key := s.key
		s.mu.RUnlock()
		return key, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		return s.key, nil
	}

	pemStr, err := s.store.Get(ctx, s.storeKey)
	switch {
	case err == nil:
		key, perr := parseRSAPrivatePEM([]byte(pemStr))
		if perr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoPrivateKey, perr)
		}
		s.key = key
	case errors.Is(err, ErrKeyNotFound):
		key, gerr := rsa.GenerateKey(rand.Reader, rsaKeyBits)
		if gerr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoPrivateKey, gerr)
		}
		encoded := pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(key),
		})
		if perr := s.store.Put(ctx, s.storeKey, string(encoded), 0); perr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoPrivateKey, perr)
		}
		s.key = key
	default:
		return nil, fmt.Errorf("%w: %v", ErrNoPrivateKey, err)
	}

	s.keyID = deriveKID(&s.key.PublicKey)
	return s.key, nil
}

// Public returns the verification key.
func (s *KeySource) Public(ctx context.Context) (*rsa.PublicKey, error) {
	key, err := s.Private(ctx)
	if err != nil {
		return nil, err
	}
	return &key.PublicKey, nil
}

// KID returns the key identifier embedded in token headers. Only valid after
// a successful Private or Public call.
func (s *KeySource) KID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keyID
}

func parseRSAPrivatePEM(pemKey []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("invalid PEM for RSA key")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKCS8: %w", err)
		}
		key, ok := priv.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("not an RSA private key")
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unsupported PEM type %q", block.Type)
	}
}

// deriveKID fingerprints the public modulus so restarts with the same stored
// key produce the same identifier.
func deriveKID(pub *rsa.PublicKey) string {
	sum := sha256.Sum256(pub.N.Bytes())
	return base64.RawURLEncoding.EncodeToString(sum[:8])
}
