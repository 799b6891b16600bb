package store

import (
	"context"
	"errors"
	"time"

	"github.com/ariaauth/aria/pkg/jwtx"
)

// EphemeralStore is the key-value contract behind every short-lived secret:
// auth-code bodies, embedded sessions, MFA codes, passkey challenges, the
// refresh-token registry, failed-attempt counters, and the signing key.
// Expiry is TTL-only; absence after TTL is the only expiry signal.
type EphemeralStore interface {
	// Get returns the value for key, or ErrNotFound when absent or expired.
	Get(ctx context.Context, key string) (string, error)

	// Put stores value under key. A ttl <= 0 means no expiry.
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// CompareAndDelete atomically fetches and removes key, returning the
	// value that was present or ErrNotFound. Single-use secrets must be
	// consumed through this, never through a get-then-delete sequence.
	CompareAndDelete(ctx context.Context, key string) (string, error)

	// Increment atomically bumps a counter, setting ttl only when the key
	// is created. Returns the new count.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Scan returns the keys matching prefix. Administrative introspection
	// only; never on the request path.
	Scan(ctx context.Context, prefix string) ([]string, error)

	// Ping verifies connectivity for readiness checks.
	Ping(ctx context.Context) error
}

// SigningKeys adapts the EphemeralStore to the jwtx.KeyStore contract. The
// translation of the miss sentinel matters: only a genuine miss may trigger
// key generation, an infrastructure failure must surface as-is.
func SigningKeys(eph EphemeralStore) jwtx.KeyStore {
	return signingKeys{eph}
}

type signingKeys struct {
	eph EphemeralStore
}

func (s signingKeys) Get(ctx context.Context, key string) (string, error) {
	v, err := s.eph.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", jwtx.ErrKeyNotFound
	}
	return v, err
}

func (s signingKeys) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.eph.Put(ctx, key, value, ttl)
}

// Key namespaces. Every ephemeral key is built by one of these so the
// purposes can never collide.
const (
	nsAuthCode         = "ac:"
	nsEmbeddedSession  = "es:"
	nsMfaCode          = "mc:"
	nsPasskeyChallenge = "pc:"
	nsRefreshToken     = "rt:"
	nsFailedAttempts   = "fa:"

	// SigningKeyKey holds the PEM-encoded JWT signing key, with no TTL.
	SigningKeyKey = "sk:jwt"
)

// AuthCodeKey keys an AuthCodeBody by the code's fingerprint.
func AuthCodeKey(fingerprint string) string { return nsAuthCode + fingerprint }

// EmbeddedSessionKey keys an EmbeddedSession by its random session id.
func EmbeddedSessionKey(sessionID string) string { return nsEmbeddedSession + sessionID }

// MfaCodeKey keys a one-time MFA code by channel and session or code id.
func MfaCodeKey(channel, id string) string { return nsMfaCode + channel + ":" + id }

// PasskeyChallengeKey keys a WebAuthn challenge by its own value (sign-in)
// or by user id (enrollment).
func PasskeyChallengeKey(id string) string { return nsPasskeyChallenge + id }

// RefreshTokenKey keys a RefreshTokenRecord by the token's fingerprint.
func RefreshTokenKey(fingerprint string) string { return nsRefreshToken + fingerprint }

// FailedAttemptKey keys a lockout counter by scope (password, otp_mfa, ...)
// and identity, e.g. "email:1.2.3.4" or "sessionID".
func FailedAttemptKey(scope, id string) string { return nsFailedAttempts + scope + ":" + id }

// FailedAttemptPrefix is the Scan prefix for all counters under one scope
// and identity, used by lockout introspection.
func FailedAttemptPrefix(scope, identity string) string {
	return nsFailedAttempts + scope + ":" + identity
}
