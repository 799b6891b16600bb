package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/store"
)

// Lockout scopes. Each scope carries its own counter namespace and its own
// terminal error so callers can tell the user which channel is locked.
const (
	LockScopePassword      = "password"
	LockScopeOtpMfa        = "otp_mfa"
	LockScopeSmsMfa        = "sms_mfa"
	LockScopeEmailMfa      = "email_mfa"
	LockScopePasswordReset = "password_reset"
	LockScopeChangeEmail   = "change_email"
)

func lockedError(scope string) *domain.Error {
	switch scope {
	case LockScopeOtpMfa:
		return domain.ErrOtpMfaLocked
	case LockScopeSmsMfa:
		return domain.ErrSmsMfaLocked
	case LockScopeEmailMfa:
		return domain.ErrEmailMfaLocked
	case LockScopePasswordReset:
		return domain.ErrPasswordResetLocked
	case LockScopeChangeEmail:
		return domain.ErrChangeEmailLocked
	default:
		return domain.ErrAccountLocked
	}
}

// LockoutGuard tracks failed attempts in decaying counters. The window is
// enforced purely by counter TTL; no clock state lives in the service.
type LockoutGuard struct {
	Ephemeral store.EphemeralStore
	Threshold int64
	Window    time.Duration
}

func NewLockoutGuard(ephemeral store.EphemeralStore, cfg Config) *LockoutGuard {
	return &LockoutGuard{
		Ephemeral: ephemeral,
		Threshold: cfg.LockoutThreshold,
		Window:    cfg.LockoutWindow,
	}
}

// Check fails with the scope's locked error once the counter has reached the
// threshold. Lockout is terminal for the window regardless of later correct
// input.
func (g *LockoutGuard) Check(ctx context.Context, scope, identity string) error {
	val, err := g.Ephemeral.Get(ctx, store.FailedAttemptKey(scope, identity))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	count, _ := strconv.ParseInt(val, 10, 64)
	if count >= g.Threshold {
		return lockedError(scope)
	}
	return nil
}

// RecordFailure atomically bumps the counter and returns the locked error if
// this failure crossed the threshold.
func (g *LockoutGuard) RecordFailure(ctx context.Context, scope, identity string) error {
	count, err := g.Ephemeral.Increment(ctx, store.FailedAttemptKey(scope, identity), g.Window)
	if err != nil {
		return err
	}
	if count >= g.Threshold {
		return lockedError(scope)
	}
	return nil
}

// Reset clears the counter after a successful attempt.
func (g *LockoutGuard) Reset(ctx context.Context, scope, identity string) error {
	return g.Ephemeral.Delete(ctx, store.FailedAttemptKey(scope, identity))
}

// ListLockedSources returns the source IPs with an active password counter
// for the identity. Administrative introspection only.
func (g *LockoutGuard) ListLockedSources(ctx context.Context, identity string) ([]string, error) {
	prefix := store.FailedAttemptPrefix(LockScopePassword, identity) + ":"
	keys, err := g.Ephemeral.Scan(ctx, prefix)
	if err != nil {
		return nil, err
	}

	ips := make([]string, 0, len(keys))
	for _, k := range keys {
		ips = append(ips, strings.TrimPrefix(k, prefix))
	}
	return ips, nil
}

// ClearLockedSources drops every password counter for the identity.
func (g *LockoutGuard) ClearLockedSources(ctx context.Context, identity string) error {
	prefix := store.FailedAttemptPrefix(LockScopePassword, identity) + ":"
	keys, err := g.Ephemeral.Scan(ctx, prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := g.Ephemeral.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// PasswordLockKey builds the per-identity-per-source counter identity for
// the password scope.
func PasswordLockKey(email, sourceIP string) string {
	return email + ":" + sourceIP
}
