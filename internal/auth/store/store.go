package store

import (
	"context"
	"errors"
	"time"

	"github.com/ariaauth/aria/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the durable data access interface. Concrete drivers (sqlite)
// implement this. Sub-repositories keep concerns tidy and testable.
type Store interface {
	Users() Users
	Apps() Apps
	Orgs() Orgs
	Consents() Consents
	SignInLogs() SignInLogs
	Passkeys() Passkeys

	ApplyMigrations() error

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Tx starts a read/write transaction. The caller MUST Commit or Rollback.
	Tx(ctx context.Context) (Tx, error)

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store scoped to one transaction.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByAuthID returns a user by its stable subject id.
	GetUserByAuthID(ctx context.Context, authID string) (domain.User, error)

	// GetUserByEmail is used during the primary credential step.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (auth id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, authID, newHash string) error

	// UpdateEmail changes the sign-in email and clears email verification.
	UpdateEmail(ctx context.Context, authID, email string) error

	// UpdateInfo mutates first/last name and locale.
	UpdateInfo(ctx context.Context, authID, firstName, lastName, locale string) error

	// UpdateMfaEnrollment replaces the enrolled channel list.
	UpdateMfaEnrollment(ctx context.Context, authID string, types []domain.MfaType) error

	// UpdateOtpSecret sets the TOTP secret and its verified flag.
	UpdateOtpSecret(ctx context.Context, authID, secret string, verified bool) error

	// UpdateSmsPhoneNumber sets the phone number and its verified flag.
	UpdateSmsPhoneNumber(ctx context.Context, authID, number string, verified bool) error

	// UpdateRecoveryCodeHash sets (or clears, with "") the recovery code hash.
	UpdateRecoveryCodeHash(ctx context.Context, authID, hash string) error

	// UpdateSkipPasskeyEnroll records the user's opt-out from passkey prompts.
	UpdateSkipPasskeyEnroll(ctx context.Context, authID string, skip bool) error

	// UpdateOrgSlug moves the user to another org.
	UpdateOrgSlug(ctx context.Context, authID, orgSlug string) error

	// LinkUsers sets the symmetric account link between two users.
	LinkUsers(ctx context.Context, authID, targetAuthID string) error

	// UnlinkUsers clears the link on both sides.
	UnlinkUsers(ctx context.Context, authID, targetAuthID string) error

	// SetActive enables or disables the account.
	SetActive(ctx context.Context, authID string, active bool) error
}

type Apps interface {
	// GetAppByClientID fetches an app for authorize/token validation.
	GetAppByClientID(ctx context.Context, clientID string) (domain.App, error)

	// CreateApp inserts a new app registration.
	CreateApp(ctx context.Context, a domain.App) error
}

type Orgs interface {
	// GetOrgBySlug fetches an org for the sign-in org switch.
	GetOrgBySlug(ctx context.Context, slug string) (domain.Org, error)

	// ListOrgSlugsForUser returns the orgs a user belongs to.
	ListOrgSlugsForUser(ctx context.Context, authID string) ([]string, error)

	// CreateOrg inserts a new org.
	CreateOrg(ctx context.Context, o domain.Org) error

	// AddMember records a user's membership in an org.
	AddMember(ctx context.Context, orgSlug, authID string) error
}

type Consents interface {
	// HasConsent reports whether the user already approved the app.
	HasConsent(ctx context.Context, authID, clientID string) (bool, error)

	// RecordConsent writes a consent record, idempotently.
	RecordConsent(ctx context.Context, authID, clientID string) error

	// RevokeConsent removes the record so the next authorize re-prompts.
	RevokeConsent(ctx context.Context, authID, clientID string) error
}

type SignInLogs interface {
	// AppendSignInLog writes one audit record.
	AppendSignInLog(ctx context.Context, l domain.SignInLog) error

	// DeleteSignInLogsBefore prunes records older than cutoff (housekeeping).
	DeleteSignInLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Passkeys interface {
	// CreatePasskey registers a verified credential for a user.
	CreatePasskey(ctx context.Context, p domain.Passkey) error

	// GetPasskeyByCredentialID resolves the candidate user at sign-in.
	GetPasskeyByCredentialID(ctx context.Context, credentialID string) (domain.Passkey, error)

	// ListPasskeysForUser returns the user's registered credentials.
	ListPasskeysForUser(ctx context.Context, authID string) ([]domain.Passkey, error)

	// UpdatePasskeyCounter bumps the signature counter after a verification.
	UpdatePasskeyCounter(ctx context.Context, id string, counter uint32) error

	// DeletePasskey removes one credential.
	DeletePasskey(ctx context.Context, id string) error
}
