package domain

import "time"

// Org is a tenant a user can sign in under.
type Org struct {
	ID        string
	Slug      string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// Consent records that a user approved an app's requested access once;
// subsequent authorizations skip the consent step.
type Consent struct {
	UserAuthID string
	ClientID   string
	CreatedAt  time.Time
}

// SignInLog is an append-only audit record written when an authorization
// attempt completes.
type SignInLog struct {
	ID         string
	UserAuthID string
	ClientID   string
	IP         string
	UserAgent  string
	CreatedAt  time.Time
}

// Passkey is a registered WebAuthn credential. The ceremony internals stay
// behind the verifier collaborator; this record only binds the credential to
// a user and tracks its signature counter.
type Passkey struct {
	ID           string
	UserAuthID   string
	CredentialID string
	PublicKey    string
	Counter      uint32
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
