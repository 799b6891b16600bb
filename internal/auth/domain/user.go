package domain

import "time"

// User is the durable account record. AuthID is the stable subject used in
// token claims; Email is the sign-in identifier.
type User struct {
	AuthID       string
	Email        string
	PasswordHash string // argon2 encoded
	FirstName    string
	LastName     string
	Locale       string
	Roles        []string

	MfaTypes               []MfaType
	OtpSecret              string // base32, set on TOTP enrollment
	OtpVerified            bool
	SmsPhoneNumber         string
	SmsPhoneNumberVerified bool
	EmailVerified          bool
	SkipPasskeyEnroll      bool
	RecoveryCodeHash       string

	OrgSlug      string
	IsActive     bool
	LinkedAuthID string // symmetric account link, at most one per user

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasMfaType reports whether the user has enrolled the named channel.
func (u *User) HasMfaType(t MfaType) bool {
	for _, m := range u.MfaTypes {
		if m == t {
			return true
		}
	}
	return false
}

// EnrollMfaType records an enrollment, once.
func (u *User) EnrollMfaType(t MfaType) {
	if !u.HasMfaType(t) {
		u.MfaTypes = append(u.MfaTypes, t)
	}
}
