package domain

// UserSnapshot is the slice of user state frozen into an auth-code body when
// the primary credential succeeds. Token minting reloads the full user; the
// snapshot only identifies them.
type UserSnapshot struct {
	AuthID string `json:"authId"`
	Email  string `json:"email"`
}

// AuthCodeBody is the ephemeral state behind an issued authorization code.
// It is created once the primary credential step succeeds and consumed
// exactly once by the token endpoint. Supplemental steps (consent, MFA)
// mutate the completion flags in place before exchange.
type AuthCodeBody struct {
	Request AuthRequest  `json:"request"`
	User    UserSnapshot `json:"user"`

	IsPasswordVerified     bool      `json:"isPasswordVerified"`
	IsPasswordlessVerified bool      `json:"isPasswordlessVerified"`
	MfaVerifiedTypes       []MfaType `json:"mfaVerifiedTypes"`
	IsConsented            bool      `json:"isConsented"`
}

// HasMfaVerified reports whether the named channel has been verified in this
// authorization attempt.
func (b *AuthCodeBody) HasMfaVerified(t MfaType) bool {
	for _, v := range b.MfaVerifiedTypes {
		if v == t {
			return true
		}
	}
	return false
}

// MarkMfaVerified records a verified channel, once.
func (b *AuthCodeBody) MarkMfaVerified(t MfaType) {
	if !b.HasMfaVerified(t) {
		b.MfaVerifiedTypes = append(b.MfaVerifiedTypes, t)
	}
}

// CredentialVerified reports whether a primary credential has been presented,
// by password or by a passwordless email code.
func (b *AuthCodeBody) CredentialVerified() bool {
	return b.IsPasswordVerified || b.IsPasswordlessVerified
}
