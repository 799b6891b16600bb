package domain

// EmbeddedSession is the server-held substitute for an authorization code in
// the SPA flow. Keyed by a random session id, it spans multiple round trips
// (sign-in, MFA, consent, exchange) so it lives longer than an auth code but
// carries the same completion flags.
type EmbeddedSession struct {
	SessionID   string      `json:"sessionId"`
	AppClientID string      `json:"appClientId"`
	AppName     string      `json:"appName"`
	Request     AuthRequest `json:"request"`

	// UserID is empty until the primary credential resolves a user.
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email,omitempty"`

	IsPasswordVerified     bool      `json:"isPasswordVerified"`
	IsPasswordlessVerified bool      `json:"isPasswordlessVerified"`
	MfaVerifiedTypes       []MfaType `json:"mfaVerifiedTypes"`
	IsConsented            bool      `json:"isConsented"`
}

func (s *EmbeddedSession) HasMfaVerified(t MfaType) bool {
	for _, v := range s.MfaVerifiedTypes {
		if v == t {
			return true
		}
	}
	return false
}

func (s *EmbeddedSession) MarkMfaVerified(t MfaType) {
	if !s.HasMfaVerified(t) {
		s.MfaVerifiedTypes = append(s.MfaVerifiedTypes, t)
	}
}

func (s *EmbeddedSession) CredentialVerified() bool {
	return s.IsPasswordVerified || s.IsPasswordlessVerified
}
