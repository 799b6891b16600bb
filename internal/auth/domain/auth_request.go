package domain

// CodeChallengeMethod values. Verification treats anything other than
// "plain" as s256; s256 is also the default when no method was declared.
const (
	ChallengeMethodS256  = "s256"
	ChallengeMethodPlain = "plain"
)

// Policy selects a non-default authentication purpose layered onto an
// already-authenticated session.
type Policy string

const (
	PolicySignInOrSignUp Policy = "sign_in_or_sign_up"
	PolicyChangePassword Policy = "change_password"
	PolicyChangeEmail    Policy = "change_email"
	PolicyResetMfa       Policy = "reset_mfa"
	PolicyUpdateInfo     Policy = "update_info"
	PolicyManagePasskey  Policy = "manage_passkey"
)

// AuthRequest carries the validated parameters of an authorization attempt.
// It is embedded verbatim in both the auth-code body and the embedded
// session so later steps never re-read query parameters.
type AuthRequest struct {
	ClientID            string   `json:"clientId"`
	RedirectURI         string   `json:"redirectUri"`
	ResponseType        string   `json:"responseType"`
	State               string   `json:"state"`
	Scopes              []string `json:"scopes"`
	CodeChallenge       string   `json:"codeChallenge"`
	CodeChallengeMethod string   `json:"codeChallengeMethod"`
	Locale              string   `json:"locale,omitempty"`
	Org                 string   `json:"org,omitempty"`
	Policy              Policy   `json:"policy,omitempty"`
}

// HasScope reports whether the request asked for the named scope.
func (r *AuthRequest) HasScope(scope string) bool {
	for _, s := range r.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
