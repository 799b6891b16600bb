package service

import (
	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/pkg/cryptox"
)

// VerifyCodeChallenge checks a PKCE verifier against the stored challenge
// under the declared method. No side effects.
func VerifyCodeChallenge(verifier, storedChallenge, method string) error {
	var candidate string
	switch method {
	case domain.ChallengeMethodPlain:
		candidate = verifier
	default:
		// s256 is also the fallback when no method was declared
		candidate = cryptox.S256Challenge(verifier)
	}

	if !cryptox.ConstantTimeEquals(candidate, storedChallenge) {
		return domain.ErrWrongCodeVerifier
	}
	return nil
}
