package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/pkg/cryptox"
)

func TestVerifyCodeChallengeS256(t *testing.T) {
	challenge := cryptox.S256Challenge(testVerifier)

	require.NoError(t, VerifyCodeChallenge(testVerifier, challenge, domain.ChallengeMethodS256))
	require.ErrorIs(t,
		VerifyCodeChallenge("some-other-verifier", challenge, domain.ChallengeMethodS256),
		domain.ErrWrongCodeVerifier)
}

func TestVerifyCodeChallengePlain(t *testing.T) {
	require.NoError(t, VerifyCodeChallenge(testVerifier, testVerifier, domain.ChallengeMethodPlain))
	require.ErrorIs(t,
		VerifyCodeChallenge("wrong", testVerifier, domain.ChallengeMethodPlain),
		domain.ErrWrongCodeVerifier)
}

func TestVerifyCodeChallengeDefaultsToS256(t *testing.T) {
	challenge := cryptox.S256Challenge(testVerifier)
	require.NoError(t, VerifyCodeChallenge(testVerifier, challenge, ""))
}
