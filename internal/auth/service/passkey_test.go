package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ariaauth/aria/internal/auth/domain"
)

func TestPasskeyEnrollLifecycle(t *testing.T) {
	env := newTestEnv(t, Defaults())
	ctx := context.Background()
	user := env.seedUser(t)

	challenge, err := env.passkeys.BeginEnroll(ctx, &user)
	require.NoError(t, err)
	require.NotEmpty(t, challenge)

	require.NoError(t, env.passkeys.FinishEnroll(ctx, &user, []byte("attestation")))
	require.True(t, user.HasMfaType(domain.MfaTypePasskey))

	keys, err := env.store.ListPasskeysForUser(ctx, user.AuthID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.Equal(t, "cred-1", keys[0].CredentialID)

	// the challenge was consumed; finishing again needs a fresh one
	err = env.passkeys.FinishEnroll(ctx, &user, []byte("attestation"))
	require.ErrorIs(t, err, domain.ErrInvalidPasskeyEnrollRequest)
}

func TestPasskeyEnrollVerifierRejection(t *testing.T) {
	env := newTestEnv(t, Defaults())
	ctx := context.Background()
	user := env.seedUser(t)
	env.passkeys.Verifier.(*stubVerifier).fail = true

	_, err := env.passkeys.BeginEnroll(ctx, &user)
	require.NoError(t, err)

	err = env.passkeys.FinishEnroll(ctx, &user, []byte("bad attestation"))
	require.ErrorIs(t, err, domain.ErrInvalidPasskeyEnrollRequest)
	require.False(t, user.HasMfaType(domain.MfaTypePasskey))
}

func TestPasskeyVerifyLifecycle(t *testing.T) {
	env := newTestEnv(t, Defaults())
	ctx := context.Background()
	user := env.seedUser(t)

	_, err := env.passkeys.BeginEnroll(ctx, &user)
	require.NoError(t, err)
	require.NoError(t, env.passkeys.FinishEnroll(ctx, &user, []byte("attestation")))

	challenge, err := env.passkeys.BeginVerify(ctx)
	require.NoError(t, err)

	got, err := env.passkeys.FinishVerify(ctx, challenge, "cred-1", []byte("assertion"))
	require.NoError(t, err)
	require.Equal(t, user.AuthID, got.AuthID)

	// the signature counter moved forward
	keys, err := env.store.ListPasskeysForUser(ctx, user.AuthID)
	require.NoError(t, err)
	require.EqualValues(t, 1, keys[0].Counter)

	// challenges are single use
	_, err = env.passkeys.FinishVerify(ctx, challenge, "cred-1", []byte("assertion"))
	require.ErrorIs(t, err, domain.ErrInvalidPasskeyVerifyRequest)
}

func TestPasskeyVerifyUnknownCredential(t *testing.T) {
	env := newTestEnv(t, Defaults())
	ctx := context.Background()

	challenge, err := env.passkeys.BeginVerify(ctx)
	require.NoError(t, err)

	_, err = env.passkeys.FinishVerify(ctx, challenge, "unknown-cred", []byte("assertion"))
	require.ErrorIs(t, err, domain.ErrInvalidPasskeyVerifyRequest)
}

func TestCompletePasskeySignIn(t *testing.T) {
	cfg := Defaults()
	cfg.OtpMfaRequired = true
	env := newTestEnv(t, cfg)
	ctx := context.Background()
	env.seedApp(t)
	user := env.seedUser(t, func(u *domain.User) {
		u.MfaTypes = []domain.MfaType{domain.MfaTypeOtp, domain.MfaTypePasskey}
	})

	// the passkey satisfies both the credential and the MFA requirement
	res, err := env.auth.CompletePasskeySignIn(ctx, testAuthRequest(), &user, testClient)
	require.NoError(t, err)
	require.Equal(t, StepComplete, res.NextStep)

	bundle, err := env.auth.ExchangeAuthCode(ctx, res.Code, testVerifier)
	require.NoError(t, err)
	require.NotEmpty(t, bundle.Access.Token)
}
