package service

import (
	"context"
	"errors"
	"time"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/store"
	"github.com/ariaauth/aria/pkg/cryptox"
	"github.com/ariaauth/aria/pkg/idx"
)

// RegistrationResult is what the ceremony verifier extracts from a WebAuthn
// attestation once it checked the signature against the issued challenge.
type RegistrationResult struct {
	CredentialID string
	PublicKey    string
	Counter      uint32
}

// AuthenticationResult is the outcome of verifying a WebAuthn assertion.
type AuthenticationResult struct {
	CredentialID string
	Counter      uint32
}

// CeremonyVerifier performs the WebAuthn ceremony cryptography. The protocol
// core issues and tracks challenges; attestation and assertion verification
// stay behind this contract so no vendor SDK leaks in.
type CeremonyVerifier interface {
	VerifyRegistration(ctx context.Context, challenge string, attestation []byte) (RegistrationResult, error)
	VerifyAuthentication(ctx context.Context, challenge string, publicKey string, counter uint32, assertion []byte) (AuthenticationResult, error)
}

// PasskeyService drives passkey enrollment and sign-in around the verifier.
// Enrollment challenges are keyed by user id, sign-in challenges by their own
// value so the submitted assertion can resolve the candidate credential.
type PasskeyService struct {
	Store     store.Store
	Ephemeral store.EphemeralStore
	Verifier  CeremonyVerifier

	ChallengeTTL time.Duration
}

func NewPasskeyService(st store.Store, ephemeral store.EphemeralStore, verifier CeremonyVerifier, cfg Config) *PasskeyService {
	return &PasskeyService{
		Store:        st,
		Ephemeral:    ephemeral,
		Verifier:     verifier,
		ChallengeTTL: cfg.MfaCodeExpiresIn,
	}
}

// BeginEnroll issues a registration challenge for the user.
func (s *PasskeyService) BeginEnroll(ctx context.Context, user *domain.User) (string, error) {
	challenge, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}

	key := store.PasskeyChallengeKey(user.AuthID)
	if err := s.Ephemeral.Put(ctx, key, challenge, s.ChallengeTTL); err != nil {
		return "", err
	}
	return challenge, nil
}

// FinishEnroll verifies the attestation against the exact challenge issued
// for this user and registers the credential. A missing challenge or a
// verifier rejection fails InvalidPasskeyEnrollRequest.
func (s *PasskeyService) FinishEnroll(ctx context.Context, user *domain.User, attestation []byte) error {
	key := store.PasskeyChallengeKey(user.AuthID)
	challenge, err := s.Ephemeral.CompareAndDelete(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ErrInvalidPasskeyEnrollRequest
	}
	if err != nil {
		return err
	}

	result, err := s.Verifier.VerifyRegistration(ctx, challenge, attestation)
	if err != nil {
		return domain.ErrInvalidPasskeyEnrollRequest
	}

	if err := s.Store.Passkeys().CreatePasskey(ctx, domain.Passkey{
		ID:           idx.New().String(),
		UserAuthID:   user.AuthID,
		CredentialID: result.CredentialID,
		PublicKey:    result.PublicKey,
		Counter:      result.Counter,
	}); err != nil {
		return err
	}

	if !user.HasMfaType(domain.MfaTypePasskey) {
		user.EnrollMfaType(domain.MfaTypePasskey)
		if err := s.Store.Users().UpdateMfaEnrollment(ctx, user.AuthID, user.MfaTypes); err != nil {
			return err
		}
	}
	return nil
}

// BeginVerify issues an authentication challenge keyed by its own value.
func (s *PasskeyService) BeginVerify(ctx context.Context) (string, error) {
	challenge, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}

	key := store.PasskeyChallengeKey(challenge)
	if err := s.Ephemeral.Put(ctx, key, challenge, s.ChallengeTTL); err != nil {
		return "", err
	}
	return challenge, nil
}

// FinishVerify consumes the challenge, resolves the credential named by the
// assertion, and verifies signature and counter. The owning user is returned
// so the caller can complete the sign-in.
func (s *PasskeyService) FinishVerify(ctx context.Context, challenge, credentialID string, assertion []byte) (*domain.User, error) {
	key := store.PasskeyChallengeKey(challenge)
	if _, err := s.Ephemeral.CompareAndDelete(ctx, key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrInvalidPasskeyVerifyRequest
		}
		return nil, err
	}

	passkey, err := s.Store.Passkeys().GetPasskeyByCredentialID(ctx, credentialID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.ErrInvalidPasskeyVerifyRequest
	}
	if err != nil {
		return nil, err
	}

	result, err := s.Verifier.VerifyAuthentication(ctx, challenge, passkey.PublicKey, passkey.Counter, assertion)
	if err != nil {
		return nil, domain.ErrInvalidPasskeyVerifyRequest
	}

	if err := s.Store.Passkeys().UpdatePasskeyCounter(ctx, passkey.ID, result.Counter); err != nil {
		return nil, err
	}

	user, err := s.Store.Users().GetUserByAuthID(ctx, passkey.UserAuthID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
