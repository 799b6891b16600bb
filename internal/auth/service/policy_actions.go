package service

import (
	"context"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/pkg/cryptox"
)

// Policy override actions. Each runs at the terminal step of its policy
// branch, then clears the policy from the attempt so the regular chain
// resumes and the code becomes exchangeable.

// ChangePassword sets a new password for the attempt's user.
func (s *AuthorizeService) ChangePassword(ctx context.Context, code, newPassword string, info ClientInfo) (*StepResult, error) {
	body, app, user, err := s.loadAttempt(ctx, code)
	if err != nil {
		return nil, err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, user.AuthID, hash); err != nil {
		return nil, err
	}

	return s.finishPolicy(ctx, code, body, app, user, info)
}

// SendChangeEmailCode mails a verification code to the address the user
// wants to switch to. Failures on the verify side count toward the
// change_email lockout.
func (s *AuthorizeService) SendChangeEmailCode(ctx context.Context, code, newEmail string) error {
	if _, _, _, err := s.loadAttempt(ctx, code); err != nil {
		return err
	}

	attemptID := cryptox.FingerprintToken(code) + ":change_email"
	if err := s.Lockout.Check(ctx, LockScopeChangeEmail, attemptID); err != nil {
		return err
	}
	return s.Mfa.SendEmailMfaCode(ctx, attemptID, newEmail)
}

// ChangeEmail verifies the code sent to the new address and moves the
// account over.
func (s *AuthorizeService) ChangeEmail(ctx context.Context, code, newEmail, verification string, info ClientInfo) (*StepResult, error) {
	body, app, user, err := s.loadAttempt(ctx, code)
	if err != nil {
		return nil, err
	}

	attemptID := cryptox.FingerprintToken(code) + ":change_email"
	if err := s.Mfa.verifyStoredCode(ctx, domain.MfaTypeEmail, LockScopeChangeEmail, attemptID, verification); err != nil {
		return nil, err
	}

	if err := s.Store.Users().UpdateEmail(ctx, user.AuthID, newEmail); err != nil {
		return nil, err
	}
	user.Email = newEmail
	body.User.Email = newEmail

	return s.finishPolicy(ctx, code, body, app, user, info)
}

// ResetMfa clears one enrolled channel after the fresh verification the
// reset_mfa branch demanded.
func (s *AuthorizeService) ResetMfa(ctx context.Context, code string, channel domain.MfaType, info ClientInfo) (*StepResult, error) {
	body, app, user, err := s.loadAttempt(ctx, code)
	if err != nil {
		return nil, err
	}

	// the reset is only reachable once the attempt has re-verified the
	// current channel
	if ResolveNextStep(s.Cfg, app, user, FlagsFromAuthCode(body), body.Request.Policy) != StepResetMfa {
		return nil, domain.ErrMfaNotVerified
	}

	remaining := make([]domain.MfaType, 0, len(user.MfaTypes))
	for _, t := range user.MfaTypes {
		if t != channel {
			remaining = append(remaining, t)
		}
	}
	user.MfaTypes = remaining
	if err := s.Store.Users().UpdateMfaEnrollment(ctx, user.AuthID, remaining); err != nil {
		return nil, err
	}

	switch channel {
	case domain.MfaTypeOtp:
		if err := s.Store.Users().UpdateOtpSecret(ctx, user.AuthID, "", false); err != nil {
			return nil, err
		}
	case domain.MfaTypeSms:
		if err := s.Store.Users().UpdateSmsPhoneNumber(ctx, user.AuthID, "", false); err != nil {
			return nil, err
		}
	}

	return s.finishPolicy(ctx, code, body, app, user, info)
}

// UpdateInfo mutates the user's profile fields.
func (s *AuthorizeService) UpdateInfo(ctx context.Context, code, firstName, lastName, locale string, info ClientInfo) (*StepResult, error) {
	body, app, user, err := s.loadAttempt(ctx, code)
	if err != nil {
		return nil, err
	}

	if s.Cfg.NamesRequired && (firstName == "" || lastName == "") {
		return nil, domain.NewValidationError()
	}
	if err := s.Store.Users().UpdateInfo(ctx, user.AuthID, firstName, lastName, locale); err != nil {
		return nil, err
	}

	return s.finishPolicy(ctx, code, body, app, user, info)
}

// RemovePasskey deletes one registered credential under the manage_passkey
// policy.
func (s *AuthorizeService) RemovePasskey(ctx context.Context, code, passkeyID string, info ClientInfo) (*StepResult, error) {
	body, app, user, err := s.loadAttempt(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := s.Store.Passkeys().DeletePasskey(ctx, passkeyID); err != nil {
		return nil, err
	}

	keys, err := s.Store.Passkeys().ListPasskeysForUser(ctx, user.AuthID)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 && user.HasMfaType(domain.MfaTypePasskey) {
		remaining := make([]domain.MfaType, 0, len(user.MfaTypes))
		for _, t := range user.MfaTypes {
			if t != domain.MfaTypePasskey {
				remaining = append(remaining, t)
			}
		}
		user.MfaTypes = remaining
		if err := s.Store.Users().UpdateMfaEnrollment(ctx, user.AuthID, remaining); err != nil {
			return nil, err
		}
	}

	return s.finishPolicy(ctx, code, body, app, user, info)
}

// SkipPasskeyEnroll records the opt-out so the enroll prompt stops.
func (s *AuthorizeService) SkipPasskeyEnroll(ctx context.Context, code string, info ClientInfo) (*StepResult, error) {
	body, app, user, err := s.loadAttempt(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := s.Store.Users().UpdateSkipPasskeyEnroll(ctx, user.AuthID, true); err != nil {
		return nil, err
	}
	user.SkipPasskeyEnroll = true

	return s.persistAndResolve(ctx, code, body, app, user, info)
}

// BeginPasskeyEnrollStep issues a registration challenge for the user behind
// the flow's code.
func (s *AuthorizeService) BeginPasskeyEnrollStep(ctx context.Context, code string) (string, error) {
	if !s.Cfg.AllowPasskeyEnrollment {
		return "", domain.ErrPasskeyEnrollmentNotEnabled
	}
	_, _, user, err := s.loadAttempt(ctx, code)
	if err != nil {
		return "", err
	}
	return s.Passkeys.BeginEnroll(ctx, user)
}

// FinishPasskeyEnrollStep verifies the attestation and resolves the flow; a
// successful enrollment satisfies the passkey prompt.
func (s *AuthorizeService) FinishPasskeyEnrollStep(ctx context.Context, code string, attestation []byte, info ClientInfo) (*StepResult, error) {
	if !s.Cfg.AllowPasskeyEnrollment {
		return nil, domain.ErrPasskeyEnrollmentNotEnabled
	}
	body, app, user, err := s.loadAttempt(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.Passkeys.FinishEnroll(ctx, user, attestation); err != nil {
		return nil, err
	}
	return s.persistAndResolve(ctx, code, body, app, user, info)
}

func (s *AuthorizeService) finishPolicy(ctx context.Context, code string, body *domain.AuthCodeBody, app *domain.App, user *domain.User, info ClientInfo) (*StepResult, error) {
	body.Request.Policy = domain.PolicySignInOrSignUp
	return s.persistAndResolve(ctx, code, body, app, user, info)
}
