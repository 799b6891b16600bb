package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/notify"
	"github.com/ariaauth/aria/internal/auth/store"
	"github.com/ariaauth/aria/pkg/cryptox"
	"github.com/ariaauth/aria/pkg/slogx"
)

// MfaService implements per-channel enroll and verify. Email and SMS codes
// live in the ephemeral store keyed by the attempt's session or code id; the
// TOTP secret and recovery code hash are durable on the user record.
type MfaService struct {
	Store     store.Store
	Ephemeral store.EphemeralStore
	Notifier  notify.Notifier
	Lockout   *LockoutGuard
	Issuer    string

	CodeTTL time.Duration
}

func NewMfaService(st store.Store, ephemeral store.EphemeralStore, notifier notify.Notifier, lockout *LockoutGuard, issuer string, cfg Config) *MfaService {
	return &MfaService{
		Store:     st,
		Ephemeral: ephemeral,
		Notifier:  notifier,
		Lockout:   lockout,
		Issuer:    issuer,
		CodeTTL:   cfg.MfaCodeExpiresIn,
	}
}

// SendEmailMfaCode generates a one-time code for the attempt and dispatches
// it. Re-sending overwrites the previous code.
func (s *MfaService) SendEmailMfaCode(ctx context.Context, attemptID, email string) error {
	code, err := cryptox.GenerateNumericCode(cryptox.NumericCodeLength)
	if err != nil {
		return err
	}

	key := store.MfaCodeKey(string(domain.MfaTypeEmail), attemptID)
	if err := s.Ephemeral.Put(ctx, key, code, s.CodeTTL); err != nil {
		return err
	}

	if err := s.Notifier.SendEmail(ctx, email, "Your verification code", mfaCodeEmailBody(code)); err != nil {
		slogx.FromContext(ctx).Error("email mfa code delivery failed", slog.Any("error", err))
		return err
	}
	return nil
}

// VerifyEmailMfaCode checks the submitted code. Mismatch counts toward the
// email lockout and fails WrongMfaCode; the stored code survives mismatches
// so the user can retry until lockout. Success consumes it.
func (s *MfaService) VerifyEmailMfaCode(ctx context.Context, attemptID, submitted string) error {
	return s.verifyStoredCode(ctx, domain.MfaTypeEmail, LockScopeEmailMfa, attemptID, submitted)
}

// SendSmsMfaCode generates and dispatches a one-time code to the user's
// verified phone number.
func (s *MfaService) SendSmsMfaCode(ctx context.Context, attemptID, phoneNumber string) error {
	code, err := cryptox.GenerateNumericCode(cryptox.NumericCodeLength)
	if err != nil {
		return err
	}

	key := store.MfaCodeKey(string(domain.MfaTypeSms), attemptID)
	if err := s.Ephemeral.Put(ctx, key, code, s.CodeTTL); err != nil {
		return err
	}

	if err := s.Notifier.SendSms(ctx, phoneNumber, "Your verification code is "+code); err != nil {
		slogx.FromContext(ctx).Error("sms mfa code delivery failed", slog.Any("error", err))
		return err
	}
	return nil
}

// VerifySmsMfaCode checks a submitted SMS code against the stored one.
func (s *MfaService) VerifySmsMfaCode(ctx context.Context, attemptID, submitted string) error {
	return s.verifyStoredCode(ctx, domain.MfaTypeSms, LockScopeSmsMfa, attemptID, submitted)
}

func (s *MfaService) verifyStoredCode(ctx context.Context, channel domain.MfaType, lockScope, attemptID, submitted string) error {
	if err := s.Lockout.Check(ctx, lockScope, attemptID); err != nil {
		return err
	}

	key := store.MfaCodeKey(string(channel), attemptID)
	stored, err := s.Ephemeral.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ErrWrongMfaCode
	}
	if err != nil {
		return err
	}

	if !cryptox.ConstantTimeEquals(stored, submitted) {
		if lockErr := s.Lockout.RecordFailure(ctx, lockScope, attemptID); lockErr != nil {
			return lockErr
		}
		return domain.ErrWrongMfaCode
	}

	// single use
	if err := s.Ephemeral.Delete(ctx, key); err != nil {
		return err
	}
	return s.Lockout.Reset(ctx, lockScope, attemptID)
}

// EnrollOtp issues a fresh TOTP secret for the user and persists it
// unverified. The otpauth URL feeds the authenticator QR code.
func (s *MfaService) EnrollOtp(ctx context.Context, user *domain.User) (secret, otpauthURL string, err error) {
	generated, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Email,
	})
	if err != nil {
		return "", "", err
	}

	if err := s.Store.Users().UpdateOtpSecret(ctx, user.AuthID, generated.Secret(), false); err != nil {
		return "", "", err
	}
	user.OtpSecret = generated.Secret()
	user.OtpVerified = false

	return generated.Secret(), generated.URL(), nil
}

// VerifyOtp validates a 6-digit TOTP code against the user's stored secret,
// accepting the current and adjacent 30s windows. An absent secret fails
// immediately; a wrong code counts toward the otp lockout.
func (s *MfaService) VerifyOtp(ctx context.Context, user *domain.User, attemptID, code string) error {
	if err := s.Lockout.Check(ctx, LockScopeOtpMfa, attemptID); err != nil {
		return err
	}

	if user.OtpSecret == "" {
		return domain.ErrWrongMfaCode
	}

	ok, err := totp.ValidateCustom(code, user.OtpSecret, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !ok {
		if lockErr := s.Lockout.RecordFailure(ctx, LockScopeOtpMfa, attemptID); lockErr != nil {
			return lockErr
		}
		return domain.ErrWrongMfaCode
	}

	if !user.OtpVerified {
		if err := s.Store.Users().UpdateOtpSecret(ctx, user.AuthID, user.OtpSecret, true); err != nil {
			return err
		}
		user.OtpVerified = true
	}
	if !user.HasMfaType(domain.MfaTypeOtp) {
		user.EnrollMfaType(domain.MfaTypeOtp)
		if err := s.Store.Users().UpdateMfaEnrollment(ctx, user.AuthID, user.MfaTypes); err != nil {
			return err
		}
	}

	return s.Lockout.Reset(ctx, LockScopeOtpMfa, attemptID)
}

// EnrollSmsNumber stores the phone number an SMS code was just sent to; the
// number flips to verified when the first code round-trips.
func (s *MfaService) EnrollSmsNumber(ctx context.Context, user *domain.User, phoneNumber string) error {
	if err := s.Store.Users().UpdateSmsPhoneNumber(ctx, user.AuthID, phoneNumber, false); err != nil {
		return err
	}
	user.SmsPhoneNumber = phoneNumber
	user.SmsPhoneNumberVerified = false
	return nil
}

// ConfirmSmsEnrollment marks the number verified and records the enrollment.
func (s *MfaService) ConfirmSmsEnrollment(ctx context.Context, user *domain.User) error {
	if !user.SmsPhoneNumberVerified {
		if err := s.Store.Users().UpdateSmsPhoneNumber(ctx, user.AuthID, user.SmsPhoneNumber, true); err != nil {
			return err
		}
		user.SmsPhoneNumberVerified = true
	}
	if !user.HasMfaType(domain.MfaTypeSms) {
		user.EnrollMfaType(domain.MfaTypeSms)
		if err := s.Store.Users().UpdateMfaEnrollment(ctx, user.AuthID, user.MfaTypes); err != nil {
			return err
		}
	}
	return nil
}

// ConfirmEmailEnrollment records email MFA enrollment after a verified code.
func (s *MfaService) ConfirmEmailEnrollment(ctx context.Context, user *domain.User) error {
	if user.HasMfaType(domain.MfaTypeEmail) {
		return nil
	}
	user.EnrollMfaType(domain.MfaTypeEmail)
	return s.Store.Users().UpdateMfaEnrollment(ctx, user.AuthID, user.MfaTypes)
}

// EnrollRecoveryCode mints the single 24-character recovery code. It can be
// set once; resetting requires an explicit administrative clear.
func (s *MfaService) EnrollRecoveryCode(ctx context.Context, user *domain.User) (string, error) {
	if user.RecoveryCodeHash != "" {
		return "", domain.ErrRecoveryCodeAlreadySet
	}

	code, err := cryptox.GenerateRecoveryCode()
	if err != nil {
		return "", err
	}

	hash := cryptox.FingerprintToken(code)
	if err := s.Store.Users().UpdateRecoveryCodeHash(ctx, user.AuthID, hash); err != nil {
		return "", err
	}
	user.RecoveryCodeHash = hash
	return code, nil
}

// VerifyRecoveryCode resolves the (email, code) pair. On match the code is
// consumed and the caller treats the whole MFA requirement as satisfied.
func (s *MfaService) VerifyRecoveryCode(ctx context.Context, email, code string) (*domain.User, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.ErrNoUser
	}
	if err != nil {
		return nil, err
	}

	if user.RecoveryCodeHash == "" ||
		!cryptox.ConstantTimeEquals(cryptox.FingerprintToken(code), user.RecoveryCodeHash) {
		return nil, domain.ErrNoUser
	}

	// one shot: clear so the same code can never be replayed
	if err := s.Store.Users().UpdateRecoveryCodeHash(ctx, user.AuthID, ""); err != nil {
		return nil, err
	}
	user.RecoveryCodeHash = ""
	return &user, nil
}

func mfaCodeEmailBody(code string) string {
	return "<p>Your verification code is <strong>" + code + "</strong>. It expires in a few minutes.</p>"
}
