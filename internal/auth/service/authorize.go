package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/store"
	"github.com/ariaauth/aria/pkg/cryptox"
	"github.com/ariaauth/aria/pkg/idx"
	"github.com/ariaauth/aria/pkg/slogx"
)

// ClientInfo carries the request origin details used for lockout keys and
// the sign-in audit log.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// AuthorizeService drives the redirect flow: request validation, the primary
// credential step, and the supplemental steps addressed by the issued
// authorization code.
type AuthorizeService struct {
	Store    store.Store
	Tokens   *TokenService
	Mfa      *MfaService
	Passkeys *PasskeyService
	Consent  *ConsentGate
	Lockout  *LockoutGuard
	Cfg      Config
}

// StepResult is the outcome of a flow step: the code the client holds and
// what it still has to do.
type StepResult struct {
	Code     string
	NextStep Step
	User     *domain.User
}

// ValidateSpaAppRequest is the RequestGuard for the redirect and embedded
// flows: the app must exist, be a SPA, be active, and own the redirect URI.
func (s *AuthorizeService) ValidateSpaAppRequest(ctx context.Context, req *domain.AuthRequest) (*domain.App, error) {
	app, err := s.Store.Apps().GetAppByClientID(ctx, req.ClientID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.ErrNoSpaAppFound
	}
	if err != nil {
		return nil, err
	}

	if app.Type != domain.AppTypeSPA {
		return nil, domain.ErrNotSpaTypeApp
	}
	if !app.IsActive {
		return nil, domain.ErrSpaAppDisabled
	}
	if !app.AllowsRedirectURI(req.RedirectURI) {
		return nil, domain.ErrWrongRedirectURI
	}
	return &app, nil
}

// ValidateS2sApp authenticates a client-credential caller.
func (s *AuthorizeService) ValidateS2sApp(ctx context.Context, clientID, clientSecret string) (*domain.App, error) {
	app, err := s.Store.Apps().GetAppByClientID(ctx, clientID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.ErrNoS2sAppFound
	}
	if err != nil {
		return nil, err
	}

	if app.Type != domain.AppTypeS2S {
		return nil, domain.ErrNotS2sTypeApp
	}
	if !app.IsActive {
		return nil, domain.ErrS2sAppDisabled
	}
	if cryptox.VerifyPassword(clientSecret, app.SecretHash) != nil {
		return nil, domain.ErrWrongS2sClientSecret
	}
	return &app, nil
}

// SignInWithPassword runs the primary credential step. On success an auth
// code is issued immediately; its body carries the remaining obligations.
func (s *AuthorizeService) SignInWithPassword(ctx context.Context, req *domain.AuthRequest, email, password string, info ClientInfo) (*StepResult, error) {
	app, err := s.ValidateSpaAppRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	lockID := PasswordLockKey(email, info.IP)
	if err := s.Lockout.Check(ctx, LockScopePassword, lockID); err != nil {
		return nil, err
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		// still burns an attempt so the counter cannot distinguish
		// unknown accounts from wrong passwords
		if lockErr := s.Lockout.RecordFailure(ctx, LockScopePassword, lockID); lockErr != nil {
			return nil, lockErr
		}
		return nil, domain.ErrNoUser
	}
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, domain.ErrUserDisabled
	}

	if cryptox.VerifyPassword(password, user.PasswordHash) != nil {
		slogx.FromContext(ctx).Info("password sign-in failed",
			slog.String("client_id", req.ClientID))
		if lockErr := s.Lockout.RecordFailure(ctx, LockScopePassword, lockID); lockErr != nil {
			return nil, lockErr
		}
		return nil, domain.ErrNoUser
	}

	if err := s.Lockout.Reset(ctx, LockScopePassword, lockID); err != nil {
		return nil, err
	}

	if req.Org != "" {
		if err := s.switchOrg(ctx, &user, req.Org); err != nil {
			return nil, err
		}
	}

	return s.issueCode(ctx, app, &user, req, info, func(body *domain.AuthCodeBody) {
		body.IsPasswordVerified = true
	})
}

// CompletePasskeySignIn turns a verified passkey assertion into an auth code.
// The passkey counts as both the primary credential and full MFA.
func (s *AuthorizeService) CompletePasskeySignIn(ctx context.Context, req *domain.AuthRequest, user *domain.User, info ClientInfo) (*StepResult, error) {
	app, err := s.ValidateSpaAppRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserDisabled
	}

	return s.issueCode(ctx, app, user, req, info, func(body *domain.AuthCodeBody) {
		body.IsPasswordVerified = true
		body.MarkMfaVerified(domain.MfaTypePasskey)
	})
}

// SignInWithRecoveryCode satisfies the credential and every MFA requirement
// in one step.
func (s *AuthorizeService) SignInWithRecoveryCode(ctx context.Context, req *domain.AuthRequest, email, code string, info ClientInfo) (*StepResult, error) {
	if !s.Cfg.EnableRecoveryCode {
		return nil, domain.ErrRecoveryCodeNotEnabled
	}

	app, err := s.ValidateSpaAppRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	user, err := s.Mfa.VerifyRecoveryCode(ctx, email, code)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserDisabled
	}

	return s.issueCode(ctx, app, user, req, info, func(body *domain.AuthCodeBody) {
		body.IsPasswordVerified = true
		body.MarkMfaVerified(domain.MfaTypePasskey)
		body.MarkMfaVerified(domain.MfaTypeOtp)
		body.MarkMfaVerified(domain.MfaTypeSms)
		body.MarkMfaVerified(domain.MfaTypeEmail)
	})
}

func (s *AuthorizeService) issueCode(ctx context.Context, app *domain.App, user *domain.User, req *domain.AuthRequest, info ClientInfo, mark func(*domain.AuthCodeBody)) (*StepResult, error) {
	body := &domain.AuthCodeBody{
		Request: *req,
		User:    domain.UserSnapshot{AuthID: user.AuthID, Email: user.Email},
	}
	mark(body)

	// consent granted in an earlier authorization carries over
	if s.Cfg.EnableUserAppConsent {
		consented, err := s.Consent.Check(ctx, user.AuthID, app.ClientID)
		if err != nil {
			return nil, err
		}
		body.IsConsented = consented
	}

	code, err := s.Tokens.GenAuthCode(ctx, body)
	if err != nil {
		return nil, err
	}

	next := ResolveNextStep(s.Cfg, app, user, FlagsFromAuthCode(body), req.Policy)
	if next == StepComplete {
		s.maybeLogSignIn(ctx, user.AuthID, app.ClientID, info)
	}

	return &StepResult{Code: code, NextStep: next, User: user}, nil
}

// ConsentStep records the user's decision for the code's app. Denial fails
// NoConsent and leaves the code usable for a retry.
func (s *AuthorizeService) ConsentStep(ctx context.Context, code string, granted bool, info ClientInfo) (*StepResult, error) {
	body, app, user, err := s.loadAttempt(ctx, code)
	if err != nil {
		return nil, err
	}

	if !granted {
		return nil, domain.ErrNoConsent
	}

	if err := s.Consent.Record(ctx, user.AuthID, app.ClientID); err != nil {
		return nil, err
	}
	body.IsConsented = true

	return s.persistAndResolve(ctx, code, body, app, user, info)
}

// SendMfaCode dispatches a one-time code for the email or SMS channel of the
// attempt identified by the auth code.
func (s *AuthorizeService) SendMfaCode(ctx context.Context, code string, channel domain.MfaType) error {
	body, _, user, err := s.loadAttempt(ctx, code)
	if err != nil {
		return err
	}

	attemptID := cryptox.FingerprintToken(code)
	switch channel {
	case domain.MfaTypeEmail:
		return s.Mfa.SendEmailMfaCode(ctx, attemptID, body.User.Email)
	case domain.MfaTypeSms:
		return s.Mfa.SendSmsMfaCode(ctx, attemptID, user.SmsPhoneNumber)
	default:
		return domain.NewValidationError()
	}
}

// VerifyMfaStep checks a submitted code for the channel and marks it
// verified on the attempt.
func (s *AuthorizeService) VerifyMfaStep(ctx context.Context, code string, channel domain.MfaType, submitted string, info ClientInfo) (*StepResult, error) {
	body, app, user, err := s.loadAttempt(ctx, code)
	if err != nil {
		return nil, err
	}

	attemptID := cryptox.FingerprintToken(code)
	switch channel {
	case domain.MfaTypeEmail:
		if err := s.Mfa.VerifyEmailMfaCode(ctx, attemptID, submitted); err != nil {
			return nil, err
		}
		if err := s.Mfa.ConfirmEmailEnrollment(ctx, user); err != nil {
			return nil, err
		}
	case domain.MfaTypeSms:
		if err := s.Mfa.VerifySmsMfaCode(ctx, attemptID, submitted); err != nil {
			return nil, err
		}
		if err := s.Mfa.ConfirmSmsEnrollment(ctx, user); err != nil {
			return nil, err
		}
	case domain.MfaTypeOtp:
		if err := s.Mfa.VerifyOtp(ctx, user, attemptID, submitted); err != nil {
			return nil, err
		}
	default:
		return nil, domain.NewValidationError()
	}

	body.MarkMfaVerified(channel)
	return s.persistAndResolve(ctx, code, body, app, user, info)
}

// EnrollMfaStep handles the mfa_enroll step: the user picks one channel from
// the enforced set. TOTP returns the secret and otpauth URL; SMS stores the
// number and sends the first code.
func (s *AuthorizeService) EnrollMfaStep(ctx context.Context, code string, channel domain.MfaType, phoneNumber string) (secret, otpauthURL string, err error) {
	body, _, user, err := s.loadAttempt(ctx, code)
	if err != nil {
		return "", "", err
	}

	attemptID := cryptox.FingerprintToken(code)
	switch channel {
	case domain.MfaTypeOtp:
		return s.Mfa.EnrollOtp(ctx, user)
	case domain.MfaTypeSms:
		if err := s.Mfa.EnrollSmsNumber(ctx, user, phoneNumber); err != nil {
			return "", "", err
		}
		return "", "", s.Mfa.SendSmsMfaCode(ctx, attemptID, phoneNumber)
	case domain.MfaTypeEmail:
		return "", "", s.Mfa.SendEmailMfaCode(ctx, attemptID, body.User.Email)
	default:
		return "", "", domain.NewValidationError()
	}
}

// AllowFallbackToEmailMfa exposes the fallback decision to the step views.
func (s *AuthorizeService) AllowFallbackToEmailMfa(app *domain.App, user *domain.User) bool {
	return allowFallbackToEmailMfa(effectiveMfaConfig(s.Cfg, app), user)
}

func (s *AuthorizeService) loadAttempt(ctx context.Context, code string) (*domain.AuthCodeBody, *domain.App, *domain.User, error) {
	body, err := s.Tokens.GetAuthCode(ctx, code)
	if err != nil {
		return nil, nil, nil, err
	}

	app, err := s.Store.Apps().GetAppByClientID(ctx, body.Request.ClientID)
	if err != nil {
		return nil, nil, nil, domain.ErrWrongAuthCode
	}

	user, err := s.Store.Users().GetUserByAuthID(ctx, body.User.AuthID)
	if err != nil {
		return nil, nil, nil, domain.ErrNoUser
	}

	return body, &app, &user, nil
}

func (s *AuthorizeService) persistAndResolve(ctx context.Context, code string, body *domain.AuthCodeBody, app *domain.App, user *domain.User, info ClientInfo) (*StepResult, error) {
	if err := s.Tokens.PutAuthCode(ctx, code, body); err != nil {
		return nil, err
	}

	next := ResolveNextStep(s.Cfg, app, user, FlagsFromAuthCode(body), body.Request.Policy)
	if next == StepComplete {
		s.maybeLogSignIn(ctx, user.AuthID, app.ClientID, info)
	}
	return &StepResult{Code: code, NextStep: next, User: user}, nil
}

// switchOrg validates the requested org against the user's memberships and,
// when allowed, moves the user there. An org outside the membership fails
// NoOrg regardless of whether the org exists.
func (s *AuthorizeService) switchOrg(ctx context.Context, user *domain.User, slug string) error {
	if !s.Cfg.EnableOrg {
		return domain.ErrOrgNotEnabled
	}
	if slug == user.OrgSlug {
		return nil
	}

	slugs, err := s.Store.Orgs().ListOrgSlugsForUser(ctx, user.AuthID)
	if err != nil {
		return err
	}
	member := false
	for _, m := range slugs {
		if m == slug {
			member = true
			break
		}
	}
	if !member {
		return domain.ErrNoOrg
	}

	org, err := s.Store.Orgs().GetOrgBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrNoOrg
		}
		return err
	}
	if !org.IsActive {
		return domain.ErrNoOrg
	}

	if !s.Cfg.AllowUserSwitchOrgOnSignIn {
		return domain.ErrNoOrg
	}

	if err := s.Store.Users().UpdateOrgSlug(ctx, user.AuthID, slug); err != nil {
		return err
	}
	user.OrgSlug = slug
	return nil
}

func (s *AuthorizeService) maybeLogSignIn(ctx context.Context, authID, clientID string, info ClientInfo) {
	if !s.Cfg.EnableSignInLog {
		return
	}
	err := s.Store.SignInLogs().AppendSignInLog(ctx, domain.SignInLog{
		ID:         idx.New().String(),
		UserAuthID: authID,
		ClientID:   clientID,
		IP:         info.IP,
		UserAgent:  info.UserAgent,
	})
	if err != nil {
		slogx.FromContext(ctx).Warn("sign-in log write failed", slog.Any("error", err))
	}
}
