package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/store"
	"github.com/ariaauth/aria/pkg/cryptox"
	"github.com/ariaauth/aria/pkg/idx"
)

// EmbeddedService mirrors the redirect flow for SPAs that cannot redirect:
// every step is addressed by an opaque server-held session id instead of an
// auth code, and the session spans the whole conversation up to the token
// exchange.
type EmbeddedService struct {
	Auth *AuthorizeService
}

// SessionStepResult reports a step outcome to the embedded client.
type SessionStepResult struct {
	SessionID string
	NextStep  Step
	User      *domain.User
}

func (s *EmbeddedService) cfg() Config { return s.Auth.Cfg }

// Initiate validates the AuthRequest exactly like authorize and creates the
// session.
func (s *EmbeddedService) Initiate(ctx context.Context, req *domain.AuthRequest) (*SessionStepResult, error) {
	if !s.cfg().EnableEmbeddedAuth {
		return nil, domain.ErrEmbeddedAuthFeatureNotEnabled
	}

	app, err := s.Auth.ValidateSpaAppRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	session := &domain.EmbeddedSession{
		SessionID:   idx.New().String(),
		AppClientID: app.ClientID,
		AppName:     app.Name,
		Request:     *req,
	}
	if err := s.putSession(ctx, session); err != nil {
		return nil, err
	}

	return &SessionStepResult{SessionID: session.SessionID, NextStep: ""}, nil
}

// SignIn runs the password step against the session.
func (s *EmbeddedService) SignIn(ctx context.Context, sessionID, email, password string, info ClientInfo) (*SessionStepResult, error) {
	session, app, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	lockID := PasswordLockKey(email, info.IP)
	if err := s.Auth.Lockout.Check(ctx, LockScopePassword, lockID); err != nil {
		return nil, err
	}

	user, err := s.Auth.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		if lockErr := s.Auth.Lockout.RecordFailure(ctx, LockScopePassword, lockID); lockErr != nil {
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
		if lockErr := s.Auth.Lockout.RecordFailure(ctx, LockScopePassword, lockID); lockErr != nil {
			return nil, lockErr
		}
		return nil, domain.ErrNoUser
	}
	if err := s.Auth.Lockout.Reset(ctx, LockScopePassword, lockID); err != nil {
		return nil, err
	}

	if session.Request.Org != "" {
		if err := s.Auth.switchOrg(ctx, &user, session.Request.Org); err != nil {
			return nil, err
		}
	}

	session.UserID = user.AuthID
	session.Email = user.Email
	session.IsPasswordVerified = true

	return s.resolveSession(ctx, session, app, &user, info)
}

// SignUp creates the account and continues the flow with the new user.
func (s *EmbeddedService) SignUp(ctx context.Context, sessionID, email, password, firstName, lastName string, info ClientInfo) (*SessionStepResult, error) {
	if !s.cfg().EnableSignUp {
		return nil, domain.ErrSignUpNotEnabled
	}

	session, app, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if s.cfg().EnableNames && s.cfg().NamesRequired && (firstName == "" || lastName == "") {
		return nil, domain.NewValidationError()
	}
	if !s.cfg().EnableNames {
		firstName, lastName = "", ""
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := domain.User{
		AuthID:       idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Locale:       session.Request.Locale,
		IsActive:     true,
	}
	if err := s.Auth.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domain.NewValidationError()
		}
		return nil, err
	}

	session.UserID = user.AuthID
	session.Email = user.Email
	session.IsPasswordVerified = true

	return s.resolveSession(ctx, session, app, &user, info)
}

// SendPasswordlessCode starts a passwordless sign-in by mailing a one-time
// code to the account's address.
func (s *EmbeddedService) SendPasswordlessCode(ctx context.Context, sessionID, email string) error {
	if !s.cfg().EnablePasswordlessSignIn {
		return domain.ErrPasswordlessSignInNotEnabled
	}

	session, _, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}

	user, err := s.Auth.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ErrNoUser
	}
	if err != nil {
		return err
	}

	session.UserID = user.AuthID
	session.Email = user.Email
	if err := s.putSession(ctx, session); err != nil {
		return err
	}

	return s.Auth.Mfa.SendEmailMfaCode(ctx, session.SessionID+":passwordless", user.Email)
}

// VerifyPasswordlessCode completes the passwordless credential step.
func (s *EmbeddedService) VerifyPasswordlessCode(ctx context.Context, sessionID, code string, info ClientInfo) (*SessionStepResult, error) {
	if !s.cfg().EnablePasswordlessSignIn {
		return nil, domain.ErrPasswordlessSignInNotEnabled
	}

	session, app, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID == "" {
		return nil, domain.ErrPasswordlessNotVerified
	}

	if err := s.Auth.Mfa.VerifyEmailMfaCode(ctx, session.SessionID+":passwordless", code); err != nil {
		return nil, err
	}

	user, err := s.Auth.Store.Users().GetUserByAuthID(ctx, session.UserID)
	if err != nil {
		return nil, domain.ErrNoUser
	}

	session.IsPasswordlessVerified = true
	// the code round-tripped through the mailbox, so email MFA is done too
	session.MarkMfaVerified(domain.MfaTypeEmail)

	return s.resolveSession(ctx, session, app, &user, info)
}

// Consent records the app-consent decision for the session.
func (s *EmbeddedService) Consent(ctx context.Context, sessionID string, granted bool, info ClientInfo) (*SessionStepResult, error) {
	session, app, user, err := s.loadSessionWithUser(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !granted {
		return nil, domain.ErrNoConsent
	}
	if err := s.Auth.Consent.Record(ctx, user.AuthID, app.ClientID); err != nil {
		return nil, err
	}
	session.IsConsented = true

	return s.resolveSession(ctx, session, app, user, info)
}

// SendMfaCode dispatches a code for the email or SMS channel of the session.
func (s *EmbeddedService) SendMfaCode(ctx context.Context, sessionID string, channel domain.MfaType) error {
	session, _, user, err := s.loadSessionWithUser(ctx, sessionID)
	if err != nil {
		return err
	}

	switch channel {
	case domain.MfaTypeEmail:
		return s.Auth.Mfa.SendEmailMfaCode(ctx, session.SessionID, session.Email)
	case domain.MfaTypeSms:
		return s.Auth.Mfa.SendSmsMfaCode(ctx, session.SessionID, user.SmsPhoneNumber)
	default:
		return domain.NewValidationError()
	}
}

// VerifyMfa checks a submitted code for the channel and advances the
// session.
func (s *EmbeddedService) VerifyMfa(ctx context.Context, sessionID string, channel domain.MfaType, submitted string, info ClientInfo) (*SessionStepResult, error) {
	session, app, user, err := s.loadSessionWithUser(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch channel {
	case domain.MfaTypeEmail:
		if err := s.Auth.Mfa.VerifyEmailMfaCode(ctx, session.SessionID, submitted); err != nil {
			return nil, err
		}
		if err := s.Auth.Mfa.ConfirmEmailEnrollment(ctx, user); err != nil {
			return nil, err
		}
	case domain.MfaTypeSms:
		if err := s.Auth.Mfa.VerifySmsMfaCode(ctx, session.SessionID, submitted); err != nil {
			return nil, err
		}
		if err := s.Auth.Mfa.ConfirmSmsEnrollment(ctx, user); err != nil {
			return nil, err
		}
	case domain.MfaTypeOtp:
		if err := s.Auth.Mfa.VerifyOtp(ctx, user, session.SessionID, submitted); err != nil {
			return nil, err
		}
	default:
		return nil, domain.NewValidationError()
	}

	session.MarkMfaVerified(channel)
	return s.resolveSession(ctx, session, app, user, info)
}

// EnrollMfa handles the mfa-enrollment step for the session.
func (s *EmbeddedService) EnrollMfa(ctx context.Context, sessionID string, channel domain.MfaType, phoneNumber string) (secret, otpauthURL string, err error) {
	session, _, user, err := s.loadSessionWithUser(ctx, sessionID)
	if err != nil {
		return "", "", err
	}

	switch channel {
	case domain.MfaTypeOtp:
		return s.Auth.Mfa.EnrollOtp(ctx, user)
	case domain.MfaTypeSms:
		if err := s.Auth.Mfa.EnrollSmsNumber(ctx, user, phoneNumber); err != nil {
			return "", "", err
		}
		return "", "", s.Auth.Mfa.SendSmsMfaCode(ctx, session.SessionID, phoneNumber)
	case domain.MfaTypeEmail:
		return "", "", s.Auth.Mfa.SendEmailMfaCode(ctx, session.SessionID, session.Email)
	default:
		return "", "", domain.NewValidationError()
	}
}

// TokenExchange verifies PKCE and consumes the session atomically, minting
// the token bundle.
func (s *EmbeddedService) TokenExchange(ctx context.Context, sessionID, codeVerifier string) (*TokenBundle, error) {
	if !s.cfg().EnableEmbeddedAuth {
		return nil, domain.ErrEmbeddedAuthFeatureNotEnabled
	}

	raw, err := s.Auth.Tokens.Ephemeral.CompareAndDelete(ctx, store.EmbeddedSessionKey(sessionID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.ErrWrongSessionID
	}
	if err != nil {
		return nil, err
	}

	var session domain.EmbeddedSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, domain.ErrWrongSessionID
	}

	if err := VerifyCodeChallenge(codeVerifier, session.Request.CodeChallenge, session.Request.CodeChallengeMethod); err != nil {
		return nil, err
	}

	app, err := s.Auth.Store.Apps().GetAppByClientID(ctx, session.AppClientID)
	if err != nil {
		return nil, domain.ErrWrongSessionID
	}

	user, err := s.Auth.Store.Users().GetUserByAuthID(ctx, session.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.ErrNoUser
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserDisabled
	}

	if !session.CredentialVerified() {
		return nil, domain.ErrPasswordlessNotVerified
	}
	switch ResolveNextStep(s.cfg(), &app, &user, FlagsFromSession(&session), session.Request.Policy) {
	case StepComplete, StepPasskeyEnroll:
	case StepConsent:
		return nil, domain.ErrNoConsent
	default:
		return nil, domain.ErrMfaNotVerified
	}

	scope := ScopeString(session.Request.Scopes)

	access, err := s.Auth.Tokens.GenAccessToken(ctx, user.AuthID, app.ClientID, scope, user.Roles, "")
	if err != nil {
		return nil, err
	}
	bundle := &TokenBundle{Access: access, Scope: scope}

	if session.Request.HasScope(ScopeOfflineAccess) {
		refresh, err := s.Auth.Tokens.GenRefreshToken(ctx, domain.RefreshTokenRecord{
			AuthID:   user.AuthID,
			ClientID: app.ClientID,
			Scope:    scope,
			Roles:    user.Roles,
		})
		if err != nil {
			return nil, err
		}
		bundle.Refresh = &refresh
	}

	if session.Request.HasScope(ScopeOpenID) {
		idToken, err := s.Auth.Tokens.GenIDToken(ctx, app.ClientID, &user)
		if err != nil {
			return nil, err
		}
		bundle.IDToken = idToken
	}

	return bundle, nil
}

// TokenRefresh mirrors grant_type=refresh_token for embedded clients.
func (s *EmbeddedService) TokenRefresh(ctx context.Context, refreshToken string) (*TokenBundle, error) {
	if !s.cfg().EnableEmbeddedAuth {
		return nil, domain.ErrEmbeddedAuthFeatureNotEnabled
	}
	return s.Auth.ExchangeRefreshToken(ctx, refreshToken, "")
}

// SignOut invalidates a refresh token given only the (clientId, token) pair;
// no bearer auth is required.
func (s *EmbeddedService) SignOut(ctx context.Context, clientID, refreshToken string) error {
	if !s.cfg().EnableEmbeddedAuth {
		return domain.ErrEmbeddedAuthFeatureNotEnabled
	}

	if _, err := s.Auth.Tokens.ValidateRefreshToken(ctx, refreshToken, clientID); err != nil {
		return err
	}
	return s.Auth.Tokens.RevokeRefreshToken(ctx, refreshToken)
}

func (s *EmbeddedService) loadSession(ctx context.Context, sessionID string) (*domain.EmbeddedSession, *domain.App, error) {
	raw, err := s.Auth.Tokens.Ephemeral.Get(ctx, store.EmbeddedSessionKey(sessionID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, domain.ErrWrongSessionID
	}
	if err != nil {
		return nil, nil, err
	}

	var session domain.EmbeddedSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, nil, domain.ErrWrongSessionID
	}

	app, err := s.Auth.Store.Apps().GetAppByClientID(ctx, session.AppClientID)
	if err != nil {
		return nil, nil, domain.ErrWrongSessionID
	}
	return &session, &app, nil
}

func (s *EmbeddedService) loadSessionWithUser(ctx context.Context, sessionID string) (*domain.EmbeddedSession, *domain.App, *domain.User, error) {
	session, app, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, nil, nil, err
	}
	if session.UserID == "" {
		return nil, nil, nil, domain.ErrWrongSessionID
	}

	user, err := s.Auth.Store.Users().GetUserByAuthID(ctx, session.UserID)
	if err != nil {
		return nil, nil, nil, domain.ErrNoUser
	}
	return session, app, &user, nil
}

func (s *EmbeddedService) putSession(ctx context.Context, session *domain.EmbeddedSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.Auth.Tokens.Ephemeral.Put(ctx,
		store.EmbeddedSessionKey(session.SessionID), string(raw), s.cfg().ServerSessionExpiresIn)
}

func (s *EmbeddedService) resolveSession(ctx context.Context, session *domain.EmbeddedSession, app *domain.App, user *domain.User, info ClientInfo) (*SessionStepResult, error) {
	if err := s.putSession(ctx, session); err != nil {
		return nil, err
	}

	next := ResolveNextStep(s.cfg(), app, user, FlagsFromSession(session), session.Request.Policy)
	if next == StepComplete {
		s.Auth.maybeLogSignIn(ctx, user.AuthID, app.ClientID, info)
	}
	return &SessionStepResult{SessionID: session.SessionID, NextStep: next, User: user}, nil
}
