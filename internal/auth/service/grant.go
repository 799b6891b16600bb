package service

import (
	"context"
	"errors"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/store"
)

// Scopes with wire-level meaning at the token endpoint.
const (
	ScopeOpenID        = "openid"
	ScopeProfile       = "profile"
	ScopeOfflineAccess = "offline_access"
)

// TokenBundle is what a successful exchange mints: the access token always,
// the refresh token iff offline_access was requested, the ID token iff
// openid was requested.
type TokenBundle struct {
	Access  domain.TokenResult
	Refresh *domain.TokenResult
	IDToken string
	Scope   string
}

// ExchangeAuthCode implements grant_type=authorization_code. The body is
// consumed atomically before anything else so a double submit can never win
// twice; PKCE and completion checks run on the consumed body.
func (s *AuthorizeService) ExchangeAuthCode(ctx context.Context, code, codeVerifier string) (*TokenBundle, error) {
	body, err := s.Tokens.ConsumeAuthCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := VerifyCodeChallenge(codeVerifier, body.Request.CodeChallenge, body.Request.CodeChallengeMethod); err != nil {
		return nil, err
	}

	app, err := s.Store.Apps().GetAppByClientID(ctx, body.Request.ClientID)
	if err != nil {
		return nil, domain.ErrWrongAuthCode
	}

	user, err := s.Store.Users().GetUserByAuthID(ctx, body.User.AuthID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.ErrNoUser
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserDisabled
	}

	if err := s.requireCompleted(&app, &user, body); err != nil {
		return nil, err
	}

	scope := ScopeString(body.Request.Scopes)

	access, err := s.Tokens.GenAccessToken(ctx, user.AuthID, app.ClientID, scope, user.Roles, "")
	if err != nil {
		return nil, err
	}

	bundle := &TokenBundle{Access: access, Scope: scope}

	if body.Request.HasScope(ScopeOfflineAccess) {
		refresh, err := s.Tokens.GenRefreshToken(ctx, domain.RefreshTokenRecord{
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

	if body.Request.HasScope(ScopeOpenID) {
		idToken, err := s.Tokens.GenIDToken(ctx, app.ClientID, &user)
		if err != nil {
			return nil, err
		}
		bundle.IDToken = idToken
	}

	return bundle, nil
}

// requireCompleted maps the first unmet obligation to its terminal error.
func (s *AuthorizeService) requireCompleted(app *domain.App, user *domain.User, body *domain.AuthCodeBody) error {
	if !body.CredentialVerified() {
		return domain.ErrPasswordlessNotVerified
	}

	switch ResolveNextStep(s.Cfg, app, user, FlagsFromAuthCode(body), body.Request.Policy) {
	case StepComplete, StepPasskeyEnroll:
		// the passkey prompt is skippable and never blocks the exchange
		return nil
	case StepConsent:
		return domain.ErrNoConsent
	default:
		return domain.ErrMfaNotVerified
	}
}

// ExchangeRefreshToken implements grant_type=refresh_token: a new access
// token only, no rotation.
func (s *AuthorizeService) ExchangeRefreshToken(ctx context.Context, refreshToken, clientID string) (*TokenBundle, error) {
	rec, err := s.Tokens.ValidateRefreshToken(ctx, refreshToken, clientID)
	if err != nil {
		return nil, err
	}

	user, err := s.Store.Users().GetUserByAuthID(ctx, rec.AuthID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.ErrNoUser
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserDisabled
	}

	access, err := s.Tokens.GenAccessToken(ctx, rec.AuthID, rec.ClientID, rec.Scope, rec.Roles, "")
	if err != nil {
		return nil, err
	}

	return &TokenBundle{Access: access, Scope: rec.Scope}, nil
}

// ExchangeClientCredentials implements grant_type=client_credentials. The
// requested scope string is echoed verbatim; no refresh or ID token.
func (s *AuthorizeService) ExchangeClientCredentials(ctx context.Context, clientID, clientSecret, scope string) (*TokenBundle, error) {
	app, err := s.ValidateS2sApp(ctx, clientID, clientSecret)
	if err != nil {
		return nil, err
	}

	access, err := s.Tokens.GenS2SAccessToken(ctx, app.ClientID, scope)
	if err != nil {
		return nil, err
	}

	return &TokenBundle{Access: access, Scope: scope}, nil
}

// Revoke deletes the refresh-token record. The Basic-auth client must own
// the token; the secret is not required for SPA clients.
func (s *AuthorizeService) Revoke(ctx context.Context, clientID, token, tokenTypeHint string) error {
	if tokenTypeHint != "" && tokenTypeHint != "refresh_token" {
		return domain.ErrWrongTokenTypeHint
	}

	if _, err := s.Tokens.ValidateRefreshToken(ctx, token, clientID); err != nil {
		return err
	}
	return s.Tokens.RevokeRefreshToken(ctx, token)
}

// Logout revokes the caller's own refresh token. The bearer subject must
// match the token record.
func (s *AuthorizeService) Logout(ctx context.Context, subject, clientID, refreshToken string) error {
	rec, err := s.Tokens.ValidateRefreshToken(ctx, refreshToken, clientID)
	if err != nil {
		return err
	}
	if rec.AuthID != subject {
		return domain.ErrWrongRefreshToken
	}
	return s.Tokens.RevokeRefreshToken(ctx, refreshToken)
}
