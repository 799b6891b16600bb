package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/store"
	"github.com/ariaauth/aria/pkg/cryptox"
	"github.com/ariaauth/aria/pkg/jwtx"
	"github.com/ariaauth/aria/pkg/slogx"
)

// TokenService mints and verifies every credential the server issues: opaque
// authorization codes, JWT access and ID tokens, and opaque refresh tokens
// backed by a registry entry in the ephemeral store.
type TokenService struct {
	Keys      *jwtx.KeySource
	Ephemeral store.EphemeralStore
	Issuer    string

	AccessTTL   time.Duration
	S2STTL      time.Duration
	RefreshTTL  time.Duration
	AuthCodeTTL time.Duration
	IDTokenTTL  time.Duration

	now func() time.Time
}

func NewTokenService(keys *jwtx.KeySource, ephemeral store.EphemeralStore, issuer string, cfg Config) *TokenService {
	return &TokenService{
		Keys:        keys,
		Ephemeral:   ephemeral,
		Issuer:      issuer,
		AccessTTL:   jwtx.DefaultAccessTokenTTL,
		S2STTL:      jwtx.DefaultS2STokenTTL,
		RefreshTTL:  jwtx.DefaultRefreshTokenTTL,
		AuthCodeTTL: cfg.AuthCodeExpiresIn,
		IDTokenTTL:  jwtx.DefaultAccessTokenTTL,
		now:         time.Now,
	}
}

func (s *TokenService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// GenAuthCode serializes the body and stores it under a fresh random code's
// fingerprint with a short TTL. The opaque code goes back to the client; only
// the fingerprint ever touches the store.
func (s *TokenService) GenAuthCode(ctx context.Context, body *domain.AuthCodeBody) (string, error) {
	code, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}

	if err := s.PutAuthCode(ctx, code, body); err != nil {
		return "", err
	}
	return code, nil
}

// PutAuthCode writes (or rewrites) the body under an existing code, used by
// supplemental steps that mutate completion flags before exchange.
func (s *TokenService) PutAuthCode(ctx context.Context, code string, body *domain.AuthCodeBody) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	key := store.AuthCodeKey(cryptox.FingerprintToken(code))
	return s.Ephemeral.Put(ctx, key, string(raw), s.AuthCodeTTL)
}

// GetAuthCode loads the body without consuming it.
func (s *TokenService) GetAuthCode(ctx context.Context, code string) (*domain.AuthCodeBody, error) {
	key := store.AuthCodeKey(cryptox.FingerprintToken(code))
	raw, err := s.Ephemeral.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.ErrWrongAuthCode
	}
	if err != nil {
		return nil, err
	}
	return decodeAuthCodeBody(raw)
}

// ConsumeAuthCode atomically removes and returns the body. A second call for
// the same code fails WrongAuthCode; the single-use property rests entirely
// on the store's CompareAndDelete.
func (s *TokenService) ConsumeAuthCode(ctx context.Context, code string) (*domain.AuthCodeBody, error) {
	key := store.AuthCodeKey(cryptox.FingerprintToken(code))
	raw, err := s.Ephemeral.CompareAndDelete(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.ErrWrongAuthCode
	}
	if err != nil {
		return nil, err
	}
	return decodeAuthCodeBody(raw)
}

func decodeAuthCodeBody(raw string) (*domain.AuthCodeBody, error) {
	var body domain.AuthCodeBody
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return nil, domain.ErrWrongAuthCode
	}
	return &body, nil
}

// GenAccessToken mints a user-delegated access token.
func (s *TokenService) GenAccessToken(ctx context.Context, subject, azp, scope string, roles []string, impersonatedBy string) (domain.TokenResult, error) {
	return s.signAccess(ctx, subject, azp, scope, roles, impersonatedBy, s.AccessTTL)
}

// GenS2SAccessToken mints a client-credential token with the longer TTL.
func (s *TokenService) GenS2SAccessToken(ctx context.Context, clientID, scope string) (domain.TokenResult, error) {
	return s.signAccess(ctx, clientID, clientID, scope, nil, "", s.S2STTL)
}

func (s *TokenService) signAccess(ctx context.Context, subject, azp, scope string, roles []string, impersonatedBy string, ttl time.Duration) (domain.TokenResult, error) {
	now := s.clock()

	key, err := s.Keys.Private(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("signing key unavailable", slog.Any("error", err))
		return domain.TokenResult{}, domain.ErrNoJwtPrivateSecret
	}

	claims := jwtx.NewAccessClaims(s.Issuer, subject, azp, scope, roles, impersonatedBy, ttl, now)
	token, err := jwtx.Sign(key, s.Keys.KID(), claims)
	if err != nil {
		return domain.TokenResult{}, err
	}

	return domain.TokenResult{
		Token:     token,
		ExpiresIn: int64(ttl.Seconds()),
		ExpiresOn: now.Add(ttl).Unix(),
	}, nil
}

// GenRefreshToken mints an opaque refresh token and stores its registry
// entry under the token's fingerprint with the refresh TTL.
func (s *TokenService) GenRefreshToken(ctx context.Context, rec domain.RefreshTokenRecord) (domain.TokenResult, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenResult{}, err
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return domain.TokenResult{}, err
	}

	key := store.RefreshTokenKey(cryptox.FingerprintToken(token))
	if err := s.Ephemeral.Put(ctx, key, string(raw), s.RefreshTTL); err != nil {
		return domain.TokenResult{}, err
	}

	now := s.clock()
	return domain.TokenResult{
		Token:     token,
		ExpiresIn: int64(s.RefreshTTL.Seconds()),
		ExpiresOn: now.Add(s.RefreshTTL).Unix(),
	}, nil
}

// ValidateRefreshToken resolves the registry entry and checks ownership.
// The record is left in place: refresh does not rotate the token, it only
// mints a new access token.
func (s *TokenService) ValidateRefreshToken(ctx context.Context, token, clientID string) (*domain.RefreshTokenRecord, error) {
	key := store.RefreshTokenKey(cryptox.FingerprintToken(token))
	raw, err := s.Ephemeral.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.ErrWrongRefreshToken
	}
	if err != nil {
		return nil, err
	}

	var rec domain.RefreshTokenRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, domain.ErrWrongRefreshToken
	}
	if clientID != "" && rec.ClientID != clientID {
		return nil, domain.ErrWrongRefreshToken
	}
	return &rec, nil
}

// RevokeRefreshToken consumes the registry entry. Revoking an unknown token
// fails WrongRefreshToken so revocation is observable, but a second revoke of
// the same token gets the same answer, which keeps the operation safe to
// retry.
func (s *TokenService) RevokeRefreshToken(ctx context.Context, token string) error {
	key := store.RefreshTokenKey(cryptox.FingerprintToken(token))
	if _, err := s.Ephemeral.CompareAndDelete(ctx, key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrWrongRefreshToken
		}
		return err
	}
	return nil
}

// GenIDToken mints the OIDC identity token for the user and audience.
func (s *TokenService) GenIDToken(ctx context.Context, clientID string, user *domain.User) (string, error) {
	key, err := s.Keys.Private(ctx)
	if err != nil {
		return "", domain.ErrNoJwtPrivateSecret
	}

	claims := jwtx.NewIDClaims(
		s.Issuer, user.AuthID, clientID,
		user.Email, user.Locale, user.FirstName, user.LastName,
		user.Roles, s.IDTokenTTL, s.clock(),
	)
	return jwtx.Sign(key, s.Keys.KID(), claims)
}

// Verify checks an access token's signature, expiry, and issuer.
func (s *TokenService) Verify(ctx context.Context, token string) (*jwtx.AccessClaims, error) {
	pub, err := s.Keys.Public(ctx)
	if err != nil {
		return nil, domain.ErrNoJwtPrivateSecret
	}

	claims, err := jwtx.VerifyAccess(token, pub, s.Issuer)
	if err != nil {
		return nil, domain.ErrWrongAccessToken
	}
	return claims, nil
}

// ScopeString joins requested scopes for claims and responses.
func ScopeString(scopes []string) string {
	return strings.Join(scopes, " ")
}
