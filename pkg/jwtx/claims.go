package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token TTLs. The access TTL applies to user-delegated tokens;
// client-credential tokens use the longer service TTL.
const (
	DefaultAccessTokenTTL  = 1800 * time.Second
	DefaultS2STokenTTL     = 3600 * time.Second
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// AccessClaims are the claims carried by access tokens. The shape is a wire
// contract consumed by resource servers; changes must be additive.
type AccessClaims struct {
	jwt.RegisteredClaims

	// Azp is the authorized party: the client the token was issued to.
	Azp string `json:"azp,omitempty"`

	// Scope is the space-delimited granted scope string.
	Scope string `json:"scope,omitempty"`

	Roles []string `json:"roles,omitempty"`

	// ImpersonatedBy is set when an administrator is acting as the subject.
	ImpersonatedBy string `json:"impersonatedBy,omitempty"`
}

// IDClaims are OIDC ID token claims.
type IDClaims struct {
	jwt.RegisteredClaims

	Azp       string   `json:"azp,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	Locale    string   `json:"locale,omitempty"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Email     string   `json:"email"`
}

// NewAccessClaims builds minimally-correct access token claims.
func NewAccessClaims(
	issuer, subject, azp, scope string,
	roles []string,
	impersonatedBy string,
	ttl time.Duration,
	now time.Time,
) AccessClaims {
	return AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Azp:            azp,
		Scope:          scope,
		Roles:          roles,
		ImpersonatedBy: impersonatedBy,
	}
}

// NewIDClaims builds OIDC ID token claims for an authenticated user.
func NewIDClaims(
	issuer, subject, clientID, email, locale, firstName, lastName string,
	roles []string,
	ttl time.Duration,
	now time.Time,
) IDClaims {
	return IDClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{clientID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Azp:       clientID,
		Roles:     roles,
		Locale:    locale,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
	}
}
