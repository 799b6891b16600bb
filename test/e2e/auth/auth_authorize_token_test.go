package auth_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordSignInThenTokenExchange(t *testing.T) {
	h := setupServer(t)
	h.seedSpaApp()
	h.seedUser()

	code := h.signIn()
	tok := h.exchange(code)

	require.NotEmpty(t, tok.AccessToken)
	require.Equal(t, "Bearer", tok.TokenType)
	require.Equal(t, int64(1800), tok.ExpiresIn)
	require.Equal(t, tok.ExpiresOn-tok.ExpiresIn, tok.NotBefore)
	require.Contains(t, tok.Scope, "openid")

	// openid was requested, so an ID token rides along.
	require.NotEmpty(t, tok.IDToken)
	require.Equal(t, 3, len(strings.Split(tok.IDToken, ".")))

	// offline_access was requested, so a refresh token rides along.
	require.NotEmpty(t, tok.RefreshToken)
	require.Greater(t, tok.RefreshTokenExpiresIn, int64(0))
}

func TestTokenExchangeWithoutOfflineAccess(t *testing.T) {
	h := setupServer(t)
	h.seedSpaApp()
	h.seedUser()

	var res struct {
		Code string `json:"code"`
	}
	status, body := h.postJSON("/oauth2/v1/authorize-password", authRequestBody(map[string]any{
		"scopes":   []string{"profile"},
		"email":    testEmail,
		"password": testPassword,
	}), &res)
	require.Equal(t, http.StatusOK, status, body)

	tok := h.exchange(res.Code)
	require.NotEmpty(t, tok.AccessToken)
	require.Empty(t, tok.RefreshToken)
	require.Empty(t, tok.IDToken)
}

func TestAuthCodeIsSingleUse(t *testing.T) {
	h := setupServer(t)
	h.seedSpaApp()
	h.seedUser()

	code := h.signIn()
	h.exchange(code)

	status, body := h.postForm("/oauth2/v1/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"code_verifier": {testVerifier},
	}, "", "", nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, `"WrongAuthCode"`, body)
}

func TestTokenExchangeRejectsWrongVerifier(t *testing.T) {
	h := setupServer(t)
	h.seedSpaApp()
	h.seedUser()

	code := h.signIn()
	status, body := h.postForm("/oauth2/v1/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"code_verifier": {"definitely-not-the-verifier"},
	}, "", "", nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, `"WrongCodeVerifier"`, body)
}

func TestTokenRejectsUnknownGrantType(t *testing.T) {
	h := setupServer(t)

	status, body := h.postForm("/oauth2/v1/token", url.Values{
		"grant_type": {"implicit"},
	}, "", "", nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, `"WrongGrantType"`, body)
}
