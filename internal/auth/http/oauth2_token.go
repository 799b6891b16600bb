package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/service"
)

// TokenHandler serves POST /oauth2/v1/token.
// Accepts application/x-www-form-urlencoded per the RFC 6749 framework.
type TokenHandler struct {
	Auth *service.AuthorizeService
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		writeError(w, r, domain.NewValidationError())
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, r, domain.NewValidationError())
		return
	}

	switch r.Form.Get("grant_type") {
	case "authorization_code":
		h.handleAuthorizationCode(w, r, r.Form)
	case "refresh_token":
		h.handleRefresh(w, r, r.Form)
	case "client_credentials":
		h.handleClientCredentials(w, r, r.Form)
	default:
		writeError(w, r, domain.ErrWrongGrantType)
	}
}

func (h *TokenHandler) handleAuthorizationCode(w http.ResponseWriter, r *http.Request, form url.Values) {
	code := strings.TrimSpace(form.Get("code"))
	codeVerifier := strings.TrimSpace(form.Get("code_verifier"))
	if code == "" || codeVerifier == "" {
		writeError(w, r, domain.NewValidationError())
		return
	}

	bundle, err := h.Auth.ExchangeAuthCode(r.Context(), code, codeVerifier)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeTokenBundle(w, bundle)
}

func (h *TokenHandler) handleRefresh(w http.ResponseWriter, r *http.Request, form url.Values) {
	refresh := strings.TrimSpace(form.Get("refresh_token"))
	clientID := strings.TrimSpace(form.Get("client_id"))
	if refresh == "" {
		writeError(w, r, domain.NewValidationError())
		return
	}

	bundle, err := h.Auth.ExchangeRefreshToken(r.Context(), refresh, clientID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRefreshBundle(w, bundle)
}

func (h *TokenHandler) handleClientCredentials(w http.ResponseWriter, r *http.Request, form url.Values) {
	// RFC 6749 prefers Basic auth for confidential clients; form credentials
	// are accepted as the fallback.
	clientID, clientSecret, ok := r.BasicAuth()
	if !ok {
		clientID = strings.TrimSpace(form.Get("client_id"))
		clientSecret = form.Get("client_secret")
	}
	if clientID == "" || clientSecret == "" {
		writeError(w, r, domain.NewValidationError())
		return
	}

	bundle, err := h.Auth.ExchangeClientCredentials(r.Context(), clientID, clientSecret, strings.TrimSpace(form.Get("scope")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeTokenBundle(w, bundle)
}
