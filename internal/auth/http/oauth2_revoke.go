package http

import (
	"net/http"
	"strings"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/service"
	"github.com/ariaauth/aria/pkg/httpx"
)

// RevokeHandler serves POST /oauth2/v1/revoke per RFC 7009. The caller
// identifies itself with Basic auth; only the client id half is checked, the
// token itself is the proof of possession.
type RevokeHandler struct {
	Auth *service.AuthorizeService
}

func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientID, _, ok := r.BasicAuth()
	if !ok || clientID == "" {
		writeError(w, r, domain.NewValidationError())
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, r, domain.NewValidationError())
		return
	}

	token := strings.TrimSpace(r.Form.Get("token"))
	hint := strings.TrimSpace(r.Form.Get("token_type_hint"))
	if token == "" {
		writeError(w, r, domain.NewValidationError())
		return
	}

	if err := h.Auth.Revoke(r.Context(), clientID, token, hint); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// LogoutHandler serves POST /oauth2/v1/logout. Bearer auth is required; the
// refresh token must belong to the caller's own session.
type LogoutHandler struct {
	Auth *service.AuthorizeService
}

type logoutResponse struct {
	RedirectURI string `json:"redirectUri,omitempty"`
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, r, domain.NewValidationError())
		return
	}

	refresh := strings.TrimSpace(r.Form.Get("refresh_token"))
	if refresh == "" {
		writeError(w, r, domain.NewValidationError())
		return
	}

	claims := httpx.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, r, domain.ErrWrongAccessToken)
		return
	}

	if err := h.Auth.Logout(r.Context(), claims.Subject, claims.Azp, refresh); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, logoutResponse{
		RedirectURI: strings.TrimSpace(r.Form.Get("post_logout_redirect_uri")),
	})
}
