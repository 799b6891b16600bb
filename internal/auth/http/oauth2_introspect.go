package http

import (
	"net/http"
	"strings"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/service"
	"github.com/ariaauth/aria/pkg/httpx"
)

// IntrospectHandler serves POST /oauth2/v1/introspect per RFC 7662. Only
// authenticated s2s clients may introspect; an unknown or expired token is
// reported as inactive, never as an error.
type IntrospectHandler struct {
	Auth   *service.AuthorizeService
	Tokens *service.TokenService
}

type introspectResponse struct {
	Active bool   `json:"active"`
	Sub    string `json:"sub,omitempty"`
	Azp    string `json:"azp,omitempty"`
	Scope  string `json:"scope,omitempty"`
	Exp    int64  `json:"exp,omitempty"`
	Iat    int64  `json:"iat,omitempty"`
}

func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientID, clientSecret, ok := r.BasicAuth()
	if !ok {
		writeError(w, r, domain.NewValidationError())
		return
	}
	if _, err := h.Auth.ValidateS2sApp(r.Context(), clientID, clientSecret); err != nil {
		writeError(w, r, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		writeError(w, r, domain.NewValidationError())
		return
	}
	token := strings.TrimSpace(r.Form.Get("token"))
	if token == "" {
		writeError(w, r, domain.NewValidationError())
		return
	}

	claims, err := h.Tokens.Verify(r.Context(), token)
	if err != nil {
		httpx.NoCache(w)
		httpx.WriteJSON(w, http.StatusOK, introspectResponse{Active: false})
		return
	}

	out := introspectResponse{
		Active: true,
		Sub:    claims.Subject,
		Azp:    claims.Azp,
		Scope:  claims.Scope,
	}
	if claims.ExpiresAt != nil {
		out.Exp = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		out.Iat = claims.IssuedAt.Unix()
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, out)
}
