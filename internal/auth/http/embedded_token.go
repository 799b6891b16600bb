package http

import (
	"net/http"

	"github.com/ariaauth/aria/pkg/httpx"
)

type embeddedExchangeRequest struct {
	SessionID    string `json:"sessionId" validate:"required"`
	CodeVerifier string `json:"codeVerifier" validate:"required"`
}

// TokenExchange consumes the embedded session and mints the token bundle.
func (h *EmbeddedHandler) TokenExchange(w http.ResponseWriter, r *http.Request) {
	var in embeddedExchangeRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	bundle, err := h.Embedded.TokenExchange(r.Context(), in.SessionID, in.CodeVerifier)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeTokenBundle(w, bundle)
}

type embeddedRefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (h *EmbeddedHandler) TokenRefresh(w http.ResponseWriter, r *http.Request) {
	var in embeddedRefreshRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	bundle, err := h.Embedded.TokenRefresh(r.Context(), in.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRefreshBundle(w, bundle)
}

type embeddedSignOutRequest struct {
	ClientID     string `json:"clientId" validate:"required"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// SignOut revokes a refresh token with no bearer auth: the (clientId,
// refreshToken) pair is the proof of possession.
func (h *EmbeddedHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	var in embeddedSignOutRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Embedded.SignOut(r.Context(), in.ClientID, in.RefreshToken); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
