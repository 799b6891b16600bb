package http

import (
	"net/http"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/service"
	"github.com/ariaauth/aria/pkg/httpx"
)

// UserinfoHandler serves GET /oauth2/v1/userinfo. The router guards it with
// bearer auth and the profile scope.
type UserinfoHandler struct {
	Users *service.UserService
}

func (h *UserinfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	authID := httpx.UserIDFromContext(r.Context())
	if authID == "" {
		writeError(w, r, domain.ErrWrongAccessToken)
		return
	}

	info, err := h.Users.GetUserinfo(r.Context(), authID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, info)
}

// AccountLinkHandler serves the account linking endpoints under the same
// bearer guard as userinfo. Linking is symmetric and exclusive.
type AccountLinkHandler struct {
	Users *service.UserService
}

type linkAccountRequest struct {
	TargetAuthID string `json:"targetAuthId" validate:"required"`
}

func (h *AccountLinkHandler) Link(w http.ResponseWriter, r *http.Request) {
	authID := httpx.UserIDFromContext(r.Context())
	if authID == "" {
		writeError(w, r, domain.ErrWrongAccessToken)
		return
	}

	var in linkAccountRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Users.LinkAccounts(r.Context(), authID, in.TargetAuthID); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AccountLinkHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	authID := httpx.UserIDFromContext(r.Context())
	if authID == "" {
		writeError(w, r, domain.ErrWrongAccessToken)
		return
	}

	if err := h.Users.UnlinkAccounts(r.Context(), authID); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
