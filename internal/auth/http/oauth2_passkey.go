package http

import (
	"net/http"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/service"
	"github.com/ariaauth/aria/pkg/httpx"
)

// PasskeyHandler covers both WebAuthn ceremonies of the redirect flow:
// passkey sign-in (challenge issued before any user is known) and in-flow
// enrollment (challenge bound to the user behind the auth code).
type PasskeyHandler struct {
	Auth     *service.AuthorizeService
	Passkeys *service.PasskeyService
}

type passkeyChallengeResponse struct {
	Challenge string `json:"challenge"`
}

func (h *PasskeyHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	challenge, err := h.Passkeys.BeginVerify(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, passkeyChallengeResponse{Challenge: challenge})
}

type passkeyVerifyRequest struct {
	domain.AuthRequest
	Challenge    string `json:"challenge" validate:"required"`
	CredentialID string `json:"credentialId" validate:"required"`
	Assertion    string `json:"assertion" validate:"required"`
}

// Verify serves POST /oauth2/v1/authorize-passkey-verify: a completed
// authentication ceremony is a full credential, MFA included.
func (h *PasskeyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var in passkeyVerifyRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.Passkeys.FinishVerify(r.Context(), in.Challenge, in.CredentialID, []byte(in.Assertion))
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.Auth.CompletePasskeySignIn(r.Context(), &in.AuthRequest, user, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeStepResult(w, res, &in.AuthRequest)
}

func (h *PasskeyHandler) BeginEnroll(w http.ResponseWriter, r *http.Request) {
	var in codeOnlyRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	challenge, err := h.Auth.BeginPasskeyEnrollStep(r.Context(), in.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, passkeyChallengeResponse{Challenge: challenge})
}

type passkeyEnrollRequest struct {
	Code        string `json:"code" validate:"required"`
	Attestation string `json:"attestation" validate:"required"`
}

func (h *PasskeyHandler) FinishEnroll(w http.ResponseWriter, r *http.Request) {
	var in passkeyEnrollRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Auth.FinishPasskeyEnrollStep(r.Context(), in.Code, []byte(in.Attestation), clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeStepResult(w, res, nil)
}
