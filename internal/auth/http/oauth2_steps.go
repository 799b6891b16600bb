package http

import (
	"net/http"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/service"
	"github.com/ariaauth/aria/pkg/httpx"
)

// AuthorizeStepsHandler bundles the supplemental steps of the redirect flow.
// Every step is addressed by the authorization code issued at the credential
// step; the code stays the same across steps and is only consumed at the
// token exchange.
type AuthorizeStepsHandler struct {
	Auth *service.AuthorizeService
}

type consentRequest struct {
	Code    string `json:"code" validate:"required"`
	Granted bool   `json:"granted"`
}

func (h *AuthorizeStepsHandler) Consent(w http.ResponseWriter, r *http.Request) {
	var in consentRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Auth.ConsentStep(r.Context(), in.Code, in.Granted, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeStepResult(w, res, nil)
}

type mfaCodeRequest struct {
	Code    string         `json:"code" validate:"required"`
	Channel domain.MfaType `json:"channel" validate:"required"`
}

func (h *AuthorizeStepsHandler) SendMfaCode(w http.ResponseWriter, r *http.Request) {
	var in mfaCodeRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Auth.SendMfaCode(r.Context(), in.Code, in.Channel); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type mfaVerifyRequest struct {
	Code    string         `json:"code" validate:"required"`
	Channel domain.MfaType `json:"channel" validate:"required"`
	MfaCode string         `json:"mfaCode" validate:"required"`
}

func (h *AuthorizeStepsHandler) VerifyMfa(w http.ResponseWriter, r *http.Request) {
	var in mfaVerifyRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Auth.VerifyMfaStep(r.Context(), in.Code, in.Channel, in.MfaCode, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeStepResult(w, res, nil)
}

type mfaEnrollRequest struct {
	Code        string         `json:"code" validate:"required"`
	Channel     domain.MfaType `json:"channel" validate:"required"`
	PhoneNumber string         `json:"phoneNumber,omitempty"`
}

type mfaEnrollResponse struct {
	Code       string `json:"code"`
	Secret     string `json:"secret,omitempty"`
	OtpauthURL string `json:"otpauthUrl,omitempty"`
}

func (h *AuthorizeStepsHandler) EnrollMfa(w http.ResponseWriter, r *http.Request) {
	var in mfaEnrollRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	secret, otpauthURL, err := h.Auth.EnrollMfaStep(r.Context(), in.Code, in.Channel, in.PhoneNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, mfaEnrollResponse{
		Code:       in.Code,
		Secret:     secret,
		OtpauthURL: otpauthURL,
	})
}

type changePasswordRequest struct {
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

func (h *AuthorizeStepsHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var in changePasswordRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Auth.ChangePassword(r.Context(), in.Code, in.NewPassword, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeStepResult(w, res, nil)
}

type changeEmailCodeRequest struct {
	Code  string `json:"code" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func (h *AuthorizeStepsHandler) SendChangeEmailCode(w http.ResponseWriter, r *http.Request) {
	var in changeEmailCodeRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Auth.SendChangeEmailCode(r.Context(), in.Code, in.Email); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type changeEmailRequest struct {
	Code             string `json:"code" validate:"required"`
	Email            string `json:"email" validate:"required,email"`
	VerificationCode string `json:"verificationCode" validate:"required"`
}

func (h *AuthorizeStepsHandler) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	var in changeEmailRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Auth.ChangeEmail(r.Context(), in.Code, in.Email, in.VerificationCode, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeStepResult(w, res, nil)
}

type resetMfaRequest struct {
	Code    string         `json:"code" validate:"required"`
	Channel domain.MfaType `json:"channel" validate:"required"`
}

func (h *AuthorizeStepsHandler) ResetMfa(w http.ResponseWriter, r *http.Request) {
	var in resetMfaRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Auth.ResetMfa(r.Context(), in.Code, in.Channel, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeStepResult(w, res, nil)
}

type updateInfoRequest struct {
	Code      string `json:"code" validate:"required"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Locale    string `json:"locale,omitempty"`
}

func (h *AuthorizeStepsHandler) UpdateInfo(w http.ResponseWriter, r *http.Request) {
	var in updateInfoRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Auth.UpdateInfo(r.Context(), in.Code, in.FirstName, in.LastName, in.Locale, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeStepResult(w, res, nil)
}

type removePasskeyRequest struct {
	Code      string `json:"code" validate:"required"`
	PasskeyID string `json:"passkeyId" validate:"required"`
}

func (h *AuthorizeStepsHandler) RemovePasskey(w http.ResponseWriter, r *http.Request) {
	var in removePasskeyRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Auth.RemovePasskey(r.Context(), in.Code, in.PasskeyID, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeStepResult(w, res, nil)
}

type codeOnlyRequest struct {
	Code string `json:"code" validate:"required"`
}

func (h *AuthorizeStepsHandler) SkipPasskeyEnroll(w http.ResponseWriter, r *http.Request) {
	var in codeOnlyRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Auth.SkipPasskeyEnroll(r.Context(), in.Code, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeStepResult(w, res, nil)
}
