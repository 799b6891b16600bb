package http

import (
	"net/http"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/service"
	"github.com/ariaauth/aria/pkg/httpx"
)

// EmbeddedHandler serves the session-addressed flow for SPAs that keep the
// whole conversation on their own origin. Every step is keyed by the opaque
// sessionId path parameter issued at initiate.
type EmbeddedHandler struct {
	Embedded *service.EmbeddedService
}

type initiateResponse struct {
	SessionID string `json:"sessionId"`
	NextStep  string `json:"nextStep,omitempty"`
}

func (h *EmbeddedHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req domain.AuthRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ClientID == "" || req.RedirectURI == "" || req.CodeChallenge == "" {
		writeError(w, r, domain.NewValidationError())
		return
	}

	res, err := h.Embedded.Initiate(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, initiateResponse{
		SessionID: res.SessionID,
		NextStep:  string(res.NextStep),
	})
}

type embeddedSignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *EmbeddedHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var in embeddedSignInRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Embedded.SignIn(r.Context(), r.PathValue("sessionId"), in.Email, in.Password, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSessionStep(w, res)
}

type embeddedSignUpRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

func (h *EmbeddedHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var in embeddedSignUpRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Embedded.SignUp(r.Context(), r.PathValue("sessionId"), in.Email, in.Password, in.FirstName, in.LastName, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSessionStep(w, res)
}

type embeddedConsentRequest struct {
	Granted bool `json:"granted"`
}

func (h *EmbeddedHandler) AppConsent(w http.ResponseWriter, r *http.Request) {
	var in embeddedConsentRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Embedded.Consent(r.Context(), r.PathValue("sessionId"), in.Granted, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSessionStep(w, res)
}

type embeddedEnrollRequest struct {
	Type        domain.MfaType `json:"type" validate:"required"`
	PhoneNumber string         `json:"phoneNumber,omitempty"`
}

type embeddedEnrollResponse struct {
	SessionID  string `json:"sessionId"`
	Secret     string `json:"secret,omitempty"`
	OtpauthURL string `json:"otpauthUrl,omitempty"`
	Success    bool   `json:"success"`
}

func (h *EmbeddedHandler) MfaEnrollment(w http.ResponseWriter, r *http.Request) {
	var in embeddedEnrollRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	h.enroll(w, r, in.Type, in.PhoneNumber)
}

func (h *EmbeddedHandler) enroll(w http.ResponseWriter, r *http.Request, channel domain.MfaType, phoneNumber string) {
	sessionID := r.PathValue("sessionId")
	secret, otpauthURL, err := h.Embedded.EnrollMfa(r.Context(), sessionID, channel, phoneNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, embeddedEnrollResponse{
		SessionID:  sessionID,
		Secret:     secret,
		OtpauthURL: otpauthURL,
		Success:    true,
	})
}

func (h *EmbeddedHandler) sendCode(w http.ResponseWriter, r *http.Request, channel domain.MfaType) {
	sessionID := r.PathValue("sessionId")
	if err := h.Embedded.SendMfaCode(r.Context(), sessionID, channel); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sessionStepResponse{SessionID: sessionID, Success: true})
}

type embeddedMfaRequest struct {
	MfaCode string `json:"mfaCode" validate:"required"`
}

func (h *EmbeddedHandler) verifyCode(w http.ResponseWriter, r *http.Request, channel domain.MfaType) {
	var in embeddedMfaRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Embedded.VerifyMfa(r.Context(), r.PathValue("sessionId"), channel, in.MfaCode, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSessionStep(w, res)
}

func (h *EmbeddedHandler) EmailMfaCode(w http.ResponseWriter, r *http.Request) {
	h.sendCode(w, r, domain.MfaTypeEmail)
}

func (h *EmbeddedHandler) EmailMfa(w http.ResponseWriter, r *http.Request) {
	h.verifyCode(w, r, domain.MfaTypeEmail)
}

func (h *EmbeddedHandler) OtpMfaSetup(w http.ResponseWriter, r *http.Request) {
	h.enroll(w, r, domain.MfaTypeOtp, "")
}

func (h *EmbeddedHandler) OtpMfa(w http.ResponseWriter, r *http.Request) {
	h.verifyCode(w, r, domain.MfaTypeOtp)
}

type embeddedSmsSetupRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required"`
}

func (h *EmbeddedHandler) SmsMfaSetup(w http.ResponseWriter, r *http.Request) {
	var in embeddedSmsSetupRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	h.enroll(w, r, domain.MfaTypeSms, in.PhoneNumber)
}

func (h *EmbeddedHandler) SmsMfaCode(w http.ResponseWriter, r *http.Request) {
	h.sendCode(w, r, domain.MfaTypeSms)
}

func (h *EmbeddedHandler) SmsMfa(w http.ResponseWriter, r *http.Request) {
	h.verifyCode(w, r, domain.MfaTypeSms)
}

type passwordlessCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *EmbeddedHandler) PasswordlessCode(w http.ResponseWriter, r *http.Request) {
	var in passwordlessCodeRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	sessionID := r.PathValue("sessionId")
	if err := h.Embedded.SendPasswordlessCode(r.Context(), sessionID, in.Email); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sessionStepResponse{SessionID: sessionID, Success: true})
}

func (h *EmbeddedHandler) PasswordlessVerify(w http.ResponseWriter, r *http.Request) {
	var in embeddedMfaRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Embedded.VerifyPasswordlessCode(r.Context(), r.PathValue("sessionId"), in.MfaCode, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSessionStep(w, res)
}
