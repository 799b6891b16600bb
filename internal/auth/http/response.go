package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	validator "gopkg.in/go-playground/validator.v9"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/service"
	"github.com/ariaauth/aria/pkg/httpx"
	"github.com/ariaauth/aria/pkg/slogx"
)

var validate = validator.New()

// decodeJSON parses and validates a JSON request body. Both malformed JSON
// and failed field validation surface as a ValidationError before any store
// access happens.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.NewValidationError()
	}
	if err := validate.Struct(dst); err != nil {
		return domain.NewValidationError()
	}
	return nil
}

// writeError maps a service failure onto the wire contract: the body is the
// bare error code as a JSON string and the status comes with the code.
// Anything outside the closed taxonomy is a 500 with no internal detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		httpx.WriteJSON(w, de.Status, de.Code)
		return
	}
	slogx.FromContext(r.Context()).Error("request failed", "err", err)
	httpx.WriteJSON(w, http.StatusInternalServerError, "InternalError")
}

func clientInfo(r *http.Request) service.ClientInfo {
	return service.ClientInfo{
		IP:        httpx.IPKeyExtractor(r),
		UserAgent: r.UserAgent(),
	}
}

// tokenResponse is the authorization_code / client_credentials exchange shape.
// Field names are a stable contract consumed by SDKs.
type tokenResponse struct {
	AccessToken           string `json:"access_token"`
	ExpiresIn             int64  `json:"expires_in"`
	ExpiresOn             int64  `json:"expires_on"`
	NotBefore             int64  `json:"not_before"`
	TokenType             string `json:"token_type"`
	Scope                 string `json:"scope,omitempty"`
	RefreshToken          string `json:"refresh_token,omitempty"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in,omitempty"`
	RefreshTokenExpiresOn int64  `json:"refresh_token_expires_on,omitempty"`
	IDToken               string `json:"id_token,omitempty"`
}

// refreshTokenResponse is the deliberately narrower refresh_token grant shape.
type refreshTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	ExpiresOn   int64  `json:"expires_on"`
	TokenType   string `json:"token_type"`
}

func writeTokenBundle(w http.ResponseWriter, bundle *service.TokenBundle) {
	out := tokenResponse{
		AccessToken: bundle.Access.Token,
		ExpiresIn:   bundle.Access.ExpiresIn,
		ExpiresOn:   bundle.Access.ExpiresOn,
		NotBefore:   bundle.Access.ExpiresOn - bundle.Access.ExpiresIn,
		TokenType:   "Bearer",
		Scope:       strings.TrimSpace(bundle.Scope),
		IDToken:     bundle.IDToken,
	}
	if bundle.Refresh != nil {
		out.RefreshToken = bundle.Refresh.Token
		out.RefreshTokenExpiresIn = bundle.Refresh.ExpiresIn
		out.RefreshTokenExpiresOn = bundle.Refresh.ExpiresOn
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, out)
}

func writeRefreshBundle(w http.ResponseWriter, bundle *service.TokenBundle) {
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, refreshTokenResponse{
		AccessToken: bundle.Access.Token,
		ExpiresIn:   bundle.Access.ExpiresIn,
		ExpiresOn:   bundle.Access.ExpiresOn,
		TokenType:   "Bearer",
	})
}

// authStepResponse reports a redirect-flow step outcome. The client holds the
// code across steps; redirectUri and state are echoed only on endpoints that
// saw the full AuthRequest.
type authStepResponse struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirectUri,omitempty"`
	State       string `json:"state,omitempty"`
	NextStep    string `json:"nextStep,omitempty"`
}

func writeStepResult(w http.ResponseWriter, res *service.StepResult, req *domain.AuthRequest) {
	out := authStepResponse{Code: res.Code}
	if req != nil {
		out.RedirectURI = req.RedirectURI
		out.State = req.State
	}
	if res.NextStep != service.StepComplete {
		out.NextStep = string(res.NextStep)
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, out)
}

// sessionStepResponse is the embedded-flow step outcome shape.
type sessionStepResponse struct {
	SessionID string `json:"sessionId"`
	NextStep  string `json:"nextStep,omitempty"`
	Success   bool   `json:"success"`
}

func writeSessionStep(w http.ResponseWriter, res *service.SessionStepResult) {
	out := sessionStepResponse{SessionID: res.SessionID, Success: true}
	if res.NextStep != service.StepComplete {
		out.NextStep = string(res.NextStep)
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, out)
}
