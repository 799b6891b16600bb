package http

import (
	"encoding/json"
	"net/http"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/service"
	"github.com/ariaauth/aria/pkg/httpx"
)

// signInViewPath is where the hosted sign-in page lives; the authorize
// endpoint hands the whole request over to it via the query string.
const signInViewPath = "/identity/v1/sign-in"

// AuthorizeHandler serves GET /oauth2/v1/authorize: the entry point of the
// redirect flow. It validates the request against the registered app and
// forwards the browser to the sign-in view.
type AuthorizeHandler struct {
	Auth *service.AuthorizeService
}

func (h *AuthorizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := &domain.AuthRequest{
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		ResponseType:        q.Get("response_type"),
		State:               q.Get("state"),
		Scopes:              httpx.ParseSpaceDelimitedFields(q.Get("scope")),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
		Locale:              q.Get("locale"),
		Org:                 q.Get("org"),
		Policy:              domain.Policy(q.Get("policy")),
	}
	if req.ClientID == "" || req.RedirectURI == "" || req.ResponseType == "" ||
		req.State == "" || req.CodeChallenge == "" {
		writeError(w, r, domain.NewValidationError())
		return
	}

	if _, err := h.Auth.ValidateSpaAppRequest(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}

	target := signInViewPath + "?" + q.Encode()
	if q.Get("authorize_method") == "popup" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(popupShell(target)))
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// popupShell is the minimal document served in popup mode; the sign-in view
// itself is owned by the front-end bundle.
func popupShell(target string) string {
	loc, _ := json.Marshal(target)
	return `<!DOCTYPE html><html><head><meta charset="utf-8"></head>` +
		`<body><script>window.location.replace(` + string(loc) + `);</script></body></html>`
}

type passwordSignInRequest struct {
	domain.AuthRequest
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthorizePasswordHandler serves POST /oauth2/v1/authorize-password: the
// primary credential step of the redirect flow.
type AuthorizePasswordHandler struct {
	Auth *service.AuthorizeService
}

func (h *AuthorizePasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var in passwordSignInRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.Auth.SignInWithPassword(r.Context(), &in.AuthRequest, in.Email, in.Password, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeStepResult(w, res, &in.AuthRequest)
}

type recoverySignInRequest struct {
	domain.AuthRequest
	Email        string `json:"email" validate:"required,email"`
	RecoveryCode string `json:"recoveryCode" validate:"required"`
}

// AuthorizeAccountHandler serves POST /oauth2/v1/authorize-account: recovery
// code sign-in, which satisfies the credential and every MFA requirement in
// one step.
type AuthorizeAccountHandler struct {
	Auth *service.AuthorizeService
}

func (h *AuthorizeAccountHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var in recoverySignInRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.Auth.SignInWithRecoveryCode(r.Context(), &in.AuthRequest, in.Email, in.RecoveryCode, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeStepResult(w, res, &in.AuthRequest)
}
