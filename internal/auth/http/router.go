package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/service"
	"github.com/ariaauth/aria/internal/auth/store"
	"github.com/ariaauth/aria/pkg/httpx"
	"github.com/ariaauth/aria/pkg/jwtx"
	"github.com/ariaauth/aria/pkg/slogx"
)

// RouterDeps carries everything the HTTP surface needs. The services own the
// semantics; the router only decides routes, auth guards, and rate limits.
type RouterDeps struct {
	Logger       *slog.Logger
	BuildVersion string

	Store     store.Store
	Ephemeral store.EphemeralStore
	Keys      *jwtx.KeySource
	Cfg       service.Config

	Auth     *service.AuthorizeService
	Embedded *service.EmbeddedService
	Users    *service.UserService
	Tokens   *service.TokenService
	Passkeys *service.PasskeyService
}

type Router struct {
	Mux *http.ServeMux

	deps        RouterDeps
	middlewares []httpx.Middleware
	startTime   time.Time
}

func NewRouter(deps RouterDeps) *Router {
	r := &Router{
		Mux:       http.NewServeMux(),
		deps:      deps,
		startTime: time.Now(),
		middlewares: []httpx.Middleware{
			slogx.HTTPMiddleware(deps.Logger),
		},
	}
	r.ApplyRoutes()
	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) ApplyRoutes() {
	r.applyHealthRoutes()
	r.applyOAuth2Routes()
	r.applyEmbeddedRoutes()
}

func (r *Router) applyHealthRoutes() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.deps.BuildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.deps.BuildVersion, r.deps.Store, r.deps.Ephemeral, r.deps.Keys))
	r.Mux.Handle("GET /.well-known/jwks.json", JWKSHandler(r.deps.Keys))
}

func (r *Router) applyOAuth2Routes() {
	authn := httpx.AuthnMiddleware(r.deps.Tokens)

	authorize := &AuthorizeHandler{Auth: r.deps.Auth}
	password := &AuthorizePasswordHandler{Auth: r.deps.Auth}
	account := &AuthorizeAccountHandler{Auth: r.deps.Auth}
	steps := &AuthorizeStepsHandler{Auth: r.deps.Auth}
	passkey := &PasskeyHandler{Auth: r.deps.Auth, Passkeys: r.deps.Passkeys}
	token := &TokenHandler{Auth: r.deps.Auth}
	revoke := &RevokeHandler{Auth: r.deps.Auth}
	logout := &LogoutHandler{Auth: r.deps.Auth}
	introspect := &IntrospectHandler{Auth: r.deps.Auth, Tokens: r.deps.Tokens}
	userinfo := &UserinfoHandler{Users: r.deps.Users}
	link := &AccountLinkHandler{Users: r.deps.Users}

	r.Mux.Handle("GET /oauth2/v1/authorize", httpx.Chain(authorize,
		httpx.RateLimitByIP(httpx.PublicLimit)))
	r.Mux.Handle("POST /oauth2/v1/authorize-password", httpx.Chain(password,
		httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /oauth2/v1/authorize-account", httpx.Chain(account,
		httpx.RateLimitByIP(httpx.StrictLimit)))

	// Supplemental steps keyed by the auth code.
	moderate := httpx.RateLimitByIP(httpx.ModerateLimit)
	r.Mux.Handle("POST /oauth2/v1/authorize-consent", httpx.Chain(http.HandlerFunc(steps.Consent), moderate))
	r.Mux.Handle("POST /oauth2/v1/authorize-mfa-code", httpx.Chain(http.HandlerFunc(steps.SendMfaCode), moderate))
	r.Mux.Handle("POST /oauth2/v1/authorize-mfa", httpx.Chain(http.HandlerFunc(steps.VerifyMfa), moderate))
	r.Mux.Handle("POST /oauth2/v1/authorize-mfa-enroll", httpx.Chain(http.HandlerFunc(steps.EnrollMfa), moderate))
	r.Mux.Handle("POST /oauth2/v1/authorize-change-password", httpx.Chain(http.HandlerFunc(steps.ChangePassword), moderate))
	r.Mux.Handle("POST /oauth2/v1/authorize-change-email-code", httpx.Chain(http.HandlerFunc(steps.SendChangeEmailCode), moderate))
	r.Mux.Handle("POST /oauth2/v1/authorize-change-email", httpx.Chain(http.HandlerFunc(steps.ChangeEmail), moderate))
	r.Mux.Handle("POST /oauth2/v1/authorize-reset-mfa", httpx.Chain(http.HandlerFunc(steps.ResetMfa), moderate))
	r.Mux.Handle("POST /oauth2/v1/authorize-update-info", httpx.Chain(http.HandlerFunc(steps.UpdateInfo), moderate))
	r.Mux.Handle("POST /oauth2/v1/authorize-passkey-remove", httpx.Chain(http.HandlerFunc(steps.RemovePasskey), moderate))
	r.Mux.Handle("POST /oauth2/v1/authorize-passkey-enroll-skip", httpx.Chain(http.HandlerFunc(steps.SkipPasskeyEnroll), moderate))

	r.Mux.Handle("GET /oauth2/v1/authorize-passkey-challenge", httpx.Chain(http.HandlerFunc(passkey.Challenge), moderate))
	r.Mux.Handle("POST /oauth2/v1/authorize-passkey-verify", httpx.Chain(http.HandlerFunc(passkey.Verify),
		httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /oauth2/v1/authorize-passkey-enroll", httpx.Chain(http.HandlerFunc(passkey.BeginEnroll), moderate))
	r.Mux.Handle("POST /oauth2/v1/authorize-passkey-enroll-verify", httpx.Chain(http.HandlerFunc(passkey.FinishEnroll), moderate))

	r.Mux.Handle("POST /oauth2/v1/token", httpx.Chain(token,
		httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /oauth2/v1/revoke", httpx.Chain(revoke, moderate))
	r.Mux.Handle("POST /oauth2/v1/introspect", httpx.Chain(introspect, moderate))

	r.Mux.Handle("GET /oauth2/v1/userinfo", httpx.Chain(userinfo,
		authn,
		httpx.RequireAnyScope("profile"),
		httpx.RateLimitByUser(httpx.LenientLimit)))
	r.Mux.Handle("POST /oauth2/v1/account-link", httpx.Chain(http.HandlerFunc(link.Link),
		authn,
		httpx.RequireAnyScope("profile"),
		httpx.RateLimitByUser(httpx.LenientLimit)))
	r.Mux.Handle("POST /oauth2/v1/account-unlink", httpx.Chain(http.HandlerFunc(link.Unlink),
		authn,
		httpx.RequireAnyScope("profile"),
		httpx.RateLimitByUser(httpx.LenientLimit)))
	r.Mux.Handle("POST /oauth2/v1/logout", httpx.Chain(logout,
		authn,
		httpx.RateLimitByUser(httpx.ModerateLimit)))
}

func (r *Router) applyEmbeddedRoutes() {
	embedded := &EmbeddedHandler{Embedded: r.deps.Embedded}

	origin := httpx.OriginMiddleware(r.deps.Cfg.EmbeddedAuthOrigins,
		http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			writeError(w, req, domain.ErrWrongOrigin)
		}))
	moderate := httpx.RateLimitByIP(httpx.ModerateLimit)
	strict := httpx.RateLimitByIP(httpx.StrictLimit)

	handle := func(pattern string, h http.HandlerFunc, limit httpx.Middleware) {
		r.Mux.Handle(pattern, httpx.Chain(h, origin, limit))
	}

	handle("POST /embedded-auth/v1/initiate", embedded.Initiate, moderate)
	handle("POST /embedded-auth/v1/{sessionId}/sign-in", embedded.SignIn, strict)
	handle("POST /embedded-auth/v1/{sessionId}/sign-up", embedded.SignUp, strict)
	handle("POST /embedded-auth/v1/{sessionId}/app-consent", embedded.AppConsent, moderate)
	handle("POST /embedded-auth/v1/{sessionId}/mfa-enrollment", embedded.MfaEnrollment, moderate)
	handle("POST /embedded-auth/v1/{sessionId}/email-mfa-code", embedded.EmailMfaCode, moderate)
	handle("POST /embedded-auth/v1/{sessionId}/email-mfa", embedded.EmailMfa, moderate)
	handle("POST /embedded-auth/v1/{sessionId}/otp-mfa-setup", embedded.OtpMfaSetup, moderate)
	handle("POST /embedded-auth/v1/{sessionId}/otp-mfa", embedded.OtpMfa, moderate)
	handle("POST /embedded-auth/v1/{sessionId}/sms-mfa-setup", embedded.SmsMfaSetup, moderate)
	handle("POST /embedded-auth/v1/{sessionId}/sms-mfa-code", embedded.SmsMfaCode, moderate)
	handle("POST /embedded-auth/v1/{sessionId}/sms-mfa", embedded.SmsMfa, moderate)
	handle("POST /embedded-auth/v1/{sessionId}/passwordless-code", embedded.PasswordlessCode, moderate)
	handle("POST /embedded-auth/v1/{sessionId}/passwordless-verify", embedded.PasswordlessVerify, moderate)
	handle("POST /embedded-auth/v1/token-exchange", embedded.TokenExchange, strict)
	handle("POST /embedded-auth/v1/token-refresh", embedded.TokenRefresh, moderate)
	handle("POST /embedded-auth/v1/sign-out", embedded.SignOut, moderate)
}
