package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ariaauth/aria/internal/auth/ceremony"
	"github.com/ariaauth/aria/internal/auth/domain"
	httpapi "github.com/ariaauth/aria/internal/auth/http"
	"github.com/ariaauth/aria/internal/auth/service"
	"github.com/ariaauth/aria/internal/auth/store"
	"github.com/ariaauth/aria/internal/auth/store/drivers/memory"
	"github.com/ariaauth/aria/internal/auth/store/drivers/sqlite"
	"github.com/ariaauth/aria/pkg/cryptox"
	"github.com/ariaauth/aria/pkg/jwtx"
)

const (
	testIssuer   = "https://auth.e2e.test"
	testClientID = "spa-client"
	testSecret   = "s2s-secret-value"
	s2sClientID  = "s2s-client"
	testRedirect = "https://app.e2e.test/callback"
	testEmail    = "alice@example.com"
	testPassword = "correct horse battery staple"
	testVerifier = "0123456789abcdef0123456789abcdef0123456789abcdef"
	testOrigin   = "https://app.e2e.test"
)

var codePattern = regexp.MustCompile(`[0-9]{6}`)

// captureNotifier records outbound messages so tests can read delivered
// codes.
type captureNotifier struct {
	mu     sync.Mutex
	emails []string
	sms    []string
}

func (n *captureNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, body)
	return nil
}

func (n *captureNotifier) SendSms(ctx context.Context, to, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sms = append(n.sms, body)
	return nil
}

func (n *captureNotifier) lastEmailCode() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.emails) == 0 {
		return ""
	}
	return codePattern.FindString(n.emails[len(n.emails)-1])
}

// harness runs the whole HTTP surface in-process against a real sqlite store
// and the in-memory ephemeral driver.
type harness struct {
	t        *testing.T
	server   *httptest.Server
	store    *sqlite.Store
	notifier *captureNotifier
}

func setupServer(t *testing.T, mutate ...func(*service.Config)) *harness {
	t.Helper()

	db, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations())
	t.Cleanup(func() { _ = db.Close() })

	eph := memory.NewStore()
	notifier := &captureNotifier{}

	cfg := service.Defaults()
	cfg.EnableEmbeddedAuth = true
	cfg.EmbeddedAuthOrigins = []string{testOrigin}
	for _, m := range mutate {
		m(&cfg)
	}

	keys := jwtx.NewKeySource(store.SigningKeys(eph), store.SigningKeyKey)
	lockout := service.NewLockoutGuard(eph, cfg)
	tokens := service.NewTokenService(keys, eph, testIssuer, cfg)
	passkeys := service.NewPasskeyService(db, eph, ceremony.Disabled{}, cfg)

	auth := &service.AuthorizeService{
		Store:    db,
		Tokens:   tokens,
		Mfa:      service.NewMfaService(db, eph, notifier, lockout, testIssuer, cfg),
		Passkeys: passkeys,
		Consent:  &service.ConsentGate{Store: db},
		Lockout:  lockout,
		Cfg:      cfg,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := httpapi.NewRouter(httpapi.RouterDeps{
		Logger:       logger,
		BuildVersion: "e2e",
		Store:        db,
		Ephemeral:    eph,
		Keys:         keys,
		Cfg:          cfg,
		Auth:         auth,
		Embedded:     &service.EmbeddedService{Auth: auth},
		Users:        &service.UserService{Store: db, Cfg: cfg},
		Tokens:       tokens,
		Passkeys:     passkeys,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &harness{t: t, server: server, store: db, notifier: notifier}
}

func (h *harness) seedSpaApp() {
	h.t.Helper()
	now := time.Now().UTC()
	require.NoError(h.t, h.store.Apps().CreateApp(context.Background(), domain.App{
		ClientID:           testClientID,
		Name:               "E2E SPA",
		Type:               domain.AppTypeSPA,
		RedirectURIs:       []string{testRedirect},
		Scopes:             []string{"openid", "profile", "offline_access"},
		IsActive:           true,
		UseSystemMfaConfig: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}))
}

func (h *harness) seedS2sApp() {
	h.t.Helper()
	hash, err := cryptox.HashPassword(testSecret)
	require.NoError(h.t, err)
	now := time.Now().UTC()
	require.NoError(h.t, h.store.Apps().CreateApp(context.Background(), domain.App{
		ClientID:           s2sClientID,
		Name:               "E2E Service",
		SecretHash:         hash,
		Type:               domain.AppTypeS2S,
		Scopes:             []string{"root"},
		IsActive:           true,
		UseSystemMfaConfig: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}))
}

func (h *harness) seedUser() {
	h.t.Helper()
	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(h.t, err)
	now := time.Now().UTC()
	require.NoError(h.t, h.store.Users().CreateUser(context.Background(), domain.User{
		AuthID:            "user-e2e-1",
		Email:             testEmail,
		PasswordHash:      hash,
		FirstName:         "Alice",
		LastName:          "Example",
		EmailVerified:     true,
		SkipPasskeyEnroll: true,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}))
}

func authRequestBody(extra map[string]any) map[string]any {
	body := map[string]any{
		"clientId":            testClientID,
		"redirectUri":         testRedirect,
		"responseType":        "code",
		"state":               "xyz",
		"scopes":              []string{"openid", "profile", "offline_access"},
		"codeChallenge":       cryptox.S256Challenge(testVerifier),
		"codeChallengeMethod": "s256",
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

// postJSON posts a JSON body and decodes the JSON response, returning the
// status code and raw body for error assertions.
func (h *harness) postJSON(path string, body any, out any) (int, string) {
	h.t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(h.t, err)

	req, err := http.NewRequest(http.MethodPost, h.server.URL+path, bytes.NewReader(raw))
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", testOrigin)

	return h.do(req, out)
}

func (h *harness) postForm(path string, form url.Values, basicUser, basicPass string, out any) (int, string) {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if basicUser != "" {
		req.SetBasicAuth(basicUser, basicPass)
	}
	return h.do(req, out)
}

func (h *harness) getJSON(path, bearer string, out any) (int, string) {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.server.URL+path, nil)
	require.NoError(h.t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return h.do(req, out)
}

func (h *harness) do(req *http.Request, out any) (int, string) {
	h.t.Helper()
	resp, err := h.server.Client().Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(h.t, json.Unmarshal(raw, out))
	}
	return resp.StatusCode, strings.TrimSpace(string(raw))
}

// signIn runs the password step and returns the issued code, requiring the
// flow to be complete.
func (h *harness) signIn() string {
	h.t.Helper()
	var res struct {
		Code     string `json:"code"`
		NextStep string `json:"nextStep"`
	}
	status, body := h.postJSON("/oauth2/v1/authorize-password", authRequestBody(map[string]any{
		"email":    testEmail,
		"password": testPassword,
	}), &res)
	require.Equal(h.t, http.StatusOK, status, body)
	require.Empty(h.t, res.NextStep)
	require.NotEmpty(h.t, res.Code)
	return res.Code
}

type tokenJSON struct {
	AccessToken           string `json:"access_token"`
	ExpiresIn             int64  `json:"expires_in"`
	ExpiresOn             int64  `json:"expires_on"`
	NotBefore             int64  `json:"not_before"`
	TokenType             string `json:"token_type"`
	Scope                 string `json:"scope"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
	IDToken               string `json:"id_token"`
}

func (h *harness) exchange(code string) tokenJSON {
	h.t.Helper()
	var out tokenJSON
	status, body := h.postForm("/oauth2/v1/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"code_verifier": {testVerifier},
	}, "", "", &out)
	require.Equal(h.t, http.StatusOK, status, body)
	return out
}
