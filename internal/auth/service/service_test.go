package service

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/store"
	"github.com/ariaauth/aria/internal/auth/store/drivers/memory"
	"github.com/ariaauth/aria/pkg/cryptox"
	"github.com/ariaauth/aria/pkg/jwtx"
)

// fakeStore is a map-backed store.Store for service tests. Transactions are
// pass-through; the service layer under test never relies on rollback.
type fakeStore struct {
	mu         sync.Mutex
	users      map[string]domain.User
	apps       map[string]domain.App
	orgs       map[string]domain.Org
	orgMembers map[string][]string
	consents   map[string]bool
	logs       []domain.SignInLog
	passkeys   map[string]domain.Passkey
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      make(map[string]domain.User),
		apps:       make(map[string]domain.App),
		orgs:       make(map[string]domain.Org),
		orgMembers: make(map[string][]string),
		consents:   make(map[string]bool),
		passkeys:   make(map[string]domain.Passkey),
	}
}

func (f *fakeStore) Users() store.Users           { return f }
func (f *fakeStore) Apps() store.Apps             { return f }
func (f *fakeStore) Orgs() store.Orgs             { return f }
func (f *fakeStore) Consents() store.Consents     { return f }
func (f *fakeStore) SignInLogs() store.SignInLogs { return f }
func (f *fakeStore) Passkeys() store.Passkeys     { return f }
func (f *fakeStore) ApplyMigrations() error       { return nil }
func (f *fakeStore) Close() error                 { return nil }
func (f *fakeStore) Ping(context.Context) error   { return nil }

func (f *fakeStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return fn(fakeTx{f})
}

func (f *fakeStore) Tx(context.Context) (store.Tx, error) { return fakeTx{f}, nil }

type fakeTx struct{ *fakeStore }

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }

func (f *fakeStore) GetUserByAuthID(_ context.Context, authID string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[authID]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

func (f *fakeStore) CreateUser(_ context.Context, u domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return store.ErrAlreadyExists
		}
	}
	f.users[u.AuthID] = u
	return nil
}

func (f *fakeStore) mutateUser(authID string, mutate func(*domain.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[authID]
	if !ok {
		return store.ErrNotFound
	}
	mutate(&u)
	f.users[authID] = u
	return nil
}

func (f *fakeStore) UpdatePasswordHash(_ context.Context, authID, newHash string) error {
	return f.mutateUser(authID, func(u *domain.User) { u.PasswordHash = newHash })
}

func (f *fakeStore) UpdateEmail(_ context.Context, authID, email string) error {
	return f.mutateUser(authID, func(u *domain.User) {
		u.Email = email
		u.EmailVerified = false
	})
}

func (f *fakeStore) UpdateInfo(_ context.Context, authID, firstName, lastName, locale string) error {
	return f.mutateUser(authID, func(u *domain.User) {
		u.FirstName, u.LastName, u.Locale = firstName, lastName, locale
	})
}

func (f *fakeStore) UpdateMfaEnrollment(_ context.Context, authID string, types []domain.MfaType) error {
	return f.mutateUser(authID, func(u *domain.User) { u.MfaTypes = types })
}

func (f *fakeStore) UpdateOtpSecret(_ context.Context, authID, secret string, verified bool) error {
	return f.mutateUser(authID, func(u *domain.User) {
		u.OtpSecret, u.OtpVerified = secret, verified
	})
}

func (f *fakeStore) UpdateSmsPhoneNumber(_ context.Context, authID, number string, verified bool) error {
	return f.mutateUser(authID, func(u *domain.User) {
		u.SmsPhoneNumber, u.SmsPhoneNumberVerified = number, verified
	})
}

func (f *fakeStore) UpdateRecoveryCodeHash(_ context.Context, authID, hash string) error {
	return f.mutateUser(authID, func(u *domain.User) { u.RecoveryCodeHash = hash })
}

func (f *fakeStore) UpdateSkipPasskeyEnroll(_ context.Context, authID string, skip bool) error {
	return f.mutateUser(authID, func(u *domain.User) { u.SkipPasskeyEnroll = skip })
}

func (f *fakeStore) UpdateOrgSlug(_ context.Context, authID, orgSlug string) error {
	return f.mutateUser(authID, func(u *domain.User) { u.OrgSlug = orgSlug })
}

func (f *fakeStore) LinkUsers(_ context.Context, authID, targetAuthID string) error {
	if err := f.mutateUser(authID, func(u *domain.User) { u.LinkedAuthID = targetAuthID }); err != nil {
		return err
	}
	return f.mutateUser(targetAuthID, func(u *domain.User) { u.LinkedAuthID = authID })
}

func (f *fakeStore) UnlinkUsers(_ context.Context, authID, targetAuthID string) error {
	if err := f.mutateUser(authID, func(u *domain.User) { u.LinkedAuthID = "" }); err != nil {
		return err
	}
	return f.mutateUser(targetAuthID, func(u *domain.User) { u.LinkedAuthID = "" })
}

func (f *fakeStore) SetActive(_ context.Context, authID string, active bool) error {
	return f.mutateUser(authID, func(u *domain.User) { u.IsActive = active })
}

func (f *fakeStore) GetAppByClientID(_ context.Context, clientID string) (domain.App, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.apps[clientID]
	if !ok {
		return domain.App{}, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) CreateApp(_ context.Context, a domain.App) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.apps[a.ClientID]; ok {
		return store.ErrAlreadyExists
	}
	f.apps[a.ClientID] = a
	return nil
}

func (f *fakeStore) GetOrgBySlug(_ context.Context, slug string) (domain.Org, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orgs[slug]
	if !ok {
		return domain.Org{}, store.ErrNotFound
	}
	return o, nil
}

func (f *fakeStore) ListOrgSlugsForUser(_ context.Context, authID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orgMembers[authID], nil
}

func (f *fakeStore) CreateOrg(_ context.Context, o domain.Org) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orgs[o.Slug] = o
	return nil
}

func (f *fakeStore) AddMember(_ context.Context, orgSlug, authID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orgMembers[authID] = append(f.orgMembers[authID], orgSlug)
	return nil
}

func (f *fakeStore) HasConsent(_ context.Context, authID, clientID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.consents[authID+"|"+clientID], nil
}

func (f *fakeStore) RecordConsent(_ context.Context, authID, clientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consents[authID+"|"+clientID] = true
	return nil
}

func (f *fakeStore) RevokeConsent(_ context.Context, authID, clientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.consents, authID+"|"+clientID)
	return nil
}

func (f *fakeStore) AppendSignInLog(_ context.Context, l domain.SignInLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, l)
	return nil
}

func (f *fakeStore) DeleteSignInLogsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.logs[:0]
	var pruned int64
	for _, l := range f.logs {
		if l.CreatedAt.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, l)
	}
	f.logs = kept
	return pruned, nil
}

func (f *fakeStore) CreatePasskey(_ context.Context, p domain.Passkey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passkeys[p.ID] = p
	return nil
}

func (f *fakeStore) GetPasskeyByCredentialID(_ context.Context, credentialID string) (domain.Passkey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.passkeys {
		if p.CredentialID == credentialID {
			return p, nil
		}
	}
	return domain.Passkey{}, store.ErrNotFound
}

func (f *fakeStore) ListPasskeysForUser(_ context.Context, authID string) ([]domain.Passkey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Passkey
	for _, p := range f.passkeys {
		if p.UserAuthID == authID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdatePasskeyCounter(_ context.Context, id string, counter uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.passkeys[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Counter = counter
	f.passkeys[id] = p
	return nil
}

func (f *fakeStore) DeletePasskey(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.passkeys[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.passkeys, id)
	return nil
}

// captureNotifier records outbound messages instead of delivering them.
type captureNotifier struct {
	mu     sync.Mutex
	emails []capturedMessage
	sms    []capturedMessage
}

type capturedMessage struct {
	to   string
	body string
}

var numericCodeRe = regexp.MustCompile(`[0-9]{6}`)

func (n *captureNotifier) SendEmail(_ context.Context, to, _, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, capturedMessage{to: to, body: body})
	return nil
}

func (n *captureNotifier) SendSms(_ context.Context, to, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sms = append(n.sms, capturedMessage{to: to, body: body})
	return nil
}

func (n *captureNotifier) lastEmailCode(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.emails) == 0 {
		t.Fatal("no email was sent")
	}
	code := numericCodeRe.FindString(n.emails[len(n.emails)-1].body)
	if code == "" {
		t.Fatal("email carried no one-time code")
	}
	return code
}

func (n *captureNotifier) lastSmsCode(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sms) == 0 {
		t.Fatal("no sms was sent")
	}
	code := numericCodeRe.FindString(n.sms[len(n.sms)-1].body)
	if code == "" {
		t.Fatal("sms carried no one-time code")
	}
	return code
}

// stubVerifier accepts every ceremony and echoes fixed credential data.
type stubVerifier struct {
	credentialID string
	publicKey    string
	counter      uint32
	fail         bool
}

func (v *stubVerifier) VerifyRegistration(context.Context, string, []byte) (RegistrationResult, error) {
	if v.fail {
		return RegistrationResult{}, domain.ErrInvalidPasskeyEnrollRequest
	}
	return RegistrationResult{CredentialID: v.credentialID, PublicKey: v.publicKey, Counter: v.counter}, nil
}

func (v *stubVerifier) VerifyAuthentication(context.Context, string, string, uint32, []byte) (AuthenticationResult, error) {
	if v.fail {
		return AuthenticationResult{}, domain.ErrInvalidPasskeyVerifyRequest
	}
	return AuthenticationResult{CredentialID: v.credentialID, Counter: v.counter + 1}, nil
}

const testIssuer = "https://auth.test"

type testEnv struct {
	store    *fakeStore
	eph      *memory.Store
	notifier *captureNotifier
	tokens   *TokenService
	lockout  *LockoutGuard
	mfa      *MfaService
	passkeys *PasskeyService
	auth     *AuthorizeService
	embedded *EmbeddedService
	users    *UserService
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	st := newFakeStore()
	eph := memory.NewStore()
	notifier := &captureNotifier{}

	tokens := NewTokenService(jwtx.NewKeySource(store.SigningKeys(eph), store.SigningKeyKey), eph, testIssuer, cfg)
	lockout := NewLockoutGuard(eph, cfg)
	mfa := NewMfaService(st, eph, notifier, lockout, testIssuer, cfg)
	passkeys := NewPasskeyService(st, eph, &stubVerifier{credentialID: "cred-1", publicKey: "pk-1"}, cfg)

	auth := &AuthorizeService{
		Store:    st,
		Tokens:   tokens,
		Mfa:      mfa,
		Passkeys: passkeys,
		Consent:  &ConsentGate{Store: st},
		Lockout:  lockout,
		Cfg:      cfg,
	}

	return &testEnv{
		store:    st,
		eph:      eph,
		notifier: notifier,
		tokens:   tokens,
		lockout:  lockout,
		mfa:      mfa,
		passkeys: passkeys,
		auth:     auth,
		embedded: &EmbeddedService{Auth: auth},
		users:    &UserService{Store: st, Cfg: cfg},
	}
}

const (
	testPassword = "correct horse battery staple"
	testClientID = "spa-client"
	testRedirect = "https://app.test/callback"
	testVerifier = "0123456789abcdef0123456789abcdef0123456789abcdef"
)

func (e *testEnv) seedUser(t *testing.T, mutate ...func(*domain.User)) domain.User {
	t.Helper()
	hash := mustHashPassword(t)
	u := domain.User{
		AuthID:       "user-1",
		Email:        "alice@example.com",
		PasswordHash: hash,
		Locale:       "en-AU",
		Roles:        []string{"member"},
		IsActive:     true,
		// the prompt is opt-in per test
		SkipPasskeyEnroll: true,
	}
	for _, m := range mutate {
		m(&u)
	}
	e.store.users[u.AuthID] = u
	return u
}

func (e *testEnv) seedApp(t *testing.T, mutate ...func(*domain.App)) domain.App {
	t.Helper()
	a := domain.App{
		ClientID:           testClientID,
		Name:               "Test SPA",
		Type:               domain.AppTypeSPA,
		RedirectURIs:       []string{testRedirect},
		Scopes:             []string{"openid", "profile", "offline_access"},
		IsActive:           true,
		UseSystemMfaConfig: true,
	}
	for _, m := range mutate {
		m(&a)
	}
	e.store.apps[a.ClientID] = a
	return a
}

var (
	hashOnce   sync.Once
	hashCached string
)

func mustHashPassword(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		h, err := hashForTests()
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		hashCached = h
	})
	return hashCached
}

func hashForTests() (string, error) {
	return cryptox.HashPassword(testPassword)
}

func challengeForTests() string {
	return cryptox.S256Challenge(testVerifier)
}

func testAuthRequest(mutate ...func(*domain.AuthRequest)) *domain.AuthRequest {
	req := &domain.AuthRequest{
		ClientID:            testClientID,
		RedirectURI:         testRedirect,
		ResponseType:        "code",
		State:               "xyz",
		Scopes:              []string{"openid", "profile"},
		CodeChallenge:       challengeForTests(),
		CodeChallengeMethod: domain.ChallengeMethodS256,
	}
	for _, m := range mutate {
		m(req)
	}
	return req
}
