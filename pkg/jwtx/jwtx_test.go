package jwtx

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type mapKeyStore struct {
	mu   sync.Mutex
	data map[string]string
	gets int
}

func newMapKeyStore() *mapKeyStore {
	return &mapKeyStore{data: map[string]string{}}
}

func (s *mapKeyStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	v, ok := s.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (s *mapKeyStore) Put(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func TestKeySourceGeneratesAndPersists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newMapKeyStore()

	src := NewKeySource(store, "sk:jwt")
	key, err := src.Private(ctx)
	require.NoError(t, err)
	require.NotNil(t, key)
	require.NotEmpty(t, src.KID())
	require.Contains(t, store.data["sk:jwt"], "RSA PRIVATE KEY")

	// A second source over the same store must load the same key.
	other := NewKeySource(store, "sk:jwt")
	loaded, err := other.Private(ctx)
	require.NoError(t, err)
	require.Equal(t, key.N, loaded.N)
	require.Equal(t, src.KID(), other.KID())
}

func TestKeySourceCachesAfterFirstLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newMapKeyStore()
	src := NewKeySource(store, "sk:jwt")

	_, err := src.Private(ctx)
	require.NoError(t, err)
	before := store.gets

	for range 5 {
		_, err = src.Private(ctx)
		require.NoError(t, err)
	}
	require.Equal(t, before, store.gets)
}

// unreachableKeyStore fails every Get with an infrastructure error and
// records whether anything was written.
type unreachableKeyStore struct {
	puts int
}

func (s *unreachableKeyStore) Get(context.Context, string) (string, error) {
	return "", errors.New("connection refused")
}

func (s *unreachableKeyStore) Put(context.Context, string, string, time.Duration) error {
	s.puts++
	return nil
}

func TestKeySourceDoesNotRotateOnStoreFailure(t *testing.T) {
	t.Parallel()

	store := &unreachableKeyStore{}
	src := NewKeySource(store, "sk:jwt")

	// only a miss may generate; an outage must not mint a replacement key
	_, err := src.Private(context.Background())
	require.ErrorIs(t, err, ErrNoPrivateKey)
	require.Zero(t, store.puts)
	require.Empty(t, src.KID())
}

func TestSignAndVerifyAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := NewKeySource(newMapKeyStore(), "sk:jwt")
	key, err := src.Private(ctx)
	require.NoError(t, err)

	now := time.Now()
	claims := NewAccessClaims("https://auth.example.com", "user-1", "client-1", "openid profile", []string{"user"}, "", DefaultAccessTokenTTL, now)

	token, err := Sign(key, src.KID(), claims)
	require.NoError(t, err)

	parsed, err := VerifyAccess(token, &key.PublicKey, "https://auth.example.com")
	require.NoError(t, err)
	require.Equal(t, "user-1", parsed.Subject)
	require.Equal(t, "client-1", parsed.Azp)
	require.Equal(t, "openid profile", parsed.Scope)
	require.Equal(t, int64(1800), parsed.ExpiresAt.Unix()-parsed.IssuedAt.Unix())
}

func TestVerifyAccessRejectsBadTokens(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := NewKeySource(newMapKeyStore(), "sk:jwt")
	key, err := src.Private(ctx)
	require.NoError(t, err)

	_, err = VerifyAccess("garbage", &key.PublicKey, "")
	require.ErrorIs(t, err, ErrMalformed)

	expired := NewAccessClaims("iss", "sub", "azp", "", nil, "", -time.Minute, time.Now().Add(-time.Hour))
	token, err := Sign(key, src.KID(), expired)
	require.NoError(t, err)
	_, err = VerifyAccess(token, &key.PublicKey, "")
	require.ErrorIs(t, err, ErrExpired)

	wrongIss := NewAccessClaims("other", "sub", "azp", "", nil, "", time.Hour, time.Now())
	token, err = Sign(key, src.KID(), wrongIss)
	require.NoError(t, err)
	_, err = VerifyAccess(token, &key.PublicKey, "expected")
	require.ErrorIs(t, err, ErrIssuer)
}
