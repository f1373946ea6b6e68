package core

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/edvin/oportunia/internal/crypto"
	"github.com/edvin/oportunia/internal/model"
	"github.com/edvin/oportunia/internal/oauth"
	"github.com/edvin/oportunia/internal/settings"
)

var testNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestCipher(t *testing.T) *crypto.Cipher {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	c, err := crypto.NewCipher(key)
	require.NoError(t, err)
	return c
}

// fakeOAuth stands in for the provider token endpoint.
type fakeOAuth struct {
	refreshCalls  atomic.Int32
	exchangeCalls atomic.Int32
	refreshFn     func(refreshToken string) (*oauth.TokenResponse, error)
	exchangeFn    func(code, verifier string) (*oauth.TokenResponse, error)

	mu        sync.Mutex
	lastCreds oauth.Credentials
}

func (f *fakeOAuth) AuthorizationURL(slot model.Slot, clientID, redirectURI, challenge, state, site string) (string, error) {
	q := url.Values{
		"client_id":      {clientID},
		"redirect_uri":   {redirectURI},
		"code_challenge": {challenge},
		"state":          {state},
	}
	return "https://auth.test/" + string(slot) + "/authorization?" + q.Encode(), nil
}

func (f *fakeOAuth) ExchangeCode(_ context.Context, _ model.Slot, creds oauth.Credentials, _, code, verifier string) (*oauth.TokenResponse, error) {
	f.exchangeCalls.Add(1)
	f.mu.Lock()
	f.lastCreds = creds
	f.mu.Unlock()
	if f.exchangeFn == nil {
		return nil, errors.New("unexpected exchange")
	}
	return f.exchangeFn(code, verifier)
}

func (f *fakeOAuth) Refresh(_ context.Context, _ model.Slot, creds oauth.Credentials, refreshToken string) (*oauth.TokenResponse, error) {
	f.refreshCalls.Add(1)
	f.mu.Lock()
	f.lastCreds = creds
	f.mu.Unlock()
	if f.refreshFn == nil {
		return nil, errors.New("unexpected refresh")
	}
	return f.refreshFn(refreshToken)
}

type tokenFixture struct {
	store  *settings.MemoryStore
	cipher *crypto.Cipher
	oauth  *fakeOAuth
	tokens *TokenService
}

func newTokenFixture(t *testing.T) *tokenFixture {
	t.Helper()
	f := &tokenFixture{
		store:  settings.NewMemoryStore(),
		cipher: newTestCipher(t),
		oauth:  &fakeOAuth{},
	}
	f.tokens = NewTokenService(f.store, f.cipher, f.oauth, zerolog.Nop())
	f.tokens.now = fixedClock
	return f
}

func (f *tokenFixture) seedConfig(t *testing.T, slot model.Slot) {
	t.Helper()
	secret, err := f.cipher.Encrypt("s3cret")
	require.NoError(t, err)
	require.NoError(t, settings.Save(context.Background(), f.store, settings.ProviderConfigKey(slot),
		&model.ProviderConfig{ClientID: "1234", ClientSecret: secret, SiteID: "MLA"}))
}

func (f *tokenFixture) seedTokens(t *testing.T, slot model.Slot, access, refresh string, expiresIn time.Duration) {
	t.Helper()
	a, err := f.cipher.Encrypt(access)
	require.NoError(t, err)
	r, err := f.cipher.Encrypt(refresh)
	require.NoError(t, err)
	require.NoError(t, settings.Save(context.Background(), f.store, settings.TokensKey(slot), &model.AuthTokenRecord{
		AccessToken:    a,
		RefreshToken:   r,
		ExpiresAt:      testNow.Add(expiresIn),
		ExternalUserID: "42",
		UpdatedAt:      testNow.Add(-5 * time.Hour),
	}))
}

func (f *tokenFixture) record(t *testing.T, slot model.Slot) *model.AuthTokenRecord {
	t.Helper()
	rec, err := settings.Load(context.Background(), f.store, settings.TokensKey(slot))
	require.NoError(t, err)
	return rec
}
