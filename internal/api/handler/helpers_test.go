package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/edvin/oportunia/internal/api/middleware"
	"github.com/edvin/oportunia/internal/billing"
	"github.com/edvin/oportunia/internal/core"
	"github.com/edvin/oportunia/internal/crypto"
	"github.com/edvin/oportunia/internal/db/dbtest"
	"github.com/edvin/oportunia/internal/model"
	"github.com/edvin/oportunia/internal/oauth"
	"github.com/edvin/oportunia/internal/settings"
)

const testAppURL = "https://app.example.com"

// newRequest creates a new HTTP request with an optional JSON body.
func newRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

// newRequestRaw creates a new HTTP request with a raw string body.
func newRequestRaw(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// withChiURLParam adds a chi URL parameter to the request context.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// withUser injects end-user claims into the request context.
func withUser(r *http.Request, id string) *http.Request {
	claims := &model.JWTClaims{Role: model.RoleUser, RegisteredClaims: jwt.RegisteredClaims{Subject: id}}
	return r.WithContext(middleware.WithClaims(r.Context(), claims))
}

// decodeErrorResponse parses the JSON error response body into a map.
func decodeErrorResponse(rec *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	return body
}

// nopDB accepts every write and returns no rows.
type nopDB struct{}

func (nopDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (nopDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (nopDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

type fakeMarketplace struct {
	listings []model.Listing
	err      error
}

func (m *fakeMarketplace) Categories(context.Context, string) ([]model.Category, error) {
	return []model.Category{{ID: "MLA1055", Name: "Celulares"}}, m.err
}

func (m *fakeMarketplace) Category(_ context.Context, id string) (*model.Category, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &model.Category{ID: id, Name: "Celulares"}, nil
}

func (m *fakeMarketplace) HighlightsByCategory(context.Context, string, string, int) ([]model.Listing, error) {
	return m.listings, m.err
}

type fakeGenerator struct{ text string }

func (g fakeGenerator) GenerateJSON(context.Context, string) (string, error) { return g.text, nil }

// env wires real core services over in-memory stores and a fake token endpoint.
type env struct {
	store    *settings.MemoryStore
	subs     *billing.MemoryStore
	favDB    *dbtest.DB
	market   *fakeMarketplace
	services *core.Services
	tokenSrv *httptest.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	cipher, err := crypto.NewCipher(key)
	require.NoError(t, err)

	e := &env{
		store: settings.NewMemoryStore(),
		subs:  billing.NewMemoryStore(),
		favDB: &dbtest.DB{},
		market: &fakeMarketplace{listings: []model.Listing{
			{ID: "MLA1", Title: "Funda Silicona Iphone Transparente", Price: 1000, SoldQuantity: 5, SellerID: 1},
			{ID: "MLA2", Title: "Funda Silicona Iphone Negra", Price: 1200, SoldQuantity: 3, SellerID: 2},
		}},
	}
	e.tokenSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "APP_USR-1", "refresh_token": "TG-1", "expires_in": 21600, "user_id": 987654321,
		})
	}))
	t.Cleanup(e.tokenSrv.Close)

	logger := zerolog.Nop()
	oauthClient := oauth.NewClient(oauth.WithAPIBaseURL(e.tokenSrv.URL))
	gate := billing.NewGate(e.subs, billing.DefaultLimits(), logger)
	tokens := core.NewTokenService(e.store, cipher, oauthClient, logger)
	providerCfg := core.NewProviderConfigService(e.store, cipher, logger)
	history := core.NewHistoryService(nopDB{})

	e.services = &core.Services{
		Tokens:            tokens,
		Connect:           core.NewConnectService(e.store, cipher, oauthClient, tokens, testAppURL+"/oauth/callback", logger),
		ProviderConfig:    providerCfg,
		Niche:             core.NewNicheService(e.market, e.subs, gate, history, providerCfg, logger),
		History:           history,
		Campaign:          core.NewCampaignService(fakeGenerator{text: `{"titles":["Funda Iphone"],"description":"Ideal."}`}, e.subs, gate, logger),
		Favorites:         core.NewFavoritesService(e.favDB),
		Subscriptions:     e.subs,
		SubscriptionAdmin: core.NewSubscriptionService(e.subs, logger),
		Gate:              gate,
	}
	return e
}

func (e *env) saveConfig(t *testing.T, slot model.Slot) {
	t.Helper()
	_, err := e.services.ProviderConfig.Save(context.Background(), slot, core.ProviderConfigInput{ClientID: "1234", ClientSecret: "s3cret"})
	require.NoError(t, err)
}

// connectURL starts an authorization and returns the pending cookie and state.
func (e *env) connect(t *testing.T, slot model.Slot) (*http.Cookie, string) {
	t.Helper()
	h := NewProvider(e.services.ProviderConfig, e.services.Connect, true)
	rec := httptest.NewRecorder()
	h.Connect(rec, withChiURLParam(newRequest(http.MethodPost, "/", nil), "slot", string(slot)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		AuthorizationURL string `json:"authorization_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	u, err := url.Parse(body.AuthorizationURL)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0], u.Query().Get("state")
}
