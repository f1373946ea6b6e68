package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/oportunia/internal/model"
)

func TestProviderSave_AndGet(t *testing.T) {
	e := newEnv(t)
	h := NewProvider(e.services.ProviderConfig, e.services.Connect, true)

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPut, "/", map[string]string{"client_id": "1234", "client_secret": "s3cret", "site_id": "mlb"})
	h.Save(rec, withChiURLParam(r, "slot", "marketplace"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "s3cret")

	rec = httptest.NewRecorder()
	h.Get(rec, withChiURLParam(newRequest(http.MethodGet, "/", nil), "slot", "marketplace"))
	require.Equal(t, http.StatusOK, rec.Code)

	var view model.ProviderConfigView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "1234", view.ClientID)
	assert.Equal(t, "MLB", view.SiteID)
	assert.True(t, view.HasClientSecret)
}

func TestProviderSave_InvalidJSON(t *testing.T) {
	e := newEnv(t)
	h := NewProvider(e.services.ProviderConfig, e.services.Connect, true)

	rec := httptest.NewRecorder()
	h.Save(rec, withChiURLParam(newRequestRaw(http.MethodPut, "/", "{bad json"), "slot", "marketplace"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProviderSave_MissingSecret(t *testing.T) {
	e := newEnv(t)
	h := NewProvider(e.services.ProviderConfig, e.services.Connect, true)

	rec := httptest.NewRecorder()
	h.Save(rec, withChiURLParam(newRequest(http.MethodPut, "/", map[string]string{"client_id": "1234"}), "slot", "payments"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", decodeErrorResponse(rec)["error"])
}

func TestProviderGet_Errors(t *testing.T) {
	e := newEnv(t)
	h := NewProvider(e.services.ProviderConfig, e.services.Connect, true)

	rec := httptest.NewRecorder()
	h.Get(rec, withChiURLParam(newRequest(http.MethodGet, "/", nil), "slot", "payments"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "config_missing", decodeErrorResponse(rec)["error"])

	rec = httptest.NewRecorder()
	h.Get(rec, withChiURLParam(newRequest(http.MethodGet, "/", nil), "slot", "bank"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProviderConnect_SetsCookie(t *testing.T) {
	e := newEnv(t)
	e.saveConfig(t, model.SlotMarketplace)

	cookie, state := e.connect(t, model.SlotMarketplace)
	assert.Equal(t, PendingCookie, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, "/oauth/callback", cookie.Path)
	assert.NotEmpty(t, cookie.Value)
	assert.Len(t, state, 32)
}

func TestProviderConnect_ConfigMissing(t *testing.T) {
	e := newEnv(t)
	h := NewProvider(e.services.ProviderConfig, e.services.Connect, true)

	rec := httptest.NewRecorder()
	h.Connect(rec, withChiURLParam(newRequest(http.MethodPost, "/", nil), "slot", "marketplace"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProviderPaymentsMode(t *testing.T) {
	e := newEnv(t)
	h := NewProvider(e.services.ProviderConfig, e.services.Connect, true)

	rec := httptest.NewRecorder()
	h.SetMode(rec, newRequest(http.MethodPut, "/", map[string]string{"mode": "sandbox"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.SetMode(rec, newRequest(http.MethodPut, "/", map[string]string{"mode": "test"}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.SetStaticToken(rec, newRequest(http.MethodPut, "/", map[string]string{"access_token": "TEST-1"}))
	require.Equal(t, http.StatusOK, rec.Code)

	var st model.ConnectionStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Connected)
	assert.Equal(t, model.ModeTest, st.Mode)
}

// ---------- OAuth callback ----------

func callbackRequest(cookie *http.Cookie, q url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/oauth/callback?"+q.Encode(), nil)
	if cookie != nil {
		r.AddCookie(cookie)
	}
	return r
}

func redirectQuery(t *testing.T, rec *httptest.ResponseRecorder) url.Values {
	t.Helper()
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", loc.Host)
	assert.Equal(t, "/admin/settings", loc.Path)
	return loc.Query()
}

func TestOAuthCallback_Connected(t *testing.T) {
	e := newEnv(t)
	e.saveConfig(t, model.SlotMarketplace)
	cookie, state := e.connect(t, model.SlotMarketplace)

	h := NewOAuthCallback(e.services.Connect, testAppURL)
	rec := httptest.NewRecorder()
	h.Handle(rec, callbackRequest(cookie, url.Values{"code": {"TG-code"}, "state": {state}}))

	q := redirectQuery(t, rec)
	assert.Equal(t, "connected", q.Get("success"))
	assert.Equal(t, "marketplace", q.Get("provider"))

	status := NewProvider(e.services.ProviderConfig, e.services.Connect, true)
	rec = httptest.NewRecorder()
	status.Status(rec, withChiURLParam(newRequest(http.MethodGet, "/", nil), "slot", "marketplace"))
	var st model.ConnectionStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Connected)
	assert.Equal(t, "987654321", st.ExternalUserID)
}

func TestOAuthCallback_Failures(t *testing.T) {
	tests := []struct {
		name       string
		withCookie bool
		query      func(state string) url.Values
		wantError  string
	}{
		{"no cookie", false, func(s string) url.Values { return url.Values{"code": {"c"}, "state": {s}} }, "invalid_state"},
		{"forged state", true, func(string) url.Values { return url.Values{"code": {"c"}, "state": {"forged"}} }, "invalid_state"},
		{"no code", true, func(s string) url.Values { return url.Values{"state": {s}} }, "no_code"},
		{"provider denied", true, func(s string) url.Values { return url.Values{"error": {"access_denied"}, "state": {s}} }, "auth_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.saveConfig(t, model.SlotMarketplace)
			cookie, state := e.connect(t, model.SlotMarketplace)
			if !tt.withCookie {
				cookie = nil
			}

			h := NewOAuthCallback(e.services.Connect, testAppURL)
			rec := httptest.NewRecorder()
			h.Handle(rec, callbackRequest(cookie, tt.query(state)))

			q := redirectQuery(t, rec)
			assert.Equal(t, tt.wantError, q.Get("error"))
			assert.Empty(t, q.Get("success"))
		})
	}
}
