package request

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireID(t *testing.T) {
	id, err := RequireID("MLA1055")
	require.NoError(t, err)
	assert.Equal(t, "MLA1055", id)

	_, err = RequireID("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required ID")
}

func decodeBody(t *testing.T, body string, v any) error {
	t.Helper()
	r, err := http.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	require.NoError(t, err)
	return Decode(r, v)
}

func TestDecode_ValidJSON(t *testing.T) {
	var payload Login
	require.NoError(t, decodeBody(t, `{"email":"admin@example.com","password":"x"}`, &payload))
	assert.Equal(t, "admin@example.com", payload.Email)
}

func TestDecode_InvalidJSON(t *testing.T) {
	var payload Login
	err := decodeBody(t, `{not valid json}`, &payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestDecode_ValidationFails(t *testing.T) {
	var payload Login
	err := decodeBody(t, `{"email":"not-an-email","password":"x"}`, &payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error")
}

func TestDecode_SiteID(t *testing.T) {
	tests := []struct {
		body  string
		valid bool
	}{
		{`{"client_id":"1","site_id":"MLB"}`, true},
		{`{"client_id":"1","site_id":"mla"}`, true},
		{`{"client_id":"1"}`, true},
		{`{"client_id":"1","site_id":"ML"}`, false},
		{`{"client_id":"1","site_id":"ML1"}`, false},
	}
	for _, tt := range tests {
		var payload SaveProviderConfig
		err := decodeBody(t, tt.body, &payload)
		if tt.valid {
			assert.NoError(t, err, tt.body)
		} else {
			assert.Error(t, err, tt.body)
		}
	}
}

func TestDecode_PaymentsMode(t *testing.T) {
	var payload SetPaymentsMode
	require.NoError(t, decodeBody(t, `{"mode":"test"}`, &payload))
	require.Error(t, decodeBody(t, `{"mode":"sandbox"}`, &payload))
}
