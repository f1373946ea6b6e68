package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	WriteJSON(w, http.StatusOK, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "world", body["hello"])
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, http.StatusBadRequest, "something went wrong")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"something went wrong"}`, w.Body.String())
}

func TestWriteErrorDetail(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorDetail(w, http.StatusConflict, "not_connected", "marketplace is not connected")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"not_connected","detail":"marketplace is not connected"}`, w.Body.String())
}

func TestWriteJSON_NilValue(t *testing.T) {
	w := httptest.NewRecorder()

	WriteJSON(w, http.StatusOK, nil)

	// json.Encode(nil) produces "null\n"
	assert.Equal(t, "null\n", w.Body.String())
}
