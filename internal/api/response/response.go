package response

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	Remaining *int   `json:"remaining,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// WriteErrorDetail writes a machine-readable code with a human detail.
func WriteErrorDetail(w http.ResponseWriter, status int, code, detail string) {
	WriteJSON(w, status, ErrorResponse{Error: code, Detail: detail})
}
