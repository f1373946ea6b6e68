package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/oportunia/internal/api/middleware"
	"github.com/edvin/oportunia/internal/api/response"
	"github.com/edvin/oportunia/internal/core"
	"github.com/edvin/oportunia/internal/marketplace"
)

// writeServiceError maps service errors to status codes and machine-readable
// error codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var limitErr *core.UsageLimitError
	var apiErr *marketplace.APIError

	switch {
	case errors.As(err, &limitErr):
		remaining := max(limitErr.Decision.Remaining, 0)
		response.WriteJSON(w, http.StatusPaymentRequired, response.ErrorResponse{
			Error:     "usage_limit_reached",
			Remaining: &remaining,
		})
	case errors.Is(err, core.ErrInvalidInput):
		response.WriteErrorDetail(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, core.ErrUnknownSlot):
		response.WriteError(w, http.StatusNotFound, "unknown_provider")
	case errors.Is(err, core.ErrUnauthorized):
		response.WriteError(w, http.StatusUnauthorized, "invalid_credentials")
	case errors.Is(err, core.ErrConfigMissing):
		response.WriteError(w, http.StatusConflict, "config_missing")
	case errors.Is(err, core.ErrNotConnected):
		response.WriteError(w, http.StatusConflict, "not_connected")
	case errors.Is(err, core.ErrRefreshFailed):
		response.WriteError(w, http.StatusConflict, "reconnect_required")
	case errors.Is(err, core.ErrRefreshTimedOut):
		response.WriteError(w, http.StatusGatewayTimeout, "provider_timeout")
	case errors.As(err, &apiErr):
		status := http.StatusBadGateway
		if apiErr.StatusCode == http.StatusNotFound {
			status = http.StatusNotFound
		}
		response.WriteErrorDetail(w, status, "marketplace_error", apiErr.Message)
	default:
		code := "internal_error"
		if errors.Is(err, core.ErrCorruptedTokens) {
			code = "corrupted_tokens"
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		response.WriteError(w, http.StatusInternalServerError, code)
	}
}

func userID(r *http.Request) string {
	if claims := middleware.GetClaims(r.Context()); claims != nil {
		return claims.Subject
	}
	return ""
}
