package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/oportunia/internal/api/request"
	"github.com/edvin/oportunia/internal/api/response"
	"github.com/edvin/oportunia/internal/core"
	"github.com/edvin/oportunia/internal/model"
)

// PendingCookie carries the pending authorization id from the connect
// request to the OAuth callback.
const PendingCookie = "oportunia_oauth_pending"

// Provider serves the admin endpoints for provider slots.
type Provider struct {
	config       *core.ProviderConfigService
	connect      *core.ConnectService
	secureCookie bool
}

func NewProvider(config *core.ProviderConfigService, connect *core.ConnectService, secureCookie bool) *Provider {
	return &Provider{config: config, connect: connect, secureCookie: secureCookie}
}

func slotParam(r *http.Request) model.Slot {
	return model.Slot(chi.URLParam(r, "slot"))
}

func (h *Provider) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.config.Get(r.Context(), slotParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, view)
}

func (h *Provider) Save(w http.ResponseWriter, r *http.Request) {
	var req request.SaveProviderConfig
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.config.Save(r.Context(), slotParam(r), core.ProviderConfigInput{
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		SiteID:       req.SiteID,
		PublicKey:    req.PublicKey,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, view)
}

func (h *Provider) SetMode(w http.ResponseWriter, r *http.Request) {
	var req request.SetPaymentsMode
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.config.SetMode(r.Context(), model.TokenMode(req.Mode)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeStatus(w, r, model.SlotPayments)
}

func (h *Provider) SetStaticToken(w http.ResponseWriter, r *http.Request) {
	var req request.SetStaticToken
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.config.SetStaticToken(r.Context(), model.StaticTokenConfig{AccessToken: req.AccessToken, PublicKey: req.PublicKey}); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeStatus(w, r, model.SlotPayments)
}

// Connect starts the OAuth flow and binds it to the browser with a cookie.
func (h *Provider) Connect(w http.ResponseWriter, r *http.Request) {
	auth, err := h.connect.BeginAuthorization(r.Context(), slotParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     PendingCookie,
		Value:    auth.PendingID,
		Path:     "/oauth/callback",
		Expires:  auth.ExpiresAt,
		MaxAge:   int(time.Until(auth.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	response.WriteJSON(w, http.StatusOK, auth)
}

func (h *Provider) Status(w http.ResponseWriter, r *http.Request) {
	h.writeStatus(w, r, slotParam(r))
}

func (h *Provider) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.connect.Disconnect(r.Context(), slotParam(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Provider) writeStatus(w http.ResponseWriter, r *http.Request, slot model.Slot) {
	st, err := h.connect.Status(r.Context(), slot)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, st)
}
