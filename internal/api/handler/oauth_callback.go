package handler

import (
	"net/http"
	"net/url"

	"github.com/edvin/oportunia/internal/core"
)

// OAuthCallback receives the provider redirect and sends the admin back to
// the settings page with the outcome in the query string.
type OAuthCallback struct {
	connect *core.ConnectService
	appURL  string
}

func NewOAuthCallback(connect *core.ConnectService, appURL string) *OAuthCallback {
	return &OAuthCallback{connect: connect, appURL: appURL}
}

func (h *OAuthCallback) Handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := core.CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
	if c, err := r.Cookie(PendingCookie); err == nil {
		params.PendingID = c.Value
	}
	http.SetCookie(w, &http.Cookie{Name: PendingCookie, Path: "/oauth/callback", MaxAge: -1, HttpOnly: true})

	res := h.connect.HandleCallback(r.Context(), params)

	target := url.Values{}
	if res.Outcome == core.OutcomeConnected {
		target.Set("success", res.Outcome.Code())
	} else {
		target.Set("error", res.Outcome.Code())
		if res.Detail != "" {
			target.Set("details", res.Detail)
		}
	}
	if res.Slot != "" {
		target.Set("provider", string(res.Slot))
	}
	http.Redirect(w, r, h.appURL+"/admin/settings?"+target.Encode(), http.StatusFound)
}
