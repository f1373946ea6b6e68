package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/oportunia/internal/api/request"
	"github.com/edvin/oportunia/internal/api/response"
	"github.com/edvin/oportunia/internal/billing"
	"github.com/edvin/oportunia/internal/core"
	"github.com/edvin/oportunia/internal/model"
)

type Subscription struct {
	subs core.SubscriptionReader
	gate *billing.Gate
}

func NewSubscription(subs core.SubscriptionReader, gate *billing.Gate) *Subscription {
	return &Subscription{subs: subs, gate: gate}
}

type featureUsage struct {
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

type subscriptionResponse struct {
	Tier            model.Tier                     `json:"tier"`
	EffectiveTier   model.Tier                     `json:"effective_tier"`
	Status          model.SubscriptionStatus       `json:"status"`
	UsageCount      int                            `json:"usage_count"`
	UsageResetAt    time.Time                      `json:"usage_reset_at"`
	NextBillingDate *time.Time                     `json:"next_billing_date,omitempty"`
	Features        map[model.Feature]featureUsage `json:"features"`
}

// Get returns the caller's plan and remaining allowance per feature.
func (h *Subscription) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subs.GetByUser(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	tier := billing.EffectiveTier(sub, time.Now())
	resp := subscriptionResponse{
		Tier:            sub.Tier,
		EffectiveTier:   tier,
		Status:          sub.Status,
		UsageCount:      sub.UsageCount,
		UsageResetAt:    sub.UsageResetAt,
		NextBillingDate: sub.NextBillingDate,
		Features:        make(map[model.Feature]featureUsage, len(model.Features)),
	}
	for _, f := range model.Features {
		resp.Features[f] = featureUsage{
			Limit:     h.gate.Limits().Limit(tier, f),
			Remaining: h.gate.Remaining(sub, f),
		}
	}
	response.WriteJSON(w, http.StatusOK, resp)
}

// SubscriptionAdmin lets an admin apply a plan change reported by the
// payments provider.
type SubscriptionAdmin struct {
	svc *core.SubscriptionService
}

func NewSubscriptionAdmin(svc *core.SubscriptionService) *SubscriptionAdmin {
	return &SubscriptionAdmin{svc: svc}
}

func (h *SubscriptionAdmin) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "userID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateSubscription
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := h.svc.Sync(r.Context(), id, core.SubscriptionUpdate{
		Tier:                   model.Tier(req.Tier),
		ProviderStatus:         req.Status,
		NextBillingDate:        req.NextBillingDate,
		ExternalSubscriptionID: req.ExternalSubscriptionID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, sub)
}
