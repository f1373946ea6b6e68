package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/edvin/oportunia/internal/model"
)

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func ptrTime(t time.Time) *time.Time { return &t }

func TestEffectiveTier(t *testing.T) {
	tomorrow := now.Add(24 * time.Hour)
	yesterday := now.Add(-24 * time.Hour)

	tests := []struct {
		name string
		sub  *model.Subscription
		want model.Tier
	}{
		{"nil", nil, model.TierFree},
		{"active pro", &model.Subscription{Tier: model.TierPro, Status: model.SubscriptionActive}, model.TierPro},
		{"active elite", &model.Subscription{Tier: model.TierElite, Status: model.SubscriptionActive}, model.TierElite},
		{"cancelled in grace", &model.Subscription{Tier: model.TierPro, Status: model.SubscriptionCancelled, NextBillingDate: &tomorrow}, model.TierPro},
		{"cancelled past grace", &model.Subscription{Tier: model.TierPro, Status: model.SubscriptionCancelled, NextBillingDate: &yesterday}, model.TierFree},
		{"cancelled no billing date", &model.Subscription{Tier: model.TierPro, Status: model.SubscriptionCancelled}, model.TierFree},
		{"pending", &model.Subscription{Tier: model.TierElite, Status: model.SubscriptionPending}, model.TierFree},
		{"failed", &model.Subscription{Tier: model.TierPro, Status: model.SubscriptionFailed, NextBillingDate: &tomorrow}, model.TierFree},
		{"unknown tier", &model.Subscription{Tier: "platinum", Status: model.SubscriptionActive}, model.TierFree},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectiveTier(tt.sub, now))
		})
	}
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, model.SubscriptionActive, NormalizeStatus("authorized"))
	assert.Equal(t, model.SubscriptionActive, NormalizeStatus("ACTIVE"))
	assert.Equal(t, model.SubscriptionPaused, NormalizeStatus("paused"))
	assert.Equal(t, model.SubscriptionCancelled, NormalizeStatus("canceled"))
	assert.Equal(t, model.SubscriptionFailed, NormalizeStatus("rejected"))
	assert.Equal(t, model.SubscriptionPending, NormalizeStatus("in_process"))
}
