// Package billing decides which tier a subscriber is entitled to and
// meters their feature usage against that tier's limits.
package billing

import (
	"strings"
	"time"

	"github.com/edvin/oportunia/internal/model"
)

// EffectiveTier returns the tier whose limits apply right now. A cancelled
// subscription keeps its tier until the paid period ends.
func EffectiveTier(sub *model.Subscription, now time.Time) model.Tier {
	if sub == nil || !sub.Tier.Valid() {
		return model.TierFree
	}
	switch sub.Status {
	case model.SubscriptionActive:
		return sub.Tier
	case model.SubscriptionCancelled:
		if sub.NextBillingDate != nil && sub.NextBillingDate.After(now) {
			return sub.Tier
		}
	}
	return model.TierFree
}

// NormalizeStatus maps a payment provider's preapproval status onto ours.
func NormalizeStatus(providerStatus string) model.SubscriptionStatus {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "authorized", "active":
		return model.SubscriptionActive
	case "paused":
		return model.SubscriptionPaused
	case "cancelled", "canceled":
		return model.SubscriptionCancelled
	case "failed", "rejected":
		return model.SubscriptionFailed
	default:
		return model.SubscriptionPending
	}
}
