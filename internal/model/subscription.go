package model

import "time"

type Tier string

const (
	TierFree  Tier = "free"
	TierPro   Tier = "pro"
	TierElite Tier = "elite"
)

func (t Tier) Valid() bool {
	return t == TierFree || t == TierPro || t == TierElite
}

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionPaused    SubscriptionStatus = "paused"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionFailed    SubscriptionStatus = "failed"
)

// Feature is a metered capability.
type Feature string

const (
	FeatureNicheSearch    Feature = "niche_search"
	FeatureAIAnalysis     Feature = "ai_analysis"
	FeatureAICampaigns    Feature = "ai_campaigns"
	FeatureProductMonitor Feature = "product_monitor"
)

// Features lists every metered feature.
var Features = []Feature{FeatureNicheSearch, FeatureAIAnalysis, FeatureAICampaigns, FeatureProductMonitor}

type Subscription struct {
	UserID                 string             `json:"user_id"`
	Tier                   Tier               `json:"tier"`
	Status                 SubscriptionStatus `json:"status"`
	UsageCount             int                `json:"usage_count"`
	UsageResetAt           time.Time          `json:"usage_reset_at"`
	NextBillingDate        *time.Time         `json:"next_billing_date,omitempty"`
	ExternalSubscriptionID *string            `json:"external_subscription_id,omitempty"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
}

// UsageDecision is the outcome of a usage gate check.
type UsageDecision struct {
	Allowed   bool    `json:"allowed"`
	Feature   Feature `json:"feature"`
	Tier      Tier    `json:"tier"`
	Limit     int     `json:"limit"`
	Remaining int     `json:"remaining"`
}
