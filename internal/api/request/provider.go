package request

import (
	"time"

	"github.com/edvin/oportunia/internal/model"
)

type Login struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SaveProviderConfig struct {
	ClientID     string `json:"client_id" validate:"required,max=255"`
	ClientSecret string `json:"client_secret" validate:"max=512"`
	SiteID       string `json:"site_id" validate:"omitempty,site_id"`
	PublicKey    string `json:"public_key" validate:"max=512"`
}

type SetPaymentsMode struct {
	Mode string `json:"mode" validate:"required,oneof=production test"`
}

type SetStaticToken struct {
	AccessToken string `json:"access_token" validate:"required,max=512"`
	PublicKey   string `json:"public_key" validate:"max=512"`
}

type GenerateCampaign struct {
	Niche      string `json:"niche" validate:"required,max=200"`
	CategoryID string `json:"category_id" validate:"omitempty,max=32"`
}

type ToggleFavorite struct {
	NicheID string             `json:"niche_id" validate:"required,max=200"`
	Niche   *model.NicheResult `json:"niche_data"`
}

type UpdateSubscription struct {
	Tier                   string     `json:"tier" validate:"required,oneof=free pro elite"`
	Status                 string     `json:"status" validate:"required,max=32"`
	NextBillingDate        *time.Time `json:"next_billing_date"`
	ExternalSubscriptionID string     `json:"external_subscription_id" validate:"max=128"`
}
