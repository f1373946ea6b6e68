package core

import (
	"github.com/rs/zerolog"

	"github.com/edvin/oportunia/internal/billing"
	"github.com/edvin/oportunia/internal/db"
	"github.com/edvin/oportunia/internal/settings"
)

type Services struct {
	Tokens            *TokenService
	Connect           *ConnectService
	ProviderConfig    *ProviderConfigService
	Niche             *NicheService
	History           *HistoryService
	Favorites         *FavoritesService
	Campaign          *CampaignService
	Auth              *AuthService
	Subscriptions     SubscriptionReader
	SubscriptionAdmin *SubscriptionService
	Gate              *billing.Gate
}

// Deps carries what NewServices wires together.
type Deps struct {
	DB          db.DB
	Store       settings.Store
	Cipher      SecretCipher
	OAuth       OAuthClient
	Limits      billing.Limits
	Auth        *AuthService
	LLM         ContentGenerator
	RedirectURI string
	Logger      zerolog.Logger

	// NewMarketplace builds the marketplace client once the token service exists.
	NewMarketplace func(tokens *TokenService) Marketplace
}

func NewServices(d Deps) *Services {
	subs := billing.NewPostgresStore(d.DB)
	gate := billing.NewGate(subs, d.Limits, d.Logger)
	tokens := NewTokenService(d.Store, d.Cipher, d.OAuth, d.Logger)
	providerCfg := NewProviderConfigService(d.Store, d.Cipher, d.Logger)
	history := NewHistoryService(d.DB)

	return &Services{
		Tokens:            tokens,
		Connect:           NewConnectService(d.Store, d.Cipher, d.OAuth, tokens, d.RedirectURI, d.Logger),
		ProviderConfig:    providerCfg,
		Niche:             NewNicheService(d.NewMarketplace(tokens), subs, gate, history, providerCfg, d.Logger),
		History:           history,
		Favorites:         NewFavoritesService(d.DB),
		Campaign:          NewCampaignService(d.LLM, subs, gate, d.Logger),
		Auth:              d.Auth,
		Subscriptions:     subs,
		SubscriptionAdmin: NewSubscriptionService(subs, d.Logger),
		Gate:              gate,
	}
}
