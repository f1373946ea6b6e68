package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edvin/oportunia/internal/model"
	"github.com/edvin/oportunia/internal/settings"
)

// DefaultSiteID is used when the admin leaves the site empty.
const DefaultSiteID = "MLA"

// ProviderConfigInput is what an admin submits for a slot. An empty
// ClientSecret keeps the stored one.
type ProviderConfigInput struct {
	ClientID     string
	ClientSecret string
	SiteID       string
	PublicKey    string
}

type ProviderConfigService struct {
	store  settings.Store
	cipher SecretCipher
	logger zerolog.Logger
}

func NewProviderConfigService(store settings.Store, cipher SecretCipher, logger zerolog.Logger) *ProviderConfigService {
	return &ProviderConfigService{
		store:  store,
		cipher: cipher,
		logger: logger.With().Str("component", "provider_config").Logger(),
	}
}

// Save stores the OAuth application config for slot with the secret sealed.
func (s *ProviderConfigService) Save(ctx context.Context, slot model.Slot, in ProviderConfigInput) (*model.ProviderConfigView, error) {
	if err := validSlot(slot); err != nil {
		return nil, err
	}
	clientID := strings.TrimSpace(in.ClientID)
	if clientID == "" {
		return nil, fmt.Errorf("%w: client_id is required", ErrInvalidInput)
	}

	key := settings.ProviderConfigKey(slot)
	existing, err := settings.Load(ctx, s.store, key)
	if err != nil {
		return nil, fmt.Errorf("load %s config: %w", slot, err)
	}

	cfg := &model.ProviderConfig{
		ClientID:  clientID,
		SiteID:    strings.ToUpper(strings.TrimSpace(in.SiteID)),
		PublicKey: strings.TrimSpace(in.PublicKey),
	}
	if cfg.SiteID == "" {
		cfg.SiteID = DefaultSiteID
	}

	switch secret := strings.TrimSpace(in.ClientSecret); {
	case secret != "":
		sealed, err := s.cipher.Encrypt(secret)
		if err != nil {
			return nil, fmt.Errorf("encrypt client secret: %w", err)
		}
		cfg.ClientSecret = sealed
	case existing != nil && existing.ClientSecret != "":
		cfg.ClientSecret = existing.ClientSecret
	default:
		return nil, fmt.Errorf("%w: client_secret is required", ErrInvalidInput)
	}

	if err := settings.Save(ctx, s.store, key, cfg); err != nil {
		return nil, fmt.Errorf("save %s config: %w", slot, err)
	}
	s.logger.Info().Str("slot", string(slot)).Str("site_id", cfg.SiteID).Msg("provider config saved")
	return viewOf(slot, cfg), nil
}

// Get returns the redacted config of slot, or ErrConfigMissing.
func (s *ProviderConfigService) Get(ctx context.Context, slot model.Slot) (*model.ProviderConfigView, error) {
	if err := validSlot(slot); err != nil {
		return nil, err
	}
	cfg, err := settings.Load(ctx, s.store, settings.ProviderConfigKey(slot))
	if err != nil {
		return nil, fmt.Errorf("load %s config: %w", slot, err)
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: %s", ErrConfigMissing, slot)
	}
	return viewOf(slot, cfg), nil
}

// SiteID returns the marketplace site configured for slot, or the default.
func (s *ProviderConfigService) SiteID(ctx context.Context, slot model.Slot) string {
	cfg, err := settings.Load(ctx, s.store, settings.ProviderConfigKey(slot))
	if err != nil || cfg == nil || cfg.SiteID == "" {
		return DefaultSiteID
	}
	return cfg.SiteID
}

// SetMode switches the payments slot between OAuth and static tokens.
func (s *ProviderConfigService) SetMode(ctx context.Context, mode model.TokenMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: mode %q", ErrInvalidInput, mode)
	}
	if err := settings.Save(ctx, s.store, settings.PaymentsMode, &mode); err != nil {
		return fmt.Errorf("save payments mode: %w", err)
	}
	s.logger.Info().Str("mode", string(mode)).Msg("payments mode changed")
	return nil
}

// Mode returns the payments mode, production when unset.
func (s *ProviderConfigService) Mode(ctx context.Context) (model.TokenMode, error) {
	mode, err := settings.Load(ctx, s.store, settings.PaymentsMode)
	if err != nil {
		return "", fmt.Errorf("load payments mode: %w", err)
	}
	if mode == nil || !mode.Valid() {
		return model.ModeProduction, nil
	}
	return *mode, nil
}

// SetStaticToken stores the sandbox credentials used in test mode.
func (s *ProviderConfigService) SetStaticToken(ctx context.Context, cfg model.StaticTokenConfig) error {
	cfg.AccessToken = strings.TrimSpace(cfg.AccessToken)
	if cfg.AccessToken == "" {
		return fmt.Errorf("%w: access_token is required", ErrInvalidInput)
	}
	if err := settings.Save(ctx, s.store, settings.PaymentsStaticToken, &cfg); err != nil {
		return fmt.Errorf("save static token: %w", err)
	}
	return nil
}

func viewOf(slot model.Slot, cfg *model.ProviderConfig) *model.ProviderConfigView {
	return &model.ProviderConfigView{
		Slot:            slot,
		ClientID:        cfg.ClientID,
		SiteID:          cfg.SiteID,
		PublicKey:       cfg.PublicKey,
		HasClientSecret: cfg.ClientSecret != "",
	}
}
