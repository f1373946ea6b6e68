package core

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edvin/oportunia/internal/model"
	"github.com/edvin/oportunia/internal/oauth"
	"github.com/edvin/oportunia/internal/settings"
)

// pendingTTL bounds how long an authorization request can be completed.
const pendingTTL = 10 * time.Minute

// CallbackOutcome is the result of an OAuth callback.
type CallbackOutcome int

const (
	OutcomeConnected CallbackOutcome = iota
	OutcomeInvalidState
	OutcomeMissingCode
	OutcomeProviderError
	OutcomeConfigMissing
	OutcomePersistFailed
)

// Code returns the machine-readable code carried to the admin UI.
func (o CallbackOutcome) Code() string {
	switch o {
	case OutcomeConnected:
		return "connected"
	case OutcomeInvalidState:
		return "invalid_state"
	case OutcomeMissingCode:
		return "no_code"
	case OutcomeProviderError:
		return "auth_failed"
	case OutcomeConfigMissing:
		return "missing_config"
	case OutcomePersistFailed:
		return "db_save_failed"
	default:
		return "unknown"
	}
}

// Authorization is a started authorization request.
type Authorization struct {
	URL       string    `json:"authorization_url"`
	PendingID string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CallbackParams are the values the provider redirect and the browser
// cookie carry back.
type CallbackParams struct {
	PendingID        string
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

type CallbackResult struct {
	Outcome        CallbackOutcome
	Slot           model.Slot
	Detail         string
	ExternalUserID string
}

// ConnectService runs the admin "connect provider" flow.
type ConnectService struct {
	store       settings.Store
	cipher      SecretCipher
	oauth       OAuthClient
	tokens      *TokenService
	redirectURI string
	logger      zerolog.Logger
	now         func() time.Time
}

func NewConnectService(store settings.Store, cipher SecretCipher, oauth OAuthClient, tokens *TokenService, redirectURI string, logger zerolog.Logger) *ConnectService {
	return &ConnectService{
		store:       store,
		cipher:      cipher,
		oauth:       oauth,
		tokens:      tokens,
		redirectURI: redirectURI,
		logger:      logger.With().Str("component", "connect_service").Logger(),
		now:         time.Now,
	}
}

// BeginAuthorization creates a pending authorization for slot and returns
// the provider URL the admin is sent to.
func (s *ConnectService) BeginAuthorization(ctx context.Context, slot model.Slot) (*Authorization, error) {
	if err := validSlot(slot); err != nil {
		return nil, err
	}

	cfg, err := settings.Load(ctx, s.store, settings.ProviderConfigKey(slot))
	if err != nil {
		return nil, fmt.Errorf("load %s config: %w", slot, err)
	}
	if cfg == nil || cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: %s", ErrConfigMissing, slot)
	}

	state, err := oauth.GenerateState()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	verifier := oauth.GenerateCodeVerifier()
	pending := &model.PendingAuthorization{
		ID:           uuid.NewString(),
		Slot:         slot,
		CodeVerifier: verifier,
		State:        state,
		ExpiresAt:    now.Add(pendingTTL),
		CreatedAt:    now,
	}

	authURL, err := s.oauth.AuthorizationURL(slot, cfg.ClientID, s.redirectURI, oauth.GenerateCodeChallenge(verifier), pending.State, cfg.SiteID)
	if err != nil {
		return nil, fmt.Errorf("build authorization url: %w", err)
	}
	if err := settings.Save(ctx, s.store, settings.PendingKey(pending.ID), pending); err != nil {
		return nil, fmt.Errorf("store pending authorization: %w", err)
	}

	s.logger.Info().Str("slot", string(slot)).Str("pending_id", pending.ID).Msg("authorization started")
	return &Authorization{URL: authURL, PendingID: pending.ID, ExpiresAt: pending.ExpiresAt}, nil
}

// HandleCallback completes an authorization. The pending record is
// consumed on every call so a state value can never be replayed.
func (s *ConnectService) HandleCallback(ctx context.Context, p CallbackParams) CallbackResult {
	var pending *model.PendingAuthorization
	if p.PendingID != "" {
		var err error
		pending, err = settings.Take(ctx, s.store, settings.PendingKey(p.PendingID))
		if err != nil {
			s.logger.Warn().Err(err).Msg("load pending authorization")
			pending = nil
		}
	}

	var res CallbackResult
	if pending != nil {
		res.Slot = pending.Slot
	}

	if p.Error != "" {
		res.Outcome = OutcomeProviderError
		res.Detail = p.Error
		if p.ErrorDescription != "" {
			res.Detail = p.Error + ": " + p.ErrorDescription
		}
		s.logger.Warn().Str("slot", string(res.Slot)).Str("provider_error", p.Error).Msg("provider denied authorization")
		return res
	}
	if p.Code == "" {
		res.Outcome = OutcomeMissingCode
		return res
	}
	if pending == nil || pending.Expired(s.now()) || !pending.Slot.Valid() ||
		subtle.ConstantTimeCompare([]byte(pending.State), []byte(p.State)) != 1 {
		res.Outcome = OutcomeInvalidState
		s.logger.Warn().Str("slot", string(res.Slot)).Msg("oauth state rejected")
		return res
	}

	slot := pending.Slot
	cfg, err := settings.Load(ctx, s.store, settings.ProviderConfigKey(slot))
	if err != nil || cfg == nil || cfg.ClientID == "" || cfg.ClientSecret == "" {
		res.Outcome = OutcomeConfigMissing
		if err != nil {
			res.Detail = err.Error()
		}
		return res
	}
	secret, err := s.cipher.Decrypt(cfg.ClientSecret)
	if err != nil {
		s.logger.Error().Err(err).Str("slot", string(slot)).Msg("client secret decryption failed")
		res.Outcome = OutcomeConfigMissing
		res.Detail = "client secret cannot be decrypted"
		return res
	}

	resp, err := s.oauth.ExchangeCode(ctx, slot, oauth.Credentials{ClientID: cfg.ClientID, ClientSecret: secret}, s.redirectURI, p.Code, pending.CodeVerifier)
	if err != nil {
		res.Outcome = OutcomeProviderError
		var txErr *oauth.TokenExchangeError
		if errors.As(err, &txErr) {
			res.Detail = txErr.ProviderMessage
		} else {
			res.Detail = err.Error()
		}
		s.logger.Warn().Err(err).Str("slot", string(slot)).Msg("code exchange failed")
		return res
	}

	rec, err := sealTokens(s.cipher, resp, s.now())
	if err == nil {
		err = settings.Save(ctx, s.store, settings.TokensKey(slot), rec)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("slot", string(slot)).Msg("persist tokens")
		res.Outcome = OutcomePersistFailed
		return res
	}

	s.logger.Info().Str("slot", string(slot)).Str("external_user_id", resp.ExternalUserID).Msg("provider connected")
	res.Outcome = OutcomeConnected
	res.ExternalUserID = resp.ExternalUserID
	return res
}

// Status reports the configuration and connection of slot.
func (s *ConnectService) Status(ctx context.Context, slot model.Slot) (*model.ConnectionStatus, error) {
	if err := validSlot(slot); err != nil {
		return nil, err
	}

	st := &model.ConnectionStatus{Slot: slot}
	cfg, err := settings.Load(ctx, s.store, settings.ProviderConfigKey(slot))
	if err != nil {
		return nil, fmt.Errorf("load %s config: %w", slot, err)
	}
	st.Configured = cfg != nil && cfg.ClientID != "" && cfg.ClientSecret != ""

	if slot == model.SlotPayments {
		src, err := s.tokens.Source(ctx, slot)
		switch {
		case err == nil && src.Kind == model.TokenSourceStatic:
			st.Mode = model.ModeTest
			st.Connected = true
			return st, nil
		case errors.Is(err, ErrConfigMissing):
			st.Mode = model.ModeTest
			return st, nil
		case err != nil:
			return nil, err
		}
		st.Mode = model.ModeProduction
	}

	rec, err := settings.Load(ctx, s.store, settings.TokensKey(slot))
	if err != nil {
		return nil, fmt.Errorf("load %s tokens: %w", slot, err)
	}
	if rec != nil {
		st.Connected = true
		exp := rec.ExpiresAt
		st.ExpiresAt = &exp
		st.ExternalUserID = rec.ExternalUserID
	}
	return st, nil
}

// Disconnect forgets the tokens of slot. The provider config is kept.
func (s *ConnectService) Disconnect(ctx context.Context, slot model.Slot) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	if err := settings.Remove(ctx, s.store, settings.TokensKey(slot)); err != nil {
		return fmt.Errorf("remove %s tokens: %w", slot, err)
	}
	s.logger.Info().Str("slot", string(slot)).Msg("provider disconnected")
	return nil
}
