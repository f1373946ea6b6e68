package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/edvin/oportunia/internal/metrics"
	"github.com/edvin/oportunia/internal/model"
	"github.com/edvin/oportunia/internal/oauth"
	"github.com/edvin/oportunia/internal/settings"
)

// refreshWindow is how long before expiry a token is proactively refreshed.
const refreshWindow = time.Hour

// SecretCipher seals secrets at rest.
type SecretCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(secret string) (string, error)
}

// OAuthClient is the subset of *oauth.Client used by core services.
type OAuthClient interface {
	AuthorizationURL(slot model.Slot, clientID, redirectURI, challenge, state, site string) (string, error)
	ExchangeCode(ctx context.Context, slot model.Slot, creds oauth.Credentials, redirectURI, code, verifier string) (*oauth.TokenResponse, error)
	Refresh(ctx context.Context, slot model.Slot, creds oauth.Credentials, refreshToken string) (*oauth.TokenResponse, error)
}

// TokenService hands out valid access tokens per provider slot, refreshing
// them shortly before they expire. Concurrent refreshes of the same slot in
// this process are collapsed into one provider call.
type TokenService struct {
	store  settings.Store
	cipher SecretCipher
	oauth  OAuthClient
	logger zerolog.Logger
	now    func() time.Time
	flight singleflight.Group
}

func NewTokenService(store settings.Store, cipher SecretCipher, oauth OAuthClient, logger zerolog.Logger) *TokenService {
	return &TokenService{
		store:  store,
		cipher: cipher,
		oauth:  oauth,
		logger: logger.With().Str("component", "token_service").Logger(),
		now:    time.Now,
	}
}

// GetValidAccessToken returns a plaintext access token for slot.
func (s *TokenService) GetValidAccessToken(ctx context.Context, slot model.Slot) (string, error) {
	if err := validSlot(slot); err != nil {
		return "", err
	}

	src, err := s.Source(ctx, slot)
	if err != nil {
		return "", err
	}
	if src.Kind == model.TokenSourceStatic {
		return src.StaticToken, nil
	}

	rec, err := s.loadRecord(ctx, slot)
	if err != nil {
		return "", err
	}
	if !s.nearExpiry(rec) {
		return s.openAccessToken(slot, rec)
	}

	// The shared refresh outlives any single caller so a cancelled request
	// cannot fail the others or leave a rotated refresh token unsaved. Each
	// caller still stops waiting when its own context ends.
	ch := s.flight.DoChan(string(slot), func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx), slot)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Source resolves whether slot uses OAuth-managed or static tokens. Only
// the payments slot supports the static test mode.
func (s *TokenService) Source(ctx context.Context, slot model.Slot) (model.TokenSource, error) {
	oauthSource := model.TokenSource{Kind: model.TokenSourceOAuth}
	if slot != model.SlotPayments {
		return oauthSource, nil
	}

	mode, err := settings.Load(ctx, s.store, settings.PaymentsMode)
	if err != nil {
		return model.TokenSource{}, fmt.Errorf("load payments mode: %w", err)
	}
	if mode == nil || *mode != model.ModeTest {
		return oauthSource, nil
	}

	static, err := settings.Load(ctx, s.store, settings.PaymentsStaticToken)
	if err != nil {
		return model.TokenSource{}, fmt.Errorf("load static token: %w", err)
	}
	if static == nil || static.AccessToken == "" {
		return model.TokenSource{}, fmt.Errorf("%w: payments test mode has no static token", ErrConfigMissing)
	}
	return model.TokenSource{Kind: model.TokenSourceStatic, StaticToken: static.AccessToken}, nil
}

// ForSlot binds the service to one slot, for clients that need a plain
// token getter.
func (s *TokenService) ForSlot(slot model.Slot) SlotTokens {
	return SlotTokens{svc: s, slot: slot}
}

type SlotTokens struct {
	svc  *TokenService
	slot model.Slot
}

func (t SlotTokens) AccessToken(ctx context.Context) (string, error) {
	return t.svc.GetValidAccessToken(ctx, t.slot)
}

func (s *TokenService) refresh(ctx context.Context, slot model.Slot) (string, error) {
	// Re-read: a caller that finished just before us may have refreshed.
	rec, err := s.loadRecord(ctx, slot)
	if err != nil {
		return "", err
	}
	if !s.nearExpiry(rec) {
		return s.openAccessToken(slot, rec)
	}

	cfg, err := settings.Load(ctx, s.store, settings.ProviderConfigKey(slot))
	if err != nil {
		return "", fmt.Errorf("load %s config: %w", slot, err)
	}
	if cfg == nil || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return "", fmt.Errorf("%w: %s", ErrConfigMissing, slot)
	}

	refreshToken, err := s.cipher.Decrypt(rec.RefreshToken)
	if err != nil {
		s.logger.Error().Err(err).Str("slot", string(slot)).Msg("refresh token decryption failed")
		return "", fmt.Errorf("%w: %s refresh token: %w", ErrCorruptedTokens, slot, err)
	}
	clientSecret, err := s.cipher.Decrypt(cfg.ClientSecret)
	if err != nil {
		s.logger.Error().Err(err).Str("slot", string(slot)).Msg("client secret decryption failed")
		return "", fmt.Errorf("%w: %s client secret: %w", ErrCorruptedTokens, slot, err)
	}

	resp, err := s.oauth.Refresh(ctx, slot, oauth.Credentials{ClientID: cfg.ClientID, ClientSecret: clientSecret}, refreshToken)
	if err != nil {
		if errors.Is(err, oauth.ErrTimeout) {
			metrics.TokenRefreshes.WithLabelValues(string(slot), "timeout").Inc()
			s.logger.Warn().Err(err).Str("slot", string(slot)).Msg("token refresh timed out")
			return "", fmt.Errorf("%w: %s: %w", ErrRefreshTimedOut, slot, err)
		}
		metrics.TokenRefreshes.WithLabelValues(string(slot), "failed").Inc()
		s.logger.Warn().Err(err).Str("slot", string(slot)).Msg("token refresh failed, reconnect required")
		return "", fmt.Errorf("%w: %s: %w", ErrRefreshFailed, slot, err)
	}

	if resp.ExternalUserID == "" {
		resp.ExternalUserID = rec.ExternalUserID
	}
	next, err := sealTokens(s.cipher, resp, s.now())
	if err != nil {
		return "", err
	}
	if err := settings.Save(ctx, s.store, settings.TokensKey(slot), next); err != nil {
		return "", fmt.Errorf("persist refreshed %s tokens: %w", slot, err)
	}

	metrics.TokenRefreshes.WithLabelValues(string(slot), "success").Inc()
	s.logger.Info().Str("slot", string(slot)).Time("expires_at", next.ExpiresAt).Msg("access token refreshed")
	return resp.AccessToken, nil
}

func (s *TokenService) loadRecord(ctx context.Context, slot model.Slot) (*model.AuthTokenRecord, error) {
	rec, err := settings.Load(ctx, s.store, settings.TokensKey(slot))
	if err != nil {
		return nil, fmt.Errorf("load %s tokens: %w", slot, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, slot)
	}
	return rec, nil
}

func (s *TokenService) nearExpiry(rec *model.AuthTokenRecord) bool {
	return rec.ExpiresAt.Sub(s.now()) < refreshWindow
}

func (s *TokenService) openAccessToken(slot model.Slot, rec *model.AuthTokenRecord) (string, error) {
	token, err := s.cipher.Decrypt(rec.AccessToken)
	if err != nil {
		s.logger.Error().Err(err).Str("slot", string(slot)).Msg("access token decryption failed")
		return "", fmt.Errorf("%w: %s access token: %w", ErrCorruptedTokens, slot, err)
	}
	return token, nil
}

// sealTokens builds the persisted record for a fresh token response.
func sealTokens(cipher SecretCipher, resp *oauth.TokenResponse, now time.Time) (*model.AuthTokenRecord, error) {
	access, err := cipher.Encrypt(resp.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}
	refresh, err := cipher.Encrypt(resp.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt refresh token: %w", err)
	}
	return &model.AuthTokenRecord{
		AccessToken:    access,
		RefreshToken:   refresh,
		ExpiresAt:      now.Add(time.Duration(resp.ExpiresIn) * time.Second).UTC(),
		ExternalUserID: resp.ExternalUserID,
		UpdatedAt:      now.UTC(),
	}, nil
}
