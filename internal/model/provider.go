package model

import "time"

// Slot identifies one of the two OAuth-connected providers.
type Slot string

const (
	SlotMarketplace Slot = "marketplace"
	SlotPayments    Slot = "payments"
)

// Slots lists every provider slot in a stable order.
var Slots = []Slot{SlotMarketplace, SlotPayments}

func (s Slot) Valid() bool {
	return s == SlotMarketplace || s == SlotPayments
}

// ProviderConfig is the admin-entered OAuth application config for a slot.
// ClientSecret is always stored encrypted.
type ProviderConfig struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	SiteID       string `json:"siteId"`
	PublicKey    string `json:"publicKey,omitempty"`
}

// AuthTokenRecord is the persisted token pair for a slot. Both tokens are
// ciphertext produced by crypto.Cipher.
type AuthTokenRecord struct {
	AccessToken    string    `json:"access_token"`
	RefreshToken   string    `json:"refresh_token"`
	ExpiresAt      time.Time `json:"expires_at"`
	ExternalUserID string    `json:"ml_user_id,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PendingAuthorization binds an in-flight authorization request to the
// browser that started it.
type PendingAuthorization struct {
	ID           string    `json:"id"`
	Slot         Slot      `json:"slot"`
	CodeVerifier string    `json:"code_verifier"`
	State        string    `json:"state"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func (p *PendingAuthorization) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// TokenMode selects how the payments slot obtains its access token.
type TokenMode string

const (
	ModeProduction TokenMode = "production"
	ModeTest       TokenMode = "test"
)

func (m TokenMode) Valid() bool {
	return m == ModeProduction || m == ModeTest
}

// StaticTokenConfig holds the sandbox credentials used in test mode. The
// access token is a plaintext sandbox credential.
type StaticTokenConfig struct {
	AccessToken string `json:"access_token"`
	PublicKey   string `json:"public_key,omitempty"`
}

// TokenSourceKind distinguishes OAuth-managed tokens from static ones.
type TokenSourceKind int

const (
	TokenSourceOAuth TokenSourceKind = iota
	TokenSourceStatic
)

// TokenSource describes where a slot's access token comes from.
type TokenSource struct {
	Kind        TokenSourceKind
	StaticToken string
}

// ConnectionStatus summarizes the connection of a slot for the admin UI.
type ConnectionStatus struct {
	Slot           Slot       `json:"slot"`
	Configured     bool       `json:"configured"`
	Connected      bool       `json:"connected"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	ExternalUserID string     `json:"external_user_id,omitempty"`
	Mode           TokenMode  `json:"mode,omitempty"`
}

// ProviderConfigView is the redacted form of ProviderConfig returned to admins.
type ProviderConfigView struct {
	Slot            Slot   `json:"slot"`
	ClientID        string `json:"client_id"`
	SiteID          string `json:"site_id"`
	PublicKey       string `json:"public_key,omitempty"`
	HasClientSecret bool   `json:"has_client_secret"`
}
