package settings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/edvin/oportunia/internal/model"
)

// Key binds a settings key name to the Go type stored under it.
type Key[T any] struct {
	Name string
}

func NewKey[T any](name string) Key[T] {
	return Key[T]{Name: name}
}

var (
	MarketplaceConfig   = NewKey[model.ProviderConfig]("ml_config")
	PaymentsConfig      = NewKey[model.ProviderConfig]("mp_config")
	MarketplaceTokens   = NewKey[model.AuthTokenRecord]("ml_auth_tokens")
	PaymentsTokens      = NewKey[model.AuthTokenRecord]("mp_auth_tokens")
	PaymentsMode        = NewKey[model.TokenMode]("mp_mode")
	PaymentsStaticToken = NewKey[model.StaticTokenConfig]("mp_test_config")
)

const pendingPrefix = "oauth_pending:"

// ProviderConfigKey returns the config key for a slot.
func ProviderConfigKey(slot model.Slot) Key[model.ProviderConfig] {
	if slot == model.SlotPayments {
		return PaymentsConfig
	}
	return MarketplaceConfig
}

// TokensKey returns the token record key for a slot.
func TokensKey(slot model.Slot) Key[model.AuthTokenRecord] {
	if slot == model.SlotPayments {
		return PaymentsTokens
	}
	return MarketplaceTokens
}

func PendingKey(id string) Key[model.PendingAuthorization] {
	return NewKey[model.PendingAuthorization](pendingPrefix + id)
}

// Load reads and decodes the value under k. It returns nil, nil when absent.
func Load[T any](ctx context.Context, s Store, k Key[T]) (*T, error) {
	raw, err := s.Get(ctx, k.Name)
	if err != nil {
		return nil, err
	}
	return decode[T](k, raw)
}

func Save[T any](ctx context.Context, s Store, k Key[T], v *T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode setting %q: %w", k.Name, err)
	}
	return s.Set(ctx, k.Name, raw)
}

func Remove[T any](ctx context.Context, s Store, k Key[T]) error {
	return s.Delete(ctx, k.Name)
}

// Take reads and deletes the value under k, atomically when the store
// supports it.
func Take[T any](ctx context.Context, s Store, k Key[T]) (*T, error) {
	if t, ok := s.(Taker); ok {
		raw, err := t.Take(ctx, k.Name)
		if err != nil {
			return nil, err
		}
		return decode[T](k, raw)
	}

	v, err := Load(ctx, s, k)
	if err != nil || v == nil {
		return v, err
	}
	if err := s.Delete(ctx, k.Name); err != nil {
		return nil, err
	}
	return v, nil
}

func decode[T any](k Key[T], raw json.RawMessage) (*T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode setting %q: %w", k.Name, err)
	}
	return &v, nil
}
