package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/oportunia/internal/billing"
	"github.com/edvin/oportunia/internal/model"
)

// SubscriptionStore reads and writes plan state. Usage counters are owned
// by the gate and never written here.
type SubscriptionStore interface {
	SubscriptionReader
	Upsert(ctx context.Context, sub *model.Subscription) error
}

// SubscriptionUpdate is a plan change as reported by the payments provider.
// ProviderStatus is the provider's raw preapproval status.
type SubscriptionUpdate struct {
	Tier                   model.Tier
	ProviderStatus         string
	NextBillingDate        *time.Time
	ExternalSubscriptionID string
}

type SubscriptionService struct {
	store  SubscriptionStore
	logger zerolog.Logger
}

func NewSubscriptionService(store SubscriptionStore, logger zerolog.Logger) *SubscriptionService {
	return &SubscriptionService{
		store:  store,
		logger: logger.With().Str("component", "subscription_service").Logger(),
	}
}

// Sync applies a provider-reported plan change to userID and returns the
// stored subscription.
func (s *SubscriptionService) Sync(ctx context.Context, userID string, upd SubscriptionUpdate) (*model.Subscription, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if !upd.Tier.Valid() {
		return nil, fmt.Errorf("%w: unknown tier %q", ErrInvalidInput, upd.Tier)
	}

	sub := &model.Subscription{
		UserID:          userID,
		Tier:            upd.Tier,
		Status:          billing.NormalizeStatus(upd.ProviderStatus),
		NextBillingDate: upd.NextBillingDate,
	}
	// The column is unique, so an absent id must be NULL rather than "".
	if ext := strings.TrimSpace(upd.ExternalSubscriptionID); ext != "" {
		sub.ExternalSubscriptionID = &ext
	}

	if err := s.store.Upsert(ctx, sub); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("user_id", userID).
		Str("tier", string(sub.Tier)).
		Str("status", string(sub.Status)).
		Str("provider_status", upd.ProviderStatus).
		Msg("subscription synced")

	return s.store.GetByUser(ctx, userID)
}
