package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/oportunia/internal/db"
	"github.com/edvin/oportunia/internal/model"
)

const usageWindow = "1 month"

// FreeSubscription is the implicit subscription of a user with no row.
func FreeSubscription(userID string, now time.Time) *model.Subscription {
	return &model.Subscription{
		UserID:       userID,
		Tier:         model.TierFree,
		Status:       model.SubscriptionActive,
		UsageResetAt: now.AddDate(0, 1, 0),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// PostgresStore reads subscriptions and meters usage in the subscriptions table.
type PostgresStore struct {
	db  db.DB
	now func() time.Time
}

func NewPostgresStore(db db.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

const subscriptionColumns = `user_id, tier, status, usage_count, usage_reset_at, next_billing_date,
	external_subscription_id, created_at, updated_at`

func (s *PostgresStore) GetByUser(ctx context.Context, userID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := s.db.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1`, userID,
	).Scan(&sub.UserID, &sub.Tier, &sub.Status, &sub.UsageCount, &sub.UsageResetAt,
		&sub.NextBillingDate, &sub.ExternalSubscriptionID, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return FreeSubscription(userID, s.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription for %s: %w", userID, err)
	}
	return &sub, nil
}

// Upsert records a subscription change reported by the billing provider.
// Usage counters are left untouched on update.
func (s *PostgresStore) Upsert(ctx context.Context, sub *model.Subscription) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO subscriptions (user_id, tier, status, next_billing_date, external_subscription_id, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (user_id) DO UPDATE SET
		   tier = EXCLUDED.tier,
		   status = EXCLUDED.status,
		   next_billing_date = EXCLUDED.next_billing_date,
		   external_subscription_id = EXCLUDED.external_subscription_id,
		   updated_at = EXCLUDED.updated_at`,
		sub.UserID, sub.Tier, sub.Status, sub.NextBillingDate, sub.ExternalSubscriptionID,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription for %s: %w", sub.UserID, err)
	}
	return nil
}

// IncrementIfBelow implements UsageCounter with a single conditional UPDATE.
// Users without a row get a free one first.
func (s *PostgresStore) IncrementIfBelow(ctx context.Context, userID string, limit int, now time.Time) (int, bool, error) {
	_, err := s.db.Exec(ctx,
		`INSERT INTO subscriptions (user_id, tier, status, usage_count, usage_reset_at)
		 VALUES ($1, 'free', 'active', 0, $2::timestamptz + interval '`+usageWindow+`')
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, now,
	)
	if err != nil {
		return 0, false, fmt.Errorf("ensure subscription for %s: %w", userID, err)
	}

	var count int
	err = s.db.QueryRow(ctx,
		`UPDATE subscriptions SET
		   usage_count = CASE WHEN usage_reset_at <= $3 THEN 1 ELSE usage_count + 1 END,
		   usage_reset_at = CASE WHEN usage_reset_at <= $3
		     THEN $3::timestamptz + interval '`+usageWindow+`' ELSE usage_reset_at END,
		   updated_at = $3
		 WHERE user_id = $1 AND (usage_reset_at <= $3 OR usage_count < $2)
		 RETURNING usage_count`,
		userID, limit, now,
	).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("increment usage for %s: %w", userID, err)
	}
	return count, true, nil
}
