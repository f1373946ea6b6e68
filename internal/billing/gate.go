package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/oportunia/internal/metrics"
	"github.com/edvin/oportunia/internal/model"
)

// ErrUsageLimitReached is returned by callers that turn a denied decision
// into an error.
var ErrUsageLimitReached = errors.New("usage limit reached")

// UsageCounter increments a subscriber's usage only while it is below the
// limit, as one atomic step. It rolls the monthly window over when the
// reset time has passed. ok is false when the limit was already reached.
type UsageCounter interface {
	IncrementIfBelow(ctx context.Context, userID string, limit int, now time.Time) (count int, ok bool, err error)
}

type Gate struct {
	counter UsageCounter
	limits  Limits
	logger  zerolog.Logger
	now     func() time.Time
}

func NewGate(counter UsageCounter, limits Limits, logger zerolog.Logger) *Gate {
	if limits == nil {
		limits = DefaultLimits()
	}
	return &Gate{
		counter: counter,
		limits:  limits,
		logger:  logger.With().Str("component", "usage_gate").Logger(),
		now:     time.Now,
	}
}

// Limits exposes the active plan table.
func (g *Gate) Limits() Limits {
	return g.limits
}

// CheckAndIncrementUsage consumes one unit of feature for the subscriber
// when allowed. A denial never mutates the counter. On success sub's
// UsageCount reflects the new value.
func (g *Gate) CheckAndIncrementUsage(ctx context.Context, sub *model.Subscription, feature model.Feature) (model.UsageDecision, error) {
	now := g.now()
	tier := EffectiveTier(sub, now)
	limit := g.limits.Limit(tier, feature)

	decision := model.UsageDecision{Feature: feature, Tier: tier, Limit: limit}

	if limit == Unlimited {
		decision.Allowed = true
		decision.Remaining = Unlimited
		g.record(decision)
		return decision, nil
	}

	if limit <= 0 || currentUsage(sub, now) >= limit {
		g.record(decision)
		return decision, nil
	}

	count, ok, err := g.counter.IncrementIfBelow(ctx, sub.UserID, limit, now)
	if err != nil {
		return model.UsageDecision{}, fmt.Errorf("increment usage for %s: %w", sub.UserID, err)
	}
	if !ok {
		// Another request consumed the last unit first.
		g.record(decision)
		return decision, nil
	}

	sub.UsageCount = count
	decision.Allowed = true
	decision.Remaining = max(limit-count, 0)
	g.record(decision)
	return decision, nil
}

// Remaining reports the unused allowance without consuming any.
func (g *Gate) Remaining(sub *model.Subscription, feature model.Feature) int {
	now := g.now()
	limit := g.limits.Limit(EffectiveTier(sub, now), feature)
	if limit == Unlimited {
		return Unlimited
	}
	return max(limit-currentUsage(sub, now), 0)
}

func (g *Gate) record(d model.UsageDecision) {
	metrics.UsageDecisions.WithLabelValues(string(d.Feature), fmt.Sprint(d.Allowed)).Inc()
	if !d.Allowed {
		g.logger.Info().Str("feature", string(d.Feature)).Str("tier", string(d.Tier)).
			Int("limit", d.Limit).Msg("usage denied")
	}
}

func currentUsage(sub *model.Subscription, now time.Time) int {
	if sub == nil {
		return 0
	}
	if !sub.UsageResetAt.IsZero() && !now.Before(sub.UsageResetAt) {
		return 0
	}
	return sub.UsageCount
}
