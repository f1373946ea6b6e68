package billing

import (
	"context"
	"sync"
	"time"

	"github.com/edvin/oportunia/internal/model"
)

// MemoryStore is an in-process subscription store and usage counter.
type MemoryStore struct {
	mu   sync.Mutex
	subs map[string]*model.Subscription
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[string]*model.Subscription), now: time.Now}
}

func (s *MemoryStore) Put(sub *model.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sub
	s.subs[sub.UserID] = &cp
}

func (s *MemoryStore) GetByUser(_ context.Context, userID string) (*model.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[userID]
	if !ok {
		return FreeSubscription(userID, s.now()), nil
	}
	cp := *sub
	return &cp, nil
}

func (s *MemoryStore) IncrementIfBelow(_ context.Context, userID string, limit int, now time.Time) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[userID]
	if !ok {
		sub = FreeSubscription(userID, now)
		s.subs[userID] = sub
	}

	if !sub.UsageResetAt.IsZero() && !now.Before(sub.UsageResetAt) {
		sub.UsageCount = 0
		sub.UsageResetAt = now.AddDate(0, 1, 0)
	}
	if sub.UsageCount >= limit {
		return sub.UsageCount, false, nil
	}
	sub.UsageCount++
	sub.UpdatedAt = now
	return sub.UsageCount, true, nil
}

// Upsert mirrors PostgresStore.Upsert: plan fields change, usage does not.
func (s *MemoryStore) Upsert(_ context.Context, sub *model.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cur, ok := s.subs[sub.UserID]
	if !ok {
		cur = FreeSubscription(sub.UserID, now)
		s.subs[sub.UserID] = cur
	}
	cur.Tier = sub.Tier
	cur.Status = sub.Status
	cur.NextBillingDate = sub.NextBillingDate
	cur.ExternalSubscriptionID = sub.ExternalSubscriptionID
	cur.UpdatedAt = now
	return nil
}
