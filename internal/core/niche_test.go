package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/oportunia/internal/billing"
	"github.com/edvin/oportunia/internal/db/dbtest"
	"github.com/edvin/oportunia/internal/model"
)

type fakeMarketplace struct {
	listings   []model.Listing
	err        error
	calls      int
	lastSite   string
	lastLimit  int
	categories []model.Category
}

func (m *fakeMarketplace) Categories(_ context.Context, siteID string) ([]model.Category, error) {
	m.lastSite = siteID
	return m.categories, m.err
}

func (m *fakeMarketplace) Category(_ context.Context, id string) (*model.Category, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &model.Category{ID: id, Name: "Celulares"}, nil
}

func (m *fakeMarketplace) HighlightsByCategory(_ context.Context, siteID, _ string, limit int) ([]model.Listing, error) {
	m.calls++
	m.lastSite = siteID
	m.lastLimit = limit
	return m.listings, m.err
}

func phoneListings() []model.Listing {
	return []model.Listing{
		{ID: "MLA1", Title: "Funda Silicona Iphone Transparente", Price: 1000, SoldQuantity: 5, SellerID: 1},
		{ID: "MLA2", Title: "Funda Silicona Iphone Negra", Price: 1200, SoldQuantity: 3, SellerID: 2},
	}
}

type nicheFixture struct {
	market *fakeMarketplace
	subs   *billing.MemoryStore
	db     *dbtest.DB
	svc    *NicheService
}

func newNicheFixture(t *testing.T) *nicheFixture {
	t.Helper()
	f := &nicheFixture{
		market: &fakeMarketplace{listings: phoneListings()},
		subs:   billing.NewMemoryStore(),
		db:     &dbtest.DB{},
	}
	gate := billing.NewGate(f.subs, billing.DefaultLimits(), zerolog.Nop())
	f.svc = NewNicheService(f.market, f.subs, gate, NewHistoryService(f.db), nil, zerolog.Nop())
	return f
}

func TestNicheSearch_RecordsHistory(t *testing.T) {
	f := newNicheFixture(t)
	f.db.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "INSERT INTO search_history")
	}), mock.Anything).Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	res, err := f.svc.Search(context.Background(), "user_1", "MLA1055", "Celulares")
	require.NoError(t, err)
	require.Len(t, res.Niches, 1)
	assert.Equal(t, "funda silicona iphone", res.Niches[0].Niche)
	assert.Equal(t, 4, res.Remaining)
	assert.Equal(t, searchSampleSize, f.market.lastLimit)
	assert.Equal(t, DefaultSiteID, f.market.lastSite)
	f.db.AssertExpectations(t)
}

func TestNicheSearch_NoHistoryWithoutName(t *testing.T) {
	f := newNicheFixture(t)

	_, err := f.svc.Search(context.Background(), "user_1", "MLA1055", "")
	require.NoError(t, err)
	f.db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestNicheSearch_NoHistoryWithoutResults(t *testing.T) {
	f := newNicheFixture(t)
	f.market.listings = nil

	res, err := f.svc.Search(context.Background(), "user_1", "MLA1055", "Celulares")
	require.NoError(t, err)
	assert.NotNil(t, res.Niches)
	assert.Empty(t, res.Niches)
	f.db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestNicheSearch_HistoryFailureIsNotFatal(t *testing.T) {
	f := newNicheFixture(t)
	f.db.On("Exec", mock.Anything, mock.Anything, mock.Anything).Return(pgconn.CommandTag{}, errors.New("db down"))

	res, err := f.svc.Search(context.Background(), "user_1", "MLA1055", "Celulares")
	require.NoError(t, err)
	assert.Len(t, res.Niches, 1)
}

func TestNicheSearch_UsageLimit(t *testing.T) {
	f := newNicheFixture(t)
	f.subs.Put(&model.Subscription{UserID: "user_1", Tier: model.TierFree, Status: model.SubscriptionActive, UsageCount: 5})

	_, err := f.svc.Search(context.Background(), "user_1", "MLA1055", "")
	require.ErrorIs(t, err, billing.ErrUsageLimitReached)

	var limitErr *UsageLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 5, limitErr.Decision.Limit)
	assert.Equal(t, 0, limitErr.Decision.Remaining)
	assert.Equal(t, 0, f.market.calls)
}

func TestNicheSearch_MarketplaceError(t *testing.T) {
	f := newNicheFixture(t)
	f.market.err = ErrNotConnected

	_, err := f.svc.Search(context.Background(), "user_1", "MLA1055", "Celulares")
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestNicheSearch_RequiresCategory(t *testing.T) {
	f := newNicheFixture(t)

	_, err := f.svc.Search(context.Background(), "user_1", " ", "")
	require.ErrorIs(t, err, ErrInvalidInput)

	sub, err := f.subs.GetByUser(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, 0, sub.UsageCount)
}

func TestNicheCategories_UsesConfiguredSite(t *testing.T) {
	tf := newTokenFixture(t)
	cfg := NewProviderConfigService(tf.store, tf.cipher, zerolog.Nop())
	_, err := cfg.Save(context.Background(), model.SlotMarketplace, ProviderConfigInput{ClientID: "1", ClientSecret: "x", SiteID: "MLB"})
	require.NoError(t, err)

	market := &fakeMarketplace{categories: []model.Category{{ID: "MLB5672", Name: "Acessórios para Veículos"}}}
	svc := NewNicheService(market, billing.NewMemoryStore(), nil, nil, cfg, zerolog.Nop())

	cats, err := svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Len(t, cats, 1)
	assert.Equal(t, "MLB", market.lastSite)

	cat, err := svc.Category(context.Background(), "MLB5672")
	require.NoError(t, err)
	assert.Equal(t, "MLB5672", cat.ID)
}
