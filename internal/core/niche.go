package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edvin/oportunia/internal/model"
	"github.com/edvin/oportunia/internal/niche"
)

// searchSampleSize is how many best sellers a niche search analyzes.
const searchSampleSize = 50

// Marketplace is the subset of *marketplace.Client used by NicheService.
type Marketplace interface {
	Categories(ctx context.Context, siteID string) ([]model.Category, error)
	Category(ctx context.Context, categoryID string) (*model.Category, error)
	HighlightsByCategory(ctx context.Context, siteID, categoryID string, limit int) ([]model.Listing, error)
}

// SubscriptionReader loads a user's subscription.
type SubscriptionReader interface {
	GetByUser(ctx context.Context, userID string) (*model.Subscription, error)
}

// UsageGate consumes plan quota.
type UsageGate interface {
	CheckAndIncrementUsage(ctx context.Context, sub *model.Subscription, feature model.Feature) (model.UsageDecision, error)
}

// SearchResult is the outcome of a niche search.
type SearchResult struct {
	CategoryID string              `json:"category_id"`
	Niches     []model.NicheResult `json:"niches"`
	Remaining  int                 `json:"remaining"`
}

type NicheService struct {
	market  Marketplace
	subs    SubscriptionReader
	gate    UsageGate
	history *HistoryService
	config  *ProviderConfigService
	logger  zerolog.Logger
}

func NewNicheService(market Marketplace, subs SubscriptionReader, gate UsageGate, history *HistoryService, config *ProviderConfigService, logger zerolog.Logger) *NicheService {
	return &NicheService{
		market:  market,
		subs:    subs,
		gate:    gate,
		history: history,
		config:  config,
		logger:  logger.With().Str("component", "niche_service").Logger(),
	}
}

// Search consumes one niche_search unit, analyzes the best sellers of the
// category and records the search in the user's history.
func (s *NicheService) Search(ctx context.Context, userID, categoryID, categoryName string) (*SearchResult, error) {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return nil, fmt.Errorf("%w: category_id is required", ErrInvalidInput)
	}

	decision, err := consumeUsage(ctx, s.subs, s.gate, userID, model.FeatureNicheSearch)
	if err != nil {
		return nil, err
	}

	listings, err := s.market.HighlightsByCategory(ctx, s.siteID(ctx), categoryID, searchSampleSize)
	if err != nil {
		return nil, fmt.Errorf("fetch best sellers of %s: %w", categoryID, err)
	}

	results := niche.AnalyzeAndGroup(listings)
	s.logger.Info().Str("user_id", userID).Str("category_id", categoryID).
		Int("listings", len(listings)).Int("niches", len(results)).Msg("niche search completed")

	if len(results) > 0 && categoryName != "" && s.history != nil {
		if _, err := s.history.Record(ctx, userID, categoryID, categoryName, len(results)); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("record search history")
		}
	}

	return &SearchResult{CategoryID: categoryID, Niches: results, Remaining: decision.Remaining}, nil
}

func (s *NicheService) Categories(ctx context.Context) ([]model.Category, error) {
	cats, err := s.market.Categories(ctx, s.siteID(ctx))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *NicheService) Category(ctx context.Context, categoryID string) (*model.Category, error) {
	if strings.TrimSpace(categoryID) == "" {
		return nil, fmt.Errorf("%w: category id is required", ErrInvalidInput)
	}
	cat, err := s.market.Category(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("get category %s: %w", categoryID, err)
	}
	return cat, nil
}

// consumeUsage loads the subscription of userID and takes one unit of
// feature, turning a denial into *UsageLimitError.
func consumeUsage(ctx context.Context, subs SubscriptionReader, gate UsageGate, userID string, feature model.Feature) (model.UsageDecision, error) {
	sub, err := subs.GetByUser(ctx, userID)
	if err != nil {
		return model.UsageDecision{}, fmt.Errorf("load subscription: %w", err)
	}
	decision, err := gate.CheckAndIncrementUsage(ctx, sub, feature)
	if err != nil {
		return decision, fmt.Errorf("check %s usage: %w", feature, err)
	}
	if !decision.Allowed {
		return decision, &UsageLimitError{Decision: decision}
	}
	return decision, nil
}

func (s *NicheService) siteID(ctx context.Context) string {
	if s.config == nil {
		return DefaultSiteID
	}
	return s.config.SiteID(ctx, model.SlotMarketplace)
}
