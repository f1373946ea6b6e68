// Package marketplace is a rate-limited client for the marketplace's
// public catalog API.
package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/edvin/oportunia/internal/model"
)

const (
	DefaultBaseURL   = "https://api.mercadolibre.com"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10
	DefaultSiteID    = "MLA"

	// itemsChunkSize is the largest id batch the multiget endpoint accepts.
	itemsChunkSize    = 20
	defaultHighlights = 20
	userAgent         = "Oportunia-SaaS/1.0"
)

// TokenSource yields a currently valid bearer token.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) AccessToken(ctx context.Context) (string, error) { return f(ctx) }

// APIError is returned for non-200 responses.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketplace API %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     TokenSource
	logger     zerolog.Logger
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func NewClient(tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		tokens:     tokens,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("marketplace token: %w", err)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug().Str("path", path).Msg("marketplace API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("marketplace API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body)), Endpoint: path}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Categories lists the top-level categories of a site.
func (c *Client) Categories(ctx context.Context, siteID string) ([]model.Category, error) {
	var cats []model.Category
	if err := c.get(ctx, "/sites/"+url.PathEscape(siteOrDefault(siteID))+"/categories", nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// Category returns a category with its path and children.
func (c *Client) Category(ctx context.Context, categoryID string) (*model.Category, error) {
	var cat model.Category
	if err := c.get(ctx, "/categories/"+url.PathEscape(categoryID), nil, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

type highlightsResponse struct {
	Content []struct {
		ID       string `json:"id"`
		Position int    `json:"position"`
		Type     string `json:"type"`
	} `json:"content"`
}

// HighlightsByCategory returns the best-selling listings of a category, up
// to limit (20 when limit <= 0).
func (c *Client) HighlightsByCategory(ctx context.Context, siteID, categoryID string, limit int) ([]model.Listing, error) {
	if limit <= 0 {
		limit = defaultHighlights
	}

	var hl highlightsResponse
	path := fmt.Sprintf("/highlights/%s/category/%s", url.PathEscape(siteOrDefault(siteID)), url.PathEscape(categoryID))
	if err := c.get(ctx, path, nil, &hl); err != nil {
		return nil, err
	}

	ids := make([]string, 0, min(len(hl.Content), limit))
	for _, h := range hl.Content {
		if len(ids) == limit {
			break
		}
		ids = append(ids, h.ID)
	}
	return c.Items(ctx, ids)
}

type multigetEntry struct {
	Code int           `json:"code"`
	Body model.Listing `json:"body"`
}

// Items fetches listings by id in parallel batches. Ids the API cannot
// resolve are skipped. Order follows ids.
func (c *Client) Items(ctx context.Context, ids []string) ([]model.Listing, error) {
	if len(ids) == 0 {
		return []model.Listing{}, nil
	}

	var chunks [][]string
	for i := 0; i < len(ids); i += itemsChunkSize {
		chunks = append(chunks, ids[i:min(i+itemsChunkSize, len(ids))])
	}

	results := make([][]multigetEntry, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			return c.get(gctx, "/items", url.Values{"ids": {strings.Join(chunk, ",")}}, &results[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	listings := make([]model.Listing, 0, len(ids))
	for _, batch := range results {
		for _, e := range batch {
			if e.Code != 0 && e.Code != http.StatusOK {
				continue
			}
			listings = append(listings, e.Body)
		}
	}
	return listings, nil
}

func siteOrDefault(siteID string) string {
	if siteID == "" {
		return DefaultSiteID
	}
	return siteID
}
