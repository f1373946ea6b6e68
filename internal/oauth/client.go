package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/edvin/oportunia/internal/model"
)

// DefaultTimeout bounds a single token request.
const DefaultTimeout = 20 * time.Second

var (
	ErrUnknownProvider = errors.New("unknown oauth provider")
	ErrTimeout         = errors.New("token request timed out")
)

// TokenExchangeError is returned when the token endpoint answers with a
// non-success status.
type TokenExchangeError struct {
	Status          int
	ProviderMessage string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token endpoint returned %d: %s", e.Status, e.ProviderMessage)
}

// Credentials identify the OAuth application.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// TokenResponse is the normalized token endpoint response.
type TokenResponse struct {
	AccessToken    string
	RefreshToken   string
	ExpiresIn      int64
	ExternalUserID string
	TokenType      string
	Scope          string
}

type Client struct {
	httpClient *http.Client
	apiBaseURL string
	timeout    time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAPIBaseURL overrides the host serving /oauth/token.
func WithAPIBaseURL(u string) Option {
	return func(c *Client) { c.apiBaseURL = strings.TrimRight(u, "/") }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		apiBaseURL: DefaultAPIBaseURL,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) config(slot model.Slot, creds Credentials, redirectURI, site string) (*oauth2.Config, error) {
	p, ok := ProviderFor(slot)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, slot)
	}
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       p.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.AuthURL(site),
			TokenURL:  c.apiBaseURL + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}, nil
}

// AuthorizationURL builds the consent URL for a PKCE authorization request.
func (c *Client) AuthorizationURL(slot model.Slot, clientID, redirectURI, challenge, state, site string) (string, error) {
	cfg, err := c.config(slot, Credentials{ClientID: clientID}, redirectURI, site)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

// ExchangeCode trades an authorization code for tokens. The verifier is
// sent only when non-empty.
func (c *Client) ExchangeCode(ctx context.Context, slot model.Slot, creds Credentials, redirectURI, code, verifier string) (*TokenResponse, error) {
	cfg, err := c.config(slot, creds, redirectURI, "")
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}

	tok, err := cfg.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, translateError(ctx, err)
	}
	return toTokenResponse(tok), nil
}

// Refresh obtains a new token pair using a refresh token. When the
// provider omits a new refresh token the old one is returned.
func (c *Client) Refresh(ctx context.Context, slot model.Slot, creds Credentials, refreshToken string) (*TokenResponse, error) {
	cfg, err := c.config(slot, creds, "", "")
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}
	tok, err := cfg.TokenSource(ctx, expired).Token()
	if err != nil {
		return nil, translateError(ctx, err)
	}
	return toTokenResponse(tok), nil
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient), cancel
}

func translateError(ctx context.Context, err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		status := 0
		if rErr.Response != nil {
			status = rErr.Response.StatusCode
		}
		return &TokenExchangeError{Status: status, ProviderMessage: providerMessage(rErr)}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("token request: %w", err)
}

// providerMessage extracts the human-readable reason from an error body,
// which providers send as {"message": "...", "error": "..."}.
func providerMessage(rErr *oauth2.RetrieveError) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(rErr.Body, &body) == nil && body.Message != "" {
		return body.Message
	}
	if rErr.ErrorDescription != "" {
		return rErr.ErrorDescription
	}
	if rErr.ErrorCode != "" {
		return rErr.ErrorCode
	}
	if body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(rErr.Body))
}

func toTokenResponse(tok *oauth2.Token) *TokenResponse {
	resp := &TokenResponse{
		AccessToken:    tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
		TokenType:      tok.TokenType,
		ExpiresIn:      tok.ExpiresIn,
		ExternalUserID: extraString(tok.Extra("user_id")),
		Scope:          extraString(tok.Extra("scope")),
	}
	if resp.ExpiresIn == 0 && !tok.Expiry.IsZero() {
		resp.ExpiresIn = int64(time.Until(tok.Expiry).Round(time.Second) / time.Second)
	}
	return resp
}

func extraString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return ""
	}
}
