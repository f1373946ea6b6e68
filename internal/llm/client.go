// Package llm generates marketing copy with Google Gemini.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

var ErrEmptyResponse = errors.New("no content generated")

// Client wraps the Gemini API for JSON-mode generation.
type Client struct {
	client *genai.Client
	model  string
	logger zerolog.Logger
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	c := &Client{
		client: genaiClient,
		model:  DefaultModel,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GenerateJSON asks the model for a response constrained to JSON and
// returns the raw text.
func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug().Str("model", c.model).Msg("generating content")

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return extractText(result)
}

func extractText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
