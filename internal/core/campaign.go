package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/edvin/oportunia/internal/model"
)

const (
	maxTitleRunes = 60
	maxTitles     = 3
)

// ContentGenerator produces a JSON document from a prompt.
type ContentGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// CampaignService writes listing copy for a niche with a language model.
type CampaignService struct {
	llm    ContentGenerator
	subs   SubscriptionReader
	gate   UsageGate
	logger zerolog.Logger
}

func NewCampaignService(llm ContentGenerator, subs SubscriptionReader, gate UsageGate, logger zerolog.Logger) *CampaignService {
	return &CampaignService{
		llm:    llm,
		subs:   subs,
		gate:   gate,
		logger: logger.With().Str("component", "campaign_service").Logger(),
	}
}

// Generate consumes one ai_campaigns unit and returns SEO titles and an
// AIDA description for nicheName.
func (s *CampaignService) Generate(ctx context.Context, userID, nicheName, categoryID string) (*model.Campaign, error) {
	nicheName = strings.TrimSpace(nicheName)
	if nicheName == "" {
		return nil, fmt.Errorf("%w: niche is required", ErrInvalidInput)
	}
	if s.llm == nil {
		return nil, fmt.Errorf("%w: no language model configured", ErrConfigMissing)
	}

	if _, err := consumeUsage(ctx, s.subs, s.gate, userID, model.FeatureAICampaigns); err != nil {
		return nil, err
	}

	text, err := s.llm.GenerateJSON(ctx, campaignPrompt(nicheName, categoryID))
	if err != nil {
		return nil, fmt.Errorf("generate campaign: %w", err)
	}

	campaign, err := parseCampaign(text)
	if err != nil {
		s.logger.Warn().Err(err).Str("niche", nicheName).Msg("unusable model output")
		return nil, err
	}
	campaign.Niche = nicheName
	campaign.CategoryID = categoryID
	return campaign, nil
}

func campaignPrompt(nicheName, categoryID string) string {
	var b strings.Builder
	b.WriteString("Eres un experto en Growth Hacking y SEO para Mercado Libre.\n")
	fmt.Fprintf(&b, "Tu tarea es generar contenido para una publicación exitosa en el nicho: %q.\n", nicheName)
	if categoryID != "" {
		fmt.Fprintf(&b, "La categoría de Mercado Libre es: %s.\n", categoryID)
	}
	b.WriteString("\nGenera:\n")
	fmt.Fprintf(&b, "1. Tres (3) títulos optimizados para SEO de máximo %d caracteres cada uno. Usa keywords de alto tráfico.\n", maxTitleRunes)
	b.WriteString("2. Una descripción persuasiva siguiendo el modelo AIDA (Atención, Interés, Deseo, Acción), enfocada en beneficios y conversión.\n\n")
	b.WriteString("Responde exclusivamente en JSON con esta estructura:\n")
	b.WriteString(`{"titles": ["titulo 1", "titulo 2", "titulo 3"], "description": "texto de la descripción"}`)
	return b.String()
}

type campaignPayload struct {
	Titles      []string `json:"titles"`
	Description string   `json:"description"`
}

// parseCampaign validates model output: 1 to 3 non-empty titles, each cut to
// maxTitleRunes, and a non-empty description.
func parseCampaign(text string) (*model.Campaign, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var p campaignPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &p); err != nil {
		return nil, fmt.Errorf("decode campaign: %w", err)
	}

	titles := make([]string, 0, maxTitles)
	for _, t := range p.Titles {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if utf8.RuneCountInString(t) > maxTitleRunes {
			t = strings.TrimSpace(string([]rune(t)[:maxTitleRunes]))
		}
		titles = append(titles, t)
		if len(titles) == maxTitles {
			break
		}
	}
	if len(titles) == 0 {
		return nil, fmt.Errorf("decode campaign: no titles")
	}
	desc := strings.TrimSpace(p.Description)
	if desc == "" {
		return nil, fmt.Errorf("decode campaign: empty description")
	}
	return &model.Campaign{Titles: titles, Description: desc}, nil
}
