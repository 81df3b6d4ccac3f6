// Package llm runs the text-extraction call against Azure OpenAI and parses
// the fenced-JSON answer into an ExtractionRecord. The model only ever sees
// the page's visible text; the prompt forbids external lookups.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/prompts"

	"github.com/btp-tools/fichetech/internal/config"
	"github.com/btp-tools/fichetech/internal/models"
)

// ErrNoJSONBlock is returned when the model's answer carries no fenced
// ```json block. The raw answer is still returned for diagnostics.
var ErrNoJSONBlock = errors.New("no JSON block found in LLM response")

const extractionTemplate = `
Tu es un assistant expert en produits BTP.
Tu ne dois pas aller chercher d'informations en ligne, mais uniquement analyser le texte fourni.

Analyse le texte d'une page produit ci-dessous, et retourne les informations au format JSON structuré :

- TITRE
- RÉFÉRENCE
- DESCRIPTION
- AVANTAGES
- UTILISATION
- CARACTÉRISTIQUES TECHNIQUES (clé: valeur)

Voici le texte brut :
` + "```" + `
{text}
` + "```" + `
Merci de retourner uniquement le JSON dans un bloc ` + "```json" + ` sans aucune explication autour.
`

// Extractor is the contract the orchestrator depends on. Extract returns
// the normalized record plus the raw model answer for diagnostics.
type Extractor interface {
	Extract(ctx context.Context, pageText string) (*models.ExtractionRecord, string, error)
}

type Client struct {
	model  llms.Model
	prompt prompts.PromptTemplate
	logger *slog.Logger
}

func New(cfg config.LLMConfig, logger *slog.Logger) (*Client, error) {
	deployment := cfg.Deployment
	if deployment == "" {
		deployment = cfg.Model
	}

	model, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithModel(deployment),
		openai.WithBaseURL(cfg.Endpoint),
		openai.WithAPIType(openai.APITypeAzure),
		openai.WithAPIVersion(cfg.APIVersion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	return &Client{
		model:  model,
		prompt: prompts.NewPromptTemplate(extractionTemplate, []string{"text"}),
		logger: logger.With("component", "llm"),
	}, nil
}

func (c *Client) Extract(ctx context.Context, pageText string) (*models.ExtractionRecord, string, error) {
	prompt, err := c.prompt.Format(map[string]any{"text": pageText})
	if err != nil {
		return nil, "", fmt.Errorf("failed to format prompt: %w", err)
	}

	response, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt)
	if err != nil {
		return nil, "", fmt.Errorf("LLM call failed: %w", err)
	}

	c.logger.Debug("llm response received", "length", len(response))

	block, ok := ExtractJSONBlock(response)
	if !ok {
		return nil, response, ErrNoJSONBlock
	}

	record, err := ParseExtraction(block)
	if err != nil {
		return nil, response, fmt.Errorf("failed to parse extraction JSON: %w", err)
	}

	return record, response, nil
}
