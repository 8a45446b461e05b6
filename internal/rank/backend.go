// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/shopmate/internal/genai"
)

const scoringSystem = `You are a product relevance scorer for a shopping search engine.
For each product, score how well it matches the user's query.

Rules:
- R_Score is a number from 0.0 (irrelevant) to 1.0 (exact match for the query).
- If the product is an accessory (case, cover, charger, cable, protector, stand, adapter)
  but the query asks for a primary product, set Irrelevance_Penalty to 0.9.
- Otherwise set Irrelevance_Penalty to 0.
- Respond with a JSON array only, one object per product, preserving the given ids.`

// scoreSchema constrains Gemini's structured output to the Score shape.
var scoreSchema = map[string]any{
	"type": "ARRAY",
	"items": map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"id":                  map[string]any{"type": "STRING"},
			"R_Score":             map[string]any{"type": "NUMBER"},
			"Irrelevance_Penalty": map[string]any{"type": "NUMBER"},
		},
		"required": []string{"id", "R_Score", "Irrelevance_Penalty"},
	},
}

// ModelBackend scores candidates through an AI text generator.
type ModelBackend struct {
	Gen genai.TextGenerator
}

// Name returns the underlying provider identifier.
func (b *ModelBackend) Name() string { return b.Gen.Name() }

// Score sends one batch to the model and parses the returned JSON array.
func (b *ModelBackend) Score(ctx context.Context, query string, batch []Candidate) ([]Score, error) {
	payload, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding candidates: %w", err)
	}
	prompt := fmt.Sprintf("User query: %q\n\nProducts:\n%s", query, payload)

	// Roughly 80 tokens per score entry, with headroom for small batches.
	maxTokens := len(batch) * 80
	if maxTokens < 2048 {
		maxTokens = 2048
	}

	text, err := b.Gen.Generate(ctx, genai.Request{
		System:      scoringSystem,
		Prompt:      prompt,
		Temperature: 0.1,
		MaxTokens:   maxTokens,
		JSON:        true,
		Schema:      scoreSchema,
	})
	if err != nil {
		return nil, err
	}
	return parseScores(text)
}

// parseScores decodes the model's JSON array, tolerating a markdown code
// fence around the body.
func parseScores(text string) ([]Score, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var scores []Score
	if err := json.Unmarshal([]byte(cleaned), &scores); err != nil {
		return nil, fmt.Errorf("parsing score response: %w", err)
	}
	return scores, nil
}
