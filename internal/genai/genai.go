// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package genai provides a minimal text-generation client abstraction
// over the supported AI providers. Callers build prompts and parse
// responses themselves; this package only handles transport, retry, and
// provider-specific wire formats.
package genai

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/shopmate/pkg/types"
)

// ErrBlocked is returned when the provider produced no usable text
// because the response was blocked or truncated (safety filters,
// recitation checks, or token limits). Callers should fall back to
// deterministic output rather than retry.
var ErrBlocked = errors.New("genai: response blocked or truncated")

// Request describes one generation call. Schema is honored only by
// providers with native structured output; others rely on the prompt.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	TopP        float64
	TopK        int

	// JSON requests a JSON-only response body. Schema optionally
	// constrains its shape.
	JSON   bool
	Schema map[string]any
}

// TextGenerator is the provider-independent generation interface.
type TextGenerator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// New returns the generator for the configured provider, or nil when the
// config is incomplete. A nil generator is a valid "AI disabled" state;
// callers degrade to their deterministic fallbacks.
func New(cfg types.AIConfig) (TextGenerator, error) {
	if !cfg.Configured() {
		return nil, nil
	}
	switch cfg.Provider {
	case types.ProviderGemini:
		return NewGemini(cfg), nil
	case types.ProviderOpenAI:
		return NewOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
