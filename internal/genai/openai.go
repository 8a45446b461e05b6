// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package genai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pdiddy/shopmate/internal/httputil"
	"github.com/pdiddy/shopmate/pkg/types"
)

const openaiDefaultMaxRetries = 3

// OpenAI calls an OpenAI-compatible chat completions API. BaseURL may
// point at any compatible provider. Rate-limited calls are retried with
// the same backoff schedule as the Gemini client.
type OpenAI struct {
	client     *openai.Client
	model      string
	maxRetries int
}

// NewOpenAI builds an OpenAI client from the shared AI config.
func NewOpenAI(cfg types.AIConfig) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return &OpenAI{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
	}
}

// Name returns the provider identifier.
func (o *OpenAI) Name() string { return "openai" }

// Generate sends one chat completion and returns the response text. A
// content-filtered or length-truncated completion returns ErrBlocked.
func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if req.System != "" {
		chatReq.Messages = append([]openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
		}, chatReq.Messages...)
	}
	if req.TopP > 0 {
		chatReq.TopP = float32(req.TopP)
	}

	maxRetries := o.maxRetries
	if maxRetries <= 0 {
		maxRetries = openaiDefaultMaxRetries
	}

	var resp openai.ChatCompletionResponse
	var err error
	for attempt := 0; ; attempt++ {
		resp, err = o.client.CreateChatCompletion(ctx, chatReq)
		if err == nil || attempt >= maxRetries || !isRateLimited(err) {
			break
		}
		backoff := time.Duration(math.Pow(2, float64(attempt))) * httputil.RetryBaseDelay
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	choice := resp.Choices[0]
	switch choice.FinishReason {
	case openai.FinishReasonContentFilter, openai.FinishReasonLength:
		return "", fmt.Errorf("%w (finish reason %s)", ErrBlocked, choice.FinishReason)
	}

	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return "", fmt.Errorf("openai returned an empty message")
	}
	return text, nil
}

// isRateLimited reports whether err is an HTTP 429 from the API.
func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
