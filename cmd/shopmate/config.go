// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/shopmate/internal/advisor"
	"github.com/pdiddy/shopmate/internal/aggregate"
	"github.com/pdiddy/shopmate/internal/genai"
	"github.com/pdiddy/shopmate/internal/rank"
	"github.com/pdiddy/shopmate/internal/source"
	"github.com/pdiddy/shopmate/pkg/types"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultUserAgent   = "shopmate/0.1"
	defaultAIModel     = "gemini-2.0-flash"
)

func init() {
	viper.SetDefault("sources.enable_direct", true)
	viper.SetDefault("sources.enable_serpapi", true)
	viper.SetDefault("sources.source_timeout", 6*time.Second)
	viper.SetDefault("sources.max_per_store", 15)
	viper.SetDefault("ai.provider", string(types.ProviderGemini))
	viper.SetDefault("ai.model", defaultAIModel)
	viper.SetDefault("ai.max_retries", 3)
	viper.SetDefault("ranker.batch_size", 25)
	viper.SetDefault("ranker.batch_pacing", 500*time.Millisecond)
	viper.SetDefault("cache.dir", ".shopmate")
	viper.SetDefault("cache.ttl", 5*time.Minute)
	viper.SetDefault("server.port", 4000)
	viper.SetDefault("server.rate_limit_window", 15*time.Minute)
	viper.SetDefault("server.rate_limit_max", 100)
}

// loadPipelineConfig builds the full pipeline configuration from viper
// with secrets as the fallback for API keys.
func loadPipelineConfig() types.PipelineConfig {
	ai := types.AIConfig{
		Provider:   types.AIProvider(viper.GetString("ai.provider")),
		Model:      viper.GetString("ai.model"),
		BaseURL:    viper.GetString("ai.base_url"),
		MaxRetries: viper.GetInt("ai.max_retries"),
	}
	switch ai.Provider {
	case types.ProviderOpenAI:
		ai.APIKey = configOrSecret(viper.GetString("ai.api_key"), "openai-api-key")
	default:
		ai.APIKey = configOrSecret(viper.GetString("ai.api_key"), "gemini-api-key")
	}

	return types.PipelineConfig{
		Sources: types.SourcesConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   defaultHTTPTimeout,
				UserAgent: defaultUserAgent,
			},
			EnableDirect:  viper.GetBool("sources.enable_direct"),
			EnableSerpAPI: viper.GetBool("sources.enable_serpapi"),
			SerpAPIKey:    configOrSecret(viper.GetString("sources.serpapi_key"), "serpapi-api-key"),
			SourceTimeout: viper.GetDuration("sources.source_timeout"),
			MaxPerStore:   viper.GetInt("sources.max_per_store"),
		},
		Ranker: types.RankerConfig{
			AIConfig:    ai,
			BatchSize:   viper.GetInt("ranker.batch_size"),
			BatchPacing: viper.GetDuration("ranker.batch_pacing"),
		},
		Advisor: types.AdvisorConfig{AIConfig: ai},
		Cache: types.CacheConfig{
			Dir: viper.GetString("cache.dir"),
			TTL: viper.GetDuration("cache.ttl"),
		},
		Server: types.ServerConfig{
			Port:            viper.GetInt("server.port"),
			RateLimitWindow: viper.GetDuration("server.rate_limit_window"),
			RateLimitMax:    viper.GetInt("server.rate_limit_max"),
		},
	}
}

// buildPipeline assembles the aggregation pipeline from the config. The
// returned SerpAPI source serves the account endpoints; it is nil when
// no key is configured.
func buildPipeline(cfg types.PipelineConfig, w io.Writer) (*aggregate.Pipeline, *source.SerpAPISource, error) {
	client := &http.Client{Timeout: cfg.Sources.Timeout}

	var direct []source.Source
	if cfg.Sources.EnableDirect {
		direct = []source.Source{
			&source.AmazonSource{UserAgent: cfg.Sources.UserAgent, Client: client},
			&source.FlipkartSource{UserAgent: cfg.Sources.UserAgent, Client: client},
		}
	}

	var serp *source.SerpAPISource
	var broad source.Source
	if cfg.Sources.SerpAPIKey != "" {
		serp = &source.SerpAPISource{
			APIKey:     cfg.Sources.SerpAPIKey,
			MaxResults: cfg.Sources.MaxPerStore,
			UserAgent:  cfg.Sources.UserAgent,
			Client:     client,
		}
		broad = serp
	}

	coordinator := source.NewCoordinator(direct, broad, cfg.Sources, w)

	gen, err := genai.New(cfg.Ranker.AIConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("configuring AI provider: %w", err)
	}
	var backend rank.Backend
	if gen != nil {
		backend = &rank.ModelBackend{Gen: gen}
	}

	ranker := rank.New(backend, cfg.Ranker, w)
	adv := advisor.New(gen, cfg.Advisor, w)

	return aggregate.New(coordinator, ranker, adv, cfg, w), serp, nil
}

// warnMissingConfig prints startup warnings for configuration gaps that
// degrade results but do not prevent running.
func warnMissingConfig(cfg types.PipelineConfig, w io.Writer) {
	if !cfg.Sources.EnableDirect && !cfg.Sources.EnableSerpAPI {
		fmt.Fprintln(w, "warning: no data sources enabled; every search will return empty results")
	}
	if cfg.Sources.EnableSerpAPI && cfg.Sources.SerpAPIKey == "" {
		fmt.Fprintln(w, "warning: SerpAPI enabled but no key configured (add serpapi-api-key to .secrets/)")
	}
	if !cfg.Ranker.Configured() {
		fmt.Fprintln(w, "warning: no AI API key configured; ranking and summaries fall back to price sort")
	}
}
