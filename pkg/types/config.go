// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SourcesConfig holds settings for the source coordinator. It is built
// once by the cmd layer and passed in; no component reads environment
// state directly.
type SourcesConfig struct {
	HTTPConfig `yaml:",inline"`

	// EnableDirect controls the direct-store scrapers (Amazon, Flipkart).
	EnableDirect bool `json:"enable_direct" yaml:"enable_direct"`

	// EnableSerpAPI controls the broad-market Google Shopping source.
	EnableSerpAPI bool `json:"enable_serpapi" yaml:"enable_serpapi"`

	// SerpAPIKey authenticates against serpapi.com.
	SerpAPIKey string `json:"serpapi_key,omitempty" yaml:"serpapi_key,omitempty"`

	// SourceTimeout bounds each source invocation; an adapter that has not
	// completed by then is abandoned and reported as failed (default 6s).
	SourceTimeout time.Duration `json:"source_timeout" yaml:"source_timeout"`

	// MaxPerStore caps results requested from the broad-market source
	// (default 15).
	MaxPerStore int `json:"max_per_store" yaml:"max_per_store"`
}

// AIProvider selects the generative AI backend implementation.
type AIProvider string

const (
	ProviderGemini AIProvider = "gemini"
	ProviderOpenAI AIProvider = "openai"
)

// AIConfig holds shared settings for stages that call a generative AI API.
type AIConfig struct {
	// Provider selects the backend: gemini or openai.
	Provider AIProvider `json:"provider" yaml:"provider"`

	// Model is the model identifier (e.g. "gemini-2.5-flash-lite").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint for OpenAI-compatible providers.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxRetries is the number of retry attempts on rate limiting (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// Configured reports whether the AI API can be called at all.
func (c AIConfig) Configured() bool {
	return c.APIKey != ""
}

// RankerConfig holds settings for the relevance scorer.
type RankerConfig struct {
	AIConfig `yaml:",inline"`

	// BatchSize is the number of candidates per scoring call (default 25).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// BatchPacing is the minimum interval between successive batch calls
	// (default 500ms).
	BatchPacing time.Duration `json:"batch_pacing" yaml:"batch_pacing"`
}

// AdvisorConfig holds settings for the verdict summarizer.
type AdvisorConfig struct {
	AIConfig `yaml:",inline"`
}

// CacheConfig holds settings for the query-result cache.
type CacheConfig struct {
	// Dir is the directory holding the cache database (default ".shopmate").
	Dir string `json:"dir" yaml:"dir"`

	// TTL is how long a cached result stays fresh (default 5m).
	TTL time.Duration `json:"ttl" yaml:"ttl"`
}

// ServerConfig holds settings for the HTTP server.
type ServerConfig struct {
	// Port is the listen port (default 4000).
	Port int `json:"port" yaml:"port"`

	// RateLimitMax requests are allowed per RateLimitWindow
	// (defaults: 100 per 15 minutes).
	RateLimitWindow time.Duration `json:"rate_limit_window" yaml:"rate_limit_window"`
	RateLimitMax    int           `json:"rate_limit_max" yaml:"rate_limit_max"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Sources SourcesConfig `json:"sources" yaml:"sources"`
	Ranker  RankerConfig  `json:"ranker" yaml:"ranker"`
	Advisor AdvisorConfig `json:"advisor" yaml:"advisor"`
	Cache   CacheConfig   `json:"cache" yaml:"cache"`
	Server  ServerConfig  `json:"server" yaml:"server"`
}
