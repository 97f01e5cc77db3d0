package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults for the tunable pipeline knobs. All can be overridden through the
// environment so the validator and the credit ratio can be tuned without a
// redeploy.
const (
	DefaultCreditsPerKiloToken = 1.0
	DefaultOutputTokenWeight   = 2
	DefaultValidationThreshold = 100
	DefaultMinOverlapWords     = 10
	DefaultDailyCreditLimit    = 200
	DefaultMaxOutputTokens     = 2000
	DefaultModel               = "gpt-4o-mini"
	DefaultSearchTimeout       = 15 * time.Second
	DefaultModelTimeout        = 60 * time.Second
)

// Config is the environment surface the pipeline consumes: provider API keys
// and the externally tunable scoring/billing parameters.
type Config struct {
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GeminiAPIKey    string
	TavilyAPIKey    string

	// CreditsPerKiloToken converts weighted tokens to billing credits.
	CreditsPerKiloToken float64
	// OutputTokenWeight weights output tokens against input tokens when
	// estimating cost; generation is costlier than ingestion.
	OutputTokenWeight int
	// ValidationThreshold is the minimum groundedness score that counts as
	// passed. The reference behaviour requires all four checks (100).
	ValidationThreshold int
	// MinOverlapWords is the shared long-word count required by the lexical
	// overlap check.
	MinOverlapWords int

	DailyCreditLimit int
	MaxOutputTokens  int
	DefaultModel     string

	SearchTimeout time.Duration
	ModelTimeout  time.Duration
}

// FromEnv builds a Config from TRIPARTITE_* environment variables, falling back
// to defaults for anything unset.
func FromEnv() *Config {
	cfg := &Config{
		OpenAIAPIKey:        os.Getenv("TRIPARTITE_OPENAI_API_KEY"),
		AnthropicAPIKey:     os.Getenv("TRIPARTITE_ANTHROPIC_API_KEY"),
		GeminiAPIKey:        os.Getenv("TRIPARTITE_GEMINI_API_KEY"),
		TavilyAPIKey:        os.Getenv("TRIPARTITE_TAVILY_API_KEY"),
		CreditsPerKiloToken: envFloat("TRIPARTITE_CREDITS_PER_KILOTOKEN", DefaultCreditsPerKiloToken),
		OutputTokenWeight:   envInt("TRIPARTITE_OUTPUT_TOKEN_WEIGHT", DefaultOutputTokenWeight),
		ValidationThreshold: envInt("TRIPARTITE_VALIDATION_THRESHOLD", DefaultValidationThreshold),
		MinOverlapWords:     envInt("TRIPARTITE_MIN_OVERLAP_WORDS", DefaultMinOverlapWords),
		DailyCreditLimit:    envInt("TRIPARTITE_DAILY_CREDIT_LIMIT", DefaultDailyCreditLimit),
		MaxOutputTokens:     envInt("TRIPARTITE_MAX_OUTPUT_TOKENS", DefaultMaxOutputTokens),
		DefaultModel:        envString("TRIPARTITE_DEFAULT_MODEL", DefaultModel),
		SearchTimeout:       envDuration("TRIPARTITE_SEARCH_TIMEOUT", DefaultSearchTimeout),
		ModelTimeout:        envDuration("TRIPARTITE_MODEL_TIMEOUT", DefaultModelTimeout),
	}
	return cfg
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	v := NewValidator().
		RequirePositiveFloat("credits_per_kilotoken", c.CreditsPerKiloToken).
		RequirePositive("output_token_weight", c.OutputTokenWeight).
		ValidateRange("validation_threshold", c.ValidationThreshold, 0, 100).
		RequirePositive("min_overlap_words", c.MinOverlapWords).
		RequirePositive("daily_credit_limit", c.DailyCreditLimit).
		RequirePositive("max_output_tokens", c.MaxOutputTokens).
		RequireNonEmpty("default_model", c.DefaultModel)
	return v.Error()
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
