package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/lueurxax/feedback-triage/internal/core/scoring"
)

// AppEnvLocal is the development environment name.
const AppEnvLocal = "local"

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Database DatabaseConfig
	LLM      LLMConfig
	Scoring  ScoringConfig
	Queue    QueueConfig
	HTTP     HTTPConfig
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	applyLLMAliases(cfg)

	cfg.LLM.AllowMockFallback = cfg.AppEnv == AppEnvLocal

	return cfg, nil
}

// ScoringConfig projects the env settings into the scoring engine config.
func (c *Config) ScoringConfig() scoring.Config {
	return scoring.Config{
		Weights: scoring.Weights{
			Sentiment: c.Scoring.SentimentWeight,
			Likes:     c.Scoring.LikesWeight,
			Recency:   c.Scoring.RecencyWeight,
			Urgency:   c.Scoring.UrgencyWeight,
		},
		LikesSaturation: c.Scoring.LikesSaturation,
		RecencyHorizon:  c.Scoring.RecencyHorizon,
		RecencyFloor:    c.Scoring.RecencyFloor,
		HighThreshold:   c.Scoring.HighThreshold,
		MediumThreshold: c.Scoring.MediumThreshold,
	}
}

// applyLLMAliases accepts the vendor-conventional key names when the
// service-specific ones are not set.
func applyLLMAliases(cfg *Config) {
	if !hasEnv("LLM_API_KEY") {
		setStringFromEnv("OPENAI_API_KEY", &cfg.LLM.APIKey)
	}

	if !hasEnv("LLM_BASE_URL") {
		setStringFromEnv("OPENAI_BASE_URL", &cfg.LLM.BaseURL)
	}

	if !hasEnv("LLM_TIMEOUT") {
		setDurationFromEnv("OPENAI_TIMEOUT", &cfg.LLM.Timeout)
	}
}

func hasEnv(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func setStringFromEnv(key string, target *string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	val = strings.TrimSpace(val)
	if val == "" {
		return
	}

	*target = val
}

func setDurationFromEnv(key string, target *time.Duration) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil {
		return
	}

	*target = parsed
}
