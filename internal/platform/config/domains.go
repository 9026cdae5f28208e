package config

import "time"

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	PostgresDSN       string        `env:"POSTGRES_DSN,required"`
	MaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"25"`
	MinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"5"`
	MaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	MaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	HealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
	QueryTimeout      time.Duration `env:"DB_QUERY_TIMEOUT" envDefault:"10s"`
}

// LLMConfig holds LLM provider settings.
type LLMConfig struct {
	// Provider selects the backend: openai, anthropic or mock. Empty picks
	// the first provider with a configured key.
	Provider string `env:"LLM_PROVIDER" envDefault:""`

	// OpenAI-compatible
	APIKey  string `env:"LLM_API_KEY"`
	BaseURL string `env:"LLM_BASE_URL" envDefault:""`
	Model   string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`

	// Anthropic
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY" envDefault:""`
	AnthropicModel  string `env:"ANTHROPIC_MODEL" envDefault:"claude-haiku-4-5"`

	MaxTokens    int           `env:"LLM_MAX_TOKENS" envDefault:"1024"`
	Temperature  float32       `env:"LLM_TEMPERATURE" envDefault:"0.2"`
	Timeout      time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`
	RateLimitRPS float64       `env:"LLM_RATE_LIMIT_RPS" envDefault:"1"`

	// Circuit breaker
	CircuitThreshold int           `env:"LLM_CIRCUIT_THRESHOLD" envDefault:"5"`
	CircuitTimeout   time.Duration `env:"LLM_CIRCUIT_TIMEOUT" envDefault:"1m"`

	// AllowMockFallback lets provider detection fall back to the mock when
	// no key is configured. Load sets it for the local environment only.
	AllowMockFallback bool
}

// ScoringConfig holds the prioritization weights and thresholds.
type ScoringConfig struct {
	SentimentWeight float64       `env:"SCORE_WEIGHT_SENTIMENT" envDefault:"0.5"`
	LikesWeight     float64       `env:"SCORE_WEIGHT_LIKES" envDefault:"0.2"`
	RecencyWeight   float64       `env:"SCORE_WEIGHT_RECENCY" envDefault:"0.3"`
	UrgencyWeight   float64       `env:"SCORE_WEIGHT_URGENCY" envDefault:"0.6"`
	LikesSaturation int           `env:"SCORE_LIKES_SATURATION" envDefault:"1000"`
	RecencyHorizon  time.Duration `env:"SCORE_RECENCY_HORIZON" envDefault:"8760h"`
	RecencyFloor    float64       `env:"SCORE_RECENCY_FLOOR" envDefault:"5"`
	HighThreshold   float64       `env:"SCORE_HIGH_THRESHOLD" envDefault:"75"`
	MediumThreshold float64       `env:"SCORE_MEDIUM_THRESHOLD" envDefault:"55"`
}

// QueueConfig holds the triage queue processor settings.
type QueueConfig struct {
	Interval         time.Duration `env:"QUEUE_INTERVAL" envDefault:"30s"`
	BatchSize        int           `env:"QUEUE_BATCH_SIZE" envDefault:"10"`
	Concurrency      int           `env:"QUEUE_CONCURRENCY" envDefault:"1"`
	ItemTimeout      time.Duration `env:"QUEUE_ITEM_TIMEOUT" envDefault:"60s"`
	StaleAfter       time.Duration `env:"QUEUE_STALE_AFTER" envDefault:"10m"`
	RecoverySchedule string        `env:"QUEUE_RECOVERY_SCHEDULE" envDefault:"@every 1m"`
	RawLogLimit      int           `env:"QUEUE_RAW_LOG_LIMIT" envDefault:"2000"`
}

// HTTPConfig holds API and health server settings.
type HTTPConfig struct {
	APIPort            int      `env:"API_PORT" envDefault:"8081"`
	HealthPort         int      `env:"HEALTH_PORT" envDefault:"8080"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}
