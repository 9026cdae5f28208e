package llm

import (
	"errors"
	"time"
)

var (
	errMissingAPIKey   = errors.New("missing api key")
	errUnknownProvider = errors.New("unknown llm provider")
)

// Error message templates
const (
	errRateLimiter          = "rate limiter error: %w"
	errOpenAIChatCompletion = "openai chat completion error: %w"
	errAnthropicMessages    = "anthropic messages error: %w"
)

const (
	llmAPIKeyMock = "mock"

	contentTypeText = "text"

	rateLimiterBurst = 5

	defaultMaxTokens        = 1024
	defaultCircuitThreshold = 5
	defaultCircuitTimeout   = time.Minute

	statusSuccess = "success"
	statusError   = "error"

	directionInput  = "input"
	directionOutput = "output"
)
