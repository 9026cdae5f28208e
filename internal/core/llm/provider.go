// Package llm provides the LLM provider clients used by triage.
//
// A Provider turns a system prompt and a user payload into raw response text.
// Providers do not interpret the response; parsing and validation belong to
// the caller, and ExtractJSON is the single place that knows about the
// formatting quirks models wrap around JSON.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/feedback-triage/internal/platform/config"
)

// ProviderName identifies an LLM provider.
type ProviderName string

// Provider name constants.
const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderMock      ProviderName = "mock"
)

// Provider defines the interface for LLM providers.
type Provider interface {
	// Name returns the provider identifier.
	Name() ProviderName

	// Model returns the model the provider sends requests to.
	Model() string

	// Complete sends one system+user exchange and returns the raw response text.
	Complete(ctx context.Context, systemPrompt, userPayload string) (string, error)
}

// New builds the provider selected by cfg.Provider. With no explicit choice
// the first provider that has a key wins. The mock is used only when chosen
// explicitly or when cfg.AllowMockFallback is set; otherwise a missing key
// is an error.
func New(cfg config.LLMConfig, logger *zerolog.Logger) (Provider, error) {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	name := ProviderName(strings.ToLower(strings.TrimSpace(cfg.Provider)))
	if name == "" {
		name = detectProvider(cfg)
	}

	switch name {
	case "":
		return nil, fmt.Errorf("%w: set LLM_API_KEY or ANTHROPIC_API_KEY, or LLM_PROVIDER=mock", errMissingAPIKey)
	case ProviderOpenAI:
		if cfg.APIKey == "" || cfg.APIKey == llmAPIKeyMock {
			return nil, fmt.Errorf("%w: LLM_API_KEY is required for openai", errMissingAPIKey)
		}

		return NewOpenAIProvider(cfg, logger), nil
	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is required for anthropic", errMissingAPIKey)
		}

		return NewAnthropicProvider(cfg, logger), nil
	case ProviderMock:
		logger.Warn().Msg("using mock LLM provider")

		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownProvider, cfg.Provider)
	}
}

func detectProvider(cfg config.LLMConfig) ProviderName {
	switch {
	case cfg.APIKey != "" && cfg.APIKey != llmAPIKeyMock:
		return ProviderOpenAI
	case cfg.AnthropicAPIKey != "":
		return ProviderAnthropic
	case cfg.APIKey == llmAPIKeyMock, cfg.AllowMockFallback:
		return ProviderMock
	default:
		return ""
	}
}
