package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	coreerrors "github.com/lueurxax/feedback-triage/internal/core/errors"
	"github.com/lueurxax/feedback-triage/internal/platform/config"
	"github.com/lueurxax/feedback-triage/internal/platform/observability"
)

type openaiProvider struct {
	cfg         config.LLMConfig
	client      *openai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
	circuit     *circuitBreaker
}

// NewOpenAIProvider creates an OpenAI-compatible provider. LLM_BASE_URL points
// it at any server speaking the chat completions API.
func NewOpenAIProvider(cfg config.LLMConfig, logger *zerolog.Logger) Provider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &openaiProvider{
		cfg:         cfg,
		client:      openai.NewClientWithConfig(clientCfg),
		logger:      logger,
		rateLimiter: newRateLimiter(cfg.RateLimitRPS),
		circuit:     newCircuitBreaker(cfg.CircuitThreshold, cfg.CircuitTimeout, logger),
	}
}

func (p *openaiProvider) Name() ProviderName {
	return ProviderOpenAI
}

func (p *openaiProvider) Model() string {
	return p.cfg.Model
}

func (p *openaiProvider) Complete(ctx context.Context, systemPrompt, userPayload string) (string, error) {
	if err := p.circuit.check(); err != nil {
		return "", err
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf(errRateLimiter, err)
	}

	start := time.Now()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.cfg.Model,
		MaxTokens:   maxTokens(p.cfg.MaxTokens),
		Temperature: p.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPayload,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		p.circuit.recordFailure()
		observeRequest(ProviderOpenAI, statusError, start)

		return "", fmt.Errorf(errOpenAIChatCompletion, err)
	}

	p.circuit.recordSuccess()
	observeRequest(ProviderOpenAI, statusSuccess, start)
	observeTokens(ProviderOpenAI, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: %w", coreerrors.ErrEmptyResponse)
	}

	if resp.Choices[0].FinishReason == openai.FinishReasonLength {
		p.logger.Warn().Str("model", p.cfg.Model).Int("max_tokens", maxTokens(p.cfg.MaxTokens)).Msg("LLM output truncated due to max_tokens limit")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func newRateLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, rateLimiterBurst)
	}

	return rate.NewLimiter(rate.Limit(rps), rateLimiterBurst)
}

func maxTokens(configured int) int {
	if configured <= 0 {
		return defaultMaxTokens
	}

	return configured
}

func observeRequest(provider ProviderName, status string, start time.Time) {
	observability.LLMRequestDuration.WithLabelValues(string(provider), status).Observe(time.Since(start).Seconds())
}

func observeTokens(provider ProviderName, input, output int) {
	observability.LLMTokens.WithLabelValues(string(provider), directionInput).Add(float64(input))
	observability.LLMTokens.WithLabelValues(string(provider), directionOutput).Add(float64(output))
}

// Ensure openaiProvider implements Provider interface.
var _ Provider = (*openaiProvider)(nil)
