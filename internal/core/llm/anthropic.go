package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	coreerrors "github.com/lueurxax/feedback-triage/internal/core/errors"
	"github.com/lueurxax/feedback-triage/internal/platform/config"
)

// anthropicProvider implements the Provider interface for Anthropic Claude.
type anthropicProvider struct {
	cfg         config.LLMConfig
	client      anthropic.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
	circuit     *circuitBreaker
}

// NewAnthropicProvider creates a new Anthropic LLM provider.
func NewAnthropicProvider(cfg config.LLMConfig, logger *zerolog.Logger) Provider {
	return &anthropicProvider{
		cfg:         cfg,
		client:      anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey)),
		logger:      logger,
		rateLimiter: newRateLimiter(cfg.RateLimitRPS),
		circuit:     newCircuitBreaker(cfg.CircuitThreshold, cfg.CircuitTimeout, logger),
	}
}

func (p *anthropicProvider) Name() ProviderName {
	return ProviderAnthropic
}

func (p *anthropicProvider) Model() string {
	return p.cfg.AnthropicModel
}

func (p *anthropicProvider) Complete(ctx context.Context, systemPrompt, userPayload string) (string, error) {
	if err := p.circuit.check(); err != nil {
		return "", err
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf(errRateLimiter, err)
	}

	start := time.Now()

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.cfg.AnthropicModel),
		MaxTokens:   int64(maxTokens(p.cfg.MaxTokens)),
		Temperature: anthropic.Float(float64(p.cfg.Temperature)),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPayload)),
		},
	})
	if err != nil {
		p.circuit.recordFailure()
		observeRequest(ProviderAnthropic, statusError, start)

		return "", fmt.Errorf(errAnthropicMessages, err)
	}

	p.circuit.recordSuccess()
	observeRequest(ProviderAnthropic, statusSuccess, start)
	observeTokens(ProviderAnthropic, int(resp.Usage.InputTokens), int(resp.Usage.OutputTokens))

	text := strings.TrimSpace(extractTextFromResponse(resp))
	if text == "" {
		return "", fmt.Errorf("anthropic: %w", coreerrors.ErrEmptyResponse)
	}

	return text, nil
}

// extractTextFromResponse extracts text content from Anthropic response.
func extractTextFromResponse(resp *anthropic.Message) string {
	var result strings.Builder

	for _, block := range resp.Content {
		if block.Type == contentTypeText {
			result.WriteString(block.Text)
		}
	}

	return result.String()
}

// Ensure anthropicProvider implements Provider interface.
var _ Provider = (*anthropicProvider)(nil)
