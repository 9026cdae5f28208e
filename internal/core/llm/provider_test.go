package llm

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/lueurxax/feedback-triage/internal/core/errors"
	"github.com/lueurxax/feedback-triage/internal/platform/config"
)

func TestNewSelectsProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LLMConfig
		want    ProviderName
		wantErr bool
	}{
		{name: "no keys", cfg: config.LLMConfig{}, wantErr: true},
		{name: "no keys with local fallback", cfg: config.LLMConfig{AllowMockFallback: true}, want: ProviderMock},
		{name: "explicit mock", cfg: config.LLMConfig{Provider: "mock"}, want: ProviderMock},
		{name: "detect openai", cfg: config.LLMConfig{APIKey: "sk-test", Model: "gpt-4o-mini"}, want: ProviderOpenAI},
		{name: "detect anthropic", cfg: config.LLMConfig{AnthropicAPIKey: "ak"}, want: ProviderAnthropic},
		{name: "mock key stays mock", cfg: config.LLMConfig{APIKey: "mock"}, want: ProviderMock},
		{name: "explicit anthropic", cfg: config.LLMConfig{Provider: "Anthropic", APIKey: "sk", AnthropicAPIKey: "ak"}, want: ProviderAnthropic},
		{name: "explicit openai without key", cfg: config.LLMConfig{Provider: "openai"}, wantErr: true},
		{name: "unknown", cfg: config.LLMConfig{Provider: "cohere"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg, nil)
			if tt.wantErr {
				require.Error(t, err)

				if tt.cfg.Provider == "" {
					assert.ErrorIs(t, err, errMissingAPIKey)
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}

func TestMockProviderPicksFirstAllowedTicketType(t *testing.T) {
	p := NewMockProvider()

	raw, err := p.Complete(context.Background(), "system", `{"message":{"text":"the app keeps crashing on start"},"ticket_types":[{"id":"tt-7"},{"id":"tt-9"}],"company_tags":["crash","login"]}`)
	require.NoError(t, err)

	var got struct {
		TicketTypeID string   `json:"ticket_type_id"`
		Tags         []string `json:"tags_array"`
		Theme        string   `json:"theme_text"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &got))

	assert.Equal(t, "tt-7", got.TicketTypeID)
	assert.Equal(t, []string{"crash"}, got.Tags)
	assert.Equal(t, "the app keeps crashing on start", got.Theme)
}

func TestMockProviderLeavesSentimentUnset(t *testing.T) {
	raw, err := NewMockProvider().Complete(context.Background(), "system", `{"message":{"text":"refund never arrived"},"ticket_types":[{"id":"tt-1"}]}`)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &got))

	assert.NotContains(t, got, "sentiment")
	assert.NotContains(t, got, "sentiment_polarity")
}

func TestMockProviderRejectsBadPayload(t *testing.T) {
	_, err := NewMockProvider().Complete(context.Background(), "", "not json")
	require.Error(t, err)
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := newCircuitBreaker(2, time.Minute, nil)
	require.NoError(t, cb.check())

	cb.recordFailure()
	require.NoError(t, cb.check())

	cb.recordFailure()
	err := cb.check()
	require.Error(t, err)
	assert.ErrorIs(t, err, coreerrors.ErrCircuitBreakerOpen)
}

func TestCircuitBreakerResetsOnSuccess(t *testing.T) {
	cb := newCircuitBreaker(2, time.Minute, nil)

	cb.recordFailure()
	cb.recordSuccess()
	cb.recordFailure()

	assert.NoError(t, cb.check())
}

func TestCircuitBreakerClosesAfterTimeout(t *testing.T) {
	cb := newCircuitBreaker(1, 10*time.Millisecond, nil)

	cb.recordFailure()
	require.Error(t, cb.check())

	time.Sleep(20 * time.Millisecond)
	assert.NoError(t, cb.check())
}
