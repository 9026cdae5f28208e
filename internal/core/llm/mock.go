package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// mockProvider answers with a deterministic analysis built from the user
// payload. It never calls the network and never reports a sentiment, so the
// rule-based sentiment of a record is left as ingested.
type mockProvider struct{}

// NewMockProvider creates a new mock LLM provider.
func NewMockProvider() Provider {
	return &mockProvider{}
}

func (p *mockProvider) Name() ProviderName {
	return ProviderMock
}

func (p *mockProvider) Model() string {
	return string(ProviderMock)
}

type mockPayload struct {
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
	TicketTypes []struct {
		ID string `json:"id"`
	} `json:"ticket_types"`
	CompanyTags []string `json:"company_tags"`
}

func (p *mockProvider) Complete(ctx context.Context, _ string, userPayload string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var payload mockPayload
	if err := json.Unmarshal([]byte(userPayload), &payload); err != nil {
		return "", fmt.Errorf("mock provider: decode payload: %w", err)
	}

	out := map[string]any{
		"theme_text":          firstWords(payload.Message.Text, 6),
		"tone_of_voice_value": "neutral",
		"tags_array":          []string{},
		"answer_text":         "Thank you for your feedback.",
	}

	if len(payload.TicketTypes) > 0 {
		out["ticket_type_id"] = payload.TicketTypes[0].ID
	}

	if len(payload.CompanyTags) > 0 {
		out["tags_array"] = []string{payload.CompanyTags[0]}
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("mock provider: encode: %w", err)
	}

	return string(b), nil
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}

	return strings.Join(words, " ")
}

// Ensure mockProvider implements Provider interface.
var _ Provider = (*mockProvider)(nil)
