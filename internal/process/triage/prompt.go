package triage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lueurxax/feedback-triage/internal/core/domain"
)

const systemPrompt = `You are a customer support triage assistant for the brand described in the user message.
Read the customer message and classify it for the support team.

Respond with a single JSON object and nothing else:
{
  "ticket_type_id": "<id of exactly one entry from ticket_types>",
  "theme_text": "<short theme of the message, max 10 words>",
  "tone_of_voice_value": "<tone of the customer: e.g. angry, disappointed, neutral, grateful>",
  "tags_array": ["<zero or more short tags, prefer company_tags when they fit>"],
  "answer_text": "<suggested reply to the customer in the language of the message>",
  "company_answer_data_source_id": "<id of the faq_sources entry the answer relies on, or null>",
  "sentiment": "positive | neutral | negative",
  "sentiment_polarity": <number from -1 (very negative) to 1 (very positive)>
}

Rules:
- ticket_type_id MUST be one of the ids listed in ticket_types.
- company_answer_data_source_id MUST be null or one of the ids listed in faq_sources.
- Base the suggested answer on faq_sources when one applies. Do not invent policies.`

// promptPayload is the user message sent to the model.
type promptPayload struct {
	Brand       string              `json:"brand"`
	Source      domain.Source       `json:"source"`
	Message     promptMessage       `json:"message"`
	CompanyTags []string            `json:"company_tags"`
	FAQSources  []domain.DataSource `json:"faq_sources"`
	TicketTypes []domain.TicketType `json:"ticket_types"`
}

type promptMessage struct {
	Text      string    `json:"text"`
	Context   string    `json:"context,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BuildUserPayload renders the prompt context as the JSON user message.
func BuildUserPayload(pc *domain.PromptContext) (string, error) {
	payload := promptPayload{
		Brand:  pc.BrandTitle,
		Source: pc.Source,
		Message: promptMessage{
			Text:      pc.MessageText,
			Context:   pc.MessageContext,
			CreatedAt: pc.MessageCreatedAt.UTC(),
		},
		CompanyTags: nonNil(pc.CompanyTags),
		FAQSources:  nonNil(pc.FAQSources),
		TicketTypes: nonNil(pc.AllowedTicketTypes),
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode prompt payload: %w", err)
	}

	return string(b), nil
}

// SystemPrompt returns the fixed triage instructions.
func SystemPrompt() string {
	return systemPrompt
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}

	return s
}
