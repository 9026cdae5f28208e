package triage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lueurxax/feedback-triage/internal/core/domain"
	coreerrors "github.com/lueurxax/feedback-triage/internal/core/errors"
	"github.com/lueurxax/feedback-triage/internal/core/llm"
)

// Analysis is a validated model response.
type Analysis struct {
	domain.AnalysisResult

	// Polarity is the optional finer sentiment in [-1, 1].
	Polarity *float64
}

// looseID accepts an identifier written as a JSON string or number.
type looseID string

func (id *looseID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = looseID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}

	*id = looseID(n.String())

	return nil
}

type rawAnalysis struct {
	TicketTypeID              looseID  `json:"ticket_type_id"`
	ThemeText                 string   `json:"theme_text"`
	ToneOfVoiceValue          string   `json:"tone_of_voice_value"`
	Tags                      []string `json:"tags_array"`
	AnswerText                string   `json:"answer_text"`
	CompanyAnswerDataSourceID looseID  `json:"company_answer_data_source_id"`
	Sentiment                 string   `json:"sentiment"`
	SentimentPolarity         *float64 `json:"sentiment_polarity"`
}

// ParseAnalysis extracts and validates the analysis in a raw model response.
// Every failure wraps ErrMalformedLLMOutput.
func ParseAnalysis(raw string, pc *domain.PromptContext) (*Analysis, error) {
	body := llm.ExtractJSON(raw)

	var ra rawAnalysis
	if err := json.Unmarshal([]byte(body), &ra); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", coreerrors.ErrMalformedLLMOutput, err)
	}

	ticketType := string(ra.TicketTypeID)
	if ticketType == "" {
		return nil, fmt.Errorf("%w: ticket_type_id is missing", coreerrors.ErrMalformedLLMOutput)
	}

	if !pc.HasTicketType(ticketType) {
		return nil, fmt.Errorf("%w: ticket_type_id %s is not allowed", coreerrors.ErrMalformedLLMOutput, strconv.Quote(ticketType))
	}

	dataSource := string(ra.CompanyAnswerDataSourceID)
	if dataSource != "" && !pc.HasDataSource(dataSource) {
		return nil, fmt.Errorf("%w: unknown data source %s", coreerrors.ErrMalformedLLMOutput, strconv.Quote(dataSource))
	}

	sentiment := domain.SentimentUnknown
	if strings.TrimSpace(ra.Sentiment) != "" {
		s, ok := domain.ParseSentiment(ra.Sentiment)
		if !ok {
			return nil, fmt.Errorf("%w: invalid sentiment %s", coreerrors.ErrMalformedLLMOutput, strconv.Quote(ra.Sentiment))
		}

		sentiment = s
	}

	if p := ra.SentimentPolarity; p != nil && (*p < -1 || *p > 1) {
		return nil, fmt.Errorf("%w: sentiment_polarity %v out of range", coreerrors.ErrMalformedLLMOutput, *p)
	}

	return &Analysis{
		AnalysisResult: domain.AnalysisResult{
			MsgID:                     pc.MsgID,
			TicketTypeID:              ticketType,
			ThemeText:                 strings.TrimSpace(ra.ThemeText),
			ToneOfVoiceValue:          strings.TrimSpace(ra.ToneOfVoiceValue),
			Tags:                      normalizeTags(ra.Tags),
			AnswerText:                strings.TrimSpace(ra.AnswerText),
			CompanyAnswerDataSourceID: dataSource,
			Sentiment:                 sentiment,
		},
		Polarity: ra.SentimentPolarity,
	}, nil
}

// normalizeTags trims, drops empties, deduplicates and sorts.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))

	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}

		if _, ok := seen[t]; ok {
			continue
		}

		seen[t] = struct{}{}
		out = append(out, t)
	}

	sort.Strings(out)

	return out
}
