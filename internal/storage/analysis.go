package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/feedback-triage/internal/core/domain"
	coreerrors "github.com/lueurxax/feedback-triage/internal/core/errors"
)

// UpsertAnalysis stores the analysis of a message. A message has at most one
// analysis; re-processing replaces it.
func (db *DB) UpsertAnalysis(ctx context.Context, a domain.AnalysisResult) error {
	ctx, cancel := db.queryCtx(ctx)
	defer cancel()

	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO message_analyses (
			msg_id, ticket_type_id, theme_text, tone_of_voice_value, tags_array,
			answer_text, company_answer_data_source_id, sentiment, provider, model
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (msg_id) DO UPDATE
		SET ticket_type_id = EXCLUDED.ticket_type_id,
			theme_text = EXCLUDED.theme_text,
			tone_of_voice_value = EXCLUDED.tone_of_voice_value,
			tags_array = EXCLUDED.tags_array,
			answer_text = EXCLUDED.answer_text,
			company_answer_data_source_id = EXCLUDED.company_answer_data_source_id,
			sentiment = EXCLUDED.sentiment,
			provider = EXCLUDED.provider,
			model = EXCLUDED.model,
			updated_at = now()
	`,
		toUUID(a.MsgID),
		toUUID(a.TicketTypeID),
		SanitizeUTF8(a.ThemeText),
		SanitizeUTF8(a.ToneOfVoiceValue),
		tags,
		SanitizeUTF8(a.AnswerText),
		toUUID(a.CompanyAnswerDataSourceID),
		toText(string(a.Sentiment)),
		toText(a.Provider),
		toText(a.Model),
	)
	if err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}

	return nil
}

// GetAnalysis returns the analysis of a message or ErrAnalysisNotFound.
func (db *DB) GetAnalysis(ctx context.Context, msgID string) (*domain.AnalysisResult, error) {
	ctx, cancel := db.queryCtx(ctx)
	defer cancel()

	var (
		a          domain.AnalysisResult
		id         pgtype.UUID
		msg        pgtype.UUID
		ticketType pgtype.UUID
		dataSource pgtype.UUID
		sentiment  pgtype.Text
		provider   pgtype.Text
		model      pgtype.Text
	)

	err := db.Pool.QueryRow(ctx, `
		SELECT id, msg_id, ticket_type_id, theme_text, tone_of_voice_value, tags_array,
			answer_text, company_answer_data_source_id, sentiment, provider, model,
			created_at, updated_at
		FROM message_analyses
		WHERE msg_id = $1
	`, toUUID(msgID)).Scan(
		&id,
		&msg,
		&ticketType,
		&a.ThemeText,
		&a.ToneOfVoiceValue,
		&a.Tags,
		&a.AnswerText,
		&dataSource,
		&sentiment,
		&provider,
		&model,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coreerrors.ErrAnalysisNotFound
		}

		return nil, fmt.Errorf("get analysis: %w", err)
	}

	a.ID = fromUUID(id)
	a.MsgID = fromUUID(msg)
	a.TicketTypeID = fromUUID(ticketType)
	a.CompanyAnswerDataSourceID = fromUUID(dataSource)
	a.Sentiment = domain.Sentiment(fromText(sentiment))
	a.Provider = fromText(provider)
	a.Model = fromText(model)

	return &a, nil
}
