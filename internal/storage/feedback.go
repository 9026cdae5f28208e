package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/feedback-triage/internal/core/domain"
	coreerrors "github.com/lueurxax/feedback-triage/internal/core/errors"
)

const feedbackColumns = `
	id, company_id, source, source_id, text, context, author, posted_at,
	likes, rating, sentiment, sentiment_polarity, status, status_changed_at,
	created_at, updated_at`

// UpsertFeedback inserts a record or updates the one with the same
// (source, source_id). Kanban status is never touched by re-ingestion, and a
// triage-derived sentiment survives unless the text itself changed.
func (db *DB) UpsertFeedback(ctx context.Context, rec domain.FeedbackRecord) (domain.UpsertResult, error) {
	ctx, cancel := db.queryCtx(ctx)
	defer cancel()

	var (
		inserted bool
		prevText pgtype.Text
	)

	err := db.Pool.QueryRow(ctx, `
		WITH prev AS (
			SELECT text FROM feedback WHERE source = $3 AND source_id = $4
		)
		INSERT INTO feedback (
			id, company_id, source, source_id, text, context, author, posted_at,
			likes, rating, sentiment, status, status_changed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
		ON CONFLICT (source, source_id) DO UPDATE
		SET company_id = COALESCE(EXCLUDED.company_id, feedback.company_id),
			text = EXCLUDED.text,
			context = EXCLUDED.context,
			author = EXCLUDED.author,
			posted_at = EXCLUDED.posted_at,
			likes = EXCLUDED.likes,
			rating = EXCLUDED.rating,
			sentiment = CASE
				WHEN feedback.text IS DISTINCT FROM EXCLUDED.text THEN EXCLUDED.sentiment
				ELSE COALESCE(feedback.sentiment, EXCLUDED.sentiment)
			END,
			sentiment_polarity = CASE
				WHEN feedback.text IS DISTINCT FROM EXCLUDED.text THEN NULL
				ELSE feedback.sentiment_polarity
			END,
			updated_at = now()
		RETURNING (xmax = 0), (SELECT text FROM prev)
	`,
		toUUID(rec.ID),
		toUUID(rec.CompanyID),
		string(rec.Source),
		SanitizeUTF8(rec.SourceID),
		SanitizeUTF8(rec.Text),
		SanitizeUTF8(rec.Context),
		SanitizeUTF8(rec.Author),
		rec.Date,
		rec.Likes,
		toInt2Ptr(rec.Rating),
		toText(string(rec.Sentiment)),
		string(domain.DefaultKanbanStatus),
	).Scan(&inserted, &prevText)
	if err != nil {
		return domain.UpsertResult{}, fmt.Errorf("upsert feedback: %w", err)
	}

	return domain.UpsertResult{
		Created:     inserted,
		TextChanged: !inserted && fromText(prevText) != SanitizeUTF8(rec.Text),
	}, nil
}

// ListFeedback returns every record matching filter. Filtering is exact
// match and runs in SQL; ranking is the caller's job.
func (db *DB) ListFeedback(ctx context.Context, filter domain.FeedbackFilter) ([]domain.FeedbackRecord, error) {
	ctx, cancel := db.queryCtx(ctx)
	defer cancel()

	where, args := feedbackWhere(filter)

	rows, err := db.Pool.Query(ctx, `SELECT `+feedbackColumns+` FROM feedback`+where+` ORDER BY posted_at DESC, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var out []domain.FeedbackRecord

	for rows.Next() {
		rec, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}

		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list feedback rows: %w", err)
	}

	return out, nil
}

// feedbackWhere builds the WHERE clause for a listing filter.
func feedbackWhere(filter domain.FeedbackFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if filter.Source != "" {
		args = append(args, string(filter.Source))
		conds = append(conds, fmt.Sprintf("source = $%d", len(args)))
	}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

// GetFeedback returns one record or ErrFeedbackNotFound.
func (db *DB) GetFeedback(ctx context.Context, id string) (*domain.FeedbackRecord, error) {
	ctx, cancel := db.queryCtx(ctx)
	defer cancel()

	uid := toUUID(id)
	if !uid.Valid {
		return nil, coreerrors.ErrFeedbackNotFound
	}

	rec, err := scanFeedback(db.Pool.QueryRow(ctx, `SELECT `+feedbackColumns+` FROM feedback WHERE id = $1`, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coreerrors.ErrFeedbackNotFound
		}

		return nil, fmt.Errorf("get feedback: %w", err)
	}

	return &rec, nil
}

// TransitionFeedbackStatus moves a record from one Kanban status to another
// and records the audit event in the same transaction. The update only
// applies while the record is still in from; otherwise ErrStatusConflict.
func (db *DB) TransitionFeedbackStatus(ctx context.Context, id string, from, to domain.KanbanStatus, at time.Time) error {
	ctx, cancel := db.queryCtx(ctx)
	defer cancel()

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin status transition: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx) //nolint:errcheck // best-effort rollback
	}()

	tag, err := tx.Exec(ctx, `
		UPDATE feedback
		SET status = $3,
			status_changed_at = $4,
			updated_at = now()
		WHERE id = $1 AND status = $2
	`, toUUID(id), string(from), string(to), at)
	if err != nil {
		return fmt.Errorf("update feedback status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return coreerrors.ErrStatusConflict
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO feedback_status_events (feedback_id, from_status, to_status, changed_at)
		VALUES ($1, $2, $3, $4)
	`, toUUID(id), string(from), string(to), at); err != nil {
		return fmt.Errorf("insert status event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit status transition: %w", err)
	}

	return nil
}

// ListStatusEvents returns the Kanban audit trail of a record, oldest first.
func (db *DB) ListStatusEvents(ctx context.Context, id string) ([]domain.StatusEvent, error) {
	ctx, cancel := db.queryCtx(ctx)
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
		SELECT feedback_id, from_status, to_status, changed_at
		FROM feedback_status_events
		WHERE feedback_id = $1
		ORDER BY changed_at, id
	`, toUUID(id))
	if err != nil {
		return nil, fmt.Errorf("list status events: %w", err)
	}
	defer rows.Close()

	var out []domain.StatusEvent

	for rows.Next() {
		var (
			ev       domain.StatusEvent
			feedback pgtype.UUID
			from, to string
		)

		if err := rows.Scan(&feedback, &from, &to, &ev.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan status event: %w", err)
		}

		ev.FeedbackID = fromUUID(feedback)
		ev.From = domain.KanbanStatus(from)
		ev.To = domain.KanbanStatus(to)
		out = append(out, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list status events rows: %w", err)
	}

	return out, nil
}

// UpdateFeedbackSentiment stores the triage-derived sentiment of a record.
func (db *DB) UpdateFeedbackSentiment(ctx context.Context, id string, sentiment domain.Sentiment, polarity *float64) error {
	ctx, cancel := db.queryCtx(ctx)
	defer cancel()

	tag, err := db.Pool.Exec(ctx, `
		UPDATE feedback
		SET sentiment = $2,
			sentiment_polarity = COALESCE($3, sentiment_polarity),
			updated_at = now()
		WHERE id = $1
	`, toUUID(id), toText(string(sentiment)), toFloat8Ptr(polarity))
	if err != nil {
		return fmt.Errorf("update feedback sentiment: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return coreerrors.ErrFeedbackNotFound
	}

	return nil
}

// PurgeFeedback deletes a record with its queue items, analysis and audit
// trail. It backs the admin route DELETE /api/feedback/:id.
func (db *DB) PurgeFeedback(ctx context.Context, id string) error {
	ctx, cancel := db.queryCtx(ctx)
	defer cancel()

	tag, err := db.Pool.Exec(ctx, `DELETE FROM feedback WHERE id = $1`, toUUID(id))
	if err != nil {
		return fmt.Errorf("purge feedback: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return coreerrors.ErrFeedbackNotFound
	}

	return nil
}

func scanFeedback(row pgx.Row) (domain.FeedbackRecord, error) {
	var (
		rec       domain.FeedbackRecord
		id        pgtype.UUID
		companyID pgtype.UUID
		source    string
		msgCtx    pgtype.Text
		author    pgtype.Text
		rating    pgtype.Int2
		sentiment pgtype.Text
		polarity  pgtype.Float8
		status    string
	)

	if err := row.Scan(
		&id,
		&companyID,
		&source,
		&rec.SourceID,
		&rec.Text,
		&msgCtx,
		&author,
		&rec.Date,
		&rec.Likes,
		&rating,
		&sentiment,
		&polarity,
		&status,
		&rec.StatusChangedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return domain.FeedbackRecord{}, err
	}

	rec.ID = fromUUID(id)
	rec.CompanyID = fromUUID(companyID)
	rec.Source = domain.Source(source)
	rec.Context = fromText(msgCtx)
	rec.Author = fromText(author)
	rec.Rating = fromInt2Ptr(rating)
	rec.Sentiment = domain.Sentiment(fromText(sentiment))
	rec.SentimentPolarity = fromFloat8Ptr(polarity)
	rec.Status = domain.KanbanStatus(status)

	return rec, nil
}
