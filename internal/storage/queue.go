package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/feedback-triage/internal/core/domain"
	coreerrors "github.com/lueurxax/feedback-triage/internal/core/errors"
)

const queueColumns = `id, msg_id, status, attempts, created_at, claimed_at, processed_at, error_message, error_kind`

// EnqueueAnalysis adds a pending analysis item for msgID. It reports false
// when the message already has a pending or processing item.
func (db *DB) EnqueueAnalysis(ctx context.Context, msgID string) (bool, error) {
	ctx, cancel := db.queryCtx(ctx)
	defer cancel()

	tag, err := db.Pool.Exec(ctx, `
		INSERT INTO analysis_queue (msg_id, status)
		VALUES ($1, $2)
		ON CONFLICT (msg_id) WHERE status IN ('pending', 'processing') DO NOTHING
	`, toUUID(msgID), string(domain.QueueStatusPending))
	if err != nil {
		return false, fmt.Errorf("enqueue analysis: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// ListPendingQueueItems returns up to limit pending items, oldest first.
func (db *DB) ListPendingQueueItems(ctx context.Context, limit int) ([]domain.QueueItem, error) {
	ctx, cancel := db.queryCtx(ctx)
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
		SELECT `+queueColumns+`
		FROM analysis_queue
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT $2
	`, string(domain.QueueStatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("list pending queue items: %w", err)
	}
	defer rows.Close()

	var items []domain.QueueItem

	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending queue rows: %w", err)
	}

	return items, nil
}

// ClaimQueueItem moves a pending item to processing. It reports false when
// another worker claimed it first or the item is no longer pending.
func (db *DB) ClaimQueueItem(ctx context.Context, id string) (bool, error) {
	ctx, cancel := db.queryCtx(ctx)
	defer cancel()

	tag, err := db.Pool.Exec(ctx, `
		UPDATE analysis_queue
		SET status = $2,
			attempts = attempts + 1,
			claimed_at = now(),
			processed_at = NULL
		WHERE id = $1 AND status = $3
	`, toUUID(id), string(domain.QueueStatusProcessing), string(domain.QueueStatusPending))
	if err != nil {
		return false, fmt.Errorf("claim queue item: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// CompleteQueueItem marks a processing item completed.
func (db *DB) CompleteQueueItem(ctx context.Context, id string) error {
	ctx, cancel := db.queryCtx(ctx)
	defer cancel()

	tag, err := db.Pool.Exec(ctx, `
		UPDATE analysis_queue
		SET status = $2,
			processed_at = now(),
			error_message = NULL,
			error_kind = NULL
		WHERE id = $1 AND status = $3
	`, toUUID(id), string(domain.QueueStatusCompleted), string(domain.QueueStatusProcessing))
	if err != nil {
		return fmt.Errorf("complete queue item: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete queue item %s: %w", id, coreerrors.ErrStatusConflict)
	}

	return nil
}

// FailQueueItem marks a processing item failed with its error kind and message.
func (db *DB) FailQueueItem(ctx context.Context, id string, kind domain.ErrorKind, message string) error {
	ctx, cancel := db.queryCtx(ctx)
	defer cancel()

	tag, err := db.Pool.Exec(ctx, `
		UPDATE analysis_queue
		SET status = $2,
			processed_at = now(),
			error_kind = $4,
			error_message = $5
		WHERE id = $1 AND status = $3
	`, toUUID(id), string(domain.QueueStatusFailed), string(domain.QueueStatusProcessing),
		toText(string(kind)), toText(message))
	if err != nil {
		return fmt.Errorf("fail queue item: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("fail queue item %s: %w", id, coreerrors.ErrStatusConflict)
	}

	return nil
}

// RecoverStuckQueueItems returns processing items claimed before staleBefore
// to pending so the next run picks them up again.
func (db *DB) RecoverStuckQueueItems(ctx context.Context, staleBefore time.Time) (int64, error) {
	ctx, cancel := db.queryCtx(ctx)
	defer cancel()

	tag, err := db.Pool.Exec(ctx, `
		UPDATE analysis_queue
		SET status = $1,
			claimed_at = NULL
		WHERE status = $2
		  AND processed_at IS NULL
		  AND claimed_at < $3
	`, string(domain.QueueStatusPending), string(domain.QueueStatusProcessing), staleBefore)
	if err != nil {
		return 0, fmt.Errorf("recover stuck queue items: %w", err)
	}

	return tag.RowsAffected(), nil
}

// RequeueFailedQueueItem moves a failed item back to pending.
func (db *DB) RequeueFailedQueueItem(ctx context.Context, id string) error {
	ctx, cancel := db.queryCtx(ctx)
	defer cancel()

	uid := toUUID(id)
	if !uid.Valid {
		return coreerrors.ErrQueueItemNotFound
	}

	tag, err := db.Pool.Exec(ctx, `
		UPDATE analysis_queue
		SET status = $2,
			claimed_at = NULL,
			processed_at = NULL,
			error_kind = NULL,
			error_message = NULL
		WHERE id = $1 AND status = $3
	`, uid, string(domain.QueueStatusPending), string(domain.QueueStatusFailed))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("message already queued: %w", coreerrors.ErrNotRequeueable)
		}

		return fmt.Errorf("requeue queue item: %w", err)
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM analysis_queue WHERE id = $1)`, uid).Scan(&exists); err != nil {
		return fmt.Errorf("check queue item: %w", err)
	}

	if !exists {
		return coreerrors.ErrQueueItemNotFound
	}

	return coreerrors.ErrNotRequeueable
}

// GetQueueStats counts queue items by status.
func (db *DB) GetQueueStats(ctx context.Context) (domain.QueueStats, error) {
	ctx, cancel := db.queryCtx(ctx)
	defer cancel()

	rows, err := db.Pool.Query(ctx, `SELECT status, COUNT(*) FROM analysis_queue GROUP BY status`)
	if err != nil {
		return domain.QueueStats{}, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	var stats domain.QueueStats

	for rows.Next() {
		var (
			status string
			count  int
		)

		if err := rows.Scan(&status, &count); err != nil {
			return domain.QueueStats{}, fmt.Errorf("scan queue stats: %w", err)
		}

		stats.Add(domain.QueueStatus(status), count)
	}

	if err := rows.Err(); err != nil {
		return domain.QueueStats{}, fmt.Errorf("queue stats rows: %w", err)
	}

	return stats, nil
}

// GetLatestQueueItem returns the newest queue item of a message, or nil
// when the message was never queued.
func (db *DB) GetLatestQueueItem(ctx context.Context, msgID string) (*domain.QueueItem, error) {
	ctx, cancel := db.queryCtx(ctx)
	defer cancel()

	item, err := scanQueueItem(db.Pool.QueryRow(ctx, `
		SELECT `+queueColumns+`
		FROM analysis_queue
		WHERE msg_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, toUUID(msgID)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil //nolint:nilnil // nil,nil indicates the message was never queued
		}

		return nil, fmt.Errorf("get latest queue item: %w", err)
	}

	return &item, nil
}

func scanQueueItem(row pgx.Row) (domain.QueueItem, error) {
	var (
		item        domain.QueueItem
		id          pgtype.UUID
		msgID       pgtype.UUID
		status      string
		claimedAt   pgtype.Timestamptz
		processedAt pgtype.Timestamptz
		errMsg      pgtype.Text
		errKind     pgtype.Text
	)

	if err := row.Scan(&id, &msgID, &status, &item.Attempts, &item.CreatedAt, &claimedAt, &processedAt, &errMsg, &errKind); err != nil {
		return domain.QueueItem{}, err
	}

	item.ID = fromUUID(id)
	item.MsgID = fromUUID(msgID)
	item.Status = domain.QueueStatus(status)
	item.ClaimedAt = fromTimestamptzPtr(claimedAt)
	item.ProcessedAt = fromTimestamptzPtr(processedAt)
	item.ErrorMessage = fromText(errMsg)
	item.ErrorKind = domain.ErrorKind(fromText(errKind))

	return item, nil
}
