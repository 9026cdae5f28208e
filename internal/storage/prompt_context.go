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

// GetPromptContext assembles the message and company metadata the triage
// prompt needs. A message without an owning company cannot be triaged and
// yields ErrPromptDataNotFound, as does an unknown message.
func (db *DB) GetPromptContext(ctx context.Context, msgID string) (*domain.PromptContext, error) {
	ctx, cancel := db.queryCtx(ctx)
	defer cancel()

	var (
		pc        domain.PromptContext
		companyID pgtype.UUID
		msgCtx    pgtype.Text
		source    string
	)

	err := db.Pool.QueryRow(ctx, `
		SELECT f.text, f.context, f.posted_at, f.source, c.id, c.brand_title
		FROM feedback f
		JOIN companies c ON c.id = f.company_id
		WHERE f.id = $1
	`, toUUID(msgID)).Scan(&pc.MessageText, &msgCtx, &pc.MessageCreatedAt, &source, &companyID, &pc.BrandTitle)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("message %s: %w", msgID, coreerrors.ErrPromptDataNotFound)
		}

		return nil, fmt.Errorf("get prompt message: %w", err)
	}

	pc.MsgID = msgID
	pc.MessageContext = fromText(msgCtx)
	pc.Source = domain.Source(source)

	if pc.CompanyTags, err = db.listCompanyTags(ctx, companyID); err != nil {
		return nil, err
	}

	if pc.FAQSources, err = db.listDataSources(ctx, companyID); err != nil {
		return nil, err
	}

	if pc.AllowedTicketTypes, err = db.listTicketTypes(ctx, companyID); err != nil {
		return nil, err
	}

	if len(pc.AllowedTicketTypes) == 0 {
		return nil, fmt.Errorf("company has no active ticket types: %w", coreerrors.ErrPromptDataNotFound)
	}

	return &pc, nil
}

func (db *DB) listCompanyTags(ctx context.Context, companyID pgtype.UUID) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `SELECT name FROM company_tags WHERE company_id = $1 ORDER BY name`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list company tags: %w", err)
	}

	tags, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect company tags: %w", err)
	}

	return tags, nil
}

func (db *DB) listDataSources(ctx context.Context, companyID pgtype.UUID) ([]domain.DataSource, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, title, content
		FROM company_data_sources
		WHERE company_id = $1
		ORDER BY title, id
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list data sources: %w", err)
	}

	sources, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DataSource, error) {
		var (
			ds domain.DataSource
			id pgtype.UUID
		)

		if err := row.Scan(&id, &ds.Title, &ds.Content); err != nil {
			return domain.DataSource{}, err
		}

		ds.ID = fromUUID(id)

		return ds, nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect data sources: %w", err)
	}

	return sources, nil
}

func (db *DB) listTicketTypes(ctx context.Context, companyID pgtype.UUID) ([]domain.TicketType, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, title
		FROM ticket_types
		WHERE company_id = $1 AND is_active
		ORDER BY title, id
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list ticket types: %w", err)
	}

	types, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TicketType, error) {
		var (
			tt domain.TicketType
			id pgtype.UUID
		)

		if err := row.Scan(&id, &tt.Title); err != nil {
			return domain.TicketType{}, err
		}

		tt.ID = fromUUID(id)

		return tt, nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect ticket types: %w", err)
	}

	return types, nil
}
