package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mmslot/seamless-wallet/internal/domain"
)

type eventRepo struct{}

// NewEventRepository returns a pgx-backed EventRepository.
func NewEventRepository() EventRepository {
	return &eventRepo{}
}

func (r *eventRepo) Insert(ctx context.Context, db DBTX, event *domain.Event) error {
	raw := event.RawPayload
	if raw == nil {
		raw = json.RawMessage(`{}`)
	}
	row := db.QueryRow(ctx, `
		INSERT INTO seamless_events
		  (user_id, message_id, product_id, request_time, raw_payload, transfer_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		event.UserID, event.MessageID, event.ProductID, event.RequestTime,
		raw, string(event.TransferStatus))
	if err := row.Scan(&event.ID, &event.CreatedAt); err != nil {
		if uniqueViolation(err, "") {
			return domain.ErrDuplicateEvent(event.MessageID)
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (r *eventRepo) SetTransferStatus(ctx context.Context, db DBTX, id int64, status domain.TransferStatus) error {
	tag, err := db.Exec(ctx, `
		UPDATE seamless_events SET transfer_status = $1 WHERE id = $2`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("set transfer status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("event %d not found", id)
	}
	return nil
}

func (r *eventRepo) FindByMessageID(ctx context.Context, db DBTX, messageID string) (*domain.Event, error) {
	row := db.QueryRow(ctx, `
		SELECT id, user_id, message_id, product_id, request_time, raw_payload,
		       transfer_status, created_at
		FROM seamless_events WHERE message_id = $1`, messageID)
	return scanEvent(row)
}

func (r *eventRepo) ListPendingTransfers(ctx context.Context, db DBTX, limit int) ([]domain.Event, error) {
	rows, err := db.Query(ctx, `
		SELECT id, user_id, message_id, product_id, request_time, raw_payload,
		       transfer_status, created_at
		FROM seamless_events
		WHERE transfer_status = $1
		ORDER BY id ASC
		LIMIT $2`, string(domain.TransferPending), limit)
	if err != nil {
		return nil, fmt.Errorf("query pending events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		var status string
		if err := rows.Scan(&e.ID, &e.UserID, &e.MessageID, &e.ProductID,
			&e.RequestTime, &e.RawPayload, &status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e.TransferStatus = domain.TransferStatus(status)
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var e domain.Event
	var status string
	err := row.Scan(&e.ID, &e.UserID, &e.MessageID, &e.ProductID,
		&e.RequestTime, &e.RawPayload, &status, &e.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	e.TransferStatus = domain.TransferStatus(status)
	return &e, nil
}
