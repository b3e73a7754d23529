package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OutboxEvent struct {
	ID          int64
	EventID     uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type OutboxRepository struct {
	q querier
}

func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{q: db}
}

// Append stores payload as JSON under a fresh event id.
func (r *OutboxRepository) Append(ctx context.Context, eventType, aggregateID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	query := `INSERT INTO outbox_events (event_id, aggregate_id, event_type, payload)
	          VALUES ($1, $2, $3, $4)`

	_, err = r.q.ExecContext(ctx, query, uuid.New(), aggregateID, eventType, body)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (r *OutboxRepository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, event_id, aggregate_id, event_type, payload, created_at
	          FROM outbox_events
	          WHERE processed_at IS NULL
	          ORDER BY id
	          LIMIT $1`

	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.EventID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *OutboxRepository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	_, err := r.q.ExecContext(ctx, `UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox event %d: %w", id, err)
	}
	return nil
}

// DeleteProcessedBefore removes published events older than t.
func (r *OutboxRepository) DeleteProcessedBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM outbox_events WHERE processed_at IS NOT NULL AND processed_at < $1`, t)
	if err != nil {
		return 0, fmt.Errorf("delete processed outbox events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
