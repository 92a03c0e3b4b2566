package repository

import (
	"context"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/google/uuid"
)

type PGOutboxRepository struct {
	db Querier
}

func NewOutboxRepository(db Querier) OutboxRepository {
	return &PGOutboxRepository{db: db}
}

func (r *PGOutboxRepository) Add(ctx context.Context, e *domain.OutboxEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, `INSERT INTO outbox_events (id, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.AggregateID, e.EventType, e.Payload, e.CreatedAt)
	return mapError("add outbox event", err)
}

// ListUnpublished returns the oldest pending events. Rows are locked so two
// relays never publish the same batch.
func (r *PGOutboxRepository) ListUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	rows, err := r.db.Query(ctx, `SELECT id, aggregate_id, event_type, payload, created_at, published_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, mapError("list outbox events", err)
	}
	defer rows.Close()

	var out []domain.OutboxEvent
	for rows.Next() {
		var e domain.OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt, &e.PublishedAt); err != nil {
			return nil, mapError("scan outbox event", err)
		}
		out = append(out, e)
	}
	return out, mapError("list outbox events", rows.Err())
}

func (r *PGOutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE outbox_events SET published_at = now() WHERE id = $1`, id)
	return mapError("mark outbox event published", err)
}

var _ OutboxRepository = (*PGOutboxRepository)(nil)
