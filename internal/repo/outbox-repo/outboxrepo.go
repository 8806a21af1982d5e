package outboxrepo

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/toniautla/settlement/internal/domain"
	"github.com/toniautla/settlement/internal/pg"
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

// Enqueue records a change notification. Called inside the transaction that
// makes the change so the event exists iff the change committed.
func (r *Repository) Enqueue(ctx context.Context, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("can't marshal outbox payload", zap.Error(err))
		return err
	}
	query := `
        INSERT INTO outbox_events (type, payload)
        VALUES ($1, $2)
    `
	if _, err := r.db.Exec(ctx, query, eventType, body); err != nil {
		zap.L().Error("can't enqueue outbox event", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) FindUnsent(ctx context.Context, limit uint32) ([]domain.OutboxEvent, error) {
	query := `
        SELECT id, type, payload, created_at, sent_at
        FROM outbox_events
        WHERE sent_at IS NULL
        ORDER BY created_at ASC
        LIMIT $1
    `
	rows, err := r.db.Query(ctx, query, int(limit))
	if err != nil {
		zap.L().Error("can't get unsent outbox events", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var ev domain.OutboxEvent
		err := rows.Scan(&ev.ID, &ev.Type, &ev.Payload, &ev.CreatedAt, &ev.SentAt)
		if err != nil {
			zap.L().Error("can't scan outbox event row", zap.Error(err))
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func (r *Repository) MarkSent(ctx context.Context, id int) error {
	query := `
        UPDATE outbox_events
        SET sent_at = now()
        WHERE id = $1
    `
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		zap.L().Error("can't mark outbox event sent", zap.Error(err))
		return err
	}
	return nil
}
