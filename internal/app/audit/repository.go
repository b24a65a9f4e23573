package audit

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/todo-1m/todos/internal/contracts"
)

const createEventsTableSQL = `
CREATE TABLE IF NOT EXISTS todo_events (
  event_id text PRIMARY KEY,
  event_type text NOT NULL,
  todo_id bigint NOT NULL,
  title text NOT NULL,
  completed boolean NOT NULL,
  todo_created_at timestamptz NOT NULL,
  shard_id integer NOT NULL,
  stream_seq bigint NOT NULL DEFAULT 0,
  occurred_at timestamptz NOT NULL,
  inserted_at timestamptz NOT NULL DEFAULT now()
)`

const createEventsTodoIndexSQL = `
CREATE INDEX IF NOT EXISTS todo_events_todo_id_idx
ON todo_events (todo_id, occurred_at)`

// Redelivered events are ignored.
const insertEventSQL = `
INSERT INTO todo_events (
  event_id, event_type, todo_id, title, completed,
  todo_created_at, shard_id, stream_seq, occurred_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (event_id) DO NOTHING
`

type EventRepository struct {
	Pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{Pool: pool}
}

func (r *EventRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.Pool.Exec(ctx, createEventsTableSQL); err != nil {
		return err
	}
	if _, err := r.Pool.Exec(ctx, createEventsTodoIndexSQL); err != nil {
		return err
	}
	return nil
}

func (r *EventRepository) InsertEvent(ctx context.Context, event contracts.TodoEvent, eventSeq uint64) error {
	_, err := r.Pool.Exec(ctx, insertEventSQL,
		event.EventID,
		event.EventType,
		event.TodoID,
		event.Title,
		event.Completed,
		event.CreatedAt,
		event.ShardID,
		int64(eventSeq),
		event.OccurredAt,
	)
	return err
}
