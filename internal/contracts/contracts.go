package contracts

import "time"

const (
	EventTodoCreated = "todo.created"
	EventTodoUpdated = "todo.updated"
	EventTodoDeleted = "todo.deleted"
)

// TodoEvent is published by todo-api after every committed write and
// consumed by todo-audit. For deletes it carries the last stored state.
type TodoEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	TodoID     int64     `json:"todo_id"`
	Title      string    `json:"title"`
	Completed  bool      `json:"completed"`
	CreatedAt  time.Time `json:"created_at"`
	OccurredAt time.Time `json:"occurred_at"`
	ShardID    int       `json:"shard_id"`
}

func KnownEventType(eventType string) bool {
	switch eventType {
	case EventTodoCreated, EventTodoUpdated, EventTodoDeleted:
		return true
	default:
		return false
	}
}
