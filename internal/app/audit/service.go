// Package audit records every todo change event in an append-only table.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/todo-1m/todos/internal/contracts"
)

var ErrInvalidEventPayload = errors.New("invalid event payload")
var ErrUnsupportedEventType = errors.New("unsupported event type")

type Repository interface {
	InsertEvent(ctx context.Context, event contracts.TodoEvent, eventSeq uint64) error
}

type Service struct {
	Repository Repository
}

func NewService(repository Repository) *Service {
	return &Service{Repository: repository}
}

func (s *Service) Handle(ctx context.Context, payload []byte, eventSeq uint64) error {
	var event contracts.TodoEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return ErrInvalidEventPayload
	}
	if event.EventID == "" || event.TodoID <= 0 {
		return ErrInvalidEventPayload
	}
	if !contracts.KnownEventType(event.EventType) {
		return fmt.Errorf("%w: %q", ErrUnsupportedEventType, event.EventType)
	}
	return s.Repository.InsertEvent(ctx, event, eventSeq)
}
