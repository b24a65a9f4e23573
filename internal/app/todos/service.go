package todos

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nuid"
	"github.com/todo-1m/todos/internal/contracts"
	"github.com/todo-1m/todos/internal/platform/metrics"
	"github.com/todo-1m/todos/internal/sharding"
)

const DefaultTitleMaxLength = 200

// Store is the persistence collaborator. Every method is a single atomic
// operation; Update and Delete return ErrTodoNotFound for unknown ids.
type Store interface {
	Insert(ctx context.Context, todo Todo) (Todo, error)
	Get(ctx context.Context, id int64) (Todo, error)
	Update(ctx context.Context, id int64, patch Patch) (Todo, error)
	Delete(ctx context.Context, id int64) (Todo, error)
	List(ctx context.Context, sort SortSpec) ([]Todo, error)
}

type PublishFunc func(subject string, payload []byte) error

// TitleRules configures title validation. Titles are trimmed before checks.
type TitleRules struct {
	MaxLength int
}

type Service struct {
	Store   Store
	Rules   TitleRules
	Publish PublishFunc
	Now     func() time.Time
	NewID   func() string
	Logger  *log.Logger

	// Published counts event publishes by result. Optional.
	Published *metrics.CounterVec
}

func NewService(store Store, rules TitleRules, publish PublishFunc, logger *log.Logger) *Service {
	if rules.MaxLength <= 0 {
		rules.MaxLength = DefaultTitleMaxLength
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		Store:   store,
		Rules:   rules,
		Publish: publish,
		Now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		NewID:   nuid.Next,
		Logger:  logger,
	}
}

func (s *Service) List(ctx context.Context) ([]Todo, error) {
	items, err := s.Store.List(ctx, ListOrder)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Todo{}
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Todo, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, patch Patch) (Todo, error) {
	patch, err := s.validate(patch, CreateFields)
	if err != nil {
		return Todo{}, err
	}
	todo := patch.Apply(Todo{CreatedAt: s.Now()})
	created, err := s.Store.Insert(ctx, todo)
	if err != nil {
		return Todo{}, err
	}
	s.emit(contracts.EventTodoCreated, created)
	return created, nil
}

// UpdateFull replaces every mutable field; all of them must be supplied.
func (s *Service) UpdateFull(ctx context.Context, id int64, patch Patch) (Todo, error) {
	return s.update(ctx, id, patch, FullUpdateFields)
}

// UpdatePartial applies only the supplied fields and validates only those.
func (s *Service) UpdatePartial(ctx context.Context, id int64, patch Patch) (Todo, error) {
	return s.update(ctx, id, patch, PartialUpdateFields)
}

func (s *Service) update(ctx context.Context, id int64, patch Patch, required FieldSet) (Todo, error) {
	patch, err := s.validate(patch, required)
	if err != nil {
		return Todo{}, err
	}
	updated, err := s.Store.Update(ctx, id, patch)
	if err != nil {
		return Todo{}, err
	}
	if !patch.Empty() {
		s.emit(contracts.EventTodoUpdated, updated)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	deleted, err := s.Store.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.emit(contracts.EventTodoDeleted, deleted)
	return nil
}

// validate checks the supplied fields and that every field in required is
// present. It returns the patch with the title trimmed.
func (s *Service) validate(patch Patch, required FieldSet) (Patch, error) {
	fields := map[string]string{}
	for k, v := range patch.invalid {
		fields[k] = v
	}
	for _, f := range required {
		if _, bad := fields[string(f)]; bad {
			continue
		}
		if !patch.Has(f) {
			fields[string(f)] = fmt.Sprintf("%s is required", f)
		}
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		switch {
		case title == "":
			fields[string(FieldTitle)] = "title may not be blank"
		case utf8.RuneCountInString(title) > s.Rules.MaxLength:
			fields[string(FieldTitle)] = fmt.Sprintf("title must be at most %d characters", s.Rules.MaxLength)
		default:
			patch.Title = &title
		}
	}

	if len(fields) > 0 {
		return Patch{}, &ValidationError{Fields: fields}
	}
	patch.invalid = nil
	return patch, nil
}

// emit publishes a change event after a committed write. Failures are
// logged and counted; the write has already happened.
func (s *Service) emit(eventType string, todo Todo) {
	if s.Publish == nil {
		return
	}
	todoID := strconv.FormatInt(todo.ID, 10)
	event := contracts.TodoEvent{
		EventID:    s.NewID(),
		EventType:  eventType,
		TodoID:     todo.ID,
		Title:      todo.Title,
		Completed:  todo.Completed,
		CreatedAt:  todo.CreatedAt,
		OccurredAt: s.Now(),
		ShardID:    sharding.GetShardID(todoID),
	}
	payload, err := json.Marshal(event)
	if err == nil {
		err = s.Publish(sharding.EventSubject("todo", todoID), payload)
	}
	if err != nil {
		s.Logger.Warn("todo event publish failed", "event_type", eventType, "todo_id", todo.ID, "err", err)
		s.countPublish("error")
		return
	}
	s.countPublish("ok")
}

func (s *Service) countPublish(result string) {
	if s.Published != nil {
		s.Published.WithLabelValues(result).Inc()
	}
}
