package todos

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var ErrTodoNotFound = errors.New("todo not found")

// Todo is the wire representation of a todo item. Stores scan into it
// directly; it carries no storage bindings.
type Todo struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

type Field string

const (
	FieldTitle     Field = "title"
	FieldCompleted Field = "completed"

	// NonFieldErrors addresses errors about the body as a whole.
	NonFieldErrors = "non_field_errors"
)

// FieldSet lists the fields a write requires to be present.
type FieldSet []Field

var (
	CreateFields        = FieldSet{FieldTitle}
	FullUpdateFields    = FieldSet{FieldTitle, FieldCompleted}
	PartialUpdateFields = FieldSet{}
)

// Patch holds the mutable fields supplied by a request. A nil pointer
// means the field was absent from the body.
type Patch struct {
	Title     *string
	Completed *bool

	// invalid holds per-field decode errors found while reading the body.
	invalid map[string]string
}

func (p Patch) Has(f Field) bool {
	switch f {
	case FieldTitle:
		return p.Title != nil
	case FieldCompleted:
		return p.Completed != nil
	default:
		return false
	}
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Completed == nil
}

// Apply returns t with the present fields of p applied.
func (p Patch) Apply(t Todo) Todo {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

// ValidationError maps field names to a human readable problem.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

const (
	SortByID        = "id"
	SortByTitle     = "title"
	SortByCreatedAt = "created_at"
)

// SortSpec names the ordering a list query must use. Stores break ties on
// id in the same direction so results are deterministic.
type SortSpec struct {
	Field     string
	Direction SortDirection
}

// ListOrder is the ordering of the list operation: newest first.
var ListOrder = SortSpec{Field: SortByCreatedAt, Direction: Descending}

var ErrInvalidSort = errors.New("invalid sort specification")

func (s SortSpec) Validate() error {
	switch s.Field {
	case SortByID, SortByTitle, SortByCreatedAt:
	default:
		return fmt.Errorf("%w: field %q", ErrInvalidSort, s.Field)
	}
	switch s.Direction {
	case Ascending, Descending:
	default:
		return fmt.Errorf("%w: direction %q", ErrInvalidSort, s.Direction)
	}
	return nil
}
