package todos

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOrderByClause(t *testing.T) {
	tests := []struct {
		spec SortSpec
		want string
	}{
		{ListOrder, "created_at DESC, id DESC"},
		{SortSpec{Field: SortByTitle, Direction: Ascending}, "title ASC, id ASC"},
		{SortSpec{Field: SortByID, Direction: Descending}, "id DESC"},
	}
	for _, tt := range tests {
		got, err := orderByClause(tt.spec)
		if err != nil {
			t.Fatalf("orderByClause(%+v) returned error: %v", tt.spec, err)
		}
		if got != tt.want {
			t.Errorf("orderByClause(%+v) = %q, want %q", tt.spec, got, tt.want)
		}
	}
}

func TestOrderByClauseRejectsUnknownInput(t *testing.T) {
	for _, spec := range []SortSpec{
		{Field: "created_at; DROP TABLE todos", Direction: Descending},
		{Field: SortByCreatedAt, Direction: "sideways"},
		{},
	} {
		if _, err := orderByClause(spec); !errors.Is(err, ErrInvalidSort) {
			t.Fatalf("expected ErrInvalidSort for %+v, got %v", spec, err)
		}
	}
}

func TestMemoryRepositoryListSortSpecs(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"b", "c", "a"} {
		if _, err := repo.Insert(ctx, Todo{Title: title, CreatedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("Insert returned error: %v", err)
		}
	}

	titles := func(items []Todo) string {
		out := ""
		for _, t := range items {
			out += t.Title
		}
		return out
	}

	tests := []struct {
		spec SortSpec
		want string
	}{
		{ListOrder, "acb"},
		{SortSpec{Field: SortByCreatedAt, Direction: Ascending}, "bca"},
		{SortSpec{Field: SortByTitle, Direction: Ascending}, "abc"},
		{SortSpec{Field: SortByID, Direction: Descending}, "acb"},
	}
	for _, tt := range tests {
		items, err := repo.List(ctx, tt.spec)
		if err != nil {
			t.Fatalf("List(%+v) returned error: %v", tt.spec, err)
		}
		if got := titles(items); got != tt.want {
			t.Errorf("List(%+v) = %q, want %q", tt.spec, got, tt.want)
		}
	}

	if _, err := repo.List(ctx, SortSpec{Field: "nope", Direction: Ascending}); !errors.Is(err, ErrInvalidSort) {
		t.Fatalf("expected ErrInvalidSort, got %v", err)
	}
}
