package todos

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepository keeps todos in process memory. Ids start at 1 and are
// never reused.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]Todo
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID: 1,
		items:  map[int64]Todo{},
	}
}

func (r *MemoryRepository) Insert(_ context.Context, todo Todo) (Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	todo.ID = r.nextID
	r.nextID++
	r.items[todo.ID] = todo
	return todo, nil
}

func (r *MemoryRepository) Get(_ context.Context, id int64) (Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.items[id]
	if !ok {
		return Todo{}, ErrTodoNotFound
	}
	return t, nil
}

func (r *MemoryRepository) Update(_ context.Context, id int64, patch Patch) (Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return Todo{}, ErrTodoNotFound
	}
	t = patch.Apply(t)
	r.items[id] = t
	return t, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id int64) (Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return Todo{}, ErrTodoNotFound
	}
	delete(r.items, id)
	return t, nil
}

func (r *MemoryRepository) List(_ context.Context, spec SortSpec) ([]Todo, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	result := make([]Todo, 0, len(r.items))
	for _, t := range r.items {
		result = append(result, t)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		c := compareBy(spec.Field, result[i], result[j])
		if c == 0 {
			c = compareIDs(result[i].ID, result[j].ID)
		}
		if spec.Direction == Descending {
			return c > 0
		}
		return c < 0
	})
	return result, nil
}

func compareBy(field string, a, b Todo) int {
	switch field {
	case SortByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case SortByTitle:
		return strings.Compare(a.Title, b.Title)
	default:
		return compareIDs(a.ID, b.ID)
	}
}

func compareIDs(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
