package todos

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTodosTableSQL = `
CREATE TABLE IF NOT EXISTS todos (
  id bigint GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
  title text NOT NULL,
  completed boolean NOT NULL DEFAULT false,
  created_at timestamptz NOT NULL DEFAULT now()
)`

const createTodosCreatedAtIndexSQL = `
CREATE INDEX IF NOT EXISTS todos_created_at_idx
ON todos (created_at DESC, id DESC)`

const todoColumns = `id, title, completed, created_at`

const insertTodoSQL = `
INSERT INTO todos (title, completed, created_at)
VALUES ($1, $2, $3)
RETURNING ` + todoColumns

const selectTodoSQL = `
SELECT ` + todoColumns + `
FROM todos
WHERE id = $1`

// NULL parameters keep the stored value.
const updateTodoSQL = `
UPDATE todos
SET title = COALESCE($2, title),
    completed = COALESCE($3, completed)
WHERE id = $1
RETURNING ` + todoColumns

const deleteTodoSQL = `
DELETE FROM todos
WHERE id = $1
RETURNING ` + todoColumns

var sortColumns = map[string]string{
	SortByID:        "id",
	SortByTitle:     "title",
	SortByCreatedAt: "created_at",
}

type PostgresRepository struct {
	Pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{Pool: pool}
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.Pool.Exec(ctx, createTodosTableSQL); err != nil {
		return err
	}
	if _, err := r.Pool.Exec(ctx, createTodosCreatedAtIndexSQL); err != nil {
		return err
	}
	return nil
}

func (r *PostgresRepository) Insert(ctx context.Context, todo Todo) (Todo, error) {
	row := r.Pool.QueryRow(ctx, insertTodoSQL, todo.Title, todo.Completed, todo.CreatedAt)
	created, err := scanTodo(row)
	if err != nil {
		return Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	return created, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (Todo, error) {
	return r.one(ctx, "get todo", selectTodoSQL, id)
}

func (r *PostgresRepository) Update(ctx context.Context, id int64, patch Patch) (Todo, error) {
	return r.one(ctx, "update todo", updateTodoSQL, id, patch.Title, patch.Completed)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) (Todo, error) {
	return r.one(ctx, "delete todo", deleteTodoSQL, id)
}

func (r *PostgresRepository) one(ctx context.Context, op, sql string, args ...any) (Todo, error) {
	t, err := scanTodo(r.Pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Todo{}, ErrTodoNotFound
		}
		return Todo{}, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

func (r *PostgresRepository) List(ctx context.Context, spec SortSpec) ([]Todo, error) {
	orderBy, err := orderByClause(spec)
	if err != nil {
		return nil, err
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+todoColumns+` FROM todos ORDER BY `+orderBy)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	result := []Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return result, nil
}

// orderByClause builds the ORDER BY body from the allow-listed columns;
// the id tie-breaker follows the primary direction.
func orderByClause(spec SortSpec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}
	dir := "ASC"
	if spec.Direction == Descending {
		dir = "DESC"
	}
	column := sortColumns[spec.Field]
	if column == "id" {
		return "id " + dir, nil
	}
	return column + " " + dir + ", id " + dir, nil
}

func scanTodo(row pgx.Row) (Todo, error) {
	var t Todo
	err := row.Scan(&t.ID, &t.Title, &t.Completed, &t.CreatedAt)
	if err != nil {
		return Todo{}, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}
