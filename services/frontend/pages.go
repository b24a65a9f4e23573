package frontend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/charmbracelet/log"
	"github.com/todo-1m/todos/internal/app/todos"
)

// Lister returns todos in display order.
type Lister interface {
	List(ctx context.Context) ([]todos.Todo, error)
}

// TodoListHandler renders the todo page from the current list.
func TodoListHandler(lister Lister, apiPrefix string, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		items, err := lister.List(r.Context())
		if err != nil {
			logger.Error("render todo page", "err", err)
			templ.Handler(Page(apiPrefix, ErrorPanel("Could not load todos.")), templ.WithStatus(http.StatusInternalServerError)).ServeHTTP(w, r)
			return
		}
		templ.Handler(Page(apiPrefix, TodoList(items))).ServeHTTP(w, r)
	})
}

// Page is the document shell around body.
func Page(apiPrefix string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Todo List</title>
<link rel="stylesheet" href="/static/styles.css">
</head>
<body data-api="%s">
<main>
<h1>Todo List</h1>
<form class="create" method="post">
<input type="text" name="title" placeholder="New todo" required>
<button type="submit" class="primary">Add Todo</button>
</form>
<p id="error" class="error" role="alert"></p>
`, templ.EscapeString(apiPrefix)); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</main>\n<script src=\"/static/app.js\"></script>\n</body>\n</html>\n")
		return err
	})
}

// TodoList renders items in the order given.
func TodoList(items []todos.Todo) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(items) == 0 {
			_, err := io.WriteString(w, "<p class=\"empty\">Nothing to do.</p>\n")
			return err
		}
		if _, err := io.WriteString(w, "<ul class=\"todos\">\n"); err != nil {
			return err
		}
		for _, item := range items {
			if err := todoItem(item).Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</ul>\n")
		return err
	})
}

func todoItem(item todos.Todo) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		id := strconv.FormatInt(item.ID, 10)
		class, checked := "", ""
		if item.Completed {
			class, checked = ` class="done"`, " checked"
		}
		_, err := fmt.Fprintf(w,
			`<li%s><input type="checkbox" data-toggle="%s"%s><span class="title">%s</span><time datetime="%s">%s</time><button type="button" class="danger" data-delete="%s">Delete</button></li>`+"\n",
			class,
			id,
			checked,
			templ.EscapeString(item.Title),
			item.CreatedAt.UTC().Format(time.RFC3339),
			item.CreatedAt.UTC().Format("2006-01-02 15:04"),
			id,
		)
		return err
	})
}

func ErrorPanel(msg string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<p class=\"error\">%s</p>\n", templ.EscapeString(msg))
		return err
	})
}
