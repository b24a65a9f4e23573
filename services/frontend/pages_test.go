package frontend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/todo-1m/todos/internal/app/todos"
	"github.com/todo-1m/todos/internal/platform/logging"
)

type fakeLister struct {
	items []todos.Todo
	err   error
}

func (f fakeLister) List(context.Context) ([]todos.Todo, error) { return f.items, f.err }

func render(t *testing.T, lister Lister) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	TodoListHandler(lister, "/todos/", logging.Discard()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	return rr
}

func TestTodoListPageRendersItemsInOrder(t *testing.T) {
	created := time.Date(2026, 2, 9, 22, 0, 0, 0, time.UTC)
	rr := render(t, fakeLister{items: []todos.Todo{
		{ID: 2, Title: "Walk dog", CreatedAt: created.Add(time.Minute)},
		{ID: 1, Title: "Buy <milk>", Completed: true, CreatedAt: created},
	}})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := rr.Body.String()
	dog := strings.Index(body, "Walk dog")
	milk := strings.Index(body, "Buy &lt;milk&gt;")
	if dog < 0 || milk < 0 || dog > milk {
		t.Fatalf("expected escaped titles in list order:\n%s", body)
	}
	if !strings.Contains(body, `<li class="done"><input type="checkbox" data-toggle="1" checked>`) {
		t.Fatalf("completed todo not marked:\n%s", body)
	}
	if !strings.Contains(body, `data-api="/todos/"`) {
		t.Fatalf("api prefix missing:\n%s", body)
	}
}

func TestTodoListPageEmpty(t *testing.T) {
	rr := render(t, fakeLister{})
	if !strings.Contains(rr.Body.String(), "Nothing to do.") {
		t.Fatalf("expected empty state:\n%s", rr.Body.String())
	}
}

func TestTodoListPageStoreError(t *testing.T) {
	rr := render(t, fakeLister{err: errors.New("db down")})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "db down") {
		t.Fatal("storage error leaked into page")
	}
}

func TestStaticHandlerServesAssets(t *testing.T) {
	for _, name := range []string{"/styles.css", "/app.js"} {
		rr := httptest.NewRecorder()
		StaticHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, name, nil))
		if rr.Code != http.StatusOK || rr.Body.Len() == 0 {
			t.Fatalf("GET %s: status %d, %d bytes", name, rr.Code, rr.Body.Len())
		}
	}
}
