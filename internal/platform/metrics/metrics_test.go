package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, r *Registry) string {
	t.Helper()
	rr := httptest.NewRecorder()
	r.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rr.Body.String()
}

func TestCounterVecWritesLabels(t *testing.T) {
	reg := NewRegistry()
	c := NewCounterVec(Opts{Name: "events_total", Help: "Events."}, []string{"result"})
	reg.MustRegister(c)

	c.WithLabelValues("ok").Inc()
	c.WithLabelValues("ok").Add(2)
	c.WithLabelValues(`bad"quote`).Inc()
	c.WithLabelValues("ok").Add(-1)

	out := scrape(t, reg)
	if !strings.Contains(out, `events_total{result="ok"} 3`) {
		t.Fatalf("missing ok counter:\n%s", out)
	}
	if !strings.Contains(out, `events_total{result="bad\"quote"} 1`) {
		t.Fatalf("label value not escaped:\n%s", out)
	}
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(NewGauge(Opts{Name: "g"}))
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	reg.MustRegister(NewGauge(Opts{Name: "g"}))
}

func TestHTTPMiddlewareRecordsRoutePattern(t *testing.T) {
	reg := NewRegistry()
	m := NewHTTP(reg, "todo_api")

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/todos/{id}/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/todos/42/", nil))

	out := scrape(t, reg)
	want := `todo_api_requests_total{method="GET",route="/todos/{id}/",status="404"} 1`
	if !strings.Contains(out, want) {
		t.Fatalf("expected %q in:\n%s", want, out)
	}
	if !strings.Contains(out, "todo_api_requests_in_flight 0") {
		t.Fatalf("expected in-flight gauge back at zero:\n%s", out)
	}
}

func TestProcessCollectorsAreScraped(t *testing.T) {
	reg := NewRegistry()
	RegisterProcessCollectors(reg)

	out := scrape(t, reg)
	for _, name := range []string{"process_uptime_seconds", "go_goroutines", "go_memstats_heap_inuse_bytes"} {
		if !strings.Contains(out, "# TYPE "+name+" gauge") {
			t.Fatalf("missing %s in:\n%s", name, out)
		}
	}
}

func TestCounterVecValue(t *testing.T) {
	c := NewCounterVec(Opts{Name: "published_total"}, []string{"result"})
	c.WithLabelValues("error").Inc()
	c.WithLabelValues("error", "extra").Inc()

	if got := c.Value("error"); got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}
	if got := c.Value("ok"); got != 0 {
		t.Fatalf("expected 0 for unseen labels, got %v", got)
	}
}
