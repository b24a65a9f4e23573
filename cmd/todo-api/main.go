package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/todo-1m/todos/internal/app/todos"
	"github.com/todo-1m/todos/internal/platform/config"
	"github.com/todo-1m/todos/internal/platform/dbpool"
	"github.com/todo-1m/todos/internal/platform/logging"
	"github.com/todo-1m/todos/internal/platform/metrics"
	"github.com/todo-1m/todos/internal/platform/natsutil"
	"github.com/todo-1m/todos/services/frontend"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.New("todo-api", cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("todo-api stopped", "err", err)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store todos.Store
		pool  *pgxpool.Pool
	)
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage; todos are lost on restart")
		store = todos.NewMemoryRepository()
	default:
		var err error
		pool, err = dbpool.New(runCtx, cfg.Storage)
		if err != nil {
			return err
		}
		defer pool.Close()

		repo := todos.NewPostgresRepository(pool)
		if err := waitForSchema(runCtx, repo, cfg.Storage.SchemaWait.Duration, logger); err != nil {
			return fmt.Errorf("ensure todo schema: %w", err)
		}
		store = repo
	}

	var client *natsutil.Client
	var publish todos.PublishFunc
	if cfg.NATS.URL != "" {
		var err error
		client, err = natsutil.ConnectJetStreamWithRetry(cfg.NATS.URL, cfg.NATS.ConnectTimeout.Duration, nats.Name("todo-api"))
		if err != nil {
			return err
		}
		defer client.Close()
		publish = natsutil.JetStreamPublisher{JS: client.JS, Timeout: 2 * time.Second}.Publish
	} else {
		logger.Info("nats.url not set; change events disabled")
	}

	metrics.RegisterProcessCollectors(metrics.Default)
	httpMetrics := metrics.NewHTTP(metrics.Default, "todo_api")
	published := metrics.NewCounterVec(metrics.Opts{
		Name: "todo_api_events_published_total",
		Help: "Todo change events published, by result.",
	}, []string{"result"})
	metrics.Default.MustRegister(published)

	service := todos.NewService(store, todos.TitleRules{MaxLength: cfg.Todos.TitleMaxLength}, publish, logger)
	service.Published = published

	handler := todos.NewHandler(service, cfg.Server.AllowedOrigin, logger)
	handler.Middlewares = append(handler.Middlewares, httpMetrics.Middleware)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := checkReadiness(r.Context(), pool, client); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.DefaultHandler())
	mux.Handle("/static/", http.StripPrefix("/static/", frontend.StaticHandler()))
	mux.Handle("GET /{$}", frontend.TodoListHandler(service, todos.Mounts[0]+"/", logger))
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("todo-api listening", "addr", cfg.Server.Addr, "storage", cfg.Storage.Driver)
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-runCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
	return nil
}

func waitForSchema(ctx context.Context, repo *todos.PostgresRepository, timeout time.Duration, logger *log.Logger) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		attemptCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		lastErr = repo.EnsureSchema(attemptCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		logger.Warn("waiting for todo schema readiness", "err", lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return lastErr
}

func checkReadiness(ctx context.Context, pool *pgxpool.Pool, client *natsutil.Client) error {
	if client != nil {
		if err := client.Ready(); err != nil {
			return err
		}
	}
	if pool == nil {
		return nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, 1500*time.Millisecond)
	defer cancel()
	if err := pool.Ping(checkCtx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}
