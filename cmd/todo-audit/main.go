package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/todo-1m/todos/internal/app/audit"
	"github.com/todo-1m/todos/internal/messaging"
	"github.com/todo-1m/todos/internal/platform/config"
	"github.com/todo-1m/todos/internal/platform/dbpool"
	"github.com/todo-1m/todos/internal/platform/env"
	"github.com/todo-1m/todos/internal/platform/logging"
	"github.com/todo-1m/todos/internal/platform/natsutil"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.New("todo-audit", cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("todo-audit stopped", "err", err)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Storage.Driver != config.DriverPostgres {
		return errors.New("todo-audit requires the postgres storage driver")
	}
	natsURL := cfg.NATS.URL
	if natsURL == "" {
		natsURL = env.DefaultNATSURL
	}

	pool, err := dbpool.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer pool.Close()

	repository := audit.NewEventRepository(pool)
	if err := waitForPostgres(ctx, pool, repository, cfg.Storage.SchemaWait.Duration, logger); err != nil {
		return err
	}
	service := audit.NewService(repository)

	client, err := natsutil.ConnectJetStreamWithRetry(natsURL, cfg.NATS.ConnectTimeout.Duration, nats.Name("todo-audit"))
	if err != nil {
		return err
	}
	defer client.Close()

	sub, err := client.JS.QueueSubscribe(messaging.EventsSubject, "todo-audit", func(msg *nats.Msg) {
		var eventSeq uint64
		if meta, metaErr := msg.Metadata(); metaErr == nil {
			eventSeq = meta.Sequence.Stream
		}

		insertCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := service.Handle(insertCtx, msg.Data, eventSeq); err != nil {
			if errors.Is(err, audit.ErrInvalidEventPayload) || errors.Is(err, audit.ErrUnsupportedEventType) {
				logger.Warn("discarding event", "subject", msg.Subject, "seq", eventSeq, "err", err)
				_ = msg.Term()
				return
			}
			logger.Error("event persistence failed", "subject", msg.Subject, "seq", eventSeq, "err", err)
			_ = msg.Nak()
			return
		}

		_ = msg.Ack()
	}, nats.ManualAck(), nats.Durable("todo-audit"))
	if err != nil {
		return err
	}
	defer func() { _ = sub.Unsubscribe() }()

	logger.Info("todo-audit listening", "subject", sub.Subject)
	<-ctx.Done()
	return nil
}

func waitForPostgres(
	ctx context.Context,
	pool *pgxpool.Pool,
	repository *audit.EventRepository,
	timeout time.Duration,
	logger *log.Logger,
) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		attemptCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		lastErr = pool.Ping(attemptCtx)
		if lastErr == nil {
			lastErr = repository.EnsureSchema(attemptCtx)
		}
		cancel()

		if lastErr == nil {
			return nil
		}
		logger.Warn("waiting for postgres readiness", "err", lastErr)
		time.Sleep(500 * time.Millisecond)
	}
	return lastErr
}
