package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TODO_API_CONFIG", "TODO_API_ADDR", "UI_ORIGIN", "SHUTDOWN_TIMEOUT",
		"STORAGE_DRIVER", "DATABASE_URL", "DB_MIN_CONNS", "DB_MAX_CONNS",
		"DB_MAX_CONN_LIFETIME", "DB_MAX_CONN_IDLE_TIME", "DB_HEALTH_CHECK_PERIOD",
		"NATS_URL", "NATS_CONNECT_TIMEOUT", "TODO_TITLE_MAX_LENGTH", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "todo-api.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent to testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore cwd: %v", err)
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Storage.Driver != DriverPostgres {
		t.Fatalf("expected postgres driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Todos.TitleMaxLength != DefaultTitleMaxLength {
		t.Fatalf("expected title max length %d, got %d", DefaultTitleMaxLength, cfg.Todos.TitleMaxLength)
	}
	if cfg.NATS.URL != "" {
		t.Fatalf("expected events disabled by default, got %q", cfg.NATS.URL)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
[server]
addr = ":9090"
shutdown_timeout = "3s"

[storage]
driver = "memory"

[todos]
title_max_length = 50
`)
	t.Setenv("TODO_TITLE_MAX_LENGTH", "80")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("expected addr from file, got %q", cfg.Server.Addr)
	}
	if cfg.Server.ShutdownTimeout.Duration != 3*time.Second {
		t.Fatalf("expected 3s shutdown timeout, got %s", cfg.Server.ShutdownTimeout.Duration)
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Fatalf("expected memory driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Todos.TitleMaxLength != 80 {
		t.Fatalf("expected env to override file, got %d", cfg.Todos.TitleMaxLength)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
[storage]
drvier = "memory"
`)
	_, err := Load(path)
	if !errors.Is(err, ErrUndecodedKeys) {
		t.Fatalf("expected ErrUndecodedKeys, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"defaults", func(*Config) {}, nil},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "sqlite" }, ErrUnknownDriver},
		{"missing url", func(c *Config) { c.Storage.DatabaseURL = " " }, ErrMissingDBURL},
		{"memory ignores url", func(c *Config) { c.Storage.Driver = DriverMemory; c.Storage.DatabaseURL = "" }, nil},
		{"zero title", func(c *Config) { c.Todos.TitleMaxLength = 0 }, ErrInvalidTitle},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, ErrInvalidLogging},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
