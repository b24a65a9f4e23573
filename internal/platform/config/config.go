// Package config loads service configuration from defaults, an optional TOML
// file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/todo-1m/todos/internal/platform/env"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	// DefaultFile is picked up from the working directory when no explicit
	// path is given.
	DefaultFile = "todo-api.toml"

	DefaultTitleMaxLength = 200
)

var (
	ErrUnknownDriver  = errors.New("unknown storage driver")
	ErrInvalidTitle   = errors.New("todos.title_max_length must be positive")
	ErrMissingDBURL   = errors.New("storage.database_url is required for the postgres driver")
	ErrUndecodedKeys  = errors.New("unknown configuration keys")
	ErrInvalidLogging = errors.New("invalid log format")
)

// Duration decodes TOML strings such as "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	NATS    NATSConfig    `toml:"nats"`
	Todos   TodosConfig   `toml:"todos"`
	Log     LogConfig     `toml:"log"`
}

type ServerConfig struct {
	Addr            string   `toml:"addr"`
	AllowedOrigin   string   `toml:"allowed_origin"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

type StorageConfig struct {
	Driver            string   `toml:"driver"`
	DatabaseURL       string   `toml:"database_url"`
	MinConns          int      `toml:"min_conns"`
	MaxConns          int      `toml:"max_conns"`
	MaxConnLifetime   Duration `toml:"max_conn_lifetime"`
	MaxConnIdleTime   Duration `toml:"max_conn_idle_time"`
	HealthCheckPeriod Duration `toml:"health_check_period"`
	SchemaWait        Duration `toml:"schema_wait"`
}

// NATSConfig configures change-event publishing. An empty URL disables it.
type NATSConfig struct {
	URL            string   `toml:"url"`
	ConnectTimeout Duration `toml:"connect_timeout"`
}

type TodosConfig struct {
	TitleMaxLength int `toml:"title_max_length"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            env.DefaultAPIAddr,
			AllowedOrigin:   "*",
			ShutdownTimeout: Duration{10 * time.Second},
		},
		Storage: StorageConfig{
			Driver:            DriverPostgres,
			DatabaseURL:       env.DefaultDatabaseURL,
			MinConns:          2,
			MaxConns:          20,
			MaxConnLifetime:   Duration{30 * time.Minute},
			MaxConnIdleTime:   Duration{5 * time.Minute},
			HealthCheckPeriod: Duration{30 * time.Second},
			SchemaWait:        Duration{30 * time.Second},
		},
		NATS: NATSConfig{
			ConnectTimeout: Duration{20 * time.Second},
		},
		Todos: TodosConfig{
			TitleMaxLength: DefaultTitleMaxLength,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// TODO_API_CONFIG and then DefaultFile in the working directory are tried.
func Load(path string) (*Config, error) {
	cfg := Default()

	file := resolveFile(path)
	if file != "" {
		if err := loadFile(cfg, file); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", file, err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveFile(path string) string {
	if path != "" {
		return path
	}
	if p, ok := env.Lookup("TODO_API_CONFIG"); ok {
		return p
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return DefaultFile
	}
	return ""
}

func loadFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("%w: %s", ErrUndecodedKeys, strings.Join(keys, ", "))
	}
	return nil
}

func loadFromEnv(cfg *Config) {
	cfg.Server.Addr = env.String("TODO_API_ADDR", cfg.Server.Addr)
	cfg.Server.AllowedOrigin = env.String("UI_ORIGIN", cfg.Server.AllowedOrigin)
	cfg.Server.ShutdownTimeout.Duration = env.Duration("SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout.Duration)

	cfg.Storage.Driver = strings.ToLower(env.String("STORAGE_DRIVER", cfg.Storage.Driver))
	cfg.Storage.DatabaseURL = env.String("DATABASE_URL", cfg.Storage.DatabaseURL)
	cfg.Storage.MinConns = env.Int("DB_MIN_CONNS", cfg.Storage.MinConns)
	cfg.Storage.MaxConns = env.Int("DB_MAX_CONNS", cfg.Storage.MaxConns)
	cfg.Storage.MaxConnLifetime.Duration = env.Duration("DB_MAX_CONN_LIFETIME", cfg.Storage.MaxConnLifetime.Duration)
	cfg.Storage.MaxConnIdleTime.Duration = env.Duration("DB_MAX_CONN_IDLE_TIME", cfg.Storage.MaxConnIdleTime.Duration)
	cfg.Storage.HealthCheckPeriod.Duration = env.Duration("DB_HEALTH_CHECK_PERIOD", cfg.Storage.HealthCheckPeriod.Duration)

	cfg.NATS.URL = env.String("NATS_URL", cfg.NATS.URL)
	cfg.NATS.ConnectTimeout.Duration = env.Duration("NATS_CONNECT_TIMEOUT", cfg.NATS.ConnectTimeout.Duration)

	cfg.Todos.TitleMaxLength = env.Int("TODO_TITLE_MAX_LENGTH", cfg.Todos.TitleMaxLength)

	cfg.Log.Level = env.String("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = env.String("LOG_FORMAT", cfg.Log.Format)
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if strings.TrimSpace(c.Storage.DatabaseURL) == "" {
			return ErrMissingDBURL
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Storage.Driver)
	}
	if c.Todos.TitleMaxLength <= 0 {
		return ErrInvalidTitle
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "logfmt", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogging, c.Log.Format)
	}
	return nil
}
