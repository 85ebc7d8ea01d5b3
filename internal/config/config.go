package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Config is the process environment. A .env file, when present, is loaded
// first; variables already set in the environment win.
type Config struct {
	Addr       string `envconfig:"ADDR" default:":8080"`
	LogDir     string `envconfig:"LOG_DIR" default:"logs"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	LogConsole bool   `envconfig:"LOG_CONSOLE" default:"true"`
	ConfigPath string `envconfig:"CONFIG_PATH" default:"./config.yaml"`

	Store            string `envconfig:"STORE" default:"postgres"`
	DatabaseURL      string `envconfig:"DATABASE_URL"`
	PostgresUsername string `envconfig:"POSTGRES_USERNAME" default:"uptimers"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:"password"`
	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresDB       string `envconfig:"POSTGRES_DB" default:"uptimers"`
	SQLitePath       string `envconfig:"SQLITE_PATH" default:"uptimers.db"`

	NotifyURL    string `envconfig:"NOTIFY_URL"`
	SlackWebhook string `envconfig:"SLACK_WEBHOOK"`

	CheckInterval      time.Duration `envconfig:"CHECK_INTERVAL" default:"60s"`
	ProbeTimeout       time.Duration `envconfig:"PROBE_TIMEOUT" default:"10s"`
	RetryAttempts      int           `envconfig:"RETRY_ATTEMPTS" default:"5"`
	RetryBackoff       time.Duration `envconfig:"RETRY_BACKOFF" default:"1s"`
	ProbeConcurrency   int           `envconfig:"PROBE_CONCURRENCY" default:"5"`
	PersistConcurrency int           `envconfig:"PERSIST_CONCURRENCY" default:"5"`

	PublicRPM   int `envconfig:"PUBLIC_RPM" default:"0"`
	PublicBurst int `envconfig:"PUBLIC_BURST" default:"60"`
}

// FromEnv loads dotenv (if the file exists) and then the environment.
func FromEnv(dotenv string) (Config, error) {
	if dotenv != "" {
		_ = godotenv.Load(dotenv)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case StorePostgres, StoreSQLite, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE must be one of postgres, sqlite, memory; got %q", c.Store))
	}
	if c.CheckInterval <= 0 {
		errs = append(errs, errors.New("CHECK_INTERVAL must be positive"))
	}
	if c.ProbeTimeout <= 0 {
		errs = append(errs, errors.New("PROBE_TIMEOUT must be positive"))
	}
	if c.RetryAttempts < 1 {
		errs = append(errs, errors.New("RETRY_ATTEMPTS must be at least 1"))
	}
	if c.RetryBackoff < 0 {
		errs = append(errs, errors.New("RETRY_BACKOFF must not be negative"))
	}
	if c.ProbeConcurrency < 1 || c.PersistConcurrency < 1 {
		errs = append(errs, errors.New("PROBE_CONCURRENCY and PERSIST_CONCURRENCY must be at least 1"))
	}
	return multierr.Combine(errs...)
}

// PostgresDSN returns DATABASE_URL when set, otherwise a URL built from the
// POSTGRES_* parts with a pool of five connections.
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUsername, c.PostgresPassword),
		Host:     c.PostgresHost,
		Path:     "/" + c.PostgresDB,
		RawQuery: "pool_max_conns=5",
	}
	return u.String()
}

// RedactedDSN is PostgresDSN with the password masked, for logs and reports.
func (c Config) RedactedDSN() string {
	u, err := url.Parse(c.PostgresDSN())
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}
