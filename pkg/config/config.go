// Package config loads runtime settings from the environment and optional
// .env files.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formflow/pkg/options"
)

// Prefix is prepended to every environment key.
const Prefix = "FORMFLOW_"

// DefaultEnvFiles are read, when present, before the environment is parsed.
var DefaultEnvFiles = []string{".env", ".env.local"}

// Config holds every setting the CLI and the adapters read.
type Config struct {
	APIBaseURL  string        `env:"API_BASE_URL"`
	APIToken    string        `env:"API_TOKEN"`
	DatabaseURL string        `env:"DATABASE_URL"`
	ScreensFile string        `env:"SCREENS_FILE" envDefault:"screens.yaml"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s"`

	PageSize         int           `env:"PAGE_SIZE" envDefault:"10"`
	OptionRetries    int           `env:"OPTION_RETRIES" envDefault:"2"`
	OptionRetryDelay time.Duration `env:"OPTION_RETRY_DELAY" envDefault:"500ms"`
	StrictOptions    bool          `env:"STRICT_OPTIONS" envDefault:"false"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	MetricsAddr string `env:"METRICS_ADDR" envDefault:""`
	ListenAddr  string `env:"LISTEN_ADDR" envDefault:"localhost:8080"`
}

// LoadEnv loads the existing files among envFiles into the process
// environment and returns how many were found.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads envFiles (DefaultEnvFiles when nil) and parses the environment.
func Load(envFiles ...string) (*Config, error) {
	if envFiles == nil {
		envFiles = DefaultEnvFiles
	}
	if _, err := LoadEnv(envFiles); err != nil {
		return nil, fmt.Errorf("config: load env files: %w", err)
	}
	return Parse(nil)
}

// Parse builds a Config from environ, or from the process environment when
// environ is nil.
func Parse(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	opts := env.Options{Prefix: Prefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if c.PageSize < 1 {
		return fmt.Errorf("config: %sPAGE_SIZE must be positive, got %d", Prefix, c.PageSize)
	}
	if c.OptionRetries < 0 {
		return fmt.Errorf("config: %sOPTION_RETRIES must be non-negative, got %d", Prefix, c.OptionRetries)
	}
	if c.OptionRetryDelay < 0 {
		return fmt.Errorf("config: %sOPTION_RETRY_DELAY must be non-negative", Prefix)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("config: %sLOG_FORMAT must be text or json, got %q", Prefix, c.LogFormat)
	}
	return nil
}

// RetryPolicy returns the option load retry budget.
func (c *Config) RetryPolicy() options.RetryPolicy {
	return options.RetryPolicy{MaxRetries: c.OptionRetries, Delay: c.OptionRetryDelay}
}

// LogrusLevel maps LogLevel onto a logrus level, defaulting to info.
func (c *Config) LogrusLevel() logrus.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "debug":
		return logrus.DebugLevel
	case "trace":
		return logrus.TraceLevel
	default:
		return logrus.InfoLevel
	}
}

// Logger builds a logger writing to stderr.
func (c *Config) Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(c.LogrusLevel())
	if strings.EqualFold(c.LogFormat, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
