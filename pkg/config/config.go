package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Audit   AuditConfig   `yaml:"audit"`
	Paths   PathsConfig   `yaml:"paths"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

type ServerConfig struct {
	Listen          string `yaml:"listen"`
	URL             string `yaml:"url"` // used by the CLI to reach the server
	RequestTimeout  int    `yaml:"request_timeout_s"`
	RetryInitialMs  int    `yaml:"retry_initial_ms"`
	RetryMaxMs      int    `yaml:"retry_max_ms"`
	RetryMaxRetries int    `yaml:"retry_max_attempts"`
}

type AuditConfig struct {
	Enable        bool   `yaml:"enable"`
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
	RedactPaths   bool   `yaml:"redact_paths"`
	RedactSalt    string `yaml:"redact_salt"`
}

type PathsConfig struct {
	// AllowDirs overrides the host's well-known directories (downloads,
	// documents, desktop) when non-empty. Mainly for servers that run
	// without a user session.
	AllowDirs []string `yaml:"allow_dirs"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
	LogSpans    bool    `yaml:"log_spans"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          ":8080",
			URL:             "http://localhost:8080",
			RequestTimeout:  10,
			RetryInitialMs:  500,
			RetryMaxMs:      5000,
			RetryMaxRetries: 5,
		},
		Audit: AuditConfig{
			Enable:        true,
			DBPath:        "fsgate.db",
			RetentionDays: 30,
			RedactPaths:   false,
		},
		Logging: LoggingConfig{
			Level: "info",
			JSON:  false,
		},
		Tracing: TracingConfig{
			Endpoint:    "",
			Insecure:    false,
			SampleRatio: 1,
			LogSpans:    false,
		},
	}
}

// Load reads config from file with env var overrides
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	if listen := os.Getenv("FSGATE_LISTEN"); listen != "" {
		cfg.Server.Listen = listen
	}
	if url := os.Getenv("FSGATE_SERVER_URL"); url != "" {
		cfg.Server.URL = url
	}
	if dbPath := os.Getenv("FSGATE_DB_PATH"); dbPath != "" {
		cfg.Audit.DBPath = dbPath
	}
	if level := os.Getenv("FSGATE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return ErrMissingListen
	}
	if c.Audit.Enable && c.Audit.DBPath == "" {
		return ErrMissingDBPath
	}
	if c.Audit.RedactPaths && c.Audit.RedactSalt == "" {
		return ErrMissingRedactSalt
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 10
	}
	if c.Server.RetryInitialMs <= 0 {
		c.Server.RetryInitialMs = 500
	}
	if c.Server.RetryMaxMs <= 0 {
		c.Server.RetryMaxMs = 5000
	}
	if c.Server.RetryMaxRetries < 0 {
		c.Server.RetryMaxRetries = 5
	}
	if c.Server.RetryMaxMs < c.Server.RetryInitialMs {
		c.Server.RetryMaxMs = c.Server.RetryInitialMs
	}
	if c.Audit.RetentionDays <= 0 {
		c.Audit.RetentionDays = 30
	}
	if c.Tracing.SampleRatio <= 0 || c.Tracing.SampleRatio > 1 {
		c.Tracing.SampleRatio = 1
	}
	return nil
}

var (
	ErrMissingListen     = &Error{"server listen address is required"}
	ErrMissingDBPath     = &Error{"audit db_path is required when audit is enabled"}
	ErrMissingRedactSalt = &Error{"audit redact_salt is required when redact_paths is enabled"}
)

type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
