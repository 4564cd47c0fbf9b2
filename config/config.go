// Package config loads settings from an optional .env file and the process
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/pivolan/benford_analyzer/benford"
	"github.com/pivolan/benford_analyzer/ingest"
)

type Config struct {
	DbDsn     string `envconfig:"DB_DSN"`
	TgToken   string `envconfig:"TG_TOKEN"`
	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":8005"`
	PublicURL string `envconfig:"PUBLIC_URL" default:"http://localhost:8005"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	Base                int      `envconfig:"BENFORD_BASE" default:"10"`
	ComplianceThreshold float64  `envconfig:"BENFORD_THRESHOLD" default:"14.68"`
	DecimalPlaces       int32    `envconfig:"BENFORD_DECIMAL_PLACES" default:"1"`
	Delimiters          []string `envconfig:"BENFORD_DELIMITERS" default:"tab,semicolon,comma"`
	NormalizeDigits     bool     `envconfig:"BENFORD_NORMALIZE_DIGITS" default:"false"`

	CacheTTL       time.Duration `envconfig:"CACHE_TTL" default:"10m"`
	UploadLinkTTL  time.Duration `envconfig:"UPLOAD_LINK_TTL" default:"1h"`
	MaxUploadBytes int64         `envconfig:"MAX_UPLOAD_BYTES" default:"52428800"`
	MaxStoredRows  int           `envconfig:"MAX_STORED_ROWS" default:"100000"`
	PageSize       int           `envconfig:"PAGE_SIZE" default:"10"`
}

var (
	config    *Config
	configErr error
	once      sync.Once
)

// GetConfig returns the process wide configuration, loading it on first use.
func GetConfig() (*Config, error) {
	once.Do(func() {
		config, configErr = Load()
	})
	return config, configErr
}

// Load reads the given .env files (".env" when none is named) and then the
// environment. A missing default .env file is not an error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if len(files) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	if _, err := cfg.Benford(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if _, err := cfg.Level(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Benford builds the analysis settings.
func (c *Config) Benford() (benford.Config, error) {
	delimiters := make([]rune, 0, len(c.Delimiters))
	for _, name := range c.Delimiters {
		d, err := ingest.ParseDelimiter(strings.TrimSpace(name))
		if err != nil {
			return benford.Config{}, err
		}
		if d != 0 {
			delimiters = append(delimiters, d)
		}
	}
	cfg := benford.Config{
		Base:          c.Base,
		Threshold:     c.ComplianceThreshold,
		DecimalPlaces: c.DecimalPlaces,
		Delimiters:    delimiters,
	}
	return cfg, cfg.Validate()
}

func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

// UploadOptions are the ingest defaults derived from the configuration.
func (c *Config) UploadOptions() ingest.Options {
	opts := ingest.DefaultOptions()
	opts.MaxBytes = c.MaxUploadBytes
	opts.NormalizeDigits = c.NormalizeDigits
	if bc, err := c.Benford(); err == nil {
		opts.Allowed = bc.AllowedDelimiters()
	}
	return opts
}
