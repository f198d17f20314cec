package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Driver names accepted for Database.Driver. They match the names the
// drivers register with database/sql.
const (
	DriverModernc = "sqlite"  // modernc.org/sqlite, pure Go, FTS5 built in
	DriverCgo     = "sqlite3" // github.com/mattn/go-sqlite3, needs -tags sqlite_fts5
)

// Config is the runtime configuration of the server and CLI.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Search     SearchConfig
	Uploads    UploadConfig
	Gemini     GeminiConfig
	LogMode    string
	Production bool
}

type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Path   string
	Driver string
}

type SearchConfig struct {
	Limit   int
	Weights RankingWeights
}

type UploadConfig struct {
	Dir      string
	MaxBytes int64
}

type GeminiConfig struct {
	APIKey            string
	Model             string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// fileConfig mirrors the TOML layout. Durations are strings ("15s").
type fileConfig struct {
	LogMode string `toml:"log_mode"`
	Server  struct {
		Addr         string `toml:"addr"`
		ReadTimeout  string `toml:"read_timeout"`
		WriteTimeout string `toml:"write_timeout"`
		IdleTimeout  string `toml:"idle_timeout"`
	} `toml:"server"`
	Database struct {
		Path   string `toml:"path"`
		Driver string `toml:"driver"`
	} `toml:"database"`
	Search struct {
		Limit   int                `toml:"limit"`
		Weights map[string]float64 `toml:"weights"`
	} `toml:"search"`
	Uploads struct {
		Dir      string `toml:"dir"`
		MaxBytes int64  `toml:"max_bytes"`
	} `toml:"uploads"`
	Gemini struct {
		APIKey            string  `toml:"api_key"`
		Model             string  `toml:"model"`
		BaseURL           string  `toml:"base_url"`
		Timeout           string  `toml:"timeout"`
		RequestsPerSecond float64 `toml:"requests_per_second"`
		Burst             int     `toml:"burst"`
	} `toml:"gemini"`
}

// Default returns the configuration used when nothing overrides it.
// Paths are relative to dataDir.
func Default(dataDir string) Config {
	weights := make(RankingWeights, len(CurrentDefaults.Weights))
	for k, v := range CurrentDefaults.Weights {
		weights[k] = v
	}
	return Config{
		Server: ServerConfig{
			Addr:         ":5000",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second, // extraction waits on the model
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Path:   filepath.Join(dataDir, "citations.db"),
			Driver: DriverModernc,
		},
		Search: SearchConfig{
			Limit:   CurrentDefaults.SearchLimit,
			Weights: weights,
		},
		Uploads: UploadConfig{
			Dir:      filepath.Join(dataDir, "uploads"),
			MaxBytes: 32 << 20,
		},
		Gemini: GeminiConfig{
			Model:             "gemini-2.0-flash",
			BaseURL:           "https://generativelanguage.googleapis.com/v1beta",
			Timeout:           60 * time.Second,
			RequestsPerSecond: 1,
			Burst:             2,
		},
		LogMode: "dev",
	}
}

// Load builds the config from defaults, then the TOML file at path (if it
// exists), then environment variables. An empty path skips the file.
func Load(path, dataDir string) (Config, error) {
	cfg := Default(dataDir)

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := applyFile(&cfg, raw); err != nil {
				return cfg, fmt.Errorf("parsing %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// optional
		default:
			return cfg, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyFile(cfg *Config, raw []byte) error {
	var fc fileConfig
	if err := toml.Unmarshal(raw, &fc); err != nil {
		return err
	}

	setString(&cfg.LogMode, fc.LogMode)
	setString(&cfg.Server.Addr, fc.Server.Addr)
	for _, d := range []struct {
		dst *time.Duration
		src string
	}{
		{&cfg.Server.ReadTimeout, fc.Server.ReadTimeout},
		{&cfg.Server.WriteTimeout, fc.Server.WriteTimeout},
		{&cfg.Server.IdleTimeout, fc.Server.IdleTimeout},
		{&cfg.Gemini.Timeout, fc.Gemini.Timeout},
	} {
		if d.src == "" {
			continue
		}
		v, err := time.ParseDuration(d.src)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", d.src, err)
		}
		*d.dst = v
	}

	setString(&cfg.Database.Path, fc.Database.Path)
	setString(&cfg.Database.Driver, fc.Database.Driver)

	if fc.Search.Limit != 0 {
		cfg.Search.Limit = fc.Search.Limit
	}
	for name, w := range fc.Search.Weights {
		cfg.Search.Weights[IndexField(strings.ToLower(name))] = w
	}

	setString(&cfg.Uploads.Dir, fc.Uploads.Dir)
	if fc.Uploads.MaxBytes != 0 {
		cfg.Uploads.MaxBytes = fc.Uploads.MaxBytes
	}

	setString(&cfg.Gemini.APIKey, fc.Gemini.APIKey)
	setString(&cfg.Gemini.Model, fc.Gemini.Model)
	setString(&cfg.Gemini.BaseURL, fc.Gemini.BaseURL)
	if fc.Gemini.RequestsPerSecond != 0 {
		cfg.Gemini.RequestsPerSecond = fc.Gemini.RequestsPerSecond
	}
	if fc.Gemini.Burst != 0 {
		cfg.Gemini.Burst = fc.Gemini.Burst
	}
	return nil
}

func applyEnv(cfg *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		if _, err := strconv.Atoi(port); err == nil {
			cfg.Server.Addr = ":" + port
		}
	}
	setString(&cfg.Database.Path, os.Getenv("DATABASE_PATH"))
	setString(&cfg.Database.Driver, os.Getenv("DB_DRIVER"))
	setString(&cfg.Uploads.Dir, os.Getenv("UPLOAD_FOLDER"))
	setString(&cfg.Gemini.APIKey, os.Getenv("GEMINI_API_KEY"))
	setString(&cfg.Gemini.Model, os.Getenv("GEMINI_MODEL"))
	setString(&cfg.LogMode, os.Getenv("LOG_MODE"))
	if os.Getenv("RENDER") != "" {
		cfg.Production = true
		if os.Getenv("LOG_MODE") == "" {
			cfg.LogMode = "prod"
		}
	}
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// ErrMissingAPIKey is returned by Validate in production when no Gemini key
// is configured.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY not set")

// Validate checks the config for values the server cannot run with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverModernc, DriverCgo:
	default:
		return fmt.Errorf("unknown database driver %q (want %q or %q)", c.Database.Driver, DriverModernc, DriverCgo)
	}
	if c.Database.Path == "" {
		return errors.New("database path is empty")
	}
	if c.Search.Limit < 1 || c.Search.Limit > 1000 {
		return fmt.Errorf("search limit %d out of range 1..1000", c.Search.Limit)
	}
	for field, w := range c.Search.Weights {
		if !isIndexField(field) {
			return fmt.Errorf("weight for unknown index field %q", field)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("weight for %s must be a finite non-negative number, got %v", field, w)
		}
	}
	if c.Production && c.Gemini.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func isIndexField(f IndexField) bool {
	for _, c := range IndexColumns {
		if c == f {
			return true
		}
	}
	return false
}
