package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/nikbrunner/bmtree/internal/model"
	"github.com/nikbrunner/bmtree/internal/navigator"
	"github.com/nikbrunner/bmtree/internal/session"
	"github.com/nikbrunner/bmtree/internal/storage"
)

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend        string `json:"backend" yaml:"backend"`
	Path           string `json:"path,omitempty" yaml:"path,omitempty"`
	RemoteURL      string `json:"remote_url,omitempty" yaml:"remote_url,omitempty"`
	RequestTimeout string `json:"request_timeout" yaml:"request_timeout"`
	DeletePolicy   string `json:"delete_policy" yaml:"delete_policy"`
}

// ServerConfig configures `bm serve`.
type ServerConfig struct {
	Address         string `json:"address" yaml:"address"`
	ShutdownTimeout string `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	CORSOrigin      string `json:"cors_origin" yaml:"cors_origin"`
	MaxSessions     int    `json:"max_sessions" yaml:"max_sessions"`
}

// Config holds application configuration.
type Config struct {
	Storage      StorageConfig `json:"storage" yaml:"storage"`
	HistoryLimit int           `json:"history_limit" yaml:"history_limit"`
	Server       ServerConfig  `json:"server" yaml:"server"`
	LogLevel     string        `json:"log_level" yaml:"log_level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Backend:        storage.BackendAuto,
			RequestTimeout: "15s",
			DeletePolicy:   model.DeleteCascade.String(),
		},
		HistoryLimit: navigator.DefaultHistoryLimit,
		Server: ServerConfig{
			Address:         ":8080",
			ShutdownTimeout: "10s",
			CORSOrigin:      "http://localhost:3000",
			MaxSessions:     session.DefaultMaxSessions,
		},
		LogLevel: "info",
	}
}

// Load reads config from path (JSON, or YAML for .yaml/.yml files).
// Creates the file with defaults if it doesn't exist. A .env file in the
// working directory and BM_* environment variables override file values.
func Load(path string) (*Config, error) {
	config, err := loadFile(path)
	if err != nil {
		return nil, err
	}

	// Load .env file if it exists
	_ = godotenv.Load()
	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			config := DefaultConfig()
			// Non-fatal: return defaults even if save fails
			_ = Save(path, &config)
			return &config, nil
		}
		return nil, err
	}

	var config Config
	if isYAML(path) {
		err = yaml.Unmarshal(data, &config)
	} else {
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	config.fillDefaults()
	return &config, nil
}

// fillDefaults applies defaults for missing fields.
func (c *Config) fillDefaults() {
	defaults := DefaultConfig()
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	if c.Storage.RequestTimeout == "" {
		c.Storage.RequestTimeout = defaults.Storage.RequestTimeout
	}
	if c.Storage.DeletePolicy == "" {
		c.Storage.DeletePolicy = defaults.Storage.DeletePolicy
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = defaults.HistoryLimit
	}
	if c.Server.Address == "" {
		c.Server.Address = defaults.Server.Address
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
	}
	if c.Server.CORSOrigin == "" {
		c.Server.CORSOrigin = defaults.Server.CORSOrigin
	}
	if c.Server.MaxSessions == 0 {
		c.Server.MaxSessions = defaults.Server.MaxSessions
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
}

// applyEnv overrides file values with BM_* variables. Numeric variables
// that don't parse are rejected rather than ignored.
func (c *Config) applyEnv() error {
	setenv := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setenv("BM_STORAGE", &c.Storage.Backend)
	setenv("BM_DATA_PATH", &c.Storage.Path)
	setenv("BM_REMOTE_URL", &c.Storage.RemoteURL)
	setenv("BM_DELETE_POLICY", &c.Storage.DeletePolicy)
	setenv("BM_ADDR", &c.Server.Address)
	setenv("BM_LOG_LEVEL", &c.LogLevel)
	setenv("BM_CORS_ORIGIN", &c.Server.CORSOrigin)

	setint := func(key string, dst *int) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %q is not an integer", key, v)
		}
		*dst = n
		return nil
	}
	if err := setint("BM_HISTORY_LIMIT", &c.HistoryLimit); err != nil {
		return err
	}
	return setint("BM_MAX_SESSIONS", &c.Server.MaxSessions)
}

// Validate rejects unknown backends, policies, levels and bad durations.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case storage.BackendAuto, storage.BackendMemory, storage.BackendJSON, storage.BackendSQLite:
	case storage.BackendRemote:
		if c.Storage.RemoteURL == "" {
			return fmt.Errorf("config: storage.remote_url is required for the remote backend")
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if _, err := model.ParseDeletePolicy(c.Storage.DeletePolicy); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := time.ParseDuration(c.Storage.RequestTimeout); err != nil {
		return fmt.Errorf("config: storage.request_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("config: server.shutdown_timeout: %w", err)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	return nil
}

// StorageOptions converts the storage section for storage.OpenStorage.
func (c *Config) StorageOptions() storage.Options {
	policy, _ := model.ParseDeletePolicy(c.Storage.DeletePolicy)
	timeout, _ := time.ParseDuration(c.Storage.RequestTimeout)
	return storage.Options{
		Backend:      c.Storage.Backend,
		Path:         c.Storage.Path,
		RemoteURL:    c.Storage.RemoteURL,
		Timeout:      timeout,
		DeletePolicy: policy,
	}
}

// ShutdownTimeout returns the parsed server shutdown timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.ShutdownTimeout)
	return d
}

// Level returns the parsed log level.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// Save writes config to path, as YAML for .yaml/.yml files and JSON otherwise.
// Creates the directory if it doesn't exist.
func Save(path string, config *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(config)
	} else {
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// DefaultConfigFilePath returns the default config path: ~/.config/bm/config.json
func DefaultConfigFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "bm", "config.json"), nil
}
