// Package config loads runtime settings from an optional YAML file with
// environment variable overrides. Secrets only ever come from the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "1m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all runtime settings. Zero values fall back to defaults in
// the consuming packages.
type Config struct {
	// Inference backend.
	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"base_url"`
	Timeout     Duration `yaml:"timeout"`
	Temperature float32  `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`

	// Retry policy for transient backend failures.
	RetryMaxAttempts int      `yaml:"retry_max_attempts"`
	RetryBaseDelay   Duration `yaml:"retry_base_delay"`
	RetryMultiplier  float64  `yaml:"retry_multiplier"`

	// Validation. MaxDropFraction is the tolerated fraction of invalid
	// elements per batch before the whole batch is rejected.
	MaxDropFraction float64 `yaml:"max_drop_fraction"`

	// Persistence. CacheBackend selects memory, sqlite or firestore.
	CacheBackend     string `yaml:"cache_backend"`
	CachePath        string `yaml:"cache_path"`
	FirestoreProject string `yaml:"firestore_project"`
	StorageBucket    string `yaml:"storage_bucket"`

	// HTTP server.
	Addr        string `yaml:"addr"`
	AuthEnabled bool   `yaml:"auth_enabled"`

	// APIKey is environment-only; it never round-trips through YAML.
	APIKey string `yaml:"-"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Model:            "gpt-4o-mini",
		Timeout:          Duration(60 * time.Second),
		Temperature:      0,
		MaxTokens:        4000,
		RetryMaxAttempts: 3,
		RetryBaseDelay:   Duration(time.Second),
		RetryMultiplier:  2,
		MaxDropFraction:  1.0,
		CacheBackend:     "memory",
		Addr:             ":8080",
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then environment overrides. A .env file in the working directory
// is loaded first so local runs behave like deployed ones.
func Load(path string) (Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.APIKey = os.Getenv("OPENAI_API_KEY")

	if v := os.Getenv("TXPARSE_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("TXPARSE_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("TXPARSE_CACHE_BACKEND"); v != "" {
		c.CacheBackend = v
	}
	if v := os.Getenv("TXPARSE_CACHE_PATH"); v != "" {
		c.CachePath = v
	}
	if v := os.Getenv("TXPARSE_FIRESTORE_PROJECT"); v != "" {
		c.FirestoreProject = v
	}
	if v := os.Getenv("TXPARSE_STORAGE_BUCKET"); v != "" {
		c.StorageBucket = v
	}
	if v := os.Getenv("TXPARSE_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("TXPARSE_AUTH_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.AuthEnabled = b
		}
	}
	if v := os.Getenv("TXPARSE_MAX_DROP_FRACTION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.MaxDropFraction = f
		}
	}
}

func (c *Config) validate() error {
	switch c.CacheBackend {
	case "memory", "sqlite", "firestore":
	default:
		return fmt.Errorf("invalid cache_backend %q (must be memory, sqlite, or firestore)", c.CacheBackend)
	}
	if c.CacheBackend == "sqlite" && c.CachePath == "" {
		return fmt.Errorf("cache_backend sqlite requires cache_path")
	}
	if c.CacheBackend == "firestore" && c.FirestoreProject == "" {
		return fmt.Errorf("cache_backend firestore requires firestore_project")
	}
	if c.MaxDropFraction <= 0 || c.MaxDropFraction > 1 {
		return fmt.Errorf("max_drop_fraction must be in (0, 1], got %g", c.MaxDropFraction)
	}
	return nil
}
