// Package config provides configuration loading and structs for the kotoba server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable that overrides the config file.
const EnvPrefix = "KOTOBA_"

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug" env:"DEBUG"`
	Server     ServerConfig     `yaml:"server" envPrefix:"SERVER_"`
	Humanizer  HumanizerConfig  `yaml:"humanizer" envPrefix:"HUMANIZER_"`
	Models     ModelsConfig     `yaml:"models" envPrefix:"MODELS_"`
	Embedding  EmbeddingConfig  `yaml:"embedding" envPrefix:"EMBEDDING_"`
	Paraphrase ParaphraseConfig `yaml:"paraphrase" envPrefix:"PARAPHRASE_"`
	Cache      CacheConfig      `yaml:"cache" envPrefix:"CACHE_"`
	Watch      WatchConfig      `yaml:"watch" envPrefix:"WATCH_"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host               string        `yaml:"host" env:"HOST"`
	Port               int           `yaml:"port" env:"PORT"`
	APIKey             string        `yaml:"api_key" env:"API_KEY"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute" env:"RATE_LIMIT_PER_MINUTE"`
	RequestTimeout     time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
}

// HumanizerConfig holds request defaults and limits.
type HumanizerConfig struct {
	DefaultTier      string  `yaml:"default_tier" env:"DEFAULT_TIER"`
	DefaultIntensity float64 `yaml:"default_intensity" env:"DEFAULT_INTENSITY"`
	MaxTextLength    int     `yaml:"max_text_length" env:"MAX_TEXT_LENGTH"`
	MaxBatchSize     int     `yaml:"max_batch_size" env:"MAX_BATCH_SIZE"`
	BatchWorkers     int     `yaml:"batch_workers" env:"BATCH_WORKERS"`
}

// ModelSet names the models used by one model class.
type ModelSet struct {
	Paraphrase    string `yaml:"paraphrase" env:"PARAPHRASE"`
	Embedding     string `yaml:"embedding" env:"EMBEDDING"`
	EmbeddingPath string `yaml:"embedding_path" env:"EMBEDDING_PATH"`
	Dimensions    int    `yaml:"dimensions" env:"DIMENSIONS"`
}

// ModelsConfig maps model classes to model sets.
type ModelsConfig struct {
	Small  ModelSet `yaml:"small" envPrefix:"SMALL_"`
	Medium ModelSet `yaml:"medium" envPrefix:"MEDIUM_"`
	Large  ModelSet `yaml:"large" envPrefix:"LARGE_"`
}

// For returns the model set of class ("small", "medium" or "large").
func (m ModelsConfig) For(class string) (ModelSet, bool) {
	switch class {
	case "small":
		return m.Small, true
	case "medium":
		return m.Medium, true
	case "large":
		return m.Large, true
	}
	return ModelSet{}, false
}

// EmbeddingConfig selects and tunes the sentence embedder.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider" env:"PROVIDER"` // onnx, openai or mock
	BaseURL   string `yaml:"base_url" env:"BASE_URL"`
	APIKey    string `yaml:"api_key" env:"API_KEY"`
	MaxTokens int    `yaml:"max_tokens" env:"MAX_TOKENS"`
	CacheSize int    `yaml:"cache_size" env:"CACHE_SIZE"`
}

// ParaphraseConfig selects the paraphrase backend.
type ParaphraseConfig struct {
	Provider string        `yaml:"provider" env:"PROVIDER"` // openai or none
	BaseURL  string        `yaml:"base_url" env:"BASE_URL"`
	APIKey   string        `yaml:"api_key" env:"API_KEY"`
	Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Backend       string        `yaml:"backend" env:"BACKEND"` // redis, sqlite, memory or none
	TTL           time.Duration `yaml:"ttl" env:"TTL"`
	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisDB       int           `yaml:"redis_db" env:"REDIS_DB"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	SQLitePath    string        `yaml:"sqlite_path" env:"SQLITE_PATH"`
	MemorySize    int           `yaml:"memory_size" env:"MEMORY_SIZE"`
}

// WatchConfig holds inbox watch settings.
type WatchConfig struct {
	Inbox      string   `yaml:"inbox" env:"INBOX"`
	Outbox     string   `yaml:"outbox" env:"OUTBOX"`
	Extensions []string `yaml:"extensions" env:"EXTENSIONS"`
	Tier       string   `yaml:"tier" env:"TIER"`
}

// Load reads and parses the config file at path, overlays KOTOBA_* environment
// variables, applies defaults and expands paths.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	cfg.expandPaths(filepath.Dir(path))
	return &cfg, nil
}

// Default returns the built-in configuration with environment overrides applied.
// Relative paths resolve against the working directory.
func Default() (*Config, error) {
	var cfg Config
	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	cfg.expandPaths(wd)
	return &cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; existing variables win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with KOTOBA_* environment variables.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (cfg *Config) expandPaths(configDir string) {
	cfg.Cache.SQLitePath = expandPath(cfg.Cache.SQLitePath, configDir)
	cfg.Watch.Inbox = expandPath(cfg.Watch.Inbox, configDir)
	cfg.Watch.Outbox = expandPath(cfg.Watch.Outbox, configDir)
	for _, m := range []*ModelSet{&cfg.Models.Small, &cfg.Models.Medium, &cfg.Models.Large} {
		m.EmbeddingPath = expandPath(m.EmbeddingPath, configDir)
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
