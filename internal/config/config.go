// Package config provides configuration loading and structs for the vecsearch server, CLI and agent.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Collection CollectionConfig `yaml:"collection"`
	Index      IndexConfig      `yaml:"index"`
	Search     SearchConfig     `yaml:"search"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Service    ServiceConfig    `yaml:"service"`
	Agent      AgentConfig      `yaml:"agent"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Backend is one of sqlite, bolt, memory.
	Backend      string `yaml:"backend"`
	DatabasePath string `yaml:"database_path"`
}

// CollectionConfig describes the collection the server ensures at startup.
type CollectionConfig struct {
	Name          string `yaml:"name"`
	Dimension     int    `yaml:"dimension"`
	MaxTextLength int    `yaml:"max_text_length"`
}

// IndexConfig holds the parameters of the index built at startup.
type IndexConfig struct {
	Metric string `yaml:"metric"`
	Type   string `yaml:"type"`
	NList  int    `yaml:"nlist"`
}

// SearchConfig holds query defaults.
type SearchConfig struct {
	DefaultK int `yaml:"default_k"`
	MaxK     int `yaml:"max_k"`
	// NProbe is the number of IVF partitions scanned per query, independent of index.nlist.
	NProbe int `yaml:"nprobe"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	// Provider is one of onnx, hash, mock.
	Provider   string `yaml:"provider"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	Workers    int    `yaml:"workers"`
	// MaxBatches caps the number of batches embedded at the same time.
	MaxBatches int `yaml:"max_batches"`
}

// ServiceConfig holds facade settings.
type ServiceConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// AgentConfig holds the LLM classifier and the service client settings.
type AgentConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Temperature float64       `yaml:"temperature"`
	ServiceURL  string        `yaml:"service_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

// APIKey reads the LLM API key from the configured environment variable.
func (a AgentConfig) APIKey() string {
	return os.Getenv(a.APIKeyEnv)
}

// WatchConfig holds inbox watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Include     []string `yaml:"include"`
	Exclude     []string `yaml:"exclude"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, applies defaults and environment
// overrides, and expands paths. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Default returns a config with defaults and environment overrides applied, for running
// without a config file. Relative paths are resolved against the home directory.
func Default() (*Config, error) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, ".")
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, ".")
	return cfg, nil
}

// ApplyEnv overrides server address settings from VECSEARCH_HOST and VECSEARCH_PORT.
func ApplyEnv(cfg *Config) error {
	if host := os.Getenv("VECSEARCH_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("VECSEARCH_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 || p > 65535 {
			return fmt.Errorf("invalid VECSEARCH_PORT: %q", port)
		}
		cfg.Server.Port = p
	}
	return nil
}

// Validate checks settings that must agree with each other.
func (c *Config) Validate() error {
	if c.Collection.Dimension != c.Embedding.Dimensions {
		return fmt.Errorf("collection.dimension (%d) must equal embedding.dimensions (%d)",
			c.Collection.Dimension, c.Embedding.Dimensions)
	}
	if c.Search.DefaultK > c.Search.MaxK {
		return fmt.Errorf("search.default_k (%d) exceeds search.max_k (%d)", c.Search.DefaultK, c.Search.MaxK)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
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
