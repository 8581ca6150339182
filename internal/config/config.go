// Package config provides configuration loading and structs for the chotto server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Search    SearchConfig    `yaml:"search"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Seed      SeedConfig      `yaml:"seed"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the directory database and indices.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
	BleveIndexPath  string `yaml:"bleve_index_path"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // mock, openai or onnx
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
	ModelPath  string `yaml:"model_path"`
	MaxTokens  int    `yaml:"max_tokens"`
}

// VectorConfig selects the vector index backend.
type VectorConfig struct {
	Backend string      `yaml:"backend"` // memory or redis
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds the Redis/Valkey connection used by the redis backend.
type RedisConfig struct {
	Addrs     []string `yaml:"addrs"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	IndexName string   `yaml:"index_name"`
	KeyPrefix string   `yaml:"key_prefix"`
}

// SearchConfig holds query limits and result shaping.
type SearchConfig struct {
	DefaultLimit        int    `yaml:"default_limit"`
	MaxLimit            int    `yaml:"max_limit"`
	MaxResults          int    `yaml:"max_results"`
	TimeoutMs           int    `yaml:"timeout_ms"`
	PlaceholderUserName string `yaml:"placeholder_user_name"`
}

// IngestConfig controls how the directory is embedded into the vector index.
type IngestConfig struct {
	Workers   int    `yaml:"workers"`
	PerHolder bool   `yaml:"per_holder"`
	IDScheme  string `yaml:"id_scheme"` // assignment or composite
}

// SeedConfig points at a YAML or XLSX directory snapshot.
type SeedConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Embedding providers.
const (
	ProviderMock   = "mock"
	ProviderOpenAI = "openai"
	ProviderONNX   = "onnx"
)

// Vector backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Per-holder vector id schemes.
const (
	IDSchemeAssignment = "assignment"
	IDSchemeComposite  = "composite"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Load reads and parses the config file at path, expands ${VAR} references and paths,
// applies defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	if cfg.Seed.Path != "" {
		cfg.Seed.Path = expandPath(cfg.Seed.Path, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated config with every default applied and paths expanded
// against the home directory. Used when no config file is given.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, ".")
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, ".")
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, ".")
	return &cfg
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case ProviderMock, ProviderONNX, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: unknown embedding.provider %q", ErrInvalidConfig, c.Embedding.Provider)
	}
	if c.Embedding.Provider == ProviderONNX && c.Embedding.ModelPath == "" {
		return fmt.Errorf("%w: embedding.model_path is required for provider onnx", ErrInvalidConfig)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("%w: embedding.dimensions must be positive", ErrInvalidConfig)
	}

	switch c.Vector.Backend {
	case BackendMemory:
	case BackendRedis:
		if len(c.Vector.Redis.Addrs) == 0 {
			return fmt.Errorf("%w: vector.redis.addrs is required for backend redis", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown vector.backend %q", ErrInvalidConfig, c.Vector.Backend)
	}

	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("%w: search.default_limit %d exceeds search.max_limit %d",
			ErrInvalidConfig, c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}

	switch c.Ingest.IDScheme {
	case IDSchemeAssignment, IDSchemeComposite:
	default:
		return fmt.Errorf("%w: unknown ingest.id_scheme %q", ErrInvalidConfig, c.Ingest.IDScheme)
	}
	if c.Seed.Watch && c.Seed.Path == "" {
		return fmt.Errorf("%w: seed.watch requires seed.path", ErrInvalidConfig)
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

// ExpandEnv replaces ${VAR} and ${VAR:-default} with environment values.
// A bare $ not followed by { is kept as is.
func ExpandEnv(s string) string {
	var b strings.Builder
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := strings.IndexByte(s[start:], '}')
		if end < 0 {
			b.WriteString(s)
			return b.String()
		}
		end += start
		b.WriteString(s[:start])

		name, def, hasDef := strings.Cut(s[start+2:end], ":-")
		if v, ok := os.LookupEnv(name); ok && (v != "" || !hasDef) {
			b.WriteString(v)
		} else {
			b.WriteString(def)
		}
		s = s[end+1:]
	}
}

// expandPath converts a path to absolute. "~/" expands to the home directory, paths
// starting with "./" are relative to configDir, and other relative paths are relative
// to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/"))
}
