package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if !filepath.IsAbs(cfg.Storage.DatabasePath) {
		t.Errorf("database_path should be absolute, got %q", cfg.Storage.DatabasePath)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "debug: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("port = %d, want 8090", cfg.Server.Port)
	}
	if cfg.Embedding.Provider != ProviderMock || cfg.Embedding.Dimensions != 384 {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if cfg.Vector.Backend != BackendMemory {
		t.Errorf("backend = %q", cfg.Vector.Backend)
	}
	s := cfg.Search
	if s.DefaultLimit != 5 || s.MaxLimit != 100 || s.MaxResults != 200 || s.TimeoutMs != 10000 {
		t.Errorf("search = %+v", s)
	}
	if s.PlaceholderUserName != "名前なし" {
		t.Errorf("placeholder = %q", s.PlaceholderUserName)
	}
	if cfg.Ingest.IDScheme != IDSchemeAssignment || cfg.Ingest.Workers != 4 {
		t.Errorf("ingest = %+v", cfg.Ingest)
	}
}

func TestLoad_OpenAIDimensionsDefault(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
embedding:
  provider: openai
  api_key: sk-test
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("dimensions = %d, want 1536", cfg.Embedding.Dimensions)
	}
}

func TestLoad_ExpandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/directory.db"
seed:
  path: "./seed.yaml"
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "directory.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %q, want %q", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "seed.yaml"); cfg.Seed.Path != want {
		t.Errorf("seed.path = %q, want %q", cfg.Seed.Path, want)
	}
}

func TestLoad_TildeExpandsToHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg, err := Load(writeConfig(t, "storage:\n  database_path: \"~/x/directory.db\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "x", "directory.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %q, want %q", cfg.Storage.DatabasePath, want)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("CHOTTO_TEST_KEY", "sk-from-env")
	t.Setenv("CHOTTO_TEST_EMPTY", "")
	cfg, err := Load(writeConfig(t, `
embedding:
  provider: openai
  api_key: ${CHOTTO_TEST_KEY}
  model: ${CHOTTO_TEST_EMPTY:-text-embedding-3-small}
server:
  host: ${CHOTTO_TEST_UNSET:-0.0.0.0}
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Embedding.APIKey != "sk-from-env" {
		t.Errorf("api_key = %q", cfg.Embedding.APIKey)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("model = %q", cfg.Embedding.Model)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host = %q", cfg.Server.Host)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("CHOTTO_A", "a")
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"${CHOTTO_A}", "a"},
		{"x-${CHOTTO_A}-y", "x-a-y"},
		{"${CHOTTO_MISSING}", ""},
		{"${CHOTTO_MISSING:-def}", "def"},
		{"$HOME stays", "$HOME stays"},
		{"${unterminated", "${unterminated"},
	}
	for _, tt := range tests {
		if got := ExpandEnv(tt.in); got != tt.want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "word2vec" }},
		{"onnx without model", func(c *Config) { c.Embedding.Provider = ProviderONNX; c.Embedding.ModelPath = "" }},
		{"unknown backend", func(c *Config) { c.Vector.Backend = "faiss" }},
		{"redis without addrs", func(c *Config) { c.Vector.Backend = BackendRedis; c.Vector.Redis.Addrs = nil }},
		{"default above max", func(c *Config) { c.Search.DefaultLimit = 500 }},
		{"bad id scheme", func(c *Config) { c.Ingest.IDScheme = "uuid" }},
		{"watch without seed", func(c *Config) { c.Seed.Watch = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}

	keyless := Default()
	keyless.Embedding.Provider = ProviderOpenAI
	keyless.Embedding.APIKey = ""
	if err := keyless.Validate(); err != nil {
		t.Errorf("openai without a key should start degraded, got %v", err)
	}
}

func TestLoad_InvalidRejected(t *testing.T) {
	_, err := Load(writeConfig(t, "vector:\n  backend: faiss\n"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Load() = %v, want ErrInvalidConfig", err)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Seed.Path = "/tmp/seed.yaml"
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Seed.Path != "/tmp/seed.yaml" || loaded.Search.MaxResults != cfg.Search.MaxResults {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
}
