package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
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
  host: "0.0.0.0"
  port: 9000
storage:
  backend: bolt
  database_path: "test.db"
index:
  metric: L2
  type: FLAT
service:
  timeout: 5s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.Backend != "bolt" || cfg.Storage.DatabasePath == "" {
		t.Errorf("unexpected storage config: %+v", cfg.Storage)
	}
	if cfg.Index.Metric != "L2" || cfg.Index.Type != "FLAT" || cfg.Index.NList != 128 {
		t.Errorf("unexpected index config: %+v", cfg.Index)
	}
	if cfg.Service.Timeout != 5*time.Second {
		t.Errorf("service timeout = %v", cfg.Service.Timeout)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	cfg, err := Load(writeConfig(t, "debug: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/vec.db"
watch:
  directories: ["./inbox"]
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "vec.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	if len(cfg.Watch.Directories) != 1 || cfg.Watch.Directories[0] != filepath.Join(dir, "inbox") {
		t.Errorf("watch directories = %v", cfg.Watch.Directories)
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "server: [")); err == nil {
		t.Error("expected parse error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected read error")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 4000 {
		t.Errorf("default server: got %+v", cfg.Server)
	}
	if cfg.Collection.Name != "new_collection" || cfg.Collection.Dimension != 384 || cfg.Collection.MaxTextLength != 512 {
		t.Errorf("default collection: got %+v", cfg.Collection)
	}
	if cfg.Index.Metric != "COSINE" || cfg.Index.Type != "IVF_FLAT" || cfg.Index.NList != 128 {
		t.Errorf("default index: got %+v", cfg.Index)
	}
	if cfg.Search.DefaultK != 2 {
		t.Errorf("default k: got %d", cfg.Search.DefaultK)
	}
	if cfg.Service.Timeout != 30*time.Second {
		t.Errorf("default timeout: got %v", cfg.Service.Timeout)
	}
	if cfg.Agent.Model != "llama-3.3-70b-versatile" || cfg.Agent.APIKeyEnv != "GROQ_API_KEY" {
		t.Errorf("default agent: got %+v", cfg.Agent)
	}
	if cfg.Agent.ServiceURL != "http://127.0.0.1:4000" {
		t.Errorf("default service url: got %s", cfg.Agent.ServiceURL)
	}
	if len(cfg.Watch.Include) == 0 {
		t.Error("watch include patterns should be set by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestApplyDefaults_WatchRecursiveWhenDirectoriesSet(t *testing.T) {
	cfg := &Config{Watch: WatchConfig{Directories: []string{"/tmp/docs"}}}
	ApplyDefaults(cfg)
	if cfg.Watch.Recursive == nil || !*cfg.Watch.Recursive {
		t.Error("recursive should default to true when directories are set")
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	f := false
	if got := (&WatchConfig{}).RecursiveOrDefault(); !got {
		t.Errorf("nil: RecursiveOrDefault() = %v, want true", got)
	}
	if got := (&WatchConfig{Recursive: &f}).RecursiveOrDefault(); got {
		t.Errorf("false: RecursiveOrDefault() = %v, want false", got)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("VECSEARCH_HOST", "10.0.0.1")
	t.Setenv("VECSEARCH_PORT", "5001")
	cfg := &Config{}
	ApplyDefaults(cfg)
	if err := ApplyEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr() != "10.0.0.1:5001" {
		t.Errorf("addr = %s", cfg.Server.Addr())
	}

	t.Setenv("VECSEARCH_PORT", "not-a-port")
	if err := ApplyEnv(cfg); err == nil {
		t.Error("expected error for invalid port")
	}
}

func TestAgentConfig_APIKey(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "secret")
	a := AgentConfig{APIKeyEnv: "TEST_LLM_KEY"}
	if a.APIKey() != "secret" {
		t.Errorf("APIKey = %q", a.APIKey())
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Collection.Dimension = 128
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for dimension mismatch")
	}
	cfg.Collection.Dimension = cfg.Embedding.Dimensions
	cfg.Search.DefaultK = cfg.Search.MaxK + 1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for default_k above max_k")
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
		Service: ServiceConfig{Timeout: 7 * time.Second},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 || loaded.Service.Timeout != 7*time.Second {
		t.Errorf("loaded: port %d timeout %v", loaded.Server.Port, loaded.Service.Timeout)
	}
}
