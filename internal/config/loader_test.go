package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MrWong99/dungeonmaster/internal/config"
)

func TestLoad_File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "dm.yaml")
	writeFile(t, path, "providers:\n  llm:\n    name: mock\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Providers.LLM.Name != "mock" {
		t.Errorf("providers.llm.name: got %q, want mock", cfg.Providers.LLM.Name)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	t.Parallel()
	cfg, err := config.Load(filepath.Join("..", "..", "configs", "example.yaml"))
	if err != nil {
		t.Fatalf("example config: %v", err)
	}
	if cfg.Storage.Backend != config.StorageSQLite {
		t.Errorf("storage.backend = %q, want sqlite", cfg.Storage.Backend)
	}
	if len(cfg.Providers.Fallbacks) != 1 || cfg.Providers.Fallbacks[0].Name != "ollama" {
		t.Errorf("fallbacks = %+v", cfg.Providers.Fallbacks)
	}
	if !cfg.MCP.Enabled || cfg.Narrator.PromptLogSize != 50 {
		t.Errorf("mcp/narrator = %+v / %+v", cfg.MCP, cfg.Narrator)
	}
}

// ── Environment overlay ──────────────────────────────────────────────────────

func TestApplyEnvFrom_Overrides(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server:    config.ServerConfig{ListenAddr: ":8080", LogLevel: config.LogInfo},
		Providers: config.ProvidersConfig{LLM: config.ProviderEntry{Name: "gemini", Model: "gemini-1.5-flash"}},
	}
	err := config.ApplyEnvFrom(cfg, map[string]string{
		"DM_LISTEN_ADDR":     ":7070",
		"DM_LOG_LEVEL":       "warn",
		"DM_LLM_MODEL":       "gemini-1.5-pro",
		"DM_STORAGE_BACKEND": "postgres",
		"DM_STORAGE_DSN":     "postgres://dm@localhost/dm",
	})
	if err != nil {
		t.Fatalf("ApplyEnvFrom: %v", err)
	}
	if cfg.Server.ListenAddr != ":7070" || cfg.Server.LogLevel != config.LogWarn {
		t.Errorf("server: got %+v", cfg.Server)
	}
	if cfg.Providers.LLM.Name != "gemini" || cfg.Providers.LLM.Model != "gemini-1.5-pro" {
		t.Errorf("providers.llm: got %+v", cfg.Providers.LLM)
	}
	if cfg.Storage.Backend != config.StoragePostgres || cfg.Storage.DSN == "" {
		t.Errorf("storage: got %+v", cfg.Storage)
	}
}

func TestApplyEnvFrom_EmptyKeepsFileValues(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Server: config.ServerConfig{ListenAddr: ":8080"}}
	if err := config.ApplyEnvFrom(cfg, map[string]string{"DM_LISTEN_ADDR": ""}); err != nil {
		t.Fatalf("ApplyEnvFrom: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr: got %q, want :8080", cfg.Server.ListenAddr)
	}
}

func TestApplyEnvFrom_ProviderKeys(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Providers: config.ProvidersConfig{
		LLM: config.ProviderEntry{Name: "gemini"},
		Fallbacks: []config.ProviderEntry{
			{Name: "openai"},
			{Name: "openai", APIKey: "explicit"},
			{Name: "ollama"},
		},
	}}
	err := config.ApplyEnvFrom(cfg, map[string]string{
		"GOOGLE_AI_API_KEY": "google-key",
		"OPENAI_API_KEY":    "openai-key",
	})
	if err != nil {
		t.Fatalf("ApplyEnvFrom: %v", err)
	}
	if got := cfg.Providers.LLM.APIKey; got != "google-key" {
		t.Errorf("llm api key: got %q, want google-key", got)
	}
	fb := cfg.Providers.Fallbacks
	if fb[0].APIKey != "openai-key" || fb[1].APIKey != "explicit" || fb[2].APIKey != "" {
		t.Errorf("fallback keys: got %q, %q, %q", fb[0].APIKey, fb[1].APIKey, fb[2].APIKey)
	}
}

func TestApplyEnvFrom_GenericKeyWins(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Providers: config.ProvidersConfig{LLM: config.ProviderEntry{Name: "openai"}}}
	err := config.ApplyEnvFrom(cfg, map[string]string{
		"DM_LLM_API_KEY": "generic",
		"OPENAI_API_KEY": "specific",
	})
	if err != nil {
		t.Fatalf("ApplyEnvFrom: %v", err)
	}
	if cfg.Providers.LLM.APIKey != "generic" {
		t.Errorf("api key: got %q, want generic", cfg.Providers.LLM.APIKey)
	}
}

// ── Dotenv ───────────────────────────────────────────────────────────────────

func TestLoadDotEnv(t *testing.T) {
	const key = "DM_TEST_DOTENV_MARKER"
	t.Cleanup(func() { os.Unsetenv(key) })

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeFile(t, path, key+"=from-file\n")

	if err := config.LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv(key); got != "from-file" {
		t.Errorf("%s: got %q, want from-file", key, got)
	}
}

func TestLoadDotEnv_NoFiles(t *testing.T) {
	t.Parallel()
	if err := config.LoadDotEnv(filepath.Join(t.TempDir(), "nothing.env")); err != nil {
		t.Fatalf("missing files must be skipped, got %v", err)
	}
}
