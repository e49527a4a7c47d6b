package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvOverlay lists the environment variables that override file values.
// Secrets are expected here rather than in the YAML file.
type EnvOverlay struct {
	ListenAddr string `env:"DM_LISTEN_ADDR"`
	LogLevel   string `env:"DM_LOG_LEVEL"`

	LLMProvider string `env:"DM_LLM_PROVIDER"`
	LLMModel    string `env:"DM_LLM_MODEL"`
	LLMAPIKey   string `env:"DM_LLM_API_KEY"`
	LLMBaseURL  string `env:"DM_LLM_BASE_URL"`

	// Provider-specific keys, used when an entry has no api_key of its own.
	GoogleAPIKey string `env:"GOOGLE_AI_API_KEY"`
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`

	StorageBackend string `env:"DM_STORAGE_BACKEND"`
	StoragePath    string `env:"DM_STORAGE_PATH"`
	StorageDSN     string `env:"DM_STORAGE_DSN"`
	SupabaseURL    string `env:"SUPABASE_URL"`
	SupabaseKey    string `env:"SUPABASE_KEY"`
}

// LoadDotEnv loads KEY=VALUE files into the process environment. Missing
// files are skipped and variables already set are never overwritten. With no
// paths it tries ".env" in the working directory.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: stat %q: %w", p, err)
		}
		existing = append(existing, p)
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("config: load dotenv: %w", err)
	}
	return nil
}

// ApplyEnv overlays the process environment onto cfg.
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, env.Options{})
}

// ApplyEnvFrom overlays the variables in environ onto cfg instead of the
// process environment.
func ApplyEnvFrom(cfg *Config, environ map[string]string) error {
	return applyEnv(cfg, env.Options{Environment: environ})
}

func applyEnv(cfg *Config, opts env.Options) error {
	var o EnvOverlay
	if err := env.ParseWithOptions(&o, opts); err != nil {
		return fmt.Errorf("config: parse environment: %w", err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Server.ListenAddr, o.ListenAddr)
	if o.LogLevel != "" {
		cfg.Server.LogLevel = LogLevel(o.LogLevel)
	}

	set(&cfg.Providers.LLM.Name, o.LLMProvider)
	set(&cfg.Providers.LLM.Model, o.LLMModel)
	set(&cfg.Providers.LLM.APIKey, o.LLMAPIKey)
	set(&cfg.Providers.LLM.BaseURL, o.LLMBaseURL)

	fillKey := func(e *ProviderEntry) {
		if e.APIKey != "" {
			return
		}
		switch e.Name {
		case "gemini":
			e.APIKey = firstNonEmpty(o.GoogleAPIKey, o.GeminiAPIKey)
		case "openai":
			e.APIKey = o.OpenAIAPIKey
		}
	}
	fillKey(&cfg.Providers.LLM)
	for i := range cfg.Providers.Fallbacks {
		fillKey(&cfg.Providers.Fallbacks[i])
	}

	if o.StorageBackend != "" {
		cfg.Storage.Backend = StorageBackend(o.StorageBackend)
	}
	set(&cfg.Storage.Path, o.StoragePath)
	set(&cfg.Storage.DSN, o.StorageDSN)
	set(&cfg.Storage.SupabaseURL, o.SupabaseURL)
	set(&cfg.Storage.SupabaseKey, o.SupabaseKey)
	return nil
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
