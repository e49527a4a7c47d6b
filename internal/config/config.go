// Package config provides the configuration schema, loader, environment
// overlay and LLM provider registry for the Dungeon Master service.
package config

import (
	"time"

	"github.com/MrWong99/dungeonmaster/internal/classify"
	"github.com/MrWong99/dungeonmaster/internal/narrator"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// StorageBackend selects the key-value backend behind every store.
type StorageBackend string

const (
	// StorageMemory keeps everything in process memory.
	StorageMemory StorageBackend = "memory"

	// StorageFile writes one file per key under storage.path.
	StorageFile StorageBackend = "file"

	// StorageSQLite uses a SQLite database at storage.path.
	StorageSQLite StorageBackend = "sqlite"

	// StoragePostgres uses a PostgreSQL database at storage.dsn.
	StoragePostgres StorageBackend = "postgres"

	// StorageSupabase uses a Supabase table through its REST API.
	StorageSupabase StorageBackend = "supabase"
)

// IsValid reports whether b is a recognised backend.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageMemory, StorageFile, StorageSQLite, StoragePostgres, StorageSupabase:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Providers     ProvidersConfig     `yaml:"providers"`
	Storage       StorageConfig       `yaml:"storage"`
	Narrator      NarratorConfig      `yaml:"narrator"`
	Context       ContextConfig       `yaml:"context"`
	Resilience    ResilienceConfig    `yaml:"resilience"`
	Session       SessionConfig       `yaml:"session"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`

	// Seeds lists YAML seed files applied at every startup. Seeded documents
	// overwrite stored ones with the same ID.
	Seeds []string `yaml:"seeds"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP API listens on. Default: ":8080".
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// TLS enables HTTPS when set.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// ProvidersConfig selects the narration LLM and optional fallbacks.
type ProvidersConfig struct {
	LLM ProviderEntry `yaml:"llm"`

	// Fallbacks are tried in order when LLM fails.
	Fallbacks []ProviderEntry `yaml:"fallbacks"`
}

// ProviderEntry is the configuration of one LLM backend. Name selects the
// factory in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider (e.g. "gemini", "openai").
	Name string `yaml:"name"`

	// APIKey authenticates against the provider. Usually supplied through
	// the environment rather than the file.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a model within the provider.
	Model string `yaml:"model"`

	// Timeout bounds a single completion request.
	Timeout time.Duration `yaml:"timeout"`

	// Options holds provider-specific values not covered above.
	Options map[string]any `yaml:"options"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	// Backend defaults to "file" when Path is set and "memory" otherwise.
	Backend StorageBackend `yaml:"backend"`

	// Path is the directory (file) or database file (sqlite).
	Path string `yaml:"path"`

	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn"`

	// SupabaseURL and SupabaseKey address the Supabase project.
	SupabaseURL string `yaml:"supabase_url"`
	SupabaseKey string `yaml:"supabase_key"`

	// Table overrides the Supabase table name.
	Table string `yaml:"table"`
}

// NarratorConfig tunes each DM turn.
type NarratorConfig struct {
	// Sampling overrides [narrator.DefaultSampling] field by field.
	Sampling narrator.Sampling `yaml:"sampling"`

	// PromptLogSize is the number of prompts kept for inspection. Zero
	// disables the prompt log.
	PromptLogSize int `yaml:"prompt_log_size"`
}

// ContextConfig tunes context assembly.
type ContextConfig struct {
	// MaxHistory caps the history entries kept per turn. Default: 10.
	MaxHistory int `yaml:"max_history"`

	// MaxFiles caps the documents selected per turn. Default: 5.
	MaxFiles int `yaml:"max_files"`

	// Vocabulary replaces classifier word lists. Empty lists keep the
	// built-in defaults.
	Vocabulary classify.Vocabulary `yaml:"vocabulary"`
}

// ResilienceConfig tunes the circuit breaker and retries around LLM calls.
type ResilienceConfig struct {
	MaxFailures   int           `yaml:"max_failures"`
	ResetTimeout  time.Duration `yaml:"reset_timeout"`
	HalfOpenMax   int           `yaml:"half_open_max"`
	RetryAttempts uint          `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// SessionConfig tunes session persistence.
type SessionConfig struct {
	// TTL is how long an idle session survives. Default: 30 days.
	TTL time.Duration `yaml:"ttl"`
}

// MCPConfig controls the Model Context Protocol tool endpoint.
type MCPConfig struct {
	// Enabled mounts the MCP endpoint on the HTTP server.
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path of the endpoint. Default: "/mcp".
	Path string `yaml:"path"`
}

// ObservabilityConfig controls telemetry.
type ObservabilityConfig struct {
	// ServiceName is reported in telemetry. Default: "dungeonmaster".
	ServiceName string `yaml:"service_name"`

	// MetricsPath is where Prometheus metrics are served. Default: "/metrics".
	MetricsPath string `yaml:"metrics_path"`

	// TraceSampleRatio is the fraction of new traces sampled, in [0, 1].
	// Zero samples every trace.
	TraceSampleRatio float64 `yaml:"trace_sample_ratio"`
}
