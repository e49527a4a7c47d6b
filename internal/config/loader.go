package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [ApplyDefaults].
const (
	DefaultListenAddr      = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMCPPath         = "/mcp"
	DefaultMetricsPath     = "/metrics"
)

// ValidProviderNames lists the LLM providers the service registers.
// [Validate] warns about any other name.
var ValidProviderNames = []string{
	"gemini", "openai", "anthropic", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile", "mock",
}

// Load reads the YAML configuration file at path, overlays the process
// environment and returns a validated [Config].
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, overlays the environment and
// validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	return Parse(data)
}

// Parse decodes data, overlays the environment, fills defaults and
// validates. Unknown YAML keys are errors. An empty document yields the
// default configuration.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() (*Config, error) {
	return Parse(nil)
}

// ApplyDefaults fills zero fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = StorageMemory
		if cfg.Storage.Path != "" {
			cfg.Storage.Backend = StorageFile
		}
	}
	if cfg.MCP.Path == "" {
		cfg.MCP.Path = DefaultMCPPath
	}
	if cfg.Observability.MetricsPath == "" {
		cfg.Observability.MetricsPath = DefaultMetricsPath
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing every failure found; questionable but usable values
// are logged as warnings.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// Providers
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("providers.llm is not configured; narration turns will fail")
		if len(cfg.Providers.Fallbacks) > 0 {
			errs = append(errs, errors.New("providers.fallbacks requires providers.llm"))
		}
	}
	validateProviderName("providers.llm", cfg.Providers.LLM.Name)
	for i, fb := range cfg.Providers.Fallbacks {
		prefix := fmt.Sprintf("providers.fallbacks[%d]", i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		validateProviderName(prefix, fb.Name)
	}

	// Storage
	st := cfg.Storage
	switch {
	case st.Backend != "" && !st.Backend.IsValid():
		errs = append(errs, fmt.Errorf("storage.backend %q is invalid; valid values: memory, file, sqlite, postgres, supabase", st.Backend))
	case (st.Backend == StorageFile || st.Backend == StorageSQLite) && st.Path == "":
		errs = append(errs, fmt.Errorf("storage.path is required when backend is %s", st.Backend))
	case st.Backend == StoragePostgres && st.DSN == "":
		errs = append(errs, errors.New("storage.dsn is required when backend is postgres"))
	case st.Backend == StorageSupabase && (st.SupabaseURL == "" || st.SupabaseKey == ""):
		errs = append(errs, errors.New("storage.supabase_url and storage.supabase_key are required when backend is supabase"))
	}
	if st.Backend == StorageMemory {
		slog.Warn("storage.backend is memory; campaign data is lost on restart")
	}

	// Narrator
	s := cfg.Narrator.Sampling
	if s.Temperature < 0 || s.Temperature > 2 {
		errs = append(errs, fmt.Errorf("narrator.sampling.temperature %.2f is out of range [0, 2]", s.Temperature))
	}
	if s.TopP < 0 || s.TopP > 1 {
		errs = append(errs, fmt.Errorf("narrator.sampling.top_p %.2f is out of range [0, 1]", s.TopP))
	}
	if s.TopK < 0 {
		errs = append(errs, fmt.Errorf("narrator.sampling.top_k %d must not be negative", s.TopK))
	}
	if s.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("narrator.sampling.max_tokens %d must not be negative", s.MaxTokens))
	}
	if cfg.Narrator.PromptLogSize < 0 {
		errs = append(errs, fmt.Errorf("narrator.prompt_log_size %d must not be negative", cfg.Narrator.PromptLogSize))
	}

	// Context
	if cfg.Context.MaxHistory < 0 {
		errs = append(errs, fmt.Errorf("context.max_history %d must not be negative", cfg.Context.MaxHistory))
	}
	if cfg.Context.MaxFiles < 0 {
		errs = append(errs, fmt.Errorf("context.max_files %d must not be negative", cfg.Context.MaxFiles))
	}
	if err := cfg.Context.Vocabulary.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("context.vocabulary: %w", err))
	}

	// Resilience
	r := cfg.Resilience
	if r.MaxFailures < 0 || r.HalfOpenMax < 0 || r.ResetTimeout < 0 || r.RetryInterval < 0 {
		errs = append(errs, errors.New("resilience values must not be negative"))
	}

	if cfg.Session.TTL < 0 {
		errs = append(errs, fmt.Errorf("session.ttl %v must not be negative", cfg.Session.TTL))
	}
	if cfg.MCP.Enabled && !strings.HasPrefix(cfg.MCP.Path, "/") {
		errs = append(errs, fmt.Errorf("mcp.path %q must start with /", cfg.MCP.Path))
	}

	if r := cfg.Observability.TraceSampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("observability.trace_sample_ratio %.2f is out of range [0, 1]", r))
	}

	for i, seed := range cfg.Seeds {
		if seed == "" {
			errs = append(errs, fmt.Errorf("seeds[%d] is empty", i))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not a known
// provider.
func validateProviderName(field, name string) {
	if name == "" || slices.Contains(ValidProviderNames, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or a third-party provider",
		"field", field,
		"name", name,
		"known", ValidProviderNames,
	)
}
