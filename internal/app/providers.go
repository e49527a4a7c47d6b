package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/dungeonmaster/internal/config"
	"github.com/MrWong99/dungeonmaster/internal/resilience"
	"github.com/MrWong99/dungeonmaster/pkg/provider/llm"
	"github.com/MrWong99/dungeonmaster/pkg/provider/llm/anyllm"
	"github.com/MrWong99/dungeonmaster/pkg/provider/llm/gemini"
	llmmock "github.com/MrWong99/dungeonmaster/pkg/provider/llm/mock"
	"github.com/MrWong99/dungeonmaster/pkg/provider/llm/openai"
)

// MockReply is the narrative returned by the "mock" provider unless its
// options set "reply".
const MockReply = "The world holds its breath, waiting for your next move."

// anyLLMBackends are served through any-llm-go. Gemini and OpenAI have
// dedicated clients.
var anyLLMBackends = []string{"anthropic", "deepseek", "mistral", "groq", "llamacpp", "llamafile"}

// RegisterProviders wires every built-in LLM factory into reg.
func RegisterProviders(reg *config.Registry) {
	reg.RegisterLLM("gemini", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []gemini.Option
		if entry.BaseURL != "" {
			opts = append(opts, gemini.WithEndpoint(entry.BaseURL))
		}
		return gemini.New(context.Background(), entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if entry.Timeout > 0 {
			opts = append(opts, openai.WithTimeout(entry.Timeout))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, openai.WithOrganization(org))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	for _, name := range anyLLMBackends {
		reg.RegisterLLM(name, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(name, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// mock answers every turn with a fixed narrative. Useful for demos and
	// for running the service without credentials.
	reg.RegisterLLM("mock", func(entry config.ProviderEntry) (llm.Provider, error) {
		reply := optString(entry.Options, "reply")
		if reply == "" {
			reply = MockReply
		}
		return &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: reply}}, nil
	})

	for _, name := range reg.LLMNames() {
		slog.Debug("registered provider", "kind", "llm", "name", name)
	}
}

// LLMStack is the narrator's provider: the primary wrapped with its
// fallbacks, each behind a circuit breaker.
type LLMStack struct {
	Provider *resilience.LLMFallback
	Name     string
	closers  []io.Closer
}

// Close releases every provider client that holds resources.
func (s *LLMStack) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// BuildLLM instantiates the configured primary and fallback providers and
// combines them. A fallback that fails to build is skipped with a warning;
// a failing primary is an error.
func BuildLLM(cfg *config.Config, reg *config.Registry) (*LLMStack, error) {
	entry := cfg.Providers.LLM
	if entry.Name == "" {
		return nil, fmt.Errorf("app: providers.llm is not configured")
	}
	primary, err := reg.CreateLLM(entry)
	if err != nil {
		return nil, err
	}
	stack := &LLMStack{Name: entry.Name}
	stack.track(primary)

	r := cfg.Resilience
	stack.Provider = resilience.NewLLMFallback(primary, entry.Name, resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  r.MaxFailures,
			ResetTimeout: r.ResetTimeout,
			HalfOpenMax:  r.HalfOpenMax,
			OnStateChange: func(name string, from, to resilience.State) {
				slog.Warn("llm circuit breaker changed state", "provider", name, "from", from, "to", to)
			},
		},
		Retry: resilience.RetryConfig{
			MaxAttempts:     r.RetryAttempts,
			InitialInterval: r.RetryInterval,
		},
	})
	for i, fb := range cfg.Providers.Fallbacks {
		p, err := reg.CreateLLM(fb)
		if err != nil {
			slog.Warn("skipping llm fallback", "index", i, "name", fb.Name, "err", err)
			continue
		}
		stack.track(p)
		stack.Provider.AddFallback(fmt.Sprintf("%s#%d", fb.Name, i+1), p)
	}
	return stack, nil
}

func (s *LLMStack) track(p llm.Provider) {
	if c, ok := p.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}
}

// optString extracts a string value from a provider Options map.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, _ := opts[key].(string)
	return v
}
