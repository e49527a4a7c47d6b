package app_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/MrWong99/dungeonmaster/internal/app"
	"github.com/MrWong99/dungeonmaster/internal/config"
	"github.com/MrWong99/dungeonmaster/internal/resilience"
	"github.com/MrWong99/dungeonmaster/pkg/provider/llm"
	llmmock "github.com/MrWong99/dungeonmaster/pkg/provider/llm/mock"
)

func TestOpenStorage(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	tests := []struct {
		name       string
		cfg        config.StorageConfig
		wantChecks []string
	}{
		{"memory", config.StorageConfig{Backend: config.StorageMemory}, []string{"storage"}},
		{"file", config.StorageConfig{Backend: config.StorageFile, Path: filepath.Join(dir, "kv")}, []string{"storage"}},
		{"sqlite", config.StorageConfig{Backend: config.StorageSQLite, Path: filepath.Join(dir, "dm.db")}, []string{"storage", "sqlite"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			st, err := app.OpenStorage(ctx, tc.cfg)
			if err != nil {
				t.Fatalf("OpenStorage: %v", err)
			}
			t.Cleanup(func() { _ = st.Close() })

			if err := st.Backend.SetItem(ctx, "k", "v"); err != nil {
				t.Fatalf("SetItem: %v", err)
			}
			if got, ok, err := st.Backend.GetItem(ctx, "k"); err != nil || !ok || got != "v" {
				t.Fatalf("GetItem = %q, %v, %v", got, ok, err)
			}
			if len(st.Checks) != len(tc.wantChecks) {
				t.Fatalf("checks = %d, want %d", len(st.Checks), len(tc.wantChecks))
			}
			for i, c := range st.Checks {
				if c.Name != tc.wantChecks[i] {
					t.Errorf("check[%d] = %q, want %q", i, c.Name, tc.wantChecks[i])
				}
				if err := c.Check(ctx); err != nil {
					t.Errorf("check %q: %v", c.Name, err)
				}
			}
		})
	}
}

func TestOpenStorage_Unknown(t *testing.T) {
	t.Parallel()
	if _, err := app.OpenStorage(context.Background(), config.StorageConfig{Backend: "redis"}); err == nil {
		t.Fatal("want error for unknown backend")
	}
}

func stubRegistry(primaryErr error) *config.Registry {
	reg := config.NewRegistry()
	reg.RegisterLLM("stub", func(config.ProviderEntry) (llm.Provider, error) {
		return &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "ok"}}, primaryErr
	})
	reg.RegisterLLM("broken", func(config.ProviderEntry) (llm.Provider, error) {
		return nil, errors.New("no credentials")
	})
	return reg
}

func TestBuildLLM_Fallbacks(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Providers: config.ProvidersConfig{
		LLM:       config.ProviderEntry{Name: "stub"},
		Fallbacks: []config.ProviderEntry{{Name: "broken"}, {Name: "stub"}},
	}}
	stack, err := app.BuildLLM(cfg, stubRegistry(nil))
	if err != nil {
		t.Fatalf("BuildLLM: %v", err)
	}
	t.Cleanup(func() { _ = stack.Close() })

	status := stack.Provider.Status()
	if len(status) != 2 {
		t.Fatalf("status = %+v, want primary plus one fallback", status)
	}
	if status[0].Name != "stub" || status[1].Name != "stub#2" {
		t.Errorf("names = %q, %q", status[0].Name, status[1].Name)
	}
	if status[0].State != resilience.StateClosed {
		t.Errorf("primary state = %v", status[0].State)
	}
}

func TestBuildLLM_Errors(t *testing.T) {
	t.Parallel()
	if _, err := app.BuildLLM(&config.Config{}, stubRegistry(nil)); err == nil {
		t.Error("missing primary: want error")
	}
	cfg := &config.Config{Providers: config.ProvidersConfig{LLM: config.ProviderEntry{Name: "broken"}}}
	if _, err := app.BuildLLM(cfg, stubRegistry(nil)); err == nil {
		t.Error("failing primary: want error")
	}
}

func TestRegisterProviders(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	app.RegisterProviders(reg)
	for _, name := range config.ValidProviderNames {
		if _, err := reg.CreateLLM(config.ProviderEntry{Name: name}); errors.Is(err, config.ErrProviderNotRegistered) {
			t.Errorf("provider %q not registered", name)
		}
	}

	p, err := reg.CreateLLM(config.ProviderEntry{Name: "mock"})
	if err != nil {
		t.Fatalf("CreateLLM(mock): %v", err)
	}
	resp, err := p.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil || resp.Content != app.MockReply {
		t.Errorf("mock reply = %+v, %v", resp, err)
	}
}
