package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/MrWong99/dungeonmaster/internal/config"
)

const watcherValidYAML = `
server:
  log_level: info
providers:
  llm:
    name: mock
storage:
  backend: file
  path: ./campaign
narrator:
  sampling:
    temperature: 0.7
`

const watcherUpdatedYAML = `
server:
  log_level: debug
providers:
  llm:
    name: mock
storage:
  backend: file
  path: ./campaign
narrator:
  sampling:
    temperature: 1.2
`

// Same settings as watcherValidYAML, different bytes.
const watcherReformattedYAML = `
# campaign server
narrator:
  sampling: {temperature: 0.7}
storage: {backend: file, path: ./campaign}
providers:
  llm: {name: mock}
server:
  log_level: info
`

const watcherInvalidYAML = `
server:
  log_level: bananas
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file %q: %v", path, err)
	}
}

// reloads records every callback the watcher makes.
type reloads struct {
	mu    sync.Mutex
	calls [][2]*config.Config
	ch    chan struct{}
}

func newReloads() *reloads { return &reloads{ch: make(chan struct{}, 16)} }

func (r *reloads) fn(old, next *config.Config) {
	r.mu.Lock()
	r.calls = append(r.calls, [2]*config.Config{old, next})
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *reloads) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func startWatcher(t *testing.T, content string, onChange config.ReloadFunc) (*config.Watcher, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, content)
	w, err := config.NewWatcher(path, onChange, config.WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	t.Cleanup(w.Stop)
	return w, path
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	w, _ := startWatcher(t, watcherValidYAML, nil)
	cfg := w.Current()
	if cfg == nil || cfg.Server.LogLevel != config.LogInfo {
		t.Fatalf("Current() = %+v, want log_level info", cfg)
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()
	r := newReloads()
	w, path := startWatcher(t, watcherValidYAML, r.fn)

	writeFile(t, path, watcherUpdatedYAML)
	select {
	case <-r.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not invoked within timeout")
	}

	r.mu.Lock()
	old, next := r.calls[0][0], r.calls[0][1]
	r.mu.Unlock()
	if old.Server.LogLevel != config.LogInfo || next.Server.LogLevel != config.LogDebug {
		t.Errorf("log levels old=%q new=%q", old.Server.LogLevel, next.Server.LogLevel)
	}
	if d := config.Diff(old, next); !d.SamplingChanged || len(d.RestartRequired) != 0 {
		t.Errorf("diff = %+v, want a hot-reloadable change", d)
	}
	if w.Current() != next {
		t.Error("Current() is not the reloaded config")
	}
}

func TestWatcher_InvalidFileKeepsOldConfig(t *testing.T) {
	t.Parallel()
	r := newReloads()
	w, path := startWatcher(t, watcherValidYAML, r.fn)

	writeFile(t, path, watcherInvalidYAML)
	time.Sleep(150 * time.Millisecond)

	if n := r.count(); n != 0 {
		t.Errorf("callbacks for invalid config = %d, want 0", n)
	}
	if got := w.Current().Server.LogLevel; got != config.LogInfo {
		t.Errorf("Current() log_level = %q, want previous info", got)
	}

	// Fixing the file is picked up again.
	writeFile(t, path, watcherUpdatedYAML)
	select {
	case <-r.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("fixed config was not picked up")
	}
}

func TestWatcher_EquivalentRewriteIsSilent(t *testing.T) {
	t.Parallel()
	r := newReloads()
	w, path := startWatcher(t, watcherValidYAML, r.fn)
	before := w.Current()

	writeFile(t, path, watcherReformattedYAML)
	now := time.Now().Add(time.Second)
	if err := os.Chtimes(path, now, now); err != nil {
		t.Fatal(err)
	}
	time.Sleep(150 * time.Millisecond)

	if n := r.count(); n != 0 {
		t.Errorf("callbacks for equivalent rewrite = %d, want 0", n)
	}
	if d := config.Diff(before, w.Current()); d.Changed() {
		t.Errorf("diff after rewrite = %+v", d)
	}
}

func TestWatcher_InitialLoadFails(t *testing.T) {
	t.Parallel()
	if _, err := config.NewWatcher(filepath.Join(t.TempDir(), "absent.yaml"), nil); err == nil {
		t.Fatal("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, watcherInvalidYAML)
	if _, err := config.NewWatcher(path, nil); err == nil {
		t.Fatal("expected error for invalid file")
	}
}

func TestWatcher_StopReleasesGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, watcherValidYAML)
	w, err := config.NewWatcher(path, nil, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Stop()
	w.Stop()
}
