// Package health serves liveness and readiness checks for the Dungeon Master
// service.
//
//   - GET /healthz        liveness; always 200 while the process serves HTTP.
//   - GET /readyz         readiness; 200 only when every [Checker] passes.
//   - GET /api/health     alias of /readyz for the web client.
//
// Responses are JSON objects with a "status" field ("ok" or "fail"), the
// service version and a "checks" map with the result of each named checker.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/dungeonmaster/internal/resilience"
	"github.com/MrWong99/dungeonmaster/pkg/kv"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Checker is a named dependency check. Check returns nil when the dependency
// is healthy.
type Checker struct {
	// Name labels the check in the response, e.g. "storage" or "llm".
	Name string

	// Check tests the dependency. It must respect context cancellation.
	Check func(ctx context.Context) error
}

type result struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Handler serves the health endpoints. The checker list is fixed at
// construction time.
type Handler struct {
	version  string
	checkers []Checker
}

// New creates a [Handler] reporting version. All checkers run concurrently
// on each readiness request.
func New(version string, checkers ...Checker) *Handler {
	return &Handler{version: version, checkers: append([]Checker(nil), checkers...)}
}

// Healthz is the liveness check.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok", Version: h.version})
}

// Readyz runs every checker with a [checkTimeout] deadline and reports 503
// if any fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks, ok := h.Run(r.Context())
	res := result{Status: "ok", Version: h.version, Checks: checks}
	status := http.StatusOK
	if !ok {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Run executes all checkers and returns their results keyed by name along
// with whether all of them passed.
func (h *Handler) Run(ctx context.Context) (map[string]string, bool) {
	var (
		mu     sync.Mutex
		checks = make(map[string]string, len(h.checkers))
		allOK  = true
	)
	var g errgroup.Group
	for _, c := range h.checkers {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			err := c.Check(cctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				checks[c.Name] = "fail: " + err.Error()
				allOK = false
				return nil
			}
			checks[c.Name] = "ok"
			return nil
		})
	}
	_ = g.Wait()
	return checks, allOK
}

// Register adds the health routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	mux.HandleFunc("GET /api/health", h.Readyz)
}

// ─── Checkers ────────────────────────────────────────────────────────────────

// healthKey is read by [Storage]. It never holds data.
const healthKey = "dungeonmaster-health-check"

// Storage checks that the key-value backend answers a read. A missing key is
// healthy.
func Storage(b kv.Backend) Checker {
	return Checker{Name: "storage", Check: func(ctx context.Context) error {
		_, _, err := b.GetItem(ctx, healthKey)
		return err
	}}
}

// Pinger is implemented by database-backed stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks a database connection.
func Ping(name string, p Pinger) Checker {
	return Checker{Name: name, Check: p.Ping}
}

// BreakerStatus is implemented by *resilience.LLMFallback.
type BreakerStatus interface {
	Status() []resilience.EntryStatus
}

// Breakers fails when every provider's circuit breaker is open, meaning no
// turn can currently be narrated.
func Breakers(name string, s BreakerStatus) Checker {
	return Checker{Name: name, Check: func(context.Context) error {
		entries := s.Status()
		for _, e := range entries {
			if e.State != resilience.StateOpen {
				return nil
			}
		}
		if len(entries) == 0 {
			return errors.New("no providers configured")
		}
		return fmt.Errorf("all %d provider circuits open", len(entries))
	}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
