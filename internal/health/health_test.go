package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrWong99/dungeonmaster/internal/resilience"
	"github.com/MrWong99/dungeonmaster/pkg/kv"
	kvmock "github.com/MrWong99/dungeonmaster/pkg/kv/mock"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) result {
	t.Helper()
	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return body
}

func TestHealthz_AlwaysReturns200(t *testing.T) {
	t.Parallel()
	h := New("v1.2.3", Checker{Name: "broken", Check: func(context.Context) error { return errors.New("down") }})

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	body := decode(t, rec)
	if body.Status != "ok" || body.Version != "v1.2.3" {
		t.Errorf("body = %+v", body)
	}
}

func TestReadyz_AllCheckersPass(t *testing.T) {
	t.Parallel()
	h := New("dev",
		Storage(kv.NewMemBackend(nil)),
		Checker{Name: "llm", Check: func(context.Context) error { return nil }},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := decode(t, rec)
	if body.Checks["storage"] != "ok" || body.Checks["llm"] != "ok" {
		t.Errorf("checks = %v", body.Checks)
	}
}

func TestReadyz_StorageFailure(t *testing.T) {
	t.Parallel()
	backend := &kvmock.Backend{GetErr: errors.New("connection refused")}
	h := New("dev", Storage(backend))

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	body := decode(t, rec)
	if body.Status != "fail" || !strings.Contains(body.Checks["storage"], "connection refused") {
		t.Errorf("body = %+v", body)
	}
}

func TestReadyz_RespectsContext(t *testing.T) {
	t.Parallel()
	h := New("dev", Checker{Name: "slow", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checks, ok := h.Run(ctx)
	if ok {
		t.Fatal("cancelled check should fail")
	}
	if !strings.HasPrefix(checks["slow"], "fail:") {
		t.Errorf("checks = %v", checks)
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestPing(t *testing.T) {
	t.Parallel()
	errDown := errors.New("db down")
	c := Ping("postgres", fakePinger{err: errDown})
	if c.Name != "postgres" || !errors.Is(c.Check(context.Background()), errDown) {
		t.Fatalf("Ping checker = %q, %v", c.Name, c.Check(context.Background()))
	}
}

type fakeStatus []resilience.EntryStatus

func (f fakeStatus) Status() []resilience.EntryStatus { return f }

func TestBreakers(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		status  fakeStatus
		wantErr bool
	}{
		{"primary closed", fakeStatus{{Name: "gemini", State: resilience.StateClosed}}, false},
		{"fallback half-open", fakeStatus{
			{Name: "gemini", State: resilience.StateOpen},
			{Name: "openai", State: resilience.StateHalfOpen},
		}, false},
		{"all open", fakeStatus{
			{Name: "gemini", State: resilience.StateOpen},
			{Name: "openai", State: resilience.StateOpen},
		}, true},
		{"none", fakeStatus{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := Breakers("llm", tc.status).Check(context.Background())
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestRegister_Routes(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	New("dev").Register(mux)

	for _, path := range []string{"/healthz", "/readyz", "/api/health"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}
