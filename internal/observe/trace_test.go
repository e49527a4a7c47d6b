package observe

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// installTracer swaps the global tracer provider for one recording into an
// in-memory exporter. Tests using it must not run in parallel.
func installTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(orig)
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

func isHex(s string) bool {
	return strings.Trim(s, "0123456789abcdef") == ""
}

func TestCorrelationID(t *testing.T) {
	installTracer(t)
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID(background) = %q, want empty", got)
	}

	seen := make(map[string]bool)
	for range 50 {
		ctx, span := StartSpan(context.Background(), "turn")
		cid := CorrelationID(ctx)
		span.End()
		if len(cid) != 32 || !isHex(cid) {
			t.Fatalf("correlation ID %q is not a 32-digit hex trace ID", cid)
		}
		if seen[cid] {
			t.Fatalf("duplicate correlation ID %s", cid)
		}
		seen[cid] = true
	}
}

func TestStartSpan_UsesServiceTracer(t *testing.T) {
	exp := installTracer(t)
	_, span := StartSpan(context.Background(), "campaignctx.Build")
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Name != "campaignctx.Build" {
		t.Errorf("span name = %q", spans[0].Name)
	}
	if got := spans[0].InstrumentationScope.Name; got != tracerName {
		t.Errorf("scope = %q, want %q", got, tracerName)
	}
}

func TestFail(t *testing.T) {
	exp := installTracer(t)

	_, ok := StartSpan(context.Background(), "ok")
	if err := Fail(ok, nil); err != nil {
		t.Fatalf("Fail(nil) = %v", err)
	}
	ok.End()

	_, bad := StartSpan(context.Background(), "bad")
	want := errors.New("provider unavailable")
	if err := Fail(bad, want); !errors.Is(err, want) {
		t.Fatalf("Fail returned %v, want the input error", err)
	}
	bad.End()

	spans := exp.GetSpans()
	if spans[0].Status.Code != codes.Unset {
		t.Errorf("ok span status = %v, want unset", spans[0].Status.Code)
	}
	if spans[1].Status.Code != codes.Error || spans[1].Status.Description != want.Error() {
		t.Errorf("bad span status = %+v", spans[1].Status)
	}
	if len(spans[1].Events) == 0 || spans[1].Events[0].Name != "exception" {
		t.Errorf("bad span events = %+v, want a recorded exception", spans[1].Events)
	}
}

func TestLogger(t *testing.T) {
	installTracer(t)
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	Logger(context.Background(), base).Info("no span")
	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("log without span carries trace_id: %s", buf.String())
	}
	buf.Reset()

	ctx, span := StartSpan(context.Background(), "turn")
	defer span.End()
	Logger(ctx, base).Info("in span")
	line := buf.String()
	if !strings.Contains(line, "trace_id="+CorrelationID(ctx)) || !strings.Contains(line, "span_id=") {
		t.Errorf("log line missing trace fields: %s", line)
	}

	if Logger(context.Background(), nil) != slog.Default() {
		t.Error("nil base without span should return slog.Default()")
	}
}
