// Package observe holds the service's telemetry: OpenTelemetry instruments
// and tracing, a Prometheus bridge (see [InitProvider]) and the HTTP
// middleware that ties requests, spans and log lines together.
//
// Components take a [*Metrics] through their options and fall back to
// [DefaultMetrics], which resolves instruments against the global meter
// provider. Tests build their own with [NewMetrics] and a ManualReader.
package observe

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/MrWong99/dungeonmaster"

// latencyBuckets are in seconds; the top end is sized for slow LLM calls.
var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Metrics bundles the service's instruments.
type Metrics struct {
	// Latencies, in seconds.
	LLMDuration           metric.Float64Histogram // provider
	ContextBuildDuration  metric.Float64Histogram // action_type
	ToolExecutionDuration metric.Float64Histogram // tool
	HTTPRequestDuration   metric.Float64Histogram // method, path, status

	// ContextFilesSelected is the number of documents attached to a prompt.
	ContextFilesSelected metric.Int64Histogram

	ProviderRequests  metric.Int64Counter // provider, status
	ProviderErrors    metric.Int64Counter // provider
	Turns             metric.Int64Counter // action_type
	ProgressionEvents metric.Int64Counter // kind
	ToolCalls         metric.Int64Counter // tool, status
	StoreErrors       metric.Int64Counter // op
}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	b := builder{meter: mp.Meter(meterName)}
	m := &Metrics{
		LLMDuration:           b.seconds("dungeonmaster.llm.duration", "Latency of narrator LLM completions."),
		ContextBuildDuration:  b.seconds("dungeonmaster.context.build.duration", "Latency of campaign context assembly."),
		ToolExecutionDuration: b.seconds("dungeonmaster.tool_execution.duration", "Latency of MCP tool execution."),

		ProviderRequests:  b.counter("dungeonmaster.provider.requests", "LLM provider requests by provider and status."),
		ProviderErrors:    b.counter("dungeonmaster.provider.errors", "LLM provider errors by provider."),
		Turns:             b.counter("dungeonmaster.turns", "Narrated turns by classified action type."),
		ProgressionEvents: b.counter("dungeonmaster.progression.events", "Progression log entries by event kind."),
		ToolCalls:         b.counter("dungeonmaster.tool.calls", "Tool invocations by tool name and status."),
		StoreErrors:       b.counter("dungeonmaster.store.errors", "Failed persistence operations by operation."),
	}

	var err error
	m.ContextFilesSelected, err = b.meter.Int64Histogram("dungeonmaster.context.files",
		metric.WithDescription("Number of context documents attached to a prompt."),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 4, 5),
	)
	b.errs = append(b.errs, err)

	// Request latency keeps the SDK's default buckets.
	m.HTTPRequestDuration, err = b.meter.Float64Histogram("dungeonmaster.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
	)
	b.errs = append(b.errs, err)

	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// builder collects instrument creation errors so NewMetrics can report them
// together.
type builder struct {
	meter metric.Meter
	errs  []error
}

func (b *builder) seconds(name, desc string) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	)
	b.errs = append(b.errs, err)
	return h
}

func (b *builder) counter(name, desc string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc))
	b.errs = append(b.errs, err)
	return c
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the process-wide instruments, created on first use
// from [otel.GetMeterProvider]. Call it after [InitProvider] so they export
// through Prometheus.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: create default metrics: " + err.Error())
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

func attrs(kv ...string) metric.MeasurementOption {
	out := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, attribute.String(kv[i], kv[i+1]))
	}
	return metric.WithAttributes(out...)
}

// RecordProviderRequest counts one LLM call with status "ok" or "error".
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, status string) {
	m.ProviderRequests.Add(ctx, 1, attrs("provider", provider, "status", status))
}

func (m *Metrics) RecordProviderError(ctx context.Context, provider string) {
	m.ProviderErrors.Add(ctx, 1, attrs("provider", provider))
}

func (m *Metrics) RecordLLMDuration(ctx context.Context, provider string, seconds float64) {
	m.LLMDuration.Record(ctx, seconds, attrs("provider", provider))
}

func (m *Metrics) RecordTurn(ctx context.Context, actionType string) {
	m.Turns.Add(ctx, 1, attrs("action_type", actionType))
}

func (m *Metrics) RecordProgression(ctx context.Context, kind string) {
	m.ProgressionEvents.Add(ctx, 1, attrs("kind", kind))
}

// RecordToolCall counts one tool invocation and records how long it took.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string, took time.Duration) {
	m.ToolCalls.Add(ctx, 1, attrs("tool", tool, "status", status))
	m.ToolExecutionDuration.Record(ctx, took.Seconds(), attrs("tool", tool))
}

// RecordStoreError counts a failed persistence operation such as "save" or
// "journal".
func (m *Metrics) RecordStoreError(ctx context.Context, op string) {
	m.StoreErrors.Add(ctx, 1, attrs("op", op))
}
