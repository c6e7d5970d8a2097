package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrTool      = "tool"
	attrOutcome   = "outcome"
	attrRule      = "rule"
	attrLabel     = "label"
	attrCategory  = "category"
)

// otherValue replaces label values that are not tracked.
const otherValue = "other"

var durationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}

// timed pairs an event counter with a duration histogram. The zero value
// records nothing.
type timed struct {
	count    metric.Int64Counter
	duration metric.Float64Histogram
}

func (t timed) record(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	if t.count == nil || t.duration == nil {
		return
	}
	opt := metric.WithAttributes(attrs...)
	t.count.Add(ctx, 1, opt)
	t.duration.Record(ctx, d.Seconds(), opt)
}

// Metrics records agent metrics. A nil *Metrics and the zero value are
// no-op recorders, so callers never check before recording.
type Metrics struct {
	emails        timed
	ai            timed
	batches       timed
	googleAPI     timed
	httpRequests  timed
	tools         timed
	ruleMatches   metric.Int64Counter
	tasksCreated  metric.Int64Counter
	notifications metric.Int64Counter

	detailedLabels bool

	mu         sync.RWMutex
	knownRules map[string]bool
}

// meterBuilder creates instruments and keeps the first error.
type meterBuilder struct {
	meter metric.Meter
	err   error
}

func (b *meterBuilder) counter(name, desc, unit string) metric.Int64Counter {
	if b.err != nil {
		return nil
	}
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		b.err = fmt.Errorf("failed to create %s counter: %w", name, err)
	}
	return c
}

func (b *meterBuilder) timed(prefix, what, unit string) timed {
	t := timed{count: b.counter(prefix+"_total", "Total number of "+what, unit)}
	if b.err != nil {
		return timed{}
	}
	h, err := b.meter.Float64Histogram(prefix+"_duration_seconds",
		metric.WithDescription("Duration of "+what+" in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		b.err = fmt.Errorf("failed to create %s histogram: %w", prefix, err)
		return timed{}
	}
	t.duration = h
	return t
}

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	b := &meterBuilder{meter: meter}
	m := &Metrics{
		emails:        b.timed("emails_processed", "emails run through the pipeline", "{email}"),
		ai:            b.timed("ai_classifications", "language model classifications", "{classification}"),
		batches:       b.timed("batch_runs", "batch cycles", "{run}"),
		googleAPI:     b.timed("google_api_operations", "Google API operations", "{operation}"),
		httpRequests:  b.timed("http_requests", "HTTP requests", "{request}"),
		tools:         b.timed("mcp_tool_invocations", "MCP tool invocations", "{invocation}"),
		ruleMatches:   b.counter("rule_matches_total", "Total number of rule matches", "{match}"),
		tasksCreated:  b.counter("tasks_created_total", "Total number of tasks created", "{task}"),
		notifications: b.counter("webhook_notifications_total", "Total number of webhook notifications by result", "{notification}"),

		detailedLabels: detailedLabels,
		knownRules:     make(map[string]bool),
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

// TrackRules allows the given rule names as metric labels even when
// detailed labels are off.
func (m *Metrics) TrackRules(names ...string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.knownRules == nil {
		m.knownRules = make(map[string]bool)
	}
	for _, n := range names {
		m.knownRules[n] = true
	}
}

func (m *Metrics) RecordEmailProcessed(ctx context.Context, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.emails.record(ctx, duration, attribute.String(attrOutcome, outcome))
}

// RecordRuleMatch counts a match. Untracked rule names collapse to "other"
// unless detailed labels are on.
func (m *Metrics) RecordRuleMatch(ctx context.Context, rule string) {
	if m == nil || m.ruleMatches == nil {
		return
	}
	m.mu.RLock()
	name := boundedLabel(rule, m.detailedLabels, m.knownRules)
	m.mu.RUnlock()
	m.ruleMatches.Add(ctx, 1, metric.WithAttributes(attribute.String(attrRule, name)))
}

// RecordAIClassification records a classifier call. Status is "success"
// for a parsed verdict and "error" when the fallback verdict was used.
func (m *Metrics) RecordAIClassification(ctx context.Context, label, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ai.record(ctx, duration, attribute.String(attrLabel, label), attribute.String(attrStatus, status))
}

func (m *Metrics) RecordTaskCreated(ctx context.Context, category string) {
	if m == nil || m.tasksCreated == nil {
		return
	}
	m.tasksCreated.Add(ctx, 1, metric.WithAttributes(attribute.String(attrCategory, category)))
}

func (m *Metrics) RecordBatchRun(ctx context.Context, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.batches.record(ctx, duration, attribute.String(attrStatus, status))
}

// RecordGoogleAPIOperation records one call against service (gmail, tasks)
// with an operation such as list or modify.
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.googleAPI.record(ctx, duration,
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status))
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.record(ctx, duration,
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)))
}

// RecordWebhook counts a notification by result: accepted, ignored or
// rejected.
func (m *Metrics) RecordWebhook(ctx context.Context, result string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.tools.record(ctx, duration, attribute.String(attrTool, toolName), attribute.String(attrStatus, status))
}

// boundedLabel keeps v when detailed labels are on or v is in allowed.
// Rule names are operator-defined, so untracked ones collapse to "other".
func boundedLabel(v string, detailed bool, allowed map[string]bool) string {
	if v == "" {
		return "none"
	}
	if detailed || allowed[v] {
		return v
	}
	return otherValue
}
