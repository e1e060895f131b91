// Package observe provides observability primitives for osricore:
// OpenTelemetry metric instruments, tracing helpers, and slog construction.
//
// Instruments are built with [NewMetrics] from an explicit
// [metric.MeterProvider]; each test uses its own provider.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// meterName is the instrumentation scope name used for all osricore metrics.
const meterName = "github.com/nathoo/osricore"

// Metrics holds the OpenTelemetry instruments recorded by the rule engine.
type Metrics struct {
	// CommandsProcessed counts processed commands. Attributes: command_type, outcome.
	CommandsProcessed metric.Int64Counter

	// CommandDuration tracks end-to-end command processing latency.
	CommandDuration metric.Float64Histogram

	// RuleExecutions counts executed rules. Attributes: rule, outcome.
	RuleExecutions metric.Int64Counter

	// RuleErrors counts rules that returned an error or panicked. Attribute: rule.
	RuleErrors metric.Int64Counter
}

// durationBuckets are histogram boundaries in seconds. Rule chains are
// in-memory, so most samples land well under a millisecond.
var durationBuckets = []float64{
	0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1,
}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.CommandsProcessed, err = m.Int64Counter("osricore.commands.processed",
		metric.WithDescription("Commands processed by command type and outcome."),
	); err != nil {
		return nil, err
	}
	if met.CommandDuration, err = m.Float64Histogram("osricore.command.duration",
		metric.WithDescription("Latency of processing one command through its rule chain."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RuleExecutions, err = m.Int64Counter("osricore.rule.executions",
		metric.WithDescription("Rules executed by rule name and outcome."),
	); err != nil {
		return nil, err
	}
	if met.RuleErrors, err = m.Int64Counter("osricore.rule.errors",
		metric.WithDescription("Rules that returned an error or panicked."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordCommand records one processed command.
func (m *Metrics) RecordCommand(ctx context.Context, commandType, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("command_type", commandType),
		attribute.String("outcome", outcome),
	)
	m.CommandsProcessed.Add(ctx, 1, attrs)
	m.CommandDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordRule records one executed rule.
func (m *Metrics) RecordRule(ctx context.Context, rule, outcome string) {
	m.RuleExecutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("rule", rule),
		attribute.String("outcome", outcome),
	))
}

// RecordRuleError records a rule that errored.
func (m *Metrics) RecordRuleError(ctx context.Context, rule string) {
	m.RuleErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("rule", rule)))
}

// NewManualProvider returns an SDK meter provider whose data can be pulled
// on demand through the returned reader. The CLI uses it for /metrics.
func NewManualProvider() (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), reader
}
