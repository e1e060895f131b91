package observe

import (
	"context"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	mp, reader := NewManualProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestRecordCommand(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCommand(ctx, "attack", "success", 2*time.Millisecond)
	m.RecordCommand(ctx, "attack", "success", 4*time.Millisecond)
	m.RecordCommand(ctx, "attack", "failure", time.Millisecond)

	rm := collect(t, reader)

	counter := findMetric(rm, "osricore.commands.processed")
	if counter == nil {
		t.Fatal("commands counter not found")
	}
	sum, ok := counter.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("counter data is %T", counter.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(sum.DataPoints) != 2 {
		t.Errorf("data points = %d, want one per outcome", len(sum.DataPoints))
	}

	hist := findMetric(rm, "osricore.command.duration")
	if hist == nil {
		t.Fatal("duration histogram not found")
	}
	h, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("histogram data is %T", hist.Data)
	}
	var count uint64
	for _, dp := range h.DataPoints {
		count += dp.Count
	}
	if count != 3 {
		t.Errorf("histogram count = %d, want 3", count)
	}
}

func TestRecordRule(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRule(ctx, "attack-roll", "success")
	m.RecordRuleError(ctx, "damage-roll")

	rm := collect(t, reader)
	for _, name := range []string{"osricore.rule.executions", "osricore.rule.errors"} {
		if findMetric(rm, name) == nil {
			t.Errorf("%s not found", name)
		}
	}
}

func TestReport_SortedLines(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	m.RecordRule(ctx, "b-rule", "success")
	m.RecordRule(ctx, "a-rule", "failure")

	lines, err := Report(ctx, reader)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 {
		t.Fatalf("lines = %v", lines)
	}
	if !strings.Contains(lines[0], "rule=a-rule") || !strings.HasSuffix(lines[0], " 1") {
		t.Errorf("first line = %q", lines[0])
	}
}
