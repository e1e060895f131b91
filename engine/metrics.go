package engine

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/nathoo/osricore/types"
)

// rollingStats holds the engine's built-in metrics. Means are updated
// incrementally as (old*(n-1)+sample)/n.
type rollingStats struct {
	mu        sync.Mutex
	processed int
	samples   int
	avg       time.Duration
	rate      float64
	usage     map[string]int
}

func newRollingStats() *rollingStats {
	return &rollingStats{usage: map[string]int{}}
}

func (e *RuleEngine) beginCommand() {
	if !e.cfg.EnableMetrics {
		return
	}
	e.stats.mu.Lock()
	e.stats.processed++
	e.stats.mu.Unlock()
}

func (e *RuleEngine) recordChainUsage(commandType string) {
	if !e.cfg.EnableMetrics {
		return
	}
	e.stats.mu.Lock()
	e.stats.usage[commandType]++
	e.stats.mu.Unlock()
}

// finishCommand folds one sample into the rolling means. Configuration
// errors count as unsuccessful samples.
func (e *RuleEngine) finishCommand(ctx context.Context, commandType string, res types.Result, err error, d time.Duration) {
	if !e.cfg.EnableMetrics {
		return
	}
	ok := err == nil && !Failed(res)

	s := e.stats
	s.mu.Lock()
	s.samples++
	n := float64(s.samples)
	s.avg = time.Duration((float64(s.avg)*(n-1) + float64(d)) / n)
	var x float64
	if ok {
		x = 1
	}
	s.rate = (s.rate*(n-1) + x) / n
	s.mu.Unlock()

	if e.inst != nil {
		outcome := string(res.Kind)
		if err != nil {
			outcome = "error"
		}
		e.inst.RecordCommand(ctx, commandType, outcome, d)
	}
}

// Metrics returns a snapshot of the engine metrics.
func (e *RuleEngine) Metrics() types.Metrics {
	s := e.stats
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.Metrics{
		CommandsProcessed:    s.processed,
		AverageExecutionTime: s.avg,
		SuccessRate:          s.rate,
		RuleChainUsage:       maps.Clone(s.usage),
	}
}

// ResetMetrics zeroes the built-in metrics. OpenTelemetry instruments are
// cumulative and unaffected.
func (e *RuleEngine) ResetMetrics() {
	s := e.stats
	s.mu.Lock()
	s.processed, s.samples, s.avg, s.rate = 0, 0, 0, 0
	s.usage = map[string]int{}
	s.mu.Unlock()
}
