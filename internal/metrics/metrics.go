// Package metrics provides atomic counters for engine observability.
// Counters are lock-free (sync/atomic) and safe for concurrent use.
package metrics

import (
	"sync/atomic"
)

// Counters holds atomic observability counters for the habit engine.
type Counters struct {
	EventsRecorded       atomic.Int64 // events appended to the log
	EventErrors          atomic.Int64 // rejected or failed event writes
	AnalysisRuns         atomic.Int64 // full analysis passes
	PatternsDetected     atomic.Int64 // patterns emitted by detectors
	DetectorErrors       atomic.Int64 // detector failures (isolated, run continues)
	HabitsStored         atomic.Int64 // habits created or confirmed
	SuggestionsGenerated atomic.Int64 // suggestions newly created
	SuggestRequests      atomic.Int64 // active/for-context suggestion queries
	ResponsesAccepted    atomic.Int64 // accepted suggestion responses
	ResponsesRejected    atomic.Int64 // rejected suggestion responses
	ResponsesDeferred    atomic.Int64 // deferred suggestion responses
	AnalysisLatencySumMs atomic.Int64 // cumulative analysis latency
}

// Global is the process-wide metrics singleton.
var Global = &Counters{}

// Snapshot returns a point-in-time copy of all counters as a
// string-keyed map. Per-field consistent, not cross-field.
func (c *Counters) Snapshot() map[string]int64 {
	return map[string]int64{
		"events_recorded":         c.EventsRecorded.Load(),
		"event_errors":            c.EventErrors.Load(),
		"analysis_runs":           c.AnalysisRuns.Load(),
		"patterns_detected":       c.PatternsDetected.Load(),
		"detector_errors":         c.DetectorErrors.Load(),
		"habits_stored":           c.HabitsStored.Load(),
		"suggestions_generated":   c.SuggestionsGenerated.Load(),
		"suggest_requests":        c.SuggestRequests.Load(),
		"responses_accepted":      c.ResponsesAccepted.Load(),
		"responses_rejected":      c.ResponsesRejected.Load(),
		"responses_deferred":      c.ResponsesDeferred.Load(),
		"analysis_latency_sum_ms": c.AnalysisLatencySumMs.Load(),
	}
}

// Reset zeroes all counters. Useful for test isolation.
func (c *Counters) Reset() {
	c.EventsRecorded.Store(0)
	c.EventErrors.Store(0)
	c.AnalysisRuns.Store(0)
	c.PatternsDetected.Store(0)
	c.DetectorErrors.Store(0)
	c.HabitsStored.Store(0)
	c.SuggestionsGenerated.Store(0)
	c.SuggestRequests.Store(0)
	c.ResponsesAccepted.Store(0)
	c.ResponsesRejected.Store(0)
	c.ResponsesDeferred.Store(0)
	c.AnalysisLatencySumMs.Store(0)
}

// AverageAnalysisLatencyMs returns the mean analysis latency in
// milliseconds, or 0 before the first run.
func (c *Counters) AverageAnalysisLatencyMs() float64 {
	runs := c.AnalysisRuns.Load()
	if runs == 0 {
		return 0
	}
	return float64(c.AnalysisLatencySumMs.Load()) / float64(runs)
}

// AcceptanceRate returns accepted responses as a fraction of all
// responses, or 0 before any response.
func (c *Counters) AcceptanceRate() float64 {
	accepted := c.ResponsesAccepted.Load()
	total := accepted + c.ResponsesRejected.Load() + c.ResponsesDeferred.Load()
	if total == 0 {
		return 0
	}
	return float64(accepted) / float64(total)
}
