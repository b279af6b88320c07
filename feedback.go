package wfcore

import (
	"github.com/wfcore/wfcore/internal/feedback"
)

// MetricsCollector accumulates per-node execution metrics across a run;
// register it via NewMetricsObserver as one of Options.Observers.
type MetricsCollector = feedback.Collector

// NewMetricsCollector creates an empty MetricsCollector.
func NewMetricsCollector() *MetricsCollector { return feedback.NewCollector() }

// NewMetricsObserver adapts a MetricsCollector to Observer.
func NewMetricsObserver(c *MetricsCollector) Observer { return feedback.NewCollectorObserver(c) }

// RunMetrics is the metrics document WriteMetrics persists and Diff
// compares against a baseline.
type RunMetrics = feedback.RunMetrics

// Feedback is the per-node diff WriteFeedback persists.
type Feedback = feedback.Feedback

// WriteMetrics, LoadBaseline, PromoteBaseline, Diff, and WriteFeedback
// implement the evolution/feedback workflow: after a run, write its
// metrics, load the prior baseline (absence is not an error), diff the
// two, and persist the result — then, if the run is a new reference
// point, promote it to the baseline for next time.
func WriteMetrics(dir string, m RunMetrics) error           { return feedback.WriteMetrics(dir, m) }
func LoadBaseline(dir, workflowID string) (*RunMetrics, error) {
	return feedback.LoadBaseline(dir, workflowID)
}
func PromoteBaseline(dir string, m RunMetrics) error { return feedback.PromoteBaseline(dir, m) }
func Diff(baseline, current RunMetrics) Feedback     { return feedback.Diff(baseline, current) }
func WriteFeedback(dir string, fb Feedback) error    { return feedback.WriteFeedback(dir, fb) }
