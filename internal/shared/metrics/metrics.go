package metrics

import (
	"bytes"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	analysisRunsTotal      atomic.Uint64
	analysisAllFailedTotal atomic.Uint64
	analysisKindFailures   = newLabeledCounter()
	fixCallsTotal          = newLabeledCounter()
	autofixBatchesTotal    atomic.Uint64
	questionsTotal         atomic.Uint64
	httpPanics             = newLabeledCounter()
	rateLimited            = newLabeledCounter()

	analysisDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncAnalysisRun counts one orchestrated run. allFailed marks runs where
// every kind failed.
func IncAnalysisRun(allFailed bool) {
	analysisRunsTotal.Add(1)
	if allFailed {
		analysisAllFailedTotal.Add(1)
	}
}

// IncAnalysisKindFailed counts a failed analysis kind.
func IncAnalysisKindFailed(kind string) {
	analysisKindFailures.Inc(kind)
}

// IncFixCall counts a settled fix provider call by outcome ("succeeded" or "failed").
func IncFixCall(outcome string) {
	fixCallsTotal.Inc(outcome)
}

// IncAutoFixBatch counts a finished batch.
func IncAutoFixBatch() {
	autofixBatchesTotal.Add(1)
}

// IncQuestion counts an answered document question.
func IncQuestion() {
	questionsTotal.Add(1)
}

// IncPanic counts a recovered handler panic by route.
func IncPanic(route string) {
	if route == "" {
		route = "unmatched"
	}
	httpPanics.Inc(route)
}

// IncRateLimited counts a rejected request by limiter group.
func IncRateLimited(group string) {
	rateLimited.Inc(group)
}

// ObserveAnalysisDurationMs records an analysis run duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "analysis_runs_total", "Total analysis runs", analysisRunsTotal.Load())
	writeCounter(&buf, "analysis_runs_all_failed_total", "Analysis runs where every kind failed", analysisAllFailedTotal.Load())
	writeLabeledCounter(&buf, "analysis_kind_failures_total", "Failed analyses by kind", "kind", analysisKindFailures.Snapshot())
	writeLabeledCounter(&buf, "fix_calls_total", "Settled fix provider calls by outcome", "outcome", fixCallsTotal.Snapshot())
	writeCounter(&buf, "autofix_batches_total", "Finished auto-fix batches", autofixBatchesTotal.Load())
	writeCounter(&buf, "document_questions_total", "Answered document questions", questionsTotal.Load())
	writeLabeledCounter(&buf, "http_panics_total", "Recovered handler panics by route", "route", httpPanics.Snapshot())
	writeLabeledCounter(&buf, "http_rate_limited_total", "Requests rejected by the rate limiter", "group", rateLimited.Snapshot())
	writeHistogram(&buf, "analysis_duration_ms", "Analysis run duration in milliseconds", analysisDuration.Snapshot())
	return buf.String()
}

type labeledCounter struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newLabeledCounter() *labeledCounter {
	return &labeledCounter{values: make(map[string]uint64)}
}

func (l *labeledCounter) Inc(label string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values[label]++
}

func (l *labeledCounter) Snapshot() map[string]uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Clone(l.values)
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func writeLabeledCounter(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	for _, k := range slices.Sorted(maps.Keys(values)) {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
