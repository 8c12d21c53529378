package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	inferenceRequestsTotal  atomic.Uint64
	inferenceMalformedTotal atomic.Uint64
	inferenceFailedTotal    atomic.Uint64

	ingestCompletedTotal atomic.Uint64
	ingestFailedTotal    atomic.Uint64
	ingestIgnoredTotal   atomic.Uint64

	inferenceDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncInferenceRequests counts a prompt sent to the inference endpoint.
func IncInferenceRequests() {
	inferenceRequestsTotal.Add(1)
}

// IncInferenceMalformed counts a reply that lacked the candidate text path.
func IncInferenceMalformed() {
	inferenceMalformedTotal.Add(1)
}

// IncInferenceFailed counts a transport-level failure.
func IncInferenceFailed() {
	inferenceFailedTotal.Add(1)
}

// IncIngestCompleted counts a PDF whose text replaced the session document.
func IncIngestCompleted() {
	ingestCompletedTotal.Add(1)
}

// IncIngestFailed counts a PDF the parser could not read.
func IncIngestFailed() {
	ingestFailedTotal.Add(1)
}

// IncIngestIgnored counts uploads whose declared type was not PDF.
func IncIngestIgnored() {
	ingestIgnoredTotal.Add(1)
}

// ObserveInferenceDurationMs records an inference round trip in milliseconds.
func ObserveInferenceDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	inferenceDuration.Observe(value)
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
	writeCounter(&buf, "inference_requests_total", "Total prompts sent to the inference endpoint", inferenceRequestsTotal.Load())
	writeCounter(&buf, "inference_malformed_total", "Total inference replies without candidate text", inferenceMalformedTotal.Load())
	writeCounter(&buf, "inference_failed_total", "Total inference transport failures", inferenceFailedTotal.Load())
	writeHistogram(&buf, "inference_duration_ms", "Inference round trip in milliseconds", inferenceDuration.Snapshot())
	writeCounter(&buf, "ingest_completed_total", "Total PDF ingestions applied to a session", ingestCompletedTotal.Load())
	writeCounter(&buf, "ingest_failed_total", "Total PDF ingestions abandoned after a parse error", ingestFailedTotal.Load())
	writeCounter(&buf, "ingest_ignored_total", "Total uploads ignored for a non-PDF type", ingestIgnoredTotal.Load())
	return buf.String()
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

// Observe adds value to the first bucket whose bound it fits; buckets are
// accumulated at render time.
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
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
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

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
