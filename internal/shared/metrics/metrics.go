package metrics

import (
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// metric writes itself in the Prometheus text exposition format.
type metric interface {
	writeTo(w io.Writer)
}

type counter struct {
	name, help string
	v          atomic.Uint64
}

func (c *counter) inc() { c.v.Add(1) }

func (c *counter) writeTo(w io.Writer) {
	header(w, c.name, c.help, "counter")
	io.WriteString(w, c.name+" "+strconv.FormatUint(c.v.Load(), 10)+"\n")
}

// histogram keeps cumulative bucket counts; bounds are sorted ascending.
type histogram struct {
	name, help string

	mu     sync.Mutex
	bounds []float64
	counts []uint64
	sum    float64
	count  uint64
}

func newHistogram(name, help string, bounds ...float64) *histogram {
	sorted := append([]float64(nil), bounds...)
	sort.Float64s(sorted)
	return &histogram{name: name, help: help, bounds: sorted, counts: make([]uint64, len(sorted))}
}

func (h *histogram) observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i := sort.SearchFloat64s(h.bounds, v); i < len(h.bounds); i++ {
		h.counts[i]++
	}
}

func (h *histogram) writeTo(w io.Writer) {
	h.mu.Lock()
	counts := append([]uint64(nil), h.counts...)
	sum, count := h.sum, h.count
	h.mu.Unlock()

	header(w, h.name, h.help, "histogram")
	for i, le := range h.bounds {
		io.WriteString(w, h.name+`_bucket{le="`+formatFloat(le)+`"} `+strconv.FormatUint(counts[i], 10)+"\n")
	}
	io.WriteString(w, h.name+`_bucket{le="+Inf"} `+strconv.FormatUint(count, 10)+"\n")
	io.WriteString(w, h.name+"_sum "+formatFloat(sum)+"\n")
	io.WriteString(w, h.name+"_count "+strconv.FormatUint(count, 10)+"\n")
}

func header(w io.Writer, name, help, kind string) {
	io.WriteString(w, "# HELP "+name+" "+help+"\n# TYPE "+name+" "+kind+"\n")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var (
	documentsSaved   = &counter{name: "documents_saved_total", help: "Total documents created"}
	versionsWritten  = &counter{name: "document_versions_written_total", help: "Total document version records written"}
	summaries        = &counter{name: "summaries_generated_total", help: "Total summaries produced by the model"}
	summaryFallbacks = &counter{name: "summary_fallbacks_total", help: "Total summaries degraded to truncated text"}

	summarizeDuration = newHistogram("summarize_duration_ms", "Summarization duration in milliseconds",
		10, 50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000)

	all = []metric{documentsSaved, versionsWritten, summaries, summaryFallbacks, summarizeDuration}
)

// IncDocumentsSaved counts a newly created document.
func IncDocumentsSaved() { documentsSaved.inc() }

// IncVersionsWritten counts a version record.
func IncVersionsWritten() { versionsWritten.inc() }

// IncSummaries counts a summary produced by the model.
func IncSummaries() { summaries.inc() }

// IncSummaryFallbacks counts a summary degraded to the fallback excerpt.
func IncSummaryFallbacks() { summaryFallbacks.inc() }

// ObserveSummarizeDurationMs records one summarization; negatives count as 0.
func ObserveSummarizeDurationMs(ms float64) {
	summarizeDuration.observe(max(ms, 0))
}

// Render returns every metric in Prometheus text format.
func Render() string {
	var b strings.Builder
	for _, m := range all {
		m.writeTo(&b)
	}
	return b.String()
}

// Handler serves Render at /metrics.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(Render()))
	}
}

// SinceMillis returns the elapsed time since start in milliseconds.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
