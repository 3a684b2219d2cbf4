// Package metrics exposes jokebot counters in the Prometheus text format
// without pulling in client_golang.
package metrics

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Default is the process registry the predefined metrics live in.
var Default = NewRegistry()

// Registry owns a set of named series.
type Registry struct {
	mu         sync.Mutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	startTime  time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
		startTime:  time.Now(),
	}
}

// Counter only goes up.
type Counter struct {
	name, help, labels string
	value              atomic.Int64
}

func (c *Counter) Inc() { c.value.Add(1) }
func (c *Counter) Add(n int64) { c.value.Add(n) }
func (c *Counter) Value() int64 { return c.value.Load() }

// Gauge goes up and down.
type Gauge struct {
	name, help, labels string
	value              atomic.Int64
}

func (g *Gauge) Set(v int64) { g.value.Store(v) }
func (g *Gauge) Inc() { g.value.Add(1) }
func (g *Gauge) Dec() { g.value.Add(-1) }
func (g *Gauge) Value() int64 { return g.value.Load() }

// Histogram counts observations into cumulative buckets.
type Histogram struct {
	name, help, labels string

	mu      sync.Mutex
	count   int64
	sum     float64
	bounds  []float64
	buckets []int64
}

func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i, le := range h.bounds {
		if v <= le {
			h.buckets[i]++
		}
	}
}

// Count returns the number of observations.
func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func seriesKey(name, labels string) string { return name + "{" + labels + "}" }

// Counter returns the counter for name and labels, creating it on first use.
func (r *Registry) Counter(name, help, labels string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := seriesKey(name, labels)
	if c, ok := r.counters[key]; ok {
		return c
	}
	c := &Counter{name: name, help: help, labels: labels}
	r.counters[key] = c
	return c
}

func (r *Registry) Gauge(name, help, labels string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := seriesKey(name, labels)
	if g, ok := r.gauges[key]; ok {
		return g
	}
	g := &Gauge{name: name, help: help, labels: labels}
	r.gauges[key] = g
	return g
}

func (r *Registry) Histogram(name, help, labels string, bounds []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := seriesKey(name, labels)
	if h, ok := r.histograms[key]; ok {
		return h
	}
	sorted := append([]float64(nil), bounds...)
	sort.Float64s(sorted)
	h := &Histogram{name: name, help: help, labels: labels, bounds: sorted, buckets: make([]int64, len(sorted))}
	r.histograms[key] = h
	return h
}

// WriteTo renders every series, sorted by name, in exposition format.
func (r *Registry) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# HELP jokebot_uptime_seconds Time since start in seconds\n")
	fmt.Fprintf(&sb, "# TYPE jokebot_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "jokebot_uptime_seconds %d\n", int64(time.Since(r.startTime).Seconds()))

	r.mu.Lock()
	counters := sortedValues(r.counters)
	gauges := sortedValues(r.gauges)
	histograms := sortedValues(r.histograms)
	r.mu.Unlock()

	header := headerWriter(&sb)
	for _, c := range counters {
		header(c.name, c.help, "counter")
		sb.WriteString(sample(c.name, c.labels, fmt.Sprint(c.Value())))
	}
	for _, g := range gauges {
		header(g.name, g.help, "gauge")
		sb.WriteString(sample(g.name, g.labels, fmt.Sprint(g.Value())))
	}
	for _, h := range histograms {
		header(h.name, h.help, "histogram")
		h.mu.Lock()
		for i, le := range h.bounds {
			bound := fmt.Sprintf("%g", le)
			if math.IsInf(le, 1) {
				bound = "+Inf"
			}
			sb.WriteString(sample(h.name+"_bucket", joinLabels(h.labels, `le="`+bound+`"`), fmt.Sprint(h.buckets[i])))
		}
		sb.WriteString(sample(h.name+"_bucket", joinLabels(h.labels, `le="+Inf"`), fmt.Sprint(h.count)))
		sb.WriteString(sample(h.name+"_count", h.labels, fmt.Sprint(h.count)))
		sb.WriteString(sample(h.name+"_sum", h.labels, fmt.Sprintf("%f", h.sum)))
		h.mu.Unlock()
	}

	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

// Handler serves the registry over HTTP.
func (r *Registry) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = r.WriteTo(w)
	}
}

func sortedValues[T any](m map[string]T) []T {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// headerWriter emits HELP/TYPE once per metric name.
func headerWriter(sb *strings.Builder) func(name, help, kind string) {
	seen := make(map[string]bool)
	return func(name, help, kind string) {
		if seen[name] {
			return
		}
		seen[name] = true
		fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
	}
}

func sample(name, labels, value string) string {
	if labels == "" {
		return name + " " + value + "\n"
	}
	return name + "{" + labels + "} " + value + "\n"
}

func joinLabels(a, b string) string {
	if a == "" {
		return b
	}
	return a + "," + b
}

var (
	MessagesSeen      = Default.Counter("jokebot_messages_seen_total", "Candidate messages handed to the processor", "")
	RepliesPosted     = Default.Counter("jokebot_replies_posted_total", "Replies accepted by the messaging API", "")
	PostFailures      = Default.Counter("jokebot_post_failures_total", "Replies the messaging API rejected or never received", "")
	JokeFetchFailures = Default.Counter("jokebot_joke_fetch_failures_total", "Joke lookups that errored", "")
	WebhookRequests   = Default.Counter("jokebot_webhook_requests_total", "Callbacks received on the webhook path", "")
	WebhookDropped    = Default.Counter("jokebot_webhook_dropped_total", "Callbacks dropped because the inbound queue was full", "")
	DispatchInflight  = Default.Gauge("jokebot_dispatch_inflight", "Detached post tasks not yet finished", "")

	JokeLatency = Default.Histogram("jokebot_joke_latency_seconds", "Joke lookup latency in seconds", "",
		[]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10})
)

// Triggers returns the match counter for a trigger path.
func Triggers(trigger string) *Counter {
	return Default.Counter("jokebot_triggers_total", "Messages that matched a trigger", `trigger="`+trigger+`"`)
}
