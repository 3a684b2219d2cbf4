package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegistry_CounterIsShared(t *testing.T) {
	r := NewRegistry()
	r.Counter("x_total", "x", "").Inc()
	r.Counter("x_total", "x", "").Add(2)
	if got := r.Counter("x_total", "x", "").Value(); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestRegistry_GaugeUpDown(t *testing.T) {
	r := NewRegistry()
	g := r.Gauge("inflight", "inflight", "")
	g.Inc()
	g.Inc()
	g.Dec()
	if g.Value() != 1 {
		t.Fatalf("expected 1, got %d", g.Value())
	}
}

func TestRegistry_RenderSortedWithLabels(t *testing.T) {
	r := NewRegistry()
	r.Counter("b_total", "b help", `trigger="topic"`).Inc()
	r.Counter("b_total", "b help", `trigger="generic"`).Add(4)
	r.Counter("a_total", "a help", "").Inc()
	h := r.Histogram("lat_seconds", "latency", "", []float64{1, 0.5})
	h.Observe(0.2)
	h.Observe(3)

	rec := httptest.NewRecorder()
	r.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))
	out := rec.Body.String()

	if !strings.Contains(rec.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	for _, want := range []string{
		`b_total{trigger="generic"} 4`,
		`b_total{trigger="topic"} 1`,
		`lat_seconds_bucket{le="0.5"} 1`,
		`lat_seconds_bucket{le="1"} 1`,
		`lat_seconds_bucket{le="+Inf"} 2`,
		"lat_seconds_count 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
	if strings.Count(out, "# TYPE b_total counter") != 1 {
		t.Error("expected a single TYPE line per metric name")
	}
	if strings.Index(out, "a_total 1") > strings.Index(out, "b_total{") {
		t.Error("expected series sorted by name")
	}
}

func TestTriggers_Labelled(t *testing.T) {
	before := Triggers("generic").Value()
	Triggers("generic").Inc()
	if Triggers("generic").Value() != before+1 {
		t.Fatal("expected trigger counter to be reused")
	}
}
