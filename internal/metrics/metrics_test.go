package metrics

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tattva/tattva/internal/bus"
	"github.com/tattva/tattva/internal/pkg/errors"
	"github.com/tattva/tattva/internal/pkg/logger"
)

func TestCounter(t *testing.T) {
	c := NewCounter("test_counter", "A test counter", nil)

	if c.Value() != 0 {
		t.Errorf("expected initial value 0, got %d", c.Value())
	}

	c.Inc()
	if c.Value() != 1 {
		t.Errorf("expected value 1 after Inc(), got %d", c.Value())
	}

	c.Add(5)
	if c.Value() != 6 {
		t.Errorf("expected value 6 after Add(5), got %d", c.Value())
	}

	// Counters can't decrease
	c.Add(-10)
	if c.Value() != 6 {
		t.Errorf("expected value 6 after Add(-10), got %d", c.Value())
	}

	c.Reset()
	if c.Value() != 0 {
		t.Errorf("expected value 0 after Reset(), got %d", c.Value())
	}
}

func TestGauge(t *testing.T) {
	g := NewGauge("test_gauge", "A test gauge", nil)

	if g.Value() != 0 {
		t.Errorf("expected initial value 0, got %f", g.Value())
	}

	g.Set(0.8125)
	if g.Value() != 0.8125 {
		t.Errorf("expected fractional value to survive, got %f", g.Value())
	}

	g.Inc()
	if g.Value() != 1.8125 {
		t.Errorf("expected value 1.8125 after Inc(), got %f", g.Value())
	}

	g.Dec()
	g.Add(-0.3125)
	if g.Value() != 0.5 {
		t.Errorf("expected value 0.5, got %f", g.Value())
	}
}

func TestHistogram(t *testing.T) {
	h := NewHistogram("test_histogram", "A test histogram", []float64{100, 1, 10, 5, 50})

	h.Observe(2.5)
	h.Observe(7.0)
	h.Observe(150.0)

	if h.Count() != 3 {
		t.Errorf("expected count 3, got %d", h.Count())
	}
	if h.Sum() != 159.5 {
		t.Errorf("expected sum 159.5, got %f", h.Sum())
	}

	if got := h.Buckets(); fmt.Sprint(got) != "[1 5 10 50 100]" {
		t.Errorf("buckets should be sorted, got %v", got)
	}

	// Cumulative counts for le=1,5,10,50,100,+Inf
	want := []int64{0, 1, 2, 2, 2, 3}
	if got := h.BucketCounts(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("BucketCounts() = %v, want %v", got, want)
	}
}

func TestCounterVec(t *testing.T) {
	cv := NewCounterVec("test_counter_vec", "A test counter vector", []string{"op", "result"})

	hit := cv.WithLabels("get", "hit")
	hit.Inc()
	hit.Inc()
	cv.WithLabels("get", "miss").Inc()

	if cv.WithLabels("get", "hit") != hit {
		t.Error("expected to get same counter instance for same labels")
	}

	counters := cv.GetAll()
	if len(counters) != 2 {
		t.Fatalf("expected 2 counters, got %d", len(counters))
	}
	if counters[0].Labels()["result"] != "hit" {
		t.Errorf("GetAll() should be ordered by label key, got %v first", counters[0].Labels())
	}
	if hit.Value() != 2 {
		t.Errorf("expected hit counter value 2, got %d", hit.Value())
	}
}

func TestCounterVec_WrongLabelCount(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on label count mismatch")
		}
	}()
	NewCounterVec("x", "x", []string{"a"}).WithLabels("1", "2")
}

func TestMetricsRecording(t *testing.T) {
	m := New()
	defer m.Close()

	m.RecordFinderRequest("cache")
	m.RecordFinderRequest("computed")
	m.RecordFinderRequest("computed")
	if got := m.FinderRequests.WithLabels("computed").Value(); got != 2 {
		t.Errorf("computed finder requests = %d, want 2", got)
	}

	m.RecordCacheOp("get", "miss")
	if got := m.CacheOperations.WithLabels("get", "miss").Value(); got != 1 {
		t.Errorf("cache misses = %d, want 1", got)
	}

	m.RecordThresholdAttempt(30, false)
	m.RecordThresholdAttempt(20, true)
	if m.ThresholdAttempts.WithLabels("30", "rejected").Value() != 1 || m.ThresholdAttempts.WithLabels("20", "accepted").Value() != 1 {
		t.Error("threshold attempts not recorded by threshold and outcome")
	}

	m.RecordCompute(12*time.Millisecond, nil)
	m.RecordCompute(time.Millisecond, errors.DataAccessError("down", nil))
	if m.ComputeLatency.Count() != 2 {
		t.Errorf("compute latency count = %d, want 2", m.ComputeLatency.Count())
	}
	if got := m.ComputeErrors.WithLabels(errors.CodeDataAccess).Value(); got != 1 {
		t.Errorf("data access compute errors = %d, want 1", got)
	}

	m.RecordFinding(-0.64, false)
	if m.LastFindingAbsCorr.Value() != 0.64 {
		t.Errorf("last |r| = %f, want 0.64", m.LastFindingAbsCorr.Value())
	}
	m.RecordFinding(0, true)
	if m.EmptyFindings.Value() != 1 || m.FindingsComputed.Value() != 2 {
		t.Errorf("findings = %d, empty = %d", m.FindingsComputed.Value(), m.EmptyFindings.Value())
	}

	m.RecordContextBuild(3*time.Millisecond, true)
	if got := m.ContextBuilds.WithLabels("degraded").Value(); got != 1 {
		t.Errorf("degraded context builds = %d, want 1", got)
	}

	m.RecordBusPublish(bus.TopicFindingComputed, time.Millisecond, fmt.Errorf("broker down"))
	if m.BusErrors.WithLabels(bus.TopicFindingComputed, "publish").Value() != 1 {
		t.Error("bus error not recorded")
	}

	m.RecordBusHandle(bus.TopicContextBuilt, nil)
	m.RecordBusHandle(bus.TopicContextBuilt, fmt.Errorf("bad payload"))
	if got := m.BusEventsReceived.WithLabels(bus.TopicContextBuilt).Value(); got != 2 {
		t.Errorf("events received = %d, want 2", got)
	}
	if got := m.BusErrors.WithLabels(bus.TopicContextBuilt, "handle").Value(); got != 1 {
		t.Errorf("handler errors = %d, want 1", got)
	}
}

func TestPrometheusFormat(t *testing.T) {
	m := New()
	defer m.Close()

	m.RecordFinderRequest("cache")
	m.RecordFinding(0.5, false)
	m.RecordHTTP("GET", "/api/hypotheses", 200, 0.02)

	out := m.PrometheusFormat()
	for _, want := range []string{
		"# TYPE tattva_finder_requests_total counter",
		`tattva_finder_requests_total{source="cache"} 1`,
		"tattva_last_finding_abs_correlation 0.5",
		"# TYPE tattva_compute_latency_ms histogram",
		`tattva_compute_latency_ms_bucket{le="+Inf"} 0`,
		`tattva_http_requests_total{method="GET",path="/api/hypotheses",status="200"} 1`,
		`tattva_http_request_duration_seconds_bucket{le="0.025",method="GET",path="/api/hypotheses"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}

	// Vectors with no samples are omitted entirely
	if strings.Contains(out, "tattva_bus_errors_total") {
		t.Error("empty counter vector should not be exported")
	}
}

func TestEscapeString(t *testing.T) {
	if got := escapeString("a\"b\\c\nd"); got != `a\"b\\c\nd` {
		t.Errorf("escapeString() = %q", got)
	}
}

func TestEventSubscriber(t *testing.T) {
	m := New()
	defer m.Close()

	b := bus.NewInstrumentedBus(bus.NewMemoryBus(logger.Discard()), m)
	if err := NewEventSubscriber(m, b).SubscribeToEvents(context.Background()); err != nil {
		t.Fatalf("SubscribeToEvents() error = %v", err)
	}

	variable := "salinity_psu"
	species := int64(3)
	b.Publish(context.Background(), bus.TopicFindingComputed, bus.NewEvent(bus.TopicFindingComputed, "test",
		map[string]any{"correlation": -0.75, "variable": variable, "species_id": species}))
	b.Publish(context.Background(), bus.TopicContextBuilt, bus.NewEvent(bus.TopicContextBuilt, "test", nil))
	b.Publish(context.Background(), bus.TopicFindingComputed, bus.NewEvent(bus.TopicFindingComputed, "test", "not an object"))

	// Close drains handlers
	b.Close()

	if got := m.LastFindingAbsCorr.Value(); got != 0.75 {
		t.Errorf("last |r| = %f, want 0.75", got)
	}
	if got := m.BusEventsReceived.WithLabels(bus.TopicContextBuilt).Value(); got != 1 {
		t.Errorf("context events received = %d, want 1", got)
	}
	if got := m.BusErrors.WithLabels(bus.TopicFindingComputed, "handle").Value(); got != 1 {
		t.Errorf("finding handler errors = %d, want 1", got)
	}
}

func TestClose_Idempotent(t *testing.T) {
	m := New()
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
