// Package metrics provides Prometheus-compatible metrics for tattva.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// desc is the identity shared by every metric: name, help and fixed labels.
type desc struct {
	name   string
	help   string
	labels map[string]string
}

func newDesc(name, help string, labels map[string]string) desc {
	if labels == nil {
		labels = map[string]string{}
	}
	return desc{name: name, help: help, labels: labels}
}

// Name returns the metric name.
func (d desc) Name() string { return d.name }

// Help returns the metric help text.
func (d desc) Help() string { return d.help }

// Labels returns a copy of the metric labels. Labels are fixed at creation.
func (d desc) Labels() map[string]string {
	out := make(map[string]string, len(d.labels))
	for k, v := range d.labels {
		out[k] = v
	}
	return out
}

// Counter is a monotonically increasing count.
type Counter struct {
	desc
	value atomic.Int64
}

// NewCounter creates a new counter.
func NewCounter(name, help string, labels map[string]string) *Counter {
	return &Counter{desc: newDesc(name, help, labels)}
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.value.Add(1) }

// Add adds delta; negative deltas are ignored.
func (c *Counter) Add(delta int64) {
	if delta > 0 {
		c.value.Add(delta)
	}
}

// Value returns the current count.
func (c *Counter) Value() int64 { return c.value.Load() }

// Reset sets the counter back to 0.
func (c *Counter) Reset() { c.value.Store(0) }

// Gauge is a value that can go up and down. It is stored as float64 bits so
// fractional values such as |r| survive.
type Gauge struct {
	desc
	bits atomic.Uint64
}

// NewGauge creates a new gauge.
func NewGauge(name, help string, labels map[string]string) *Gauge {
	return &Gauge{desc: newDesc(name, help, labels)}
}

// Set replaces the gauge value.
func (g *Gauge) Set(value float64) { g.bits.Store(math.Float64bits(value)) }

// Add adds delta to the gauge.
func (g *Gauge) Add(delta float64) {
	for {
		old := g.bits.Load()
		if g.bits.CompareAndSwap(old, math.Float64bits(math.Float64frombits(old)+delta)) {
			return
		}
	}
}

// Inc increments the gauge by 1.
func (g *Gauge) Inc() { g.Add(1) }

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() { g.Add(-1) }

// Value returns the current gauge value.
func (g *Gauge) Value() float64 { return math.Float64frombits(g.bits.Load()) }

// DefaultBuckets are latency buckets in milliseconds.
var DefaultBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// Histogram counts observations into cumulative buckets.
type Histogram struct {
	desc
	bounds []float64

	mu     sync.RWMutex
	counts []int64 // cumulative; the last slot is +Inf
	sum    float64
	count  int64
}

// NewHistogram creates a histogram; empty buckets select DefaultBuckets.
func NewHistogram(name, help string, buckets []float64) *Histogram {
	return newHistogram(name, help, buckets, nil)
}

func newHistogram(name, help string, buckets []float64, labels map[string]string) *Histogram {
	if len(buckets) == 0 {
		buckets = DefaultBuckets
	}
	bounds := append([]float64(nil), buckets...)
	sort.Float64s(bounds)

	return &Histogram{
		desc:   newDesc(name, help, labels),
		bounds: bounds,
		counts: make([]int64, len(bounds)+1),
	}
}

// Observe records one value.
func (h *Histogram) Observe(value float64) {
	// First bucket whose bound holds the value; every later one counts it too.
	first := sort.SearchFloat64s(h.bounds, value)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += value
	h.count++
	for i := first; i < len(h.counts); i++ {
		h.counts[i]++
	}
}

// Count returns the number of observations.
func (h *Histogram) Count() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Sum returns the sum of all observed values.
func (h *Histogram) Sum() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sum
}

// Buckets returns the bucket upper bounds.
func (h *Histogram) Buckets() []float64 {
	return append([]float64(nil), h.bounds...)
}

// BucketCounts returns the cumulative count for each bucket, +Inf last.
func (h *Histogram) BucketCounts() []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]int64(nil), h.counts...)
}

// vec holds one child metric per distinct label value tuple.
type vec[M any] struct {
	desc
	labelNames []string
	create     func(labels map[string]string) M

	mu       sync.RWMutex
	children map[string]M
}

func newVec[M any](name, help string, labelNames []string, create func(map[string]string) M) *vec[M] {
	return &vec[M]{
		desc:       newDesc(name, help, nil),
		labelNames: labelNames,
		create:     create,
		children:   make(map[string]M),
	}
}

func (v *vec[M]) with(values []string) M {
	labels := bindLabels(v.labelNames, values)
	key := labelsToKey(labels)

	v.mu.RLock()
	child, ok := v.children[key]
	v.mu.RUnlock()
	if ok {
		return child
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if child, ok := v.children[key]; ok {
		return child
	}
	child = v.create(labels)
	v.children[key] = child
	return child
}

// all returns the children ordered by label key.
func (v *vec[M]) all() []M {
	v.mu.RLock()
	defer v.mu.RUnlock()

	keys := sortedKeys(v.children)
	out := make([]M, 0, len(keys))
	for _, k := range keys {
		out = append(out, v.children[k])
	}
	return out
}

// CounterVec is a family of counters partitioned by labels.
type CounterVec struct {
	*vec[*Counter]
}

// NewCounterVec creates a new counter vector.
func NewCounterVec(name, help string, labelNames []string) *CounterVec {
	return &CounterVec{newVec(name, help, labelNames, func(labels map[string]string) *Counter {
		return NewCounter(name, help, labels)
	})}
}

// WithLabels returns the counter for the given label values, creating it on
// first use. It panics when the number of values does not match the labels.
func (cv *CounterVec) WithLabels(labelValues ...string) *Counter {
	return cv.with(labelValues)
}

// GetAll returns every counter in the family, ordered by label key.
func (cv *CounterVec) GetAll() []*Counter {
	return cv.all()
}

// HistogramVec is a family of histograms partitioned by labels.
type HistogramVec struct {
	*vec[*Histogram]
}

// NewHistogramVec creates a new histogram vector.
func NewHistogramVec(name, help string, labelNames []string, buckets []float64) *HistogramVec {
	return &HistogramVec{newVec(name, help, labelNames, func(labels map[string]string) *Histogram {
		return newHistogram(name, help, buckets, labels)
	})}
}

// WithLabels returns the histogram for the given label values.
func (hv *HistogramVec) WithLabels(labelValues ...string) *Histogram {
	return hv.with(labelValues)
}

// GetAll returns every histogram in the family, ordered by label key.
func (hv *HistogramVec) GetAll() []*Histogram {
	return hv.all()
}

func bindLabels(names, values []string) map[string]string {
	if len(values) != len(names) {
		panic(fmt.Sprintf("expected %d label values, got %d", len(names), len(values)))
	}
	labels := make(map[string]string, len(names))
	for i, name := range names {
		labels[name] = values[i]
	}
	return labels
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// labelsToKey creates a stable key from a label map.
func labelsToKey(labels map[string]string) string {
	var sb strings.Builder
	for i, k := range sortedKeys(labels) {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(labels[k])
	}
	return sb.String()
}
