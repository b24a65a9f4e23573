// Package metrics is a small Prometheus text-format registry for counters and
// gauges.
package metrics

import (
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type Opts struct {
	Name string
	Help string
}

type collector interface {
	name() string
	writePrometheus(*strings.Builder)
}

type Registry struct {
	mu         sync.RWMutex
	collectors map[string]collector
}

func NewRegistry() *Registry {
	return &Registry{collectors: map[string]collector{}}
}

// MustRegister panics when a collector name is already taken.
func (r *Registry) MustRegister(items ...collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		name := item.name()
		if _, exists := r.collectors[name]; exists {
			panic("metrics collector already registered: " + name)
		}
		r.collectors[name] = item
	}
}

func (r *Registry) snapshot() []collector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.collectors))
	for name := range r.collectors {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]collector, len(names))
	for i, name := range names {
		out[i] = r.collectors[name]
	}
	return out
}

func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		var sb strings.Builder
		for _, c := range r.snapshot() {
			c.writePrometheus(&sb)
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(sb.String()))
	})
}

var Default = NewRegistry()

func DefaultHandler() http.Handler {
	return Default.Handler()
}

// RegisterProcessCollectors adds uptime, goroutine and heap gauges to r.
func RegisterProcessCollectors(r *Registry) {
	started := time.Now()
	heap := func(pick func(*runtime.MemStats) uint64) func() float64 {
		return func() float64 {
			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)
			return float64(pick(&mem))
		}
	}
	r.MustRegister(
		NewGaugeFunc(Opts{Name: "process_uptime_seconds", Help: "Seconds since process start."},
			func() float64 { return time.Since(started).Seconds() }),
		NewGaugeFunc(Opts{Name: "go_goroutines", Help: "Number of goroutines."},
			func() float64 { return float64(runtime.NumGoroutine()) }),
		NewGaugeFunc(Opts{Name: "go_memstats_heap_inuse_bytes", Help: "Heap in-use bytes."},
			heap(func(m *runtime.MemStats) uint64 { return m.HeapInuse })),
	)
}

type Gauge struct {
	opts  Opts
	mu    sync.Mutex
	value float64
}

func NewGauge(opts Opts) *Gauge {
	return &Gauge{opts: opts}
}

func (g *Gauge) name() string { return g.opts.Name }

func (g *Gauge) Set(v float64) {
	g.mu.Lock()
	g.value = v
	g.mu.Unlock()
}

func (g *Gauge) Add(v float64) {
	g.mu.Lock()
	g.value += v
	g.mu.Unlock()
}

func (g *Gauge) Inc() { g.Add(1) }
func (g *Gauge) Dec() { g.Add(-1) }

func (g *Gauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

func (g *Gauge) writePrometheus(sb *strings.Builder) {
	writeSample(sb, g.opts, "gauge", "", g.Value())
}

type GaugeFunc struct {
	opts Opts
	fn   func() float64
}

func NewGaugeFunc(opts Opts, fn func() float64) *GaugeFunc {
	return &GaugeFunc{opts: opts, fn: fn}
}

func (g *GaugeFunc) name() string { return g.opts.Name }

func (g *GaugeFunc) writePrometheus(sb *strings.Builder) {
	v := 0.0
	if g.fn != nil {
		v = g.fn()
	}
	writeSample(sb, g.opts, "gauge", "", v)
}

type series struct {
	labels []string
	value  float64
}

// CounterVec is a counter partitioned by label values.
type CounterVec struct {
	opts       Opts
	labelNames []string

	mu     sync.RWMutex
	series map[string]*series
}

func NewCounterVec(opts Opts, labelNames []string) *CounterVec {
	return &CounterVec{
		opts:       opts,
		labelNames: append([]string(nil), labelNames...),
		series:     map[string]*series{},
	}
}

func (c *CounterVec) name() string { return c.opts.Name }

func (c *CounterVec) WithLabelValues(values ...string) *Counter {
	return &Counter{parent: c, labelValues: values}
}

// Value reports the current count for the given label values.
func (c *CounterVec) Value(values ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := c.series[seriesKey(values)]; ok {
		return s.value
	}
	return 0
}

func (c *CounterVec) add(values []string, delta float64) {
	if len(values) != len(c.labelNames) {
		return
	}
	key := seriesKey(values)
	c.mu.Lock()
	s, ok := c.series[key]
	if !ok {
		s = &series{labels: append([]string(nil), values...)}
		c.series[key] = s
	}
	s.value += delta
	c.mu.Unlock()
}

func (c *CounterVec) writePrometheus(sb *strings.Builder) {
	c.mu.RLock()
	keys := make([]string, 0, len(c.series))
	for key := range c.series {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	rows := make([]series, len(keys))
	for i, key := range keys {
		rows[i] = *c.series[key]
	}
	c.mu.RUnlock()

	writeHead(sb, c.opts, "counter")
	for _, row := range rows {
		pairs := make([]string, len(c.labelNames))
		for i, labelName := range c.labelNames {
			pairs[i] = labelName + `="` + escapeLabelValue(row.labels[i]) + `"`
		}
		fmt.Fprintf(sb, "%s{%s} %s\n", c.opts.Name, strings.Join(pairs, ","), formatFloat(row.value))
	}
}

type Counter struct {
	parent      *CounterVec
	labelValues []string
}

// Add ignores negative deltas.
func (c *Counter) Add(v float64) {
	if c == nil || c.parent == nil || v < 0 {
		return
	}
	c.parent.add(c.labelValues, v)
}

func (c *Counter) Inc() { c.Add(1) }

func seriesKey(values []string) string {
	return strings.Join(values, "\xff")
}

func writeHead(sb *strings.Builder, opts Opts, metricType string) {
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", opts.Name, opts.Help, opts.Name, metricType)
}

func writeSample(sb *strings.Builder, opts Opts, metricType, labels string, v float64) {
	writeHead(sb, opts, metricType)
	fmt.Fprintf(sb, "%s%s %s\n", opts.Name, labels, formatFloat(v))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func escapeLabelValue(v string) string {
	return strings.NewReplacer(`\`, `\\`, "\n", `\n`, `"`, `\"`).Replace(v)
}
