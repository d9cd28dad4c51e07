package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HitsTotal counts cache hits per group.
	HitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ripper_cache_hits_total",
			Help: "Total number of response cache hits.",
		},
		[]string{"cache"},
	)

	// MissesTotal counts cache misses per group.
	MissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ripper_cache_misses_total",
			Help: "Total number of response cache misses.",
		},
		[]string{"cache"},
	)

	// EvictionsTotal counts entries dropped by the memory backend.
	EvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ripper_cache_evictions_total",
			Help: "Total number of entries evicted from the response cache.",
		},
		[]string{"cache"},
	)
)

func init() {
	prometheus.MustRegister(HitsTotal, MissesTotal, EvictionsTotal)
}

// instrumentedCache records hits and misses and exposes the entry count at scrape time.
type instrumentedCache struct {
	inner Cache
	group string
}

func newInstrumentedCache(inner Cache, group string) *instrumentedCache {
	registerEntriesGauge(group, inner.Len)
	return &instrumentedCache{inner: inner, group: group}
}

func (c *instrumentedCache) Get(key string) ([]byte, bool) {
	val, ok := c.inner.Get(key)
	if ok {
		HitsTotal.WithLabelValues(c.group).Inc()
	} else {
		MissesTotal.WithLabelValues(c.group).Inc()
	}
	return val, ok
}

func (c *instrumentedCache) Set(key string, value []byte) {
	c.inner.Set(key, value)
}

func (c *instrumentedCache) Len() int {
	return c.inner.Len()
}

func (c *instrumentedCache) Close() error {
	unregisterEntriesGauge(c.group)
	return c.inner.Close()
}

var (
	entriesMu     sync.Mutex
	entriesGauges                       = make(map[string]prometheus.Collector)
	entriesReg    prometheus.Registerer = prometheus.DefaultRegisterer
)

// registerEntriesGauge exposes lenFunc as ripper_cache_entries{cache=group},
// replacing a previous gauge for the same group.
func registerEntriesGauge(group string, lenFunc func() int) {
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "ripper_cache_entries",
		Help:        "Current number of entries in the response cache.",
		ConstLabels: prometheus.Labels{"cache": group},
	}, func() float64 { return float64(lenFunc()) })

	entriesMu.Lock()
	defer entriesMu.Unlock()

	if old, ok := entriesGauges[group]; ok {
		entriesReg.Unregister(old)
	}
	entriesGauges[group] = gauge
	_ = entriesReg.Register(gauge)
}

func unregisterEntriesGauge(group string) {
	entriesMu.Lock()
	defer entriesMu.Unlock()

	if g, ok := entriesGauges[group]; ok {
		entriesReg.Unregister(g)
		delete(entriesGauges, group)
	}
}
