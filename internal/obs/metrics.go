package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Cache lookup outcomes.
const (
	LookupHit     = "hit"
	LookupMiss    = "miss"
	LookupExpired = "expired"
)

// Metrics groups the Prometheus collectors of the pricing engine. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	cacheLookups  *prometheus.CounterVec
	quotes        *prometheus.CounterVec
	quoteErrors   *prometheus.CounterVec
	driftCycles   prometheus.Counter
	demandEntries prometheus.Gauge
	cacheEntries  prometheus.Gauge
	priceRatio    prometheus.Histogram
}

// NewMetrics builds a private registry with the engine collectors plus the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricing_cache_lookups_total",
			Help: "Price cache lookups by outcome.",
		}, []string{"result"}),
		quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricing_quotes_total",
			Help: "Price quotes served by source.",
		}, []string{"source"}),
		quoteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricing_quote_errors_total",
			Help: "Rejected price quotes by reason.",
		}, []string{"reason"}),
		driftCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "demand_drift_cycles_total",
			Help: "Completed demand drift cycles.",
		}),
		demandEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "demand_registry_entries",
			Help: "Flights tracked by the demand registry.",
		}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "price_cache_entries",
			Help: "Entries held by the price cache, expired ones included until read.",
		}),
		priceRatio: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricing_price_ratio",
			Help:    "Computed dynamic price divided by base fare.",
			Buckets: prometheus.LinearBuckets(1.0, 0.1, 11),
		}),
	}
	m.Registry.MustRegister(
		m.cacheLookups,
		m.quotes,
		m.quoteErrors,
		m.driftCycles,
		m.demandEntries,
		m.cacheEntries,
		m.priceRatio,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// CacheLookup records one cache lookup outcome.
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Quote records a served quote; fromCache selects the source label.
func (m *Metrics) Quote(fromCache bool, ratio float64) {
	if m == nil {
		return
	}
	if fromCache {
		m.quotes.WithLabelValues("cache").Inc()
		return
	}
	m.quotes.WithLabelValues("computed").Inc()
	m.priceRatio.Observe(ratio)
}

// QuoteError records a rejected quote.
func (m *Metrics) QuoteError(reason string) {
	if m == nil {
		return
	}
	m.quoteErrors.WithLabelValues(reason).Inc()
}

// DriftCycle records a completed drift cycle and the registry size after it.
func (m *Metrics) DriftCycle(entries int) {
	if m == nil {
		return
	}
	m.driftCycles.Inc()
	m.demandEntries.Set(float64(entries))
}

// Sizes updates the registry and cache size gauges.
func (m *Metrics) Sizes(demandEntries, cacheEntries int) {
	if m == nil {
		return
	}
	m.demandEntries.Set(float64(demandEntries))
	m.cacheEntries.Set(float64(cacheEntries))
}
