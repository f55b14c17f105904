// Package metrics holds the Prometheus collectors of a harvest run.
// A run is a batch job, so metrics are written to a textfile at exit rather
// than scraped.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cpharvest"

// Collector holds all Prometheus metrics for one run. A nil *Collector is
// valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// Query metrics
	Queries       *prometheus.CounterVec
	QueryDuration prometheus.Histogram

	// Traversal metrics
	Fetched     prometheus.Counter
	Unsupported prometheus.Counter
	Cycles      prometheus.Counter
	Records     *prometheus.CounterVec
}

// New creates a collector on its own registry.
func New() *Collector {
	registry := prometheus.NewRegistry()

	queries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total number of queries sent to the endpoint",
		},
		[]string{"outcome"},
	)

	queryDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Query round-trip duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	fetched := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resources_fetched_total",
			Help:      "Total number of resources fetched into the metadata store",
		},
	)

	unsupported := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resources_unsupported_total",
			Help:      "Total number of resources skipped for an unknown type",
		},
	)

	cycles := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flatten_cycles_total",
			Help:      "Total number of references not inlined because they close a cycle",
		},
	)

	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Total number of flat records produced",
		},
		[]string{"kind"},
	)

	registry.MustRegister(queries, queryDuration, fetched, unsupported, cycles, records)

	return &Collector{
		registry:      registry,
		Queries:       queries,
		QueryDuration: queryDuration,
		Fetched:       fetched,
		Unsupported:   unsupported,
		Cycles:        cycles,
		Records:       records,
	}
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveQuery records one query round-trip.
func (c *Collector) ObserveQuery(start time.Time, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.Queries.WithLabelValues(outcome).Inc()
	c.QueryDuration.Observe(time.Since(start).Seconds())
}

// IncFetched counts a resource stored by expand.
func (c *Collector) IncFetched() {
	if c != nil {
		c.Fetched.Inc()
	}
}

// IncUnsupported counts a resource recorded with an unknown type.
func (c *Collector) IncUnsupported() {
	if c != nil {
		c.Unsupported.Inc()
	}
}

// IncCycle counts a reference skipped by the cycle guard.
func (c *Collector) IncCycle() {
	if c != nil {
		c.Cycles.Inc()
	}
}

// IncRecord counts a flat record of the given kind.
func (c *Collector) IncRecord(kind string) {
	if c != nil {
		c.Records.WithLabelValues(kind).Inc()
	}
}

// WriteTextfile writes every metric in the text exposition format, for the
// node_exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.registry)
}
