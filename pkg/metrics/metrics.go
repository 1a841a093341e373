// Package metrics registers the prometheus counters/gauges the engine
// exposes on cmd/server's /metrics endpoint. Each Registry wraps its
// own prometheus.Registry rather than the global default, so tests
// and multiple engine instances never collide.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every metric the engine updates.
type Registry struct {
	registry *prometheus.Registry

	WritesTotal      *prometheus.CounterVec
	ReadsTotal       *prometheus.CounterVec
	FlushesTotal     *prometheus.CounterVec
	CompactionsTotal *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	SSTableCount     *prometheus.GaugeVec
}

// NewRegistry builds a fresh, independent prometheus registry and
// registers every engine metric on it.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{registry: reg}

	r.WritesTotal = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "cloude_storage_writes_total",
		Help: "Total number of put/insert/delete operations by collection.",
	}, []string{"user", "database", "collection"})

	r.ReadsTotal = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "cloude_storage_reads_total",
		Help: "Total number of find/get_all operations by collection.",
	}, []string{"user", "database", "collection"})

	r.FlushesTotal = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "cloude_storage_flushes_total",
		Help: "Total number of memtable flushes by collection.",
	}, []string{"user", "database", "collection"})

	r.CompactionsTotal = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "cloude_storage_compactions_total",
		Help: "Total number of SST compactions by collection.",
	}, []string{"user", "database", "collection"})

	r.ErrorsTotal = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "cloude_storage_errors_total",
		Help: "Total number of operations that returned an error kind, by kind.",
	}, []string{"kind"})

	r.SSTableCount = promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
		Name: "cloude_storage_sstable_count",
		Help: "Current number of SST files held by a collection.",
	}, []string{"user", "database", "collection"})

	return r
}

// Gatherer exposes the underlying prometheus registry for an HTTP
// handler (promhttp.HandlerFor) to serve.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
