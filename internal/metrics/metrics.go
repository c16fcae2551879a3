// Package metrics wires Prometheus counters/gauges for the coordinator and
// storage node diagnostic HTTP surfaces (SPEC_FULL.md Module Additions A
// and B). Grounded on the teacher's pkg/metrics/prometheus promauto usage,
// trimmed down from its registration-callback indirection (that pattern
// exists there to dodge an import cycle between pkg/cache and
// pkg/metrics/prometheus that doesn't exist here) to a single struct built
// directly with promauto.With(reg).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Coordinator holds every counter/gauge the coordinator's /metrics
// endpoint exposes (SPEC_FULL.md Module Addition A).
type Coordinator struct {
	reg *prometheus.Registry

	StorageNodes   prometheus.Gauge
	Clients        prometheus.Gauge
	IndexSize      prometheus.Gauge
	IndexHits      prometheus.Counter
	IndexMisses    prometheus.Counter
	RequestsTotal  *prometheus.CounterVec // labeled by op
	ErrorsTotal    *prometheus.CounterVec // labeled by op, error_code
}

// NewCoordinator builds a fresh registry and registers every coordinator
// metric on it.
func NewCoordinator() *Coordinator {
	reg := prometheus.NewRegistry()
	return &Coordinator{
		reg: reg,
		StorageNodes: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "docstore_coordinator_storage_nodes",
			Help: "Number of storage nodes currently registered.",
		}),
		Clients: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "docstore_coordinator_clients",
			Help: "Number of clients in the client registry, online or offline.",
		}),
		IndexSize: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "docstore_coordinator_index_size",
			Help: "Number of filenames currently tracked in the index.",
		}),
		IndexHits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "docstore_coordinator_index_lru_hits_total",
			Help: "Total LRU cache hits while resolving a filename.",
		}),
		IndexMisses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "docstore_coordinator_index_lru_misses_total",
			Help: "Total LRU cache misses while resolving a filename.",
		}),
		RequestsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "docstore_coordinator_requests_total",
			Help: "Total requests handled by the coordinator, by operation.",
		}, []string{"op"}),
		ErrorsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "docstore_coordinator_errors_total",
			Help: "Total error responses returned by the coordinator, by operation and error code.",
		}, []string{"op", "error_code"}),
	}
}

// Registry returns the underlying Prometheus registry for HTTP exposition.
func (c *Coordinator) Registry() *prometheus.Registry { return c.reg }

// Storage holds every counter/gauge a storage node's /metrics endpoint
// exposes (SPEC_FULL.md Module Addition B).
type Storage struct {
	reg *prometheus.Registry

	ActiveWorkers     prometheus.Gauge
	HeldLocks         prometheus.Gauge
	ActiveWriteSessions prometheus.Gauge
	BytesServed       prometheus.Counter
	RequestsTotal     *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec
}

// NewStorage builds a fresh registry and registers every storage-node
// metric on it.
func NewStorage() *Storage {
	reg := prometheus.NewRegistry()
	return &Storage{
		reg: reg,
		ActiveWorkers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "docstore_storage_active_workers",
			Help: "Number of connection-serving goroutines currently running.",
		}),
		HeldLocks: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "docstore_storage_held_sentence_locks",
			Help: "Number of sentence locks currently held.",
		}),
		ActiveWriteSessions: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "docstore_storage_active_write_sessions",
			Help: "Number of open write sessions (post-WRITE, until ETIRW or disconnect).",
		}),
		BytesServed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "docstore_storage_bytes_served_total",
			Help: "Total bytes returned to clients by READ/STREAM.",
		}),
		RequestsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "docstore_storage_requests_total",
			Help: "Total requests handled by this storage node, by operation.",
		}, []string{"op"}),
		ErrorsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "docstore_storage_errors_total",
			Help: "Total error responses returned by this storage node, by operation and error code.",
		}, []string{"op", "error_code"}),
	}
}

// Registry returns the underlying Prometheus registry for HTTP exposition.
func (s *Storage) Registry() *prometheus.Registry { return s.reg }
