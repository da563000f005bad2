// Package metrics contains [domain.Recorder] implementations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vinicius-lino-figueiredo/treedb/domain"
)

// Query path label values.
const (
	PathCheap     = "cheap"
	PathExpensive = "expensive"
)

// Recorder implements domain.Recorder with prometheus counters.
type Recorder struct {
	documentsLoaded prometheus.Counter
	loadsRecovered  prometheus.Counter
	queries         *prometheus.CounterVec
	mutations       *prometheus.CounterVec
}

// NewRecorder registers the treedb counters on reg and returns a recorder
// updating them. A nil reg creates unregistered counters.
func NewRecorder(reg prometheus.Registerer) domain.Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		// documentsLoaded counts documents materialized from storage
		documentsLoaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "treedb_documents_loaded_total",
			Help: "Total documents loaded from a snapshot",
		}),
		// loadsRecovered counts headers that failed to parse and were read
		// as body
		loadsRecovered: factory.NewCounter(prometheus.CounterOpts{
			Name: "treedb_load_errors_recovered_total",
			Help: "Total documents whose header failed to parse",
		}),
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "treedb_queries_total",
			Help: "Total queries by resolution path",
		}, []string{"path"}),
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "treedb_mutations_total",
			Help: "Total documents written or removed by operation",
		}, []string{"op"}),
	}
}

// DocumentLoaded implements domain.Recorder.
func (r *Recorder) DocumentLoaded() {
	r.documentsLoaded.Inc()
}

// LoadRecovered implements domain.Recorder.
func (r *Recorder) LoadRecovered() {
	r.loadsRecovered.Inc()
}

// Query implements domain.Recorder.
func (r *Recorder) Query(expensive bool) {
	path := PathCheap
	if expensive {
		path = PathExpensive
	}
	r.queries.WithLabelValues(path).Inc()
}

// Mutation implements domain.Recorder.
func (r *Recorder) Mutation(op string, n int) {
	r.mutations.WithLabelValues(op).Add(float64(n))
}

// Nop implements domain.Recorder and records nothing.
type Nop struct{}

// NewNop returns a recorder that records nothing.
func NewNop() domain.Recorder {
	return Nop{}
}

// DocumentLoaded implements domain.Recorder.
func (Nop) DocumentLoaded() {}

// LoadRecovered implements domain.Recorder.
func (Nop) LoadRecovered() {}

// Query implements domain.Recorder.
func (Nop) Query(bool) {}

// Mutation implements domain.Recorder.
func (Nop) Mutation(string, int) {}
