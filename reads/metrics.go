package reads

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts ingestion traffic of one pool.
type Metrics struct {
	Fragments      prometheus.Counter
	Batches        prometheus.Counter
	SourceFailures prometheus.Counter
}

// NewMetrics creates the pool counters and registers them on reg when it is
// not nil. Pools that should not export anything pass nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Fragments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gacore",
			Subsystem: "ingest",
			Name:      "fragments_total",
			Help:      "Fragments handed from read sources to the consumer.",
		}),
		Batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gacore",
			Subsystem: "ingest",
			Name:      "batches_total",
			Help:      "Batches passed through the handoff.",
		}),
		SourceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gacore",
			Subsystem: "ingest",
			Name:      "source_failures_total",
			Help:      "Read sources that failed and aborted their pool run.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Fragments, m.Batches, m.SourceFailures)
	}
	return m
}
