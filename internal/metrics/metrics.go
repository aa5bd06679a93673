// Package metrics exposes connector activity as Prometheus metrics.
//
//	reg := prometheus.NewRegistry()
//	f := factory.New(factory.WithObserver(metrics.NewCollector(reg)))
//
// Every connector the factory creates then reports connects, queries, returned rows
// and latency, labelled by source kind.
package metrics

import (
	"time"

	"dataport/internal/connector"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dataport"

// Collector implements connector.Observer on top of Prometheus vectors.
type Collector struct {
	connects     *prometheus.CounterVec
	queries      *prometheus.CounterVec
	rows         *prometheus.CounterVec
	queryLatency *prometheus.HistogramVec
	exported     *prometheus.CounterVec
	rejected     *prometheus.CounterVec
}

var _ connector.Observer = (*Collector)(nil)

// NewCollector registers the connector metrics with reg.
// A nil reg uses the default Prometheus registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Collector{
		connects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connects_total",
			Help:      "Connect attempts by source kind and outcome",
		}, []string{"kind", "outcome"}),
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Queries by source kind and outcome",
		}, []string{"kind", "outcome"}),
		rows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_returned_total",
			Help:      "Rows returned by queries, by source kind",
		}, []string{"kind"}),
		queryLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Query latency by source kind",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"kind"}),
		exported: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_exported_total",
			Help:      "Records written by export runs, by source kind",
		}, []string{"kind"}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_rejected_total",
			Help:      "Records rejected by field mapping validation, by source kind",
		}, []string{"kind"}),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) ObserveConnect(kind connector.SourceKind, _ time.Duration, err error) {
	c.connects.WithLabelValues(string(kind), outcome(err)).Inc()
}

func (c *Collector) ObserveQuery(kind connector.SourceKind, d time.Duration, rows int, err error) {
	c.queries.WithLabelValues(string(kind), outcome(err)).Inc()
	c.queryLatency.WithLabelValues(string(kind)).Observe(d.Seconds())
	if err == nil {
		c.rows.WithLabelValues(string(kind)).Add(float64(rows))
	}
}

// ObserveExport records the outcome of an export batch.
func (c *Collector) ObserveExport(kind connector.SourceKind, written, rejected int) {
	c.exported.WithLabelValues(string(kind)).Add(float64(written))
	c.rejected.WithLabelValues(string(kind)).Add(float64(rejected))
}
