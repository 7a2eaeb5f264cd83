package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the tracker collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	cycles      *prometheus.CounterVec
	cycleTime   *prometheus.HistogramVec
	units       *prometheus.CounterVec
	errorNodes  *prometheus.GaugeVec
	watermarks  *prometheus.GaugeVec
	maintenance *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_cycles_total",
			Help: "Tracker cycles by outcome",
		}, []string{"core", "tracker", "status"}),
		cycleTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tracker_cycle_duration_seconds",
			Help:    "Duration of tracker cycles",
			Buckets: prometheus.DefBuckets,
		}, []string{"core", "tracker"}),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_units_indexed_total",
			Help: "Transactions, change-sets or documents applied by a tracker",
		}, []string{"core", "tracker"}),
		errorNodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tracker_error_nodes",
			Help: "Error node markers currently in the index",
		}, []string{"core"}),
		watermarks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tracker_watermark",
			Help: "Last durably indexed id per id space",
		}, []string{"core", "space"}),
		maintenance: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_maintenance_total",
			Help: "Maintenance operations by outcome",
		}, []string{"core", "op", "status"}),
	}
	m.registry.MustRegister(m.cycles, m.cycleTime, m.units, m.errorNodes, m.watermarks, m.maintenance)
	m.registry.MustRegister(collectors.NewGoCollector())
	return m
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveCycle records one finished cycle.
func (m *Metrics) ObserveCycle(core, tracker string, d time.Duration, units int, err error) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(core, tracker, status(err)).Inc()
	m.cycleTime.WithLabelValues(core, tracker).Observe(d.Seconds())
	if units > 0 {
		m.units.WithLabelValues(core, tracker).Add(float64(units))
	}
}

func (m *Metrics) SetErrorNodes(core string, n int) {
	if m == nil {
		return
	}
	m.errorNodes.WithLabelValues(core).Set(float64(n))
}

func (m *Metrics) SetWatermark(core, space string, id int64) {
	if m == nil {
		return
	}
	m.watermarks.WithLabelValues(core, space).Set(float64(id))
}

func (m *Metrics) ObserveMaintenance(core, op string, err error) {
	if m == nil {
		return
	}
	m.maintenance.WithLabelValues(core, op, status(err)).Inc()
}

// Gatherer exposes the registry for scraping and tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
