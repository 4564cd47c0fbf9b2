package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	outcomeCompliant = "compliant"
	outcomeDeviant   = "deviant"
	outcomeFailed    = "failed"
)

type Metrics struct {
	registry *prometheus.Registry
	analyses *prometheus.CounterVec
	rows     *prometheus.CounterVec
	duration prometheus.Histogram
	cache    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "benford_analyses_total",
			Help: "Analyses run, by source and outcome.",
		}, []string{"source", "outcome"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "benford_rows_total",
			Help: "Rows read by analyses, by whether a digit was found.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "benford_analysis_duration_seconds",
			Help:    "Time spent ingesting and analyzing one upload.",
			Buckets: prometheus.DefBuckets,
		}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "benford_cache_lookups_total",
			Help: "Analyzer cache lookups, by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.analyses, m.rows, m.duration, m.cache,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeAnalysis(source, outcome string, rows, errorRows int, started time.Time) {
	m.analyses.WithLabelValues(source, outcome).Inc()
	m.duration.Observe(time.Since(started).Seconds())
	if rows > 0 {
		m.rows.WithLabelValues("with_digit").Add(float64(rows - errorRows))
		m.rows.WithLabelValues("without_digit").Add(float64(errorRows))
	}
}

func (m *Metrics) observeCache(hit bool) {
	if hit {
		m.cache.WithLabelValues("hit").Inc()
		return
	}
	m.cache.WithLabelValues("miss").Inc()
}
