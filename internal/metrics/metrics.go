package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry owns the tracker's collectors so each server gets its own set
type Registry struct {
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	HitsTracked     *prometheus.CounterVec
	TrackFailures   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Registry{
		Registerer: reg,
		Gatherer:   reg,
		HitsTracked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_hits_tracked_total",
			Help: "Hits appended to the hit log",
		}, []string{"method"}),
		TrackFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_track_failures_total",
			Help: "Tracking requests that did not produce a hit",
		}, []string{"code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tracker_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(m.HitsTracked, m.TrackFailures, m.RequestDuration)
	return m
}
