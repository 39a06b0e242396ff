// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package obsmetric is the counters/gauges/histograms the engine
// exposes, built directly on prometheus/client_golang rather than a
// sibling monorepo metric factory.
package obsmetric

import "github.com/prometheus/client_golang/prometheus"

// Registry holds every metric the matching core publishes.
type Registry struct {
	registry *prometheus.Registry

	OrdersTotal     prometheus.Counter
	MatchesTotal    prometheus.Counter
	RejectionsTotal *prometheus.CounterVec
	ActiveSlots     prometheus.Gauge
	ActivePools     prometheus.Gauge
	MatchLatency    prometheus.Histogram
}

// New creates a Registry backed by a fresh, unregistered prometheus
// registry so multiple Engines in the same process (as in tests) never
// collide on metric names.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		OrdersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adx_orders_total",
			Help: "Total number of orders accepted by the engine.",
		}),
		MatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adx_matches_total",
			Help: "Total number of fills produced across all mechanisms.",
		}),
		RejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adx_rejections_total",
			Help: "Total number of rejected orders by reason.",
		}, []string{"kind"}),
		ActiveSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "adx_active_slots",
			Help: "Number of currently active (non-expired) slots.",
		}),
		ActivePools: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "adx_active_pools",
			Help: "Number of AMM pools with non-zero reserves.",
		}),
		MatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "adx_match_latency_seconds",
			Help:    "Observed latency of a single add_order call.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(r.OrdersTotal, r.MatchesTotal, r.RejectionsTotal, r.ActiveSlots, r.ActivePools, r.MatchLatency)
	return r
}

// Gatherer exposes the underlying registry for an external /metrics
// handler to scrape. The core never serves HTTP itself.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.registry }
