// Copyright (c) 2026 The Deadlockd Authors. All rights reserved.
// Use of this source code is governed by the MIT license in the LICENSE file.

// Package metrics exposes five opaque increment-only counters, backed
// by a dedicated prometheus.Registry rather than the global default
// one — grounded on node_metrics_patch.go and metrics_adapter.go's
// practice of constructing a scoped registry per process instead of
// relying on package-level globals.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns this process's Prometheus registry and its five
// counters, each labeled by "service".
type Registry struct {
	service string

	acquireTotal   *prometheus.CounterVec
	blockedTotal   *prometheus.CounterVec
	releaseTotal   *prometheus.CounterVec
	deadlocksTotal *prometheus.CounterVec
	abortsTotal    *prometheus.CounterVec

	reg *prometheus.Registry
}

// New builds a Registry scoped to service and registers all five
// counters on a fresh prometheus.Registry.
func New(service string) *Registry {
	reg := prometheus.NewRegistry()

	counter := func(name, help string) *prometheus.CounterVec {
		c := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, []string{"service"})
		reg.MustRegister(c)
		return c
	}

	return &Registry{
		service:        service,
		reg:            reg,
		acquireTotal:   counter("acquire_total", "Total acquire attempts"),
		blockedTotal:   counter("blocked_total", "Total blocked acquires"),
		releaseTotal:   counter("release_total", "Total releases"),
		deadlocksTotal: counter("deadlocks_total", "Total deadlocks detected"),
		abortsTotal:    counter("aborts_total", "Total tx aborts"),
	}
}

func (r *Registry) IncAcquire()  { r.acquireTotal.WithLabelValues(r.service).Inc() }
func (r *Registry) IncBlocked()  { r.blockedTotal.WithLabelValues(r.service).Inc() }
func (r *Registry) IncRelease()  { r.releaseTotal.WithLabelValues(r.service).Inc() }
func (r *Registry) IncDeadlock() { r.deadlocksTotal.WithLabelValues(r.service).Inc() }
func (r *Registry) IncAbort()    { r.abortsTotal.WithLabelValues(r.service).Inc() }

// Handler returns the Prometheus text-exposition HTTP handler for this
// registry, to be mounted at GET /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
