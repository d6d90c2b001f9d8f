// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sealproxy

import (
	"net"
	"net/http"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/zrb-bund/sealproxy/middleware"
)

// RegisterMetrics registers all metrics of a ProxyServer in r without creating the server.
func RegisterMetrics(r prometheus.Registerer, namespace string) {
	newProxyMetrics(r, namespace)
	newDialerMetrics(r, namespace)
	newListenerMetrics(r, namespace)
	newRequestMetrics(r, namespace, func(*http.Request) string { return "local" })
}

func newRequestMetrics(r prometheus.Registerer, namespace string, mode middleware.PrometheusLabeler) *middleware.Prometheus {
	return middleware.NewPrometheus(r, namespace, middleware.WithCustomLabeler("mode", mode))
}

type proxyMetrics struct {
	authFailures    prometheus.Counter
	decryptFailures prometheus.Counter
	upstreamErrors  *prometheus.CounterVec
}

func newProxyMetrics(r prometheus.Registerer, namespace string) *proxyMetrics {
	if r == nil {
		r = prometheus.NewRegistry() // This registry will be discarded.
	}
	f := promauto.With(r)

	return &proxyMetrics{
		authFailures: f.NewCounter(prometheus.CounterOpts{
			Name:      "auth_failures_total",
			Namespace: namespace,
			Help:      "Number of requests rejected by basic authentication",
		}),
		decryptFailures: f.NewCounter(prometheus.CounterOpts{
			Name:      "e2e_decrypt_failures_total",
			Namespace: namespace,
			Help:      "Number of E2E request bodies that failed to decrypt",
		}),
		upstreamErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "upstream_errors_total",
			Namespace: namespace,
			Help:      "Number of failed upstream calls",
		}, []string{"kind"}),
	}
}

func (m *proxyMetrics) authFailure() {
	m.authFailures.Inc()
}

func (m *proxyMetrics) decryptFailure() {
	m.decryptFailures.Inc()
}

func (m *proxyMetrics) upstreamError(kind UpstreamErrorKind) {
	m.upstreamErrors.WithLabelValues(string(kind)).Inc()
}

type dialerMetrics struct {
	errors *prometheus.CounterVec
	dialed *prometheus.CounterVec
	active *prometheus.GaugeVec
}

func newDialerMetrics(r prometheus.Registerer, namespace string) *dialerMetrics {
	if r == nil {
		r = prometheus.NewRegistry() // This registry will be discarded.
	}
	f := promauto.With(r)
	l := []string{"host"}

	return &dialerMetrics{
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "dialer_errors_total",
			Namespace: namespace,
			Help:      "Number of errors dialing upstream connections",
		}, l),
		dialed: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "dialer_cx_total",
			Namespace: namespace,
			Help:      "Number of dialed upstream connections",
		}, l),
		active: f.NewGaugeVec(prometheus.GaugeOpts{
			Name:      "dialer_cx_active",
			Namespace: namespace,
			Help:      "Number of active upstream connections",
		}, l),
	}
}

func (m *dialerMetrics) error(addr string) {
	m.errors.WithLabelValues(addr2Host(addr)).Inc()
}

func (m *dialerMetrics) dial(addr string) {
	host := addr2Host(addr)
	m.dialed.WithLabelValues(host).Inc()
	m.active.WithLabelValues(host).Inc()
}

func (m *dialerMetrics) close(addr string) {
	m.active.WithLabelValues(addr2Host(addr)).Dec()
}

func addr2Host(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "unknown"
	}

	if slices.Contains([]string{"localhost", "127.0.0.1", "::1"}, host) {
		return "localhost"
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return "localhost"
	}

	return host
}

type listenerMetrics struct {
	accepted prometheus.Counter
	errors   prometheus.Counter
	closed   prometheus.Counter
}

func newListenerMetrics(r prometheus.Registerer, namespace string) *listenerMetrics {
	if r == nil {
		r = prometheus.NewRegistry() // This registry will be discarded.
	}
	f := promauto.With(r)

	return &listenerMetrics{
		accepted: f.NewCounter(prometheus.CounterOpts{
			Name:      "listener_accepted_total",
			Namespace: namespace,
			Help:      "Number of accepted connections",
		}),
		errors: f.NewCounter(prometheus.CounterOpts{
			Name:      "listener_errors_total",
			Namespace: namespace,
			Help:      "Number of listener errors when accepting connections",
		}),
		closed: f.NewCounter(prometheus.CounterOpts{
			Name:      "listener_closed_total",
			Namespace: namespace,
			Help:      "Number of closed connections",
		}),
	}
}
