/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package metrics exposes the client's runtime counters as Prometheus
// collectors: connections open per origin, requests queued, restarts, and
// cancellations. Collectors are registered against the registry handed to
// NewCollectors, never the global default, so a process embedding this
// client alongside other instrumented components doesn't collide on metric
// names.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "asynchttp"

// Collectors groups every metric httpclient.Client reports through.
type Collectors struct {
	ConnectionsOpen *prometheus.GaugeVec
	RequestsQueued  prometheus.Gauge
	Restarts        *prometheus.CounterVec
	Cancellations   prometheus.Counter
	ConnectFailures *prometheus.CounterVec
}

// NewCollectors builds and registers a Collectors against reg.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		ConnectionsOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_open",
			Help:      "Number of connections currently open, by origin.",
		}, []string{"origin"}),
		RequestsQueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_queued",
			Help:      "Number of requests waiting for a connection to become available.",
		}),
		Restarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_restarts_total",
			Help:      "Number of requests automatically restarted on a different connection.",
		}, []string{"origin"}),
		Cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_cancellations_total",
			Help:      "Number of requests cancelled before they received a response.",
		}),
		ConnectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_failures_total",
			Help:      "Number of dial attempts that did not produce a usable connection, by origin and reason.",
		}, []string{"origin", "reason"}),
	}

	reg.MustRegister(
		c.ConnectionsOpen,
		c.RequestsQueued,
		c.Restarts,
		c.Cancellations,
		c.ConnectFailures,
	)

	return c
}

// ConnectionOpened increments the open-connection gauge for origin.
func (c *Collectors) ConnectionOpened(origin string) {
	c.ConnectionsOpen.WithLabelValues(origin).Inc()
}

// ConnectionClosed decrements the open-connection gauge for origin.
func (c *Collectors) ConnectionClosed(origin string) {
	c.ConnectionsOpen.WithLabelValues(origin).Dec()
}

// RequestRestarted records a request being retried on a fresh connection.
func (c *Collectors) RequestRestarted(origin string) {
	c.Restarts.WithLabelValues(origin).Inc()
}

// RequestCancelled records a request cancelled before completion.
func (c *Collectors) RequestCancelled() {
	c.Cancellations.Inc()
}

// ConnectFailed records a dial attempt that did not produce a connection.
func (c *Collectors) ConnectFailed(origin, reason string) {
	c.ConnectFailures.WithLabelValues(origin, reason).Inc()
}
