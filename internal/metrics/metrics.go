// go-batgps
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-batgps.
//
// go-batgps is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-batgps is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-batgps; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package metrics exposes logger exchange and telemetry figures to Prometheus
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	batgps "github.com/ZaparooProject/go-batgps"
	"github.com/ZaparooProject/go-batgps/polling"
)

const namespace = "batgps"

// NewRegistry creates a registry carrying the Go and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the scrape handler for reg
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Metrics holds the logger figures. It implements batgps.ExchangeObserver.
type Metrics struct {
	ExchangeTotal    *prometheus.CounterVec   // labels: command, outcome
	ExchangeDuration *prometheus.HistogramVec // labels: command
	PollTotal        *prometheus.CounterVec   // labels: result=ok|partial|error
	Connected        prometheus.Gauge
	MemoryUsed       prometheus.Gauge     // percent
	Altitude         *prometheus.GaugeVec // labels: source=gps|baro
	GPSFix           prometheus.Gauge
	OperatingState   prometheus.Gauge
	JobsTotal        *prometheus.CounterVec // labels: job, status
}

// New registers and returns the logger metrics
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ExchangeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_total",
			Help:      "Command exchanges with the logger by outcome.",
		}, []string{"command", "outcome"}),
		ExchangeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exchange_duration_seconds",
			Help:      "Command exchange latency.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 60, 300},
		}, []string{"command"}),
		PollTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_total",
			Help:      "Telemetry refreshes by result.",
		}, []string{"result"}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected",
			Help:      "1 while the serial link is open.",
		}),
		MemoryUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_used_percent",
			Help:      "Flash memory in use.",
		}),
		Altitude: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "altitude_meters",
			Help:      "Last reported altitude.",
		}, []string{"source"}),
		GPSFix: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gps_fix",
			Help:      "1 while the receiver reports a 3D fix.",
		}),
		OperatingState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "operating_state",
			Help:      "Raw firmware state number.",
		}),
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Background jobs by name and final status.",
		}, []string{"job", "status"}),
	}
	reg.MustRegister(m.ExchangeTotal, m.ExchangeDuration, m.PollTotal, m.Connected,
		m.MemoryUsed, m.Altitude, m.GPSFix, m.OperatingState, m.JobsTotal)
	return m
}

// ObserveExchange records one command exchange
func (m *Metrics) ObserveExchange(cmd batgps.Command, elapsed time.Duration, err error) {
	m.ExchangeTotal.WithLabelValues(cmd.String(), batgps.OutcomeOf(err).String()).Inc()
	m.ExchangeDuration.WithLabelValues(cmd.String()).Observe(elapsed.Seconds())
}

// ObserveTelemetry updates the gauges from a refresh
func (m *Metrics) ObserveTelemetry(t polling.Telemetry) {
	if t.Memory != nil {
		m.MemoryUsed.Set(t.Memory.UsedPercent())
	}
	if t.Device != nil {
		m.OperatingState.Set(float64(t.Device.State))
		if t.Device.HasGPSFix() {
			m.GPSFix.Set(1)
		} else {
			m.GPSFix.Set(0)
		}
	}
	if t.Sensor != nil {
		m.Altitude.WithLabelValues("baro").Set(t.Sensor.BaroAltitude())
		// GPS fields are free text; skip values the receiver left blank
		if alt, err := strconv.ParseFloat(strings.TrimSpace(t.Sensor.GPSAltitude), 64); err == nil {
			m.Altitude.WithLabelValues("gps").Set(alt)
		}
	}
}

// ObservePoll counts a refresh result
func (m *Metrics) ObservePoll(t polling.Telemetry, err error) {
	switch {
	case err != nil && t.Empty():
		m.PollTotal.WithLabelValues("error").Inc()
	case err != nil || len(t.Skipped) > 0:
		m.PollTotal.WithLabelValues("partial").Inc()
	default:
		m.PollTotal.WithLabelValues("ok").Inc()
	}
}

// SetConnected reflects the link state
func (m *Metrics) SetConnected(connected bool) {
	if connected {
		m.Connected.Set(1)
		return
	}
	m.Connected.Set(0)
}

// ObserveJob counts a finished background job
func (m *Metrics) ObserveJob(name string, err error) {
	status := "done"
	if err != nil {
		status = "failed"
	}
	m.JobsTotal.WithLabelValues(name, status).Inc()
}
