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

// Package polling refreshes logger telemetry on a fixed cadence
package polling

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	batgps "github.com/ZaparooProject/go-batgps"
)

// ErrAlreadyRunning is returned by Start while a poll loop is active
var ErrAlreadyRunning = errors.New("monitor already running")

// Source is the part of *batgps.Device the monitor reads from
type Source interface {
	IsConnected() bool
	GetMemoryState() (batgps.MemoryState, error)
	GetDeviceState() (batgps.DeviceState, error)
	GetSensorData() (batgps.SensorSnapshot, error)
}

// Telemetry is the result of one refresh. Values the logger could not be
// asked for are nil and named in Skipped.
type Telemetry struct {
	Time    time.Time
	Memory  *batgps.MemoryState
	Device  *batgps.DeviceState
	Sensor  *batgps.SensorSnapshot
	Skipped []string
}

// Empty reports whether no value was read
func (t Telemetry) Empty() bool {
	return t.Memory == nil && t.Device == nil && t.Sensor == nil
}

// Callbacks defines callback functions for monitor events
type Callbacks struct {
	OnTelemetry  func(Telemetry)
	OnError      func(error)
	OnLinkChange func(from, to LinkState)
	OnStale      func()
	// OnPoll receives every completed refresh, including failed ones
	OnPoll func(Telemetry, error)
}

// Metrics tracks operational metrics for Monitor
type Metrics struct {
	PollCycles      int64         // Total number of refreshes
	PollErrors      int64         // Refreshes with at least one failed query
	Skipped         int64         // Queries whose command could not be sent
	LastPollLatency time.Duration // Duration of last refresh
}

// Monitor polls memory state, device state and sensor data
type Monitor struct {
	source    Source
	config    *Config
	logger    *zap.Logger
	callbacks Callbacks
	state     PollState
	mu        sync.Mutex
	running   atomic.Bool
	// Atomic counters for metrics
	pollCycles      atomic.Int64
	pollErrors      atomic.Int64
	skipped         atomic.Int64
	lastPollLatency atomic.Int64 // in nanoseconds
	currentInterval atomic.Int64 // in nanoseconds
}

// NewMonitor creates a monitor; a nil config selects DefaultConfig
func NewMonitor(source Source, config *Config, callbacks Callbacks, logger *zap.Logger) (*Monitor, error) {
	if source == nil {
		return nil, errors.New("nil telemetry source")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Monitor{
		source:    source,
		config:    config,
		callbacks: callbacks,
		logger:    logger,
	}
	m.currentInterval.Store(config.PollInterval.Nanoseconds())
	return m, nil
}

// PollOnce reads memory state, device state and sensor data once.
// Queries whose command could not be sent are skipped; other failures are
// joined into the returned error alongside whatever was read.
func (m *Monitor) PollOnce(ctx context.Context) (Telemetry, error) {
	if err := ctx.Err(); err != nil {
		return Telemetry{}, err
	}

	if !m.source.IsConnected() {
		m.transition(func(ps *PollState) { ps.MarkLost() })
		return Telemetry{}, batgps.ErrNotConnected
	}

	start := time.Now()
	t := Telemetry{Time: start}
	var errs []error

	collect := func(name string, err error) bool {
		switch batgps.OutcomeOf(err) {
		case batgps.OutcomeOK:
			return true
		case batgps.OutcomeEmpty:
			t.Skipped = append(t.Skipped, name)
			m.skipped.Add(1)
		default:
			errs = append(errs, err)
		}
		return false
	}

	if memory, err := m.source.GetMemoryState(); collect("memory", err) {
		t.Memory = &memory
	}
	if device, err := m.source.GetDeviceState(); collect("device", err) {
		t.Device = &device
	}
	if sensor, err := m.source.GetSensorData(); collect("sensor", err) {
		t.Sensor = &sensor
	}

	m.pollCycles.Add(1)
	m.lastPollLatency.Store(time.Since(start).Nanoseconds())

	var err error
	if len(errs) > 0 {
		m.pollErrors.Add(1)
		err = errors.Join(errs...)
	}

	if t.Empty() {
		m.transition(func(ps *PollState) { ps.RecordFailure(m.config.DegradedAfter) })
	} else {
		m.transition(func(ps *PollState) { ps.RecordSuccess(m.config.StaleAfter, m.callbacks.OnStale) })
		if m.callbacks.OnTelemetry != nil {
			m.callbacks.OnTelemetry(t)
		}
	}
	m.adjustPollInterval()

	if m.callbacks.OnPoll != nil {
		m.callbacks.OnPoll(t, err)
	}
	return t, err
}

// Start runs the poll loop until ctx ends. The first refresh happens
// immediately. A lost link keeps the loop running so a reconnect resumes
// polling.
func (m *Monitor) Start(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer m.running.Store(false)

	m.logger.Info("telemetry polling started", zap.Duration("interval", m.config.PollInterval))
	defer m.logger.Info("telemetry polling stopped")

	timer := time.NewTimer(0)
	defer safeTimerStop(timer)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if _, err := m.PollOnce(ctx); err != nil {
				m.handlePollingError(err)
			}
			timer.Reset(m.GetCurrentPollInterval())
		}
	}
}

func (m *Monitor) handlePollingError(err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	if errors.Is(err, batgps.ErrNotConnected) {
		m.logger.Debug("poll skipped, link closed")
		return
	}
	m.logger.Warn("telemetry refresh failed", zap.Error(err))
	if m.callbacks.OnError != nil {
		m.callbacks.OnError(err)
	}
}

// transition applies fn to the poll state and reports a link change
func (m *Monitor) transition(fn func(*PollState)) {
	m.mu.Lock()
	from := m.state.Link
	fn(&m.state)
	to := m.state.Link
	m.mu.Unlock()

	if from != to {
		m.logger.Info("link state changed", zap.Stringer("from", from), zap.Stringer("to", to))
		if m.callbacks.OnLinkChange != nil {
			m.callbacks.OnLinkChange(from, to)
		}
	}
}

// adjustPollInterval doubles the interval per consecutive failure up to MaxBackoff
func (m *Monitor) adjustPollInterval() {
	m.mu.Lock()
	failures := m.state.Failures
	m.mu.Unlock()

	interval := m.config.PollInterval
	for i := 0; i < failures && interval < m.config.MaxBackoff; i++ {
		interval *= 2
	}
	if interval > m.config.MaxBackoff {
		interval = m.config.MaxBackoff
	}
	m.currentInterval.Store(interval.Nanoseconds())
}

// GetState returns a copy of the poll state
func (m *Monitor) GetState() PollState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// GetMetrics returns current operational metrics
func (m *Monitor) GetMetrics() Metrics {
	return Metrics{
		PollCycles:      m.pollCycles.Load(),
		PollErrors:      m.pollErrors.Load(),
		Skipped:         m.skipped.Load(),
		LastPollLatency: time.Duration(m.lastPollLatency.Load()),
	}
}

// GetCurrentPollInterval returns the current adaptive polling interval
func (m *Monitor) GetCurrentPollInterval() time.Duration {
	return time.Duration(m.currentInterval.Load())
}

// Close stops the stale timer and resets the poll state
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Reset()
}
