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

package batgps

import (
	"bytes"
	"sync"
	"time"
)

// MockTransport is a scripted Transport for tests. Replies are queued per
// written frame; a write of a frame with queued replies makes the next reply
// readable. Reads that find no terminator behave like a serial timeout and
// return whatever is buffered.
type MockTransport struct {
	replies      map[string][][]byte
	writeErrs    map[string]error
	ReadErr      error
	SetTimeoutFn func(time.Duration) error
	OpenErr      error
	lastConfig   PortConfig
	writes       []string
	readTimeouts []time.Duration
	timeoutLog   []time.Duration
	pending      []byte
	timeout      time.Duration
	inputResets  int
	outputResets int
	opens        int
	closes       int
	mu           sync.Mutex
	connected    bool
}

// NewMockTransport creates an open mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{
		replies:   make(map[string][][]byte),
		writeErrs: make(map[string]error),
		timeout:   DefaultTimeouts().Baseline,
		connected: true,
	}
}

// Factory returns a TransportFactory that reopens this mock
func (m *MockTransport) Factory() TransportFactory {
	return func(cfg PortConfig) (Transport, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.lastConfig = cfg
		if m.OpenErr != nil {
			return nil, m.OpenErr
		}
		m.opens++
		m.connected = true
		m.timeout = cfg.Timeout
		return m, nil
	}
}

// Reply queues reply for the next write of request
func (m *MockTransport) Reply(request, reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[request] = append(m.replies[request], []byte(reply))
}

// FailWrite makes every write of request fail with err
func (m *MockTransport) FailWrite(request string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErrs[request] = err
}

// Inject makes data readable without a preceding write
func (m *MockTransport) Inject(data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, data...)
}

// Write records the frame and queues its scripted reply
func (m *MockTransport) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return 0, ErrTransportClosed
	}

	req := string(p)
	m.writes = append(m.writes, req)
	if err := m.writeErrs[req]; err != nil {
		return 0, err
	}

	if queue := m.replies[req]; len(queue) > 0 {
		m.pending = append(m.pending, queue[0]...)
		m.replies[req] = queue[1:]
	}
	return len(p), nil
}

// ReadUntil returns buffered bytes up to and including terminator, or all
// buffered bytes when the terminator has not arrived
func (m *MockTransport) ReadUntil(terminator []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.readTimeouts = append(m.readTimeouts, m.timeout)
	if !m.connected {
		return nil, ErrTransportClosed
	}
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}

	idx := bytes.Index(m.pending, terminator)
	if idx < 0 {
		out := m.pending
		m.pending = nil
		return out, nil
	}

	end := idx + len(terminator)
	out := append([]byte(nil), m.pending[:end]...)
	m.pending = m.pending[end:]
	return out, nil
}

// ResetInputBuffer drops unread bytes
func (m *MockTransport) ResetInputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
	m.inputResets++
	return nil
}

// ResetOutputBuffer counts output resets
func (m *MockTransport) ResetOutputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputResets++
	return nil
}

// SetTimeout records the timeout change
func (m *MockTransport) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetTimeoutFn != nil {
		if err := m.SetTimeoutFn(timeout); err != nil {
			return err
		}
	}
	m.timeout = timeout
	m.timeoutLog = append(m.timeoutLog, timeout)
	return nil
}

// Close marks the transport closed
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.closes++
	return nil
}

// IsConnected returns true until Close is called
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Type returns TransportMock
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// Writes returns every frame written so far
func (m *MockTransport) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

// ReadTimeouts returns the timeout in effect at each ReadUntil call
func (m *MockTransport) ReadTimeouts() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.readTimeouts...)
}

// CurrentTimeout returns the timeout currently set
func (m *MockTransport) CurrentTimeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeout
}

// LastConfig returns the configuration of the last open
func (m *MockTransport) LastConfig() PortConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastConfig
}

// Counters returns the number of input resets, output resets, opens and closes
func (m *MockTransport) Counters() (inputResets, outputResets, opens, closes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inputResets, m.outputResets, m.opens, m.closes
}

// NewConnectedDevice returns a device already past the handshake on a fresh mock
func NewConnectedDevice(opts ...Option) (*Device, *MockTransport, error) {
	mock := NewMockTransport()
	mock.Reply("$01#", "$BAT_GPS#")

	all := append([]Option{
		WithTransportFactory(mock.Factory()),
		WithPort("/dev/ttyUSB0"),
	}, opts...)
	device, err := New(all...)
	if err != nil {
		return nil, nil, err
	}
	if err := device.Connect(); err != nil {
		return nil, nil, err
	}
	return device, mock, nil
}
