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

// Package uart implements the BAT GPS transport on a USB serial port
package uart

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	batgps "github.com/ZaparooProject/go-batgps"
	"github.com/ZaparooProject/go-batgps/internal/transport"
)

// pollInterval bounds each blocking read so ReadUntil can honour its deadline
const pollInterval = 50 * time.Millisecond

// Default retry policy for a busy port
const (
	DefaultOpenRetries = 2
	DefaultOpenDelay   = 200 * time.Millisecond
)

// OpenPolicy controls how often opening a busy port is retried
type OpenPolicy struct {
	Retries int
	Delay   time.Duration
}

// serialPort is the part of serial.Port the transport uses
type serialPort interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	ResetOutputBuffer() error
	Drain() error
}

type opener func(name string, mode *serial.Mode) (serialPort, error)

func openSerial(name string, mode *serial.Mode) (serialPort, error) {
	return serial.Open(name, mode)
}

// Transport implements batgps.Transport over a serial port
type Transport struct {
	port     serialPort
	reader   *transport.TerminatedReader
	portName string
	timeout  time.Duration
	mu       sync.Mutex
}

// New opens the serial port described by cfg
func New(cfg batgps.PortConfig) (*Transport, error) {
	return newWithOpener(cfg, defaultPolicy(), openSerial)
}

// Factory opens a serial port transport; it satisfies batgps.TransportFactory
func Factory(cfg batgps.PortConfig) (batgps.Transport, error) {
	return NewFactory(defaultPolicy())(cfg)
}

// NewFactory returns a batgps.TransportFactory that opens ports with policy
func NewFactory(policy OpenPolicy) batgps.TransportFactory {
	return func(cfg batgps.PortConfig) (batgps.Transport, error) {
		t, err := newWithOpener(cfg, policy, openSerial)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

func defaultPolicy() OpenPolicy {
	return OpenPolicy{Retries: DefaultOpenRetries, Delay: DefaultOpenDelay}
}

func newWithOpener(cfg batgps.PortConfig, policy OpenPolicy, open opener) (*Transport, error) {
	mode, err := serialMode(cfg)
	if err != nil {
		return nil, err
	}

	port, err := transport.Retry(transport.RetryPolicy{
		Retries: policy.Retries,
		Delay:   policy.Delay,
	}, func() (serialPort, error) {
		p, openErr := open(cfg.Port, mode)
		if openErr != nil {
			return nil, mapOpenError(cfg.Port, openErr)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	if err := port.SetReadTimeout(pollInterval); err != nil {
		_ = port.Close()
		return nil, batgps.NewTransportError("open", cfg.Port, err, batgps.ErrorTypePermanent)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = batgps.DefaultTimeouts().Baseline
	}

	return &Transport{
		port:     port,
		reader:   transport.NewTerminatedReader(port),
		portName: cfg.Port,
		timeout:  timeout,
	}, nil
}

func serialMode(cfg batgps.PortConfig) (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}

	switch cfg.Parity {
	case batgps.ParityNone:
		mode.Parity = serial.NoParity
	case batgps.ParityOdd:
		mode.Parity = serial.OddParity
	case batgps.ParityEven:
		mode.Parity = serial.EvenParity
	default:
		return nil, fmt.Errorf("%w: parity %d", batgps.ErrInvalidParameter, cfg.Parity)
	}

	switch cfg.StopBits {
	case batgps.StopBitsOne:
		mode.StopBits = serial.OneStopBit
	case batgps.StopBitsTwo:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("%w: stop bits %d", batgps.ErrInvalidParameter, cfg.StopBits)
	}

	return mode, nil
}

// mapOpenError classifies a serial open failure. A busy port is worth
// another attempt; a missing or forbidden one is not.
func mapOpenError(port string, err error) *batgps.TransportError {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortBusy:
			return batgps.NewTransportError("open", port, err, batgps.ErrorTypeTransient)
		case serial.PortNotFound:
			return batgps.NewTransportError("open", port, fmt.Errorf("port not found: %w", err),
				batgps.ErrorTypePermanent)
		case serial.PermissionDenied:
			return batgps.NewTransportError("open", port, fmt.Errorf("permission denied: %w", err),
				batgps.ErrorTypePermanent)
		case serial.InvalidSpeed, serial.InvalidDataBits, serial.InvalidParity, serial.InvalidStopBits:
			return batgps.NewTransportError("open", port,
				fmt.Errorf("%w: %w", batgps.ErrInvalidParameter, err), batgps.ErrorTypePermanent)
		default:
			return batgps.NewTransportError("open", port, err, batgps.ErrorTypePermanent)
		}
	}
	return batgps.NewTransportError("open", port, err, batgps.ErrorTypePermanent)
}

// Write writes p and waits until it has been transmitted
func (t *Transport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return 0, batgps.ErrTransportClosed
	}

	n, err := t.port.Write(p)
	if err != nil {
		return n, batgps.NewTransportError("write", t.portName,
			fmt.Errorf("%w: %w", batgps.ErrTransportWrite, err), batgps.ErrorTypeTransient)
	}
	if err := t.port.Drain(); err != nil {
		return n, batgps.NewTransportError("drain", t.portName,
			fmt.Errorf("%w: %w", batgps.ErrTransportWrite, err), batgps.ErrorTypeTransient)
	}
	return n, nil
}

// ReadUntil reads until terminator or until the read timeout elapses
func (t *Transport) ReadUntil(terminator []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil, batgps.ErrTransportClosed
	}

	data, err := t.reader.ReadUntil(terminator, t.timeout)
	if err != nil {
		return data, batgps.NewTransportError("read", t.portName, err, batgps.ErrorTypeTransient)
	}
	return data, nil
}

// ResetInputBuffer discards bytes held by the driver and by the reader
func (t *Transport) ResetInputBuffer() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return batgps.ErrTransportClosed
	}
	t.reader.Reset()
	return t.port.ResetInputBuffer()
}

// ResetOutputBuffer discards untransmitted bytes
func (t *Transport) ResetOutputBuffer() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return batgps.ErrTransportClosed
	}
	return t.port.ResetOutputBuffer()
}

// SetTimeout sets the overall read timeout used by ReadUntil
func (t *Transport) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", batgps.ErrInvalidParameter)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// Timeout returns the current read timeout
func (t *Transport) Timeout() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeout
}

// Close closes the serial port
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return batgps.NewTransportError("close", t.portName, err, batgps.ErrorTypePermanent)
	}
	return nil
}

// IsConnected returns true if the port is open
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// Type returns the transport type
func (*Transport) Type() batgps.TransportType {
	return batgps.TransportUART
}

// Port returns the serial port name
func (t *Transport) Port() string {
	return t.portName
}
