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
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ZaparooProject/go-batgps/internal/frame"
)

// Timeouts holds the read timeouts applied to the serial link
type Timeouts struct {
	// Baseline applies to every exchange without an override
	Baseline time.Duration
	// Erase applies while waiting for a flash erase acknowledgement
	Erase time.Duration
	// LogDownload applies to the bulk log transfer
	LogDownload time.Duration
}

// DefaultTimeouts returns the timeouts the logger firmware is specified for
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Baseline:    2 * time.Second,
		Erase:       60 * time.Second,
		LogDownload: 500 * time.Second,
	}
}

// Validate checks that every timeout is positive
func (t Timeouts) Validate() error {
	if t.Baseline <= 0 || t.Erase <= 0 || t.LogDownload <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidParameter)
	}
	return nil
}

// DeviceConfig contains configuration options for the Device
type DeviceConfig struct {
	Timeouts Timeouts
}

// DefaultDeviceConfig returns default device configuration
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		Timeouts: DefaultTimeouts(),
	}
}

// ExchangeObserver is notified after every command exchange
type ExchangeObserver interface {
	ObserveExchange(cmd Command, elapsed time.Duration, err error)
}

// Device is a connection to one BAT GPS logger.
//
// Thread Safety: every exported method holds the device lock for the whole
// command/response exchange, so a Device may be shared between goroutines.
// Long operations (EraseFlashMemory, LogData) block other callers until they
// finish or time out.
type Device struct {
	transport Transport
	factory   TransportFactory
	observer  ExchangeObserver
	config    *DeviceConfig
	logger    *zap.Logger
	port      string
	rxData    []byte
	baudRate  int
	mu        sync.Mutex
}

// New creates a disconnected device. Port and baud rate may be given as
// options or set later with SetPort and SetBaudRate.
func New(opts ...Option) (*Device, error) {
	device := &Device{
		config:   DefaultDeviceConfig(),
		logger:   zap.NewNop(),
		baudRate: DefaultBaudRate,
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	return device, nil
}

// SetPort sets the serial port used by the next Connect
func (d *Device) SetPort(port string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.port = port
}

// Port returns the configured serial port
func (d *Device) Port() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port
}

// SetBaudRate sets the baud rate used by the next Connect
func (d *Device) SetBaudRate(rate int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.baudRate = rate
}

// BaudRate returns the configured baud rate
func (d *Device) BaudRate() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.baudRate
}

// Timeouts returns the configured read timeouts
func (d *Device) Timeouts() Timeouts {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config.Timeouts
}

// IsConnected reports whether the serial link is open
func (d *Device) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isOpen()
}

// LastResponse returns a copy of the last raw buffer read from the link
func (d *Device) LastResponse() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return bytes.Clone(d.rxData)
}

// ConnectTo connects on port at baudRate. The port and baud rate become the
// device's settings only once the handshake succeeds; on any failure the
// previous settings are kept.
func (d *Device) ConnectTo(port string, baudRate int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connect(port, baudRate)
}

// Connect opens the serial link and performs the identity handshake.
// The link is closed again if the handshake fails.
func (d *Device) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connect(d.port, d.baudRate)
}

func (d *Device) connect(port string, baudRate int) (err error) {
	start := time.Now()
	defer func() { d.observe(CmdConnectionResponse, start, err) }()

	if d.isOpen() {
		return ErrAlreadyConnected
	}
	if port == "" {
		return fmt.Errorf("%w: empty port", ErrInvalidParameter)
	}
	if err := ValidateBaudRate(baudRate); err != nil {
		return err
	}
	if d.factory == nil {
		return &ConnectionError{Port: port, Err: errors.New("transport factory not provided")}
	}

	transport, err := d.factory(portConfig(port, baudRate, d.config.Timeouts.Baseline))
	if err != nil {
		d.logger.Warn("failed to open serial port", zap.String("port", port), zap.Error(err))
		return &ConnectionError{Port: port, Err: err}
	}
	d.transport = transport

	if err := d.handshake(port); err != nil {
		d.logger.Warn("handshake failed", zap.String("port", port), zap.Error(err))
		d.closeTransport()
		return err
	}

	d.port = port
	d.baudRate = baudRate
	d.logger.Info("connected", zap.String("port", port), zap.Int("baud_rate", baudRate))
	return nil
}

// handshake sends the connection request and waits for the identity reply
func (d *Device) handshake(port string) error {
	req := frame.Encode(CmdConnectionResponse.Code(), "")
	if _, err := d.transport.Write(req); err != nil {
		return NewTransportError("connect", port, fmt.Errorf("%w: %w", ErrTransportWrite, err), ErrorTypeTransient)
	}

	data, err := d.transport.ReadUntil([]byte(frame.HandshakeTerminator))
	d.rxData = data
	if err != nil {
		return NewTransportError("connect", port, fmt.Errorf("%w: %w", ErrTransportRead, err), ErrorTypeTransient)
	}
	if !bytes.Contains(data, []byte(frame.HandshakeTerminator)) {
		return newProtocolError("connect", ErrDeviceNotResponding, "")
	}
	return nil
}

// Disconnect asks the logger to end the session and closes the serial link.
// The link is closed even when the logger does not acknowledge.
func (d *Device) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disconnect()
}

func (d *Device) disconnect() (err error) {
	if !d.isOpen() {
		return nil
	}

	start := time.Now()
	defer func() { d.observe(CmdDisconnect, start, err) }()
	defer d.closeTransport()

	// A failed send surfaces as a missing reply below
	_ = d.send(CmdDisconnect, "")
	data, err := d.receive("disconnect", frame.Terminator)
	if err != nil {
		return err
	}
	if payload := frame.Payload(data); payload != frame.Acknowledge {
		return newProtocolError("disconnect", ErrDisconnectFailed, fmt.Sprintf("got %q", payload))
	}

	d.logger.Info("disconnected", zap.String("port", d.port))
	return nil
}

// Close closes the serial link without the disconnect exchange
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.transport == nil {
		return nil
	}
	err := d.transport.Close()
	d.transport = nil
	if err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

func (d *Device) isOpen() bool {
	return d.transport != nil && d.transport.IsConnected()
}

func (d *Device) closeTransport() {
	if d.transport == nil {
		return
	}
	if err := d.transport.Close(); err != nil {
		d.logger.Debug("failed to close transport", zap.String("port", d.port), zap.Error(err))
	}
	d.transport = nil
}

// transportError wraps a link failure, keeping an existing TransportError as is
func (d *Device) transportError(op string, sentinel, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return NewTransportError(op, d.port, fmt.Errorf("%w: %w", sentinel, err), ErrorTypeTransient)
}

func (d *Device) observe(cmd Command, start time.Time, err error) {
	if d.observer != nil {
		d.observer.ObserveExchange(cmd, time.Since(start), err)
	}
}
