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
	"fmt"
	"slices"
	"time"
)

// Transport defines the byte stream the protocol engine talks over.
// The UART backend in transport/uart implements it on a serial port.
type Transport interface {
	// Write writes raw bytes to the link
	Write(p []byte) (int, error)

	// ReadUntil reads until terminator has been received or the read timeout
	// elapses. On timeout it returns whatever arrived and a nil error.
	ReadUntil(terminator []byte) ([]byte, error)

	// ResetInputBuffer discards received but unread bytes
	ResetInputBuffer() error

	// ResetOutputBuffer discards written but untransmitted bytes
	ResetOutputBuffer() error

	// SetTimeout sets the read timeout for the transport
	SetTimeout(timeout time.Duration) error

	// Close closes the transport connection
	Close() error

	// IsConnected returns true if the transport is open
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// Parity of the serial frame
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// StopBits of the serial frame
type StopBits int

const (
	StopBitsOne StopBits = iota
	StopBitsTwo
)

// PortConfig describes how a transport is opened
type PortConfig struct {
	Port     string
	BaudRate int
	DataBits int
	Parity   Parity
	StopBits StopBits
	Timeout  time.Duration
}

// TransportFactory opens a transport for the given port configuration
type TransportFactory func(cfg PortConfig) (Transport, error)

// DefaultBaudRate is the rate the logger firmware ships with
const DefaultBaudRate = 115200

// SupportedBaudRates lists the rates the logger UART accepts
var SupportedBaudRates = []int{9600, 14400, 19200, 38400, 57600, 115200}

// ValidateBaudRate returns an error when rate is not one of SupportedBaudRates
func ValidateBaudRate(rate int) error {
	if !slices.Contains(SupportedBaudRates, rate) {
		return fmt.Errorf("%w: unsupported baud rate %d", ErrInvalidParameter, rate)
	}
	return nil
}

// portConfig returns the fixed 8N1 line settings used by the logger
func portConfig(port string, baudRate int, timeout time.Duration) PortConfig {
	return PortConfig{
		Port:     port,
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   ParityNone,
		StopBits: StopBitsOne,
		Timeout:  timeout,
	}
}
