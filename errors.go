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
	"errors"
	"fmt"
)

// Connection errors
var (
	ErrNotConnected     = errors.New("device not connected")
	ErrAlreadyConnected = errors.New("device already connected")
)

// Protocol errors
var (
	ErrSendFailed          = errors.New("command send failed")
	ErrDeviceNotResponding = errors.New("device not responding")
	ErrInvalidFrame        = errors.New("invalid string received")
	ErrUnexpectedPayload   = errors.New("unexpected payload")
	ErrMalformedPayload    = errors.New("malformed payload")

	// The logger answered with something other than OK; both match ErrUnexpectedPayload
	ErrDisconnectFailed error = &refusalError{msg: "disconnection failed"}
	ErrEraseFailed      error = &refusalError{msg: "unsuccessful memory erase"}
)

// refusalError is a sentinel for a well-formed reply that is not an acknowledgement
type refusalError struct {
	msg string
}

func (e *refusalError) Error() string { return e.msg }

func (*refusalError) Unwrap() error { return ErrUnexpectedPayload }

// Transport errors
var (
	ErrTransportTimeout = errors.New("transport timeout")
	ErrTransportRead    = errors.New("transport read failed")
	ErrTransportWrite   = errors.New("transport write failed")
	ErrTransportClosed  = errors.New("transport closed")
)

// ErrInvalidParameter is returned for caller supplied values the protocol cannot carry
var ErrInvalidParameter = errors.New("invalid parameter")

// ErrorType classifies errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent errors will not go away by retrying
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors may succeed on retry
	ErrorTypeTransient
	// ErrorTypeTimeout errors are caused by the link not answering in time
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return "permanent"
	}
}

// TransportError wraps a failure surfaced by the serial link
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a transport error with retryability derived from its type
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a retryable timeout error
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// ConnectionError reports that the serial port could not be opened
type ConnectionError struct {
	Err  error
	Port string
}

func (e *ConnectionError) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("bad port: %v", e.Err)
	}
	return fmt.Sprintf("bad port %s: %v", e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ProtocolError reports a response that violates the device protocol
type ProtocolError struct {
	Err    error
	Op     string
	Detail string
}

func (e *ProtocolError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, e.Detail)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func newProtocolError(op string, err error, detail string) *ProtocolError {
	return &ProtocolError{Op: op, Err: err, Detail: detail}
}

// IsRetryable reports whether an operation that failed with err may succeed if repeated
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrSendFailed),
		errors.Is(err, ErrDeviceNotResponding),
		errors.Is(err, ErrInvalidFrame):
		return true
	default:
		return false
	}
}

// GetErrorType returns the classification of err
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}

	switch {
	case errors.Is(err, ErrTransportTimeout), errors.Is(err, ErrDeviceNotResponding):
		return ErrorTypeTimeout
	case errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrSendFailed),
		errors.Is(err, ErrInvalidFrame):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}
