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

import "errors"

// Outcome is the coarse result of an engine operation
type Outcome int

const (
	// OutcomeOK means the operation completed
	OutcomeOK Outcome = iota
	// OutcomeEmpty means the command could not be sent and a zero value was returned.
	// Callers may keep their previous display and try again later.
	OutcomeEmpty
	// OutcomeFatal means the operation failed and the error should be reported
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeEmpty:
		return "empty"
	default:
		return "fatal"
	}
}

// OutcomeOf classifies the error returned by an engine operation
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrSendFailed):
		return OutcomeEmpty
	default:
		return OutcomeFatal
	}
}

// ErrorKind names the failure family of an error
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindConnection
	KindProtocol
	KindTransport
	KindParameter
	KindOther
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindConnection:
		return "connection"
	case KindProtocol:
		return "protocol"
	case KindTransport:
		return "transport"
	case KindParameter:
		return "parameter"
	default:
		return "other"
	}
}

// KindOf returns the failure family of err
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var connErr *ConnectionError
	var protoErr *ProtocolError
	var transportErr *TransportError
	switch {
	case errors.As(err, &connErr),
		errors.Is(err, ErrNotConnected),
		errors.Is(err, ErrAlreadyConnected):
		return KindConnection
	case errors.As(err, &protoErr), errors.Is(err, ErrSendFailed):
		return KindProtocol
	case errors.As(err, &transportErr):
		return KindTransport
	case errors.Is(err, ErrInvalidParameter):
		return KindParameter
	default:
		return KindOther
	}
}
