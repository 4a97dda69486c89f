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
	"time"

	"go.uber.org/zap"
)

// Option is a functional option for configuring a Device
type Option func(*Device) error

// WithTransportFactory sets the function used by Connect to open the serial link
func WithTransportFactory(factory TransportFactory) Option {
	return func(d *Device) error {
		if factory == nil {
			return errors.New("transport factory must not be nil")
		}
		d.factory = factory
		return nil
	}
}

// WithPort sets the serial port used by Connect
func WithPort(port string) Option {
	return func(d *Device) error {
		d.port = port
		return nil
	}
}

// WithBaudRate sets the baud rate used by Connect
func WithBaudRate(rate int) Option {
	return func(d *Device) error {
		if err := ValidateBaudRate(rate); err != nil {
			return err
		}
		d.baudRate = rate
		return nil
	}
}

// WithTimeouts sets the per-operation read timeouts
func WithTimeouts(timeouts Timeouts) Option {
	return func(d *Device) error {
		if err := timeouts.Validate(); err != nil {
			return err
		}
		d.config.Timeouts = timeouts
		return nil
	}
}

// WithBaselineTimeout sets only the default read timeout
func WithBaselineTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		t := d.config.Timeouts
		t.Baseline = timeout
		return WithTimeouts(t)(d)
	}
}

// WithLogger sets the logger used for frame tracing and failures
func WithLogger(logger *zap.Logger) Option {
	return func(d *Device) error {
		if logger == nil {
			logger = zap.NewNop()
		}
		d.logger = logger
		return nil
	}
}

// WithObserver registers an observer notified after every exchange
func WithObserver(observer ExchangeObserver) Option {
	return func(d *Device) error {
		d.observer = observer
		return nil
	}
}
