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

package polling

import (
	"errors"
	"time"
)

// Config controls the telemetry poll loop
type Config struct {
	// PollInterval is the pause between refreshes while the logger answers
	PollInterval time.Duration
	// MaxBackoff caps the interval after consecutive failed refreshes
	MaxBackoff time.Duration
	// StaleAfter fires OnStale when no refresh succeeded for this long
	StaleAfter time.Duration
	// DegradedAfter is the number of consecutive failed refreshes before
	// the link is reported degraded
	DegradedAfter int
}

// DefaultConfig returns a one second refresh with backoff up to ten seconds
func DefaultConfig() *Config {
	return &Config{
		PollInterval:  time.Second,
		MaxBackoff:    10 * time.Second,
		StaleAfter:    30 * time.Second,
		DegradedAfter: 3,
	}
}

// Validate checks that the intervals are usable
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.MaxBackoff < c.PollInterval {
		return errors.New("max backoff must not be shorter than the poll interval")
	}
	if c.DegradedAfter < 1 {
		return errors.New("degraded threshold must be at least one")
	}
	return nil
}
