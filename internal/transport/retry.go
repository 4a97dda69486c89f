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

// Package transport provides internal transport utilities
package transport

import (
	"time"

	batgps "github.com/ZaparooProject/go-batgps"
)

// RetryPolicy bounds Retry
type RetryPolicy struct {
	Retries int
	Delay   time.Duration
}

// Retry calls try until it succeeds or fails with an error batgps.IsRetryable
// rejects. At most policy.Retries repeats are made; when they run out the
// last error is returned unchanged.
func Retry[T any](policy RetryPolicy, try func() (T, error)) (T, error) {
	result, err := try()
	for retries := 0; err != nil && retries < policy.Retries && batgps.IsRetryable(err); retries++ {
		if policy.Delay > 0 {
			time.Sleep(policy.Delay)
		}
		result, err = try()
	}
	return result, err
}

// Poll calls step until it reports done, fails, or timeout elapses, pausing
// interval between calls. step always runs at least once. Running out of time
// returns an error wrapping batgps.ErrTransportTimeout.
func Poll[T any](timeout, interval time.Duration, step func() (T, bool, error)) (T, error) {
	deadline := time.Now().Add(timeout)
	for {
		result, done, err := step()
		if err != nil || done {
			return result, err
		}
		if !time.Now().Before(deadline) {
			var zero T
			return zero, batgps.NewTimeoutError("read", "")
		}
		if interval > 0 {
			time.Sleep(interval)
		}
	}
}
