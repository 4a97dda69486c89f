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
	"time"
)

// LinkState is the health of the logger link as seen by the poll loop
type LinkState int

const (
	LinkIdle LinkState = iota
	LinkHealthy
	LinkDegraded
	LinkLost
)

func (s LinkState) String() string {
	switch s {
	case LinkIdle:
		return "idle"
	case LinkHealthy:
		return "healthy"
	case LinkDegraded:
		return "degraded"
	case LinkLost:
		return "lost"
	default:
		return "unknown"
	}
}

// PollState tracks the link state between refreshes
type PollState struct {
	LastSuccess time.Time
	LastFailure time.Time
	StaleTimer  *time.Timer
	Failures    int
	Link        LinkState
}

// safeTimerStop safely stops a timer and drains its channel to prevent resource leaks
func safeTimerStop(timer *time.Timer) {
	if timer != nil {
		// If Stop() returned false, the timer already fired and the value was sent to C
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}
}

// RecordSuccess marks a refresh that reached the logger and rearms the stale timer
func (ps *PollState) RecordSuccess(staleAfter time.Duration, onStale func()) {
	ps.Link = LinkHealthy
	ps.Failures = 0
	ps.LastSuccess = time.Now()
	safeTimerStop(ps.StaleTimer)
	ps.StaleTimer = nil
	if staleAfter > 0 && onStale != nil {
		ps.StaleTimer = time.AfterFunc(staleAfter, onStale)
	}
}

// RecordFailure counts a failed refresh; the link degrades after threshold failures
func (ps *PollState) RecordFailure(threshold int) {
	ps.Failures++
	ps.LastFailure = time.Now()
	if ps.Link != LinkLost && ps.Failures >= threshold {
		ps.Link = LinkDegraded
	}
}

// MarkLost records that the link is closed
func (ps *PollState) MarkLost() {
	ps.Link = LinkLost
	safeTimerStop(ps.StaleTimer)
	ps.StaleTimer = nil
}

// Reset returns to the idle state
func (ps *PollState) Reset() {
	safeTimerStop(ps.StaleTimer)
	*ps = PollState{}
}
