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

// Package frame provides frame manipulation and protocol constants for BAT GPS logger communication
package frame

// Frame markers
const (
	StartChar = '$' // First byte of every frame
	EndChar   = '#' // Last byte of every frame
)

// Read terminators
const (
	// Terminator ends a generic request/response exchange
	Terminator = "#"
	// HandshakeTerminator is the device identity reply to a connection request
	HandshakeTerminator = "$BAT_GPS#"
	// LogTerminator ends a bulk log transfer
	LogTerminator = "$EOF_LOG#"
)

// Payload conventions
const (
	FieldSeparator = ","
	Acknowledge    = "OK"
	CodeWidth      = 2 // Command codes are two zero-padded digits

	// LogLeaderLength is stripped from the front of a bulk log read (the frame marker)
	LogLeaderLength = 1
	// LogTrailerLength is stripped from the end of a bulk log read (terminator and control sequence)
	LogTrailerLength = 10
)

// Fixed field widths of setter payloads
const (
	HourWidth     = 2
	MinuteWidth   = 2
	AltitudeWidth = 4
)
