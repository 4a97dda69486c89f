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

/*
Package batgps controls a BAT GPS altitude and position logger over its
USB-UART link.

The logger speaks a short ASCII protocol. Every request is a frame of the
form "$" + two-digit command + optional fixed-width digits + "#", and every
reply is a "$...#" frame whose payload is split on commas. A session starts
with the CONNECTION_RESPONSE handshake, answered by "BAT_GPS#", and ends with
DISCONNECT.

Features:
  - Connect and disconnect with the identity handshake
  - Memory, device state and live sensor queries
  - Setting the wake-up time, the clock and the reference altitude
  - Flash erase and flight-log download with their own read timeouts
  - Typed errors classified by kind for callers and HTTP handlers

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-batgps"
	    "github.com/ZaparooProject/go-batgps/transport/uart"
	)

	device, err := batgps.New(
	    batgps.WithTransportFactory(uart.NewFactory(uart.OpenPolicy{})),
	    batgps.WithPort("/dev/ttyUSB0"),
	)
	if err != nil {
	    log.Fatal(err)
	}
	if err := device.Connect(); err != nil {
	    log.Fatal(err)
	}
	defer device.Close()

	state, err := device.GetDeviceState()
	if err != nil {
	    log.Fatal(err)
	}
	op, _ := state.OperatingState()
	fmt.Println(op, state.GPSHealth())

	if err := device.LogData("flight.log"); err != nil {
	    log.Fatal(err)
	}

Timeouts:

Ordinary replies are read with the baseline timeout (2s by default). Erase
waits up to 60s for its acknowledgement and log download up to 500s for the
end-of-log marker. The baseline is restored after either, whatever the
outcome.

Error Handling:

A query whose request frame cannot be written returns ErrSendFailed and is
treated as a skipped refresh rather than a failure:

	switch batgps.OutcomeOf(err) {
	case batgps.OutcomeEmpty:
	    // nothing was sent, try again on the next refresh
	case batgps.OutcomeFatal:
	    log.Printf("%s error: %v", batgps.KindOf(err), err)
	}

Thread Safety:

Device methods serialize on an internal mutex, so one Device may be shared
by a poller, a job worker and an HTTP handler.
*/
package batgps
