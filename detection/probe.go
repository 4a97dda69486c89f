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

package detection

import (
	"context"

	batgps "github.com/ZaparooProject/go-batgps"
)

// HandshakeProbe returns a ProbeFunc that opens the port with factory,
// performs the identity handshake and disconnects again
func HandshakeProbe(factory batgps.TransportFactory, baudRate int) ProbeFunc {
	return func(ctx context.Context, device DeviceInfo) bool {
		if ctx.Err() != nil {
			return false
		}
		d, err := batgps.New(
			batgps.WithTransportFactory(factory),
			batgps.WithPort(device.Path),
			batgps.WithBaudRate(baudRate),
		)
		if err != nil {
			return false
		}
		if err := d.Connect(); err != nil {
			return false
		}
		// The logger answered; a refused disconnect still closes the port
		_ = d.Disconnect()
		return true
	}
}

// FirstResponding runs a full scan and returns the first port whose logger
// answers the handshake
func FirstResponding(ctx context.Context, opts *Options, probe ProbeFunc) (DeviceInfo, error) {
	scan := *opts
	scan.Mode = Full
	scan.Probe = probe

	devices, err := DetectAllContext(ctx, &scan)
	if err != nil {
		return DeviceInfo{}, err
	}
	if len(devices) == 0 {
		return DeviceInfo{}, ErrNoDevicesFound
	}
	return devices[0], nil
}
