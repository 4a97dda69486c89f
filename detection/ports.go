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
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// TransportUART is the transport name reported for serial ports
const TransportUART = "uart"

// listDetailed is replaced in tests
var listDetailed = enumerator.GetDetailedPortsList

// ListPorts returns the serial ports that pass the filters in opts
func ListPorts(opts *Options) ([]DeviceInfo, error) {
	return DetectAllContext(context.Background(), opts)
}

// DetectAllContext lists serial ports, drops blocked and ignored ones and,
// depending on opts.Mode, checks access and runs the probe
func DetectAllContext(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	ports, err := listDetailed()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(ports))
	for _, port := range ports {
		if err := ctx.Err(); err != nil {
			return devices, err
		}

		device := fromPortDetails(port)
		if filtered(device, opts) {
			continue
		}

		if opts.Mode >= Safe {
			device.Accessible = canAccess(device.Path)
		}
		if opts.Mode == Full && opts.Probe != nil {
			if !device.Accessible || !opts.Probe(ctx, device) {
				continue
			}
			device.Metadata["probe"] = "ok"
		}

		devices = append(devices, device)
	}

	return devices, nil
}

func fromPortDetails(port *enumerator.PortDetails) DeviceInfo {
	device := DeviceInfo{
		Transport: TransportUART,
		Path:      port.Name,
		Name:      port.Name,
		IsUSB:     port.IsUSB,
		Metadata:  make(map[string]string),
	}
	if port.IsUSB {
		device.VIDPID = ParseVIDPID(port.VID + ":" + port.PID)
		if port.Product != "" {
			device.Name = port.Product
			device.Metadata["product"] = port.Product
		}
		if port.SerialNumber != "" {
			device.Metadata["serial"] = port.SerialNumber
		}
	}
	return device
}

func filtered(device DeviceInfo, opts *Options) bool {
	if opts.USBOnly && !device.IsUSB {
		return true
	}
	if IsPathIgnored(device.Path, opts.IgnorePaths) {
		return true
	}
	return device.VIDPID != "" && IsBlocked(device.VIDPID, opts.Blocklist)
}

// FindNew returns the devices in current that were not in last
func FindNew(last, current []DeviceInfo) []DeviceInfo {
	var added []DeviceInfo
	for _, c := range current {
		if !containsPath(last, c.Path) {
			added = append(added, c)
		}
	}
	return added
}

// FindGone returns the devices in last that are no longer in current
func FindGone(last, current []DeviceInfo) []DeviceInfo {
	return FindNew(current, last)
}

func containsPath(devices []DeviceInfo, path string) bool {
	for _, d := range devices {
		if strings.EqualFold(d.Path, path) {
			return true
		}
	}
	return false
}
