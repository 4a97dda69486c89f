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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ZaparooProject/go-batgps/internal/frame"
)

const (
	memoryStateFields = 2
	deviceStateFields = 4
	sensorDataFields  = 7
)

// GetMemoryState reads flash usage and health. If the request cannot be sent
// it returns the zero state and an error wrapping ErrSendFailed.
func (d *Device) GetMemoryState() (state MemoryState, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	start := time.Now()
	defer func() { d.observe(CmdStateMemory, start, err) }()

	fields, err := d.query("memory state", CmdStateMemory, memoryStateFields)
	if err != nil {
		return MemoryState{}, err
	}
	values, err := parseInts("memory state", fields)
	if err != nil {
		return MemoryState{}, err
	}

	return MemoryState{
		UsedHundredths: values[0],
		HealthCode:     values[1],
	}, nil
}

// GetDeviceState reads sensor readiness, the operating state and GPS fix
// quality. If the request cannot be sent it returns the zero state and an
// error wrapping ErrSendFailed.
func (d *Device) GetDeviceState() (state DeviceState, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	start := time.Now()
	defer func() { d.observe(CmdStateDevice, start, err) }()

	fields, err := d.query("device state", CmdStateDevice, deviceStateFields)
	if err != nil {
		return DeviceState{}, err
	}
	values, err := parseInts("device state", fields)
	if err != nil {
		return DeviceState{}, err
	}

	// wire order: baro, gps, state, gps fix
	return DeviceState{
		GPSReady:  values[1],
		BaroReady: values[0],
		State:     values[2],
		StateCode: strings.TrimSpace(fields[2]),
		GPSFix:    values[3],
	}, nil
}

// GetSensorData reads one live sensor snapshot. If the request cannot be
// sent it returns an empty snapshot and an error wrapping ErrSendFailed.
func (d *Device) GetSensorData() (snapshot SensorSnapshot, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	start := time.Now()
	defer func() { d.observe(CmdReadSensorData, start, err) }()

	fields, err := d.query("sensor data", CmdReadSensorData, sensorDataFields)
	if err != nil {
		return SensorSnapshot{}, err
	}

	baro, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return SensorSnapshot{}, newProtocolError("sensor data", ErrMalformedPayload,
			fmt.Sprintf("barometric altitude %q", fields[0]))
	}

	return SensorSnapshot{
		BaroAltitudeRaw: baro,
		GPSLongitude:    fields[1],
		GPSLatitude:     fields[2],
		GPSAltitude:     fields[3],
		GPSTime:         fields[4],
		GPSFixTime:      fields[5],
		GPSTimeTime:     fields[6],
	}, nil
}

// query sends a parameterless request and splits the reply into exactly want fields
func (d *Device) query(op string, cmd Command, want int) ([]string, error) {
	if !d.send(cmd, "") {
		return nil, fmt.Errorf("%s: %w", op, ErrSendFailed)
	}

	data, err := d.receive(op, frame.Terminator)
	if err != nil {
		return nil, err
	}

	fields := frame.Fields(data)
	if len(fields) != want {
		return nil, newProtocolError(op, ErrMalformedPayload,
			fmt.Sprintf("got %d fields, want %d", len(fields), want))
	}
	return fields, nil
}

func parseInts(op string, fields []string) ([]int, error) {
	values := make([]int, len(fields))
	for i, field := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, newProtocolError(op, ErrMalformedPayload, fmt.Sprintf("field %d %q", i, field))
		}
		values[i] = v
	}
	return values, nil
}
