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

package telemetry

import (
	"time"

	batgps "github.com/ZaparooProject/go-batgps"
	"github.com/ZaparooProject/go-batgps/polling"
)

// MemoryView is the JSON form of a memory state report
type MemoryView struct {
	Health      string  `json:"health"`
	UsedPercent float64 `json:"usedPercent"`
}

// NewMemoryView converts a memory state report
func NewMemoryView(m batgps.MemoryState) MemoryView {
	return MemoryView{UsedPercent: m.UsedPercent(), Health: m.Health().String()}
}

// DeviceView is the JSON form of a device state report
type DeviceView struct {
	GPS       string `json:"gps"`
	Baro      string `json:"baro"`
	StateName string `json:"stateName"`
	State     int    `json:"state"`
	GPSFix    bool   `json:"gpsFix"`
}

// NewDeviceView converts a device state report
func NewDeviceView(d batgps.DeviceState) DeviceView {
	op, _ := d.OperatingState()
	return DeviceView{
		GPS:       d.GPSHealth().String(),
		Baro:      d.BaroHealth().String(),
		State:     d.State,
		StateName: op.String(),
		GPSFix:    d.HasGPSFix(),
	}
}

// SensorView is the JSON form of a sensor snapshot
type SensorView struct {
	Longitude    string  `json:"longitude"`
	Latitude     string  `json:"latitude"`
	GPSAltitude  string  `json:"gpsAltitude"`
	GPSTime      string  `json:"gpsTime"`
	FixTime      string  `json:"fixTime"`
	TimeTime     string  `json:"timeTime"`
	BaroAltitude float64 `json:"baroAltitude"`
}

// NewSensorView converts a sensor snapshot
func NewSensorView(s batgps.SensorSnapshot) SensorView {
	return SensorView{
		Longitude:    s.GPSLongitude,
		Latitude:     s.GPSLatitude,
		GPSAltitude:  s.GPSAltitude,
		GPSTime:      s.GPSTime,
		FixTime:      s.GPSFixTime,
		TimeTime:     s.GPSTimeTime,
		BaroAltitude: s.BaroAltitude(),
	}
}

// Payload is one published telemetry message
type Payload struct {
	Time    time.Time   `json:"time"`
	Memory  *MemoryView `json:"memory,omitempty"`
	Device  *DeviceView `json:"device,omitempty"`
	Sensor  *SensorView `json:"sensor,omitempty"`
	Host    string      `json:"host"`
	Skipped []string    `json:"skipped,omitempty"`
}

// NewPayload converts a refresh result
func NewPayload(host string, t polling.Telemetry) Payload {
	p := Payload{Time: t.Time.UTC(), Host: host, Skipped: t.Skipped}
	if t.Memory != nil {
		v := NewMemoryView(*t.Memory)
		p.Memory = &v
	}
	if t.Device != nil {
		v := NewDeviceView(*t.Device)
		p.Device = &v
	}
	if t.Sensor != nil {
		v := NewSensorView(*t.Sensor)
		p.Sensor = &v
	}
	return p
}
