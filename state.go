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

import "fmt"

// Health classifies the condition reported for memory and sensors
type Health int

const (
	HealthBad Health = iota
	HealthGood
	HealthUnknown
)

// Health codes as sent by the logger; anything else is bad
const (
	healthCodeGood    = 1
	healthCodeUnknown = 2
)

// HealthFromCode maps a wire health code to Health
func HealthFromCode(code int) Health {
	switch code {
	case healthCodeGood:
		return HealthGood
	case healthCodeUnknown:
		return HealthUnknown
	default:
		return HealthBad
	}
}

func (h Health) String() string {
	switch h {
	case HealthGood:
		return "GOOD"
	case HealthUnknown:
		return "UNKNOWN"
	default:
		return "BAD"
	}
}

// OperatingState is the decoded logger state machine position
type OperatingState int

const (
	StateUnknown OperatingState = iota
	StateWaitFirstFix
	StateWaitTimeSetup
	StateWaitAltSetup
	StateSetSleepMode
	StateWaitAltTrigger
	StateWakeUpGPS
	StateWaitForGPSFix
	StateLogMeasData
)

var operatingStateNames = map[OperatingState]string{
	StateWaitFirstFix:   "WAIT_FIRST_FIX",
	StateWaitTimeSetup:  "WAIT_TIME_SETUP",
	StateWaitAltSetup:   "WAIT_ALT_SETUP",
	StateSetSleepMode:   "SET_SLEEP_MODE",
	StateWaitAltTrigger: "WAIT_ALT_TRIGGER",
	StateWakeUpGPS:      "WAKE_UP_GPS",
	StateWaitForGPSFix:  "WAIT_FOR_GPS_FIX",
	StateLogMeasData:    "LOG_MEAS_DATA",
}

func (s OperatingState) String() string {
	if name, ok := operatingStateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// DecodeOperatingState decodes the two digit state code, most significant
// digit first. Digit 4 is the measuring super-state whose sub-state is the
// second digit. Codes without a label return StateUnknown and false.
func DecodeOperatingState(code string) (OperatingState, bool) {
	if len(code) != 2 {
		return StateUnknown, false
	}

	switch code[0] {
	case '0':
		return StateWaitFirstFix, true
	case '1':
		return StateWaitTimeSetup, true
	case '2':
		return StateWaitAltSetup, true
	case '3':
		return StateSetSleepMode, true
	case '4':
		switch code[1] {
		case '0':
			return StateWaitAltTrigger, true
		case '1':
			return StateWakeUpGPS, true
		case '2':
			return StateWaitForGPSFix, true
		case '3':
			return StateLogMeasData, true
		}
	}
	return StateUnknown, false
}

// MemoryState is the logger flash usage report
type MemoryState struct {
	// UsedHundredths is the used share of flash in hundredths of a percent
	UsedHundredths int
	HealthCode     int
}

// UsedPercent returns the used flash in percent
func (m MemoryState) UsedPercent() float64 {
	return float64(m.UsedHundredths) / 100
}

// Health returns the decoded memory health
func (m MemoryState) Health() Health {
	return HealthFromCode(m.HealthCode)
}

// DeviceState is the logger sensor readiness and state machine report.
// Fields are in logical order; the wire sends barometer readiness first.
type DeviceState struct {
	// StateCode is the two digit state field as received
	StateCode string
	GPSReady  int
	BaroReady int
	State     int
	// GPSFix is the fix quality as an ASCII code point, '3' being a 3D fix
	GPSFix int
}

// GPSHealth returns the decoded GPS readiness
func (d DeviceState) GPSHealth() Health {
	return HealthFromCode(d.GPSReady)
}

// BaroHealth returns the decoded barometer readiness
func (d DeviceState) BaroHealth() Health {
	return HealthFromCode(d.BaroReady)
}

// HasGPSFix reports whether the receiver has a 3D fix
func (d DeviceState) HasGPSFix() bool {
	return d.GPSFix == '3'
}

// OperatingState decodes the state field
func (d DeviceState) OperatingState() (OperatingState, bool) {
	code := d.StateCode
	if code == "" {
		code = fmt.Sprintf("%02d", d.State)
	}
	return DecodeOperatingState(code)
}

// SensorSnapshot is one live sensor reading. GPS fields are passed through as sent.
type SensorSnapshot struct {
	GPSLongitude string
	GPSLatitude  string
	GPSAltitude  string
	GPSTime      string
	GPSFixTime   string
	GPSTimeTime  string
	// BaroAltitudeRaw is the barometric altitude in hundredths of a metre
	BaroAltitudeRaw int
}

// BaroAltitude returns the barometric altitude in metres
func (s SensorSnapshot) BaroAltitude() float64 {
	return float64(s.BaroAltitudeRaw) / 100
}
