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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommand_Code(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
		cmd  Command
	}{
		{name: "CONNECTION_RESPONSE", cmd: CmdConnectionResponse, want: "01"},
		{name: "ERASE_MEMORY", cmd: CmdEraseMemory, want: "02"},
		{name: "READ_MEMORY", cmd: CmdReadMemory, want: "03"},
		{name: "STATE_MEMORY", cmd: CmdStateMemory, want: "04"},
		{name: "SET_TIME", cmd: CmdSetTime, want: "05"},
		{name: "SET_ALTITUDE", cmd: CmdSetAltitude, want: "06"},
		{name: "STATE_DEVICE", cmd: CmdStateDevice, want: "07"},
		{name: "DISCONNECT", cmd: CmdDisconnect, want: "08"},
		{name: "SET_CLOCK", cmd: CmdSetClock, want: "09"},
		{name: "READ_SENSOR_DATA", cmd: CmdReadSensorData, want: "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.cmd.Code())
			assert.Equal(t, tt.name, tt.cmd.String())
		})
	}
}

func TestCommand_StringUnknown(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "UNKNOWN(11)", Command(11).String())
	assert.Equal(t, "11", Command(11).Code())
	assert.Equal(t, "100", Command(100).Code(), "codes wider than the field are not truncated")
}

func TestValidateBaudRate(t *testing.T) {
	t.Parallel()

	for _, rate := range SupportedBaudRates {
		assert.NoError(t, ValidateBaudRate(rate))
	}
	assert.ErrorIs(t, ValidateBaudRate(4800), ErrInvalidParameter)
	assert.ErrorIs(t, ValidateBaudRate(0), ErrInvalidParameter)
	assert.Contains(t, SupportedBaudRates, DefaultBaudRate)
}

func TestPortConfig(t *testing.T) {
	t.Parallel()

	cfg := portConfig("COM3", 57600, DefaultTimeouts().Baseline)
	assert.Equal(t, PortConfig{
		Port:     "COM3",
		BaudRate: 57600,
		DataBits: 8,
		Parity:   ParityNone,
		StopBits: StopBitsOne,
		Timeout:  DefaultTimeouts().Baseline,
	}, cfg)
}
