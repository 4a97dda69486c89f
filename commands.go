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

	"github.com/ZaparooProject/go-batgps/internal/frame"
)

// Command identifies a logger operation. It is sent as a two digit code.
type Command byte

// Logger command codes
const (
	CmdConnectionResponse Command = 1
	CmdEraseMemory        Command = 2
	CmdReadMemory         Command = 3
	CmdStateMemory        Command = 4
	CmdSetTime            Command = 5
	CmdSetAltitude        Command = 6
	CmdStateDevice        Command = 7
	CmdDisconnect         Command = 8
	CmdSetClock           Command = 9
	CmdReadSensorData     Command = 10
)

// Code returns the zero-padded wire code of the command
func (c Command) Code() string {
	code, err := frame.PadDigits(int(c), frame.CodeWidth)
	if err != nil {
		return strconv.Itoa(int(c))
	}
	return code
}

func (c Command) String() string {
	switch c {
	case CmdConnectionResponse:
		return "CONNECTION_RESPONSE"
	case CmdEraseMemory:
		return "ERASE_MEMORY"
	case CmdReadMemory:
		return "READ_MEMORY"
	case CmdStateMemory:
		return "STATE_MEMORY"
	case CmdSetTime:
		return "SET_TIME"
	case CmdSetAltitude:
		return "SET_ALTITUDE"
	case CmdStateDevice:
		return "STATE_DEVICE"
	case CmdDisconnect:
		return "DISCONNECT"
	case CmdSetClock:
		return "SET_CLOCK"
	case CmdReadSensorData:
		return "READ_SENSOR_DATA"
	default:
		return fmt.Sprintf("UNKNOWN(%02d)", byte(c))
	}
}
