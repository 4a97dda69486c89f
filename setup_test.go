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
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-batgps/internal/frame"
)

func TestDevice_SetTimeAndClock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		set     func(*Device, int, int) error
		name    string
		want    string
		hour    int
		minute  int
	}{
		{name: "Time_Padded", set: (*Device).SetTime, hour: 5, minute: 9, want: "$050509#"},
		{name: "Time_Two_Digits", set: (*Device).SetTime, hour: 23, minute: 59, want: "$052359#"},
		{name: "Clock_Padded", set: (*Device).SetClock, hour: 0, minute: 0, want: "$090000#"},
		{name: "Clock_Two_Digits", set: (*Device).SetClock, hour: 12, minute: 30, want: "$091230#"},
		{name: "Hour_Overflow", set: (*Device).SetTime, hour: 100, minute: 0, wantErr: frame.ErrFieldOverflow},
		{name: "Minute_Negative", set: (*Device).SetClock, hour: 1, minute: -1, wantErr: frame.ErrNegativeField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, mock, err := NewConnectedDevice()
			require.NoError(t, err)

			err = tt.set(device, tt.hour, tt.minute)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.ErrorIs(t, err, ErrInvalidParameter)
				assert.Equal(t, KindParameter, KindOf(err))
				assert.Len(t, mock.Writes(), 1, "nothing is sent for a value that does not fit")
				return
			}

			require.NoError(t, err)
			writes := mock.Writes()
			require.Len(t, writes, 2)
			assert.Equal(t, tt.want, writes[1])
		})
	}
}

func TestDevice_SetAltitude(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr  error
		name     string
		want     string
		altitude float64
	}{
		{name: "Single_Digit", altitude: 7, want: "$060007#"},
		{name: "Four_Digits", altitude: 1234, want: "$061234#"},
		{name: "Truncated", altitude: 99.9, want: "$060099#"},
		{name: "Zero", altitude: 0, want: "$060000#"},
		{name: "Overflow", altitude: 10000, wantErr: frame.ErrFieldOverflow},
		{name: "Negative", altitude: -5, wantErr: frame.ErrNegativeField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, mock, err := NewConnectedDevice()
			require.NoError(t, err)

			err = device.SetAltitude(tt.altitude)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, mock.Writes()[1])
		})
	}
}

func TestDevice_Setters_NotConnected(t *testing.T) {
	t.Parallel()

	device, err := New()
	require.NoError(t, err)

	require.ErrorIs(t, device.SetTime(1, 2), ErrSendFailed)
	require.ErrorIs(t, device.SetClock(1, 2), ErrSendFailed)
	require.ErrorIs(t, device.SetAltitude(100), ErrSendFailed)
}

func TestDevice_EraseFlashMemory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		setupMock func(*MockTransport)
		wantErr   error
		name      string
	}{
		{
			name: "Acknowledged",
			setupMock: func(m *MockTransport) {
				m.Reply("$02#", "$OK#")
			},
		},
		{
			name: "Refused",
			setupMock: func(m *MockTransport) {
				m.Reply("$02#", "$ERR#")
			},
			wantErr: ErrEraseFailed,
		},
		{
			name:      "Timed_Out",
			setupMock: func(*MockTransport) {},
			wantErr:   ErrDeviceNotResponding,
		},
		{
			name: "Garbled",
			setupMock: func(m *MockTransport) {
				m.Reply("$02#", "OK#")
			},
			wantErr: ErrInvalidFrame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, mock, err := NewConnectedDevice()
			require.NoError(t, err)
			tt.setupMock(mock)

			err = device.EraseFlashMemory()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			reads := mock.ReadTimeouts()
			require.Len(t, reads, 2)
			assert.Equal(t, 60*time.Second, reads[1], "erase reply is read with the long timeout")
			assert.Equal(t, 2*time.Second, mock.CurrentTimeout(), "baseline timeout restored")
			assert.True(t, device.IsConnected())
		})
	}
}

func TestDevice_EraseFlashMemory_ErrorMessage(t *testing.T) {
	t.Parallel()

	device, mock, err := NewConnectedDevice()
	require.NoError(t, err)
	mock.Reply("$02#", "$NO#")

	err = device.EraseFlashMemory()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsuccessful memory erase")
	require.ErrorIs(t, err, ErrUnexpectedPayload)
}

func TestDevice_EraseFlashMemory_CustomTimeouts(t *testing.T) {
	t.Parallel()

	timeouts := Timeouts{Baseline: time.Second, Erase: 5 * time.Second, LogDownload: 10 * time.Second}
	device, mock, err := NewConnectedDevice(WithTimeouts(timeouts))
	require.NoError(t, err)
	mock.Reply("$02#", "$OK#")

	require.NoError(t, device.EraseFlashMemory())
	assert.Equal(t, []time.Duration{5 * time.Second, time.Second}, mock.timeoutLog)
}

func TestDevice_EraseFlashMemory_NotConnected(t *testing.T) {
	t.Parallel()

	device, err := New()
	require.NoError(t, err)
	require.ErrorIs(t, device.EraseFlashMemory(), ErrNotConnected)
}

func TestDevice_EraseFlashMemory_SetTimeoutFailure(t *testing.T) {
	t.Parallel()

	device, mock, err := NewConnectedDevice()
	require.NoError(t, err)
	mock.SetTimeoutFn = func(time.Duration) error { return errors.New("ioctl failed") }

	err = device.EraseFlashMemory()
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "set timeout", te.Op)
}

func TestDevice_LogDataTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		reply   string
		want    string
	}{
		{
			name:  "Strips_Marker_And_Trailer",
			reply: "$12:00,100.5\n12:01,101.0\n#$EOF_LOG#",
			want:  "12:00,100.5\n12:01,101.0\n",
		},
		{
			name:  "Empty_Log",
			reply: "$#$EOF_LOG#",
			want:  "",
		},
		{
			name:    "Transfer_Cut_Short",
			reply:   "$12:00,100.5\n12:0",
			wantErr: ErrDeviceNotResponding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, mock, err := NewConnectedDevice()
			require.NoError(t, err)
			mock.Reply("$03#", tt.reply)

			var buf bytes.Buffer
			err = device.LogDataTo(&buf)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, buf.String())
				assert.Len(t, buf.String(), len(tt.reply)-frame.LogLeaderLength-frame.LogTrailerLength)
			}

			reads := mock.ReadTimeouts()
			assert.Equal(t, 500*time.Second, reads[len(reads)-1])
			assert.Equal(t, 2*time.Second, mock.CurrentTimeout())
		})
	}
}

func TestDevice_LogData_File(t *testing.T) {
	t.Parallel()

	device, mock, err := NewConnectedDevice()
	require.NoError(t, err)
	mock.Reply("$03#", "$alt,time\n100,1200\n#$EOF_LOG#")

	path := filepath.Join(t.TempDir(), "flight.log")
	require.NoError(t, device.LogData(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "alt,time\n100,1200\n", string(content))
}

func TestDevice_LogData_BadDestination(t *testing.T) {
	t.Parallel()

	device, mock, err := NewConnectedDevice()
	require.NoError(t, err)

	err = device.LogData(filepath.Join(t.TempDir(), "missing", "flight.log"))
	var pathErr *os.PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Len(t, mock.Writes(), 1, "no download is started without a destination")
}

func TestDevice_LogData_NotConnected(t *testing.T) {
	t.Parallel()

	device, err := New()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "flight.log")
	require.ErrorIs(t, device.LogData(path), ErrNotConnected)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
