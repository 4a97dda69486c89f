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
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ZaparooProject/go-batgps/internal/frame"
)

// SetTime sets the logger wake-up time. The command is not acknowledged.
// Hours and minutes are sent as two digits each; callers should keep them
// within 0-23 and 0-59.
func (d *Device) SetTime(hour, minute int) error {
	return d.setHourMinute(CmdSetTime, hour, minute)
}

// SetClock sets the logger real time clock. The command is not acknowledged.
func (d *Device) SetClock(hour, minute int) error {
	return d.setHourMinute(CmdSetClock, hour, minute)
}

// SetAltitude sets the trigger altitude in metres. The value is truncated
// to an integer and sent as four digits. The command is not acknowledged.
func (d *Device) SetAltitude(altitude float64) error {
	payload, err := encodeField(int(altitude), frame.AltitudeWidth)
	if err != nil {
		return fmt.Errorf("altitude: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fire(CmdSetAltitude, payload)
}

func (d *Device) setHourMinute(cmd Command, hour, minute int) error {
	hh, err := encodeField(hour, frame.HourWidth)
	if err != nil {
		return fmt.Errorf("hour: %w", err)
	}
	mm, err := encodeField(minute, frame.MinuteWidth)
	if err != nil {
		return fmt.Errorf("minute: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fire(cmd, hh+mm)
}

// fire sends a command that has no reply
func (d *Device) fire(cmd Command, payload string) (err error) {
	start := time.Now()
	defer func() { d.observe(cmd, start, err) }()

	if !d.send(cmd, payload) {
		return fmt.Errorf("%s: %w", cmd, ErrSendFailed)
	}
	return nil
}

func encodeField(value, width int) (string, error) {
	s, err := frame.PadDigits(value, width)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	return s, nil
}

// EraseFlashMemory erases the logger flash. The erase is slow, so the read
// timeout is raised for the acknowledgement and restored afterwards.
func (d *Device) EraseFlashMemory() (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	start := time.Now()
	defer func() { d.observe(CmdEraseMemory, start, err) }()

	if !d.isOpen() {
		return ErrNotConnected
	}
	if !d.send(CmdEraseMemory, "") {
		return fmt.Errorf("erase memory: %w", ErrSendFailed)
	}

	var data string
	err = d.withTimeout(d.config.Timeouts.Erase, func() error {
		var recvErr error
		data, recvErr = d.receive("erase memory", frame.Terminator)
		return recvErr
	})
	if err != nil {
		return err
	}

	if payload := frame.Payload(data); payload != frame.Acknowledge {
		return newProtocolError("erase memory", ErrEraseFailed, fmt.Sprintf("got %q", payload))
	}

	d.logger.Info("flash memory erased", zap.String("port", d.port), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// LogData downloads the recorded log and writes it to the file at destination.
// File and link errors are returned unmodified.
func (d *Device) LogData(destination string) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isOpen() {
		return ErrNotConnected
	}

	f, err := os.Create(destination)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return d.logData(f)
}

// LogDataTo downloads the recorded log and writes it to w
func (d *Device) LogDataTo(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.logData(w)
}

func (d *Device) logData(w io.Writer) (err error) {
	start := time.Now()
	defer func() { d.observe(CmdReadMemory, start, err) }()

	if !d.isOpen() {
		return ErrNotConnected
	}
	if !d.send(CmdReadMemory, "") {
		return fmt.Errorf("read memory: %w", ErrSendFailed)
	}

	var data string
	err = d.withTimeout(d.config.Timeouts.LogDownload, func() error {
		var recvErr error
		data, recvErr = d.receive("read memory", frame.LogTerminator)
		return recvErr
	})
	if err != nil {
		return err
	}

	body := frame.StripLog([]byte(data))
	if _, err := w.Write(body); err != nil {
		return err
	}

	d.logger.Info("log downloaded", zap.Int("bytes", len(body)), zap.Duration("elapsed", time.Since(start)))
	return nil
}
