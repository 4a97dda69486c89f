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
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ZaparooProject/go-batgps/internal/frame"
)

// SendCommand writes one command frame. It returns false when the link is
// closed or the write fails; it never returns an error.
func (d *Device) SendCommand(cmd Command, payload string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.send(cmd, payload)
}

// Receive reads one response ending in terminator and validates its frame
func (d *Device) Receive(terminator string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.receive("receive", terminator)
}

func (d *Device) send(cmd Command, payload string) bool {
	if !d.isOpen() {
		d.logger.Debug("send on closed link", zap.Stringer("command", cmd))
		return false
	}

	buf := frame.Encode(cmd.Code(), payload)
	_, err := d.transport.Write(buf)
	if resetErr := d.transport.ResetOutputBuffer(); resetErr != nil {
		d.logger.Debug("failed to reset output buffer", zap.Error(resetErr))
	}
	if err != nil {
		d.logger.Warn("command write failed", zap.Stringer("command", cmd), zap.Error(err))
		return false
	}

	d.logger.Debug("sent frame", zap.Stringer("command", cmd), zap.ByteString("frame", buf))
	return true
}

func (d *Device) receive(op, terminator string) (string, error) {
	if !d.isOpen() {
		return "", ErrNotConnected
	}
	defer d.resetInput()

	data, err := d.transport.ReadUntil([]byte(terminator))
	d.rxData = data
	if err != nil {
		return "", d.transportError(op, ErrTransportRead, err)
	}
	if !bytes.Contains(data, []byte(terminator)) {
		return "", newProtocolError(op, ErrDeviceNotResponding, "")
	}
	if !frame.Validate(data) {
		return "", newProtocolError(op, ErrInvalidFrame, fmt.Sprintf("%q", data))
	}

	d.logger.Debug("received frame", zap.String("op", op), zap.Int("length", len(data)))
	return string(data), nil
}

func (d *Device) resetInput() {
	if d.transport == nil {
		return
	}
	if err := d.transport.ResetInputBuffer(); err != nil {
		d.logger.Debug("failed to reset input buffer", zap.Error(err))
	}
}

// withTimeout runs fn with the read timeout raised to timeout and restores
// the baseline afterwards, including when fn fails
func (d *Device) withTimeout(timeout time.Duration, fn func() error) (err error) {
	if setErr := d.transport.SetTimeout(timeout); setErr != nil {
		return d.transportError("set timeout", ErrTransportWrite, setErr)
	}
	transport := d.transport
	defer func() {
		restoreErr := transport.SetTimeout(d.config.Timeouts.Baseline)
		if restoreErr != nil && err == nil {
			err = d.transportError("restore timeout", ErrTransportWrite, restoreErr)
		}
	}()
	return fn()
}
