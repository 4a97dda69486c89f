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

package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	batgps "github.com/ZaparooProject/go-batgps"
)

// DefaultChunkSize is the size of each read issued to the underlying port
const DefaultChunkSize = 256

// TerminatedReader reads byte streams up to a terminator sequence. Bytes
// read past the terminator are kept for the next call.
//
// The underlying reader is expected to behave like a serial port with a
// short read timeout: Read returns (0, nil) when nothing arrived in time.
type TerminatedReader struct {
	r         io.Reader
	carry     []byte
	chunk     []byte
	pollDelay time.Duration
}

// NewTerminatedReader wraps r
func NewTerminatedReader(r io.Reader) *TerminatedReader {
	return &TerminatedReader{
		r:         r,
		chunk:     make([]byte, DefaultChunkSize),
		pollDelay: time.Millisecond,
	}
}

// SetPollDelay sets the pause between empty reads
func (tr *TerminatedReader) SetPollDelay(delay time.Duration) {
	tr.pollDelay = delay
}

// ReadUntil returns the bytes up to and including terminator. When timeout
// elapses first it returns everything received so far and a nil error.
func (tr *TerminatedReader) ReadUntil(terminator []byte, timeout time.Duration) ([]byte, error) {
	buf := tr.carry
	tr.carry = nil

	if out, ok := tr.split(buf, terminator); ok {
		return out, nil
	}

	result, err := Poll(timeout, tr.pollDelay, func() ([]byte, bool, error) {
		n, readErr := tr.r.Read(tr.chunk)
		if n > 0 {
			buf = append(buf, tr.chunk[:n]...)
		}
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, false, fmt.Errorf("%w: %w", batgps.ErrTransportRead, readErr)
		}
		out, ok := tr.split(buf, terminator)
		return out, ok, nil
	})
	if errors.Is(err, batgps.ErrTransportTimeout) {
		return buf, nil
	}
	if err != nil {
		return buf, err
	}
	return result, nil
}

// Reset drops bytes held back from a previous read
func (tr *TerminatedReader) Reset() {
	tr.carry = nil
}

// Buffered returns the number of bytes held back from a previous read
func (tr *TerminatedReader) Buffered() int {
	return len(tr.carry)
}

func (tr *TerminatedReader) split(buf, terminator []byte) ([]byte, bool) {
	if len(terminator) == 0 {
		return buf, len(buf) > 0
	}
	idx := bytes.Index(buf, terminator)
	if idx < 0 {
		return nil, false
	}
	end := idx + len(terminator)
	if end < len(buf) {
		tr.carry = append([]byte(nil), buf[end:]...)
	}
	return buf[:end], true
}
