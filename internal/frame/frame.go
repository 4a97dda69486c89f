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

package frame

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Field encoding errors
var (
	ErrFieldOverflow = errors.New("value does not fit field width")
	ErrNegativeField = errors.New("negative value in unsigned field")
	ErrFieldFormat   = errors.New("field is not a decimal number")
)

// Encode builds a command frame: start char, command code, payload, end char
func Encode(code, payload string) []byte {
	buf := make([]byte, 0, len(code)+len(payload)+2)
	buf = append(buf, StartChar)
	buf = append(buf, code...)
	buf = append(buf, payload...)
	buf = append(buf, EndChar)
	return buf
}

// Validate reports whether data is bounded by the start and end characters.
// Both boundaries must be present.
func Validate(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	return data[0] == StartChar && data[len(data)-1] == EndChar
}

// Payload strips the leading and trailing frame characters from a received frame
func Payload(data string) string {
	if len(data) < 2 {
		return ""
	}
	return data[1 : len(data)-1]
}

// Fields returns the comma separated fields of a received frame
func Fields(data string) []string {
	return strings.Split(Payload(data), FieldSeparator)
}

// StripLog removes the frame marker and the trailing terminator sequence from
// a raw bulk log read. Reads too short to carry both are returned empty.
func StripLog(raw []byte) []byte {
	if len(raw) <= LogLeaderLength+LogTrailerLength {
		return nil
	}
	return raw[LogLeaderLength : len(raw)-LogTrailerLength]
}

// PadDigits renders value as exactly width zero-padded decimal digits.
// Values that would need more digits are rejected, never truncated.
func PadDigits(value, width int) (string, error) {
	if value < 0 {
		return "", fmt.Errorf("%w: %d", ErrNegativeField, value)
	}
	s := strconv.Itoa(value)
	if len(s) > width {
		return "", fmt.Errorf("%w: %d exceeds %d digits", ErrFieldOverflow, value, width)
	}
	return strings.Repeat("0", width-len(s)) + s, nil
}

// ParseDigits decodes a fixed-width zero-padded decimal field
func ParseDigits(field string) (int, error) {
	if field == "" {
		return 0, ErrFieldFormat
	}
	for _, r := range field {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrFieldFormat, field)
		}
	}
	v, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFieldFormat, err)
	}
	return v, nil
}
