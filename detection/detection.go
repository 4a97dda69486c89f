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

// Package detection finds serial ports a BAT GPS logger may be attached to
package detection

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnsupportedPlatform is returned where port naming or probing is unavailable
	ErrUnsupportedPlatform = errors.New("unsupported OS platform")
	// ErrNoDevicesFound is returned when no candidate port survives filtering
	ErrNoDevicesFound = errors.New("no devices found")
)

// Mode selects how intrusive detection is
type Mode int

const (
	// Passive only lists ports reported by the OS
	Passive Mode = iota
	// Safe also checks that the port can be opened for reading and writing
	Safe
	// Full additionally runs the caller supplied probe on every accessible port
	Full
)

func (m Mode) String() string {
	switch m {
	case Passive:
		return "passive"
	case Safe:
		return "safe"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// DeviceInfo describes one candidate serial port
type DeviceInfo struct {
	Metadata   map[string]string
	Transport  string
	Path       string
	Name       string
	VIDPID     string
	Accessible bool
	IsUSB      bool
}

// String returns a short human-readable description
func (d DeviceInfo) String() string {
	if d.VIDPID == "" {
		return d.Path
	}
	return fmt.Sprintf("%s (%s)", d.Path, d.VIDPID)
}

// ProbeFunc reports whether a logger answers on the given port
type ProbeFunc func(ctx context.Context, device DeviceInfo) bool

// Options configures detection
type Options struct {
	Probe       ProbeFunc
	Blocklist   []string
	IgnorePaths []string
	Mode        Mode
	Timeout     time.Duration
	USBOnly     bool
}

// DefaultOptions returns options for a safe scan of USB serial adapters
func DefaultOptions() Options {
	return Options{
		Mode:      Safe,
		Timeout:   5 * time.Second,
		Blocklist: DefaultBlocklist(),
		USBOnly:   true,
	}
}

// PortName builds the serial device path for a port number on goos,
// e.g. "/dev/ttyUSB0" on linux and "COM3" on windows
func PortName(goos, suffix string) (string, error) {
	if suffix == "" {
		return "", errors.New("empty port number")
	}
	switch goos {
	case "linux":
		return "/dev/ttyUSB" + suffix, nil
	case "windows":
		return "COM" + suffix, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
}
