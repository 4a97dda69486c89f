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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	batgps "github.com/ZaparooProject/go-batgps"
	"github.com/ZaparooProject/go-batgps/detection"
	"github.com/ZaparooProject/go-batgps/polling"
	"github.com/ZaparooProject/go-batgps/worker"
)

var errUsage = errors.New("usage")

// command is one console verb, independent of the shell library
type command struct {
	run     func(w io.Writer, args []string) error
	name    string
	help    string
	aliases []string
}

// console drives one logger from typed commands
type console struct {
	device  *batgps.Device
	jobs    *worker.Pool
	monitor *polling.Monitor
	probe   detection.ProbeFunc
	confirm func(prompt string) bool
	now     func() time.Time
	detect  detection.Options
	goos    string
}

func (c *console) commands() []command {
	return []command{
		{name: "ports", help: "list serial ports; 'ports probe' asks each for a handshake", run: c.ports},
		{name: "port", help: "[PORT|N] show or set the port used by connect", run: c.port},
		{name: "baud", help: "[RATE] show or set the baud rate used by connect", run: c.baud},
		{name: "connect", aliases: []string{"c"}, help: "[PORT|N] [BAUD] open the link and read state", run: c.connect},
		{name: "disconnect", aliases: []string{"d"}, help: "end the session and close the link", run: c.disconnect},
		{name: "state", aliases: []string{"s"}, help: "read memory and device state", run: c.state},
		{name: "sensor", help: "read live sensor data", run: c.sensor},
		{name: "refresh", aliases: []string{"r"}, help: "read memory, device and sensor data", run: c.refresh},
		{name: "time", help: "[HH:MM] set the logging start time (default now)", run: c.setTime},
		{name: "clock", help: "[HH:MM] set the logger clock (default now)", run: c.setClock},
		{name: "alt", help: "METERS set the altitude trigger", run: c.setAltitude},
		{name: "erase", help: "erase the flash memory", run: c.erase},
		{name: "log", help: "FILE download the recorded log", run: c.log},
	}
}

// resolvePort turns a bare port number into the platform device name
func (c *console) resolvePort(arg string) (string, error) {
	if _, err := strconv.Atoi(arg); err == nil {
		return detection.PortName(c.goos, arg)
	}
	return arg, nil
}

func (c *console) ports(w io.Writer, args []string) error {
	opts := c.detect
	if len(args) > 0 && args[0] == "probe" {
		opts.Mode = detection.Full
		opts.Probe = c.probe
	}

	devices, err := detection.ListPorts(&opts)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		_, _ = fmt.Fprintln(w, "no serial ports found")
		return nil
	}
	for _, d := range devices {
		line := d.String()
		if d.Name != "" {
			line += " " + d.Name
		}
		if d.Metadata["probe"] == "ok" {
			line += " [BAT GPS]"
		}
		_, _ = fmt.Fprintln(w, line)
	}
	return nil
}

func (c *console) port(w io.Writer, args []string) error {
	if len(args) > 0 {
		port, err := c.resolvePort(args[0])
		if err != nil {
			return err
		}
		c.device.SetPort(port)
	}
	_, _ = fmt.Fprintf(w, "port: %s\n", c.device.Port())
	return nil
}

func (c *console) baud(w io.Writer, args []string) error {
	if len(args) > 0 {
		rate, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: baud rate %q", batgps.ErrInvalidParameter, args[0])
		}
		if err := batgps.ValidateBaudRate(rate); err != nil {
			return err
		}
		c.device.SetBaudRate(rate)
	}
	_, _ = fmt.Fprintf(w, "baud rate: %d (supported: %v)\n", c.device.BaudRate(), batgps.SupportedBaudRates)
	return nil
}

func (c *console) connect(w io.Writer, args []string) error {
	port := c.device.Port()
	rate := c.device.BaudRate()
	if len(args) > 0 {
		var err error
		if port, err = c.resolvePort(args[0]); err != nil {
			return err
		}
	}
	if len(args) > 1 {
		var err error
		if rate, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("%w: baud rate %q", batgps.ErrInvalidParameter, args[1])
		}
	}
	if err := c.device.ConnectTo(port, rate); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "connected to %s at %d baud\n", port, rate)

	if err := c.state(w, nil); err != nil {
		_, _ = fmt.Fprintf(w, "state refresh failed: %v\n", err)
	}
	return nil
}

func (c *console) disconnect(w io.Writer, _ []string) error {
	if !c.device.IsConnected() {
		_, _ = fmt.Fprintln(w, "not connected")
		return nil
	}
	if err := c.device.Disconnect(); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, "disconnected")
	return nil
}

// report prints a query result; send failures are shown as skipped
func report[T any](w io.Writer, what string, value T, err error, show func(io.Writer, T)) error {
	switch batgps.OutcomeOf(err) {
	case batgps.OutcomeOK:
		show(w, value)
		return nil
	case batgps.OutcomeEmpty:
		_, _ = fmt.Fprintf(w, "%s: no data\n", what)
		return nil
	default:
		return err
	}
}

func (c *console) state(w io.Writer, _ []string) error {
	if !c.device.IsConnected() {
		return batgps.ErrNotConnected
	}
	memory, err := c.device.GetMemoryState()
	if err := report(w, "memory", memory, err, printMemory); err != nil {
		return err
	}
	device, err := c.device.GetDeviceState()
	return report(w, "device", device, err, printDevice)
}

func (c *console) sensor(w io.Writer, _ []string) error {
	if !c.device.IsConnected() {
		return batgps.ErrNotConnected
	}
	snapshot, err := c.device.GetSensorData()
	return report(w, "sensor", snapshot, err, printSensor)
}

func (c *console) refresh(w io.Writer, _ []string) error {
	t, err := c.monitor.PollOnce(context.Background())
	if t.Memory != nil {
		printMemory(w, *t.Memory)
	}
	if t.Device != nil {
		printDevice(w, *t.Device)
	}
	if t.Sensor != nil {
		printSensor(w, *t.Sensor)
	}
	for _, name := range t.Skipped {
		_, _ = fmt.Fprintf(w, "%s: no data\n", name)
	}
	return err
}

// parseHourMinute reads HH:MM, defaulting to the current local time
func (c *console) parseHourMinute(args []string) (int, int, error) {
	if len(args) == 0 {
		now := c.now()
		return now.Hour(), now.Minute(), nil
	}
	hh, mm, ok := strings.Cut(args[0], ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: expected HH:MM, got %q", batgps.ErrInvalidParameter, args[0])
	}
	hour, errH := strconv.Atoi(hh)
	minute, errM := strconv.Atoi(mm)
	if errH != nil || errM != nil {
		return 0, 0, fmt.Errorf("%w: expected HH:MM, got %q", batgps.ErrInvalidParameter, args[0])
	}
	return hour, minute, nil
}

func (c *console) setHourMinute(w io.Writer, args []string, what string, set func(int, int) error) error {
	hour, minute, err := c.parseHourMinute(args)
	if err != nil {
		return err
	}
	if err := set(hour, minute); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "%s set to %02d:%02d\n", what, hour, minute)
	return nil
}

func (c *console) setTime(w io.Writer, args []string) error {
	return c.setHourMinute(w, args, "start time", c.device.SetTime)
}

func (c *console) setClock(w io.Writer, args []string) error {
	return c.setHourMinute(w, args, "clock", c.device.SetClock)
}

func (c *console) setAltitude(w io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: alt METERS", errUsage)
	}
	alt, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("%w: altitude %q", batgps.ErrInvalidParameter, args[0])
	}
	if err := c.device.SetAltitude(alt); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "altitude trigger set to %d m\n", int(alt))
	return nil
}

// runJob submits fn and blocks until it finishes
func (c *console) runJob(name string, fn worker.Func) error {
	future, err := c.jobs.Submit(name, fn)
	if err != nil {
		return err
	}
	return future.Wait(context.Background())
}

func (c *console) erase(w io.Writer, _ []string) error {
	if !c.device.IsConnected() {
		return batgps.ErrNotConnected
	}
	if c.confirm != nil && !c.confirm("Erase all recorded data?") {
		_, _ = fmt.Fprintln(w, "erase cancelled")
		return nil
	}

	_, _ = fmt.Fprintf(w, "erasing, this can take up to %s\n", c.device.Timeouts().Erase)
	if err := c.runJob("erase", c.device.EraseFlashMemory); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, "memory erased")

	memory, err := c.device.GetMemoryState()
	return report(w, "memory", memory, err, printMemory)
}

func (c *console) log(w io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: log FILE", errUsage)
	}
	if !c.device.IsConnected() {
		return batgps.ErrNotConnected
	}

	_, _ = fmt.Fprintf(w, "downloading log to %s\n", args[0])
	start := c.now()
	if err := c.runJob("log", func() error { return c.device.LogData(args[0]) }); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "log saved in %s\n", c.now().Sub(start).Round(time.Millisecond))
	return nil
}

func printMemory(w io.Writer, m batgps.MemoryState) {
	_, _ = fmt.Fprintf(w, "memory: %.2f%% used, health %s\n", m.UsedPercent(), m.Health())
}

func printDevice(w io.Writer, d batgps.DeviceState) {
	state, _ := d.OperatingState()
	fix := "no fix"
	if d.HasGPSFix() {
		fix = "3D fix"
	}
	_, _ = fmt.Fprintf(w, "device: gps %s, baro %s, state %d %s, %s\n",
		d.GPSHealth(), d.BaroHealth(), d.State, state, fix)
}

func printSensor(w io.Writer, s batgps.SensorSnapshot) {
	_, _ = fmt.Fprintf(w, "sensor: baro %.2f m, gps %s m at %s %s, time %s (fix %s, %s)\n",
		s.BaroAltitude(), s.GPSAltitude, s.GPSLatitude, s.GPSLongitude, s.GPSTime, s.GPSFixTime, s.GPSTimeTime)
}
