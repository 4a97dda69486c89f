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

// Command batgps is an interactive console for a BAT GPS logger.
// Arguments after the flags run a single console command and exit,
// e.g. "batgps -port 0 connect" or "batgps ports probe".
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/abiosoft/ishell"
	"go.uber.org/zap"

	batgps "github.com/ZaparooProject/go-batgps"
	"github.com/ZaparooProject/go-batgps/detection"
	"github.com/ZaparooProject/go-batgps/internal/config"
	"github.com/ZaparooProject/go-batgps/internal/logging"
	"github.com/ZaparooProject/go-batgps/polling"
	"github.com/ZaparooProject/go-batgps/transport/uart"
	"github.com/ZaparooProject/go-batgps/worker"
)

type flags struct {
	configPath *string
	port       *string
	baud       *int
	debug      *bool
}

func parseFlags() *flags {
	f := &flags{
		configPath: flag.String("config", "", "Config file (default: ./batgps.yaml or ./configs/batgps.yaml)"),
		port:       flag.String("port", "", "Serial port path or number (e.g. /dev/ttyUSB0, COM3 or 0)"),
		baud:       flag.Int("baud", 0, "Baud rate (default from config, 115200)"),
		debug:      flag.Bool("debug", false, "Enable debug logging"),
	}
	flag.Parse()
	return f
}

// shellWriter prints through the shell so output does not tear the prompt
type shellWriter struct {
	c *ishell.Context
}

func (w shellWriter) Write(p []byte) (int, error) {
	w.c.Print(string(p))
	return len(p), nil
}

func newShell(c *console) *ishell.Shell {
	sh := ishell.New()
	sh.SetPrompt("batgps> ")

	c.confirm = func(prompt string) bool {
		sh.Print(prompt + " [y/N] ")
		answer := strings.ToLower(strings.TrimSpace(sh.ReadLine()))
		return answer == "y" || answer == "yes"
	}

	for _, cmd := range c.commands() {
		run := cmd.run
		sh.AddCmd(&ishell.Cmd{
			Name:    cmd.name,
			Aliases: cmd.aliases,
			Help:    cmd.help,
			Func: func(ctx *ishell.Context) {
				if err := run(shellWriter{c: ctx}, ctx.Args); err != nil {
					ctx.Err(err)
				}
			},
		})
	}
	return sh
}

func newConsole(cfg *config.Config, logger *zap.Logger) (*console, error) {
	factory := uart.NewFactory(uart.OpenPolicy{
		Retries: cfg.Serial.OpenRetries,
		Delay:   cfg.Serial.OpenRetryDelay,
	})

	device, err := batgps.New(
		batgps.WithTransportFactory(factory),
		batgps.WithBaudRate(cfg.Serial.BaudRate),
		batgps.WithTimeouts(cfg.Timeouts.Timeouts()),
		batgps.WithLogger(logger.Named("device")),
	)
	if err != nil {
		return nil, err
	}

	c := &console{
		device: device,
		jobs:   worker.NewPool(cfg.Worker.Workers, cfg.Worker.QueueSize, logger.Named("worker")),
		probe:  detection.HandshakeProbe(factory, cfg.Serial.BaudRate),
		now:    time.Now,
		detect: detection.DefaultOptions(),
		goos:   runtime.GOOS,
	}

	if cfg.Serial.Port != "" {
		port, err := c.resolvePort(cfg.Serial.Port)
		if err != nil {
			return nil, err
		}
		device.SetPort(port)
	}

	c.monitor, err = polling.NewMonitor(device, nil, polling.Callbacks{}, logger.Named("poll"))
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *console) close(w io.Writer) {
	if c.device.IsConnected() {
		if err := c.device.Disconnect(); err != nil {
			_, _ = fmt.Fprintf(w, "disconnect failed: %v\n", err)
		}
	}
	c.jobs.Close()
	c.monitor.Close()
}

func main() {
	f := parseFlags()

	cfg, err := config.Load(*f.configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *f.port != "" {
		cfg.Serial.Port = *f.port
	}
	if *f.baud != 0 {
		cfg.Serial.BaudRate = *f.baud
	}
	// Info logs would interleave with console output
	cfg.Logging.Level = "warn"
	if *f.debug {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	c, err := newConsole(cfg, logger)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to set up console: %v\n", err)
		os.Exit(1)
	}
	defer c.close(os.Stderr)

	sh := newShell(c)
	if args := flag.Args(); len(args) > 0 {
		if err := sh.Process(args...); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		return
	}

	sh.Println("BAT GPS console. Type 'help' for commands.")
	sh.Run()
}
