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

// Command batgpsd keeps a BAT GPS logger connected, polls its telemetry,
// publishes it over MQTT and serves a control API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ZaparooProject/go-batgps/internal/config"
	"github.com/ZaparooProject/go-batgps/internal/logging"
	"github.com/ZaparooProject/go-batgps/internal/telemetry"
	"github.com/ZaparooProject/go-batgps/transport/uart"
)

func main() {
	configPath := flag.String("config", "", "Config file (default: ./batgps.yaml or ./configs/batgps.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	var pub publisher
	if cfg.MQTT.Enable {
		p, err := telemetry.NewPublisher(cfg.MQTT, logger.Named("mqtt"))
		if err != nil {
			logger.Fatal("mqtt setup failed", zap.Error(err))
		}
		logger.Info("publishing telemetry", zap.String("topic", p.Topic()))
		pub = p
	}

	factory := uart.NewFactory(uart.OpenPolicy{
		Retries: cfg.Serial.OpenRetries,
		Delay:   cfg.Serial.OpenRetryDelay,
	})
	d, err := newDaemon(cfg, logger, factory, pub)
	if err != nil {
		logger.Fatal("daemon setup failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.run(ctx); err != nil {
		logger.Error("daemon stopped with error", zap.Error(err))
	}
}
