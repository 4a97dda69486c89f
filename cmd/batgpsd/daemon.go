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
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	batgps "github.com/ZaparooProject/go-batgps"
	"github.com/ZaparooProject/go-batgps/detection"
	"github.com/ZaparooProject/go-batgps/internal/config"
	"github.com/ZaparooProject/go-batgps/internal/httpserver"
	"github.com/ZaparooProject/go-batgps/internal/metrics"
	"github.com/ZaparooProject/go-batgps/polling"
	"github.com/ZaparooProject/go-batgps/worker"
)

const shutdownTimeout = 5 * time.Second

// publisher is the telemetry sink; *telemetry.Publisher in production
type publisher interface {
	Connect() error
	Publish(polling.Telemetry) error
	Close() error
}

// daemon keeps one logger connected, polls it and serves the API
type daemon struct {
	cfg       *config.Config
	logger    *zap.Logger
	device    *batgps.Device
	factory   batgps.TransportFactory
	jobs      *worker.Pool
	monitor   *polling.Monitor
	metrics   *metrics.Metrics
	registry  *prometheus.Registry
	server    *httpserver.Server
	publisher publisher
	detect    func(context.Context) (string, error)
	goos      string
	redetect  bool
}

func newDaemon(cfg *config.Config, logger *zap.Logger, factory batgps.TransportFactory, pub publisher) (*daemon, error) {
	d := &daemon{
		cfg:       cfg,
		logger:    logger,
		factory:   factory,
		registry:  metrics.NewRegistry(),
		publisher: pub,
		goos:      runtime.GOOS,
	}
	d.metrics = metrics.New(d.registry)
	d.detect = d.autoDetect

	device, err := batgps.New(
		batgps.WithTransportFactory(factory),
		batgps.WithBaudRate(cfg.Serial.BaudRate),
		batgps.WithTimeouts(cfg.Timeouts.Timeouts()),
		batgps.WithLogger(logger.Named("device")),
		batgps.WithObserver(d.metrics),
	)
	if err != nil {
		return nil, err
	}
	d.device = device

	pollConfig := polling.DefaultConfig()
	pollConfig.PollInterval = cfg.Polling.Interval
	if cfg.Polling.MaxBackoff > 0 {
		pollConfig.MaxBackoff = cfg.Polling.MaxBackoff
	}
	d.monitor, err = polling.NewMonitor(device, pollConfig, polling.Callbacks{
		OnTelemetry:  d.onTelemetry,
		OnPoll:       d.metrics.ObservePoll,
		OnLinkChange: d.onLinkChange,
		OnStale: func() {
			d.logger.Warn("telemetry is stale")
		},
	}, logger.Named("poll"))
	if err != nil {
		return nil, err
	}

	d.jobs = worker.NewPool(cfg.Worker.Workers, cfg.Worker.QueueSize, logger.Named("worker"))
	d.jobs.SetRetention(cfg.Worker.Retain)

	var metricsHandler http.Handler
	if cfg.Metrics.Enable {
		metricsHandler = metrics.Handler(d.registry)
	}
	d.server = httpserver.New(cfg.HTTP, httpserver.Options{
		Controller:     device,
		Jobs:           d.jobs,
		MetricsHandler: metricsHandler,
		MetricsPath:    cfg.Metrics.Path,
		ReadyFn:        device.IsConnected,
		OnJobDone:      d.onJobDone,
		OnLinkChange:   d.metrics.SetConnected,
		Logger:         logger.Named("http"),
		LogDir:         cfg.HTTP.LogDir,
	})
	return d, nil
}

func (d *daemon) onTelemetry(t polling.Telemetry) {
	d.metrics.ObserveTelemetry(t)
	if d.publisher == nil {
		return
	}
	if err := d.publisher.Publish(t); err != nil {
		d.logger.Warn("telemetry publish failed", zap.Error(err))
	}
}

func (d *daemon) onLinkChange(from, to polling.LinkState) {
	d.logger.Info("link state changed", zap.Stringer("from", from), zap.Stringer("to", to))
	d.metrics.SetConnected(d.device.IsConnected())
}

// onJobDone refreshes memory usage after a successful erase
func (d *daemon) onJobDone(name string, err error) {
	d.metrics.ObserveJob(name, err)
	if name != "erase" || err != nil {
		return
	}
	memory, memErr := d.device.GetMemoryState()
	if memErr != nil {
		d.logger.Warn("memory refresh after erase failed", zap.Error(memErr))
		return
	}
	d.metrics.ObserveTelemetry(polling.Telemetry{Memory: &memory})
}

// resolvePort expands a numeric port and, when none is configured, scans
// for the first port whose logger answers
func (d *daemon) resolvePort(ctx context.Context) (string, error) {
	port := d.cfg.Serial.Port
	if port == "" {
		return d.detect(ctx)
	}
	if _, err := strconv.Atoi(port); err == nil {
		return detection.PortName(d.goos, port)
	}
	return port, nil
}

func (d *daemon) autoDetect(ctx context.Context) (string, error) {
	opts := detection.DefaultOptions()
	found, err := detection.FirstResponding(ctx, &opts, detection.HandshakeProbe(d.factory, d.cfg.Serial.BaudRate))
	if err != nil {
		return "", fmt.Errorf("auto-detect: %w", err)
	}
	d.logger.Info("logger detected", zap.String("port", found.Path), zap.String("vidpid", found.VIDPID))
	return found.Path, nil
}

// ensureConnected connects when the link is down and reads the initial state
func (d *daemon) ensureConnected(ctx context.Context) error {
	if d.device.IsConnected() {
		return nil
	}

	port := d.device.Port()
	if port == "" || d.redetect {
		var err error
		if port, err = d.resolvePort(ctx); err != nil {
			return err
		}
		d.redetect = false
	}

	if err := d.device.ConnectTo(port, d.cfg.Serial.BaudRate); err != nil {
		d.metrics.SetConnected(false)
		// an auto-detected port may have been renumbered by a replug
		var connErr *batgps.ConnectionError
		if d.cfg.Serial.Port == "" && errors.As(err, &connErr) {
			d.redetect = true
		}
		return err
	}
	d.metrics.SetConnected(true)

	var t polling.Telemetry
	if memory, err := d.device.GetMemoryState(); err == nil {
		t.Memory = &memory
	}
	if device, err := d.device.GetDeviceState(); err == nil {
		t.Device = &device
	}
	d.metrics.ObserveTelemetry(t)
	return nil
}

// reconnectLoop keeps trying to connect until ctx ends
func (d *daemon) reconnectLoop(ctx context.Context) {
	interval := d.cfg.Serial.ReconnectInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := d.ensureConnected(ctx); err != nil && ctx.Err() == nil {
			d.logger.Warn("connect failed", zap.Error(err), zap.Duration("retry_in", interval))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// run serves until ctx ends, then shuts everything down and disconnects
func (d *daemon) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if d.publisher != nil {
		if err := d.publisher.Connect(); err != nil {
			d.logger.Warn("mqtt unavailable, telemetry will not be published", zap.Error(err))
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := d.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	d.logger.Info("http server listening", zap.String("addr", d.cfg.HTTP.Addr))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.reconnectLoop(ctx)
	}()
	if d.cfg.Polling.Enable {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.monitor.Start(ctx)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErr:
		d.logger.Error("http server failed", zap.Error(runErr))
	}
	cancel()

	return errors.Join(runErr, d.shutdown(&wg))
}

func (d *daemon) shutdown(wg *sync.WaitGroup) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := d.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	wg.Wait()
	d.jobs.Close()
	d.monitor.Close()

	if d.device.IsConnected() {
		if err := d.device.Disconnect(); err != nil {
			errs = append(errs, fmt.Errorf("disconnect: %w", err))
		}
	}
	d.metrics.SetConnected(false)

	if d.publisher != nil {
		if err := d.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("mqtt close: %w", err))
		}
	}
	d.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
