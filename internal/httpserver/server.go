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

// Package httpserver exposes the logger controller over a REST API
package httpserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	batgps "github.com/ZaparooProject/go-batgps"
	"github.com/ZaparooProject/go-batgps/internal/config"
	"github.com/ZaparooProject/go-batgps/worker"
)

// Controller is the part of *batgps.Device the API drives
type Controller interface {
	Connect() error
	ConnectTo(port string, baudRate int) error
	Disconnect() error
	IsConnected() bool
	Port() string
	BaudRate() int
	GetMemoryState() (batgps.MemoryState, error)
	GetDeviceState() (batgps.DeviceState, error)
	GetSensorData() (batgps.SensorSnapshot, error)
	SetTime(hour, minute int) error
	SetClock(hour, minute int) error
	SetAltitude(altitude float64) error
	EraseFlashMemory() error
	LogData(destination string) error
}

// Options wires the server to the rest of the daemon
type Options struct {
	Controller     Controller
	Jobs           *worker.Pool
	MetricsHandler http.Handler
	ReadyFn        func() bool
	// OnJobDone is called when an erase or log job finishes
	OnJobDone func(name string, err error)
	// OnLinkChange is called after connect and disconnect requests
	OnLinkChange func(connected bool)
	Logger       *zap.Logger
	MetricsPath  string
	// LogDir receives downloaded logs; defaults to the working directory
	LogDir string
}

// Server wraps the gin engine and its http.Server
type Server struct {
	srv     *http.Server
	limiter *RateLimiter
}

// New configures routes for health, readiness, metrics and the logger API
func New(cfg config.HTTPConfig, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.LogDir == "" {
		opts.LogDir = "."
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if opts.ReadyFn == nil || opts.ReadyFn() {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})
	metricsPath := opts.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	if opts.MetricsHandler != nil {
		r.GET(metricsPath, gin.WrapH(opts.MetricsHandler))
	}

	limiter := NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	if opts.Controller != nil {
		h := &handlers{opts: opts}
		api := r.Group("/api/v1", limiter.Middleware())
		api.POST("/connect", h.connect)
		api.POST("/disconnect", h.disconnect)
		api.GET("/state", h.state)
		api.GET("/sensor", h.sensor)
		api.POST("/time", h.setTime)
		api.POST("/clock", h.setClock)
		api.POST("/altitude", h.setAltitude)
		api.POST("/erase", h.erase)
		api.POST("/log", h.log)
		api.GET("/jobs/:id", h.job)
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Server{srv: srv, limiter: limiter}
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Limiter returns the API rate limiter
func (s *Server) Limiter() *RateLimiter {
	return s.limiter
}

// Start serves until Shutdown; it returns http.ErrServerClosed after a clean stop
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
