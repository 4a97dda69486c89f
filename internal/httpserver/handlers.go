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

package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	batgps "github.com/ZaparooProject/go-batgps"
	"github.com/ZaparooProject/go-batgps/internal/telemetry"
	"github.com/ZaparooProject/go-batgps/worker"
)

const logFileLayout = "batgps-20060102-150405.log"

var errNoWorkers = errors.New("background jobs unavailable")

type handlers struct {
	opts Options
}

type connectRequest struct {
	Port     string `json:"port"`
	BaudRate int    `json:"baudRate"`
}

type hourMinuteRequest struct {
	Hour   *int `json:"hour" binding:"required"`
	Minute *int `json:"minute" binding:"required"`
}

type altitudeRequest struct {
	Altitude *float64 `json:"altitude" binding:"required"`
}

type logRequest struct {
	File string `json:"file"`
}

type linkResponse struct {
	Port      string `json:"port"`
	BaudRate  int    `json:"baudRate"`
	Connected bool   `json:"connected"`
}

type stateResponse struct {
	Memory    *telemetry.MemoryView `json:"memory,omitempty"`
	Device    *telemetry.DeviceView `json:"device,omitempty"`
	Skipped   []string              `json:"skipped,omitempty"`
	Connected bool                  `json:"connected"`
}

type jobResponse struct {
	ID   string `json:"id"`
	Job  string `json:"job"`
	File string `json:"file,omitempty"`
}

// statusFor maps an engine error onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, batgps.ErrNotConnected), errors.Is(err, batgps.ErrAlreadyConnected):
		return http.StatusConflict
	case errors.Is(err, worker.ErrQueueFull), errors.Is(err, worker.ErrPoolClosed), errors.Is(err, errNoWorkers):
		return http.StatusServiceUnavailable
	}

	switch batgps.KindOf(err) {
	case batgps.KindParameter:
		return http.StatusBadRequest
	case batgps.KindConnection, batgps.KindProtocol:
		if batgps.OutcomeOf(err) == batgps.OutcomeEmpty {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	case batgps.KindTransport:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) fail(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.opts.Logger.Warn("api request failed", zap.String("op", op), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": batgps.KindOf(err).String()})
}

func (h *handlers) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": batgps.KindParameter.String()})
}

// bindOptional accepts an empty body as the zero request
func bindOptional(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// requireLink answers 409 when the serial link is closed
func (h *handlers) requireLink(c *gin.Context, op string) bool {
	if h.opts.Controller.IsConnected() {
		return true
	}
	h.fail(c, op, batgps.ErrNotConnected)
	return false
}

func (h *handlers) linkChanged() {
	if h.opts.OnLinkChange != nil {
		h.opts.OnLinkChange(h.opts.Controller.IsConnected())
	}
}

func (h *handlers) link() linkResponse {
	ctl := h.opts.Controller
	return linkResponse{Port: ctl.Port(), BaudRate: ctl.BaudRate(), Connected: ctl.IsConnected()}
}

func (h *handlers) connect(c *gin.Context) {
	var req connectRequest
	if err := bindOptional(c, &req); err != nil {
		h.badRequest(c, err)
		return
	}

	ctl := h.opts.Controller
	var err error
	if req.Port == "" && req.BaudRate == 0 {
		err = ctl.Connect()
	} else {
		port, baud := req.Port, req.BaudRate
		if port == "" {
			port = ctl.Port()
		}
		if baud == 0 {
			baud = ctl.BaudRate()
		}
		err = ctl.ConnectTo(port, baud)
	}
	h.linkChanged()
	if err != nil {
		h.fail(c, "connect", err)
		return
	}
	c.JSON(http.StatusOK, h.link())
}

func (h *handlers) disconnect(c *gin.Context) {
	err := h.opts.Controller.Disconnect()
	h.linkChanged()
	if err != nil {
		h.fail(c, "disconnect", err)
		return
	}
	c.JSON(http.StatusOK, h.link())
}

// state refreshes memory and device state. Queries whose command could not
// be sent are listed as skipped.
func (h *handlers) state(c *gin.Context) {
	if !h.requireLink(c, "state") {
		return
	}
	ctl := h.opts.Controller

	resp := stateResponse{Connected: true}

	memory, err := ctl.GetMemoryState()
	switch batgps.OutcomeOf(err) {
	case batgps.OutcomeOK:
		v := telemetry.NewMemoryView(memory)
		resp.Memory = &v
	case batgps.OutcomeEmpty:
		resp.Skipped = append(resp.Skipped, "memory")
	default:
		h.fail(c, "memory state", err)
		return
	}

	device, err := ctl.GetDeviceState()
	switch batgps.OutcomeOf(err) {
	case batgps.OutcomeOK:
		v := telemetry.NewDeviceView(device)
		resp.Device = &v
	case batgps.OutcomeEmpty:
		resp.Skipped = append(resp.Skipped, "device")
	default:
		h.fail(c, "device state", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *handlers) sensor(c *gin.Context) {
	if !h.requireLink(c, "sensor data") {
		return
	}
	snapshot, err := h.opts.Controller.GetSensorData()
	if err != nil {
		h.fail(c, "sensor data", err)
		return
	}
	c.JSON(http.StatusOK, telemetry.NewSensorView(snapshot))
}

func (h *handlers) setHourMinute(c *gin.Context, op string, set func(int, int) error) {
	var req hourMinuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if !h.requireLink(c, op) {
		return
	}
	if err := set(*req.Hour, *req.Minute); err != nil {
		h.fail(c, op, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) setTime(c *gin.Context) {
	h.setHourMinute(c, "set time", h.opts.Controller.SetTime)
}

func (h *handlers) setClock(c *gin.Context) {
	h.setHourMinute(c, "set clock", h.opts.Controller.SetClock)
}

func (h *handlers) setAltitude(c *gin.Context) {
	var req altitudeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if !h.requireLink(c, "set altitude") {
		return
	}
	if err := h.opts.Controller.SetAltitude(*req.Altitude); err != nil {
		h.fail(c, "set altitude", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) submit(name string, fn worker.Func) (*worker.Future, error) {
	if h.opts.Jobs == nil {
		return nil, errNoWorkers
	}
	return h.opts.Jobs.Submit(name, func() error {
		err := fn()
		if h.opts.OnJobDone != nil {
			h.opts.OnJobDone(name, err)
		}
		return err
	})
}

func (h *handlers) erase(c *gin.Context) {
	if !h.requireLink(c, "erase") {
		return
	}
	future, err := h.submit("erase", h.opts.Controller.EraseFlashMemory)
	if err != nil {
		h.fail(c, "erase", err)
		return
	}
	c.JSON(http.StatusAccepted, jobResponse{ID: future.ID(), Job: future.Name()})
}

func (h *handlers) log(c *gin.Context) {
	var req logRequest
	if err := bindOptional(c, &req); err != nil {
		h.badRequest(c, err)
		return
	}

	name := req.File
	if name == "" {
		name = time.Now().Format(logFileLayout)
	}
	if base := filepath.Base(name); base != name || base == "." || base == ".." || base == string(os.PathSeparator) {
		h.badRequest(c, fmt.Errorf("%w: file must be a bare name, got %q", batgps.ErrInvalidParameter, req.File))
		return
	}
	if !h.requireLink(c, "log") {
		return
	}

	destination := filepath.Join(h.opts.LogDir, name)
	future, err := h.submit("log", func() error {
		return h.opts.Controller.LogData(destination)
	})
	if err != nil {
		h.fail(c, "log", err)
		return
	}
	c.JSON(http.StatusAccepted, jobResponse{ID: future.ID(), Job: future.Name(), File: destination})
}

func (h *handlers) job(c *gin.Context) {
	if h.opts.Jobs == nil {
		h.fail(c, "job", errNoWorkers)
		return
	}
	future, ok := h.opts.Jobs.Lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, future.Snapshot())
}
