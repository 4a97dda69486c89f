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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	batgps "github.com/ZaparooProject/go-batgps"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batgps.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, batgps.DefaultBaudRate, cfg.Serial.BaudRate)
	assert.Equal(t, 2, cfg.Serial.OpenRetries)
	assert.Equal(t, 200*time.Millisecond, cfg.Serial.OpenRetryDelay)
	assert.Equal(t, batgps.DefaultTimeouts(), cfg.Timeouts.Timeouts())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.InDelta(t, 5.0, cfg.HTTP.RateLimit, 1e-9)
	assert.True(t, cfg.Metrics.Enable)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.MQTT.Enable)
	assert.Equal(t, "batgps", cfg.MQTT.TopicPrefix)
	assert.Equal(t, time.Second, cfg.Polling.Interval)
	assert.Equal(t, 1, cfg.Worker.Workers)
	assert.Equal(t, 64, cfg.Worker.Retain)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
serial:
  port: /dev/ttyUSB1
  baudRate: 57600
timeouts:
  erase: 90s
logging:
  level: debug
  format: json
mqtt:
  enable: true
  broker: tcp://localhost:1883
  hostID: bench-01
  qos: 1
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Port)
	assert.Equal(t, 57600, cfg.Serial.BaudRate)
	assert.Equal(t, 90*time.Second, cfg.Timeouts.Erase)
	assert.Equal(t, 2*time.Second, cfg.Timeouts.Baseline, "unset keys keep defaults")
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.MQTT.Enable)
	assert.Equal(t, "bench-01", cfg.MQTT.HostID)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("BATGPS_SERIAL_PORT", "COM4")
	t.Setenv("BATGPS_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("BATGPS_POLLING_ENABLE", "false")

	cfg, err := Load(writeConfig(t, "serial:\n  port: /dev/ttyUSB0\n"))
	require.NoError(t, err)

	assert.Equal(t, "COM4", cfg.Serial.Port)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.False(t, cfg.Polling.Enable)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		body    string
	}{
		{name: "unsupported baud rate", body: "serial:\n  baudRate: 4800\n", wantErr: batgps.ErrInvalidParameter},
		{name: "zero timeout", body: "timeouts:\n  erase: 0s\n", wantErr: batgps.ErrInvalidParameter},
		{name: "qos out of range", body: "mqtt:\n  qos: 3\n", wantErr: batgps.ErrInvalidParameter},
		{name: "mqtt without broker", body: "mqtt:\n  enable: true\n", wantErr: batgps.ErrInvalidParameter},
		{name: "malformed yaml", body: "serial: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
