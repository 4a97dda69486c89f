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

// Package config loads batgps settings from a yaml file, BATGPS_* environment
// variables and built-in defaults
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	batgps "github.com/ZaparooProject/go-batgps"
)

// EnvPrefix prefixes every environment override, e.g. BATGPS_SERIAL_PORT
const EnvPrefix = "BATGPS"

type SerialConfig struct {
	// Port is a device path, or a bare number expanded per platform
	Port              string        `mapstructure:"port"`
	BaudRate          int           `mapstructure:"baudRate"`
	OpenRetries       int           `mapstructure:"openRetries"`
	OpenRetryDelay    time.Duration `mapstructure:"openRetryDelay"`
	// ReconnectInterval paces the daemon's reconnect attempts
	ReconnectInterval time.Duration `mapstructure:"reconnectInterval"`
}

type TimeoutsConfig struct {
	Baseline    time.Duration `mapstructure:"baseline"`
	Erase       time.Duration `mapstructure:"erase"`
	LogDownload time.Duration `mapstructure:"logDownload"`
}

// Timeouts converts the section to engine timeouts
func (t TimeoutsConfig) Timeouts() batgps.Timeouts {
	return batgps.Timeouts{
		Baseline:    t.Baseline,
		Erase:       t.Erase,
		LogDownload: t.LogDownload,
	}
}

type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	// RateLimit is the sustained API request rate per second
	RateLimit float64 `mapstructure:"rateLimit"`
	RateBurst int     `mapstructure:"rateBurst"`
	// LogDir receives logs downloaded through the API
	LogDir    string  `mapstructure:"logDir"`
}

type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

type MQTTConfig struct {
	Enable      bool   `mapstructure:"enable"`
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"clientID"`
	TopicPrefix string `mapstructure:"topicPrefix"`
	// HostID replaces the machine id in topics when set
	HostID string `mapstructure:"hostID"`
	QoS    byte   `mapstructure:"qos"`
}

type PollingConfig struct {
	Enable     bool          `mapstructure:"enable"`
	Interval   time.Duration `mapstructure:"interval"`
	MaxBackoff time.Duration `mapstructure:"maxBackoff"`
}

type WorkerConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queueSize"`
	Retain    int `mapstructure:"retain"`
}

type Config struct {
	Serial   SerialConfig   `mapstructure:"serial"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Polling  PollingConfig  `mapstructure:"polling"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// Load reads path, or batgps.yaml from the working directory or ./configs
// when path is empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("config")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("batgps")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the engine would reject later
func (c *Config) Validate() error {
	if err := batgps.ValidateBaudRate(c.Serial.BaudRate); err != nil {
		return fmt.Errorf("serial.baudRate: %w", err)
	}
	if err := c.Timeouts.Timeouts().Validate(); err != nil {
		return fmt.Errorf("timeouts: %w", err)
	}
	if c.Polling.Enable && c.Polling.Interval <= 0 {
		return fmt.Errorf("polling.interval: %w: must be positive", batgps.ErrInvalidParameter)
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos: %w: %d", batgps.ErrInvalidParameter, c.MQTT.QoS)
	}
	if c.MQTT.Enable && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker: %w: required when mqtt is enabled", batgps.ErrInvalidParameter)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	defaults := batgps.DefaultTimeouts()

	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baudRate", batgps.DefaultBaudRate)
	v.SetDefault("serial.openRetries", 2)
	v.SetDefault("serial.openRetryDelay", "200ms")
	v.SetDefault("serial.reconnectInterval", "5s")

	v.SetDefault("timeouts.baseline", defaults.Baseline)
	v.SetDefault("timeouts.erase", defaults.Erase)
	v.SetDefault("timeouts.logDownload", defaults.LogDownload)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 10)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")
	v.SetDefault("http.rateLimit", 5.0)
	v.SetDefault("http.rateBurst", 10)
	v.SetDefault("http.logDir", ".")

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("mqtt.enable", false)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.clientID", "batgps")
	v.SetDefault("mqtt.topicPrefix", "batgps")
	v.SetDefault("mqtt.hostID", "")
	v.SetDefault("mqtt.qos", 0)

	v.SetDefault("polling.enable", true)
	v.SetDefault("polling.interval", "1s")
	v.SetDefault("polling.maxBackoff", "10s")

	v.SetDefault("worker.workers", 1)
	v.SetDefault("worker.queueSize", 4)
	v.SetDefault("worker.retain", 64)
}
