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

// Package telemetry publishes logger telemetry to an MQTT broker
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/ZaparooProject/go-batgps/internal/config"
	"github.com/ZaparooProject/go-batgps/polling"
)

const (
	// AppID keys the protected machine id so it differs from other apps
	AppID = "batgps"

	publishTimeout = 5 * time.Second
	quiesceMillis  = 250
)

// ErrPublishTimeout is returned when the broker does not confirm in time
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// client is the part of paho.Client the publisher uses
type client interface {
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload any) paho.Token
	Disconnect(quiesce uint)
	IsConnected() bool
}

// Publisher sends telemetry to <prefix>/<host>/telemetry
type Publisher struct {
	client client
	logger *zap.Logger
	topic  string
	host   string
	qos    byte
	mu     sync.Mutex
}

// HostID returns the configured host id or the protected machine id
func HostID(cfg config.MQTTConfig) (string, error) {
	if cfg.HostID != "" {
		return cfg.HostID, nil
	}
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		return "", fmt.Errorf("machine id: %w", err)
	}
	return id, nil
}

// Topic builds the telemetry topic for host
func Topic(prefix, host string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return host + "/telemetry"
	}
	return prefix + "/" + host + "/telemetry"
}

// ClientOptions converts the broker URL and client id into paho options.
// mqtt:// is an alias of tcp://; user info becomes the credentials.
func ClientOptions(cfg config.MQTTConfig) (*paho.ClientOptions, error) {
	u, err := url.Parse(cfg.Broker)
	if err != nil {
		return nil, fmt.Errorf("mqtt broker: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("mqtt broker: missing host in %q", cfg.Broker)
	}
	scheme := u.Scheme
	if scheme == "" || scheme == "mqtt" {
		scheme = "tcp"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(scheme + "://" + u.Host).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	return opts, nil
}

// NewPublisher creates a publisher; call Connect before Publish
func NewPublisher(cfg config.MQTTConfig, logger *zap.Logger) (*Publisher, error) {
	host, err := HostID(cfg)
	if err != nil {
		return nil, err
	}
	opts, err := ClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn("mqtt connection lost", zap.Error(err))
	})
	return newPublisher(paho.NewClient(opts), cfg, host, logger), nil
}

func newPublisher(c client, cfg config.MQTTConfig, host string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client: c,
		logger: logger,
		topic:  Topic(cfg.TopicPrefix, host),
		host:   host,
		qos:    cfg.QoS,
	}
}

// Topic returns the telemetry topic
func (p *Publisher) Topic() string { return p.topic }

// Connect connects to the broker
func (p *Publisher) Connect() error {
	if err := wait(p.client.Connect()); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	p.logger.Info("mqtt connected", zap.String("topic", p.topic))
	return nil
}

// Publish sends one telemetry message
func (p *Publisher) Publish(t polling.Telemetry) error {
	body, err := json.Marshal(NewPayload(p.host, t))
	if err != nil {
		return fmt.Errorf("encode telemetry: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := wait(p.client.Publish(p.topic, p.qos, false, body)); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", p.topic, err)
	}
	p.logger.Debug("telemetry published", zap.String("topic", p.topic), zap.Int("bytes", len(body)))
	return nil
}

// Close disconnects from the broker
func (p *Publisher) Close() error {
	if p.client.IsConnected() {
		p.client.Disconnect(quiesceMillis)
	}
	return nil
}

func wait(token paho.Token) error {
	if !token.WaitTimeout(publishTimeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}
