/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus publishes track/stream lifecycle events
// (track.started, track.ended, stream.reconnected, stream.fatal) to
// NATS for external dashboards to subscribe to. Publishing is
// fire-and-forget and never read back by the core loop; a circuit
// breaker falls back to an in-process bus (useful for local dev and
// tests) once NATS has failed enough consecutive times.
package eventbus

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir-ices/internal/events"
)

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
	MaxFailures   int
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://localhost:4222",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
		MaxFailures:   5,
	}
}

// Bus publishes lifecycle events to NATS, falling back to an
// in-process bus when NATS is unavailable or has failed repeatedly.
type Bus struct {
	conn     *nats.Conn
	logger   zerolog.Logger
	fallback *events.Bus
	nodeID   string

	mu          sync.Mutex
	useFallback bool
	failCount   int
	maxFails    int
}

// New connects to NATS. A connection failure degrades to the
// in-process fallback rather than failing startup — the event bus is
// an external collaborator the stream never blocks on.
func New(cfg NATSConfig, nodeID string, logger zerolog.Logger) *Bus {
	log := logger.With().Str("component", "eventbus").Logger()
	b := &Bus{logger: log, fallback: events.NewBus(), nodeID: nodeID, maxFails: cfg.MaxFailures}

	opts := []nats.Option{
		nats.Name(fmt.Sprintf("ices-%s", nodeID)),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		log.Warn().Err(err).Msg("NATS connection failed, using in-process fallback")
		b.useFallback = true
		return b
	}
	b.conn = conn
	log.Info().Str("url", cfg.URL).Msg("event bus connected to NATS")
	return b
}

// Publish sends an event to NATS (subject "ices.events.<type>") and
// to local in-process subscribers.
func (b *Bus) Publish(eventType events.EventType, payload events.Payload) {
	b.fallback.Publish(eventType, payload)

	b.mu.Lock()
	fallback := b.useFallback
	b.mu.Unlock()
	if fallback || b.conn == nil {
		return
	}

	data, err := json.Marshal(message{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now(),
		NodeID:    b.nodeID,
		MessageID: uuid.New().String(),
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to marshal event")
		return
	}

	subject := "ices.events." + string(eventType)
	if err := b.conn.Publish(subject, data); err != nil {
		b.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to publish event")
		b.handleFailure()
		return
	}

	b.mu.Lock()
	b.failCount = 0
	b.mu.Unlock()
}

// Subscribe registers an in-process subscriber. This never reaches
// NATS — it exists for tests and for a single process's own dashboard
// endpoint to observe events published during this run.
func (b *Bus) Subscribe(eventType events.EventType) events.Subscriber {
	return b.fallback.Subscribe(eventType)
}

// Unsubscribe removes an in-process subscriber.
func (b *Bus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	b.fallback.Unsubscribe(eventType, sub)
}

// Close closes the NATS connection.
func (b *Bus) Close() error {
	if b.conn != nil {
		b.conn.Close()
	}
	return nil
}

func (b *Bus) handleFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failCount++
	if b.failCount >= b.maxFails && !b.useFallback {
		b.logger.Warn().Int("fail_count", b.failCount).Msg("NATS failure threshold reached, switching to in-process fallback")
		b.useFallback = true
		if b.conn != nil {
			b.conn.Close()
		}
	}
}

type message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}
