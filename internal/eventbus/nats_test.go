/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir-ices/internal/events"
)

func TestNewFallsBackWhenNATSUnreachable(t *testing.T) {
	cfg := DefaultNATSConfig()
	cfg.URL = "nats://127.0.0.1:1"
	cfg.Timeout = 200 * time.Millisecond
	cfg.MaxReconnects = 0

	b := New(cfg, "test-node", zerolog.Nop())
	defer b.Close()

	if !b.useFallback {
		t.Fatal("expected fallback mode when NATS is unreachable")
	}
}

func TestPublishDeliversToLocalSubscriberEvenInFallbackMode(t *testing.T) {
	cfg := DefaultNATSConfig()
	cfg.URL = "nats://127.0.0.1:1"
	cfg.Timeout = 200 * time.Millisecond
	cfg.MaxReconnects = 0

	b := New(cfg, "test-node", zerolog.Nop())
	defer b.Close()

	sub := b.Subscribe(events.EventTrackStarted)
	b.Publish(events.EventTrackStarted, events.Payload{"song": "Artist - Title"})

	select {
	case payload := <-sub:
		if payload["song"] != "Artist - Title" {
			t.Fatalf("unexpected payload: %+v", payload)
		}
	default:
		t.Fatal("expected payload delivered to local subscriber")
	}
}
