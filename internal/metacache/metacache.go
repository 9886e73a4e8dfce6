/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package metacache is an optional Redis-backed de-dupe cache so a
// repeated "song" string (e.g. a jingle played twice in a row) doesn't
// trigger a redundant set_metadata call against a destination that
// already has it set. It is a smoothing optimisation at the
// orchestrator/outputstream boundary, never part of the DSP path, and
// degrades to a no-op (every call looks like a miss) if Redis is
// unreachable or disabled.
package metacache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "ices:metacache:lastsong:" // + mount

// DefaultTTL bounds how long a "last sent" song string is remembered;
// after this a reconnect or long-running mount re-sends metadata even
// if the song string happens to repeat.
const DefaultTTL = 6 * time.Hour

// Config is the metadata cache's configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// Cache tracks, per mount, the last song string actually sent.
type Cache struct {
	client   *redis.Client
	logger   zerolog.Logger
	ttl      time.Duration
	disabled bool
}

// New connects to Redis. A failed ping disables the cache rather than
// failing startup — metadata de-dupe is an optimisation, not a
// requirement for streaming.
func New(cfg Config, logger zerolog.Logger) *Cache {
	log := logger.With().Str("component", "metacache").Logger()
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("metadata cache unavailable, metadata de-dupe disabled")
		return &Cache{logger: log, ttl: ttl, disabled: true}
	}

	return &Cache{client: client, logger: log, ttl: ttl}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ShouldSend reports whether songString differs from the last one
// recorded for mount (or the cache is unavailable, in which case the
// caller should always send). It does NOT record songString as sent —
// call Record after the send actually succeeds.
func (c *Cache) ShouldSend(ctx context.Context, mount, songString string) bool {
	if c.disabled || c.client == nil {
		return true
	}
	last, err := c.client.Get(ctx, keyPrefix+mount).Result()
	if err == redis.Nil {
		return true
	}
	if err != nil {
		c.logger.Debug().Err(err).Str("mount", mount).Msg("metadata cache read failed")
		return true
	}
	return last != songString
}

// Record stores songString as the last metadata sent for mount.
func (c *Cache) Record(ctx context.Context, mount, songString string) {
	if c.disabled || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, keyPrefix+mount, songString, c.ttl).Err(); err != nil {
		c.logger.Debug().Err(err).Str("mount", mount).Msg("metadata cache write failed")
	}
}
