/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import "testing"

func TestLoadAppliesDefaultsForSingleStream(t *testing.T) {
	t.Setenv("ICES_HOST", "icecast.example.com")
	t.Setenv("ICES_MOUNT", "/live.mp3")
	t.Setenv("ICES_PASSWORD", "supersecret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.Streams) != 1 {
		t.Fatalf("expected exactly one stream, got %d", len(cfg.Streams))
	}
	s := cfg.Streams[0]
	if s.Host != "icecast.example.com" || s.Mount != "/live.mp3" {
		t.Fatalf("unexpected stream config: %+v", s)
	}
	if s.Protocol != ProtocolHTTP {
		t.Fatalf("expected default protocol http, got %q", s.Protocol)
	}
}

func TestLoadMultipleNamedStreams(t *testing.T) {
	t.Setenv("ICES_STREAM_NAMES", "mp3,ogg")
	t.Setenv("ICES_STREAM_MP3_HOST", "a.example.com")
	t.Setenv("ICES_STREAM_MP3_MOUNT", "/a.mp3")
	t.Setenv("ICES_STREAM_MP3_PASSWORD", "pw1")
	t.Setenv("ICES_STREAM_OGG_HOST", "b.example.com")
	t.Setenv("ICES_STREAM_OGG_MOUNT", "/b.ogg")
	t.Setenv("ICES_STREAM_OGG_PASSWORD", "pw2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.Streams) != 2 {
		t.Fatalf("expected 2 streams, got %d", len(cfg.Streams))
	}
	if cfg.Streams[0].Mount != "/a.mp3" || cfg.Streams[1].Mount != "/b.ogg" {
		t.Fatalf("unexpected stream mounts: %+v", cfg.Streams)
	}
}

func TestLoadRejectsNoStreamsConfigured(t *testing.T) {
	if _, err := Load(); err == nil {
		t.Fatal("expected error when no stream is configured")
	}
}

func TestLoadHashesAdminToken(t *testing.T) {
	t.Setenv("ICES_HOST", "icecast.example.com")
	t.Setenv("ICES_MOUNT", "/live.mp3")
	t.Setenv("ICES_PASSWORD", "supersecret")
	t.Setenv("ICES_ADMIN_TOKEN", "opsecret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AdminTokenHash == "" {
		t.Fatal("expected admin token to be hashed")
	}
	if cfg.AdminTokenHash == "opsecret" {
		t.Fatal("admin token hash must not equal the plaintext token")
	}
}

func TestLoadReportsLegacyEnvWarnings(t *testing.T) {
	t.Setenv("ICES_HOST", "icecast.example.com")
	t.Setenv("ICES_MOUNT", "/live.mp3")
	t.Setenv("ICES_PASSWORD", "supersecret")
	t.Setenv("ICECAST_HOST", "legacy.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.LegacyEnvWarnings) == 0 {
		t.Fatal("expected legacy env warnings")
	}
}

func TestLoadProductionRequiresNonDefaultPassword(t *testing.T) {
	t.Setenv("ICES_ENV", "production")
	t.Setenv("ICES_HOST", "icecast.example.com")
	t.Setenv("ICES_MOUNT", "/live.mp3")
	t.Setenv("ICES_PASSWORD", "hackme")

	if _, err := Load(); err == nil {
		t.Fatal("expected production config load to fail with default password")
	}
}

func TestLoadRejectsInvalidPlaylistMode(t *testing.T) {
	t.Setenv("ICES_HOST", "icecast.example.com")
	t.Setenv("ICES_MOUNT", "/live.mp3")
	t.Setenv("ICES_PASSWORD", "supersecret")
	t.Setenv("ICES_PLAYLIST_MODE", "bogus")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid playlist mode")
	}
}
