/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package config loads the process's environment-variable configuration.
// Load() is the only file-aware or env-aware piece of this module; every
// other package takes an already-populated Config/[]StreamConfig pair, so
// the streaming core never reads the environment directly.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/friendsincode/grimnir-ices/internal/auth"
)

// PlaylistMode selects which playlist backend feeds the orchestrator.
type PlaylistMode string

const (
	PlaylistBuiltin PlaylistMode = "builtin"
	PlaylistS3      PlaylistMode = "s3"
	PlaylistScript  PlaylistMode = "script"
	PlaylistStatic  PlaylistMode = "static"
)

// Protocol mirrors outputstream.Protocol as a config-time string value;
// cmd/icesd maps it to the outputstream enum when building streams.
type Protocol string

const (
	ProtocolHTTP       Protocol = "http"
	ProtocolXAudiocast Protocol = "xaudiocast"
	ProtocolICY        Protocol = "icy"
)

// StreamConfig is one Icecast/ICY destination's static configuration,
// the env-driven twin of outputstream.Config.
type StreamConfig struct {
	Name string // e.g. "main", used only to build the ICES_STREAM_<NAME>_* keys

	Host, Mount string
	Port        int
	Password    string
	Protocol    Protocol

	BitrateKbps   int
	OutSampleRate int
	OutChannels   int
	Reencode      bool

	StreamName, Genre, Description, URL string
	Public                              bool
	DumpFile                            string
}

// Config covers process-level configuration read from environment
// variables.
type Config struct {
	Environment string
	RunID       string // per-process correlation ID, stamped on every orchestrator log line

	// LogFile is the process log file path; empty logs to stdout only.
	// SIGHUP closes and reopens it in place for external log rotation.
	LogFile string

	// Playlist backend selection
	PlaylistMode      PlaylistMode
	PlaylistPath      string
	PlaylistShuffle   bool
	PlaylistS3Bucket  string
	PlaylistS3Prefix  string
	PlaylistScriptCmd string

	// Decode/encode subprocess binary. Loaded from the environment but not
	// read by internal/reencode, which always runs gst-launch-1.0 from PATH.
	GStreamerBin string

	// CuePath is the "now playing" status file path; empty disables it.
	CuePath string

	// Crossfade / ReplayGain (components F/G)
	CrossfadeEnabled    bool
	CrossfadeSeconds    int
	CrossfadeMinSeconds int
	Crossmix            bool
	ReplayGainEnabled   bool
	ReplayGainPreampDB  float64

	// Per-destination streams (component H); at least one is required
	Streams []StreamConfig

	// Admin HTTP surface
	AdminBind      string
	AdminPort      int
	AdminTokenHash string // bcrypt hash of ICES_ADMIN_TOKEN; empty disables auth
	AdminSessionTTL time.Duration

	// Telemetry
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Event bus (fire-and-forget track/stream lifecycle events)
	EventBusEnabled bool
	NATSURL         string

	// Metadata de-dupe cache
	MetaCacheEnabled bool
	RedisAddr        string
	RedisPassword    string
	RedisDB          int

	// Play history (optional persisted log of played tracks)
	PlayHistoryEnabled bool
	DBBackend          string
	DBDSN              string

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, hashes the admin
// token, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnvAny([]string{"ICES_ENV"}, "development"),
		RunID:       uuid.NewString(),
		LogFile:     getEnvAny([]string{"ICES_LOG_FILE"}, ""),

		PlaylistMode:      PlaylistMode(getEnvAny([]string{"ICES_PLAYLIST_MODE"}, string(PlaylistBuiltin))),
		PlaylistPath:      getEnvAny([]string{"ICES_PLAYLIST_PATH", "ICES_PLAYLIST_FILE"}, "playlist.txt"),
		PlaylistShuffle:   getEnvBoolAny([]string{"ICES_PLAYLIST_SHUFFLE"}, false),
		PlaylistS3Bucket:  getEnvAny([]string{"ICES_PLAYLIST_S3_BUCKET"}, ""),
		PlaylistS3Prefix:  getEnvAny([]string{"ICES_PLAYLIST_S3_PREFIX"}, ""),
		PlaylistScriptCmd: getEnvAny([]string{"ICES_PLAYLIST_SCRIPT"}, ""),

		GStreamerBin: getEnvAny([]string{"ICES_GSTREAMER_BIN", "GRIMNIR_GSTREAMER_BIN"}, "gst-launch-1.0"),
		CuePath:      getEnvAny([]string{"ICES_CUE_FILE"}, ""),

		CrossfadeEnabled:    getEnvBoolAny([]string{"ICES_CROSSFADE_ENABLED"}, false),
		CrossfadeSeconds:    getEnvIntAny([]string{"ICES_CROSSFADE_SECONDS"}, 4),
		CrossfadeMinSeconds: getEnvIntAny([]string{"ICES_CROSSFADE_MIN_SECONDS"}, 8),
		Crossmix:            getEnvBoolAny([]string{"ICES_CROSSMIX"}, false),
		ReplayGainEnabled:   getEnvBoolAny([]string{"ICES_REPLAYGAIN_ENABLED"}, false),
		ReplayGainPreampDB:  getEnvFloatAny([]string{"ICES_REPLAYGAIN_PREAMP_DB"}, 0),

		AdminBind:       getEnvAny([]string{"ICES_ADMIN_BIND"}, "127.0.0.1"),
		AdminPort:       getEnvIntAny([]string{"ICES_ADMIN_PORT"}, 8000),
		AdminSessionTTL: time.Duration(getEnvIntAny([]string{"ICES_ADMIN_SESSION_TTL_MINUTES"}, 60)) * time.Minute,

		TracingEnabled:    getEnvBoolAny([]string{"ICES_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"ICES_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"ICES_TRACING_SAMPLE_RATE"}, 1.0),

		EventBusEnabled: getEnvBoolAny([]string{"ICES_EVENTBUS_ENABLED"}, false),
		NATSURL:         getEnvAny([]string{"ICES_NATS_URL"}, "nats://localhost:4222"),

		MetaCacheEnabled: getEnvBoolAny([]string{"ICES_METACACHE_ENABLED"}, false),
		RedisAddr:        getEnvAny([]string{"ICES_REDIS_ADDR"}, "localhost:6379"),
		RedisPassword:    getEnvAny([]string{"ICES_REDIS_PASSWORD"}, ""),
		RedisDB:          getEnvIntAny([]string{"ICES_REDIS_DB"}, 0),

		PlayHistoryEnabled: getEnvBoolAny([]string{"ICES_PLAYHISTORY_ENABLED"}, false),
		DBBackend:          getEnvAny([]string{"ICES_DB_BACKEND"}, "sqlite"),
		DBDSN:              getEnvAny([]string{"ICES_DB_DSN"}, "ices.db"),
	}

	if token := getEnvAny([]string{"ICES_ADMIN_TOKEN"}, ""); token != "" {
		hash, err := auth.HashAdminToken(token)
		if err != nil {
			return nil, fmt.Errorf("config: hash admin token: %w", err)
		}
		cfg.AdminTokenHash = hash
	}

	cfg.Streams = loadStreams()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()
	return cfg, nil
}

// loadStreams reads ICES_STREAM_NAMES (comma-separated) and, for each
// name, its ICES_STREAM_<NAME>_* keys. A single unnamed stream can also
// be configured directly via ICES_HOST/ICES_MOUNT/... for the common
// one-destination case.
func loadStreams() []StreamConfig {
	names := splitAndTrim(getEnvAny([]string{"ICES_STREAM_NAMES"}, ""))
	if len(names) == 0 {
		if host := getEnvAny([]string{"ICES_HOST", "ICECAST_HOST"}, ""); host != "" {
			return []StreamConfig{loadStream("")}
		}
		return nil
	}

	streams := make([]StreamConfig, 0, len(names))
	for _, name := range names {
		streams = append(streams, loadStream(name))
	}
	return streams
}

func loadStream(name string) StreamConfig {
	prefix := "ICES_"
	if name != "" {
		prefix = "ICES_STREAM_" + strings.ToUpper(name) + "_"
	}
	key := func(suffix string) string { return prefix + suffix }

	return StreamConfig{
		Name:          name,
		Host:          getEnvAny([]string{key("HOST"), "ICECAST_HOST"}, "localhost"),
		Mount:         getEnvAny([]string{key("MOUNT"), "ICECAST_MOUNT"}, "/stream"),
		Port:          getEnvIntAny([]string{key("PORT"), "ICECAST_PORT"}, 8000),
		Password:      getEnvAny([]string{key("PASSWORD"), key("SOURCE_PASSWORD"), "ICECAST_SOURCE_PASSWORD"}, ""),
		Protocol:      Protocol(getEnvAny([]string{key("PROTOCOL")}, string(ProtocolHTTP))),
		BitrateKbps:   getEnvIntAny([]string{key("BITRATE")}, 128),
		OutSampleRate: getEnvIntAny([]string{key("OUT_SAMPLE_RATE")}, 0),
		OutChannels:   getEnvIntAny([]string{key("OUT_CHANNELS")}, 0),
		Reencode:      getEnvBoolAny([]string{key("REENCODE")}, false),
		StreamName:    getEnvAny([]string{key("NAME")}, ""),
		Genre:         getEnvAny([]string{key("GENRE")}, ""),
		Description:   getEnvAny([]string{key("DESCRIPTION")}, ""),
		URL:           getEnvAny([]string{key("URL")}, ""),
		Public:        getEnvBoolAny([]string{key("PUBLIC")}, false),
		DumpFile:      getEnvAny([]string{key("DUMP_FILE")}, ""),
	}
}

// Validate checks cross-field invariants Load can't express as simple
// per-key defaults.
func (c *Config) Validate() error {
	if c.PlaylistMode != PlaylistBuiltin && c.PlaylistMode != PlaylistS3 && c.PlaylistMode != PlaylistScript && c.PlaylistMode != PlaylistStatic {
		return fmt.Errorf("unsupported playlist mode %q", c.PlaylistMode)
	}
	if c.PlaylistMode == PlaylistS3 && c.PlaylistS3Bucket == "" {
		return fmt.Errorf("ICES_PLAYLIST_S3_BUCKET is required when ICES_PLAYLIST_MODE=s3")
	}
	if c.PlaylistMode == PlaylistScript && c.PlaylistScriptCmd == "" {
		return fmt.Errorf("ICES_PLAYLIST_SCRIPT is required when ICES_PLAYLIST_MODE=script")
	}
	if c.PlaylistMode == PlaylistStatic && c.PlaylistPath == "" {
		return fmt.Errorf("ICES_PLAYLIST_PATH is required when ICES_PLAYLIST_MODE=static")
	}
	if len(c.Streams) == 0 {
		return fmt.Errorf("at least one destination stream must be configured (ICES_HOST/ICES_MOUNT or ICES_STREAM_NAMES)")
	}
	for _, s := range c.Streams {
		if s.Protocol != ProtocolHTTP && s.Protocol != ProtocolXAudiocast && s.Protocol != ProtocolICY {
			return fmt.Errorf("stream %q: unsupported protocol %q", s.Name, s.Protocol)
		}
		if strings.EqualFold(c.Environment, "production") && (s.Password == "" || strings.EqualFold(s.Password, "hackme")) {
			return fmt.Errorf("stream %q: a non-default source password is required in production", s.Name)
		}
	}
	return nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"ICECAST_HOST":            "use ICES_HOST",
		"ICECAST_MOUNT":           "use ICES_MOUNT",
		"ICECAST_PORT":            "use ICES_PORT",
		"ICECAST_SOURCE_PASSWORD": "use ICES_PASSWORD",
		"GRIMNIR_GSTREAMER_BIN":   "use ICES_GSTREAMER_BIN",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
