/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playlist implements the pluggable playlist source contract:
// next(), lineno(), metadata override, timelimit, reload, shutdown.
// Three backends are provided: a builtin flat-file list (with optional
// shuffle and reload-on-mtime-change), a shell-script backend that asks
// an external process for the next path, and an S3-backed backend.
package playlist

// Source is the contract the orchestrator drives. next returns "" when
// the playlist is exhausted (the orchestrator then shuts down).
type Source interface {
	Next() (path string, err error)
	Lineno() int
	MetadataOverride() string
	TimelimitSeconds() int
	Reload() error
	Shutdown() error
}
