/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version carries the build-time version stamp.
package version

// Version is set at build time via:
//
//	-X github.com/friendsincode/grimnir-ices/internal/version.Version=X.Y.Z
var Version = "dev"
