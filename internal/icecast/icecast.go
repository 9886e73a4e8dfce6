/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package icecast

import (
	"fmt"

	"github.com/friendsincode/grimnir-ices/internal/outputstream"
)

// NewTransport builds the outputstream.Transport matching cfg's
// configured protocol.
func NewTransport(cfg outputstream.Config) (outputstream.Transport, error) {
	switch cfg.Protocol {
	case outputstream.ProtocolHTTP:
		return newHTTPSource(cfg), nil
	case outputstream.ProtocolICY:
		return newICYSource(cfg), nil
	case outputstream.ProtocolXAudiocast:
		return newXAudiocastSource(cfg), nil
	default:
		return nil, fmt.Errorf("icecast: unsupported protocol %v", cfg.Protocol)
	}
}
