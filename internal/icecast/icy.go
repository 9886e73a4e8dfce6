/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package icecast

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/friendsincode/grimnir-ices/internal/outputstream"
)

// socketSource speaks the legacy pre-HTTP source handshake (ICY and
// xaudiocast): connect, write a fixed header block, read a single
// status line back, then stream raw audio bytes with no further
// framing. This is the protocol ices0's libshout backend used before
// Icecast2's HTTP PUT source client existed.
type socketSource struct {
	cfg        outputstream.Config
	xaudiocast bool

	mu        sync.Mutex
	conn      net.Conn
	connected bool
}

func newICYSource(cfg outputstream.Config) *socketSource {
	return &socketSource{cfg: cfg}
}

func newXAudiocastSource(cfg outputstream.Config) *socketSource {
	return &socketSource{cfg: cfg, xaudiocast: true}
}

func (s *socketSource) Open(ctx context.Context) error {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port))
	if err != nil {
		return fmt.Errorf("icecast: dial %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
	}

	if _, err := conn.Write(s.handshake()); err != nil {
		conn.Close()
		return fmt.Errorf("icecast: write handshake: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	status, err := bufio.NewReader(conn).ReadString('\n')
	conn.SetReadDeadline(time.Time{})
	if err != nil {
		conn.Close()
		return fmt.Errorf("icecast: read handshake response: %w", err)
	}
	if !strings.HasPrefix(status, "OK") && !strings.Contains(status, "200") {
		conn.Close()
		return fmt.Errorf("icecast: handshake rejected: %s", strings.TrimSpace(status))
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	return nil
}

// handshake builds the legacy header block: a bare password line for
// ICY, or an xaudiocast-style header set, each terminated by a blank
// line.
func (s *socketSource) handshake() []byte {
	var b strings.Builder
	if s.xaudiocast {
		fmt.Fprintf(&b, "SOURCE %s %s\r\n", s.cfg.Password, s.cfg.Mount)
		fmt.Fprintf(&b, "x-audiocast-name: %s\r\n", s.cfg.Name)
		fmt.Fprintf(&b, "x-audiocast-genre: %s\r\n", s.cfg.Genre)
		fmt.Fprintf(&b, "x-audiocast-description: %s\r\n", s.cfg.Description)
		fmt.Fprintf(&b, "x-audiocast-url: %s\r\n", s.cfg.URL)
		fmt.Fprintf(&b, "x-audiocast-bitrate: %d\r\n", s.cfg.BitrateKbps)
		fmt.Fprintf(&b, "x-audiocast-public: %s\r\n", boolHeader(s.cfg.Public))
	} else {
		fmt.Fprintf(&b, "%s\r\n", s.cfg.Password)
		fmt.Fprintf(&b, "icy-name:%s\r\n", s.cfg.Name)
		fmt.Fprintf(&b, "icy-genre:%s\r\n", s.cfg.Genre)
		fmt.Fprintf(&b, "icy-url:%s\r\n", s.cfg.URL)
		fmt.Fprintf(&b, "icy-br:%d\r\n", s.cfg.BitrateKbps)
		fmt.Fprintf(&b, "icy-pub:%s\r\n", boolHeader(s.cfg.Public))
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}

func (s *socketSource) Send(ctx context.Context, buf []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("icecast: send on unopened connection")
	}
	_, err := conn.Write(buf)
	return err
}

// Sync is a no-op: each Write above goes straight to the TCP socket.
func (s *socketSource) Sync(ctx context.Context) error { return nil }

func (s *socketSource) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.connected = false
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (s *socketSource) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *socketSource) SetMetadata(ctx context.Context, songString string) error {
	return updateMetadata(ctx, &http.Client{}, s.cfg, songString)
}
