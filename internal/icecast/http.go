/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package icecast implements outputstream.Transport against a real
// Icecast2 mount point: the modern chunked HTTP PUT source protocol and
// the legacy ICY/xaudiocast socket handshake, plus the admin HTTP
// metadata update both protocols share.
package icecast

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/friendsincode/grimnir-ices/internal/outputstream"
)

// httpSource pushes audio to an Icecast2 mount via a long-lived,
// unbounded-length HTTP PUT request body, the protocol Icecast2 itself
// recommends over the legacy ICY handshake.
type httpSource struct {
	cfg    outputstream.Config
	client *http.Client

	mu        sync.Mutex
	pw        *io.PipeWriter
	done      chan error
	connected bool
}

func newHTTPSource(cfg outputstream.Config) *httpSource {
	return &httpSource{cfg: cfg, client: &http.Client{}}
}

func (h *httpSource) Open(ctx context.Context) error {
	pr, pw := io.Pipe()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPut, h.mountURL(), pr)
	if err != nil {
		return fmt.Errorf("icecast: build PUT request: %w", err)
	}
	req.Header.Set("Content-Type", contentType(h.cfg))
	req.Header.Set("Authorization", basicAuth("source", h.cfg.Password))
	req.Header.Set("Ice-Public", boolHeader(h.cfg.Public))
	req.Header.Set("Ice-Name", h.cfg.Name)
	req.Header.Set("Ice-Genre", h.cfg.Genre)
	req.Header.Set("Ice-Description", h.cfg.Description)
	req.Header.Set("Ice-URL", h.cfg.URL)
	req.Header.Set("Ice-Bitrate", fmt.Sprintf("%d", h.cfg.BitrateKbps))
	req.ContentLength = -1

	done := make(chan error, 1)
	go func() {
		resp, err := h.client.Do(req)
		if err != nil {
			done <- err
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			done <- fmt.Errorf("icecast: server rejected source connection: %s", resp.Status)
			return
		}
		done <- nil
	}()

	// A rejected mount (bad password, mount taken) fails the request
	// almost immediately; give it a moment before declaring success so
	// Send doesn't start writing into a body the server already closed.
	select {
	case err := <-done:
		pr.Close()
		pw.Close()
		if err == nil {
			return fmt.Errorf("icecast: server closed connection immediately")
		}
		return err
	case <-time.After(200 * time.Millisecond):
	}

	h.mu.Lock()
	h.pw = pw
	h.done = done
	h.connected = true
	h.mu.Unlock()
	return nil
}

func (h *httpSource) Send(ctx context.Context, buf []byte) error {
	h.mu.Lock()
	pw := h.pw
	h.mu.Unlock()
	if pw == nil {
		return fmt.Errorf("icecast: send on unopened connection")
	}
	if _, err := pw.Write(buf); err != nil {
		return err
	}
	return nil
}

// Sync is a no-op for the HTTP PUT transport: each Write is flushed to
// the underlying TCP connection by the http.Client's chunked encoder.
func (h *httpSource) Sync(ctx context.Context) error { return nil }

func (h *httpSource) Close() error {
	h.mu.Lock()
	pw := h.pw
	h.pw = nil
	h.connected = false
	h.mu.Unlock()
	if pw == nil {
		return nil
	}
	return pw.Close()
}

func (h *httpSource) IsConnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

func (h *httpSource) SetMetadata(ctx context.Context, songString string) error {
	return updateMetadata(ctx, h.client, h.cfg, songString)
}

func (h *httpSource) mountURL() string {
	return fmt.Sprintf("http://%s:%d%s", h.cfg.Host, h.cfg.Port, h.cfg.Mount)
}

func contentType(cfg outputstream.Config) string {
	if cfg.Reencode {
		return "audio/mpeg"
	}
	return "audio/mpeg"
}

func boolHeader(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func basicAuth(user, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}

// updateMetadata issues the admin "updinfo" request both the HTTP PUT
// and the legacy ICY/xaudiocast source protocols use to push the
// current song string, per _examples/original_source/src/stream.c's
// shout_set_metadata call sequence.
func updateMetadata(ctx context.Context, client *http.Client, cfg outputstream.Config, songString string) error {
	u := fmt.Sprintf("http://%s:%d/admin/metadata?mount=%s&mode=updinfo&song=%s",
		cfg.Host, cfg.Port, url.QueryEscape(cfg.Mount), url.QueryEscape(songString))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("icecast: build metadata request: %w", err)
	}
	req.Header.Set("Authorization", basicAuth("source", cfg.Password))

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("icecast: metadata update: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("icecast: metadata update rejected: %s", resp.Status)
	}
	return nil
}
