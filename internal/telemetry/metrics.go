/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BytesSentTotal counts bytes handed to a destination's transport,
	// labeled by mount.
	BytesSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ices_bytes_sent_total",
		Help: "Total bytes sent to a destination stream.",
	}, []string{"mount"})

	// ReconnectsTotal counts successful (re)connect attempts per
	// destination.
	ReconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ices_reconnects_total",
		Help: "Total successful connect/reconnect attempts per destination.",
	}, []string{"mount"})

	// TrackOpenErrorsTotal counts tracks that failed to open.
	TrackOpenErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ices_track_open_errors_total",
		Help: "Total tracks that failed to open from the playlist.",
	})

	// CrossfadeActivationsTotal counts crossfade ring activations across
	// track boundaries.
	CrossfadeActivationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ices_crossfade_activations_total",
		Help: "Total crossfade/crossmix activations at a track boundary.",
	})

	// AdminRequestDuration tracks the admin HTTP surface's request
	// latency.
	AdminRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "ices_admin_request_duration_seconds",
		Help: "Admin HTTP surface request duration in seconds.",
	}, []string{"method", "route", "status"})

	// AdminRequestsTotal counts admin HTTP surface requests.
	AdminRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ices_admin_requests_total",
		Help: "Total admin HTTP surface requests.",
	}, []string{"method", "route", "status"})

	// AdminActiveConnections tracks in-flight admin HTTP requests.
	AdminActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ices_admin_active_connections",
		Help: "In-flight admin HTTP surface requests.",
	})
)

// Handler exposes the process's registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
