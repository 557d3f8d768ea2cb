// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

/*
Package middleware provides HTTP middleware for the API surface.

Components:

  - RequestID: UUID request tracking wired into the logging context, so every
    pipeline log line carries the request and correlation IDs.
  - PrometheusMetrics: per-request method/path/status instrumentation plus an
    active-request gauge.
  - Compression: pooled gzip for API responses; websocket upgrades are passed
    through untouched.

The middleware here uses the http.HandlerFunc shape; the router adapts it to
Chi's func(http.Handler) http.Handler where needed.
*/
package middleware
