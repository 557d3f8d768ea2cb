// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package api

import (
	"net/http"
	"time"
)

type healthStatus struct {
	Status   string            `json:"status"`
	Uptime   string            `json:"uptime"`
	Checks   map[string]string `json:"checks"`
	Version  string            `json:"version,omitempty"`
	Hostname string            `json:"hostname,omitempty"`
}

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Health handles GET /api/v1/health, the full dependency check.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.db.Ping(r.Context()); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "healthy"
	}

	respondJSON(w, httpStatus, healthStatus{
		Status:  status,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
		Checks:  checks,
		Version: Version,
	})
}

// HealthLive handles GET /api/v1/health/live: the process is up. No
// dependency checks, so a database outage does not restart the pod.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady handles GET /api/v1/health/ready: the process can serve
// traffic, which requires the database.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
