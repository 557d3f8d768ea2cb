// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package api

import (
	"net/http"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/tomtom215/drayline/internal/cargoesflow"
	"github.com/tomtom215/drayline/internal/config"
	"github.com/tomtom215/drayline/internal/database"
	"github.com/tomtom215/drayline/internal/logging"
	"github.com/tomtom215/drayline/internal/risk"
	drsync "github.com/tomtom215/drayline/internal/sync"
	"github.com/tomtom215/drayline/internal/tms"
	"github.com/tomtom215/drayline/internal/websocket"
)

// Handler holds dependencies for all HTTP handlers. Optional integrations
// (forwarder, poller, riskRunner) may be nil when disabled by configuration;
// their handlers respond 503 in that case.
type Handler struct {
	db         *database.DB
	processor  *tms.Processor
	forwarder  *cargoesflow.Forwarder
	poller     *drsync.Poller
	riskRunner *risk.Runner
	config     *config.Config
	wsHub      *websocket.Hub
	startTime  time.Time
}

// NewHandler creates a handler with all dependencies.
func NewHandler(
	db *database.DB,
	processor *tms.Processor,
	forwarder *cargoesflow.Forwarder,
	poller *drsync.Poller,
	riskRunner *risk.Runner,
	cfg *config.Config,
	wsHub *websocket.Hub,
) *Handler {
	return &Handler{
		db:         db,
		processor:  processor,
		forwarder:  forwarder,
		poller:     poller,
		riskRunner: riskRunner,
		config:     cfg,
		wsHub:      wsHub,
		startTime:  time.Now(),
	}
}

// getUpgrader returns a websocket upgrader bound to this handler's CORS
// configuration. Browsers always send an Origin header on WebSocket
// connects; a missing one means a non-browser client, which is rejected.
func (h *Handler) getUpgrader() gorilla.Upgrader {
	return gorilla.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkWebSocketOrigin,
	}
}

func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	allowed := h.config.Security.CORSOrigins
	if len(allowed) == 0 {
		return false
	}
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// WebSocket upgrades the connection and registers the client with the hub.
// Live webhook and shipment events stream to the client until it disconnects.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		respondError(w, r, http.StatusServiceUnavailable, "websocket_disabled", "WebSocket support is not enabled")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.wsHub, conn)
	h.wsHub.Register <- client
	client.Start()
}
