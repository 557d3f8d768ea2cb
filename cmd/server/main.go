// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

// Package main is the entry point for the Drayline server.
//
// Drayline receives shipment webhooks from a TAI TMS, normalizes them into
// canonical shipment and milestone records, and conditionally forwards
// drayage shipments to DP World's Cargoes Flow tracking API. A scheduled
// poller mirrors the Cargoes Flow shipment list into a local table, and a
// risk scheduler scores every mirrored shipment for demurrage and delay
// exposure.
//
// # Startup Order
//
//  1. Configuration: Koanf v2 layered sources (defaults, YAML file, env vars)
//  2. Logging: zerolog, JSON or console per LOG_FORMAT
//  3. Database: embedded DuckDB, schema created on open
//  4. Cargoes Flow client: rate-limited HTTP client behind a circuit breaker
//  5. Event bus and WebSocket hub: live processing feed for operators
//  6. Webhook processor and forwarder
//  7. Mirror poller and risk scheduler (when enabled)
//  8. HTTP server under a suture supervision tree
//
// # Configuration
//
// Key environment variables:
//
//	HTTP_PORT              HTTP listen port (default 5080)
//	DUCKDB_PATH            DuckDB file path (default /data/drayline.duckdb)
//	TMS_WEBHOOK_SECRET     shared secret for x-tms-signature / x-tms-key
//	CARGOES_FLOW_ENABLED   enable outbound forwarding and the mirror poller
//	CARGOES_FLOW_BASE_URL  Cargoes Flow API base URL
//	CARGOES_FLOW_API_KEY   X-DPW-ApiKey header value
//	CARGOES_FLOW_ORG_TOKEN X-DPW-Org-Token header value
//	SYNC_INTERVAL          mirror poll interval (default 5m)
//	RISK_INTERVAL          risk batch interval (default 1h)
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests, supervised services stop, and the database is
// checkpointed on close.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/drayline/internal/api"
	"github.com/tomtom215/drayline/internal/cargoesflow"
	"github.com/tomtom215/drayline/internal/config"
	"github.com/tomtom215/drayline/internal/database"
	"github.com/tomtom215/drayline/internal/events"
	"github.com/tomtom215/drayline/internal/logging"
	"github.com/tomtom215/drayline/internal/risk"
	"github.com/tomtom215/drayline/internal/supervisor"
	drsync "github.com/tomtom215/drayline/internal/sync"
	"github.com/tomtom215/drayline/internal/tms"
	"github.com/tomtom215/drayline/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("version", api.Version).
		Str("environment", cfg.Server.Environment).
		Msg("Starting Drayline")

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close database")
		}
	}()

	// Event plumbing: bus -> bridge -> websocket hub.
	bus := events.NewBus()
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close event bus")
		}
	}()
	hub := websocket.NewHub()
	bridge := events.NewBridge(bus, hub)

	// Outbound Cargoes Flow integration is optional; without it the
	// processor still ingests webhooks, it just forwards nothing.
	var (
		forwarder  *cargoesflow.Forwarder
		poller     *drsync.Poller
		riskRunner *risk.Runner
		riskSched  *risk.Scheduler
	)
	if cfg.CargoesFlow.Enabled {
		flowClient := cargoesflow.NewBreakerClient(cargoesflow.NewHTTPClient(&cfg.CargoesFlow))
		forwarder = cargoesflow.NewForwarder(db, flowClient)

		if cfg.Sync.Enabled {
			poller = drsync.NewPoller(db, flowClient, cfg.Sync.Interval, cfg.Sync.PageSize)
		}
	}
	if cfg.Risk.Enabled {
		riskRunner = risk.NewRunner(db, cfg.Risk.BatchSize)
		riskSched = risk.NewScheduler(riskRunner, cfg.Risk.Interval)
	}

	processor := tms.NewProcessor(db, forwarderOrNil(forwarder), bus)

	handler := api.NewHandler(db, processor, forwarder, poller, riskRunner, cfg, hub)
	mw := api.NewChiMiddleware(api.MiddlewareConfigFromSecurity(&cfg.Security))
	router := api.NewRouter(handler, mw)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddEventService(hub)
	tree.AddEventService(bridge)
	if poller != nil {
		tree.AddBackgroundService(poller)
	}
	if riskSched != nil {
		tree.AddBackgroundService(riskSched)
	}
	tree.AddAPIService(supervisor.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("addr", server.Addr).
		Bool("cargoes_flow", cfg.CargoesFlow.Enabled).
		Bool("sync", poller != nil).
		Bool("risk", riskSched != nil).
		Msg("Drayline ready")

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree failed: %w", err)
	}

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}

	logging.Info().Msg("Drayline stopped")
	return nil
}

// forwarderOrNil avoids handing the processor a typed-nil interface value.
func forwarderOrNil(f *cargoesflow.Forwarder) tms.Forwarder {
	if f == nil {
		return nil
	}
	return f
}
