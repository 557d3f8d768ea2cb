// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

// Package sync mirrors the Cargoes Flow shipment list into the local
// cargoes_flow_shipments table on a schedule. The mirror is what UPDATE
// forwarding resolves shipment numbers from and what the risk batch
// scores; it is read-mostly and entirely separate from the TMS-origin
// shipments table.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/drayline/internal/cargoesflow"
	"github.com/tomtom215/drayline/internal/logging"
	"github.com/tomtom215/drayline/internal/metrics"
	"github.com/tomtom215/drayline/internal/models"
)

const (
	defaultInterval = 15 * time.Minute
	defaultPageSize = 100
)

// Store is the persistence surface the poller needs.
type Store interface {
	UpsertCargoesFlowShipment(ctx context.Context, shipment *models.CargoesFlowShipment) error
}

// Poller pulls pages of tracked shipments from Cargoes Flow and upserts
// them into the mirror table. It implements suture.Service; RunOnce is also
// exposed for the manual sync endpoint.
type Poller struct {
	store    Store
	client   cargoesflow.Client
	interval time.Duration
	pageSize int
}

// NewPoller creates a poller. Non-positive interval and page size fall back
// to defaults.
func NewPoller(store Store, client cargoesflow.Client, interval time.Duration, pageSize int) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Poller{store: store, client: client, interval: interval, pageSize: pageSize}
}

// Serve runs one sync immediately, then one per interval, until the context
// is canceled. Sync errors are logged and retried next tick.
func (p *Poller) Serve(ctx context.Context) error {
	logging.Info().
		Dur("interval", p.interval).
		Int("page_size", p.pageSize).
		Msg("Starting Cargoes Flow mirror sync")

	p.runOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Cargoes Flow mirror sync stopping")
			return ctx.Err()
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	if _, err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
		metrics.SyncRuns.WithLabelValues("failure").Inc()
		logging.Error().Err(err).Msg("Cargoes Flow mirror sync failed")
	}
}

// RunOnce performs one full paged sync and returns how many mirror rows
// were upserted.
func (p *Poller) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	upserted := 0

	for page := 1; ; page++ {
		shipments, err := p.client.ListShipments(ctx, page, p.pageSize)
		if err != nil {
			return upserted, fmt.Errorf("failed to list shipments page %d: %w", page, err)
		}
		if len(shipments) == 0 {
			break
		}

		for _, tracked := range shipments {
			if err := ctx.Err(); err != nil {
				return upserted, err
			}
			if err := p.upsertOne(ctx, tracked); err != nil {
				logging.Ctx(ctx).Warn().Err(err).
					Str("shipment_number", tracked.ShipmentNumber).
					Str("container", tracked.ContainerNumber).
					Msg("Failed to upsert mirrored shipment")
				continue
			}
			upserted++
		}

		if len(shipments) < p.pageSize {
			break
		}
	}

	metrics.SyncRuns.WithLabelValues("success").Inc()
	logging.Ctx(ctx).Info().
		Int("upserted", upserted).
		Dur("duration", time.Since(start)).
		Msg("Cargoes Flow mirror sync complete")
	return upserted, nil
}

func (p *Poller) upsertOne(ctx context.Context, tracked cargoesflow.TrackedShipment) error {
	row := &models.CargoesFlowShipment{
		ContainerNumber: tracked.ContainerNumber,
		MblNumber:       tracked.MblNumber,
		ShipmentNumber:  tracked.ShipmentNumber,
		Status:          tracked.Status,
		RawData:         tracked.RawData,
	}
	if err := p.store.UpsertCargoesFlowShipment(ctx, row); err != nil {
		return err
	}
	metrics.SyncShipmentsUpserted.Inc()
	return nil
}

// String names the service in supervisor logs.
func (p *Poller) String() string {
	return "cargoes-flow-sync"
}
