// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/drayline/internal/cargoesflow"
	"github.com/tomtom215/drayline/internal/logging"
	"github.com/tomtom215/drayline/internal/metrics"
	"github.com/tomtom215/drayline/internal/models"
)

const defaultBatchSize = 100

// Store is the persistence surface the batch runner needs.
type Store interface {
	ListCargoesFlowShipmentsPage(ctx context.Context, limit, offset int) ([]models.CargoesFlowShipment, error)
	UpdateCargoesFlowShipmentRawData(ctx context.Context, id uuid.UUID, rawData []byte) error
}

// Runner walks the mirrored shipment table in pages and writes a fresh
// assessment into each row's raw document. A shipment whose document cannot
// be parsed or persisted is logged and skipped; one bad row never aborts
// the batch.
type Runner struct {
	store     Store
	batchSize int
	now       func() time.Time
}

// NewRunner creates a batch runner. A non-positive batchSize falls back to
// the default page size.
func NewRunner(store Store, batchSize int) *Runner {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Runner{store: store, batchSize: batchSize, now: time.Now}
}

// RunBatch assesses every mirrored shipment once and returns how many rows
// were scored.
func (r *Runner) RunBatch(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.RiskBatchDuration.Observe(time.Since(start).Seconds())
	}()

	assessed := 0
	for offset := 0; ; offset += r.batchSize {
		shipments, err := r.store.ListCargoesFlowShipmentsPage(ctx, r.batchSize, offset)
		if err != nil {
			return assessed, fmt.Errorf("failed to page mirrored shipments at offset %d: %w", offset, err)
		}
		if len(shipments) == 0 {
			break
		}

		for i := range shipments {
			if err := ctx.Err(); err != nil {
				return assessed, err
			}
			if r.assessOne(ctx, &shipments[i]) {
				assessed++
			}
		}

		if len(shipments) < r.batchSize {
			break
		}
	}

	logging.Ctx(ctx).Info().
		Int("assessed", assessed).
		Dur("duration", time.Since(start)).
		Msg("Risk assessment batch complete")
	return assessed, nil
}

func (r *Runner) assessOne(ctx context.Context, shipment *models.CargoesFlowShipment) bool {
	doc, err := cargoesflow.ParseDocument(shipment.RawData)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("shipment_id", shipment.ID.String()).
			Msg("Skipping shipment with unparseable raw data")
		return false
	}

	assessment := Assess(doc, r.now())
	doc.SetRisk(assessment)

	updated, err := doc.Marshal()
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("shipment_id", shipment.ID.String()).
			Msg("Failed to encode assessed document")
		return false
	}

	if err := r.store.UpdateCargoesFlowShipmentRawData(ctx, shipment.ID, updated); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("shipment_id", shipment.ID.String()).
			Msg("Failed to persist risk assessment")
		return false
	}

	metrics.RiskAssessments.WithLabelValues(assessment.Level).Inc()
	return true
}
