// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package cargoesflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/drayline/internal/database"
	"github.com/tomtom215/drayline/internal/logging"
	"github.com/tomtom215/drayline/internal/metrics"
	"github.com/tomtom215/drayline/internal/models"
	"github.com/tomtom215/drayline/internal/tms"
)

// shipmentTypeDrayage is the only TMS shipment type forwarded to Cargoes
// Flow; everything else is skipped at the first gate.
const shipmentTypeDrayage = "drayage"

// ForwarderStore is the persistence surface the forwarder needs.
type ForwarderStore interface {
	GetCargoesFlowPostByReference(ctx context.Context, reference string) (*models.CargoesFlowPost, error)
	CreateCargoesFlowPost(ctx context.Context, post *models.CargoesFlowPost) error
	UpdateCargoesFlowPost(ctx context.Context, id uuid.UUID, status string, responseData []byte, errorMessage string) error
	GetCargoesFlowPost(ctx context.Context, id uuid.UUID) (*models.CargoesFlowPost, error)
	CreateCargoesFlowUpdateLog(ctx context.Context, entry *models.CargoesFlowUpdateLog) error
	UpsertMissingMblShipment(ctx context.Context, entry *models.MissingMblShipment) error
	GetCargoesFlowShipmentByMbl(ctx context.Context, mblNumber string) (*models.CargoesFlowShipment, error)
}

// Forwarder pushes drayage shipments to Cargoes Flow. All outcomes, success
// or failure, land in audit rows; nothing here ever fails the webhook that
// triggered it.
type Forwarder struct {
	store  ForwarderStore
	client Client
}

// Ensure Forwarder satisfies the pipeline's interface
var _ tms.Forwarder = (*Forwarder)(nil)

// NewForwarder creates a forwarder over the given store and API client.
func NewForwarder(store ForwarderStore, client Client) *Forwarder {
	return &Forwarder{store: store, client: client}
}

// Forward applies the gates in order: drayage-only, MBL presence, then the
// create or update flow. The returned error is for the caller's log line
// only; every failure is already recorded in an audit row.
func (f *Forwarder) Forward(ctx context.Context, req tms.ForwardRequest) error {
	if !strings.EqualFold(strings.TrimSpace(req.ShipmentType), shipmentTypeDrayage) {
		metrics.ForwarderSkips.WithLabelValues("non_drayage").Inc()
		return nil
	}

	mbl := strings.TrimSpace(req.MasterBillOfLading)
	if mbl == "" {
		metrics.ForwarderSkips.WithLabelValues("missing_mbl").Inc()
		return f.trackMissingMbl(ctx, req)
	}

	if req.Operation == models.WebhookOperationCreate {
		return f.forwardCreate(ctx, req.ReferenceNumber, mbl)
	}
	return f.forwardUpdate(ctx, req, mbl)
}

// trackMissingMbl records a drayage shipment awaiting manual MBL
// remediation. Idempotent by reference.
func (f *Forwarder) trackMissingMbl(ctx context.Context, req tms.ForwardRequest) error {
	entry := &models.MissingMblShipment{
		ShipmentReference: req.ReferenceNumber,
		ShipmentType:      req.ShipmentType,
		CustomerName:      req.CustomerName,
	}
	if err := f.store.UpsertMissingMblShipment(ctx, entry); err != nil {
		return fmt.Errorf("failed to track missing mbl shipment: %w", err)
	}

	logging.Ctx(ctx).Info().
		Str("reference", req.ReferenceNumber).
		Msg("Drayage shipment has no MBL, tracked for remediation")
	return nil
}

// forwardCreate posts the shipment to Cargoes Flow by MBL, once per
// reference: an existing post row means this shipment was already sent,
// whatever its outcome.
func (f *Forwarder) forwardCreate(ctx context.Context, reference, mbl string) error {
	_, err := f.store.GetCargoesFlowPostByReference(ctx, reference)
	switch {
	case err == nil:
		metrics.ForwarderSkips.WithLabelValues("already_posted").Inc()
		return nil
	case !errors.Is(err, database.ErrNotFound):
		return fmt.Errorf("failed to check existing post: %w", err)
	}

	post := &models.CargoesFlowPost{
		ShipmentReference: reference,
		MblNumber:         mbl,
		Status:            models.CargoesFlowStatusPending,
	}
	if err := f.store.CreateCargoesFlowPost(ctx, post); err != nil {
		return fmt.Errorf("failed to record post attempt: %w", err)
	}

	return f.sendCreate(ctx, post)
}

// sendCreate performs the MBL-only create call and records the outcome on
// the post row. RetryPost reuses it with the original row.
func (f *Forwarder) sendCreate(ctx context.Context, post *models.CargoesFlowPost) error {
	start := time.Now()
	resp, err := f.client.CreateShipments(ctx, []string{post.MblNumber})
	metrics.RecordCargoesFlowRequest("create", time.Since(start), err)

	status, responseData, errorMessage := callOutcome(resp, err)
	if updateErr := f.store.UpdateCargoesFlowPost(ctx, post.ID, status, responseData, errorMessage); updateErr != nil {
		return fmt.Errorf("failed to record post outcome: %w", updateErr)
	}

	if status == models.CargoesFlowStatusFailed {
		return fmt.Errorf("cargoes flow create failed for %s: %s", post.ShipmentReference, errorMessage)
	}

	logging.Ctx(ctx).Info().
		Str("reference", post.ShipmentReference).
		Str("mbl", post.MblNumber).
		Msg("Shipment posted to Cargoes Flow")
	return nil
}

// forwardUpdate resolves the external shipment number for the MBL and pushes
// present-only field updates. An unmapped MBL is a silent skip: Cargoes Flow
// has not ingested the shipment yet.
func (f *Forwarder) forwardUpdate(ctx context.Context, req tms.ForwardRequest, mbl string) error {
	mirrored, err := f.store.GetCargoesFlowShipmentByMbl(ctx, mbl)
	switch {
	case errors.Is(err, database.ErrNotFound):
		metrics.ForwarderSkips.WithLabelValues("no_mapping").Inc()
		logging.Ctx(ctx).Debug().Str("mbl", mbl).Msg("No Cargoes Flow mapping for MBL yet, skipping update")
		return nil
	case err != nil:
		return fmt.Errorf("failed to resolve shipment number for mbl %s: %w", mbl, err)
	}
	if mirrored.ShipmentNumber == "" {
		metrics.ForwarderSkips.WithLabelValues("no_mapping").Inc()
		return nil
	}

	form := ShipmentUpdateForm{
		ShipmentNumber: mirrored.ShipmentNumber,
		Shipper:        strings.TrimSpace(req.Shipper),
		Consignee:      strings.TrimSpace(req.Consignee),
		PromisedEtd:    dateOnly(req.ETD),
		PromisedEta:    dateOnly(req.ETA),
	}

	payload, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("failed to encode update payload: %w", err)
	}

	start := time.Now()
	resp, err := f.client.UpdateShipments(ctx, []ShipmentUpdateForm{form})
	metrics.RecordCargoesFlowRequest("update", time.Since(start), err)

	status, responseData, errorMessage := callOutcome(resp, err)
	entry := &models.CargoesFlowUpdateLog{
		ShipmentNumber: mirrored.ShipmentNumber,
		UpdatePayload:  payload,
		Status:         status,
		ResponseData:   responseData,
		ErrorMessage:   errorMessage,
	}
	if logErr := f.store.CreateCargoesFlowUpdateLog(ctx, entry); logErr != nil {
		return fmt.Errorf("failed to record update outcome: %w", logErr)
	}

	if status == models.CargoesFlowStatusFailed {
		return fmt.Errorf("cargoes flow update failed for %s: %s", mirrored.ShipmentNumber, errorMessage)
	}
	return nil
}

// RetryPost re-sends the identical MBL-only payload for a previous post and
// updates its status in place.
func (f *Forwarder) RetryPost(ctx context.Context, postID uuid.UUID) error {
	post, err := f.store.GetCargoesFlowPost(ctx, postID)
	if err != nil {
		return err
	}
	return f.sendCreate(ctx, post)
}

// callOutcome folds transport errors and body-level FAILED results into one
// audit outcome. HTTP 200 with result "FAILED" is a failure.
func callOutcome(resp *APIResponse, err error) (status string, responseData []byte, errorMessage string) {
	if err != nil {
		return models.CargoesFlowStatusFailed, nil, err.Error()
	}

	if resp != nil {
		if data, marshalErr := json.Marshal(resp); marshalErr == nil {
			responseData = data
		}
	}

	if resp.Failed() {
		return models.CargoesFlowStatusFailed, responseData, resp.ErrorMessage()
	}
	return models.CargoesFlowStatusSuccess, responseData, ""
}

// dateOnly reduces a TMS timestamp to a plain YYYY-MM-DD, empty when the
// value is absent or unparseable.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func dateOnly(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}
