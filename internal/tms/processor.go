// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package tms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/drayline/internal/database"
	"github.com/tomtom215/drayline/internal/logging"
	"github.com/tomtom215/drayline/internal/metrics"
	"github.com/tomtom215/drayline/internal/models"
)

// eventTypeShipmentWebhook labels inbound TAI deliveries in the webhook log.
const eventTypeShipmentWebhook = "tms.shipment"

// ErrInvalidPayload is returned when the webhook body is not parseable JSON.
// The handler maps it to a client error before any log row exists.
var ErrInvalidPayload = errors.New("invalid webhook payload")

// Store is the persistence surface the processor needs. *database.DB
// satisfies it; tests use an in-memory fake.
type Store interface {
	GetShipmentByReference(ctx context.Context, reference string) (*models.Shipment, error)
	CreateShipment(ctx context.Context, shipment *models.Shipment) error
	UpdateShipment(ctx context.Context, id uuid.UUID, update *models.ShipmentUpdate) error
	UpdateShipmentStatus(ctx context.Context, id uuid.UUID, status string) error

	CreateMilestone(ctx context.Context, milestone *models.Milestone) error
	ListMilestones(ctx context.Context, shipmentID uuid.UUID) ([]models.Milestone, error)
	SetMilestoneStatus(ctx context.Context, id uuid.UUID, status string) error

	CreateWebhookLog(ctx context.Context, entry *models.WebhookLog) error
	GetWebhookLog(ctx context.Context, id uuid.UUID) (*models.WebhookLog, error)
	MarkWebhookProcessed(ctx context.Context, id uuid.UUID) error
	MarkWebhookFailed(ctx context.Context, id uuid.UUID, errorMessage string) error
}

// ForwardRequest carries what the Cargoes Flow forwarder needs from one
// processed webhook.
type ForwardRequest struct {
	Operation          string
	ShipmentType       string
	ReferenceNumber    string
	MasterBillOfLading string
	CustomerName       string
	Shipper            string
	Consignee          string
	ETD                string
	ETA                string
}

// Forwarder pushes processed shipments to the external tracking system.
// Implementations record their own outcomes; a forwarding failure must never
// fail the webhook, so Forward returns an error for logging only.
type Forwarder interface {
	Forward(ctx context.Context, req ForwardRequest) error
}

// Publisher emits pipeline events for the monitor feed. Implementations must
// not block the webhook path.
type Publisher interface {
	PublishWebhookProcessed(webhookID uuid.UUID, operation, reference string)
	PublishShipmentUpdated(shipmentID uuid.UUID, reference, status string)
}

// Result summarizes one processed webhook.
type Result struct {
	WebhookID       uuid.UUID
	Operation       string
	ShipmentID      uuid.UUID
	ReferenceNumber string
}

// Processor orchestrates the webhook pipeline. Processing is synchronous
// within the request: log row first, then normalize, upsert, derive
// milestones, recompute status, and finally forward.
type Processor struct {
	store     Store
	forwarder Forwarder
	publisher Publisher

	// now is swappable for deterministic tests.
	now func() time.Time
}

// NewProcessor creates a webhook processor. forwarder and publisher may be
// nil when forwarding or the monitor feed is disabled.
func NewProcessor(store Store, forwarder Forwarder, publisher Publisher) *Processor {
	return &Processor{
		store:     store,
		forwarder: forwarder,
		publisher: publisher,
		now:       time.Now,
	}
}

// Process runs one raw webhook delivery through the full pipeline.
//
// The audit row is persisted before any business logic so a crash
// mid-processing leaves a retryable record with a nil processed_at. The
// CREATE/UPDATE decision is made once, here, and persisted into that row;
// it is never recomputed later.
func (p *Processor) Process(ctx context.Context, rawPayload []byte) (*Result, error) {
	start := time.Now()

	payload := &models.TMSWebhookPayload{}
	if err := json.Unmarshal(rawPayload, payload); err != nil {
		metrics.WebhooksProcessed.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	refs := ExtractReferences(payload.ShipmentReferenceNumbers)
	reference := refs.ShipmentID
	if reference == "" {
		reference = models.GenerateReferenceNumber(p.now())
	}

	operation := p.decideOperation(ctx, reference)

	entry := &models.WebhookLog{
		EventType:       eventTypeShipmentWebhook,
		Operation:       operation,
		ShipmentID:      refs.ShipmentID,
		ContainerNumber: refs.ContainerNumber,
		Status:          payload.Status,
		RawPayload:      rawPayload,
	}
	if err := p.store.CreateWebhookLog(ctx, entry); err != nil {
		metrics.WebhooksProcessed.WithLabelValues("log_error").Inc()
		return nil, fmt.Errorf("failed to persist webhook log: %w", err)
	}

	metrics.WebhooksReceived.WithLabelValues(eventTypeShipmentWebhook, operation).Inc()

	result, err := p.runPipeline(ctx, entry.ID, operation, reference, refs, payload)
	metrics.WebhookProcessingDuration.Observe(time.Since(start).Seconds())
	return result, err
}

// Retry replays a stored delivery through the identical pipeline, updating
// the original log row in place. The row's recorded operation is immutable;
// the replay re-probes the store so its writes match current state.
func (p *Processor) Retry(ctx context.Context, webhookID uuid.UUID) (*Result, error) {
	entry, err := p.store.GetWebhookLog(ctx, webhookID)
	if err != nil {
		return nil, err
	}
	if len(entry.RawPayload) == 0 {
		return nil, fmt.Errorf("webhook %s has no stored payload", webhookID)
	}

	metrics.WebhookRetries.Inc()

	payload := &models.TMSWebhookPayload{}
	if err := json.Unmarshal(entry.RawPayload, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	refs := ExtractReferences(payload.ShipmentReferenceNumbers)
	reference := refs.ShipmentID
	if reference == "" {
		// A generated reference is stable only within the original delivery;
		// reuse is impossible, so the retry generates a fresh one.
		reference = models.GenerateReferenceNumber(p.now())
	}

	operation := p.decideOperation(ctx, reference)

	return p.runPipeline(ctx, entry.ID, operation, reference, refs, payload)
}

// decideOperation probes for an existing shipment by reference. Lookup
// failures fall back to CREATE: the insert path has its own duplicate handling.
func (p *Processor) decideOperation(ctx context.Context, reference string) string {
	_, err := p.store.GetShipmentByReference(ctx, reference)
	switch {
	case err == nil:
		return models.WebhookOperationUpdate
	case errors.Is(err, database.ErrNotFound):
		return models.WebhookOperationCreate
	default:
		logging.Ctx(ctx).Warn().Err(err).Str("reference", reference).
			Msg("Shipment lookup failed, defaulting to CREATE")
		return models.WebhookOperationCreate
	}
}

// runPipeline returns a partial Result alongside any error once the log row
// exists; callers surface the webhook ID so the delivery can be retried.
func (p *Processor) runPipeline(ctx context.Context, webhookID uuid.UUID, operation, reference string, refs References, payload *models.TMSWebhookPayload) (*Result, error) {
	partial := &Result{WebhookID: webhookID, Operation: operation, ReferenceNumber: reference}

	shipment, err := p.upsertShipment(ctx, operation, reference, refs, payload)
	if err != nil {
		p.fail(ctx, webhookID, err)
		return partial, err
	}

	if err := p.applyMilestones(ctx, operation, shipment, payload); err != nil {
		p.fail(ctx, webhookID, err)
		return partial, err
	}

	p.forward(ctx, operation, reference, refs, payload)

	if err := p.store.MarkWebhookProcessed(ctx, webhookID); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("webhook_id", webhookID.String()).
			Msg("Failed to mark webhook processed")
	}
	metrics.WebhooksProcessed.WithLabelValues("success").Inc()

	if p.publisher != nil {
		p.publisher.PublishWebhookProcessed(webhookID, operation, reference)
		p.publisher.PublishShipmentUpdated(shipment.ID, reference, shipment.Status)
	}

	logging.Ctx(ctx).Info().
		Str("webhook_id", webhookID.String()).
		Str("operation", operation).
		Str("reference", reference).
		Msg("Webhook processed")

	return &Result{
		WebhookID:       webhookID,
		Operation:       operation,
		ShipmentID:      shipment.ID,
		ReferenceNumber: reference,
	}, nil
}

// upsertShipment writes the normalized shipment. A CREATE that loses the
// insert race to a concurrent delivery falls through to the update path; the
// log row keeps the CREATE decision made at receipt time.
func (p *Processor) upsertShipment(ctx context.Context, operation, reference string, refs References, payload *models.TMSWebhookPayload) (*models.Shipment, error) {
	if operation == models.WebhookOperationCreate {
		shipment := Normalize(payload, refs, p.now())
		shipment.ReferenceNumber = reference

		err := p.store.CreateShipment(ctx, shipment)
		if err == nil {
			return shipment, nil
		}
		if !errors.Is(err, database.ErrDuplicateReference) {
			return nil, fmt.Errorf("failed to create shipment: %w", err)
		}
		logging.Ctx(ctx).Debug().Str("reference", reference).
			Msg("Concurrent create collapsed, applying as update")
	}

	existing, err := p.store.GetShipmentByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to load shipment %s: %w", reference, err)
	}

	if err := p.store.UpdateShipment(ctx, existing.ID, NormalizeUpdate(payload, refs)); err != nil {
		return nil, fmt.Errorf("failed to update shipment %s: %w", reference, err)
	}

	refreshed, err := p.store.GetShipmentByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to reload shipment %s: %w", reference, err)
	}
	return refreshed, nil
}

// applyMilestones seeds or appends milestones per the operation, then
// recomputes the shipment status from the full list.
func (p *Processor) applyMilestones(ctx context.Context, operation string, shipment *models.Shipment, payload *models.TMSWebhookPayload) error {
	var toCreate []models.Milestone
	if operation == models.WebhookOperationCreate {
		toCreate = SeedMilestones(shipment.ID, payload.Stops)
	} else {
		toCreate = []models.Milestone{StatusMilestone(shipment.ID, payload.Status, p.now())}
	}

	for i := range toCreate {
		if err := p.store.CreateMilestone(ctx, &toCreate[i]); err != nil {
			return fmt.Errorf("failed to create milestone: %w", err)
		}
	}

	return p.RecomputeStatus(ctx, shipment)
}

// RecomputeStatus runs delay detection over the shipment's milestones and
// rewrites the coarse status. It runs after every milestone mutation,
// webhook-driven or manual.
func (p *Processor) RecomputeStatus(ctx context.Context, shipment *models.Shipment) error {
	milestones, err := p.store.ListMilestones(ctx, shipment.ID)
	if err != nil {
		return fmt.Errorf("failed to list milestones: %w", err)
	}

	for _, delayed := range DetectDelays(milestones) {
		if err := p.store.SetMilestoneStatus(ctx, delayed.ID, models.MilestoneStatusDelayed); err != nil {
			return fmt.Errorf("failed to mark milestone delayed: %w", err)
		}
	}

	status := CalculateShipmentStatus(milestones)
	if status == shipment.Status {
		return nil
	}
	if err := p.store.UpdateShipmentStatus(ctx, shipment.ID, status); err != nil {
		return fmt.Errorf("failed to update shipment status: %w", err)
	}
	shipment.Status = status
	return nil
}

// forward hands the shipment to the Cargoes Flow forwarder. Forwarding is
// best-effort: the shipment data is already durably persisted, so a
// forwarding failure is logged and never fails the webhook.
func (p *Processor) forward(ctx context.Context, operation, reference string, refs References, payload *models.TMSWebhookPayload) {
	if p.forwarder == nil {
		return
	}

	req := ForwardRequest{
		Operation:          operation,
		ShipmentType:       payload.ShipmentType,
		ReferenceNumber:    reference,
		MasterBillOfLading: refs.MblNumber,
	}
	if payload.Customer != nil {
		req.CustomerName = payload.Customer.Name
		req.Shipper = payload.Customer.Name
	}
	if drop := findStop(payload.Stops, models.StopTypeLastDrop); drop != nil {
		req.Consignee = drop.CompanyName
		req.ETA = drop.EstimatedReadyDateTime
	}
	if pickup := findStop(payload.Stops, models.StopTypeFirstPickup); pickup != nil {
		req.ETD = pickup.EstimatedReadyDateTime
	}

	if err := p.forwarder.Forward(ctx, req); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("reference", reference).
			Msg("Cargoes Flow forwarding failed")
	}
}

func (p *Processor) fail(ctx context.Context, webhookID uuid.UUID, cause error) {
	metrics.WebhooksProcessed.WithLabelValues("error").Inc()
	if err := p.store.MarkWebhookFailed(ctx, webhookID, cause.Error()); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("webhook_id", webhookID.String()).
			Msg("Failed to record webhook failure")
	}
}
