// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package tms

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/drayline/internal/models"
)

// Milestone event types synthesized by the deriver.
const (
	eventTypePickup       = "PICKUP"
	eventTypeDelivery     = "DELIVERY"
	eventTypeStatusUpdate = "STATUS_UPDATE"
)

// SeedMilestones synthesizes the initial milestones for a newly created
// shipment: PICKUP from the First Pickup stop and DELIVERY from the Last
// Drop, each only when the stop exists. A milestone is completed when the
// stop already carries an actual timestamp, pending otherwise.
func SeedMilestones(shipmentID uuid.UUID, stops []models.TMSStop) []models.Milestone {
	milestones := []models.Milestone{}

	if pickup := findStop(stops, models.StopTypeFirstPickup); pickup != nil {
		milestones = append(milestones, stopMilestone(
			shipmentID, eventTypePickup, pickup,
			parseFlexibleTime(pickup.EstimatedReadyDateTime),
			parseFlexibleTime(pickup.ActualDepartureDateTime),
		))
	}
	if drop := findStop(stops, models.StopTypeLastDrop); drop != nil {
		milestones = append(milestones, stopMilestone(
			shipmentID, eventTypeDelivery, drop,
			parseFlexibleTime(drop.EstimatedReadyDateTime),
			parseFlexibleTime(drop.ActualArrivalDateTime),
		))
	}

	return milestones
}

func stopMilestone(shipmentID uuid.UUID, eventType string, stop *models.TMSStop, planned, actual *time.Time) models.Milestone {
	status := models.MilestoneStatusPending
	if actual != nil {
		status = models.MilestoneStatusCompleted
	}

	return models.Milestone{
		ShipmentID:       shipmentID,
		EventType:        eventType,
		Location:         joinLocation(stop),
		TimestampPlanned: planned,
		TimestampActual:  actual,
		Status:           status,
	}
}

// StatusMilestone builds the milestone appended on every UPDATE webhook. The
// raw TMS status string becomes the event type, falling back to
// STATUS_UPDATE when absent. This is an append-only audit trail: the
// milestone is recorded whether or not the status actually changed.
func StatusMilestone(shipmentID uuid.UUID, rawStatus string, now time.Time) models.Milestone {
	eventType := strings.TrimSpace(rawStatus)
	if eventType == "" {
		eventType = eventTypeStatusUpdate
	}

	actual := now
	return models.Milestone{
		ShipmentID:      shipmentID,
		EventType:       eventType,
		TimestampActual: &actual,
		Status:          models.MilestoneStatusCompleted,
	}
}
