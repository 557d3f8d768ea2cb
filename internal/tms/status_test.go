// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package tms

import (
	"testing"
	"time"

	"github.com/tomtom215/drayline/internal/models"
)

func TestClassifyEventType(t *testing.T) {
	tests := []struct {
		eventType string
		expected  string
	}{
		{"VESSEL_ARRIVED", models.ShipmentStatusArrived},
		{"Out for Delivery", models.ShipmentStatusArrived},
		{"CARGO_DISCHARGE", models.ShipmentStatusArrived},
		{"VESSEL_DEPARTED", models.ShipmentStatusInTransit},
		{"LOADING", models.ShipmentStatusInTransit},
		{"Container Loaded", models.ShipmentStatusInTransit},
		{"GATE_IN", models.ShipmentStatusAtTerminal},
		{"gate out", models.ShipmentStatusAtTerminal},
		{"CUSTOMS_CLEARED", models.ShipmentStatusInTransit},
		{"", models.ShipmentStatusInTransit},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			if got := classifyEventType(tt.eventType); got != tt.expected {
				t.Errorf("classifyEventType(%q) = %q, want %q", tt.eventType, got, tt.expected)
			}
		})
	}
}

func TestClassifyEventType_RuleOrder(t *testing.T) {
	// "LOADED" also contains "GATE"-free text; an event matching an earlier
	// rule must not fall through to a later one.
	if got := classifyEventType("DELIVERY_GATE"); got != models.ShipmentStatusArrived {
		t.Errorf("Expected arrived rule to win over gate rule, got %q", got)
	}
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestCalculateShipmentStatus(t *testing.T) {
	tests := []struct {
		name       string
		milestones []models.Milestone
		expected   string
	}{
		{
			name:       "no milestones",
			milestones: nil,
			expected:   models.ShipmentStatusPlanned,
		},
		{
			name: "no completed milestones",
			milestones: []models.Milestone{
				{EventType: "PICKUP", Status: models.MilestoneStatusPending},
			},
			expected: models.ShipmentStatusPlanned,
		},
		{
			name: "completed without actual ignored",
			milestones: []models.Milestone{
				{EventType: "ARRIVED", Status: models.MilestoneStatusCompleted},
			},
			expected: models.ShipmentStatusPlanned,
		},
		{
			name: "latest actual wins",
			milestones: []models.Milestone{
				{EventType: "GATE_IN", Status: models.MilestoneStatusCompleted, TimestampActual: ts("2024-01-01T00:00:00Z")},
				{EventType: "VESSEL_DEPARTED", Status: models.MilestoneStatusCompleted, TimestampActual: ts("2024-01-03T00:00:00Z")},
			},
			expected: models.ShipmentStatusInTransit,
		},
		{
			name: "arrival latest",
			milestones: []models.Milestone{
				{EventType: "VESSEL_DEPARTED", Status: models.MilestoneStatusCompleted, TimestampActual: ts("2024-01-03T00:00:00Z")},
				{EventType: "CARGO_ARRIVED", Status: models.MilestoneStatusCompleted, TimestampActual: ts("2024-01-05T00:00:00Z")},
			},
			expected: models.ShipmentStatusArrived,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateShipmentStatus(tt.milestones); got != tt.expected {
				t.Errorf("CalculateShipmentStatus = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDetectDelays(t *testing.T) {
	milestones := []models.Milestone{
		{
			EventType:        "DELIVERY",
			Status:           models.MilestoneStatusCompleted,
			TimestampPlanned: ts("2024-01-01T00:00:00Z"),
			TimestampActual:  ts("2024-01-02T00:00:00Z"),
		},
		{
			EventType:        "PICKUP",
			Status:           models.MilestoneStatusCompleted,
			TimestampPlanned: ts("2024-01-01T00:00:00Z"),
			TimestampActual:  ts("2024-01-01T00:00:00Z"),
		},
		{
			EventType: "STATUS_UPDATE",
			Status:    models.MilestoneStatusCompleted,
			// No planned timestamp: delay rule cannot apply.
			TimestampActual: ts("2024-06-01T00:00:00Z"),
		},
	}

	changed := DetectDelays(milestones)

	if len(changed) != 1 {
		t.Fatalf("Expected 1 delayed milestone, got %d", len(changed))
	}
	if changed[0].EventType != "DELIVERY" {
		t.Errorf("Expected DELIVERY delayed, got %q", changed[0].EventType)
	}
	if milestones[0].Status != models.MilestoneStatusDelayed {
		t.Error("Expected in-place status flip on the delayed milestone")
	}
	if milestones[1].Status != models.MilestoneStatusCompleted {
		t.Error("On-time milestone must stay completed")
	}
}

func TestDetectDelays_AlreadyDelayed(t *testing.T) {
	milestones := []models.Milestone{
		{
			Status:           models.MilestoneStatusDelayed,
			TimestampPlanned: ts("2024-01-01T00:00:00Z"),
			TimestampActual:  ts("2024-01-02T00:00:00Z"),
		},
	}

	if changed := DetectDelays(milestones); len(changed) != 0 {
		t.Errorf("Expected no change for already-delayed milestone, got %d", len(changed))
	}
}
