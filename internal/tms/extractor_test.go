// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package tms

import (
	"testing"

	"github.com/tomtom215/drayline/internal/models"
)

func TestExtractReferences_FirstMatchWins(t *testing.T) {
	refs := []models.TMSReferenceNumber{
		{ReferenceType: "Shipment Id", Value: "555"},
		{ReferenceType: "Shipment Id", Value: "999"},
		{ReferenceType: "MBL Number", Value: "MBLX1"},
		{ReferenceType: "MBL Number", Value: "MBLX2"},
	}

	got := ExtractReferences(refs)
	if got.ShipmentID != "555" {
		t.Errorf("Expected first Shipment Id 555, got %q", got.ShipmentID)
	}
	if got.MblNumber != "MBLX1" {
		t.Errorf("Expected first MBL MBLX1, got %q", got.MblNumber)
	}
}

func TestExtractReferences_Types(t *testing.T) {
	tests := []struct {
		name  string
		refs  []models.TMSReferenceNumber
		check func(t *testing.T, got References)
	}{
		{
			name: "mawb feeds mbl",
			refs: []models.TMSReferenceNumber{
				{ReferenceType: "MAWB Number", Value: "MAWB001"},
			},
			check: func(t *testing.T, got References) {
				if got.MblNumber != "MAWB001" {
					t.Errorf("Expected MAWB to populate MblNumber, got %q", got.MblNumber)
				}
			},
		},
		{
			name: "case insensitive type",
			refs: []models.TMSReferenceNumber{
				{ReferenceType: "CONTAINER NUMBER", Value: "CAIU1234567"},
			},
			check: func(t *testing.T, got References) {
				if got.ContainerNumber != "CAIU1234567" {
					t.Errorf("Expected container extracted, got %q", got.ContainerNumber)
				}
			},
		},
		{
			name: "unknown types ignored",
			refs: []models.TMSReferenceNumber{
				{ReferenceType: "PO Number", Value: "PO-1"},
				{ReferenceType: "Shipper Reference Number", Value: "SR-9"},
			},
			check: func(t *testing.T, got References) {
				if got.ShipperReference != "SR-9" {
					t.Errorf("Expected shipper reference SR-9, got %q", got.ShipperReference)
				}
				if got.ContainerNumber != "" || got.MblNumber != "" || got.ShipmentID != "" {
					t.Errorf("Expected other fields empty, got %+v", got)
				}
			},
		},
		{
			name: "numeric value via flex string",
			refs: []models.TMSReferenceNumber{
				{ReferenceType: "Shipment Id", Value: "12345"},
			},
			check: func(t *testing.T, got References) {
				if got.ShipmentID != "12345" {
					t.Errorf("Expected 12345, got %q", got.ShipmentID)
				}
			},
		},
		{
			name: "empty values skipped",
			refs: []models.TMSReferenceNumber{
				{ReferenceType: "MBL Number", Value: "  "},
				{ReferenceType: "MBL Number", Value: "MBLREAL"},
			},
			check: func(t *testing.T, got References) {
				if got.MblNumber != "MBLREAL" {
					t.Errorf("Expected blank value skipped, got %q", got.MblNumber)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, ExtractReferences(tt.refs))
		})
	}
}

func TestExtractReferences_Empty(t *testing.T) {
	got := ExtractReferences(nil)
	if got != (References{}) {
		t.Errorf("Expected zero value for nil input, got %+v", got)
	}
}
