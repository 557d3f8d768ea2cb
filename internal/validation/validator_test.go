// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package validation

import (
	"strings"
	"testing"
)

type shipmentRequest struct {
	ReferenceNumber string `validate:"required,max=100"`
	ETA             string `validate:"omitempty,shipdate"`
	Status          string `validate:"omitempty,oneof=planned in-transit at-terminal arrived"`
}

func TestValidateStructPasses(t *testing.T) {
	req := shipmentRequest{
		ReferenceNumber: "TAI-1756600000",
		ETA:             "2026-02-14",
		Status:          "in-transit",
	}

	if err := ValidateStruct(&req); err != nil {
		t.Errorf("expected valid struct, got: %v", err)
	}
}

func TestValidateStructRequiredField(t *testing.T) {
	req := shipmentRequest{}

	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error for missing reference number")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR code, got %q", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "ReferenceNumber") {
		t.Errorf("expected message to name the field, got %q", apiErr.Message)
	}
}

func TestShipDateValidator(t *testing.T) {
	tests := []struct {
		eta   string
		valid bool
	}{
		{"2026-02-14", true},
		{"2026-02-14T08:30:00", true},
		{"2026-02-14T08:30:00Z", true},
		{"2026-02-14T08:30:00-05:00", true},
		{"02/14/2026", false},
		{"not-a-date", false},
	}

	for _, tt := range tests {
		req := shipmentRequest{ReferenceNumber: "R1", ETA: tt.eta}
		err := ValidateStruct(&req)
		if tt.valid && err != nil {
			t.Errorf("ETA %q: expected valid, got %v", tt.eta, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("ETA %q: expected validation failure", tt.eta)
		}
	}
}

func TestToAPIErrorMultipleFields(t *testing.T) {
	req := shipmentRequest{ETA: "bogus", Status: "teleporting"}

	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected multiple validation errors")
	}
	if len(err.Errors()) != 3 {
		t.Fatalf("expected 3 field errors, got %d", len(err.Errors()))
	}

	apiErr := err.ToAPIError()
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("expected multi-error details to carry a fields list")
	}
}
