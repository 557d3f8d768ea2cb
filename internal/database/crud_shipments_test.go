// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package database

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/drayline/internal/models"
)

func TestCreateShipment_AndGetByReference(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	shipment := &models.Shipment{
		ReferenceNumber:    "555",
		MasterBillOfLading: "MBLX1",
		Shipper:            "Acme Warehousing, Los Angeles, CA",
		Status:             models.ShipmentStatusPlanned,
		SalesRepNames:      []string{"Jane Doe", "Bob Roe"},
		Source:             "tai-webhook",
	}

	if err := db.CreateShipment(ctx, shipment); err != nil {
		t.Fatalf("CreateShipment failed: %v", err)
	}
	if shipment.ID == uuid.Nil {
		t.Error("Expected generated ID")
	}

	got, err := db.GetShipmentByReference(ctx, "555")
	if err != nil {
		t.Fatalf("GetShipmentByReference failed: %v", err)
	}
	if got.MasterBillOfLading != "MBLX1" {
		t.Errorf("Expected MBL MBLX1, got %q", got.MasterBillOfLading)
	}
	if len(got.SalesRepNames) != 2 || got.SalesRepNames[0] != "Jane Doe" {
		t.Errorf("Expected sales reps round-trip, got %v", got.SalesRepNames)
	}
}

func TestCreateShipment_DuplicateReference(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := &models.Shipment{ReferenceNumber: "DUP-1"}
	if err := db.CreateShipment(ctx, first); err != nil {
		t.Fatalf("First create failed: %v", err)
	}

	second := &models.Shipment{ReferenceNumber: "DUP-1"}
	err := db.CreateShipment(ctx, second)
	if !errors.Is(err, ErrDuplicateReference) {
		t.Errorf("Expected ErrDuplicateReference, got %v", err)
	}
}

func TestGetShipmentByReference_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetShipmentByReference(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdateShipment_PartialFields(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	shipment := &models.Shipment{
		ReferenceNumber: "UPD-1",
		Shipper:         "Original Shipper",
		ETA:             "2026-09-01",
		SalesRepNames:   []string{"Jane Doe"},
	}
	if err := db.CreateShipment(ctx, shipment); err != nil {
		t.Fatalf("CreateShipment failed: %v", err)
	}

	newETA := "2026-09-15"
	emptyShipper := ""
	update := &models.ShipmentUpdate{
		ETA:     &newETA,
		Shipper: &emptyShipper,
	}
	if err := db.UpdateShipment(ctx, shipment.ID, update); err != nil {
		t.Fatalf("UpdateShipment failed: %v", err)
	}

	got, err := db.GetShipment(ctx, shipment.ID)
	if err != nil {
		t.Fatalf("GetShipment failed: %v", err)
	}
	if got.ETA != "2026-09-15" {
		t.Errorf("Expected updated ETA, got %q", got.ETA)
	}
	if got.Shipper != "" {
		t.Errorf("Expected shipper overwritten with empty string, got %q", got.Shipper)
	}
	// Untouched fields survive.
	if len(got.SalesRepNames) != 1 {
		t.Errorf("Expected sales reps untouched, got %v", got.SalesRepNames)
	}
	if got.ReferenceNumber != "UPD-1" {
		t.Errorf("Expected reference untouched, got %q", got.ReferenceNumber)
	}
}

func TestUpdateShipment_SalesRepsExplicitNil(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	shipment := &models.Shipment{
		ReferenceNumber: "REPS-1",
		SalesRepNames:   []string{"Jane Doe"},
	}
	if err := db.CreateShipment(ctx, shipment); err != nil {
		t.Fatalf("CreateShipment failed: %v", err)
	}

	update := &models.ShipmentUpdate{
		SalesRepNames:    nil,
		SetSalesRepNames: true,
	}
	if err := db.UpdateShipment(ctx, shipment.ID, update); err != nil {
		t.Fatalf("UpdateShipment failed: %v", err)
	}

	got, err := db.GetShipment(ctx, shipment.ID)
	if err != nil {
		t.Fatalf("GetShipment failed: %v", err)
	}
	if got.SalesRepNames != nil {
		t.Errorf("Expected nil sales reps after explicit clear, got %v", got.SalesRepNames)
	}
}

func TestUpdateShipment_NotFound(t *testing.T) {
	db := setupTestDB(t)

	status := models.ShipmentStatusArrived
	err := db.UpdateShipment(context.Background(), uuid.New(), &models.ShipmentUpdate{Status: &status})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListShipments_FilterAndCount(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	shipments := []*models.Shipment{
		{ReferenceNumber: "L-1", Status: models.ShipmentStatusInTransit, Carrier: "MSC"},
		{ReferenceNumber: "L-2", Status: models.ShipmentStatusInTransit, Carrier: "Maersk"},
		{ReferenceNumber: "L-3", Status: models.ShipmentStatusArrived, Carrier: "MSC"},
	}
	for _, s := range shipments {
		if err := db.CreateShipment(ctx, s); err != nil {
			t.Fatalf("CreateShipment %s failed: %v", s.ReferenceNumber, err)
		}
	}

	got, total, err := db.ListShipments(ctx, ShipmentFilter{
		Status: models.ShipmentStatusInTransit,
		Limit:  10,
	})
	if err != nil {
		t.Fatalf("ListShipments failed: %v", err)
	}
	if total != 2 || len(got) != 2 {
		t.Errorf("Expected 2 in-transit shipments, got total=%d len=%d", total, len(got))
	}

	got, total, err = db.ListShipments(ctx, ShipmentFilter{Search: "L-3", Limit: 10})
	if err != nil {
		t.Fatalf("ListShipments search failed: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].ReferenceNumber != "L-3" {
		t.Errorf("Expected search to find L-3, got total=%d %v", total, got)
	}

	// Pagination respects limit while total reflects all matches.
	got, total, err = db.ListShipments(ctx, ShipmentFilter{Limit: 2})
	if err != nil {
		t.Fatalf("ListShipments paged failed: %v", err)
	}
	if total != 3 || len(got) != 2 {
		t.Errorf("Expected total=3 page len=2, got total=%d len=%d", total, len(got))
	}
}

func TestDeleteShipment_CascadesMilestones(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	shipment := &models.Shipment{ReferenceNumber: "DEL-1"}
	if err := db.CreateShipment(ctx, shipment); err != nil {
		t.Fatalf("CreateShipment failed: %v", err)
	}

	milestone := &models.Milestone{
		ShipmentID: shipment.ID,
		EventType:  "PICKUP",
		Status:     models.MilestoneStatusPending,
	}
	if err := db.CreateMilestone(ctx, milestone); err != nil {
		t.Fatalf("CreateMilestone failed: %v", err)
	}

	if err := db.DeleteShipment(ctx, shipment.ID); err != nil {
		t.Fatalf("DeleteShipment failed: %v", err)
	}

	if _, err := db.GetShipment(ctx, shipment.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected shipment gone, got %v", err)
	}
	milestones, err := db.ListMilestones(ctx, shipment.ID)
	if err != nil {
		t.Fatalf("ListMilestones failed: %v", err)
	}
	if len(milestones) != 0 {
		t.Errorf("Expected milestones cascaded, got %d", len(milestones))
	}
}

func TestDeleteShipment_NotFound(t *testing.T) {
	db := setupTestDB(t)

	err := db.DeleteShipment(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
