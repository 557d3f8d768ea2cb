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

func TestCargoesFlowPost_ReferenceIdempotencyLookup(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.GetCargoesFlowPostByReference(ctx, "555"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound before post, got %v", err)
	}

	post := &models.CargoesFlowPost{
		ShipmentReference: "555",
		MblNumber:         "MBLX1",
		Status:            models.CargoesFlowStatusPending,
	}
	if err := db.CreateCargoesFlowPost(ctx, post); err != nil {
		t.Fatalf("CreateCargoesFlowPost failed: %v", err)
	}

	got, err := db.GetCargoesFlowPostByReference(ctx, "555")
	if err != nil {
		t.Fatalf("GetCargoesFlowPostByReference failed: %v", err)
	}
	if got.MblNumber != "MBLX1" {
		t.Errorf("Expected MBLX1, got %q", got.MblNumber)
	}

	if err := db.UpdateCargoesFlowPost(ctx, post.ID, models.CargoesFlowStatusSuccess,
		[]byte(`{"result":"SUCCESS"}`), ""); err != nil {
		t.Fatalf("UpdateCargoesFlowPost failed: %v", err)
	}

	got, err = db.GetCargoesFlowPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetCargoesFlowPost failed: %v", err)
	}
	if got.Status != models.CargoesFlowStatusSuccess {
		t.Errorf("Expected success status, got %q", got.Status)
	}
	if string(got.ResponseData) != `{"result":"SUCCESS"}` {
		t.Errorf("Expected response data preserved, got %s", got.ResponseData)
	}
}

func TestMissingMblShipment_IdempotentByReference(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	entry := &models.MissingMblShipment{
		ShipmentReference: "777",
		ShipmentType:      "Drayage",
		CustomerName:      "Acme Freight",
	}
	if err := db.UpsertMissingMblShipment(ctx, entry); err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}

	repeat := &models.MissingMblShipment{ShipmentReference: "777", ShipmentType: "Drayage"}
	if err := db.UpsertMissingMblShipment(ctx, repeat); err != nil {
		t.Fatalf("Repeat upsert failed: %v", err)
	}

	entries, err := db.ListMissingMblShipments(ctx)
	if err != nil {
		t.Fatalf("ListMissingMblShipments failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 row after repeat upsert, got %d", len(entries))
	}

	if err := db.DeleteMissingMblShipment(ctx, entries[0].ID); err != nil {
		t.Fatalf("DeleteMissingMblShipment failed: %v", err)
	}
	entries, err = db.ListMissingMblShipments(ctx)
	if err != nil {
		t.Fatalf("ListMissingMblShipments after delete failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty after resolve, got %d", len(entries))
	}
}

func TestUpsertCargoesFlowShipment_RefreshesInPlace(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := &models.CargoesFlowShipment{
		ContainerNumber: "CAIU1234567",
		MblNumber:       "MBLX1",
		ShipmentNumber:  "CF-1001",
		Status:          "IN_TRANSIT",
		RawData:         []byte(`{"status":"IN_TRANSIT"}`),
	}
	if err := db.UpsertCargoesFlowShipment(ctx, first); err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}

	refresh := &models.CargoesFlowShipment{
		ContainerNumber: "CAIU1234567",
		MblNumber:       "MBLX1",
		ShipmentNumber:  "CF-1001",
		Status:          "ARRIVED",
		RawData:         []byte(`{"status":"ARRIVED"}`),
	}
	if err := db.UpsertCargoesFlowShipment(ctx, refresh); err != nil {
		t.Fatalf("Refresh upsert failed: %v", err)
	}
	if refresh.ID != first.ID {
		t.Errorf("Expected refresh to reuse row id %s, got %s", first.ID, refresh.ID)
	}

	rows, err := db.ListCargoesFlowShipmentsPage(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListCargoesFlowShipmentsPage failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 mirrored row, got %d", len(rows))
	}
	if rows[0].Status != "ARRIVED" {
		t.Errorf("Expected refreshed status ARRIVED, got %q", rows[0].Status)
	}
}

func TestGetCargoesFlowShipmentByMbl(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.GetCargoesFlowShipmentByMbl(ctx, "MBLX9"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for unmapped MBL, got %v", err)
	}

	for _, container := range []string{"CAIU0000001", "CAIU0000002"} {
		row := &models.CargoesFlowShipment{
			ContainerNumber: container,
			MblNumber:       "MBLX9",
			ShipmentNumber:  "CF-2002",
		}
		if err := db.UpsertCargoesFlowShipment(ctx, row); err != nil {
			t.Fatalf("Upsert %s failed: %v", container, err)
		}
	}

	got, err := db.GetCargoesFlowShipmentByMbl(ctx, "MBLX9")
	if err != nil {
		t.Fatalf("GetCargoesFlowShipmentByMbl failed: %v", err)
	}
	if got.ShipmentNumber != "CF-2002" {
		t.Errorf("Expected shipment number CF-2002, got %q", got.ShipmentNumber)
	}
}

func TestUpdateCargoesFlowShipmentRawData(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	row := &models.CargoesFlowShipment{
		ContainerNumber: "CAIU5555555",
		MblNumber:       "MBLR1",
		RawData:         []byte(`{"status":"IN_TRANSIT"}`),
	}
	if err := db.UpsertCargoesFlowShipment(ctx, row); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	assessed := []byte(`{"status":"IN_TRANSIT","riskScore":5,"riskLevel":"high"}`)
	if err := db.UpdateCargoesFlowShipmentRawData(ctx, row.ID, assessed); err != nil {
		t.Fatalf("UpdateCargoesFlowShipmentRawData failed: %v", err)
	}

	rows, err := db.ListCargoesFlowShipmentsPage(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListCargoesFlowShipmentsPage failed: %v", err)
	}
	if len(rows) != 1 || string(rows[0].RawData) != string(assessed) {
		t.Errorf("Expected raw data updated, got %s", rows[0].RawData)
	}

	if err := db.UpdateCargoesFlowShipmentRawData(ctx, uuid.New(), assessed); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown row, got %v", err)
	}
}
