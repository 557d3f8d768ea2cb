// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package risk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/drayline/internal/database"
	"github.com/tomtom215/drayline/internal/models"
)

type fakeRiskStore struct {
	shipments []models.CargoesFlowShipment
	pageCalls int
	updated   map[uuid.UUID][]byte
	failWrite error
}

func newFakeRiskStore(shipments ...models.CargoesFlowShipment) *fakeRiskStore {
	return &fakeRiskStore{shipments: shipments, updated: map[uuid.UUID][]byte{}}
}

func (s *fakeRiskStore) ListCargoesFlowShipmentsPage(_ context.Context, limit, offset int) ([]models.CargoesFlowShipment, error) {
	s.pageCalls++
	if offset >= len(s.shipments) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.shipments) {
		end = len(s.shipments)
	}
	return s.shipments[offset:end], nil
}

func (s *fakeRiskStore) UpdateCargoesFlowShipmentRawData(_ context.Context, id uuid.UUID, rawData []byte) error {
	if s.failWrite != nil {
		return s.failWrite
	}
	s.updated[id] = rawData
	return nil
}

func mirrorRow(raw string) models.CargoesFlowShipment {
	return models.CargoesFlowShipment{
		ID:      uuid.New(),
		RawData: json.RawMessage(raw),
	}
}

func TestRunBatch_WritesAssessmentsBack(t *testing.T) {
	overdue := mirrorRow(`{"status":"IN_TRANSIT","eta":"2020-01-01","shipmentNumber":"CF-1"}`)
	clean := mirrorRow(`{"status":"DELIVERED"}`)
	store := newFakeRiskStore(overdue, clean)
	runner := NewRunner(store, 100)

	assessed, err := runner.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	if assessed != 2 {
		t.Errorf("Expected 2 assessed, got %d", assessed)
	}

	written := string(store.updated[overdue.ID])
	if !strings.Contains(written, `"riskScore":3`) {
		t.Errorf("Expected overdue shipment scored 3, got %s", written)
	}
	if !strings.Contains(written, `"riskLevel":"medium"`) {
		t.Errorf("Expected medium level, got %s", written)
	}
	// Provider fields survive the write-back.
	if !strings.Contains(written, "CF-1") {
		t.Errorf("Expected original fields preserved, got %s", written)
	}

	if !strings.Contains(string(store.updated[clean.ID]), `"riskLevel":"low"`) {
		t.Errorf("Expected delivered shipment scored low, got %s", store.updated[clean.ID])
	}
}

func TestRunBatch_PagesThroughAllRows(t *testing.T) {
	var rows []models.CargoesFlowShipment
	for i := 0; i < 5; i++ {
		rows = append(rows, mirrorRow(fmt.Sprintf(`{"shipmentNumber":"CF-%d"}`, i)))
	}
	store := newFakeRiskStore(rows...)
	runner := NewRunner(store, 2)

	assessed, err := runner.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	if assessed != 5 {
		t.Errorf("Expected 5 assessed, got %d", assessed)
	}
	// Pages of 2: three full/partial pages, last one short-circuits.
	if store.pageCalls != 3 {
		t.Errorf("Expected 3 page reads, got %d", store.pageCalls)
	}
}

func TestRunBatch_SkipsUnparseableRow(t *testing.T) {
	bad := mirrorRow(`{not json`)
	good := mirrorRow(`{"status":"IN_TRANSIT"}`)
	store := newFakeRiskStore(bad, good)
	runner := NewRunner(store, 100)

	assessed, err := runner.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	if assessed != 1 {
		t.Errorf("Expected bad row skipped, got %d assessed", assessed)
	}
	if _, ok := store.updated[bad.ID]; ok {
		t.Error("Expected no write for unparseable row")
	}
}

func TestRunBatch_WriteFailureDoesNotAbort(t *testing.T) {
	store := newFakeRiskStore(mirrorRow(`{}`), mirrorRow(`{}`))
	store.failWrite = database.ErrNotFound
	runner := NewRunner(store, 100)

	assessed, err := runner.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("Expected batch to continue past write failures, got %v", err)
	}
	if assessed != 0 {
		t.Errorf("Expected 0 assessed with failing writes, got %d", assessed)
	}
}

func TestRunBatch_CanceledContext(t *testing.T) {
	store := newFakeRiskStore(mirrorRow(`{}`))
	runner := NewRunner(store, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := runner.RunBatch(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestNewRunner_DefaultBatchSize(t *testing.T) {
	runner := NewRunner(newFakeRiskStore(), 0)
	if runner.batchSize != defaultBatchSize {
		t.Errorf("Expected default batch size, got %d", runner.batchSize)
	}
}
