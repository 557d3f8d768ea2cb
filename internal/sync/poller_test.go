// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/drayline/internal/cargoesflow"
	"github.com/tomtom215/drayline/internal/models"
)

type fakeSyncStore struct {
	upserts []models.CargoesFlowShipment
	failOn  string
}

func (s *fakeSyncStore) UpsertCargoesFlowShipment(_ context.Context, shipment *models.CargoesFlowShipment) error {
	if s.failOn != "" && shipment.ContainerNumber == s.failOn {
		return errors.New("constraint violation")
	}
	s.upserts = append(s.upserts, *shipment)
	return nil
}

type fakeListClient struct {
	pages map[int][]cargoesflow.TrackedShipment
	calls []int
	err   error
}

func (c *fakeListClient) ListShipments(_ context.Context, page, _ int) ([]cargoesflow.TrackedShipment, error) {
	c.calls = append(c.calls, page)
	if c.err != nil {
		return nil, c.err
	}
	return c.pages[page], nil
}

func (c *fakeListClient) CreateShipments(_ context.Context, _ []string) (*cargoesflow.APIResponse, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeListClient) UpdateShipments(_ context.Context, _ []cargoesflow.ShipmentUpdateForm) (*cargoesflow.APIResponse, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeListClient) UploadDocument(_ context.Context, _, _ string, _ io.Reader) (*cargoesflow.APIResponse, error) {
	return nil, errors.New("not implemented")
}

func tracked(container, mbl, number string) cargoesflow.TrackedShipment {
	return cargoesflow.TrackedShipment{
		ContainerNumber: container,
		MblNumber:       mbl,
		ShipmentNumber:  number,
		Status:          "IN_TRANSIT",
		RawData:         json.RawMessage(fmt.Sprintf(`{"containerNumber":%q}`, container)),
	}
}

func TestRunOnce_UpsertsAllPages(t *testing.T) {
	store := &fakeSyncStore{}
	client := &fakeListClient{pages: map[int][]cargoesflow.TrackedShipment{
		1: {tracked("CAIU1", "MBLX1", "CF-1"), tracked("CAIU2", "MBLX1", "CF-1")},
		2: {tracked("CAIU3", "MBLX2", "CF-2")},
	}}
	poller := NewPoller(store, client, time.Minute, 2)

	upserted, err := poller.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if upserted != 3 {
		t.Errorf("Expected 3 upserts, got %d", upserted)
	}
	// Full first page forces a second read; the short page stops paging.
	if len(client.calls) != 2 {
		t.Errorf("Expected 2 page reads, got %v", client.calls)
	}

	first := store.upserts[0]
	if first.ContainerNumber != "CAIU1" || first.MblNumber != "MBLX1" || first.ShipmentNumber != "CF-1" {
		t.Errorf("Unexpected mirrored row %+v", first)
	}
	if string(first.RawData) != `{"containerNumber":"CAIU1"}` {
		t.Errorf("Expected provider document carried verbatim, got %s", first.RawData)
	}
}

func TestRunOnce_EmptyFirstPage(t *testing.T) {
	store := &fakeSyncStore{}
	client := &fakeListClient{pages: map[int][]cargoesflow.TrackedShipment{}}
	poller := NewPoller(store, client, time.Minute, 100)

	upserted, err := poller.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if upserted != 0 {
		t.Errorf("Expected 0 upserts, got %d", upserted)
	}
}

func TestRunOnce_ListFailure(t *testing.T) {
	poller := NewPoller(&fakeSyncStore{}, &fakeListClient{err: errors.New("api down")}, time.Minute, 100)

	if _, err := poller.RunOnce(context.Background()); err == nil {
		t.Fatal("Expected error when listing fails")
	}
}

func TestRunOnce_UpsertFailureSkipsRow(t *testing.T) {
	store := &fakeSyncStore{failOn: "CAIU2"}
	client := &fakeListClient{pages: map[int][]cargoesflow.TrackedShipment{
		1: {tracked("CAIU1", "MBLX1", "CF-1"), tracked("CAIU2", "MBLX1", "CF-1"), tracked("CAIU3", "MBLX2", "CF-2")},
	}}
	poller := NewPoller(store, client, time.Minute, 100)

	upserted, err := poller.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("Expected sync to continue past one bad row, got %v", err)
	}
	if upserted != 2 {
		t.Errorf("Expected 2 upserts with one failure, got %d", upserted)
	}
}

func TestNewPoller_Defaults(t *testing.T) {
	poller := NewPoller(&fakeSyncStore{}, &fakeListClient{}, 0, 0)
	if poller.interval != defaultInterval || poller.pageSize != defaultPageSize {
		t.Errorf("Expected defaults, got interval=%v pageSize=%d", poller.interval, poller.pageSize)
	}
}
