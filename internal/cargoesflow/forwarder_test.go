// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package cargoesflow

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/drayline/internal/database"
	"github.com/tomtom215/drayline/internal/models"
	"github.com/tomtom215/drayline/internal/tms"
)

type fakeForwarderStore struct {
	posts      map[uuid.UUID]*models.CargoesFlowPost
	updateLogs []*models.CargoesFlowUpdateLog
	missingMbl map[string]*models.MissingMblShipment
	mirrored   map[string]*models.CargoesFlowShipment
}

func newFakeForwarderStore() *fakeForwarderStore {
	return &fakeForwarderStore{
		posts:      map[uuid.UUID]*models.CargoesFlowPost{},
		missingMbl: map[string]*models.MissingMblShipment{},
		mirrored:   map[string]*models.CargoesFlowShipment{},
	}
}

func (s *fakeForwarderStore) GetCargoesFlowPostByReference(_ context.Context, reference string) (*models.CargoesFlowPost, error) {
	for _, post := range s.posts {
		if post.ShipmentReference == reference {
			return post, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *fakeForwarderStore) CreateCargoesFlowPost(_ context.Context, post *models.CargoesFlowPost) error {
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	s.posts[post.ID] = post
	return nil
}

func (s *fakeForwarderStore) UpdateCargoesFlowPost(_ context.Context, id uuid.UUID, status string, responseData []byte, errorMessage string) error {
	post, ok := s.posts[id]
	if !ok {
		return database.ErrNotFound
	}
	post.Status = status
	post.ResponseData = responseData
	post.ErrorMessage = errorMessage
	return nil
}

func (s *fakeForwarderStore) GetCargoesFlowPost(_ context.Context, id uuid.UUID) (*models.CargoesFlowPost, error) {
	post, ok := s.posts[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return post, nil
}

func (s *fakeForwarderStore) CreateCargoesFlowUpdateLog(_ context.Context, entry *models.CargoesFlowUpdateLog) error {
	s.updateLogs = append(s.updateLogs, entry)
	return nil
}

func (s *fakeForwarderStore) UpsertMissingMblShipment(_ context.Context, entry *models.MissingMblShipment) error {
	if _, exists := s.missingMbl[entry.ShipmentReference]; exists {
		return nil
	}
	entry.ID = uuid.New()
	s.missingMbl[entry.ShipmentReference] = entry
	return nil
}

func (s *fakeForwarderStore) GetCargoesFlowShipmentByMbl(_ context.Context, mblNumber string) (*models.CargoesFlowShipment, error) {
	shipment, ok := s.mirrored[mblNumber]
	if !ok {
		return nil, database.ErrNotFound
	}
	return shipment, nil
}

type fakeAPIClient struct {
	createCalls [][]string
	updateCalls [][]ShipmentUpdateForm
	response    *APIResponse
	err         error
}

func (c *fakeAPIClient) CreateShipments(_ context.Context, mblNumbers []string) (*APIResponse, error) {
	c.createCalls = append(c.createCalls, mblNumbers)
	if c.err != nil {
		return nil, c.err
	}
	if c.response != nil {
		return c.response, nil
	}
	return &APIResponse{Result: "SUCCESS"}, nil
}

func (c *fakeAPIClient) UpdateShipments(_ context.Context, forms []ShipmentUpdateForm) (*APIResponse, error) {
	c.updateCalls = append(c.updateCalls, forms)
	if c.err != nil {
		return nil, c.err
	}
	if c.response != nil {
		return c.response, nil
	}
	return &APIResponse{Result: "SUCCESS"}, nil
}

func (c *fakeAPIClient) ListShipments(_ context.Context, _, _ int) ([]TrackedShipment, error) {
	return nil, nil
}

func (c *fakeAPIClient) UploadDocument(_ context.Context, _, _ string, _ io.Reader) (*APIResponse, error) {
	return &APIResponse{Result: "SUCCESS"}, nil
}

func drayageCreateRequest() tms.ForwardRequest {
	return tms.ForwardRequest{
		Operation:          models.WebhookOperationCreate,
		ShipmentType:       "Drayage",
		ReferenceNumber:    "555",
		MasterBillOfLading: "MBLX1",
		CustomerName:       "Acme Imports",
		Shipper:            "Acme Imports",
		Consignee:          "Acme DC",
		ETD:                "2026-03-01T08:00:00Z",
		ETA:                "2026-03-14T17:00:00Z",
	}
}

func TestForward_NonDrayageLeavesNoTrace(t *testing.T) {
	store := newFakeForwarderStore()
	client := &fakeAPIClient{}
	forwarder := NewForwarder(store, client)

	req := drayageCreateRequest()
	req.ShipmentType = "Truckload"

	if err := forwarder.Forward(context.Background(), req); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	if len(client.createCalls) != 0 {
		t.Error("Expected no API calls for non-drayage shipment")
	}
	if len(store.posts) != 0 || len(store.missingMbl) != 0 {
		t.Error("Expected no audit rows for non-drayage shipment")
	}
}

func TestForward_MissingMblTrackedIdempotently(t *testing.T) {
	store := newFakeForwarderStore()
	client := &fakeAPIClient{}
	forwarder := NewForwarder(store, client)

	req := drayageCreateRequest()
	req.MasterBillOfLading = "  "

	for i := 0; i < 2; i++ {
		if err := forwarder.Forward(context.Background(), req); err != nil {
			t.Fatalf("Forward %d failed: %v", i, err)
		}
	}

	if len(client.createCalls) != 0 {
		t.Error("Expected no API call without an MBL")
	}
	if len(store.missingMbl) != 1 {
		t.Fatalf("Expected a single missing-MBL row, got %d", len(store.missingMbl))
	}
	entry := store.missingMbl["555"]
	if entry == nil || entry.CustomerName != "Acme Imports" {
		t.Errorf("Expected tracked entry with customer name, got %+v", entry)
	}
}

func TestForward_CreatePostsOncePerReference(t *testing.T) {
	store := newFakeForwarderStore()
	client := &fakeAPIClient{}
	forwarder := NewForwarder(store, client)

	req := drayageCreateRequest()
	if err := forwarder.Forward(context.Background(), req); err != nil {
		t.Fatalf("First forward failed: %v", err)
	}
	if err := forwarder.Forward(context.Background(), req); err != nil {
		t.Fatalf("Second forward failed: %v", err)
	}

	if len(client.createCalls) != 1 {
		t.Fatalf("Expected exactly one create call, got %d", len(client.createCalls))
	}
	if got := client.createCalls[0]; len(got) != 1 || got[0] != "MBLX1" {
		t.Errorf("Expected MBL-only create payload, got %v", got)
	}
	if len(store.posts) != 1 {
		t.Fatalf("Expected a single post row, got %d", len(store.posts))
	}
	for _, post := range store.posts {
		if post.Status != models.CargoesFlowStatusSuccess {
			t.Errorf("Expected success status, got %q", post.Status)
		}
	}
}

func TestForward_CreateFailureRecordedButStillSkipsResend(t *testing.T) {
	store := newFakeForwarderStore()
	client := &fakeAPIClient{response: &APIResponse{
		Result:      "FAILED",
		ErrorDetail: []ErrorDetail{{Field: "mblNumber", Message: "unrecognized carrier"}},
	}}
	forwarder := NewForwarder(store, client)

	req := drayageCreateRequest()
	if err := forwarder.Forward(context.Background(), req); err == nil {
		t.Fatal("Expected error for FAILED response body")
	}

	var post *models.CargoesFlowPost
	for _, p := range store.posts {
		post = p
	}
	if post == nil {
		t.Fatal("Expected a post row recording the failure")
	}
	if post.Status != models.CargoesFlowStatusFailed {
		t.Errorf("Expected failed status, got %q", post.Status)
	}
	if !strings.Contains(post.ErrorMessage, "unrecognized carrier") {
		t.Errorf("Expected error detail in message, got %q", post.ErrorMessage)
	}

	// A failed post still counts as posted; the next CREATE does not resend.
	if err := forwarder.Forward(context.Background(), req); err != nil {
		t.Fatalf("Second forward failed: %v", err)
	}
	if len(client.createCalls) != 1 {
		t.Errorf("Expected no resend after recorded failure, got %d calls", len(client.createCalls))
	}
}

func TestForward_UpdateResolvesShipmentNumber(t *testing.T) {
	store := newFakeForwarderStore()
	store.mirrored["MBLX1"] = &models.CargoesFlowShipment{
		MblNumber:      "MBLX1",
		ShipmentNumber: "CF-1001",
	}
	client := &fakeAPIClient{}
	forwarder := NewForwarder(store, client)

	req := drayageCreateRequest()
	req.Operation = models.WebhookOperationUpdate

	if err := forwarder.Forward(context.Background(), req); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	if len(client.updateCalls) != 1 {
		t.Fatalf("Expected one update call, got %d", len(client.updateCalls))
	}
	form := client.updateCalls[0][0]
	if form.ShipmentNumber != "CF-1001" {
		t.Errorf("Expected resolved shipment number, got %q", form.ShipmentNumber)
	}
	if form.PromisedEtd != "2026-03-01" || form.PromisedEta != "2026-03-14" {
		t.Errorf("Expected date-only values, got etd=%q eta=%q", form.PromisedEtd, form.PromisedEta)
	}

	if len(store.updateLogs) != 1 {
		t.Fatalf("Expected one update log, got %d", len(store.updateLogs))
	}
	if store.updateLogs[0].Status != models.CargoesFlowStatusSuccess {
		t.Errorf("Expected success log, got %q", store.updateLogs[0].Status)
	}
}

func TestForward_UpdateWithoutMappingIsSilentSkip(t *testing.T) {
	store := newFakeForwarderStore()
	client := &fakeAPIClient{}
	forwarder := NewForwarder(store, client)

	req := drayageCreateRequest()
	req.Operation = models.WebhookOperationUpdate

	if err := forwarder.Forward(context.Background(), req); err != nil {
		t.Fatalf("Expected silent skip, got %v", err)
	}
	if len(client.updateCalls) != 0 {
		t.Error("Expected no update call for unmapped MBL")
	}
	if len(store.updateLogs) != 0 {
		t.Error("Expected no update log for unmapped MBL")
	}
}

func TestForward_UpdateTransportErrorLogged(t *testing.T) {
	store := newFakeForwarderStore()
	store.mirrored["MBLX1"] = &models.CargoesFlowShipment{
		MblNumber:      "MBLX1",
		ShipmentNumber: "CF-1001",
	}
	client := &fakeAPIClient{err: errors.New("connection refused")}
	forwarder := NewForwarder(store, client)

	req := drayageCreateRequest()
	req.Operation = models.WebhookOperationUpdate

	if err := forwarder.Forward(context.Background(), req); err == nil {
		t.Fatal("Expected error for transport failure")
	}
	if len(store.updateLogs) != 1 {
		t.Fatalf("Expected failure logged, got %d logs", len(store.updateLogs))
	}
	entry := store.updateLogs[0]
	if entry.Status != models.CargoesFlowStatusFailed || !strings.Contains(entry.ErrorMessage, "connection refused") {
		t.Errorf("Expected failed log with transport error, got %+v", entry)
	}
}

func TestRetryPost_ResendsSamePayloadInPlace(t *testing.T) {
	store := newFakeForwarderStore()
	client := &fakeAPIClient{err: errors.New("timeout")}
	forwarder := NewForwarder(store, client)

	if err := forwarder.Forward(context.Background(), drayageCreateRequest()); err == nil {
		t.Fatal("Expected initial failure")
	}

	var postID uuid.UUID
	for id := range store.posts {
		postID = id
	}

	client.err = nil
	if err := forwarder.RetryPost(context.Background(), postID); err != nil {
		t.Fatalf("RetryPost failed: %v", err)
	}

	if len(client.createCalls) != 2 {
		t.Fatalf("Expected 2 create calls, got %d", len(client.createCalls))
	}
	if client.createCalls[1][0] != "MBLX1" {
		t.Errorf("Expected identical MBL payload on retry, got %v", client.createCalls[1])
	}

	post := store.posts[postID]
	if post.Status != models.CargoesFlowStatusSuccess {
		t.Errorf("Expected post updated in place to success, got %q", post.Status)
	}
	if post.ErrorMessage != "" {
		t.Errorf("Expected cleared error message, got %q", post.ErrorMessage)
	}
	if len(store.posts) != 1 {
		t.Errorf("Expected retry to reuse the same row, got %d rows", len(store.posts))
	}
}

func TestRetryPost_UnknownID(t *testing.T) {
	forwarder := NewForwarder(newFakeForwarderStore(), &fakeAPIClient{})

	err := forwarder.RetryPost(context.Background(), uuid.New())
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDateOnly(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"2026-03-01T08:00:00Z", "2026-03-01"},
		{"2026-03-01T08:00:00", "2026-03-01"},
		{"2026-03-01 08:00:00", "2026-03-01"},
		{"2026-03-01", "2026-03-01"},
		{"", ""},
		{"  ", ""},
		{"next tuesday", ""},
	}

	for _, tt := range tests {
		if got := dateOnly(tt.input); got != tt.expected {
			t.Errorf("dateOnly(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
