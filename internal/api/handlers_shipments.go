// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/drayline/internal/database"
	"github.com/tomtom215/drayline/internal/models"
)

// shipmentCreateRequest is the body for manually creating a shipment outside
// the webhook pipeline.
type shipmentCreateRequest struct {
	ReferenceNumber    string   `json:"referenceNumber" validate:"required,max=100"`
	BookingNumber      string   `json:"bookingNumber" validate:"max=100"`
	MasterBillOfLading string   `json:"masterBillOfLading" validate:"max=100"`
	Shipper            string   `json:"shipper" validate:"max=500"`
	Consignee          string   `json:"consignee" validate:"max=500"`
	OriginPort         string   `json:"originPort" validate:"max=200"`
	DestinationPort    string   `json:"destinationPort" validate:"max=200"`
	ETD                string   `json:"etd" validate:"omitempty,shipdate"`
	ETA                string   `json:"eta" validate:"omitempty,shipdate"`
	Status             string   `json:"status" validate:"omitempty,oneof=planned in-transit at-terminal arrived"`
	Carrier            string   `json:"carrier" validate:"max=200"`
	OfficeName         string   `json:"officeName" validate:"max=200"`
	SalesRepNames      []string `json:"salesRepNames" validate:"max=50,dive,max=200"`
}

// shipmentUpdateRequest carries a partial update. Absent fields stay
// untouched; present fields overwrite, including explicit empty strings.
type shipmentUpdateRequest struct {
	BookingNumber      *string  `json:"bookingNumber" validate:"omitempty,max=100"`
	MasterBillOfLading *string  `json:"masterBillOfLading" validate:"omitempty,max=100"`
	Shipper            *string  `json:"shipper" validate:"omitempty,max=500"`
	Consignee          *string  `json:"consignee" validate:"omitempty,max=500"`
	OriginPort         *string  `json:"originPort" validate:"omitempty,max=200"`
	DestinationPort    *string  `json:"destinationPort" validate:"omitempty,max=200"`
	ETD                *string  `json:"etd" validate:"omitempty,shipdate"`
	ETA                *string  `json:"eta" validate:"omitempty,shipdate"`
	ATD                *string  `json:"atd" validate:"omitempty,shipdate"`
	ATA                *string  `json:"ata" validate:"omitempty,shipdate"`
	Status             *string  `json:"status" validate:"omitempty,oneof=planned in-transit at-terminal arrived"`
	Carrier            *string  `json:"carrier" validate:"omitempty,max=200"`
	OfficeName         *string  `json:"officeName" validate:"omitempty,max=200"`
	SalesRepNames      []string `json:"salesRepNames" validate:"omitempty,max=50,dive,max=200"`
}

// ListShipments handles GET /api/v1/shipments with filtering and pagination.
func (h *Handler) ListShipments(w http.ResponseWriter, r *http.Request) {
	limit, offset := h.pagination(r)
	q := r.URL.Query()

	filter := database.ShipmentFilter{
		Status:  q.Get("status"),
		Carrier: q.Get("carrier"),
		Source:  q.Get("source"),
		Search:  q.Get("search"),
		Limit:   limit,
		Offset:  offset,
	}

	shipments, total, err := h.db.ListShipments(r.Context(), filter)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "query_error", "Failed to list shipments")
		return
	}

	respondSuccess(w, http.StatusOK, listEnvelope{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		Results: shipments,
	})
}

// GetShipment handles GET /api/v1/shipments/{id}.
func (h *Handler) GetShipment(w http.ResponseWriter, r *http.Request) {
	shipment, ok := h.loadShipment(w, r)
	if !ok {
		return
	}
	respondSuccess(w, http.StatusOK, shipment)
}

// CreateShipment handles POST /api/v1/shipments for manual entry. The
// reference number is the business key; a duplicate is rejected with 409.
func (h *Handler) CreateShipment(w http.ResponseWriter, r *http.Request) {
	var req shipmentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	shipment := &models.Shipment{
		ReferenceNumber:    req.ReferenceNumber,
		BookingNumber:      req.BookingNumber,
		MasterBillOfLading: req.MasterBillOfLading,
		Shipper:            req.Shipper,
		Consignee:          req.Consignee,
		OriginPort:         req.OriginPort,
		DestinationPort:    req.DestinationPort,
		ETD:                req.ETD,
		ETA:                req.ETA,
		Status:             req.Status,
		Carrier:            req.Carrier,
		OfficeName:         req.OfficeName,
		SalesRepNames:      req.SalesRepNames,
		Source:             "manual",
	}
	if err := h.db.CreateShipment(r.Context(), shipment); err != nil {
		// The insert is the arbiter: two concurrent creates race past any
		// pre-check, so the unique constraint decides who wins.
		if errors.Is(err, database.ErrDuplicateReference) {
			respondError(w, r, http.StatusConflict, "duplicate_reference", "A shipment with this reference number already exists")
			return
		}
		respondError(w, r, http.StatusInternalServerError, "create_error", "Failed to create shipment")
		return
	}

	respondSuccess(w, http.StatusCreated, shipment)
}

// UpdateShipment handles PUT /api/v1/shipments/{id}.
func (h *Handler) UpdateShipment(w http.ResponseWriter, r *http.Request) {
	shipment, ok := h.loadShipment(w, r)
	if !ok {
		return
	}

	var req shipmentUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON")
		return
	}
	if !validateRequest(w, r, &req) {
		return
	}

	update := &models.ShipmentUpdate{
		BookingNumber:      req.BookingNumber,
		MasterBillOfLading: req.MasterBillOfLading,
		Shipper:            req.Shipper,
		Consignee:          req.Consignee,
		OriginPort:         req.OriginPort,
		DestinationPort:    req.DestinationPort,
		ETD:                req.ETD,
		ETA:                req.ETA,
		ATD:                req.ATD,
		ATA:                req.ATA,
		Status:             req.Status,
		Carrier:            req.Carrier,
		OfficeName:         req.OfficeName,
	}
	if req.SalesRepNames != nil {
		update.SalesRepNames = req.SalesRepNames
		update.SetSalesRepNames = true
	}

	if err := h.db.UpdateShipment(r.Context(), shipment.ID, update); err != nil {
		respondError(w, r, http.StatusInternalServerError, "update_error", "Failed to update shipment")
		return
	}

	updated, err := h.db.GetShipment(r.Context(), shipment.ID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "query_error", "Failed to reload shipment")
		return
	}
	respondSuccess(w, http.StatusOK, updated)
}

// DeleteShipment handles DELETE /api/v1/shipments/{id}. Milestones are
// removed in the same transaction.
func (h *Handler) DeleteShipment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_id", "Shipment ID must be a valid UUID")
		return
	}

	err = h.db.DeleteShipment(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, "not_found", "Shipment not found")
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "delete_error", "Failed to delete shipment")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// loadShipment resolves the {id} URL parameter to a shipment, writing the
// error response itself when resolution fails.
func (h *Handler) loadShipment(w http.ResponseWriter, r *http.Request) (*models.Shipment, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_id", "Shipment ID must be a valid UUID")
		return nil, false
	}

	shipment, err := h.db.GetShipment(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, "not_found", "Shipment not found")
		return nil, false
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "query_error", "Failed to load shipment")
		return nil, false
	}
	return shipment, true
}
