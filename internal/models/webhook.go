// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package models

import (
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Webhook operations, decided once at receipt time and never recomputed.
const (
	WebhookOperationCreate = "CREATE"
	WebhookOperationUpdate = "UPDATE"
)

// WebhookLog is the durable audit row for one inbound TMS webhook delivery.
//
// The row is persisted before any business logic runs, so a crash mid-processing
// still leaves a retryable record with a nil ProcessedAt. Rows are immutable
// except for ProcessedAt (set on success) and ErrorMessage (set on failure).
type WebhookLog struct {
	ID              uuid.UUID       `json:"id"`
	EventType       string          `json:"eventType"`
	Operation       string          `json:"operation"`
	ShipmentID      string          `json:"shipmentId,omitempty"`
	ContainerNumber string          `json:"containerNumber,omitempty"`
	Status          string          `json:"status,omitempty"`
	RawPayload      json.RawMessage `json:"rawPayload,omitempty"`
	ProcessedAt     *time.Time      `json:"processedAt,omitempty"`
	ErrorMessage    string          `json:"errorMessage,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// FlexString unmarshals either a JSON string or a JSON number into a string.
// The TMS is inconsistent about numeric identifiers: shipmentId arrives as a
// number from some TAI tenants and as a string from others.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the underlying string value.
func (f FlexString) String() string { return string(f) }

// TMSWebhookPayload is the inbound TAI webhook body.
//
// All fields are optional on the wire; processing treats absent values as
// empty rather than rejecting the payload.
type TMSWebhookPayload struct {
	ShipmentType             string               `json:"shipmentType"`
	ShipmentID               FlexString           `json:"shipmentId"`
	Status                   string               `json:"status"`
	Customer                 *TMSCustomer         `json:"customer"`
	ShipmentReferenceNumbers []TMSReferenceNumber `json:"shipmentReferenceNumbers"`
	Stops                    []TMSStop            `json:"stops"`
	Commodities              []TMSCommodity       `json:"commodities"`
	CarrierList              []TMSCarrier         `json:"carrierList"`
}

// TMSCustomer is the customer block of a TAI webhook.
type TMSCustomer struct {
	Name string `json:"name"`
	// StaffName and Office attribute the shipment inside the brokerage.
	StaffName string `json:"staffName"`
	// SalesRepNames is a comma-separated list as sent by TAI.
	SalesRepNames string `json:"salesRepNames"`
	Office        string `json:"office"`
}

// TMSReferenceNumber is one typed reference entry.
// The array is unconstrained in length and order; lookups are first-match-wins.
type TMSReferenceNumber struct {
	ReferenceType string     `json:"referenceType"`
	Value         FlexString `json:"value"`
}

// Stop types the normalizer selects on.
const (
	StopTypeFirstPickup = "First Pickup"
	StopTypeLastDrop    = "Last Drop"
)

// TMSStop is one pickup/drop stop record.
type TMSStop struct {
	StopType                string `json:"stopType"`
	CompanyName             string `json:"companyName"`
	City                    string `json:"city"`
	State                   string `json:"state"`
	EstimatedReadyDateTime  string `json:"estimatedReadyDateTime"`
	ActualDepartureDateTime string `json:"actualDepartureDateTime"`
	ActualArrivalDateTime   string `json:"actualArrivalDateTime"`
}

// TMSCommodity is one commodity line.
type TMSCommodity struct {
	Description string  `json:"description"`
	WeightTotal float64 `json:"weightTotal"`
	PiecesTotal int     `json:"piecesTotal"`
}

// TMSCarrier is one carrier entry.
type TMSCarrier struct {
	Name string `json:"name"`
}

// GenerateReferenceNumber produces the fallback business key used when a
// webhook carries no Shipment Id reference: TAI-<unix-millis>.
func GenerateReferenceNumber(now time.Time) string {
	return "TAI-" + strconv.FormatInt(now.UnixMilli(), 10)
}
