// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

// Package models defines the domain records shared across Drayline:
// shipments and milestones (TMS-origin), webhook audit logs, the Cargoes Flow
// forwarding audit surface, and the externally mirrored shipment rows.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Coarse shipment statuses derived from milestone history.
// Free-text TMS event types are classified into these by the status mapper.
const (
	ShipmentStatusPlanned    = "planned"
	ShipmentStatusInTransit  = "in-transit"
	ShipmentStatusAtTerminal = "at-terminal"
	ShipmentStatusArrived    = "arrived"
)

// Milestone statuses.
const (
	MilestoneStatusPending   = "pending"
	MilestoneStatusCompleted = "completed"
	MilestoneStatusDelayed   = "delayed"
)

// Shipment is the canonical TMS-origin shipment record.
//
// ReferenceNumber is the business key: it is unique, derived from the TMS
// shipment id (or generated when absent), and drives the CREATE/UPDATE
// decision for every inbound webhook.
//
// The date fields (ETD/ETA/ATD/ATA) are stored as the strings the TMS sent.
// The TMS mixes plain dates, local datetimes, and zoned timestamps; the
// record preserves them verbatim and parsing happens at the point of use.
type Shipment struct {
	ID                 uuid.UUID `json:"id"`
	ReferenceNumber    string    `json:"referenceNumber"`
	BookingNumber      string    `json:"bookingNumber,omitempty"`
	MasterBillOfLading string    `json:"masterBillOfLading,omitempty"`
	Shipper            string    `json:"shipper,omitempty"`
	Consignee          string    `json:"consignee,omitempty"`
	OriginPort         string    `json:"originPort,omitempty"`
	DestinationPort    string    `json:"destinationPort,omitempty"`
	ETD                string    `json:"etd,omitempty"`
	ETA                string    `json:"eta,omitempty"`
	ATD                string    `json:"atd,omitempty"`
	ATA                string    `json:"ata,omitempty"`
	Status             string    `json:"status"`
	Carrier            string    `json:"carrier,omitempty"`
	OfficeName         string    `json:"officeName,omitempty"`

	// SalesRepNames is nil (not empty) when the TMS sent no reps; access
	// filtering matches by exact name against this list.
	SalesRepNames []string `json:"salesRepNames,omitempty"`

	// Source records where the shipment originated: "tai-webhook" or "manual".
	Source string `json:"source,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ShipmentUpdate carries a partial shipment mutation. Nil fields are left
// untouched; set fields overwrite, including setting empty strings, so the
// record always reflects the latest webhook as sent.
type ShipmentUpdate struct {
	BookingNumber      *string
	MasterBillOfLading *string
	Shipper            *string
	Consignee          *string
	OriginPort         *string
	DestinationPort    *string
	ETD                *string
	ETA                *string
	ATD                *string
	ATA                *string
	Status             *string
	Carrier            *string
	OfficeName         *string
	SalesRepNames      []string
	SetSalesRepNames   bool
}

// Milestone is a single tracked event in a shipment's lifecycle.
//
// Invariant: Status is MilestoneStatusDelayed iff TimestampActual exists and
// is later than TimestampPlanned. Delay detection re-derives this on every
// status recomputation.
type Milestone struct {
	ID               uuid.UUID  `json:"id"`
	ShipmentID       uuid.UUID  `json:"shipmentId"`
	EventType        string     `json:"eventType"`
	Location         string     `json:"location,omitempty"`
	TimestampPlanned *time.Time `json:"timestampPlanned,omitempty"`
	TimestampActual  *time.Time `json:"timestampActual,omitempty"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// MilestoneUpdate carries a partial milestone mutation.
type MilestoneUpdate struct {
	EventType        *string
	Location         *string
	TimestampPlanned *time.Time
	TimestampActual  *time.Time
	Status           *string
}
