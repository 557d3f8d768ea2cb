// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package models

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Cargoes Flow call outcomes.
const (
	CargoesFlowStatusPending = "pending"
	CargoesFlowStatusSuccess = "success"
	CargoesFlowStatusFailed  = "failed"
)

// CargoesFlowPost is the audit row for one attempted external "create shipment"
// call, keyed by shipment reference and MBL. At most one post exists per
// shipment reference under normal operation; the forwarder checks before
// creating a new one so a shipment is posted to Cargoes Flow only once even
// though it may be updated many times.
type CargoesFlowPost struct {
	ID                uuid.UUID       `json:"id"`
	ShipmentReference string          `json:"shipmentReference"`
	MblNumber         string          `json:"mblNumber"`
	Status            string          `json:"status"`
	ResponseData      json.RawMessage `json:"responseData,omitempty"`
	ErrorMessage      string          `json:"errorMessage,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// CargoesFlowUpdateLog is the audit row for one attempted external
// "update shipment" call, keyed by the external system's shipment number.
type CargoesFlowUpdateLog struct {
	ID             uuid.UUID       `json:"id"`
	ShipmentNumber string          `json:"shipmentNumber"`
	UpdatePayload  json.RawMessage `json:"updatePayload,omitempty"`
	Status         string          `json:"status"`
	ResponseData   json.RawMessage `json:"responseData,omitempty"`
	ErrorMessage   string          `json:"errorMessage,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// MissingMblShipment tracks a drayage shipment received without an MBL,
// pending manual remediation. Rows are idempotent by shipment reference and
// deleted once resolved.
type MissingMblShipment struct {
	ID                uuid.UUID `json:"id"`
	ShipmentReference string    `json:"shipmentReference"`
	ShipmentType      string    `json:"shipmentType"`
	CustomerName      string    `json:"customerName,omitempty"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
}

// CargoesFlowShipment is one denormalized row mirrored from the external
// tracking API, one per container. RawData preserves the provider's document
// verbatim (containers array, rail info, terminal info, risk fields); the
// pipeline reads it only through the accessors in internal/cargoesflow.
//
// One visual "shipment" may span multiple container rows sharing an MBL.
type CargoesFlowShipment struct {
	ID              uuid.UUID       `json:"id"`
	ContainerNumber string          `json:"containerNumber,omitempty"`
	MblNumber       string          `json:"mblNumber,omitempty"`
	ShipmentNumber  string          `json:"shipmentNumber,omitempty"`
	Status          string          `json:"status,omitempty"`
	RawData         json.RawMessage `json:"rawData,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Risk levels produced by the risk assessor.
const (
	RiskLevelLow      = "low"
	RiskLevelMedium   = "medium"
	RiskLevelHigh     = "high"
	RiskLevelCritical = "critical"
)

// RiskAssessment is the result of scoring one mirrored shipment against the
// timeliness rules. Score is the sum of all applicable rules; Level is the
// thresholded classification; Reasons explains each rule that fired.
type RiskAssessment struct {
	Score      int       `json:"riskScore"`
	Level      string    `json:"riskLevel"`
	Reasons    []string  `json:"riskReasons"`
	AssessedAt time.Time `json:"riskAssessedAt"`
}
