// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

// Package tms implements the inbound TMS webhook pipeline: reference
// extraction, shipment normalization, the CREATE/UPDATE upsert decision,
// milestone derivation, and shipment status classification.
package tms

import (
	"strings"

	"github.com/tomtom215/drayline/internal/models"
)

// Reference types the extractor recognizes. The TAI reference array is
// unconstrained in length and order; unknown types are ignored silently.
const (
	refTypeContainer  = "container number"
	refTypeMAWB       = "mawb number"
	refTypeMBL        = "mbl number"
	refTypeShipmentID = "shipment id"
	refTypeShipperRef = "shipper reference number"
)

// References holds the values extracted from a webhook's reference-number
// array. Absent types stay empty; extraction never fails.
type References struct {
	ContainerNumber  string
	MblNumber        string
	ShipmentID       string
	ShipperReference string
}

// ExtractReferences performs a best-effort lookup over typed reference pairs.
// First match wins when multiple entries share a type. "MAWB Number" and
// "MBL Number" both feed MblNumber since TAI uses either label for the
// master bill.
func ExtractReferences(refs []models.TMSReferenceNumber) References {
	var out References

	for _, ref := range refs {
		value := strings.TrimSpace(ref.Value.String())
		if value == "" {
			continue
		}

		switch strings.ToLower(strings.TrimSpace(ref.ReferenceType)) {
		case refTypeContainer:
			if out.ContainerNumber == "" {
				out.ContainerNumber = value
			}
		case refTypeMAWB, refTypeMBL:
			if out.MblNumber == "" {
				out.MblNumber = value
			}
		case refTypeShipmentID:
			if out.ShipmentID == "" {
				out.ShipmentID = value
			}
		case refTypeShipperRef:
			if out.ShipperReference == "" {
				out.ShipperReference = value
			}
		}
	}

	return out
}
