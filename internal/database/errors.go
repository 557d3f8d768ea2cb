// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package database

import "errors"

// Sentinel errors returned by the data access layer. Callers use errors.Is to
// map these to HTTP responses.
var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicateReference = errors.New("shipment with this reference number already exists")
)
