// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

/*
database_schema.go - Database Schema Management

This file manages the DuckDB database schema including table creation
and index management.

Tables:
  - shipments: Canonical TMS-origin shipment records keyed by the unique
    reference_number business key
  - milestones: Lifecycle events per shipment, drive status derivation
  - webhook_logs: Durable audit of every inbound TMS webhook delivery,
    written before any business logic runs
  - cargoes_flow_posts: Audit of outbound "create shipment" calls to
    Cargoes Flow, at most one per shipment reference
  - cargoes_flow_update_logs: Audit of outbound "update shipment" calls
  - missing_mbl_shipments: Drayage shipments received without an MBL,
    pending manual remediation
  - cargoes_flow_shipments: Denormalized mirror of the external tracking
    API, one row per container, raw provider document preserved

Schema Strategy:
All columns are defined in the initial CREATE TABLE statement. This provides
a single source of truth for the complete schema and faster startup.

Date fields on shipments (etd/eta/atd/ata) are TEXT: the TMS mixes plain
dates, local datetimes, and zoned timestamps, and the pipeline preserves
them verbatim. Parsing happens at the point of use.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// tableCreationQueries returns the table creation SQL statements
func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS shipments (
			id UUID PRIMARY KEY,
			reference_number TEXT NOT NULL UNIQUE,
			booking_number TEXT DEFAULT '',
			master_bill_of_lading TEXT DEFAULT '',
			shipper TEXT DEFAULT '',
			consignee TEXT DEFAULT '',
			origin_port TEXT DEFAULT '',
			destination_port TEXT DEFAULT '',
			etd TEXT DEFAULT '',
			eta TEXT DEFAULT '',
			atd TEXT DEFAULT '',
			ata TEXT DEFAULT '',
			status TEXT NOT NULL DEFAULT 'planned',
			carrier TEXT DEFAULT '',
			office_name TEXT DEFAULT '',
			sales_rep_names TEXT,
			source TEXT DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS milestones (
			id UUID PRIMARY KEY,
			shipment_id UUID NOT NULL,
			event_type TEXT NOT NULL,
			location TEXT DEFAULT '',
			timestamp_planned TIMESTAMP,
			timestamp_actual TIMESTAMP,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP NOT NULL
		)`,

		// operation is decided once at receipt time and never recomputed.
		// raw_payload keeps the delivery verbatim so a retry replays the
		// identical bytes through the processing pipeline.
		`CREATE TABLE IF NOT EXISTS webhook_logs (
			id UUID PRIMARY KEY,
			event_type TEXT NOT NULL,
			operation TEXT NOT NULL,
			shipment_id TEXT DEFAULT '',
			container_number TEXT DEFAULT '',
			status TEXT DEFAULT '',
			raw_payload TEXT,
			processed_at TIMESTAMP,
			error_message TEXT DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS cargoes_flow_posts (
			id UUID PRIMARY KEY,
			shipment_reference TEXT NOT NULL,
			mbl_number TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			response_data TEXT,
			error_message TEXT DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS cargoes_flow_update_logs (
			id UUID PRIMARY KEY,
			shipment_number TEXT NOT NULL,
			update_payload TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			response_data TEXT,
			error_message TEXT DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS missing_mbl_shipments (
			id UUID PRIMARY KEY,
			shipment_reference TEXT NOT NULL UNIQUE,
			shipment_type TEXT DEFAULT '',
			customer_name TEXT DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP NOT NULL
		)`,

		// raw_data carries the provider document verbatim, including the
		// risk fields the assessor writes back (riskLevel, riskScore,
		// riskReasons, riskAssessedAt).
		`CREATE TABLE IF NOT EXISTS cargoes_flow_shipments (
			id UUID PRIMARY KEY,
			container_number TEXT DEFAULT '',
			mbl_number TEXT DEFAULT '',
			shipment_number TEXT DEFAULT '',
			status TEXT DEFAULT '',
			raw_data TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	}
}

// createIndexes creates indexes for common query patterns
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_shipments_reference ON shipments(reference_number)`,
		`CREATE INDEX IF NOT EXISTS idx_shipments_mbl ON shipments(master_bill_of_lading)`,
		`CREATE INDEX IF NOT EXISTS idx_shipments_status ON shipments(status)`,
		`CREATE INDEX IF NOT EXISTS idx_milestones_shipment ON milestones(shipment_id)`,
		`CREATE INDEX IF NOT EXISTS idx_webhook_logs_created ON webhook_logs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_cf_posts_reference ON cargoes_flow_posts(shipment_reference)`,
		`CREATE INDEX IF NOT EXISTS idx_cf_update_logs_number ON cargoes_flow_update_logs(shipment_number)`,
		`CREATE INDEX IF NOT EXISTS idx_cf_shipments_container ON cargoes_flow_shipments(container_number)`,
		`CREATE INDEX IF NOT EXISTS idx_cf_shipments_mbl ON cargoes_flow_shipments(mbl_number)`,
	}

	for _, idx := range indexes {
		if _, err := db.conn.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", idx, err)
		}
	}

	return nil
}
