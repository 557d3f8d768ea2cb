// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/drayline/internal/database/query"
	"github.com/tomtom215/drayline/internal/metrics"
	"github.com/tomtom215/drayline/internal/models"
)

// shipmentColumns is the SELECT column list shared by all shipment reads.
const shipmentColumns = `id, reference_number, booking_number, master_bill_of_lading,
	shipper, consignee, origin_port, destination_port,
	etd, eta, atd, ata, status, carrier, office_name,
	sales_rep_names, source, created_at, updated_at`

// CreateShipment inserts a new shipment. The reference_number unique
// constraint makes concurrent creates for the same reference collapse: the
// loser gets ErrDuplicateReference and the caller re-reads the winner's row.
func (db *DB) CreateShipment(ctx context.Context, shipment *models.Shipment) error {
	start := time.Now()

	if shipment.ID == uuid.Nil {
		shipment.ID = uuid.New()
	}
	now := time.Now().UTC()
	if shipment.CreatedAt.IsZero() {
		shipment.CreatedAt = now
	}
	shipment.UpdatedAt = shipment.CreatedAt
	if shipment.Status == "" {
		shipment.Status = models.ShipmentStatusPlanned
	}

	repsJSON, err := marshalSalesReps(shipment.SalesRepNames)
	if err != nil {
		return fmt.Errorf("failed to encode sales rep names: %w", err)
	}

	insert := `INSERT INTO shipments (
		id, reference_number, booking_number, master_bill_of_lading,
		shipper, consignee, origin_port, destination_port,
		etd, eta, atd, ata, status, carrier, office_name,
		sales_rep_names, source, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (reference_number) DO NOTHING`

	res, err := db.conn.ExecContext(ctx, insert,
		shipment.ID.String(), shipment.ReferenceNumber, shipment.BookingNumber, shipment.MasterBillOfLading,
		shipment.Shipper, shipment.Consignee, shipment.OriginPort, shipment.DestinationPort,
		shipment.ETD, shipment.ETA, shipment.ATD, shipment.ATA, shipment.Status, shipment.Carrier, shipment.OfficeName,
		repsJSON, shipment.Source, shipment.CreatedAt, shipment.UpdatedAt,
	)
	metrics.RecordDBQuery("insert", "shipments", time.Since(start), err)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateReference
		}
		return fmt.Errorf("failed to create shipment: %w", err)
	}

	if affected, raErr := res.RowsAffected(); raErr == nil && affected == 0 {
		return ErrDuplicateReference
	}

	return nil
}

// GetShipment retrieves a shipment by internal ID.
func (db *DB) GetShipment(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE id = ?`, id.String())
	return scanShipment(row)
}

// GetShipmentByReference retrieves a shipment by its business key.
// Returns ErrNotFound when no shipment carries the reference; the webhook
// processor uses this lookup to decide CREATE vs UPDATE.
func (db *DB) GetShipmentByReference(ctx context.Context, reference string) (*models.Shipment, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE reference_number = ?`, reference)
	shipment, err := scanShipment(row)
	metrics.RecordDBQuery("select", "shipments", time.Since(start), ignoreNotFound(err))
	return shipment, err
}

// ShipmentFilter narrows ListShipments results. Zero values are skipped.
type ShipmentFilter struct {
	Status  string
	Carrier string
	Source  string
	// Search matches reference_number, booking_number, or master_bill_of_lading.
	Search string
	Limit  int
	Offset int
}

// ListShipments retrieves shipments matching the filter, newest first,
// along with the total count before pagination.
func (db *DB) ListShipments(ctx context.Context, filter ShipmentFilter) ([]models.Shipment, int, error) {
	wb := query.NewWhereBuilder()
	wb.AddStatus(filter.Status)
	wb.AddCarrier(filter.Carrier)
	wb.AddSource(filter.Source)
	wb.AddReferenceSearch(filter.Search)
	whereClause, args := wb.Build()

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM shipments WHERE %s`, whereClause)
	if err := db.conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count shipments: %w", err)
	}

	listQuery := fmt.Sprintf(`SELECT %s FROM shipments WHERE %s ORDER BY updated_at DESC LIMIT ? OFFSET ?`,
		shipmentColumns, whereClause)
	listArgs := append(args, filter.Limit, filter.Offset)

	rows, err := db.conn.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list shipments: %w", err)
	}
	defer closeQuietly(rows)

	shipments := []models.Shipment{}
	for rows.Next() {
		shipment, scanErr := scanShipmentRow(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}
		shipments = append(shipments, *shipment)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate shipments: %w", err)
	}

	return shipments, total, nil
}

// UpdateShipment applies a partial update. Nil fields are untouched; set
// fields overwrite, including empty strings, so the record reflects the
// latest webhook as sent. Last write wins.
func (db *DB) UpdateShipment(ctx context.Context, id uuid.UUID, update *models.ShipmentUpdate) error {
	start := time.Now()

	setClauses := []string{}
	args := []any{}

	addSet := func(column string, value *string) {
		if value != nil {
			setClauses = append(setClauses, column+" = ?")
			args = append(args, *value)
		}
	}

	addSet("booking_number", update.BookingNumber)
	addSet("master_bill_of_lading", update.MasterBillOfLading)
	addSet("shipper", update.Shipper)
	addSet("consignee", update.Consignee)
	addSet("origin_port", update.OriginPort)
	addSet("destination_port", update.DestinationPort)
	addSet("etd", update.ETD)
	addSet("eta", update.ETA)
	addSet("atd", update.ATD)
	addSet("ata", update.ATA)
	addSet("status", update.Status)
	addSet("carrier", update.Carrier)
	addSet("office_name", update.OfficeName)

	if update.SetSalesRepNames {
		repsJSON, err := marshalSalesReps(update.SalesRepNames)
		if err != nil {
			return fmt.Errorf("failed to encode sales rep names: %w", err)
		}
		setClauses = append(setClauses, "sales_rep_names = ?")
		args = append(args, repsJSON)
	}

	if len(setClauses) == 0 {
		return nil
	}

	setClauses = append(setClauses, "updated_at = ?")
	args = append(args, time.Now().UTC())
	args = append(args, id.String())

	updateQuery := fmt.Sprintf(`UPDATE shipments SET %s WHERE id = ?`, strings.Join(setClauses, ", "))
	res, err := db.conn.ExecContext(ctx, updateQuery, args...)
	metrics.RecordDBQuery("update", "shipments", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to update shipment: %w", err)
	}
	if affected, raErr := res.RowsAffected(); raErr == nil && affected == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateShipmentStatus sets only the coarse status, used by the recompute
// path after milestone changes.
func (db *DB) UpdateShipmentStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE shipments SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("failed to update shipment status: %w", err)
	}
	if affected, raErr := res.RowsAffected(); raErr == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteShipment removes a shipment and its milestones.
func (db *DB) DeleteShipment(ctx context.Context, id uuid.UUID) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM milestones WHERE shipment_id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete shipment milestones: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM shipments WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete shipment: %w", err)
	}
	if affected, raErr := res.RowsAffected(); raErr == nil && affected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// rowScanner abstracts sql.Row and sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanShipment(row *sql.Row) (*models.Shipment, error) {
	shipment, err := scanShipmentRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return shipment, err
}

func scanShipmentRow(scanner rowScanner) (*models.Shipment, error) {
	var (
		shipment models.Shipment
		idStr    string
		reps     sql.NullString
	)

	err := scanner.Scan(
		&idStr, &shipment.ReferenceNumber, &shipment.BookingNumber, &shipment.MasterBillOfLading,
		&shipment.Shipper, &shipment.Consignee, &shipment.OriginPort, &shipment.DestinationPort,
		&shipment.ETD, &shipment.ETA, &shipment.ATD, &shipment.ATA,
		&shipment.Status, &shipment.Carrier, &shipment.OfficeName,
		&reps, &shipment.Source, &shipment.CreatedAt, &shipment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan shipment: %w", err)
	}

	shipment.ID, err = parseUUID(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse shipment id: %w", err)
	}

	if reps.Valid && reps.String != "" {
		if err := json.Unmarshal([]byte(reps.String), &shipment.SalesRepNames); err != nil {
			return nil, fmt.Errorf("failed to decode sales rep names: %w", err)
		}
	}

	return &shipment, nil
}

// marshalSalesReps encodes the list as a JSON array, NULL when nil so
// "no reps sent" stays distinct from "empty list sent".
func marshalSalesReps(reps []string) (any, error) {
	if reps == nil {
		return nil, nil
	}
	data, err := json.Marshal(reps)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// ignoreNotFound keeps expected lookup misses out of the error metrics.
func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
