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
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/drayline/internal/metrics"
	"github.com/tomtom215/drayline/internal/models"
)

// CreateCargoesFlowPost records an outbound create-shipment attempt.
func (db *DB) CreateCargoesFlowPost(ctx context.Context, post *models.CargoesFlowPost) error {
	start := time.Now()

	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = post.CreatedAt
	if post.Status == "" {
		post.Status = models.CargoesFlowStatusPending
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO cargoes_flow_posts (id, shipment_reference, mbl_number, status,
			response_data, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID.String(), post.ShipmentReference, post.MblNumber, post.Status,
		rawJSONArg(post.ResponseData), post.ErrorMessage, post.CreatedAt, post.UpdatedAt,
	)
	metrics.RecordDBQuery("insert", "cargoes_flow_posts", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to create cargoes flow post: %w", err)
	}

	return nil
}

// UpdateCargoesFlowPost records the outcome of a create-shipment attempt.
func (db *DB) UpdateCargoesFlowPost(ctx context.Context, id uuid.UUID, status string, responseData []byte, errorMessage string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE cargoes_flow_posts SET status = ?, response_data = ?, error_message = ?, updated_at = ?
		WHERE id = ?`,
		status, rawJSONArg(responseData), errorMessage, time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("failed to update cargoes flow post: %w", err)
	}
	if affected, raErr := res.RowsAffected(); raErr == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetCargoesFlowPost retrieves a post by ID, for the manual retry endpoint.
func (db *DB) GetCargoesFlowPost(ctx context.Context, id uuid.UUID) (*models.CargoesFlowPost, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, shipment_reference, mbl_number, status, response_data, error_message, created_at, updated_at
		FROM cargoes_flow_posts WHERE id = ?`, id.String())

	post, err := scanCargoesFlowPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return post, err
}

// GetCargoesFlowPostByReference retrieves the post for a shipment reference.
// The forwarder checks this before creating so a shipment is posted to
// Cargoes Flow only once. Returns ErrNotFound when no post exists.
func (db *DB) GetCargoesFlowPostByReference(ctx context.Context, reference string) (*models.CargoesFlowPost, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, shipment_reference, mbl_number, status, response_data, error_message, created_at, updated_at
		FROM cargoes_flow_posts WHERE shipment_reference = ? ORDER BY created_at DESC LIMIT 1`, reference)

	post, err := scanCargoesFlowPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return post, err
}

// ListCargoesFlowPosts retrieves posts newest first with the total count.
func (db *DB) ListCargoesFlowPosts(ctx context.Context, limit, offset int) ([]models.CargoesFlowPost, int, error) {
	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM cargoes_flow_posts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count cargoes flow posts: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, shipment_reference, mbl_number, status, response_data, error_message, created_at, updated_at
		FROM cargoes_flow_posts ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cargoes flow posts: %w", err)
	}
	defer closeQuietly(rows)

	posts := []models.CargoesFlowPost{}
	for rows.Next() {
		post, scanErr := scanCargoesFlowPost(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate cargoes flow posts: %w", err)
	}

	return posts, total, nil
}

// CreateCargoesFlowUpdateLog records an outbound update-shipment attempt.
func (db *DB) CreateCargoesFlowUpdateLog(ctx context.Context, entry *models.CargoesFlowUpdateLog) error {
	start := time.Now()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO cargoes_flow_update_logs (id, shipment_number, update_payload, status,
			response_data, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID.String(), entry.ShipmentNumber, rawJSONArg(entry.UpdatePayload), entry.Status,
		rawJSONArg(entry.ResponseData), entry.ErrorMessage, entry.CreatedAt,
	)
	metrics.RecordDBQuery("insert", "cargoes_flow_update_logs", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to create cargoes flow update log: %w", err)
	}

	return nil
}

// UpsertMissingMblShipment records a drayage shipment that arrived without an
// MBL. Idempotent by shipment reference: repeats are no-ops.
func (db *DB) UpsertMissingMblShipment(ctx context.Context, entry *models.MissingMblShipment) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Status == "" {
		entry.Status = "pending"
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO missing_mbl_shipments (id, shipment_reference, shipment_type, customer_name, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (shipment_reference) DO NOTHING`,
		entry.ID.String(), entry.ShipmentReference, entry.ShipmentType, entry.CustomerName, entry.Status, entry.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil
		}
		return fmt.Errorf("failed to upsert missing mbl shipment: %w", err)
	}

	return nil
}

// ListMissingMblShipments retrieves pending missing-MBL rows newest first.
func (db *DB) ListMissingMblShipments(ctx context.Context) ([]models.MissingMblShipment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, shipment_reference, shipment_type, customer_name, status, created_at
		FROM missing_mbl_shipments ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list missing mbl shipments: %w", err)
	}
	defer closeQuietly(rows)

	entries := []models.MissingMblShipment{}
	for rows.Next() {
		var (
			entry models.MissingMblShipment
			idStr string
		)
		if err := rows.Scan(&idStr, &entry.ShipmentReference, &entry.ShipmentType,
			&entry.CustomerName, &entry.Status, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan missing mbl shipment: %w", err)
		}
		if entry.ID, err = parseUUID(idStr); err != nil {
			return nil, fmt.Errorf("failed to parse missing mbl id: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate missing mbl shipments: %w", err)
	}

	return entries, nil
}

// DeleteMissingMblShipment resolves a missing-MBL row.
func (db *DB) DeleteMissingMblShipment(ctx context.Context, id uuid.UUID) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM missing_mbl_shipments WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete missing mbl shipment: %w", err)
	}
	if affected, raErr := res.RowsAffected(); raErr == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

const cargoesFlowShipmentColumns = `id, container_number, mbl_number, shipment_number, status,
	raw_data, created_at, updated_at`

// UpsertCargoesFlowShipment inserts or refreshes one mirrored container row.
// Rows match on container number when present, else on MBL, so repeated sync
// runs refresh in place instead of duplicating.
func (db *DB) UpsertCargoesFlowShipment(ctx context.Context, shipment *models.CargoesFlowShipment) error {
	start := time.Now()
	now := time.Now().UTC()

	var (
		existingID string
		err        error
	)
	switch {
	case shipment.ContainerNumber != "":
		err = db.conn.QueryRowContext(ctx,
			`SELECT id FROM cargoes_flow_shipments WHERE container_number = ? LIMIT 1`,
			shipment.ContainerNumber).Scan(&existingID)
	case shipment.MblNumber != "":
		err = db.conn.QueryRowContext(ctx,
			`SELECT id FROM cargoes_flow_shipments WHERE mbl_number = ? AND container_number = '' LIMIT 1`,
			shipment.MblNumber).Scan(&existingID)
	default:
		err = sql.ErrNoRows
	}

	switch {
	case err == nil:
		shipment.ID, err = parseUUID(existingID)
		if err != nil {
			return fmt.Errorf("failed to parse mirrored shipment id: %w", err)
		}
		shipment.UpdatedAt = now
		_, err = db.conn.ExecContext(ctx,
			`UPDATE cargoes_flow_shipments SET mbl_number = ?, shipment_number = ?, status = ?,
				raw_data = ?, updated_at = ? WHERE id = ?`,
			shipment.MblNumber, shipment.ShipmentNumber, shipment.Status,
			rawJSONArg(shipment.RawData), shipment.UpdatedAt, shipment.ID.String())
		metrics.RecordDBQuery("update", "cargoes_flow_shipments", time.Since(start), err)
		if err != nil {
			return fmt.Errorf("failed to update mirrored shipment: %w", err)
		}
		return nil

	case errors.Is(err, sql.ErrNoRows):
		if shipment.ID == uuid.Nil {
			shipment.ID = uuid.New()
		}
		shipment.CreatedAt = now
		shipment.UpdatedAt = now
		_, err = db.conn.ExecContext(ctx,
			`INSERT INTO cargoes_flow_shipments (id, container_number, mbl_number, shipment_number,
				status, raw_data, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			shipment.ID.String(), shipment.ContainerNumber, shipment.MblNumber, shipment.ShipmentNumber,
			shipment.Status, rawJSONArg(shipment.RawData), shipment.CreatedAt, shipment.UpdatedAt)
		metrics.RecordDBQuery("insert", "cargoes_flow_shipments", time.Since(start), err)
		if err != nil {
			return fmt.Errorf("failed to insert mirrored shipment: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("failed to look up mirrored shipment: %w", err)
	}
}

// GetCargoesFlowShipmentByMbl retrieves the first mirrored row carrying the
// MBL. The forwarder uses this to resolve the external shipment number for
// update calls; ErrNotFound means the MBL is not yet mapped.
func (db *DB) GetCargoesFlowShipmentByMbl(ctx context.Context, mblNumber string) (*models.CargoesFlowShipment, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+cargoesFlowShipmentColumns+` FROM cargoes_flow_shipments
		WHERE mbl_number = ? ORDER BY created_at ASC LIMIT 1`, mblNumber)

	shipment, err := scanCargoesFlowShipment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return shipment, err
}

// ListCargoesFlowShipments retrieves mirrored rows ordered by MBL so callers
// can group containers into visual shipments, with the total count.
func (db *DB) ListCargoesFlowShipments(ctx context.Context, limit, offset int) ([]models.CargoesFlowShipment, int, error) {
	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM cargoes_flow_shipments`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count mirrored shipments: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+cargoesFlowShipmentColumns+` FROM cargoes_flow_shipments
		ORDER BY mbl_number ASC, container_number ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list mirrored shipments: %w", err)
	}
	defer closeQuietly(rows)

	shipments := []models.CargoesFlowShipment{}
	for rows.Next() {
		shipment, scanErr := scanCargoesFlowShipment(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}
		shipments = append(shipments, *shipment)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate mirrored shipments: %w", err)
	}

	return shipments, total, nil
}

// ListCargoesFlowShipmentsPage pages the mirror in stable id order for the
// risk batch. Returns an empty slice past the end.
func (db *DB) ListCargoesFlowShipmentsPage(ctx context.Context, limit, offset int) ([]models.CargoesFlowShipment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+cargoesFlowShipmentColumns+` FROM cargoes_flow_shipments
		ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to page mirrored shipments: %w", err)
	}
	defer closeQuietly(rows)

	shipments := []models.CargoesFlowShipment{}
	for rows.Next() {
		shipment, scanErr := scanCargoesFlowShipment(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		shipments = append(shipments, *shipment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mirrored shipments: %w", err)
	}

	return shipments, nil
}

// UpdateCargoesFlowShipmentRawData writes the assessed provider document
// back to a mirrored row. The risk fields live inside raw_data.
func (db *DB) UpdateCargoesFlowShipmentRawData(ctx context.Context, id uuid.UUID, rawData []byte) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE cargoes_flow_shipments SET raw_data = ?, updated_at = ? WHERE id = ?`,
		rawJSONArg(rawData), time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("failed to update mirrored shipment raw data: %w", err)
	}
	if affected, raErr := res.RowsAffected(); raErr == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCargoesFlowPost(scanner rowScanner) (*models.CargoesFlowPost, error) {
	var (
		post     models.CargoesFlowPost
		idStr    string
		response sql.NullString
	)

	err := scanner.Scan(&idStr, &post.ShipmentReference, &post.MblNumber, &post.Status,
		&response, &post.ErrorMessage, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan cargoes flow post: %w", err)
	}

	if post.ID, err = parseUUID(idStr); err != nil {
		return nil, fmt.Errorf("failed to parse cargoes flow post id: %w", err)
	}
	if response.Valid {
		post.ResponseData = []byte(response.String)
	}

	return &post, nil
}

func scanCargoesFlowShipment(scanner rowScanner) (*models.CargoesFlowShipment, error) {
	var (
		shipment models.CargoesFlowShipment
		idStr    string
		rawData  sql.NullString
	)

	err := scanner.Scan(&idStr, &shipment.ContainerNumber, &shipment.MblNumber,
		&shipment.ShipmentNumber, &shipment.Status, &rawData,
		&shipment.CreatedAt, &shipment.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan mirrored shipment: %w", err)
	}

	if shipment.ID, err = parseUUID(idStr); err != nil {
		return nil, fmt.Errorf("failed to parse mirrored shipment id: %w", err)
	}
	if rawData.Valid {
		shipment.RawData = []byte(rawData.String)
	}

	return &shipment, nil
}
