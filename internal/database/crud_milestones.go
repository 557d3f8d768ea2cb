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

	"github.com/google/uuid"

	"github.com/tomtom215/drayline/internal/metrics"
	"github.com/tomtom215/drayline/internal/models"
)

const milestoneColumns = `id, shipment_id, event_type, location,
	timestamp_planned, timestamp_actual, status, created_at`

// CreateMilestone inserts a milestone for a shipment.
func (db *DB) CreateMilestone(ctx context.Context, milestone *models.Milestone) error {
	start := time.Now()

	if milestone.ID == uuid.Nil {
		milestone.ID = uuid.New()
	}
	if milestone.CreatedAt.IsZero() {
		milestone.CreatedAt = time.Now().UTC()
	}
	if milestone.Status == "" {
		milestone.Status = models.MilestoneStatusPending
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO milestones (id, shipment_id, event_type, location,
			timestamp_planned, timestamp_actual, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		milestone.ID.String(), milestone.ShipmentID.String(), milestone.EventType, milestone.Location,
		milestone.TimestampPlanned, milestone.TimestampActual, milestone.Status, milestone.CreatedAt,
	)
	metrics.RecordDBQuery("insert", "milestones", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to create milestone: %w", err)
	}

	return nil
}

// GetMilestone retrieves a milestone by ID.
func (db *DB) GetMilestone(ctx context.Context, id uuid.UUID) (*models.Milestone, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+milestoneColumns+` FROM milestones WHERE id = ?`, id.String())

	milestone, err := scanMilestone(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return milestone, err
}

// ListMilestones retrieves all milestones for a shipment ordered oldest
// first. Status derivation walks this list.
func (db *DB) ListMilestones(ctx context.Context, shipmentID uuid.UUID) ([]models.Milestone, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+milestoneColumns+` FROM milestones WHERE shipment_id = ? ORDER BY created_at ASC`,
		shipmentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	defer closeQuietly(rows)

	milestones := []models.Milestone{}
	for rows.Next() {
		milestone, scanErr := scanMilestone(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		milestones = append(milestones, *milestone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate milestones: %w", err)
	}

	return milestones, nil
}

// UpdateMilestone applies a partial update. Nil fields are untouched.
func (db *DB) UpdateMilestone(ctx context.Context, id uuid.UUID, update *models.MilestoneUpdate) error {
	setClauses := []string{}
	args := []any{}

	if update.EventType != nil {
		setClauses = append(setClauses, "event_type = ?")
		args = append(args, *update.EventType)
	}
	if update.Location != nil {
		setClauses = append(setClauses, "location = ?")
		args = append(args, *update.Location)
	}
	if update.TimestampPlanned != nil {
		setClauses = append(setClauses, "timestamp_planned = ?")
		args = append(args, *update.TimestampPlanned)
	}
	if update.TimestampActual != nil {
		setClauses = append(setClauses, "timestamp_actual = ?")
		args = append(args, *update.TimestampActual)
	}
	if update.Status != nil {
		setClauses = append(setClauses, "status = ?")
		args = append(args, *update.Status)
	}

	if len(setClauses) == 0 {
		return nil
	}

	args = append(args, id.String())
	updateQuery := fmt.Sprintf(`UPDATE milestones SET %s WHERE id = ?`, strings.Join(setClauses, ", "))

	res, err := db.conn.ExecContext(ctx, updateQuery, args...)
	if err != nil {
		return fmt.Errorf("failed to update milestone: %w", err)
	}
	if affected, raErr := res.RowsAffected(); raErr == nil && affected == 0 {
		return ErrNotFound
	}

	return nil
}

// SetMilestoneStatus updates only the status column, used by delay detection
// during status recomputation.
func (db *DB) SetMilestoneStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE milestones SET status = ? WHERE id = ?`, status, id.String())
	if err != nil {
		return fmt.Errorf("failed to set milestone status: %w", err)
	}
	if affected, raErr := res.RowsAffected(); raErr == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMilestone removes a milestone.
func (db *DB) DeleteMilestone(ctx context.Context, id uuid.UUID) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM milestones WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete milestone: %w", err)
	}
	if affected, raErr := res.RowsAffected(); raErr == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMilestone(scanner rowScanner) (*models.Milestone, error) {
	var (
		milestone models.Milestone
		idStr     string
		shipIDStr string
		planned   sql.NullTime
		actual    sql.NullTime
	)

	err := scanner.Scan(
		&idStr, &shipIDStr, &milestone.EventType, &milestone.Location,
		&planned, &actual, &milestone.Status, &milestone.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan milestone: %w", err)
	}

	if milestone.ID, err = parseUUID(idStr); err != nil {
		return nil, fmt.Errorf("failed to parse milestone id: %w", err)
	}
	if milestone.ShipmentID, err = parseUUID(shipIDStr); err != nil {
		return nil, fmt.Errorf("failed to parse milestone shipment id: %w", err)
	}

	if planned.Valid {
		t := planned.Time
		milestone.TimestampPlanned = &t
	}
	if actual.Valid {
		t := actual.Time
		milestone.TimestampActual = &t
	}

	return &milestone, nil
}
