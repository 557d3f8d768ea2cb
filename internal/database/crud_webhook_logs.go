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

	"github.com/tomtom215/drayline/internal/database/query"
	"github.com/tomtom215/drayline/internal/metrics"
	"github.com/tomtom215/drayline/internal/models"
)

const webhookLogColumns = `id, event_type, operation, shipment_id, container_number,
	status, raw_payload, processed_at, error_message, created_at`

// CreateWebhookLog persists the audit row for an inbound delivery. This runs
// before any business logic so a crash mid-processing still leaves a
// retryable record.
func (db *DB) CreateWebhookLog(ctx context.Context, entry *models.WebhookLog) error {
	start := time.Now()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO webhook_logs (id, event_type, operation, shipment_id, container_number,
			status, raw_payload, processed_at, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID.String(), entry.EventType, entry.Operation, entry.ShipmentID, entry.ContainerNumber,
		entry.Status, rawJSONArg(entry.RawPayload), entry.ProcessedAt, entry.ErrorMessage, entry.CreatedAt,
	)
	metrics.RecordDBQuery("insert", "webhook_logs", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to create webhook log: %w", err)
	}

	return nil
}

// GetWebhookLog retrieves a webhook log by ID. The retry endpoint replays its
// raw_payload through the identical processing path.
func (db *DB) GetWebhookLog(ctx context.Context, id uuid.UUID) (*models.WebhookLog, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+webhookLogColumns+` FROM webhook_logs WHERE id = ?`, id.String())

	entry, err := scanWebhookLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return entry, err
}

// ListWebhookLogs retrieves webhook logs newest first, with the total count
// before pagination. Operation filters to CREATE or UPDATE when non-empty.
func (db *DB) ListWebhookLogs(ctx context.Context, operation string, limit, offset int) ([]models.WebhookLog, int, error) {
	where, args := query.NewWhereBuilder().AddOperation(operation).Build()

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM webhook_logs WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count webhook logs: %w", err)
	}

	listArgs := append(args, limit, offset)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+webhookLogColumns+` FROM webhook_logs WHERE `+where+
			` ORDER BY created_at DESC LIMIT ? OFFSET ?`, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list webhook logs: %w", err)
	}
	defer closeQuietly(rows)

	entries := []models.WebhookLog{}
	for rows.Next() {
		entry, scanErr := scanWebhookLog(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate webhook logs: %w", err)
	}

	return entries, total, nil
}

// MarkWebhookProcessed records successful processing.
func (db *DB) MarkWebhookProcessed(ctx context.Context, id uuid.UUID) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE webhook_logs SET processed_at = ?, error_message = '' WHERE id = ?`,
		time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("failed to mark webhook processed: %w", err)
	}
	if affected, raErr := res.RowsAffected(); raErr == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkWebhookFailed records a processing failure, leaving processed_at NULL
// so the row stays retryable.
func (db *DB) MarkWebhookFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE webhook_logs SET error_message = ? WHERE id = ?`,
		errorMessage, id.String())
	if err != nil {
		return fmt.Errorf("failed to mark webhook failed: %w", err)
	}
	if affected, raErr := res.RowsAffected(); raErr == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanWebhookLog(scanner rowScanner) (*models.WebhookLog, error) {
	var (
		entry     models.WebhookLog
		idStr     string
		payload   sql.NullString
		processed sql.NullTime
	)

	err := scanner.Scan(
		&idStr, &entry.EventType, &entry.Operation, &entry.ShipmentID, &entry.ContainerNumber,
		&entry.Status, &payload, &processed, &entry.ErrorMessage, &entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan webhook log: %w", err)
	}

	if entry.ID, err = parseUUID(idStr); err != nil {
		return nil, fmt.Errorf("failed to parse webhook log id: %w", err)
	}
	if payload.Valid {
		entry.RawPayload = []byte(payload.String)
	}
	if processed.Valid {
		t := processed.Time
		entry.ProcessedAt = &t
	}

	return &entry, nil
}

// rawJSONArg stores raw JSON as TEXT, NULL when empty.
func rawJSONArg(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}
