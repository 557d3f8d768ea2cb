// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

// Package events bridges webhook processing to the live monitor feed. The
// pipeline publishes onto an in-process Watermill pub/sub; the bridge
// subscribes and pushes each event to the websocket hub. Publishing is
// fire-and-forget so a slow monitor can never stall webhook handling.
package events

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/drayline/internal/logging"
	"github.com/tomtom215/drayline/internal/tms"
)

// Topics carried by the bus.
const (
	TopicWebhookProcessed = "webhooks.processed"
	TopicShipmentUpdated  = "shipments.updated"
)

// WebhookProcessedEvent announces one successfully processed webhook.
type WebhookProcessedEvent struct {
	WebhookID       uuid.UUID `json:"webhookId"`
	Operation       string    `json:"operation"`
	ReferenceNumber string    `json:"referenceNumber"`
	Timestamp       time.Time `json:"timestamp"`
}

// ShipmentUpdatedEvent announces a shipment whose row changed.
type ShipmentUpdatedEvent struct {
	ShipmentID      uuid.UUID `json:"shipmentId"`
	ReferenceNumber string    `json:"referenceNumber"`
	Status          string    `json:"status"`
	Timestamp       time.Time `json:"timestamp"`
}

// Bus is the in-process pub/sub. It implements tms.Publisher.
type Bus struct {
	pubsub *gochannel.GoChannel
	now    func() time.Time
}

var _ tms.Publisher = (*Bus)(nil)

// NewBus creates the bus. Messages are not persisted; a subscriber that
// connects late misses earlier events, which is fine for a live feed.
func NewBus() *Bus {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, watermillLogger{})
	return &Bus{pubsub: pubsub, now: time.Now}
}

// PublishWebhookProcessed emits a processed-webhook event. Failures are
// logged and dropped.
func (b *Bus) PublishWebhookProcessed(webhookID uuid.UUID, operation, reference string) {
	b.publish(TopicWebhookProcessed, WebhookProcessedEvent{
		WebhookID:       webhookID,
		Operation:       operation,
		ReferenceNumber: reference,
		Timestamp:       b.now().UTC(),
	})
}

// PublishShipmentUpdated emits a shipment-changed event.
func (b *Bus) PublishShipmentUpdated(shipmentID uuid.UUID, reference, status string) {
	b.publish(TopicShipmentUpdated, ShipmentUpdatedEvent{
		ShipmentID:      shipmentID,
		ReferenceNumber: reference,
		Status:          status,
		Timestamp:       b.now().UTC(),
	})
}

func (b *Bus) publish(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Warn().Err(err).Str("topic", topic).Msg("Failed to encode event")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		logging.Warn().Err(err).Str("topic", topic).Msg("Failed to publish event")
	}
}

// Subscribe returns the message stream for one topic.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Close shuts down the pub/sub and closes all subscriber channels.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// watermillLogger adapts Watermill's logging onto zerolog.
type watermillLogger struct {
	fields watermill.LogFields
}

func (l watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	logging.Error().Err(err).Fields(map[string]any(l.fields.Add(fields))).Msg(msg)
}

func (l watermillLogger) Info(msg string, fields watermill.LogFields) {
	logging.Debug().Fields(map[string]any(l.fields.Add(fields))).Msg(msg)
}

func (l watermillLogger) Debug(msg string, fields watermill.LogFields) {
	logging.Debug().Fields(map[string]any(l.fields.Add(fields))).Msg(msg)
}

func (l watermillLogger) Trace(msg string, fields watermill.LogFields) {
	logging.Debug().Fields(map[string]any(l.fields.Add(fields))).Msg(msg)
}

func (l watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return watermillLogger{fields: l.fields.Add(fields)}
}
