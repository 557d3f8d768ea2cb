// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/drayline/internal/logging"
)

// Broadcaster is the websocket hub surface the bridge pushes to.
type Broadcaster interface {
	BroadcastJSON(messageType string, data interface{})
}

// Monitor feed message types.
const (
	MessageWebhookProcessed = "webhook_processed"
	MessageShipmentUpdated  = "shipment_updated"
)

// Bridge drains the bus into the websocket hub. It implements
// suture.Service.
type Bridge struct {
	bus *Bus
	hub Broadcaster
}

// NewBridge wires the bus to the hub.
func NewBridge(bus *Bus, hub Broadcaster) *Bridge {
	return &Bridge{bus: bus, hub: hub}
}

// Serve subscribes to both topics and forwards until the context is
// canceled.
func (b *Bridge) Serve(ctx context.Context) error {
	webhooks, err := b.bus.Subscribe(ctx, TopicWebhookProcessed)
	if err != nil {
		return err
	}
	shipments, err := b.bus.Subscribe(ctx, TopicShipmentUpdated)
	if err != nil {
		return err
	}

	logging.Info().Msg("Starting event bridge")

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Event bridge stopping")
			return ctx.Err()
		case msg, ok := <-webhooks:
			if !ok {
				return nil
			}
			b.forward(msg, MessageWebhookProcessed, &WebhookProcessedEvent{})
		case msg, ok := <-shipments:
			if !ok {
				return nil
			}
			b.forward(msg, MessageShipmentUpdated, &ShipmentUpdatedEvent{})
		}
	}
}

// forward decodes one message into the given event shape and broadcasts it.
// Undecodable messages are acked and dropped; redelivery would not fix them.
func (b *Bridge) forward(msg *message.Message, messageType string, event any) {
	if err := json.Unmarshal(msg.Payload, event); err != nil {
		logging.Warn().Err(err).Str("message_type", messageType).Msg("Dropping undecodable event")
		msg.Ack()
		return
	}
	b.hub.BroadcastJSON(messageType, event)
	msg.Ack()
}

// String names the service in supervisor logs.
func (b *Bridge) String() string {
	return "event-bridge"
}
