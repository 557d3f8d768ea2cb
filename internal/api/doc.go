// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

/*
Package api provides the HTTP surface: webhook ingestion, shipment and
milestone CRUD, the Cargoes Flow operations endpoints, health probes, the
Prometheus endpoint, and the websocket monitor feed.

Handler methods are split across files by area:

  - handlers.go: Handler struct, constructor, websocket upgrade
  - handlers_webhooks.go: TMS webhook ingestion, retry, log listing
  - handlers_shipments.go: shipment CRUD and listing
  - handlers_milestones.go: milestone CRUD with status recompute
  - handlers_cargoesflow.go: post audit, retry, mirror, missing-MBL, sync
  - handlers_health.go: health and readiness probes

Routing is Chi with go-chi/cors and go-chi/httprate. Operator endpoints use
the models.APIResponse envelope; the webhook endpoints keep the flat response
contract the TMS expects.
*/
package api
