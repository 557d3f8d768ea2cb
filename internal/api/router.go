// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/drayline/internal/middleware"
)

// Router assembles the full HTTP surface.
type Router struct {
	handler *Handler
	mw      *ChiMiddleware
}

// NewRouter creates a router from the handler and middleware factory.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	return &Router{handler: handler, mw: mw}
}

// Setup builds the chi mux. Route layout:
//
//	POST /api/webhooks/tms                inbound TAI deliveries (legacy path, no version prefix)
//	POST /api/webhooks/tms/retry/{id}     replay a stored delivery
//	POST /api/cargoes-flow/carriers/sync  manual mirror pull (legacy path)
//	/api/v1/...                           versioned operator API
//	/metrics                              Prometheus exposition
//	/ws                                   live event stream
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(adapt(middleware.RequestID))
	r.Use(adapt(middleware.PrometheusMetrics))
	r.Use(rt.mw.CORS())

	// Inbound webhook routes keep the unversioned paths the TMS was
	// configured with; moving them would break deliveries.
	r.Group(func(r chi.Router) {
		r.Use(rt.mw.RateLimitWebhooks())
		r.Post("/api/webhooks/tms", rt.handler.TMSWebhook)
		r.Post("/api/webhooks/tms/retry/{id}", rt.handler.RetryWebhook)
	})

	r.Group(func(r chi.Router) {
		r.Use(rt.mw.RateLimit())
		r.Post("/api/cargoes-flow/carriers/sync", rt.handler.TriggerCarrierSync)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rt.mw.RateLimitHealth())
			r.Get("/health", rt.handler.Health)
			r.Get("/health/live", rt.handler.HealthLive)
			r.Get("/health/ready", rt.handler.HealthReady)
		})

		r.Group(func(r chi.Router) {
			r.Use(rt.mw.RateLimit())
			r.Use(adapt(middleware.Compression))

			r.Route("/shipments", func(r chi.Router) {
				r.Get("/", rt.handler.ListShipments)
				r.Post("/", rt.handler.CreateShipment)
				r.Get("/{id}", rt.handler.GetShipment)
				r.Put("/{id}", rt.handler.UpdateShipment)
				r.Delete("/{id}", rt.handler.DeleteShipment)
				r.Get("/{id}/milestones", rt.handler.ListMilestones)
				r.Post("/{id}/milestones", rt.handler.CreateMilestone)
			})

			r.Route("/milestones", func(r chi.Router) {
				r.Put("/{id}", rt.handler.UpdateMilestone)
				r.Delete("/{id}", rt.handler.DeleteMilestone)
			})

			r.Route("/webhooks", func(r chi.Router) {
				r.Get("/", rt.handler.ListWebhookLogs)
				r.Get("/{id}", rt.handler.GetWebhookLog)
			})

			r.Route("/cargoes-flow", func(r chi.Router) {
				r.Get("/posts", rt.handler.ListCargoesFlowPosts)
				r.Post("/posts/{id}/retry", rt.handler.RetryCargoesFlowPost)
				r.Get("/shipments", rt.handler.ListCargoesFlowShipments)
				r.Get("/missing-mbl", rt.handler.ListMissingMblShipments)
				r.Delete("/missing-mbl/{id}", rt.handler.ResolveMissingMblShipment)
				r.Post("/risk/run", rt.handler.TriggerRiskBatch)
			})
		})
	})

	r.Get("/ws", rt.handler.WebSocket)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// adapt lifts an http.HandlerFunc middleware into chi's http.Handler shape.
func adapt(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}
