// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

package cargoesflow

import (
	"context"
	"errors"
	"io"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/drayline/internal/logging"
	"github.com/tomtom215/drayline/internal/metrics"
)

// BreakerClient wraps a Client with circuit breaker protection. The webhook
// path waits on Cargoes Flow calls synchronously, so when the provider is
// down the breaker fails fast instead of holding every webhook request open
// for the full timeout.
//
// DETERMINISM NOTE: the breaker uses real time for its interval and timeout
// calculations. Tests should mock the underlying client, not the breaker.
type BreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// Ensure BreakerClient implements Client
var _ Client = (*BreakerClient)(nil)

// NewBreakerClient wraps client with a circuit breaker.
// Configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func NewBreakerClient(client Client) *BreakerClient {
	cbName := "cargoes-flow-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &BreakerClient{
		client: client,
		cb:     cb,
		name:   cbName,
	}
}

// CreateShipments delegates through the breaker.
func (b *BreakerClient) CreateShipments(ctx context.Context, mblNumbers []string) (*APIResponse, error) {
	return b.execute(func() (any, error) {
		return b.client.CreateShipments(ctx, mblNumbers)
	})
}

// UpdateShipments delegates through the breaker.
func (b *BreakerClient) UpdateShipments(ctx context.Context, forms []ShipmentUpdateForm) (*APIResponse, error) {
	return b.execute(func() (any, error) {
		return b.client.UpdateShipments(ctx, forms)
	})
}

// ListShipments delegates through the breaker.
func (b *BreakerClient) ListShipments(ctx context.Context, page, pageSize int) ([]TrackedShipment, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return b.client.ListShipments(ctx, page, pageSize)
	})
	b.record(err)
	if err != nil {
		return nil, err
	}
	shipments, _ := result.([]TrackedShipment)
	return shipments, nil
}

// UploadDocument delegates through the breaker.
func (b *BreakerClient) UploadDocument(ctx context.Context, shipmentNumber, filename string, content io.Reader) (*APIResponse, error) {
	return b.execute(func() (any, error) {
		return b.client.UploadDocument(ctx, shipmentNumber, filename, content)
	})
}

func (b *BreakerClient) execute(fn func() (any, error)) (*APIResponse, error) {
	result, err := b.cb.Execute(fn)
	b.record(err)
	if err != nil {
		return nil, err
	}
	resp, _ := result.(*APIResponse)
	return resp, nil
}

func (b *BreakerClient) record(err error) {
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
