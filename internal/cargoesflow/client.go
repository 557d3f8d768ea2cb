// Drayline - Freight Shipment Tracking and TMS Webhook Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/drayline

/*
client.go - Cargoes Flow REST API Client

This file implements a REST API client for the DP World Cargoes Flow public
tracking API. It provides shipment creation by MBL, shipment updates, tracked
shipment listing for the mirror poller, and document upload.

API Reference: https://connect.cargoes.com/flow/api/public_tracking/v1
*/

package cargoesflow

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/drayline/internal/config"
)

// resultFailed is the body-level failure marker: Cargoes Flow returns HTTP
// 200 with result "FAILED" on validation errors, so status codes alone do
// not signal success.
const resultFailed = "FAILED"

// Client defines the Cargoes Flow API operations. Both HTTPClient and
// BreakerClient implement this interface.
type Client interface {
	CreateShipments(ctx context.Context, mblNumbers []string) (*APIResponse, error)
	UpdateShipments(ctx context.Context, forms []ShipmentUpdateForm) (*APIResponse, error)
	ListShipments(ctx context.Context, page, pageSize int) ([]TrackedShipment, error)
	UploadDocument(ctx context.Context, shipmentNumber, filename string, content io.Reader) (*APIResponse, error)
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)

// APIResponse is the common Cargoes Flow response envelope.
type APIResponse struct {
	Result      string        `json:"result"`
	Message     string        `json:"message"`
	ErrorDetail []ErrorDetail `json:"errorDetail"`
}

// ErrorDetail is one body-level error entry.
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Failed reports whether the response body signals failure regardless of the
// HTTP status code.
func (r *APIResponse) Failed() bool {
	return r != nil && strings.EqualFold(r.Result, resultFailed)
}

// ErrorMessage flattens the body-level error details into one string.
func (r *APIResponse) ErrorMessage() string {
	if r == nil {
		return ""
	}
	parts := []string{}
	if r.Message != "" {
		parts = append(parts, r.Message)
	}
	for _, detail := range r.ErrorDetail {
		if detail.Field != "" {
			parts = append(parts, detail.Field+": "+detail.Message)
		} else {
			parts = append(parts, detail.Message)
		}
	}
	return strings.Join(parts, "; ")
}

// ShipmentUpdateForm carries the present-only update fields for one
// shipment, keyed by the external shipment number.
type ShipmentUpdateForm struct {
	ShipmentNumber string `json:"shipmentNumber"`
	Shipper        string `json:"shipper,omitempty"`
	Consignee      string `json:"consignee,omitempty"`
	PromisedEtd    string `json:"promisedEtd,omitempty"`
	PromisedEta    string `json:"promisedEta,omitempty"`
}

// TrackedShipment is one container-level record from the tracked-shipments
// listing. RawData preserves the provider document verbatim for the mirror.
type TrackedShipment struct {
	ShipmentNumber  string          `json:"shipmentNumber"`
	ContainerNumber string          `json:"containerNumber"`
	MblNumber       string          `json:"mblNumber"`
	Status          string          `json:"status"`
	RawData         json.RawMessage `json:"-"`
}

// mblForm is the MBL-only identifying payload for shipment creation.
type mblForm struct {
	MblNumber string `json:"mblNumber"`
}

type createRequest struct {
	FormData   []mblForm `json:"formData"`
	UploadType string    `json:"uploadType"`
}

type updateRequest struct {
	FormData []ShipmentUpdateForm `json:"formData"`
}

// HTTPClient provides access to the Cargoes Flow REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	orgToken   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPClient creates a Cargoes Flow API client from configuration.
// Credentials travel in the X-DPW-ApiKey and X-DPW-Org-Token headers on
// every request.
func NewHTTPClient(cfg *config.CargoesFlowConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &HTTPClient{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		orgToken: cfg.OrgToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
	}
}

// CreateShipments registers shipments for tracking by MBL number only
// (uploadType FORM_BY_MBL_NUMBER).
func (c *HTTPClient) CreateShipments(ctx context.Context, mblNumbers []string) (*APIResponse, error) {
	forms := make([]mblForm, 0, len(mblNumbers))
	for _, mbl := range mblNumbers {
		forms = append(forms, mblForm{MblNumber: mbl})
	}

	body := createRequest{FormData: forms, UploadType: "FORM_BY_MBL_NUMBER"}
	return c.doJSON(ctx, http.MethodPost, "/createShipments", body)
}

// UpdateShipments pushes present-only field updates for already-tracked
// shipments.
func (c *HTTPClient) UpdateShipments(ctx context.Context, forms []ShipmentUpdateForm) (*APIResponse, error) {
	return c.doJSON(ctx, http.MethodPut, "/updateShipments", updateRequest{FormData: forms})
}

// ListShipments retrieves one page of tracked shipments for the mirror
// poller. Each entry keeps the raw provider document alongside the parsed
// identifying fields.
func (c *HTTPClient) ListShipments(ctx context.Context, page, pageSize int) ([]TrackedShipment, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/shipments?page=" + strconv.Itoa(page) + "&pageSize=" + strconv.Itoa(pageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build list request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cargoes flow list request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read list response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cargoes flow list returned status %d: %s", resp.StatusCode, truncate(payload, 200))
	}

	// Decode twice: once for the identifying fields, once to keep each
	// document verbatim.
	var docs []json.RawMessage
	if err := json.Unmarshal(payload, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode tracked shipments: %w", err)
	}

	shipments := make([]TrackedShipment, 0, len(docs))
	for _, doc := range docs {
		var shipment TrackedShipment
		if err := json.Unmarshal(doc, &shipment); err != nil {
			return nil, fmt.Errorf("failed to decode tracked shipment: %w", err)
		}
		shipment.RawData = doc
		shipments = append(shipments, shipment)
	}

	return shipments, nil
}

// UploadDocument attaches a file to a tracked shipment via multipart upload.
func (c *HTTPClient) UploadDocument(ctx context.Context, shipmentNumber, filename string, content io.Reader) (*APIResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("files", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to copy document content: %w", err)
	}
	if err := writer.WriteField("shipmentNumber", shipmentNumber); err != nil {
		return nil, fmt.Errorf("failed to write shipment number field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/uploadDocument", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.execute(req)
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any) (*APIResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	return c.execute(req)
}

func (c *HTTPClient) execute(req *http.Request) (*APIResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cargoes flow request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("cargoes flow returned status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	apiResp := &APIResponse{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, apiResp); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return apiResp, nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("X-DPW-ApiKey", c.apiKey)
	req.Header.Set("X-DPW-Org-Token", c.orgToken)
	req.Header.Set("Accept", "application/json")
}

// wait blocks on the outbound rate limiter when one is configured.
func (c *HTTPClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return nil
}

func truncate(body []byte, max int) string {
	s := string(body)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
