// Package api is the HTTP client for the HomeTier REST endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/martinsuchenak/hometier/internal/model"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidFormat = errors.New("invalid export format")
)

// Export formats accepted by ExportInventory
var exportFormats = map[string]string{
	"csv":    "csv",
	"json":   "json",
	"report": "json",
}

// Error is a non-success response from the server
type Error struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("request failed: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("request failed: %s", e.Status)
}

// Is lets errors.Is match ErrNotFound on 404 responses
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// statusResponse is the {"status": ..., "message": ...} envelope of action endpoints
type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Client is a thin HTTP client for the HomeTier API
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the given base URL (e.g. http://host:5000)
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListDevices handles GET /api/devices
func (c *Client) ListDevices(ctx context.Context) ([]model.Device, error) {
	var devices []model.Device
	if err := c.getJSON(ctx, "/api/devices", &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// DeviceTimeline handles GET /api/devices/timeline
func (c *Client) DeviceTimeline(ctx context.Context, days int) ([]model.TimelinePoint, error) {
	var resp struct {
		statusResponse
		Timeline []model.TimelinePoint `json:"timeline"`
	}
	if err := c.getJSON(ctx, "/api/devices/timeline?days="+strconv.Itoa(days), &resp); err != nil {
		return nil, err
	}
	if resp.Status == "error" {
		return nil, &Error{StatusCode: http.StatusOK, Status: "200 OK", Message: resp.Message}
	}
	return resp.Timeline, nil
}

// IgnoreDevice handles POST /api/devices/{id}/ignore
func (c *Client) IgnoreDevice(ctx context.Context, id int) error {
	return c.postAction(ctx, fmt.Sprintf("/api/devices/%d/ignore", id), nil, nil)
}

// UnignoreDevice handles POST /api/devices/{id}/unignore
func (c *Client) UnignoreDevice(ctx context.Context, id int) error {
	return c.postAction(ctx, fmt.Sprintf("/api/devices/%d/unignore", id), nil, nil)
}

// BulkIgnore handles POST /api/devices/bulk/ignore
func (c *Client) BulkIgnore(ctx context.Context, ids []int) (model.BulkResult, error) {
	return c.bulk(ctx, "/api/devices/bulk/ignore", "device_ids", ids)
}

// BulkUnignore handles POST /api/devices/bulk/unignore
func (c *Client) BulkUnignore(ctx context.Context, ids []int) (model.BulkResult, error) {
	return c.bulk(ctx, "/api/devices/bulk/unignore", "device_ids", ids)
}

// BulkDeleteInventory handles POST /api/inventory/bulk/delete; the server soft deletes
func (c *Client) BulkDeleteInventory(ctx context.Context, ids []int) (model.BulkResult, error) {
	return c.bulk(ctx, "/api/inventory/bulk/delete", "item_ids", ids)
}

func (c *Client) bulk(ctx context.Context, path, field string, ids []int) (model.BulkResult, error) {
	var result model.BulkResult
	if len(ids) == 0 {
		return result, fmt.Errorf("no ids specified")
	}
	body := map[string][]int{field: ids}
	err := c.postAction(ctx, path, body, &result)
	return result, err
}

// ListInventory handles GET /api/inventory
func (c *Client) ListInventory(ctx context.Context) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	if err := c.getJSON(ctx, "/api/inventory", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Export is a downloaded inventory export
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportInventory handles GET /api/inventory/export/{format}; the filename comes from
// the Content-Disposition header.
func (c *Client) ExportInventory(ctx context.Context, format string) (*Export, error) {
	format = strings.ToLower(format)
	ext, ok := exportFormats[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, format)
	}

	res, err := c.do(ctx, http.MethodGet, "/api/inventory/export/"+url.PathEscape(format), nil, "")
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}

	export := &Export{
		Filename:    "inventory_export." + ext,
		ContentType: res.Header.Get("Content-Type"),
		Data:        data,
	}
	if _, params, err := mime.ParseMediaType(res.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		export.Filename = params["filename"]
	}
	return export, nil
}

// ListCategories handles GET /api/categories
func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	var resp struct {
		statusResponse
		Categories []model.Category `json:"categories"`
	}
	if err := c.getJSON(ctx, "/api/categories", &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

// DashboardStats handles GET /api/dashboard/stats
func (c *Client) DashboardStats(ctx context.Context) (model.DashboardStats, error) {
	var stats model.DashboardStats
	err := c.getJSON(ctx, "/api/dashboard/stats", &stats)
	return stats, err
}

// ScanningStats handles GET /api/scanning/stats
func (c *Client) ScanningStats(ctx context.Context) (model.ScanningStats, error) {
	var stats model.ScanningStats
	err := c.getJSON(ctx, "/api/scanning/stats", &stats)
	return stats, err
}

// TriggerScan handles POST /api/scan; progress arrives over the realtime channel
func (c *Client) TriggerScan(ctx context.Context) (string, error) {
	var resp statusResponse
	if err := c.postAction(ctx, "/api/scan", nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// postAction posts body as JSON and fails on a {"status":"error"} reply even when the
// HTTP status is 2xx
func (c *Client) postAction(ctx context.Context, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	res, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), "application/json")
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var status statusResponse
	if err := json.Unmarshal(raw, &status); err == nil && status.Status == "error" {
		return &Error{StatusCode: res.StatusCode, Status: res.Status, Message: status.Message}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	res, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	defer res.Body.Close()

	decoder := json.NewDecoder(res.Body)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// do sends the request and turns non-2xx responses into *Error
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		defer res.Body.Close()
		raw, _ := io.ReadAll(res.Body)
		apiErr := &Error{StatusCode: res.StatusCode, Status: res.Status}

		var status statusResponse
		if err := json.Unmarshal(raw, &status); err == nil && status.Message != "" {
			apiErr.Message = status.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return nil, apiErr
	}
	return res, nil
}
