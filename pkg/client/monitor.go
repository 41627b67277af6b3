// Package client provides HTTP clients for communicating with dtstail
// services.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/HatiCode/dtstail/pkg/profile"
	"github.com/HatiCode/dtstail/pkg/storage"
)

// MonitorClient is an HTTP client for fetching decoded frame snapshots from
// the monitor service. It is safe for concurrent use by multiple goroutines.
type MonitorClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewMonitorClient creates a new client for the monitor service.
// The baseURL should include the scheme and host (e.g., "http://localhost:8085").
// A default timeout of 5 seconds is used for HTTP requests.
func NewMonitorClient(baseURL string) *MonitorClient {
	return &MonitorClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// NewMonitorClientWithTimeout creates a new client with a custom timeout.
func NewMonitorClientWithTimeout(baseURL string, timeout time.Duration) *MonitorClient {
	return &MonitorClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FrameResponse is the JSON body of GET /frame/current.
type FrameResponse struct {
	DeviceCode string          `json:"deviceCode"`
	SampleTime string          `json:"sampleTime"`
	ReceivedAt time.Time       `json:"receivedAt"`
	Summary    profile.Summary `json:"summary"`
}

// FrameResult contains the snapshot and metadata about staleness.
type FrameResult struct {
	Snapshot storage.Snapshot
	Stale    bool // true if the X-Dtstail-Stale header was present
}

// GetFrame fetches the latest decoded frame snapshot for a device.
// Returns the snapshot and whether the monitor marked it as stale.
//
// The context can be used to cancel the request or set deadlines.
// If no frame has been decoded yet for the device, returns an error.
func (c *MonitorClient) GetFrame(ctx context.Context, deviceCode string) (*FrameResult, error) {
	if deviceCode == "" {
		return nil, fmt.Errorf("device code cannot be empty")
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = "/frame/current"
	query := u.Query()
	query.Set("device", deviceCode)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("no frame decoded yet for device %q", deviceCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	stale := resp.Header.Get("X-Dtstail-Stale") == "true"

	var body FrameResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &FrameResult{
		Snapshot: storage.Snapshot{
			DeviceCode: body.DeviceCode,
			SampleTime: body.SampleTime,
			ReceivedAt: body.ReceivedAt,
			Summary:    body.Summary,
		},
		Stale: stale,
	}, nil
}

// IsStale checks if a snapshot is older than the specified duration, based
// on when the monitor received it.
func IsStale(snapshot storage.Snapshot, staleAfter time.Duration) bool {
	return time.Since(snapshot.ReceivedAt) > staleAfter
}
