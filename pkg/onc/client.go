// Package onc fetches raw device log records from an Oceans 3.0 style
// rawdata service.
package onc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL is the public rawdata endpoint.
const DefaultBaseURL = "https://data.oceannetworks.ca/api/rawdata"

// RawRecord is one line of a device's raw log.
type RawRecord struct {
	SampleTime string `json:"sampleTime"`
	LineType   string `json:"lineType"`
	RawData    string `json:"rawData"`
}

// PageNext is the pagination continuation of a page. A continuation without
// a dateFrom carries no usable cursor and is treated as absent by consumers.
type PageNext struct {
	DateFrom string `json:"dateFrom"`
}

// PageResult is one page of raw records in sampleTime order.
type PageResult struct {
	Data []RawRecord `json:"data"`
	Next *PageNext   `json:"next"`
}

// FetchOptions select the page to fetch.
type FetchOptions struct {
	// Cursor is the dateFrom value to page from; empty omits the parameter.
	Cursor string

	// RowLimit caps the number of records in the page. Values below 1 are
	// raised to 1.
	RowLimit int

	// GetLatest asks the service for the newest records instead of the
	// oldest ones at or after Cursor.
	GetLatest bool
}

// Client fetches raw record pages for a single device.
// It is safe for concurrent use by multiple goroutines.
type Client struct {
	baseURL    string
	deviceCode string
	token      string
	httpClient *http.Client
}

// NewClient creates a rawdata client for one device. All three values are
// required so that a misconfigured host fails at startup rather than on the
// first fetch. A default timeout of 30 seconds is used for HTTP requests.
func NewClient(baseURL, deviceCode, token string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if deviceCode == "" {
		return nil, fmt.Errorf("device code cannot be empty")
	}
	if token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	return &Client{
		baseURL:    baseURL,
		deviceCode: deviceCode,
		token:      token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// NewClientWithTimeout creates a new client with a custom HTTP timeout.
func NewClientWithTimeout(baseURL, deviceCode, token string, timeout time.Duration) (*Client, error) {
	c, err := NewClient(baseURL, deviceCode, token)
	if err != nil {
		return nil, err
	}
	c.httpClient.Timeout = timeout
	return c, nil
}

// Fetch retrieves one page of raw records. Any failure (transport error,
// non-200 status, undecodable body) comes back as an error the caller may
// treat as transient and retry.
func (c *Client) Fetch(ctx context.Context, opts FetchOptions) (*PageResult, error) {
	if opts.RowLimit < 1 {
		opts.RowLimit = 1
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	query := u.Query()
	query.Set("deviceCode", c.deviceCode)
	if opts.Cursor != "" {
		query.Set("dateFrom", opts.Cursor)
	}
	query.Set("rowLimit", strconv.Itoa(opts.RowLimit))
	query.Set("outputFormat", "Object")
	query.Set("getLatest", strconv.FormatBool(opts.GetLatest))
	query.Set("token", c.token)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error echoes the full request URL, token included; keep
		// only the underlying cause.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rawdata service returned status %d", resp.StatusCode)
	}

	var page PageResult
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &page, nil
}
