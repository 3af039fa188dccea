// Package upload pushes exported workouts to a running Mapty server.
package upload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Result is the server's answer to an import.
type Result struct {
	Workouts int `json:"workouts"`
}

// Client sends data to the Mapty server over HTTP.
type Client struct {
	serverURL  string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a new HTTP client for the Mapty server.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff: time.Second,
	}
}

// SendSnapshot POSTs a workouts snapshot to the server's import endpoint.
// Retries up to 3 times with exponential backoff on transport errors and 5xx
// responses; a 4xx is returned at once.
func (c *Client) SendSnapshot(snapshot []byte, merge bool) (*Result, error) {
	u := c.serverURL + "/api/v1/import"
	if merge {
		u += "?merge=true"
	}

	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			time.Sleep(c.backoff << uint(attempt-1))
		}

		resp, err := c.httpClient.Post(u, "application/json", bytes.NewReader(snapshot))
		if err != nil {
			lastErr = err
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			var res Result
			if err := json.Unmarshal(body, &res); err != nil {
				return nil, fmt.Errorf("decoding import result: %w", err)
			}
			return &res, nil
		case resp.StatusCode < http.StatusInternalServerError:
			return nil, fmt.Errorf("import rejected (status %d): %s", resp.StatusCode, body)
		}
		lastErr = fmt.Errorf("import failed (status %d): %s", resp.StatusCode, body)
	}

	return nil, fmt.Errorf("after 3 attempts: %w", lastErr)
}
