package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/mapty/internal/tracker"
	"github.com/claude/mapty/internal/workout"
)

// HTTPClient implements DataSource by calling the Mapty REST API.
// Used for stdio MCP mode where the binary runs next to the MCP client and
// the workouts live in a running server (optionally reached over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("httpclient: %s: %w", path, tracker.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func projectionParams(p tracker.Projection, limit int) url.Values {
	v := url.Values{}
	if p.Kind != "" {
		v.Set("kind", string(p.Kind))
	}
	if p.Field != "" {
		v.Set("sort", string(p.Field))
	}
	if p.Direction != tracker.Ascending {
		v.Set("dir", p.Direction.String())
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	return v
}

func (c *HTTPClient) ListWorkouts(ctx context.Context, p tracker.Projection, limit int) ([]workout.Workout, error) {
	body, err := c.get(ctx, "/api/v1/workouts", projectionParams(p, limit))
	if err != nil {
		return nil, err
	}

	var records []workout.Workout
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("httpclient: decode workouts: %w", err)
	}
	return records, nil
}

func (c *HTTPClient) GetWorkout(ctx context.Context, id string) (*workout.Workout, error) {
	body, err := c.get(ctx, "/api/v1/workouts/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var w workout.Workout
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("httpclient: decode workout: %w", err)
	}
	return &w, nil
}

func (c *HTTPClient) Summary(ctx context.Context) ([]workout.KindSummary, error) {
	body, err := c.get(ctx, "/api/v1/summary", nil)
	if err != nil {
		return nil, err
	}

	var summary []workout.KindSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("httpclient: decode summary: %w", err)
	}
	return summary, nil
}
