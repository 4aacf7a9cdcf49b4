// fedistash/mastodon/client.go
package mastodon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is a minimal Mastodon REST API client covering the public
// timeline endpoint this application syncs from.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for one server base URL. The access token is
// optional; public timelines are readable without one on most servers.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// TimelineQuery selects one page of a timeline. MinID fetches statuses
// strictly newer than the given id, MaxID strictly older. At most one of
// the two should be set; with neither, the most recent page is returned.
type TimelineQuery struct {
	Limit int
	MinID string
	MaxID string
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote returned HTTP %d for %s", e.StatusCode, e.URL)
}

// FetchPublicTimeline retrieves one page of the server's public timeline,
// ordered newest first.
func (c *Client) FetchPublicTimeline(ctx context.Context, q TimelineQuery) ([]Status, error) {
	params := url.Values{}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.MinID != "" {
		params.Set("min_id", q.MinID)
	}
	if q.MaxID != "" {
		params.Set("max_id", q.MaxID)
	}

	endpoint := c.baseURL + "/api/v1/timelines/public"
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build timeline request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch public timeline: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: endpoint}
	}

	var statuses []Status
	if err := json.NewDecoder(resp.Body).Decode(&statuses); err != nil {
		return nil, fmt.Errorf("decode timeline response: %w", err)
	}
	return statuses, nil
}
