// Package feed fetches the upstream PID feed over HTTPS and decodes
// its JSON odata envelope. It has no retry or caching logic of its
// own — the scheduler decides what to do with a failed Fetch (spec.md
// §6: an absent fetch leaves runtime state untouched).
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client fetches PID Snapshots from the upstream feed.
type Client struct {
	url            string
	subscriptionKey string
	httpClient     *http.Client
}

// NewClient creates a Client with the given timeout.
func NewClient(url, subscriptionKey string, timeout time.Duration) *Client {
	return &Client{
		url:            url,
		subscriptionKey: subscriptionKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch performs one GET against the upstream feed and decodes its
// odata envelope. Any HTTP or JSON error is returned with a "feed:"
// annotation, wrapping the underlying error where there is one; the caller treats any error the same way: skip this
// tick's decode (spec.md §6).
func (c *Client) Fetch(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: failed to create request: %w", err)
	}
	if c.subscriptionKey != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed: failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed: upstream returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("feed: failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("feed: failed to parse response: %w", err)
	}

	return &Snapshot{
		Records:   env.Value,
		FetchedAt: time.Now().UTC(),
	}, nil
}
