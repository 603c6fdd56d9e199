// Package raindrop is a thin client for the Raindrop.io REST API, covering
// only the paginated listing the sync loop needs.
package raindrop

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const DefaultBaseURL = "https://api.raindrop.io/rest/v1"

// Item is one bookmark as returned by the API.
type Item struct {
	ID      int64     `json:"_id"`
	Link    string    `json:"link"`
	Title   string    `json:"title"`
	Created time.Time `json:"created"`
}

type Client struct {
	BaseURL string
	Token   string
	PerPage int

	client *http.Client
	// sleep is swapped in tests to avoid real rate-limit waits.
	sleep func(time.Duration)
}

func NewClient(token string) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		Token:   token,
		PerPage: 50,
		client:  &http.Client{Timeout: 30 * time.Second},
		sleep:   time.Sleep,
	}
}

// ListPage fetches one page of bookmarks, newest first. On HTTP 429 it sleeps
// until the server-specified reset time and retries that page once.
func (c *Client) ListPage(ctx context.Context, page int) ([]Item, error) {
	items, retryAfter, err := c.listPage(ctx, page)
	if err != nil {
		return nil, err
	}
	if retryAfter > 0 {
		c.sleep(retryAfter)
		items, retryAfter, err = c.listPage(ctx, page)
		if err != nil {
			return nil, err
		}
		if retryAfter > 0 {
			return nil, fmt.Errorf("raindrop: rate limited after retry")
		}
	}
	return items, nil
}

func (c *Client) listPage(ctx context.Context, page int) ([]Item, time.Duration, error) {
	url := fmt.Sprintf("%s/raindrops/0?sort=-created&perpage=%d&page=%d", c.BaseURL, c.PerPage, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("raindrop: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, resetDelay(resp), nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("raindrop: status %d", resp.StatusCode)
	}

	var payload struct {
		Items []Item `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, 0, fmt.Errorf("raindrop: decode: %w", err)
	}
	return payload.Items, 0, nil
}

// ListSince walks pages newest-first and returns every item created strictly
// after since, oldest last. A zero since returns everything.
func (c *Client) ListSince(ctx context.Context, since time.Time) ([]Item, error) {
	var all []Item
	for page := 0; ; page++ {
		items, err := c.ListPage(ctx, page)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			break
		}

		reachedOld := false
		for _, item := range items {
			if !since.IsZero() && !item.Created.After(since) {
				reachedOld = true
				break
			}
			all = append(all, item)
		}
		if reachedOld || len(items) < c.PerPage {
			break
		}
	}
	return all, nil
}

// resetDelay reads the provider's reset time from the 429 response. Falls
// back to a minute when the header is absent or unparseable.
func resetDelay(resp *http.Response) time.Duration {
	if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			if d := time.Until(time.Unix(unix, 0)); d > 0 {
				return d
			}
			return time.Second
		}
	}
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Minute
}
