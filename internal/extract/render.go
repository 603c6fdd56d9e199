package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RenderClient talks to a browser-rendering service: it can return the fully
// rendered DOM for a URL and capture a page screenshot.
type RenderClient struct {
	Endpoint string
	Token    string

	client *http.Client
}

func NewRenderClient(endpoint, token string) *RenderClient {
	return &RenderClient{
		Endpoint: endpoint,
		Token:    token,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// FetchHTML returns the rendered HTML for a URL.
func (r *RenderClient) FetchHTML(ctx context.Context, pageURL string) ([]byte, error) {
	return r.post(ctx, r.Endpoint+"/content", map[string]interface{}{
		"url": pageURL,
	})
}

// Screenshot captures a binary PNG of the page viewport.
func (r *RenderClient) Screenshot(ctx context.Context, pageURL string) ([]byte, error) {
	return r.post(ctx, r.Endpoint+"/screenshot", map[string]interface{}{
		"url": pageURL,
		"screenshotOptions": map[string]interface{}{
			"type":     "png",
			"encoding": "binary",
			"fullPage": false,
		},
	})
}

func (r *RenderClient) post(ctx context.Context, url string, payload map[string]interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+r.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("render service: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 20<<20))
}
