// Package extract converts a URL into readable article text plus raw HTML.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// MinTextLength is the extraction quality floor: shorter extractions are
// treated as a recoverable failure, triggering the render fallback.
const MinTextLength = 200

// ErrTooShort marks an extraction whose readable text fell below the floor
// even after the fallback path.
var ErrTooShort = errors.New("extracted text too short")

// Article is the result of a successful extraction.
type Article struct {
	Title       string
	Byline      string
	TextContent string
	RawHTML     []byte
}

type Extractor struct {
	client *http.Client
	render *RenderClient
	minLen int
}

// NewExtractor builds an extractor. render may be nil, disabling the
// rendering-based fallback for JS-heavy pages.
func NewExtractor(timeout time.Duration, render *RenderClient) *Extractor {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Extractor{
		client: &http.Client{Timeout: timeout},
		render: render,
		minLen: MinTextLength,
	}
}

// Extract fetches the URL and runs readability extraction. If the readable
// text is below the minimum length it retries once via the render client
// before giving up with ErrTooShort.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (*Article, error) {
	raw, err := e.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	article, err := e.parse(raw, pageURL)
	if err == nil {
		return article, nil
	}
	if !errors.Is(err, ErrTooShort) || e.render == nil {
		return nil, err
	}

	// Fallback: a rendered DOM often carries the content a plain fetch missed.
	rendered, renderErr := e.render.FetchHTML(ctx, pageURL)
	if renderErr != nil {
		return nil, fmt.Errorf("render fallback: %w (after %v)", renderErr, err)
	}
	return e.parse(rendered, pageURL)
}

func (e *Extractor) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "podmark/1.0 (bookmark enrichment)")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return body, nil
}

func (e *Extractor) parse(raw []byte, pageURL string) (*Article, error) {
	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(string(raw)), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("readability: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < e.minLen {
		return nil, fmt.Errorf("%w: %d chars", ErrTooShort, len(text))
	}

	return &Article{
		Title:       strings.TrimSpace(article.Title),
		Byline:      strings.TrimSpace(article.Byline),
		TextContent: text,
		RawHTML:     raw,
	}, nil
}
