package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SideEffect is the outcome of a best-effort enrichment: it either completed
// with a value or was skipped with a reason. Skips are observable in logs but
// never fail the item.
type SideEffect struct {
	Done   bool
	Value  string
	Reason string
}

func sideDone(value string) SideEffect {
	return SideEffect{Done: true, Value: value}
}

func sideSkipped(reason string) SideEffect {
	return SideEffect{Reason: reason}
}

// CoverStore receives captured screenshots.
type CoverStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// ResolveCover finds a cover image for a page: the document's og:image if
// declared, otherwise a screenshot captured via the render client and stored
// under coverKey.
func (e *Extractor) ResolveCover(ctx context.Context, pageURL string, rawHTML []byte, covers CoverStore, coverKey string) SideEffect {
	if img := metaImage(rawHTML); img != "" {
		return sideDone(img)
	}

	if e.render == nil {
		return sideSkipped("no og:image and render client disabled")
	}
	if covers == nil {
		return sideSkipped("no cover store configured")
	}

	png, err := e.render.Screenshot(ctx, pageURL)
	if err != nil {
		return sideSkipped(fmt.Sprintf("screenshot: %v", err))
	}
	if err := covers.Put(ctx, coverKey, png, "image/png"); err != nil {
		return sideSkipped(fmt.Sprintf("store screenshot: %v", err))
	}
	return sideDone(coverKey)
}

func metaImage(rawHTML []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	for _, sel := range []string{
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`,
	} {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if trimmed := strings.TrimSpace(content); strings.HasPrefix(trimmed, "http") {
				return trimmed
			}
		}
	}
	return ""
}
