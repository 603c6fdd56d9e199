package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/user/podmark/internal/db"
	"github.com/user/podmark/internal/queue"
)

// BookmarkStore is the slice of the persistence store the ingestion service
// needs.
type BookmarkStore interface {
	ExistenceChecker
	InsertPlaceholder(ctx context.Context, b *db.Bookmark) error
}

// Enqueuer submits work items for enrichment.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg *queue.Message) error
}

// AddedItem describes one URL accepted in an AddBookmarks call.
type AddedItem struct {
	ID    int64  `json:"id"`
	Link  string `json:"link"`
	Title string `json:"title"`
}

// AddResult is the caller-visible outcome of a batch submission. Success is
// true even when individual URLs failed; those are simply absent from Items.
type AddResult struct {
	Success   bool        `json:"success"`
	Processed int         `json:"processed"`
	Skipped   int         `json:"skipped"`
	Items     []AddedItem `json:"items"`
}

// Service is the ingestion boundary for direct URL submission.
type Service struct {
	store BookmarkStore
	queue Enqueuer
	log   *slog.Logger
}

func NewService(store BookmarkStore, q Enqueuer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, queue: q, log: log}
}

// AddBookmarks deduplicates the batch, persists a placeholder per surviving
// URL, and enqueues one work item each. Per-URL failures are logged and do
// not abort the batch.
func (s *Service) AddBookmarks(ctx context.Context, urls []string) AddResult {
	result := AddResult{Success: true, Items: []AddedItem{}}
	if len(urls) == 0 {
		return result
	}

	res := ResolveNewURLs(ctx, urls, s.store, s.log)
	result.Skipped = res.SkippedExisting

	for _, link := range res.New {
		id := newBookmarkID()
		b := &db.Bookmark{
			RaindropID: id,
			URL:        link,
			Title:      link,
			CreatedAt:  time.Now(),
		}
		if err := s.store.InsertPlaceholder(ctx, b); err != nil {
			// A conflict here is the uniqueness constraint catching a true
			// duplicate the degraded existence check let through.
			s.log.Warn("failed to persist bookmark, skipping", "url", link, "error", err)
			continue
		}

		if err := s.queue.Enqueue(ctx, &queue.Message{
			RaindropID: id,
			Link:       link,
			Created:    b.CreatedAt,
		}); err != nil {
			s.log.Error("failed to enqueue bookmark", "url", link, "error", err)
			continue
		}

		result.Processed++
		result.Items = append(result.Items, AddedItem{ID: id, Link: link, Title: b.Title})
	}

	return result
}
