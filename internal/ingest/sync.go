package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/user/podmark/internal/db"
	"github.com/user/podmark/internal/queue"
	"github.com/user/podmark/internal/raindrop"
)

// RaindropLister is the slice of the bookmark-service client the sync needs.
type RaindropLister interface {
	ListSince(ctx context.Context, since time.Time) ([]raindrop.Item, error)
}

// CheckpointStore extends the existence checker with the append-only sync
// log.
type CheckpointStore interface {
	ExistenceChecker
	LatestCheckpoint(ctx context.Context) (*db.SyncCheckpoint, error)
	AppendCheckpoint(ctx context.Context, lastSyncedAt time.Time) error
}

// Sync polls the external bookmarking service for new items since the last
// checkpoint and enqueues them for enrichment. Placeholder rows are not
// created here; the pipeline's first stage persists the record.
type Sync struct {
	store    CheckpointStore
	queue    Enqueuer
	client   RaindropLister
	maxBatch int
	log      *slog.Logger
}

func NewSync(store CheckpointStore, q Enqueuer, client RaindropLister, maxBatch int, log *slog.Logger) *Sync {
	if maxBatch <= 0 {
		maxBatch = 50
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sync{store: store, queue: q, client: client, maxBatch: maxBatch, log: log}
}

// SyncOnce runs one poll cycle. It returns the number of items enqueued.
func (s *Sync) SyncOnce(ctx context.Context) (int, error) {
	var since time.Time
	cp, err := s.store.LatestCheckpoint(ctx)
	if err != nil {
		return 0, fmt.Errorf("read checkpoint: %w", err)
	}
	if cp != nil {
		since = cp.LastSyncedAt
	}

	items, err := s.client.ListSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("list bookmarks: %w", err)
	}
	if len(items) == 0 {
		s.log.Info("sync found no new items", "since", since)
		return 0, nil
	}

	links := make([]string, len(items))
	for i, item := range items {
		links[i] = item.Link
	}
	existing, err := s.store.ExistingURLs(ctx, links)
	if err != nil {
		s.log.Warn("existence check failed during sync, enqueueing all", "error", err)
		existing = map[string]bool{}
	}

	var fresh []raindrop.Item
	for _, item := range items {
		if existing[item.Link] {
			continue
		}
		fresh = append(fresh, item)
	}
	skippedExisting := len(items) - len(fresh)

	// The service returns items newest-first. Enqueue oldest-first so that
	// when the batch cap cuts the cycle short, the checkpoint stays below
	// every deferred item and the next cycle picks them up.
	sort.Slice(fresh, func(i, j int) bool {
		return fresh[i].Created.Before(fresh[j].Created)
	})

	deferred := 0
	if len(fresh) > s.maxBatch {
		deferred = len(fresh) - s.maxBatch
		fresh = fresh[:s.maxBatch]
	}

	var newest time.Time
	enqueued := 0
	for _, item := range fresh {
		if err := s.queue.Enqueue(ctx, &queue.Message{
			RaindropID: item.ID,
			Link:       item.Link,
			Title:      item.Title,
			Created:    item.Created,
		}); err != nil {
			s.log.Error("failed to enqueue synced item", "url", item.Link, "error", err)
			continue
		}
		enqueued++
		if item.Created.After(newest) {
			newest = item.Created
		}
	}

	if enqueued > 0 && !newest.IsZero() {
		if err := s.store.AppendCheckpoint(ctx, newest); err != nil {
			return enqueued, fmt.Errorf("append checkpoint: %w", err)
		}
	}

	s.log.Info("sync complete", "found", len(items), "enqueued", enqueued,
		"skipped_existing", skippedExisting, "deferred", deferred)
	return enqueued, nil
}

// Run polls on a fixed schedule until the context is cancelled. The first
// cycle runs immediately.
func (s *Sync) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := s.SyncOnce(ctx); err != nil {
		s.log.Error("sync cycle failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.SyncOnce(ctx); err != nil {
				s.log.Error("sync cycle failed", "error", err)
			}
		}
	}
}
