package ingest

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/user/podmark/internal/db"
	"github.com/user/podmark/internal/queue"
)

type fakeStore struct {
	existing    map[string]bool
	existErr    error
	inserted    []db.Bookmark
	insertFails map[string]bool
}

func (f *fakeStore) ExistingURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	if f.existErr != nil {
		return nil, f.existErr
	}
	out := make(map[string]bool)
	for _, u := range urls {
		if f.existing[u] {
			out[u] = true
		}
	}
	return out, nil
}

func (f *fakeStore) InsertPlaceholder(ctx context.Context, b *db.Bookmark) error {
	if f.insertFails[b.URL] {
		return errors.New("insert failed")
	}
	f.inserted = append(f.inserted, *b)
	return nil
}

type fakeQueue struct {
	messages []queue.Message
	fail     bool
}

func (f *fakeQueue) Enqueue(ctx context.Context, msg *queue.Message) error {
	if f.fail {
		return errors.New("queue unavailable")
	}
	f.messages = append(f.messages, *msg)
	return nil
}

func testLogger() *slog.Logger {
	return slog.Default()
}

func newTestService(store *fakeStore, q *fakeQueue) *Service {
	return NewService(store, q, testLogger())
}

func TestAddBookmarksEmptyBatchNoOp(t *testing.T) {
	store := &fakeStore{}
	q := &fakeQueue{}
	svc := newTestService(store, q)

	result := svc.AddBookmarks(context.Background(), nil)
	if !result.Success || result.Processed != 0 || result.Skipped != 0 || len(result.Items) != 0 {
		t.Errorf("Expected all-zero no-op result, got %+v", result)
	}
	if len(store.inserted) != 0 || len(q.messages) != 0 {
		t.Error("Expected neither store nor queue touched")
	}
}

func TestAddBookmarksDedupIdempotence(t *testing.T) {
	store := &fakeStore{}
	q := &fakeQueue{}
	svc := newTestService(store, q)

	urls := make([]string, 100)
	for i := range urls {
		urls[i] = "https://example.com/page"
	}

	result := svc.AddBookmarks(context.Background(), urls)
	if result.Processed != 1 {
		t.Errorf("Expected processed 1 for 100 repeats, got %d", result.Processed)
	}
	if len(q.messages) != 1 {
		t.Errorf("Expected exactly 1 queued message, got %d", len(q.messages))
	}
}

func TestAddBookmarksNormalizationCollapses(t *testing.T) {
	store := &fakeStore{}
	q := &fakeQueue{}
	svc := newTestService(store, q)

	result := svc.AddBookmarks(context.Background(), []string{"https://a.com/p", "https://a.com/p/"})
	if result.Processed != 1 {
		t.Fatalf("Expected processed 1, got %d", result.Processed)
	}
	// The first-seen original string wins.
	if q.messages[0].Link != "https://a.com/p" {
		t.Errorf("Expected first-seen original queued, got %q", q.messages[0].Link)
	}
}

func TestAddBookmarksCrossCallDedup(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{"https://a.com/known": true}}
	q := &fakeQueue{}
	svc := newTestService(store, q)

	result := svc.AddBookmarks(context.Background(), []string{"https://a.com/known", "https://a.com/new"})
	if result.Skipped != 1 {
		t.Errorf("Expected 1 skipped, got %d", result.Skipped)
	}
	if result.Processed != 1 {
		t.Errorf("Expected 1 processed, got %d", result.Processed)
	}
	for _, m := range q.messages {
		if m.Link == "https://a.com/known" {
			t.Error("Known URL must not be enqueued")
		}
	}
}

func TestAddBookmarksDegradedStoreTolerance(t *testing.T) {
	store := &fakeStore{existErr: errors.New("store down")}
	q := &fakeQueue{}
	svc := newTestService(store, q)

	result := svc.AddBookmarks(context.Background(), []string{"https://a.com/1", "https://a.com/2"})
	if !result.Success {
		t.Error("Expected success despite degraded existence check")
	}
	if result.Processed != 2 {
		t.Errorf("Expected every URL attempted, got %d processed", result.Processed)
	}
}

func TestAddBookmarksPartialFailureIsolation(t *testing.T) {
	store := &fakeStore{insertFails: map[string]bool{"https://a.com/bad": true}}
	q := &fakeQueue{}
	svc := newTestService(store, q)

	result := svc.AddBookmarks(context.Background(),
		[]string{"https://a.com/ok1", "https://a.com/bad", "https://a.com/ok2"})
	if !result.Success {
		t.Error("Expected success despite one URL failing")
	}
	if result.Processed != 2 {
		t.Errorf("Expected 2 processed, got %d", result.Processed)
	}
	for _, item := range result.Items {
		if item.Link == "https://a.com/bad" {
			t.Error("Failed URL must not appear in items")
		}
	}
}

func TestAddBookmarksEnqueueFailureNotCounted(t *testing.T) {
	store := &fakeStore{}
	q := &fakeQueue{fail: true}
	svc := newTestService(store, q)

	result := svc.AddBookmarks(context.Background(), []string{"https://a.com/1"})
	if !result.Success {
		t.Error("Expected success even when enqueue fails")
	}
	if result.Processed != 0 {
		t.Errorf("Expected 0 processed when enqueue fails, got %d", result.Processed)
	}
}

func TestAddBookmarksPlaceholderTitleIsURL(t *testing.T) {
	store := &fakeStore{}
	q := &fakeQueue{}
	svc := newTestService(store, q)

	svc.AddBookmarks(context.Background(), []string{"https://a.com/x"})
	if len(store.inserted) != 1 {
		t.Fatalf("Expected 1 placeholder, got %d", len(store.inserted))
	}
	if store.inserted[0].Title != "https://a.com/x" {
		t.Errorf("Expected placeholder title = URL, got %q", store.inserted[0].Title)
	}
	if store.inserted[0].RaindropID <= 0 {
		t.Error("Expected positive synthetic id")
	}
}
