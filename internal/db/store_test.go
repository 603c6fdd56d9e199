package db

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "podmark-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := NewStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInsertPlaceholderConflictsOnURL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	b := &Bookmark{RaindropID: 1, URL: "https://example.com/a"}
	if err := store.InsertPlaceholder(ctx, b); err != nil {
		t.Fatalf("Failed to insert placeholder: %v", err)
	}
	if b.Title != b.URL {
		t.Errorf("Expected placeholder title to default to URL, got %q", b.Title)
	}

	dup := &Bookmark{RaindropID: 2, URL: "https://example.com/a"}
	if err := store.InsertPlaceholder(ctx, dup); err == nil {
		t.Error("Expected unique constraint violation for duplicate URL")
	}
}

func TestUpsertBookmarkPreservesExistingFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpsertBookmark(ctx, &Bookmark{
		RaindropID:  7,
		URL:         "https://example.com/article",
		Title:       "Article",
		Byline:      "Jane Doe",
		TextContent: "body text",
	}); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	// Summary-only update must not clobber byline or text.
	if err := store.UpsertBookmark(ctx, &Bookmark{
		RaindropID: 7,
		URL:        "https://example.com/article",
		Title:      "Article",
		Summary:    "a summary",
	}); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	got, err := store.GetBookmark(ctx, 7)
	if err != nil {
		t.Fatalf("Failed to get: %v", err)
	}
	if got.Byline != "Jane Doe" {
		t.Errorf("Expected byline preserved, got %q", got.Byline)
	}
	if got.TextContent != "body text" {
		t.Errorf("Expected text preserved, got %q", got.TextContent)
	}
	if got.Summary != "a summary" {
		t.Errorf("Expected summary written, got %q", got.Summary)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("Expected updated_at to be set")
	}
}

func TestExistingURLsBatchQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.InsertPlaceholder(ctx, &Bookmark{RaindropID: 1, URL: "https://a.com/1"})
	store.InsertPlaceholder(ctx, &Bookmark{RaindropID: 2, URL: "https://a.com/2"})

	existing, err := store.ExistingURLs(ctx, []string{"https://a.com/1", "https://a.com/2", "https://a.com/3"})
	if err != nil {
		t.Fatalf("Existence query failed: %v", err)
	}
	if !existing["https://a.com/1"] || !existing["https://a.com/2"] {
		t.Error("Expected known URLs to be reported existing")
	}
	if existing["https://a.com/3"] {
		t.Error("Expected unknown URL to be absent")
	}

	empty, err := store.ExistingURLs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected empty result for empty input, got %v, %v", empty, err)
	}
}

func TestEnrichedURLsIgnoresPlaceholders(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.InsertPlaceholder(ctx, &Bookmark{RaindropID: 1, URL: "https://a.com/pending"})
	store.UpsertBookmark(ctx, &Bookmark{
		RaindropID:  2,
		URL:         "https://a.com/done",
		Title:       "Done",
		TextContent: "extracted",
	})

	enriched, err := store.EnrichedURLs(ctx, []string{"https://a.com/pending", "https://a.com/done"})
	if err != nil {
		t.Fatalf("Enriched query failed: %v", err)
	}
	if enriched["https://a.com/pending"] {
		t.Error("Placeholder should not count as enriched")
	}
	if !enriched["https://a.com/done"] {
		t.Error("Enriched bookmark should be reported")
	}
}

func TestContentCacheErrorLedger(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Error first (extraction never succeeded): row is created with the message.
	if err := store.SetCacheError(ctx, 5, "extract: boom"); err != nil {
		t.Fatalf("Failed to set cache error: %v", err)
	}
	cc, err := store.GetContentCache(ctx, 5)
	if err != nil {
		t.Fatalf("Failed to get cache: %v", err)
	}
	if cc.Error != "extract: boom" {
		t.Errorf("Expected error message persisted, got %q", cc.Error)
	}

	// Successful extraction clears the error.
	if err := store.UpsertContentCache(ctx, &ContentCache{RaindropID: 5, HTMLKey: "html/5"}); err != nil {
		t.Fatalf("Failed to upsert cache: %v", err)
	}
	cc, _ = store.GetContentCache(ctx, 5)
	if cc.Error != "" {
		t.Errorf("Expected error cleared, got %q", cc.Error)
	}
	if cc.HTMLKey != "html/5" {
		t.Errorf("Expected html key, got %q", cc.HTMLKey)
	}
	if cc.ExtractedAt.IsZero() {
		t.Error("Expected extracted_at to be set")
	}
}

func TestSyncLogAppendOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cp, err := store.LatestCheckpoint(ctx)
	if err != nil {
		t.Fatalf("Latest checkpoint failed: %v", err)
	}
	if cp != nil {
		t.Fatal("Expected nil checkpoint before first sync")
	}

	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	store.AppendCheckpoint(ctx, t1)
	store.AppendCheckpoint(ctx, t2)

	cp, err = store.LatestCheckpoint(ctx)
	if err != nil {
		t.Fatalf("Latest checkpoint failed: %v", err)
	}
	if !cp.LastSyncedAt.Equal(t2) {
		t.Errorf("Expected most recent checkpoint %v, got %v", t2, cp.LastSyncedAt)
	}

	var rows int
	store.DB().QueryRow(`SELECT COUNT(*) FROM sync_log`).Scan(&rows)
	if rows != 2 {
		t.Errorf("Expected 2 append-only rows, got %d", rows)
	}
}

func TestPodcastEpisodeUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ep := &PodcastEpisode{RaindropID: 9, AudioKey: "audio/9.mp3", Script: "first take"}
	if err := store.UpsertPodcastEpisode(ctx, ep); err != nil {
		t.Fatalf("Failed to upsert episode: %v", err)
	}

	ep.Script = "second take"
	if err := store.UpsertPodcastEpisode(ctx, ep); err != nil {
		t.Fatalf("Failed to re-upsert episode: %v", err)
	}

	got, err := store.GetPodcastEpisode(ctx, 9)
	if err != nil {
		t.Fatalf("Failed to get episode: %v", err)
	}
	if got.Script != "second take" {
		t.Errorf("Expected reprocessing to overwrite script, got %q", got.Script)
	}
}

func TestListBookmarksPagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		store.UpsertBookmark(ctx, &Bookmark{
			RaindropID: int64(i + 1),
			URL:        fmt.Sprintf("https://a.com/%d", i),
			Title:      "t",
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
		})
	}

	items, count, err := store.ListBookmarks(ctx, 1, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if count != 5 {
		t.Errorf("Expected count 5, got %d", count)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].RaindropID != 5 {
		t.Errorf("Expected newest first, got id %d", items[0].RaindropID)
	}

	items, _, _ = store.ListBookmarks(ctx, 3, 2)
	if len(items) != 1 {
		t.Errorf("Expected 1 item on last page, got %d", len(items))
	}
}
