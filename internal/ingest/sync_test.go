package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/user/podmark/internal/db"
	"github.com/user/podmark/internal/raindrop"
)

type fakeCheckpointStore struct {
	fakeStore
	checkpoints []time.Time
}

func (f *fakeCheckpointStore) LatestCheckpoint(ctx context.Context) (*db.SyncCheckpoint, error) {
	if len(f.checkpoints) == 0 {
		return nil, nil
	}
	return &db.SyncCheckpoint{LastSyncedAt: f.checkpoints[len(f.checkpoints)-1]}, nil
}

func (f *fakeCheckpointStore) AppendCheckpoint(ctx context.Context, t time.Time) error {
	f.checkpoints = append(f.checkpoints, t)
	return nil
}

type fakeLister struct {
	items     []raindrop.Item
	gotSince  time.Time
	listCalls int
}

func (f *fakeLister) ListSince(ctx context.Context, since time.Time) ([]raindrop.Item, error) {
	f.gotSince = since
	f.listCalls++
	return f.items, nil
}

func syncItems(n int, base time.Time) []raindrop.Item {
	items := make([]raindrop.Item, n)
	for i := range items {
		items[i] = raindrop.Item{
			ID:      int64(i + 1),
			Link:    fmt.Sprintf("https://a.com/%d", i+1),
			Title:   fmt.Sprintf("Item %d", i+1),
			Created: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return items
}

func TestSyncOnceEnqueuesAndCheckpoints(t *testing.T) {
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeCheckpointStore{}
	q := &fakeQueue{}
	lister := &fakeLister{items: syncItems(3, base)}
	s := NewSync(store, q, lister, 50, testLogger())

	n, err := s.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce failed: %v", err)
	}
	if n != 3 || len(q.messages) != 3 {
		t.Errorf("Expected 3 enqueued, got %d", n)
	}
	// No placeholder insert: the pipeline creates the record.
	if len(store.inserted) != 0 {
		t.Error("Sync must not create placeholder rows")
	}

	if len(store.checkpoints) != 1 {
		t.Fatalf("Expected 1 checkpoint appended, got %d", len(store.checkpoints))
	}
	want := base.Add(2 * time.Minute)
	if !store.checkpoints[0].Equal(want) {
		t.Errorf("Expected checkpoint at newest item %v, got %v", want, store.checkpoints[0])
	}
}

func TestSyncOncePassesCheckpointToClient(t *testing.T) {
	cp := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeCheckpointStore{checkpoints: []time.Time{cp}}
	q := &fakeQueue{}
	lister := &fakeLister{}
	s := NewSync(store, q, lister, 50, testLogger())

	if _, err := s.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce failed: %v", err)
	}
	if !lister.gotSince.Equal(cp) {
		t.Errorf("Expected client called with checkpoint %v, got %v", cp, lister.gotSince)
	}
}

func TestSyncOnceTruncatesToMaxBatch(t *testing.T) {
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeCheckpointStore{}
	q := &fakeQueue{}
	lister := &fakeLister{items: syncItems(10, base)}
	s := NewSync(store, q, lister, 4, testLogger())

	n, err := s.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce failed: %v", err)
	}
	if n != 4 {
		t.Errorf("Expected batch truncated to 4, got %d", n)
	}
}

func TestSyncOnceDropsKnownURLs(t *testing.T) {
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeCheckpointStore{
		fakeStore: fakeStore{existing: map[string]bool{"https://a.com/1": true}},
	}
	q := &fakeQueue{}
	lister := &fakeLister{items: syncItems(2, base)}
	s := NewSync(store, q, lister, 50, testLogger())

	n, err := s.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected known URL dropped, got %d enqueued", n)
	}
	if q.messages[0].Link != "https://a.com/2" {
		t.Errorf("Unexpected message: %+v", q.messages[0])
	}
}

func TestSyncOnceNoItemsNoCheckpoint(t *testing.T) {
	store := &fakeCheckpointStore{}
	q := &fakeQueue{}
	lister := &fakeLister{}
	s := NewSync(store, q, lister, 50, testLogger())

	n, err := s.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce failed: %v", err)
	}
	if n != 0 || len(store.checkpoints) != 0 {
		t.Error("Expected no enqueues and no checkpoint for empty poll")
	}
}

// sinceLister serves a fixed newest-first feed filtered to items created
// after since, the shape the real client returns.
type sinceLister struct {
	items []raindrop.Item
}

func (f *sinceLister) ListSince(ctx context.Context, since time.Time) ([]raindrop.Item, error) {
	var out []raindrop.Item
	for _, item := range f.items {
		if item.Created.After(since) {
			out = append(out, item)
		}
	}
	return out, nil
}

func TestSyncOnceOverflowItemsSurviveBatchCap(t *testing.T) {
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	items := syncItems(5, base)
	newestFirst := make([]raindrop.Item, len(items))
	for i, item := range items {
		newestFirst[len(items)-1-i] = item
	}
	store := &fakeCheckpointStore{}
	q := &fakeQueue{}
	s := NewSync(store, q, &sinceLister{items: newestFirst}, 2, testLogger())

	// Cycle 1 hits the batch cap: the two oldest go out, and the checkpoint
	// must stay below the three deferred newer items.
	n, err := s.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("Expected 2 enqueued in cycle 1, got %d", n)
	}
	wantCp := base.Add(1 * time.Minute)
	if !store.checkpoints[0].Equal(wantCp) {
		t.Errorf("Expected checkpoint at newest enqueued item %v, got %v", wantCp, store.checkpoints[0])
	}

	for i := 0; i < 3; i++ {
		if _, err := s.SyncOnce(context.Background()); err != nil {
			t.Fatalf("SyncOnce cycle %d failed: %v", i+2, err)
		}
	}

	if len(q.messages) != 5 {
		t.Fatalf("Expected all 5 items enqueued across cycles, got %d", len(q.messages))
	}
	for i, msg := range q.messages {
		want := fmt.Sprintf("https://a.com/%d", i+1)
		if msg.Link != want {
			t.Errorf("Message %d: expected %s (oldest-first), got %s", i, want, msg.Link)
		}
	}
}
