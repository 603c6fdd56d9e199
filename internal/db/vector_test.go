package db

import (
	"context"
	"testing"
)

func TestChunkVectorID(t *testing.T) {
	if got := ChunkVectorID(1234, 0); got != "1234:0" {
		t.Errorf("got %q, want 1234:0", got)
	}
	if got := ChunkVectorID(1234, 12); got != "1234:12" {
		t.Errorf("got %q, want 1234:12", got)
	}
}

func TestUpsertVectorsOverwritesSameID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := []VectorChunk{
		{ID: ChunkVectorID(1, 0), RaindropID: 1, ChunkIndex: 0, Values: []float32{1, 0}},
		{ID: ChunkVectorID(1, 1), RaindropID: 1, ChunkIndex: 1, Values: []float32{0, 1}},
		{ID: ChunkVectorID(1, 2), RaindropID: 1, ChunkIndex: 2, Values: []float32{1, 1}},
	}
	if err := store.UpsertVectors(ctx, first); err != nil {
		t.Fatalf("Failed to upsert vectors: %v", err)
	}

	// Re-run with fewer chunks: same ids overwrite, the stale trailing one stays.
	second := []VectorChunk{
		{ID: ChunkVectorID(1, 0), RaindropID: 1, ChunkIndex: 0, Values: []float32{0, 1}},
		{ID: ChunkVectorID(1, 1), RaindropID: 1, ChunkIndex: 1, Values: []float32{1, 0}},
	}
	if err := store.UpsertVectors(ctx, second); err != nil {
		t.Fatalf("Failed to re-upsert vectors: %v", err)
	}

	count, err := store.VectorCount(ctx, 1)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected stale trailing vector retained (3 total), got %d", count)
	}

	// Reconcile removes the trailing stale vector.
	deleted, err := store.ReconcileVectors(ctx, 1, 2)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 stale vector deleted, got %d", deleted)
	}
	count, _ = store.VectorCount(ctx, 1)
	if count != 2 {
		t.Errorf("Expected 2 vectors after reconcile, got %d", count)
	}
}

func TestSearchVectorsRanksByCosine(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chunks := []VectorChunk{
		{ID: ChunkVectorID(1, 0), RaindropID: 1, ChunkIndex: 0, Values: []float32{1, 0, 0}},
		{ID: ChunkVectorID(2, 0), RaindropID: 2, ChunkIndex: 0, Values: []float32{0, 1, 0}},
		{ID: ChunkVectorID(3, 0), RaindropID: 3, ChunkIndex: 0, Values: []float32{0.9, 0.1, 0}},
	}
	if err := store.UpsertVectors(ctx, chunks); err != nil {
		t.Fatalf("Failed to upsert vectors: %v", err)
	}

	matches, err := store.SearchVectors(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(matches))
	}
	if matches[0].RaindropID != 1 {
		t.Errorf("Expected exact match first, got id %d", matches[0].RaindropID)
	}
	if matches[1].RaindropID != 3 {
		t.Errorf("Expected near match second, got id %d", matches[1].RaindropID)
	}
}

func TestFloat32BlobRoundTrip(t *testing.T) {
	in := []float32{0.5, -1.25, 3}
	out := bytesToFloat32Slice(float32SliceToBytes(in))
	if len(out) != len(in) {
		t.Fatalf("Expected %d values, got %d", len(in), len(out))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("Value %d: got %f, want %f", i, out[i], in[i])
		}
	}
	if bytesToFloat32Slice([]byte{1, 2, 3}) != nil {
		t.Error("Expected nil for misaligned blob")
	}
}
