// Package ingest accepts bookmark URLs, deduplicates them, persists
// placeholder records, and enqueues enrichment work.
package ingest

import (
	"context"
	"log/slog"

	"github.com/user/podmark/internal/urlnorm"
)

// ExistenceChecker answers which URLs are already stored, in one batched
// query.
type ExistenceChecker interface {
	ExistingURLs(ctx context.Context, urls []string) (map[string]bool, error)
}

// Resolution is the dedup gate's verdict on a candidate batch.
type Resolution struct {
	// New holds the first-seen original strings of genuinely new URLs, in
	// submission order.
	New []string
	// SkippedExisting counts candidates dropped because the store already
	// knows them. In-batch repeats are not counted here.
	SkippedExisting int
}

// ResolveNewURLs normalizes candidates, collapses in-batch duplicates to the
// first-seen original, and partitions the rest against the store.
//
// When the existence check itself fails the gate must not block ingestion: it
// degrades to treating every candidate as new and leaves true duplicates to
// the store's uniqueness constraint at insert time.
func ResolveNewURLs(ctx context.Context, candidates []string, store ExistenceChecker, log *slog.Logger) Resolution {
	var ordered []string
	firstSeen := make(map[string]string)
	for _, c := range candidates {
		norm := urlnorm.Normalize(c)
		if _, seen := firstSeen[norm]; seen {
			continue
		}
		firstSeen[norm] = c
		ordered = append(ordered, c)
	}

	if len(ordered) == 0 {
		return Resolution{}
	}

	// One batched query over both forms: the store holds original submission
	// strings, but externally-synced rows may carry either shape.
	lookup := make([]string, 0, len(ordered)*2)
	for _, original := range ordered {
		lookup = append(lookup, original)
		if norm := urlnorm.Normalize(original); norm != original {
			lookup = append(lookup, norm)
		}
	}

	existing, err := store.ExistingURLs(ctx, lookup)
	if err != nil {
		log.Warn("existence check failed, treating all candidates as new",
			"error", err, "candidates", len(ordered))
		return Resolution{New: ordered}
	}

	var res Resolution
	for _, original := range ordered {
		if existing[original] || existing[urlnorm.Normalize(original)] {
			res.SkippedExisting++
			continue
		}
		res.New = append(res.New, original)
	}
	return res
}
