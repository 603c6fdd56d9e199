// Package pipeline is the queue-driven enrichment core: per work item it
// extracts article content, summarizes it, embeds it, and synthesizes a
// podcast episode, persisting each stage durably so partial failures leave
// inspectable state instead of corrupting the record.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/podmark/internal/ai"
	"github.com/user/podmark/internal/blob"
	"github.com/user/podmark/internal/db"
	"github.com/user/podmark/internal/extract"
	"github.com/user/podmark/internal/queue"
	"github.com/user/podmark/internal/sanitize"
)

// MaxAttempts is the delivery ceiling: a message failing on its third
// delivery is dropped rather than retried.
const MaxAttempts = 3

// Store is the slice of the persistence store the pipeline writes through.
type Store interface {
	EnrichedURLs(ctx context.Context, urls []string) (map[string]bool, error)
	UpsertBookmark(ctx context.Context, b *db.Bookmark) error
	UpdateSummary(ctx context.Context, raindropID int64, summary string) error
	UpdateCoverImage(ctx context.Context, raindropID int64, coverImage string) error
	UpsertContentCache(ctx context.Context, cc *db.ContentCache) error
	SetCacheError(ctx context.Context, raindropID int64, message string) error
	UpsertPodcastEpisode(ctx context.Context, ep *db.PodcastEpisode) error
}

// Transport is the queue side the consumer drives: acknowledge or redeliver.
type Transport interface {
	Ack(ctx context.Context, id int64) error
	Retry(ctx context.Context, id int64) error
}

// Extractor converts a URL into readable content and resolves a cover image
// as a best-effort side path.
type Extractor interface {
	Extract(ctx context.Context, url string) (*extract.Article, error)
	ResolveCover(ctx context.Context, url string, rawHTML []byte, covers extract.CoverStore, key string) extract.SideEffect
}

// Summarizer produces the validated summary shape, optionally carrying a
// podcast script side artifact.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (*ai.Summary, error)
}

// ScriptWriter is the fallback used only when the summarizer produced no
// script artifact.
type ScriptWriter interface {
	WriteScript(ctx context.Context, title, text string) (string, error)
}

// Embedder returns one vector per chunk, order-preserving.
type Embedder interface {
	Embed(ctx context.Context, chunks []string) ([][]float32, error)
}

// Speech synthesizes narration audio.
type Speech interface {
	Synthesize(ctx context.Context, script string) ([]byte, error)
}

// BlobStore is write-side object storage.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// VectorIndex receives embedded chunks keyed by reproducible composite ids.
type VectorIndex interface {
	UpsertVectors(ctx context.Context, chunks []db.VectorChunk) error
}

type Pipeline struct {
	store      Store
	transport  Transport
	extractor  Extractor
	summarizer Summarizer
	scripter   ScriptWriter
	embedder   Embedder
	speech     Speech
	html       BlobStore
	audio      BlobStore
	vectors    VectorIndex
	policy     sanitize.Policy

	maxAttempts  int
	chunkSize    int
	chunkOverlap int
	log          *slog.Logger
}

type Options struct {
	Store      Store
	Transport  Transport
	Extractor  Extractor
	Summarizer Summarizer
	Scripter   ScriptWriter
	Embedder   Embedder
	Speech     Speech
	HTML       BlobStore
	Audio      BlobStore
	Vectors    VectorIndex

	MaxAttempts  int
	ChunkSize    int
	ChunkOverlap int
	Logger       *slog.Logger
}

func New(opts Options) *Pipeline {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = MaxAttempts
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = DefaultChunkOverlap
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{
		store:        opts.Store,
		transport:    opts.Transport,
		extractor:    opts.Extractor,
		summarizer:   opts.Summarizer,
		scripter:     opts.Scripter,
		embedder:     opts.Embedder,
		speech:       opts.Speech,
		html:         opts.HTML,
		audio:        opts.Audio,
		vectors:      opts.Vectors,
		policy:       sanitize.DefaultPolicy(),
		maxAttempts:  opts.MaxAttempts,
		chunkSize:    opts.ChunkSize,
		chunkOverlap: opts.ChunkOverlap,
		log:          opts.Logger,
	}
}

// stageError tags a failure with the stage it occurred in, for the error
// ledger and logs.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%s: %v", e.stage, e.err)
}

func (e *stageError) Unwrap() error {
	return e.err
}

func stageErr(stage string, err error) *stageError {
	return &stageError{stage: stage, err: err}
}

// ProcessBatch handles one delivered batch. Items are processed sequentially;
// one item's failure never affects its siblings, and the handler itself never
// fails: every message ends acknowledged or returned for redelivery.
func (p *Pipeline) ProcessBatch(ctx context.Context, msgs []queue.Message) {
	if len(msgs) == 0 {
		return
	}

	// One batched idempotency read per batch: links already enriched were
	// completed by a prior delivery or a concurrent submission.
	links := make([]string, len(msgs))
	for i, m := range msgs {
		links[i] = m.Link
	}
	enriched, err := p.store.EnrichedURLs(ctx, links)
	if err != nil {
		p.log.Warn("idempotency pre-check failed, processing full batch", "error", err)
		enriched = map[string]bool{}
	}

	for _, msg := range msgs {
		if enriched[msg.Link] {
			p.ack(ctx, msg, "already enriched")
			continue
		}

		if err := p.processItem(ctx, msg); err != nil {
			p.fail(ctx, msg, err)
			continue
		}
		p.ack(ctx, msg, "done")
	}
}

func (p *Pipeline) processItem(ctx context.Context, msg queue.Message) error {
	id := msg.RaindropID

	// Stage: extraction.
	article, err := p.extractor.Extract(ctx, msg.Link)
	if err != nil {
		return stageErr("extract", err)
	}

	sanitized, err := p.policy.Apply(article.RawHTML)
	if err != nil {
		p.log.Warn("sanitizer fell back to raw html", "id", id, "error", err)
		sanitized = article.RawHTML
	}

	htmlKey := blob.HTMLKey(id)
	if err := p.html.Put(ctx, htmlKey, sanitized, "text/html"); err != nil {
		return stageErr("extract", err)
	}

	title := article.Title
	if title == "" {
		title = msg.Title
	}
	if title == "" {
		title = msg.Link
	}
	if err := p.store.UpsertBookmark(ctx, &db.Bookmark{
		RaindropID:  id,
		URL:         msg.Link,
		Title:       title,
		Byline:      article.Byline,
		TextContent: article.TextContent,
		CreatedAt:   msg.Created,
	}); err != nil {
		return stageErr("extract", err)
	}
	if err := p.store.UpsertContentCache(ctx, &db.ContentCache{
		RaindropID: id,
		HTMLKey:    htmlKey,
	}); err != nil {
		return stageErr("extract", err)
	}

	// Best-effort side path: never fails the item.
	side := p.extractor.ResolveCover(ctx, msg.Link, article.RawHTML, p.html, blob.CoverKey(id))
	if side.Done {
		if err := p.store.UpdateCoverImage(ctx, id, side.Value); err != nil {
			p.log.Warn("failed to persist cover image", "id", id, "error", err)
		}
	} else {
		p.log.Warn("cover capture skipped", "id", id, "reason", side.Reason)
	}

	// Stage: summarization.
	summary, err := p.summarizer.Summarize(ctx, article.TextContent)
	if err != nil {
		return stageErr("summarize", err)
	}
	if err := p.store.UpdateSummary(ctx, id, summary.Summary); err != nil {
		return stageErr("summarize", err)
	}

	// Stage: embedding.
	chunks := Chunk(article.TextContent, p.chunkSize, p.chunkOverlap)
	vectors, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		return stageErr("embed", err)
	}
	vecChunks := make([]db.VectorChunk, len(vectors))
	for i, v := range vectors {
		vecChunks[i] = db.VectorChunk{
			ID:         db.ChunkVectorID(id, i),
			RaindropID: id,
			ChunkIndex: i,
			Values:     v,
		}
	}
	if err := p.vectors.UpsertVectors(ctx, vecChunks); err != nil {
		return stageErr("embed", err)
	}

	// Stage: podcast synthesis. The summarizer's script artifact is consulted
	// first; the dedicated call is a fallback only.
	script := summary.PodcastScript
	if script == "" {
		script, err = p.scripter.WriteScript(ctx, title, article.TextContent)
		if err != nil {
			return stageErr("podcast", err)
		}
	}
	audio, err := p.speech.Synthesize(ctx, script)
	if err != nil {
		return stageErr("podcast", err)
	}
	audioKey := blob.AudioKey(id)
	if err := p.audio.Put(ctx, audioKey, audio, "audio/mpeg"); err != nil {
		return stageErr("podcast", err)
	}
	if err := p.store.UpsertPodcastEpisode(ctx, &db.PodcastEpisode{
		RaindropID: id,
		AudioKey:   audioKey,
		Script:     script,
	}); err != nil {
		return stageErr("podcast", err)
	}

	return nil
}

func (p *Pipeline) ack(ctx context.Context, msg queue.Message, reason string) {
	if err := p.transport.Ack(ctx, msg.ID); err != nil {
		p.log.Error("failed to ack message", "id", msg.RaindropID, "error", err)
		return
	}
	p.log.Debug("message acknowledged", "id", msg.RaindropID, "reason", reason)
}

// fail persists the failure on the item's content_cache row, then either
// returns the message for redelivery or, at the attempt ceiling, drops it.
func (p *Pipeline) fail(ctx context.Context, msg queue.Message, procErr error) {
	if err := p.store.SetCacheError(ctx, msg.RaindropID, procErr.Error()); err != nil {
		p.log.Error("failed to persist item error", "id", msg.RaindropID, "error", err)
	}

	if msg.Attempts < p.maxAttempts {
		p.log.Warn("item failed, returning for redelivery",
			"id", msg.RaindropID, "link", msg.Link, "attempt", msg.Attempts, "error", procErr)
		if err := p.transport.Retry(ctx, msg.ID); err != nil {
			p.log.Error("failed to retry message", "id", msg.RaindropID, "error", err)
		}
		return
	}

	p.log.Error("item failed terminally, dropping",
		"id", msg.RaindropID, "link", msg.Link, "attempts", msg.Attempts, "error", procErr)
	if err := p.transport.Ack(ctx, msg.ID); err != nil {
		p.log.Error("failed to drop message", "id", msg.RaindropID, "error", err)
	}
}
