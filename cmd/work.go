package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/podmark/internal/ai"
	"github.com/user/podmark/internal/blob"
	"github.com/user/podmark/internal/config"
	"github.com/user/podmark/internal/db"
	"github.com/user/podmark/internal/extract"
	"github.com/user/podmark/internal/pipeline"
	"github.com/user/podmark/internal/queue"
)

var (
	workOnce         bool
	reconcileVectors bool
)

var workCmd = &cobra.Command{
	Use:   "work",
	Short: "Run the enrichment worker",
	Long:  "Consume queued bookmarks and run them through extraction, summarization, embedding, and podcast synthesis.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		store, err := db.NewStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()

		q, err := queue.New(store.DB())
		if err != nil {
			return fmt.Errorf("failed to open queue: %w", err)
		}

		blobs, err := blob.NewMinioStore(cfg.Storage.Endpoint, cfg.Storage.AccessKey,
			cfg.Storage.SecretKey, cfg.Storage.UseSSL, cfg.Storage.Bucket)
		if err != nil {
			return fmt.Errorf("failed to open object storage: %w", err)
		}

		var render *extract.RenderClient
		if cfg.Render.Endpoint != "" {
			render = extract.NewRenderClient(cfg.Render.Endpoint, cfg.Render.Token)
		}
		extractor := extract.NewExtractor(30*time.Second, render)

		embedder, err := ai.NewEmbedder(cfg.Embeddings.APIKey, cfg.Embeddings.Model)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}
		speech, err := ai.NewSpeech(cfg.Speech.APIKey, cfg.Speech.Model, cfg.Speech.Voice)
		if err != nil {
			return fmt.Errorf("failed to create speech client: %w", err)
		}

		summarizer := ai.NewSummarizer(cfg.LLM.APIKey, cfg.LLM.Model)
		summarizer.Prompt = cfg.LLM.SummaryPrompt

		pipe := pipeline.New(pipeline.Options{
			Store:       store,
			Transport:   q,
			Extractor:   extractor,
			Summarizer:  summarizer,
			Scripter:    ai.NewScriptWriter(cfg.LLM.APIKey, cfg.LLM.Model),
			Embedder:    embedder,
			Speech:      speech,
			HTML:        blobs,
			Audio:       blobs,
			Vectors:     store,
			MaxAttempts: cfg.Queue.MaxAttempts,
			Logger:      slog.Default(),
		})

		ctx := cmd.Context()

		if reconcileVectors {
			if err := reconcileAllVectors(ctx, store); err != nil {
				return fmt.Errorf("vector reconciliation failed: %w", err)
			}
		}

		leaseBatch := cfg.Queue.LeaseBatch
		if leaseBatch <= 0 {
			leaseBatch = 10
		}

		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			msgs, err := q.Lease(ctx, leaseBatch)
			if err != nil {
				return fmt.Errorf("failed to lease messages: %w", err)
			}

			if len(msgs) == 0 {
				if workOnce {
					return nil
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(5 * time.Second):
				}
				continue
			}

			pipe.ProcessBatch(ctx, msgs)
		}
	},
}

// reconcileAllVectors drops stale vector chunks left behind when a bookmark's
// content shrank and its re-embedding produced fewer chunks than before.
func reconcileAllVectors(ctx context.Context, store *db.Store) error {
	const perPage = 100
	var removed int64
	for page := 1; ; page++ {
		bookmarks, _, err := store.ListBookmarks(ctx, page, perPage)
		if err != nil {
			return err
		}
		if len(bookmarks) == 0 {
			break
		}
		for _, b := range bookmarks {
			if b.TextContent == "" {
				continue
			}
			chunkCount := len(pipeline.Chunk(b.TextContent, pipeline.DefaultChunkSize, pipeline.DefaultChunkOverlap))
			n, err := store.ReconcileVectors(ctx, b.RaindropID, chunkCount)
			if err != nil {
				return err
			}
			removed += n
		}
		if len(bookmarks) < perPage {
			break
		}
	}
	slog.Info("vector reconciliation complete", "removed", removed)
	return nil
}

func init() {
	workCmd.Flags().BoolVar(&workOnce, "once", false, "Drain the queue and exit instead of polling")
	workCmd.Flags().BoolVar(&reconcileVectors, "reconcile-vectors", false, "Remove stale vector chunks before processing")
	rootCmd.AddCommand(workCmd)
}
