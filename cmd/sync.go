package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/podmark/internal/config"
	"github.com/user/podmark/internal/db"
	"github.com/user/podmark/internal/ingest"
	"github.com/user/podmark/internal/queue"
	"github.com/user/podmark/internal/raindrop"
)

var syncEvery string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Poll Raindrop for new bookmarks",
	Long:  "Fetch bookmarks created since the last sync checkpoint and queue them for enrichment. With --every, keep polling on an interval.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cfg.Raindrop.Token == "" {
			return fmt.Errorf("raindrop token not configured (set PODMARK_RAINDROP_TOKEN)")
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

		client := raindrop.NewClient(cfg.Raindrop.Token)
		if cfg.Raindrop.PerPage > 0 {
			client.PerPage = cfg.Raindrop.PerPage
		}

		syncer := ingest.NewSync(store, q, client, cfg.Sync.MaxBatch, slog.Default())

		if syncEvery != "" {
			interval, err := time.ParseDuration(syncEvery)
			if err != nil {
				return fmt.Errorf("invalid --every value: %w", err)
			}
			return syncer.Run(cmd.Context(), interval)
		}

		n, err := syncer.SyncOnce(cmd.Context())
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		fmt.Printf("Queued %d new bookmarks\n", n)
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncEvery, "every", "", "Poll interval, e.g. 15m (default: run once)")
	rootCmd.AddCommand(syncCmd)
}
