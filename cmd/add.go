package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/user/podmark/internal/config"
	"github.com/user/podmark/internal/db"
	"github.com/user/podmark/internal/ingest"
	"github.com/user/podmark/internal/queue"
)

var addCmd = &cobra.Command{
	Use:   "add <url>...",
	Short: "Submit bookmarks for enrichment",
	Long:  "Add one or more URLs as bookmarks. Known URLs are skipped; new ones are queued for enrichment by the worker.",
	Args:  cobra.MinimumNArgs(1),
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

		svc := ingest.NewService(store, q, slog.Default())
		result := svc.AddBookmarks(cmd.Context(), args)

		for _, item := range result.Items {
			fmt.Printf("Queued: %s\n", item.Link)
		}
		fmt.Printf("%d queued, %d skipped\n", result.Processed, result.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}
