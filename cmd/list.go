package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/user/podmark/internal/config"
	"github.com/user/podmark/internal/db"
)

var (
	listPage    int
	listPerPage int
	listJSON    bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored bookmarks",
	Long:  "List bookmarks newest first, paginated.",
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

		bookmarks, total, err := store.ListBookmarks(cmd.Context(), listPage, listPerPage)
		if err != nil {
			return fmt.Errorf("failed to list bookmarks: %w", err)
		}

		if listJSON {
			data, err := json.MarshalIndent(bookmarks, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		if len(bookmarks) == 0 {
			fmt.Println("No bookmarks.")
			return nil
		}
		for _, b := range bookmarks {
			status := " "
			if b.TextContent != "" {
				status = "*"
			}
			fmt.Printf("%s %d  %s\n    %s\n", status, b.RaindropID, b.Title, b.URL)
			if b.Summary != "" {
				fmt.Printf("    %s\n", truncate(b.Summary, 100))
			}
		}
		fmt.Printf("\nPage %d, %d of %d bookmarks\n", listPage, len(bookmarks), total)
		return nil
	},
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func init() {
	listCmd.Flags().IntVar(&listPage, "page", 1, "Page number")
	listCmd.Flags().IntVar(&listPerPage, "per-page", 20, "Bookmarks per page")
	listCmd.Flags().BoolVarP(&listJSON, "json", "j", false, "Output as JSON")
	rootCmd.AddCommand(listCmd)
}
