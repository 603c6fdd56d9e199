package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/podmark/internal/ai"
	"github.com/user/podmark/internal/config"
	"github.com/user/podmark/internal/db"
)

var (
	searchLimit int
	searchJSON  bool
)

type searchResult struct {
	Score    float64     `json:"score"`
	Bookmark db.Bookmark `json:"bookmark"`
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search bookmarks semantically",
	Long:  "Embed the query and rank bookmarks by cosine similarity against their content chunks.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		store, err := db.NewStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()

		embedder, err := ai.NewEmbedder(cfg.Embeddings.APIKey, cfg.Embeddings.Model)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}
		vectors, err := embedder.Embed(cmd.Context(), []string{query})
		if err != nil {
			return fmt.Errorf("failed to embed query: %w", err)
		}

		matches, err := store.SearchVectors(cmd.Context(), vectors[0], searchLimit*4)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		// Best chunk per bookmark, preserving score order.
		seen := map[int64]bool{}
		var results []searchResult
		for _, m := range matches {
			if seen[m.RaindropID] {
				continue
			}
			seen[m.RaindropID] = true
			b, err := store.GetBookmark(cmd.Context(), m.RaindropID)
			if err != nil {
				continue
			}
			results = append(results, searchResult{Score: m.Score, Bookmark: *b})
			if len(results) >= searchLimit {
				break
			}
		}

		if searchJSON {
			data, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		if len(results) == 0 {
			fmt.Println("No results found.")
			return nil
		}
		for i, r := range results {
			fmt.Printf("%d. [%.3f] %s\n   %s\n", i+1, r.Score, r.Bookmark.Title, r.Bookmark.URL)
			if r.Bookmark.Summary != "" {
				fmt.Printf("   %s\n", truncate(r.Bookmark.Summary, 100))
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum results")
	searchCmd.Flags().BoolVarP(&searchJSON, "json", "j", false, "Output as JSON")
	rootCmd.AddCommand(searchCmd)
}
