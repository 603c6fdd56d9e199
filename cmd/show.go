package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/user/podmark/internal/blob"
	"github.com/user/podmark/internal/config"
	"github.com/user/podmark/internal/db"
)

var showHTML bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a bookmark's enrichment detail",
	Long:  "Print a bookmark with its cache status, summary, and podcast episode. With --html, dump the cached sanitized HTML to stdout instead.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid bookmark id %q", args[0])
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		store, err := db.NewStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()

		ctx := cmd.Context()

		b, err := store.GetBookmark(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("no bookmark with id %d", id)
			}
			return fmt.Errorf("failed to load bookmark: %w", err)
		}

		cc, err := store.GetContentCache(ctx, id)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to load content cache: %w", err)
		}

		if showHTML {
			if cc == nil || cc.HTMLKey == "" {
				return fmt.Errorf("no cached HTML for bookmark %d", id)
			}
			blobs, err := blob.NewMinioStore(cfg.Storage.Endpoint, cfg.Storage.AccessKey,
				cfg.Storage.SecretKey, cfg.Storage.UseSSL, cfg.Storage.Bucket)
			if err != nil {
				return fmt.Errorf("failed to open object storage: %w", err)
			}
			data, err := blobs.Get(ctx, cc.HTMLKey)
			if err != nil {
				return fmt.Errorf("failed to fetch cached HTML: %w", err)
			}
			_, err = os.Stdout.Write(data)
			return err
		}

		fmt.Printf("%s\n%s\n", b.Title, b.URL)
		if b.Byline != "" {
			fmt.Printf("By %s\n", b.Byline)
		}
		if b.Summary != "" {
			fmt.Printf("\n%s\n", b.Summary)
		}
		if b.CoverImage != "" {
			fmt.Printf("\nCover: %s\n", b.CoverImage)
		}

		switch {
		case cc == nil:
			fmt.Println("\nNot yet enriched.")
		case cc.Error != "":
			fmt.Printf("\nLast enrichment error: %s\n", cc.Error)
		default:
			fmt.Printf("\nCached HTML: %s (extracted %s)\n", cc.HTMLKey, cc.ExtractedAt.Format("2006-01-02 15:04"))
		}

		ep, err := store.GetPodcastEpisode(ctx, id)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("failed to load episode: %w", err)
			}
		} else {
			fmt.Printf("Episode: %s (%d word script)\n", ep.AudioKey, wordCount(ep.Script))
		}
		return nil
	},
}

func wordCount(s string) int {
	n := 0
	inWord := false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}

func init() {
	showCmd.Flags().BoolVar(&showHTML, "html", false, "Dump cached sanitized HTML")
	rootCmd.AddCommand(showCmd)
}
