package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"inkforge/internal/config"
	"inkforge/internal/logger"
)

var (
	discoverSource string
	discoverMax    int
)

var discoverCmd = &cobra.Command{
	Use:   "discover [work-url]",
	Short: "Resolve a work's metadata and chapter table of contents from a source site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workURL := args[0]
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.fetcher.Close()

		cfg := config.Get()
		max := discoverMax
		if max <= 0 {
			max = cfg.Crawl.DefaultMaxChapters
		}
		if max > cfg.Crawl.HardMaxChapters {
			max = cfg.Crawl.HardMaxChapters
		}

		work, chapters, err := a.dispatcher.Discover(context.Background(), discoverSource, workURL, max)
		if err != nil {
			logger.Error("discover failed", err, map[string]any{"source": discoverSource, "url": workURL})
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Work     interface{} `json:"work"`
			Chapters interface{} `json:"chapters"`
		}{work, chapters})
	},
}

func init() {
	discoverCmd.Flags().StringVar(&discoverSource, "source", "", "registered source adapter name (see `inkforge sources`)")
	discoverCmd.Flags().IntVar(&discoverMax, "max", 0, "maximum chapters to return (0 = config default)")
	discoverCmd.Flags().StringVar(&sourcesFile, "sources-file", "", "YAML file of declarative source configurations")
	_ = discoverCmd.MarkFlagRequired("source")
}
