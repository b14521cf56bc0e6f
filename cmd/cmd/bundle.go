package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"inkforge/internal/bundle"
	"inkforge/internal/config"
	"inkforge/internal/logger"
	"inkforge/internal/translate"
)

var (
	bundleSource  string
	bundleWorkURL string
	bundleChapter float64
	bundleFrom    float64
	bundleTo      float64
	bundleAll     bool
	bundleFormat  string
	bundleLang    string
	bundleTarget  string
	bundleOutPath string
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Assemble a selection of cached chapters into an EPUB",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.fetcher.Close()

		cfg := config.Get()
		ctx := context.Background()

		work, chapters, err := a.dispatcher.Discover(ctx, bundleSource, bundleWorkURL, cfg.Crawl.HardMaxChapters)
		if err != nil {
			return err
		}

		sel, err := resolveSelection(bundleAll, bundleChapter, bundleFrom, bundleTo)
		if err != nil {
			return err
		}

		glossary := translate.ExampleGlossary(bundleLang, bundleTarget)

		b := bundle.New(a.store, a.translator, a.dispatcher, bundleSource)
		data, filename, err := b.Build(ctx, work, sel, chapters, glossary, bundleTarget, bundleFormat, lastOrDefault(bundleLang, "source"))
		if err != nil {
			return err
		}

		outPath := bundleOutPath
		if outPath == "" {
			outPath = filename
		}
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", outPath, err)
		}
		logger.Info("bundle written", map[string]any{"work": work.ID, "path": outPath, "chapters": len(chapters)})
		return nil
	},
}

func init() {
	bundleCmd.Flags().StringVar(&bundleSource, "source", "", "registered source adapter name")
	bundleCmd.Flags().StringVar(&bundleWorkURL, "work-url", "", "the work's table-of-contents URL")
	bundleCmd.Flags().Float64Var(&bundleChapter, "chapter", 0, "bundle a single chapter number")
	bundleCmd.Flags().Float64Var(&bundleFrom, "from", 0, "start of an inclusive chapter range")
	bundleCmd.Flags().Float64Var(&bundleTo, "to", 0, "end of an inclusive chapter range")
	bundleCmd.Flags().BoolVar(&bundleAll, "all", false, "bundle every discovered chapter")
	bundleCmd.Flags().StringVar(&bundleFormat, "format", "json", "stored chapter artifact format tag to read from")
	bundleCmd.Flags().StringVar(&bundleLang, "source-lang", "", "stored chapter artifact language tag to read from (default: \"source\")")
	bundleCmd.Flags().StringVar(&bundleTarget, "target-lang", "", "translate each chapter into this BCP-47 language before packaging")
	bundleCmd.Flags().StringVar(&bundleOutPath, "out", "", "output file path (default: the bundle's derived cache filename)")
	bundleCmd.Flags().StringVar(&sourcesFile, "sources-file", "", "YAML file of declarative source configurations")
	_ = bundleCmd.MarkFlagRequired("source")
	_ = bundleCmd.MarkFlagRequired("work-url")
}

func resolveSelection(all bool, chapter, from, to float64) (bundle.Selection, error) {
	switch {
	case all:
		return bundle.Selection{All: true}, nil
	case chapter > 0:
		return bundle.Selection{Start: chapter, End: chapter}, nil
	case from > 0 && to > 0:
		return bundle.Selection{Start: from, End: to}, nil
	default:
		return bundle.Selection{}, fmt.Errorf("specify --all, --chapter, or --from/--to")
	}
}

func lastOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
