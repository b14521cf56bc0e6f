package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"inkforge/internal/config"
	"inkforge/internal/core"
	"inkforge/internal/logger"
)

var (
	fetchSource    string
	fetchWorkURL   string
	fetchChapter   float64
	fetchFrom      float64
	fetchTo        float64
	fetchFormat    string
	fetchLang      string
	fetchTranslate string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Materialize one or more chapters and persist them to the content store",
	Long: `fetch discovers a work's chapter table of contents, then materializes and
caches each requested chapter. Use --chapter for a single chapter number or
--from/--to for an inclusive range; omit both to fetch every discovered
chapter.`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.fetcher.Close()

		cfg := config.Get()
		ctx := context.Background()

		work, chapters, err := a.dispatcher.Discover(ctx, fetchSource, fetchWorkURL, cfg.Crawl.HardMaxChapters)
		if err != nil {
			return err
		}

		targets := selectChapters(chapters, fetchChapter, fetchFrom, fetchTo)
		if len(targets) == 0 {
			return fmt.Errorf("no chapters matched the requested selection")
		}

		lang := fetchLang
		if lang == "" {
			lang = "source"
		}

		for _, ch := range targets {
			if ok, _ := a.store.ChapterExists(work, ch.Number, fetchFormat, lang); ok {
				logger.Info("chapter already cached", map[string]any{"work": work.ID, "chapter": ch.Number})
				continue
			}

			env, err := a.dispatcher.Materialize(ctx, fetchSource, work, ch)
			if err != nil {
				logger.Error("materialize failed", err, map[string]any{"work": work.ID, "chapter": ch.Number})
				return err
			}

			if fetchTranslate != "" {
				env = translateEnvelope(ctx, a, env, fetchTranslate)
				lang = fetchTranslate
			}

			path, err := a.store.SaveChapter(ctx, work, env, fetchFormat, lang)
			if err != nil {
				return err
			}
			logger.Info("chapter saved", map[string]any{"work": work.ID, "chapter": ch.Number, "path": path})
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchSource, "source", "", "registered source adapter name")
	fetchCmd.Flags().StringVar(&fetchWorkURL, "work-url", "", "the work's table-of-contents URL")
	fetchCmd.Flags().Float64Var(&fetchChapter, "chapter", 0, "fetch a single chapter number")
	fetchCmd.Flags().Float64Var(&fetchFrom, "from", 0, "start of an inclusive chapter range")
	fetchCmd.Flags().Float64Var(&fetchTo, "to", 0, "end of an inclusive chapter range")
	fetchCmd.Flags().StringVar(&fetchFormat, "format", "json", "stored artifact format tag")
	fetchCmd.Flags().StringVar(&fetchLang, "lang", "", "stored artifact language tag (default: \"source\")")
	fetchCmd.Flags().StringVar(&fetchTranslate, "translate", "", "translate into this BCP-47 target language before saving")
	fetchCmd.Flags().StringVar(&sourcesFile, "sources-file", "", "YAML file of declarative source configurations")
	_ = fetchCmd.MarkFlagRequired("source")
	_ = fetchCmd.MarkFlagRequired("work-url")
}

// selectChapters narrows chapters to a single number, a range, or everything,
// depending on which selector flags were set.
func selectChapters(chapters []core.ChapterDescriptor, single, from, to float64) []core.ChapterDescriptor {
	switch {
	case single > 0:
		for _, ch := range chapters {
			if ch.Number == single {
				return []core.ChapterDescriptor{ch}
			}
		}
		return nil
	case from > 0 || to > 0:
		var out []core.ChapterDescriptor
		for _, ch := range chapters {
			if ch.Number >= from && (to == 0 || ch.Number <= to) {
				out = append(out, ch)
			}
		}
		return out
	default:
		return chapters
	}
}

func translateEnvelope(ctx context.Context, a *app, env core.ContentEnvelope, targetLang string) core.ContentEnvelope {
	if a.translator == nil || env.HTML == "" {
		return env
	}
	translated, err := a.translator.Translate(ctx, env.HTML, core.Glossary{}, targetLang)
	if err != nil {
		logger.Warn("translation failed, keeping source text", map[string]any{"error": err.Error()})
		return env
	}
	env.HTML = translated
	env.Language = targetLang
	return env
}
