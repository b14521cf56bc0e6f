package cmd

import (
	"fmt"

	"inkforge/internal/adapter/generic"
	"inkforge/internal/adapter/sites"
	"inkforge/internal/catalog"
	"inkforge/internal/config"
	"inkforge/internal/core"
	"inkforge/internal/dispatch"
	"inkforge/internal/fetch"
	"inkforge/internal/pipeline"
	"inkforge/internal/store"
	"inkforge/internal/translate"
)

var sourcesFile string

// app bundles the collaborators every subcommand needs, built once per
// invocation from the loaded configuration.
type app struct {
	cfg        *config.Config
	fetcher    *fetch.Client
	store      *store.FilesystemStore
	translator pipeline.Translator
	dispatcher *dispatch.Dispatcher
	provider   catalog.SourceConfigProvider
}

// buildApp wires a fresh app from the global configuration and the
// --sources-file catalog, registering one adapter factory per catalog entry
// (generic or hand-written, per the entry's Adapter field). Without a
// sources file no source is registered.
func buildApp() (*app, error) {
	cfg := config.Get()

	fetcher := fetch.New(fetch.Options{
		Timeout:             cfg.Fetcher.Timeout(),
		Retries:             cfg.Fetcher.DefaultRetries,
		MaxConnsPerHost:     cfg.Fetcher.MaxConnsPerHost,
		MaxIdleConnsPerHost: cfg.Fetcher.MaxIdleConnsPerHost,
		UserAgent:           cfg.Fetcher.UserAgent,
		ChromeExecutable:    cfg.Fetcher.ChromeExecutablePath,
		DebugScreenshotDir:  cfg.Fetcher.DebugScreenshotDir,
	})

	contentStore := store.New(cfg.Store.Root, cfg.Store.MaxConcurrentImages)

	translator, err := buildTranslator(cfg)
	if err != nil {
		return nil, err
	}

	registry := dispatch.NewRegistry()

	var provider catalog.SourceConfigProvider
	if sourcesFile != "" {
		p, err := catalog.LoadFileProvider(sourcesFile)
		if err != nil {
			return nil, fmt.Errorf("load sources file: %w", err)
		}
		provider = p
		configs, err := p.List()
		if err != nil {
			return nil, err
		}
		for _, sc := range configs {
			registerSource(registry, sc)
		}
	}

	return &app{
		cfg:        cfg,
		fetcher:    fetcher,
		store:      contentStore,
		translator: translator,
		dispatcher: dispatch.New(registry, fetcher),
		provider:   provider,
	}, nil
}

// registerSource adds one catalog entry to registry, dispatching on its
// Adapter field the way the teacher's search provider factory dispatches on
// provider name.
func registerSource(registry *dispatch.Registry, sc core.SourceConfig) {
	switch sc.Adapter {
	case "", "generic":
		registry.Register(sc.Name, func(f pipeline.Fetcher) pipeline.SourceAdapter {
			return generic.New(sc, f)
		})
	case "rawtext":
		registry.Register(sc.Name, func(f pipeline.Fetcher) pipeline.SourceAdapter {
			rawURLFunc := sites.ConvertPastebinToRaw
			if sc.Patterns["raw_url_passthrough"] == "true" {
				rawURLFunc = func(u string) string { return u }
			}
			return sites.NewRawTextAdapter(sc.Name, f, rawURLFunc)
		})
	case "comicgrid":
		registry.Register(sc.Name, func(f pipeline.Fetcher) pipeline.SourceAdapter {
			return sites.NewComicGridAdapter(sc.Name, f, sites.ComicGridConfig{
				SeriesSelector:  sc.Selectors["series"],
				ChapterSelector: sc.Selectors["chapter"],
				ImageSelector:   sc.Selectors["image"],
				RevealAll:       sc.RevealAll,
			})
		})
	case "expandablepanel":
		registry.Register(sc.Name, func(f pipeline.Fetcher) pipeline.SourceAdapter {
			return sites.NewExpandablePanelAdapter(sc.Name, f, sites.ExpandablePanelConfig{
				ContentTabSelector:       sc.Selectors["content_tab"],
				PanelHeaderSelector:      sc.Selectors["panel_header"],
				ChapterLinkSelector:      sc.Selectors["chapter_link"],
				ChapterTitleSelector:     sc.Selectors["chapter_title"],
				ContentContainerSelector: sc.Selectors["content_container"],
				InlineBlockTag:           sc.Patterns["inline_block_tag"],
			})
		})
	}
}

func buildTranslator(cfg *config.Config) (pipeline.Translator, error) {
	var backend translate.Backend
	switch cfg.Translator.Backend {
	case "paid":
		backend = translate.NewPaidBackend(cfg.Translator.APIKey, cfg.Translator.APIEndpoint)
	case "free":
		backend = translate.NewFreeBackend(cfg.Translator.APIEndpoint, "")
	default:
		return nil, fmt.Errorf("unknown translator backend %q", cfg.Translator.Backend)
	}
	return translate.New(backend, cfg.Translator.MaxChunkChars), nil
}
