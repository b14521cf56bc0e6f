// Package bundle implements the Bundler: assembling a selection of chapters
// into a packaged EPUB, materializing and translating on demand and caching
// every artifact it produces along the way.
package bundle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	epub "github.com/go-shiori/go-epub"

	"inkforge/internal/core"
	"inkforge/internal/logger"
	"inkforge/internal/pipeline"
)

// Selection describes which chapters of a work to bundle: either a single
// chapter, an inclusive range, or every chapter passed to Build (uncached ones
// are materialized on demand). Start and End are
// chapter numbers, which may be fractional.
type Selection struct {
	All   bool
	Start float64
	End   float64 // equal to Start for a single-chapter selection
}

// Materializer resolves a source name and materializes one chapter. The
// Bundler uses it to fill a cache miss instead of failing the chapter
// outright; dispatch.Dispatcher satisfies this interface.
type Materializer interface {
	Materialize(ctx context.Context, source string, work core.Work, ch core.ChapterDescriptor) (core.ContentEnvelope, error)
}

// Bundler assembles a Selection of a Work's chapters into an EPUB, using the
// content store for both source chapters and the finished bundle's cache
// slot, an optional Materializer to fill cache misses on demand, and an
// optional translator to localize content before packaging.
type Bundler struct {
	store        pipeline.ContentStore
	translator   pipeline.Translator
	materializer Materializer
	source       string // source adapter name passed to the materializer
}

// New builds a Bundler. translator may be nil to skip translation.
// materializer may be nil, in which case a chapter missing from the store is
// skipped rather than fetched.
func New(store pipeline.ContentStore, translator pipeline.Translator, materializer Materializer, source string) *Bundler {
	return &Bundler{store: store, translator: translator, materializer: materializer, source: source}
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Filename derives the bundle's cache filename from work, sel, and lang (lang
// empty means untranslated), matching the original epub service's pattern:
// "<title>[_chapter_N|_chapters_start_end][_lang].epub".
func Filename(work core.Work, sel Selection, lang string) string {
	base := unsafeFilenameChars.ReplaceAllString(work.Title, "_")
	switch {
	case sel.All:
		// no suffix: the full-book bundle
	case sel.Start == sel.End:
		base += fmt.Sprintf("_chapter_%v", sel.Start)
	default:
		base += fmt.Sprintf("_chapters_%v_%v", sel.Start, sel.End)
	}
	if lang != "" {
		base += "_" + lang
	}
	return base + ".epub"
}

// availableChapters filters chapters to those within [sel.Start, sel.End]
// (or every chapter, for an All selection), ascending by chapter number.
func availableChapters(sel Selection, chapters []core.ChapterDescriptor) []core.ChapterDescriptor {
	var out []core.ChapterDescriptor
	for _, ch := range chapters {
		if sel.All || (ch.Number >= sel.Start && ch.Number <= sel.End) {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// ensureMaterialized consults the store for (work, ch.Number, format, lang);
// on a miss it invokes the materializer, cleans the result, and caches it
// before returning.
func (b *Bundler) ensureMaterialized(ctx context.Context, work core.Work, ch core.ChapterDescriptor, format, lang string) (core.ContentEnvelope, error) {
	if env, err := b.store.LoadChapter(work, ch.Number, format, lang); err == nil {
		return env, nil
	}
	if b.materializer == nil {
		return core.ContentEnvelope{}, pipeline.NewError(pipeline.KindStoreIO, "chapter not cached and no materializer configured", nil)
	}

	env, err := b.materializer.Materialize(ctx, b.source, work, ch)
	if err != nil {
		return core.ContentEnvelope{}, err
	}
	env = cleanEnvelope(env)

	if _, err := b.store.SaveChapter(ctx, work, env, format, lang); err != nil {
		return core.ContentEnvelope{}, err
	}
	return env, nil
}

// cleanEnvelope normalizes a freshly materialized envelope before it is
// cached, trimming incidental whitespace adapters leave at the edges.
func cleanEnvelope(env core.ContentEnvelope) core.ContentEnvelope {
	env.PlainText = strings.TrimSpace(env.PlainText)
	env.HTML = strings.TrimSpace(env.HTML)
	return env
}

// translatedBody returns ch's body in targetLang, consulting the store for a
// previously cached translation under (work, ch.Number, format, targetLang)
// before calling the translator, and persisting a fresh translation so a
// later bundle of the same chapter and language never re-translates it.
func (b *Bundler) translatedBody(ctx context.Context, work core.Work, ch core.ChapterDescriptor, env core.ContentEnvelope, body, format, targetLang string, glossary core.Glossary) string {
	if cached, err := b.store.LoadChapter(work, ch.Number, format, targetLang); err == nil {
		if cached.HTML != "" {
			return cached.HTML
		}
		if cached.PlainText != "" {
			return cached.PlainText
		}
	}

	translated, err := b.translator.Translate(ctx, body, glossary, targetLang)
	if err != nil {
		logger.Warn("chapter translation failed, bundling source text", map[string]any{
			"work": work.ID, "chapter": ch.Number, "error": err.Error(),
		})
		return body
	}

	translatedEnv := env
	translatedEnv.HTML = translated
	translatedEnv.PlainText = ""
	translatedEnv.Language = targetLang
	if _, err := b.store.SaveChapter(ctx, work, translatedEnv, format, targetLang); err != nil {
		logger.Warn("caching translated chapter failed", map[string]any{
			"work": work.ID, "chapter": ch.Number, "error": err.Error(),
		})
	}
	return translated
}

// Build assembles the EPUB for sel out of chapters, materializing any chapter
// absent from the content store (identified by sourceFormat/sourceLang)
// before packaging, and translating each chapter's HTML into targetLang
// first when a translator and non-empty targetLang are configured. A
// single-chapter bundle result is cached under its own filename, distinct
// from any range bundle covering the same chapter, per the content store's
// cache key scheme. Returns pipeline.KindBundleEmpty if no chapter in the
// selection could be assembled.
func (b *Bundler) Build(ctx context.Context, work core.Work, sel Selection, chapters []core.ChapterDescriptor, glossary core.Glossary, targetLang, sourceFormat, sourceLang string) ([]byte, string, error) {
	lang := targetLang
	filename := Filename(work, sel, lang)

	if cached, err := b.store.BundleExists(work, filename); err == nil && cached {
		data, err := b.store.LoadBundle(work, filename)
		if err == nil {
			return data, filename, nil
		}
	}

	book, err := epub.NewEpub(work.Title)
	if err != nil {
		return nil, "", pipeline.NewError(pipeline.KindBundling, "create epub", err)
	}
	if work.Author != "" {
		book.SetAuthor(work.Author)
	}

	assembled := 0
	for _, ch := range availableChapters(sel, chapters) {
		env, err := b.ensureMaterialized(ctx, work, ch, sourceFormat, sourceLang)
		if err != nil {
			logger.Warn("chapter materialize failed, skipping", map[string]any{
				"work": work.ID, "chapter": ch.Number, "error": err.Error(),
			})
			continue
		}

		body := env.HTML
		if body == "" {
			body = "<p>" + strings.ReplaceAll(env.PlainText, "\n", "</p><p>") + "</p>"
		}

		if b.translator != nil && lang != "" && lang != sourceLang {
			body = b.translatedBody(ctx, work, ch, env, body, sourceFormat, lang, glossary)
		}

		title := env.Title
		if title == "" {
			title = fmt.Sprintf("Chapter %v", ch.Number)
		}
		section := fmt.Sprintf("<h1>%s</h1>%s", title, body)
		internalFilename := fmt.Sprintf("chapter_%v.xhtml", ch.Number)
		if _, err := book.AddSection(section, title, internalFilename, ""); err != nil {
			continue
		}
		assembled++
	}

	if assembled == 0 {
		return nil, "", pipeline.NewError(pipeline.KindBundleEmpty, "no chapters assembled for "+work.ID, nil)
	}

	tmpDir, err := os.MkdirTemp("", "inkforge-epub-*")
	if err != nil {
		return nil, "", pipeline.NewError(pipeline.KindBundling, "create temp dir", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	tmpPath := filepath.Join(tmpDir, "bundle.epub")
	if err := book.Write(tmpPath); err != nil {
		return nil, "", pipeline.NewError(pipeline.KindBundling, "write epub", err)
	}
	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, "", pipeline.NewError(pipeline.KindBundling, "read written epub", err)
	}

	if _, err := b.store.SaveBundle(ctx, work, filename, data); err != nil {
		return nil, "", err
	}

	return data, filename, nil
}
