// Package translate implements the HTML-structure-preserving chunked
// translator: a tag-boundary-aware chunker, glossary term pinning, and two
// interchangeable backends (a paid DeepL-shaped HTTP API and a free
// backend that marks usage reporting unsupported).
package translate

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"inkforge/internal/core"
	"inkforge/internal/logger"
	"inkforge/internal/pipeline"
)

// Backend is the minimal interface a translation provider implements; it
// receives already-chunked, already-glossary-substituted HTML and an
// optional bound glossary id (empty when no glossary is bound or the backend
// does not support one).
type Backend interface {
	TranslateChunk(ctx context.Context, html, targetLang, glossaryID string) (string, error)
	Usage(ctx context.Context) (core.UsageStats, bool, error)
}

// GlossaryBinder is implemented by backends whose API supports server-side
// named glossaries. Translator calls BindGlossary once per distinct
// (source, target) language pair and reuses the returned id on every
// subsequent chunk call for that pair.
type GlossaryBinder interface {
	BindGlossary(ctx context.Context, glossary core.Glossary) (string, error)
}

// Translator implements pipeline.Translator by chunking HTML to a configured
// size, pinning glossary terms, delegating each chunk to a Backend, and
// falling back to the original chunk text on a per-chunk failure.
type Translator struct {
	backend       Backend
	maxChunkChars int

	mu          sync.Mutex
	glossaryIDs map[string]string // "srcLang->tgtLang" -> bound glossary id
}

// New builds a Translator over backend, chunking at maxChunkChars (or 5000 if
// non-positive).
func New(backend Backend, maxChunkChars int) *Translator {
	if maxChunkChars <= 0 {
		maxChunkChars = 5000
	}
	return &Translator{backend: backend, maxChunkChars: maxChunkChars, glossaryIDs: make(map[string]string)}
}

var _ pipeline.Translator = (*Translator)(nil)

// Translate splits html into chunks, pins glossary terms in each chunk, and
// translates them in order (one request's chunks are serialized; the
// equivalence (html, glossary, targetLang) -> output is pure, so identical
// calls cache equivalently at the content-store layer). It refuses to start
// when the backend reports used >= limit.
func (t *Translator) Translate(ctx context.Context, htmlFragment string, glossary core.Glossary, targetLang string) (string, error) {
	canonicalLang, err := canonicalizeLanguage(targetLang)
	if err != nil {
		return "", pipeline.NewError(pipeline.KindTranslation, "invalid target language "+targetLang, err)
	}

	if stats, ok, err := t.backend.Usage(ctx); err != nil {
		logger.Warn("translator usage check failed, proceeding without quota enforcement", map[string]any{"error": err.Error()})
	} else if ok && stats.Limit > 0 && stats.Used >= stats.Limit {
		return "", pipeline.NewError(pipeline.KindTranslationQuotaExceeded, "translation quota exhausted", nil)
	}

	glossaryID := t.glossaryIDFor(ctx, glossary, canonicalLang)

	chunks, err := splitIntoChunks(htmlFragment, t.maxChunkChars)
	if err != nil {
		return "", pipeline.NewError(pipeline.KindTranslation, "chunk html", err)
	}

	var out strings.Builder
	for _, chunk := range chunks {
		pinned := applyGlossary(chunk, glossary)
		translated, err := t.backend.TranslateChunk(ctx, pinned, canonicalLang, glossaryID)
		if err != nil {
			// Per-chunk failure is non-fatal: emit the original chunk and continue.
			out.WriteString(chunk)
			continue
		}
		out.WriteString(translated)
	}
	return out.String(), nil
}

// glossaryIDFor binds glossary with the backend on first use for the
// (glossary.SourceLanguage, targetLang) pair and caches the resulting id for
// later calls; backends that do not implement GlossaryBinder, or a request
// carrying no glossary terms, return an empty id.
func (t *Translator) glossaryIDFor(ctx context.Context, glossary core.Glossary, targetLang string) string {
	if len(glossary.Terms) == 0 {
		return ""
	}
	binder, ok := t.backend.(GlossaryBinder)
	if !ok {
		return ""
	}

	key := glossary.SourceLanguage + "->" + targetLang
	t.mu.Lock()
	if id, ok := t.glossaryIDs[key]; ok {
		t.mu.Unlock()
		return id
	}
	t.mu.Unlock()

	id, err := binder.BindGlossary(ctx, glossary)
	if err != nil {
		logger.Warn("glossary bind failed, translating without a bound glossary", map[string]any{"error": err.Error()})
		return ""
	}

	t.mu.Lock()
	t.glossaryIDs[key] = id
	t.mu.Unlock()
	return id
}

// Usage reports the backend's quota consumption; free backends report ok=false.
func (t *Translator) Usage(ctx context.Context) (core.UsageStats, bool, error) {
	return t.backend.Usage(ctx)
}

// applyGlossary replaces every occurrence of a glossary source term with its
// pinned target-language rendering before the chunk reaches the backend.
func applyGlossary(chunk string, glossary core.Glossary) string {
	if len(glossary.Terms) == 0 {
		return chunk
	}
	result := chunk
	for term, rendering := range glossary.Terms {
		if term == "" || term == rendering {
			continue
		}
		result = strings.ReplaceAll(result, term, rendering)
	}
	return result
}

func canonicalizeLanguage(lang string) (string, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return "", err
	}
	return tag.String(), nil
}
