package pipeline

import (
	"context"

	"inkforge/internal/core"
)

// FetchMode selects between a plain HTTP round trip and a headless-browser
// render pass.
type FetchMode string

const (
	FetchRaw      FetchMode = "raw"
	FetchRendered FetchMode = "rendered"
)

// FetchRequest describes one fetch operation.
type FetchRequest struct {
	URL    string
	Mode   FetchMode
	Reveal *core.RevealGesture // optional click/scroll gesture, rendered mode only
}

// FetchResult is the raw body returned by a fetch, before any adapter parses it.
type FetchResult struct {
	URL        string
	StatusCode int
	Body       []byte
	FinalURL   string // after redirects
}

// Fetcher performs raw or rendered HTTP retrieval with retry and per-host
// pooling. Implementations must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error)
	// Close releases any held resources (browser instance, connection pool).
	Close() error
}

// ContentStore is the content-addressable filesystem cache keyed by work and
// chapter number.
type ContentStore interface {
	// ChapterExists reports whether a chapter artifact of the given format and
	// language is already cached for work.
	ChapterExists(work core.Work, chapterNumber float64, format, lang string) (bool, error)
	// SaveChapter persists env under the deterministic path for work, returning
	// the path written.
	SaveChapter(ctx context.Context, work core.Work, env core.ContentEnvelope, format, lang string) (string, error)
	// LoadChapter reads back a previously saved chapter artifact.
	LoadChapter(work core.Work, chapterNumber float64, format, lang string) (core.ContentEnvelope, error)
	// SaveBundle persists an assembled bundle file under the work's directory,
	// returning the path written.
	SaveBundle(ctx context.Context, work core.Work, filename string, data []byte) (string, error)
	// BundleExists reports whether a bundle with filename is already cached.
	BundleExists(work core.Work, filename string) (bool, error)
	// LoadBundle reads back a previously saved bundle file.
	LoadBundle(work core.Work, filename string) ([]byte, error)
}

// Translator translates one HTML-bearing chunk of chapter content, honoring a
// glossary's pinned terms.
type Translator interface {
	Translate(ctx context.Context, html string, glossary core.Glossary, targetLang string) (string, error)
	// Usage reports quota consumption; free backends return a zero UsageStats
	// and ok=false.
	Usage(ctx context.Context) (stats core.UsageStats, ok bool, err error)
}

// SourceAdapter is the contract every source implementation satisfies,
// whether hand-written or instantiated generically from a SourceConfig.
// Implementations are stateless across calls: no field set by one call to
// Info, Discover, or Materialize may affect a later call.
type SourceAdapter interface {
	// Info returns static metadata about this adapter (name, whether it renders).
	Info() AdapterInfo
	// Discover resolves workURL to a Work and its ordered chapter table of
	// contents, ascending by chapter number. max bounds how many chapters are
	// returned; callers are expected to cap it at the crawl engine's configured
	// ceiling.
	Discover(ctx context.Context, workURL string, max int) (core.Work, []core.ChapterDescriptor, error)
	// Materialize fetches and extracts the full content of one chapter.
	Materialize(ctx context.Context, work core.Work, ch core.ChapterDescriptor) (core.ContentEnvelope, error)
}

// AdapterInfo is static, call-invariant metadata about a SourceAdapter.
type AdapterInfo struct {
	Name     string
	Rendered bool
}
