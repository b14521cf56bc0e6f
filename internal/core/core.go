// Package core holds the domain types shared by every pipeline component:
// works, chapters, cached artifacts, source configuration, and glossaries.
package core

import "time"

// ContentKind distinguishes a textual chapter from an image-sequence chapter.
type ContentKind string

const (
	ContentText  ContentKind = "text"  // prose, HTML-bearing
	ContentComic ContentKind = "comic" // ordered image sequence
)

// WorkStatus is the publication status of a Work, normalized from whatever
// synonym a source site uses ("Ongoing", "PUBLICANDOSE", "Completo", ...).
type WorkStatus string

const (
	StatusOngoing   WorkStatus = "ongoing"
	StatusCompleted WorkStatus = "completed"
	StatusHiatus    WorkStatus = "hiatus"
	StatusUnknown   WorkStatus = "unknown"
)

// Work describes a single title discoverable at a source: a novel, manhwa, or
// comic series identified by its source-qualified slug.
type Work struct {
	ID          string      `json:"id"`          // source-qualified identifier, e.g. "pastebin-tbate"
	Source      string      `json:"source"`      // adapter name this work was resolved from
	Title       string      `json:"title"`       // display title, used (sanitized) in store paths
	Author      string      `json:"author"`      // empty if unknown
	Description string      `json:"description"` // empty if unknown
	CoverImage  string      `json:"cover_image"` // absolute URL, empty if unknown
	Status      WorkStatus  `json:"status"`
	Tags        []string    `json:"tags"`
	Kind        ContentKind `json:"kind"` // drives which adapter materialize path is used
	SourceURL   string      `json:"source_url"`
}

// ChapterDescriptor is one entry in a Work's ordered table of contents, as
// produced by an adapter's discover operation.
type ChapterDescriptor struct {
	Number float64 `json:"number"` // ascending, not necessarily contiguous; fractional values (e.g. 12.5) are valid
	Title  string  `json:"title"`
	URL    string  `json:"url"` // adapter-resolvable; absolute only where the adapter resolves it
}

// ImageRef is one image in a comic chapter's ordered page sequence.
type ImageRef struct {
	Index     int    `json:"index"` // 1-based page ordinal
	SourceURL string `json:"source_url"`
	LocalPath string `json:"local_path"` // empty until downloaded by the content store
}

// ContentEnvelope is the materialized body of one chapter, as returned by an
// adapter's materialize operation and as persisted by the content store.
type ContentEnvelope struct {
	WorkID    string      `json:"work_id"`
	Number    float64     `json:"number"`
	Title     string      `json:"title"`
	Kind      ContentKind `json:"kind"`
	HTML      string      `json:"html,omitempty"`
	PlainText string      `json:"plain_text,omitempty"`
	Images    []ImageRef  `json:"images,omitempty"`
	Language  string      `json:"language"` // BCP-47 tag of the content as fetched
	FetchedAt time.Time   `json:"fetched_at"`
}

// SourceConfig is the declarative description of one site adapter, either a
// generic selector/pattern map or a marker for a hand-written site-specific
// adapter.
type SourceConfig struct {
	Name           string            `json:"name" yaml:"name"`
	BaseURL        string            `json:"base_url" yaml:"base_url"`
	Adapter        string            `json:"adapter" yaml:"adapter"` // "generic" or a site-specific adapter name
	Rendered       bool              `json:"rendered" yaml:"rendered"`
	Selectors      map[string]string `json:"selectors,omitempty" yaml:"selectors,omitempty"`
	Patterns       map[string]string `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	StatusSynonyms map[string]string `json:"status_synonyms,omitempty" yaml:"status_synonyms,omitempty"`
	RevealAll      *RevealGesture    `json:"reveal_all,omitempty" yaml:"reveal_all,omitempty"`
}

// RevealGesture describes the click/scroll sequence a rendered adapter must
// perform before the full chapter list or image grid is present in the DOM.
type RevealGesture struct {
	ClickSelector    string `json:"click_selector,omitempty" yaml:"click_selector,omitempty"`
	WaitAfterClickMS int    `json:"wait_after_click_ms,omitempty" yaml:"wait_after_click_ms,omitempty"`
	ScrollToBottom   bool   `json:"scroll_to_bottom,omitempty" yaml:"scroll_to_bottom,omitempty"`
}

// Glossary pins source-language terms to a fixed target-language rendering so
// a translator backend does not have to re-derive proper nouns per call.
type Glossary struct {
	SourceLanguage string            `json:"source_language"`
	TargetLanguage string            `json:"target_language"`
	Terms          map[string]string `json:"terms"`
}

// Lookup returns the pinned translation for term, and whether one exists.
func (g Glossary) Lookup(term string) (string, bool) {
	v, ok := g.Terms[term]
	return v, ok
}

// UsageStats reports a paid translator backend's quota consumption. Percent
// is Used/Limit*100 (250 of 500000 is 0.05).
type UsageStats struct {
	Used    int64   `json:"used"`
	Limit   int64   `json:"limit"`
	Percent float64 `json:"percent"`
}
