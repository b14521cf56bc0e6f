// Package generic implements the configuration-driven Generic Adapter: a
// SourceAdapter whose behavior comes entirely from a core.SourceConfig's
// selector map, pattern map, and optional reveal gesture, rather than
// hand-written per-site logic.
package generic

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"inkforge/internal/core"
	"inkforge/internal/pipeline"
)

var defaultUnwantedSelectors = "script, style, .advertisement, .ad, .popup, .modal, .cookie-banner, nav, footer"

var defaultSelectors = map[string]string{
	"title":           "h1",
	"author":          ".author",
	"description":     ".description",
	"cover_image":     ".cover img",
	"status":          ".status",
	"tags":            ".tags a",
	"chapter_list":    ".chapter-list",
	"chapter_item":    ".chapter-list li",
	"chapter_link":    "a",
	"chapter_title":   "a",
	"chapter_content": "article, .chapter-content, .content",
}

var defaultChapterNumberPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

// Adapter implements pipeline.SourceAdapter from a core.SourceConfig.
type Adapter struct {
	cfg     core.SourceConfig
	fetcher pipeline.Fetcher
}

// New builds a generic Adapter over cfg, using fetcher for all retrieval.
func New(cfg core.SourceConfig, fetcher pipeline.Fetcher) *Adapter {
	return &Adapter{cfg: cfg, fetcher: fetcher}
}

var _ pipeline.SourceAdapter = (*Adapter)(nil)

func (a *Adapter) Info() pipeline.AdapterInfo {
	return pipeline.AdapterInfo{Name: a.cfg.Name, Rendered: a.cfg.Rendered}
}

func (a *Adapter) selector(key string) string {
	if v, ok := a.cfg.Selectors[key]; ok && v != "" {
		return v
	}
	return defaultSelectors[key]
}

func (a *Adapter) chapterNumberPattern() *regexp.Regexp {
	if v, ok := a.cfg.Patterns["chapter_number"]; ok && v != "" {
		if re, err := regexp.Compile(v); err == nil {
			return re
		}
	}
	return defaultChapterNumberPattern
}

func (a *Adapter) fetchMode() pipeline.FetchMode {
	if a.cfg.Rendered {
		return pipeline.FetchRendered
	}
	return pipeline.FetchRaw
}

// Discover fetches workURL, extracts Work metadata and the chapter list, and
// returns them ascending by chapter number, truncated to max entries. When
// the config carries a reveal gesture, it is used for the initial fetch so
// that lazily-revealed chapter lists are present before extraction.
func (a *Adapter) Discover(ctx context.Context, workURL string, max int) (core.Work, []core.ChapterDescriptor, error) {
	doc, err := a.fetchDocument(ctx, workURL, a.cfg.RevealAll)
	if err != nil {
		return core.Work{}, nil, err
	}

	work := core.Work{
		ID:          fmt.Sprintf("%s-%s", a.cfg.Name, slugify(workURL)),
		Source:      a.cfg.Name,
		Title:       strings.TrimSpace(doc.Find(a.selector("title")).First().Text()),
		Author:      strings.TrimSpace(doc.Find(a.selector("author")).First().Text()),
		Description: strings.TrimSpace(doc.Find(a.selector("description")).First().Text()),
		SourceURL:   workURL,
		Kind:        core.ContentText,
	}
	if src, ok := doc.Find(a.selector("cover_image")).First().Attr("src"); ok {
		work.CoverImage = src
	}
	doc.Find(a.selector("tags")).Each(func(_ int, s *goquery.Selection) {
		if tag := strings.TrimSpace(s.Text()); tag != "" {
			work.Tags = append(work.Tags, tag)
		}
	})
	statusText := strings.TrimSpace(doc.Find(a.selector("status")).First().Text())
	work.Status = a.resolveStatus(statusText)

	var chapters []core.ChapterDescriptor
	pattern := a.chapterNumberPattern()
	doc.Find(a.selector("chapter_item")).Each(func(i int, s *goquery.Selection) {
		link := s.Find(a.selector("chapter_link")).First()
		href, _ := link.Attr("href")
		title := strings.TrimSpace(s.Find(a.selector("chapter_title")).First().Text())
		if title == "" {
			title = strings.TrimSpace(link.Text())
		}

		number := float64(i + 1)
		if m := pattern.FindStringSubmatch(title); len(m) > 1 {
			if n, err := strconv.ParseFloat(m[1], 64); err == nil {
				number = n
			}
		}

		chapters = append(chapters, core.ChapterDescriptor{
			Number: number,
			Title:  title,
			URL:    resolveURL(workURL, href),
		})
	})

	sort.Slice(chapters, func(i, j int) bool { return chapters[i].Number < chapters[j].Number })
	if max > 0 && len(chapters) > max {
		chapters = chapters[:max]
	}

	return work, chapters, nil
}

// Materialize fetches one chapter's page and extracts its cleaned content
// container as HTML and as plain text.
func (a *Adapter) Materialize(ctx context.Context, work core.Work, ch core.ChapterDescriptor) (core.ContentEnvelope, error) {
	doc, err := a.fetchDocument(ctx, ch.URL, nil)
	if err != nil {
		return core.ContentEnvelope{}, err
	}

	doc.Find(defaultUnwantedSelectors).Remove()
	content := doc.Find(a.selector("chapter_content")).First()
	if content.Length() == 0 {
		return core.ContentEnvelope{}, pipeline.NewError(pipeline.KindExtraction, "chapter content selector matched nothing: "+ch.URL, nil)
	}

	htmlOut, _ := content.Html()
	return core.ContentEnvelope{
		WorkID:    work.ID,
		Number:    ch.Number,
		Title:     ch.Title,
		Kind:      core.ContentText,
		HTML:      htmlOut,
		PlainText: strings.TrimSpace(content.Text()),
		Language:  "en",
	}, nil
}

func (a *Adapter) resolveStatus(raw string) core.WorkStatus {
	if syn, ok := a.cfg.StatusSynonyms[raw]; ok {
		return core.WorkStatus(syn)
	}
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "complet") || strings.Contains(lower, "finaliz"):
		return core.StatusCompleted
	case strings.Contains(lower, "ongoing") || strings.Contains(lower, "publicando") || strings.Contains(lower, "activ"):
		return core.StatusOngoing
	case strings.Contains(lower, "hiatus"):
		return core.StatusHiatus
	default:
		return core.StatusUnknown
	}
}

func (a *Adapter) fetchDocument(ctx context.Context, url string, reveal *core.RevealGesture) (*goquery.Document, error) {
	res, err := a.fetcher.Fetch(ctx, pipeline.FetchRequest{URL: url, Mode: a.fetchMode(), Reveal: reveal})
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(res.Body)))
	if err != nil {
		return nil, pipeline.NewError(pipeline.KindExtraction, "parse html from "+url, err)
	}
	return doc, nil
}

func slugify(raw string) string {
	lower := strings.ToLower(raw)
	var sb strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteRune('-')
		}
	}
	slug := strings.Trim(sb.String(), "-")
	if len(slug) > 48 {
		slug = slug[:48]
	}
	return slug
}

func resolveURL(base, href string) string {
	if href == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	refURL, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(refURL).String()
}
