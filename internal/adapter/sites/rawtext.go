// Package sites holds the hand-tuned Site-Specific Adapters for the three
// structural patterns the Generic Adapter cannot express: paginated raw-text
// sources, comic sites with a lazy-loaded image grid, and expandable-panel
// text sources.
package sites

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"context"

	"inkforge/internal/core"
	"inkforge/internal/crawl"
	"inkforge/internal/pipeline"
)

const rawTextSizeCap = 500_000 // bytes; matches the original scraper's truncation safeguard

var (
	nextChapterRe = regexp.MustCompile(`(?i)cap[ií]tulo\s+\d+:\s*(https?://\S+)`)
	dateSentinel  = regexp.MustCompile(`(?i)cap[ií]tulo\s+\d+:\s*\d{2}/\d{2}/\d{4}`)
	digitsOnlyRe  = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	urlTailDigits = regexp.MustCompile(`(\d+)/?$`)
)

// RawTextAdapter handles sources whose chapters are plain-text pages linked
// in a chain: each page begins with a bare chapter number line, followed by
// a title line, with the link to the next page embedded further down the
// page text (a trailing date line instead of a link marks the end of the
// chain). Pastebin's "raw" paste view is the canonical example.
type RawTextAdapter struct {
	name       string
	fetcher    pipeline.Fetcher
	rawURLFunc func(string) string // rewrites a viewer URL to its raw-text form
}

// NewRawTextAdapter builds a RawTextAdapter. rawURLFunc may be nil, in which
// case discovered URLs are used unmodified.
func NewRawTextAdapter(name string, fetcher pipeline.Fetcher, rawURLFunc func(string) string) *RawTextAdapter {
	if rawURLFunc == nil {
		rawURLFunc = func(u string) string { return u }
	}
	return &RawTextAdapter{name: name, fetcher: fetcher, rawURLFunc: rawURLFunc}
}

var _ pipeline.SourceAdapter = (*RawTextAdapter)(nil)

func (a *RawTextAdapter) Info() pipeline.AdapterInfo {
	return pipeline.AdapterInfo{Name: a.name, Rendered: false}
}

// Discover walks the next-chapter link chain from workURL using the crawl
// engine, parsing each page's chapter number, title, and next link. A page
// with no numeric line takes its chapter number from the URL's trailing
// digits, if it has any.
func (a *RawTextAdapter) Discover(ctx context.Context, workURL string, max int) (core.Work, []core.ChapterDescriptor, error) {
	work := core.Work{
		ID:        a.name + "-" + slug(workURL),
		Source:    a.name,
		Kind:      core.ContentText,
		SourceURL: workURL,
		Status:    core.StatusOngoing,
	}

	chapters, err := crawl.Run(ctx, a.rawURLFunc(workURL), max, func(ctx context.Context, url string) (crawl.Step, error) {
		res, err := a.fetcher.Fetch(ctx, pipeline.FetchRequest{URL: url, Mode: pipeline.FetchRaw})
		if err != nil {
			return crawl.Step{}, err
		}
		body := res.Body
		if len(body) > rawTextSizeCap {
			body = body[:rawTextSizeCap]
		}
		step := parseRawTextPage(string(body), a.rawURLFunc)
		if step.Chapter == nil {
			// No numeric line on the page: fall back to the URL's trailing digits.
			if m := urlTailDigits.FindStringSubmatch(url); len(m) > 1 {
				if n, err := strconv.ParseFloat(m[1], 64); err == nil {
					step.Chapter = &core.ChapterDescriptor{Number: n}
				}
			}
		}
		if step.Chapter != nil {
			step.Chapter.URL = url
		}
		return step, nil
	})
	if err != nil && len(chapters) == 0 {
		return core.Work{}, nil, err
	}
	if work.Title == "" {
		work.Title = work.ID
	}
	return work, chapters, nil
}

// Materialize re-fetches the chapter's raw page and returns its body text
// (everything after the number/title header lines) as plain text.
func (a *RawTextAdapter) Materialize(ctx context.Context, work core.Work, ch core.ChapterDescriptor) (core.ContentEnvelope, error) {
	res, err := a.fetcher.Fetch(ctx, pipeline.FetchRequest{URL: a.rawURLFunc(ch.URL), Mode: pipeline.FetchRaw})
	if err != nil {
		return core.ContentEnvelope{}, err
	}
	body := res.Body
	if len(body) > rawTextSizeCap {
		body = body[:rawTextSizeCap]
	}

	lines := strings.Split(string(body), "\n")
	content := strings.Join(lines[min(2, len(lines)):], "\n")

	return core.ContentEnvelope{
		WorkID:    work.ID,
		Number:    ch.Number,
		Title:     ch.Title,
		Kind:      core.ContentText,
		PlainText: strings.TrimSpace(content),
		Language:  "es",
	}, nil
}

// parseRawTextPage implements the original scraper's per-page parsing rules:
// the first numeric-only line (integer or decimal) is the chapter number, the
// next non-empty line is
// the title, a "Capítulo N: <url>" line further down is the next chapter
// link, and a "Capítulo N: <date>" line with no URL terminates the chain.
func parseRawTextPage(body string, rawURLFunc func(string) string) crawl.Step {
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var number float64
	var title string
	foundNumber := false

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !foundNumber && digitsOnlyRe.MatchString(trimmed) {
			n, err := strconv.ParseFloat(trimmed, 64)
			if err == nil {
				number = n
				foundNumber = true
				for j := i + 1; j < len(lines); j++ {
					if next := strings.TrimSpace(lines[j]); next != "" {
						title = next
						break
					}
				}
			}
		}
	}

	if dateSentinel.MatchString(body) {
		if !foundNumber {
			return crawl.Step{Terminate: true}
		}
		return crawl.Step{
			Chapter:   &core.ChapterDescriptor{Number: number, Title: title},
			Terminate: true,
		}
	}

	if m := nextChapterRe.FindStringSubmatch(body); len(m) > 1 {
		next := rawURLFunc(m[1])
		if !foundNumber {
			return crawl.Step{NextURL: next}
		}
		return crawl.Step{
			Chapter: &core.ChapterDescriptor{Number: number, Title: title},
			NextURL: next,
		}
	}

	// No next link and no terminal sentinel: treat as the end of the chain.
	if foundNumber {
		return crawl.Step{Chapter: &core.ChapterDescriptor{Number: number, Title: title}, Terminate: true}
	}
	return crawl.Step{Terminate: true}
}

func slug(raw string) string {
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
	return strings.Trim(sb.String(), "-")
}

// ConvertPastebinToRaw rewrites a pastebin.com viewer URL to its raw-text
// form ("pastebin.com/X" -> "pastebin.com/raw/X"), matching the original
// scraper's URL normalization.
func ConvertPastebinToRaw(u string) string {
	if strings.Contains(u, "pastebin.com/raw/") {
		return u
	}
	return strings.Replace(u, "pastebin.com/", "pastebin.com/raw/", 1)
}
