package sites

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"inkforge/internal/core"
	"inkforge/internal/pipeline"
)

var adTagPrefixes = []string{"miad-block", "_mgwidget"}

// ExpandablePanelConfig holds the selectors needed to reveal and read a
// volume/chapter tree hidden behind expansion-panel headers.
type ExpandablePanelConfig struct {
	ContentTabSelector  string // e.g. a "Contents" tab that must be clicked first
	PanelHeaderSelector string // stored but not used: Discover does not click panel headers
	ChapterLinkSelector string
	ChapterTitleSelector string
	ContentContainerSelector string
	InlineBlockTag           string // tag name hoisted during content extraction, default "markdown"
}

// ExpandablePanelAdapter handles text sources whose chapter tree sits behind
// a contents tab and expansion panels, and whose chapter body is assembled
// from multiple inline rich-text blocks rather than one content container.
// Discover clicks only the contents tab (ContentTabSelector) and scrolls to
// the bottom; it does not expand individual panels, so links inside panels
// that stay collapsed are not discovered.
type ExpandablePanelAdapter struct {
	name    string
	fetcher pipeline.Fetcher
	cfg     ExpandablePanelConfig
}

// NewExpandablePanelAdapter builds an ExpandablePanelAdapter.
func NewExpandablePanelAdapter(name string, fetcher pipeline.Fetcher, cfg ExpandablePanelConfig) *ExpandablePanelAdapter {
	if cfg.InlineBlockTag == "" {
		cfg.InlineBlockTag = "markdown"
	}
	return &ExpandablePanelAdapter{name: name, fetcher: fetcher, cfg: cfg}
}

var _ pipeline.SourceAdapter = (*ExpandablePanelAdapter)(nil)

func (a *ExpandablePanelAdapter) Info() pipeline.AdapterInfo {
	return pipeline.AdapterInfo{Name: a.name, Rendered: true}
}

func (a *ExpandablePanelAdapter) Discover(ctx context.Context, workURL string, max int) (core.Work, []core.ChapterDescriptor, error) {
	reveal := &core.RevealGesture{
		ClickSelector:    a.cfg.ContentTabSelector,
		WaitAfterClickMS: 300,
		ScrollToBottom:   true,
	}
	res, err := a.fetcher.Fetch(ctx, pipeline.FetchRequest{URL: workURL, Mode: pipeline.FetchRendered, Reveal: reveal})
	if err != nil {
		return core.Work{}, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(res.Body)))
	if err != nil {
		return core.Work{}, nil, pipeline.NewError(pipeline.KindExtraction, "parse series page", err)
	}

	work := core.Work{
		ID:        a.name + "-" + slug(workURL),
		Source:    a.name,
		Title:     strings.TrimSpace(doc.Find("h1").First().Text()),
		Kind:      core.ContentText,
		SourceURL: workURL,
	}

	chapterNumberRe := regexp.MustCompile(`(\d+(?:\.\d+)?)`)
	var chapters []core.ChapterDescriptor
	doc.Find(a.cfg.ChapterLinkSelector).Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		title := strings.TrimSpace(s.Find(a.cfg.ChapterTitleSelector).First().Text())
		if title == "" {
			title = strings.TrimSpace(s.Text())
		}

		number := float64(i + 1)
		if m := chapterNumberRe.FindStringSubmatch(title); len(m) > 1 {
			if n, err := strconv.ParseFloat(m[1], 64); err == nil {
				number = n
			}
		} else if m := chapterNumberRe.FindStringSubmatch(href); len(m) > 1 {
			if n, err := strconv.ParseFloat(m[1], 64); err == nil {
				number = n
			}
		}

		chapters = append(chapters, core.ChapterDescriptor{Number: number, Title: title, URL: href})
	})

	sort.SliceStable(chapters, func(i, j int) bool { return chapters[i].Number < chapters[j].Number })
	if max > 0 && len(chapters) > max {
		chapters = chapters[:max]
	}
	return work, chapters, nil
}

// Materialize renders the chapter page and concatenates every inline
// rich-text block inside the content container, in document order, after
// stripping ad-widget elements and scripts.
func (a *ExpandablePanelAdapter) Materialize(ctx context.Context, work core.Work, ch core.ChapterDescriptor) (core.ContentEnvelope, error) {
	res, err := a.fetcher.Fetch(ctx, pipeline.FetchRequest{URL: ch.URL, Mode: pipeline.FetchRendered})
	if err != nil {
		return core.ContentEnvelope{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(res.Body)))
	if err != nil {
		return core.ContentEnvelope{}, pipeline.NewError(pipeline.KindExtraction, "parse chapter page", err)
	}

	container := doc.Find(a.cfg.ContentContainerSelector).First()
	if container.Length() == 0 {
		return core.ContentEnvelope{}, pipeline.NewError(pipeline.KindExtraction, "content container matched nothing: "+ch.URL, nil)
	}
	stripAdWidgets(container)
	container.Find("script, style").Remove()

	var sb strings.Builder
	container.Find(a.cfg.InlineBlockTag).Each(func(_ int, block *goquery.Selection) {
		text := strings.TrimSpace(block.Text())
		if text != "" {
			sb.WriteString(text)
			sb.WriteString("\n\n")
		}
	})
	plain := strings.TrimSpace(sb.String())
	if plain == "" {
		plain = strings.TrimSpace(container.Text())
	}

	return core.ContentEnvelope{
		WorkID:    work.ID,
		Number:    ch.Number,
		Title:     ch.Title,
		Kind:      core.ContentText,
		PlainText: plain,
	}, nil
}

func stripAdWidgets(container *goquery.Selection) {
	container.Find("*").Each(func(_ int, s *goquery.Selection) {
		tag := strings.ToLower(goquery.NodeName(s))
		for _, prefix := range adTagPrefixes {
			if strings.HasPrefix(tag, prefix) {
				s.Remove()
				return
			}
		}
		if id, ok := s.Attr("id"); ok {
			for _, prefix := range adTagPrefixes {
				if strings.HasPrefix(id, prefix) {
					s.Remove()
					return
				}
			}
		}
	})
}
