package sites

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"inkforge/internal/core"
	"inkforge/internal/pipeline"
)

var adImageMarkers = []string{"ads", "pubadx", "advertisement", "loading.gif"}

// ComicGridAdapter handles comic sites that lazy-load their page images into
// a grid behind a "view all" gesture: the chapter list and the image list
// both require a rendered fetch with a reveal gesture before extraction.
type ComicGridAdapter struct {
	name             string
	fetcher          pipeline.Fetcher
	seriesSelector   string
	chapterSelector  string
	imageSelector    string
	revealAll        *core.RevealGesture
}

// ComicGridConfig holds the selector set a given comic site needs.
type ComicGridConfig struct {
	SeriesSelector  string // container listing chapter links
	ChapterSelector string // one chapter link within the series container
	ImageSelector   string // one <img> within the chapter's image container
	RevealAll       *core.RevealGesture
}

// NewComicGridAdapter builds a ComicGridAdapter.
func NewComicGridAdapter(name string, fetcher pipeline.Fetcher, cfg ComicGridConfig) *ComicGridAdapter {
	return &ComicGridAdapter{
		name:            name,
		fetcher:         fetcher,
		seriesSelector:  cfg.SeriesSelector,
		chapterSelector: cfg.ChapterSelector,
		imageSelector:   cfg.ImageSelector,
		revealAll:       cfg.RevealAll,
	}
}

var _ pipeline.SourceAdapter = (*ComicGridAdapter)(nil)

func (a *ComicGridAdapter) Info() pipeline.AdapterInfo {
	return pipeline.AdapterInfo{Name: a.name, Rendered: true}
}

func (a *ComicGridAdapter) Discover(ctx context.Context, workURL string, max int) (core.Work, []core.ChapterDescriptor, error) {
	res, err := a.fetcher.Fetch(ctx, pipeline.FetchRequest{URL: workURL, Mode: pipeline.FetchRendered, Reveal: a.revealAll})
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
		Kind:      core.ContentComic,
		SourceURL: workURL,
	}

	var chapters []core.ChapterDescriptor
	doc.Find(a.seriesSelector).Find(a.chapterSelector).Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		chapters = append(chapters, core.ChapterDescriptor{
			Number: float64(i + 1),
			Title:  strings.TrimSpace(s.Text()),
			URL:    href,
		})
	})
	if max > 0 && len(chapters) > max {
		chapters = chapters[:max]
	}
	return work, chapters, nil
}

// Materialize renders the chapter page, reveals the full image grid, and
// extracts every image, filtering out ad/placeholder images and 1x1 tracking
// pixels, then assigns each surviving image an ascending ordinal.
func (a *ComicGridAdapter) Materialize(ctx context.Context, work core.Work, ch core.ChapterDescriptor) (core.ContentEnvelope, error) {
	res, err := a.fetcher.Fetch(ctx, pipeline.FetchRequest{
		URL:  ch.URL,
		Mode: pipeline.FetchRendered,
		Reveal: &core.RevealGesture{ScrollToBottom: true},
	})
	if err != nil {
		return core.ContentEnvelope{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(res.Body)))
	if err != nil {
		return core.ContentEnvelope{}, pipeline.NewError(pipeline.KindExtraction, "parse chapter page", err)
	}

	var images []core.ImageRef
	doc.Find(a.imageSelector).Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || src == "" {
			return
		}
		if isAdOrPlaceholderImage(src) {
			return
		}
		if isDegenerateImageSize(s) {
			return
		}
		images = append(images, core.ImageRef{Index: len(images) + 1, SourceURL: src})
	})

	if len(images) == 0 {
		return core.ContentEnvelope{}, pipeline.NewError(pipeline.KindExtraction, "no images survived filtering for "+ch.URL, nil)
	}

	return core.ContentEnvelope{
		WorkID: work.ID,
		Number: ch.Number,
		Title:  ch.Title,
		Kind:   core.ContentComic,
		Images: images,
	}, nil
}

func isAdOrPlaceholderImage(src string) bool {
	lower := strings.ToLower(src)
	for _, marker := range adImageMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// isDegenerateImageSize excludes 1x1 tracking pixels when width/height
// attributes are present; images with no size attributes are kept, matching
// the original scraper's "include if dimensions unknown" fallback.
func isDegenerateImageSize(s *goquery.Selection) bool {
	w, hasW := s.Attr("width")
	h, hasH := s.Attr("height")
	if !hasW || !hasH {
		return false
	}
	return w == "1" && h == "1"
}
