package sites

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const expandableSeriesHTML = `<html><body>
<h1>The Novel's Extra</h1>
<div id="chapter-list">
  <a class="chapter-link" href="/c/1">Chapter 1: Awakening</a>
  <a class="chapter-link" href="/c/2">Chapter 2: The Trial</a>
</div>
</body></html>`

const expandableChapterHTML = `<html><body>
<div id="content">
  <div id="miad-block-1">Ignore this ad text.</div>
  <markdown>First paragraph of the chapter.</markdown>
  <markdown>Second paragraph continues here.</markdown>
</div>
</body></html>`

func TestExpandablePanelDiscoverParsesChapterNumberFromTitle(t *testing.T) {
	fetcher := stubFetcher{byURL: map[string]string{"https://novel.test/series": expandableSeriesHTML}}
	a := NewExpandablePanelAdapter("novel-site", fetcher, ExpandablePanelConfig{
		ChapterLinkSelector: "a.chapter-link",
	})

	work, chapters, err := a.Discover(context.Background(), "https://novel.test/series", 10)
	require.NoError(t, err)
	assert.Equal(t, "The Novel's Extra", work.Title)
	require.Len(t, chapters, 2)
	assert.Equal(t, float64(1), chapters[0].Number)
	assert.Equal(t, float64(2), chapters[1].Number)
	assert.Equal(t, "/c/1", chapters[0].URL)
}

func TestExpandablePanelMaterializeConcatenatesInlineBlocksAndStripsAds(t *testing.T) {
	fetcher := stubFetcher{byURL: map[string]string{"https://novel.test/c/1": expandableChapterHTML}}
	a := NewExpandablePanelAdapter("novel-site", fetcher, ExpandablePanelConfig{
		ContentContainerSelector: "#content",
	})

	env, err := a.Materialize(context.Background(), coreWork(), coreChapter("https://novel.test/c/1"))
	require.NoError(t, err)
	assert.Contains(t, env.PlainText, "First paragraph of the chapter.")
	assert.Contains(t, env.PlainText, "Second paragraph continues here.")
	assert.NotContains(t, env.PlainText, "Ignore this ad text.")
}

func TestExpandablePanelMaterializeErrorsWhenContainerMissing(t *testing.T) {
	fetcher := stubFetcher{byURL: map[string]string{"https://novel.test/c/1": "<html><body></body></html>"}}
	a := NewExpandablePanelAdapter("novel-site", fetcher, ExpandablePanelConfig{
		ContentContainerSelector: "#content",
	})

	_, err := a.Materialize(context.Background(), coreWork(), coreChapter("https://novel.test/c/1"))
	assert.Error(t, err)
}
