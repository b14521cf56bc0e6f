package bundle

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkforge/internal/core"
)

type fakeStore struct {
	chapters map[string]core.ContentEnvelope
	bundles  map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{chapters: map[string]core.ContentEnvelope{}, bundles: map[string][]byte{}}
}

func chapterKey(n float64, format, lang string) string {
	return fmt.Sprintf("%v|%s|%s", n, format, lang)
}

func (f *fakeStore) ChapterExists(work core.Work, n float64, format, lang string) (bool, error) {
	_, ok := f.chapters[chapterKey(n, format, lang)]
	return ok, nil
}
func (f *fakeStore) SaveChapter(ctx context.Context, work core.Work, env core.ContentEnvelope, format, lang string) (string, error) {
	f.chapters[chapterKey(env.Number, format, lang)] = env
	return "", nil
}
func (f *fakeStore) LoadChapter(work core.Work, n float64, format, lang string) (core.ContentEnvelope, error) {
	env, ok := f.chapters[chapterKey(n, format, lang)]
	if !ok {
		return core.ContentEnvelope{}, assertErr{}
	}
	return env, nil
}
func (f *fakeStore) SaveBundle(ctx context.Context, work core.Work, filename string, data []byte) (string, error) {
	f.bundles[filename] = data
	return filename, nil
}
func (f *fakeStore) BundleExists(work core.Work, filename string) (bool, error) {
	_, ok := f.bundles[filename]
	return ok, nil
}
func (f *fakeStore) LoadBundle(work core.Work, filename string) ([]byte, error) {
	return f.bundles[filename], nil
}

type assertErr struct{}

func (assertErr) Error() string { return "not found" }

// fakeMaterializer records every chapter it was asked to materialize and
// returns canned content for chapters present in byNumber.
type fakeMaterializer struct {
	byNumber map[float64]core.ContentEnvelope
	calls    []float64
}

func (m *fakeMaterializer) Materialize(ctx context.Context, source string, work core.Work, ch core.ChapterDescriptor) (core.ContentEnvelope, error) {
	m.calls = append(m.calls, ch.Number)
	env, ok := m.byNumber[ch.Number]
	if !ok {
		return core.ContentEnvelope{}, assertErr{}
	}
	return env, nil
}

func chapterList(numbers ...float64) []core.ChapterDescriptor {
	out := make([]core.ChapterDescriptor, 0, len(numbers))
	for _, n := range numbers {
		out = append(out, core.ChapterDescriptor{Number: n, Title: "Ch", URL: "https://example.com"})
	}
	return out
}

func TestFilenamePatterns(t *testing.T) {
	work := core.Work{Title: "Trash of the Count's Family"}
	assert.Equal(t, "Trash_of_the_Count_s_Family_chapter_5.epub", Filename(work, Selection{Start: 5, End: 5}, ""))
	assert.Equal(t, "Trash_of_the_Count_s_Family_chapters_1_10_es.epub", Filename(work, Selection{Start: 1, End: 10}, "es"))
	assert.Equal(t, "Trash_of_the_Count_s_Family.epub", Filename(work, Selection{All: true}, ""))
}

func TestBuildAssemblesSelectedChapters(t *testing.T) {
	store := newFakeStore()
	work := core.Work{ID: "w1", Title: "Test Work"}
	for i := 1; i <= 3; i++ {
		_, _ = store.SaveChapter(context.Background(), work, core.ContentEnvelope{Number: float64(i), Title: "Ch", PlainText: "body"}, "json", "en")
	}

	b := New(store, nil, nil, "")
	data, filename, err := b.Build(context.Background(), work, Selection{Start: 1, End: 2}, chapterList(1, 2, 3), core.Glossary{}, "", "json", "en")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Contains(t, filename, "chapters_1_2")
}

func TestBuildReturnsBundleEmptyWhenNoChaptersAssemble(t *testing.T) {
	store := newFakeStore()
	work := core.Work{ID: "w1", Title: "Empty Work"}

	b := New(store, nil, nil, "")
	_, _, err := b.Build(context.Background(), work, Selection{Start: 1, End: 5}, chapterList(1, 2, 3, 4, 5), core.Glossary{}, "", "json", "en")
	require.Error(t, err)
}

func TestBuildMaterializesOnCacheMiss(t *testing.T) {
	store := newFakeStore()
	work := core.Work{ID: "w1", Title: "Uncached Work"}
	materializer := &fakeMaterializer{byNumber: map[float64]core.ContentEnvelope{
		1: {Number: 1, Title: "Ch 1", PlainText: "fresh content"},
	}}

	b := New(store, nil, materializer, "pastebin-novel")
	data, _, err := b.Build(context.Background(), work, Selection{Start: 1, End: 1}, chapterList(1), core.Glossary{}, "", "json", "source")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, []float64{1}, materializer.calls)

	exists, err := store.ChapterExists(work, 1, "json", "source")
	require.NoError(t, err)
	assert.True(t, exists, "a materialized chapter must be cached")
}

func TestBuildSkipsChapterWhenMaterializeFails(t *testing.T) {
	store := newFakeStore()
	work := core.Work{ID: "w1", Title: "Partially Uncached Work"}
	materializer := &fakeMaterializer{byNumber: map[float64]core.ContentEnvelope{
		2: {Number: 2, Title: "Ch 2", PlainText: "content"},
	}}

	b := New(store, nil, materializer, "pastebin-novel")
	data, _, err := b.Build(context.Background(), work, Selection{Start: 1, End: 2}, chapterList(1, 2), core.Glossary{}, "", "json", "source")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

type recordingTranslator struct {
	calls int
}

func (r *recordingTranslator) Translate(ctx context.Context, html string, glossary core.Glossary, targetLang string) (string, error) {
	r.calls++
	return "<p>translated</p>", nil
}
func (r *recordingTranslator) Usage(ctx context.Context) (core.UsageStats, bool, error) {
	return core.UsageStats{}, false, nil
}

func TestBuildCachesTranslatedChapterAndDoesNotRetranslate(t *testing.T) {
	store := newFakeStore()
	work := core.Work{ID: "w1", Title: "Translated Work"}
	_, _ = store.SaveChapter(context.Background(), work, core.ContentEnvelope{Number: 1, Title: "Ch", HTML: "<p>hola</p>"}, "json", "source")

	translator := &recordingTranslator{}
	b := New(store, translator, nil, "")

	_, _, err := b.Build(context.Background(), work, Selection{Start: 1, End: 1}, chapterList(1), core.Glossary{}, "es", "json", "source")
	require.NoError(t, err)
	assert.Equal(t, 1, translator.calls)

	cached, err := store.LoadChapter(work, 1, "json", "es")
	require.NoError(t, err)
	assert.Equal(t, "<p>translated</p>", cached.HTML)

	// Rebuilding a different selection that still covers the same chapter
	// must reuse the cached translation rather than calling the translator
	// again; Selection{All: true} produces a distinct bundle filename so this
	// exercises the per-chapter cache, not the whole-bundle cache.
	_, _, err = b.Build(context.Background(), work, Selection{All: true}, chapterList(1), core.Glossary{}, "es", "json", "source")
	require.NoError(t, err)
	assert.Equal(t, 1, translator.calls, "a cached translated chapter must not be re-translated")
}
