package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkforge/internal/core"
)

func testWork() core.Work {
	return core.Work{ID: "pastebin-tbate", Title: "Trash of the Count's Family", Source: "pastebin"}
}

func TestChapterPathLayout(t *testing.T) {
	s := New(t.TempDir(), 0)
	path := s.chapterPath(testWork(), 12, "txt", "en")
	assert.Equal(t, "Trash of the Count's Family - pastebin-tbate/chapters/chapter_12_txt_en.txt",
		mustRel(t, s.root, path))
}

func TestChapterPathLayoutToleratesFractionalNumber(t *testing.T) {
	s := New(t.TempDir(), 0)
	path := s.chapterPath(testWork(), 12.5, "txt", "en")
	assert.Equal(t, "Trash of the Count's Family - pastebin-tbate/chapters/chapter_12.5_txt_en.txt",
		mustRel(t, s.root, path))
}

func TestSaveAndLoadTextChapter(t *testing.T) {
	s := New(t.TempDir(), 0)
	work := testWork()
	env := core.ContentEnvelope{WorkID: work.ID, Number: 1, Title: "Ch 1", Kind: core.ContentText, PlainText: "hello"}

	exists, err := s.ChapterExists(work, 1, "json", "en")
	require.NoError(t, err)
	assert.False(t, exists)

	path, err := s.SaveChapter(context.Background(), work, env, "json", "en")
	require.NoError(t, err)
	assert.FileExists(t, path)

	exists, err = s.ChapterExists(work, 1, "json", "en")
	require.NoError(t, err)
	assert.True(t, exists)

	loaded, err := s.LoadChapter(work, 1, "json", "en")
	require.NoError(t, err)
	assert.Equal(t, "hello", loaded.PlainText)
}

func TestSaveComicChapterDownloadsImagesConcurrently(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("fake-image-bytes"))
	}))
	defer srv.Close()

	s := New(t.TempDir(), 2)
	work := testWork()
	env := core.ContentEnvelope{
		WorkID: work.ID, Number: 3, Kind: core.ContentComic,
		Images: []core.ImageRef{
			{Index: 1, SourceURL: srv.URL + "/a.jpg"},
			{Index: 2, SourceURL: srv.URL + "/b.jpg"},
		},
	}

	_, err := s.SaveChapter(context.Background(), work, env, "json", "en")
	require.NoError(t, err)

	reloaded, err := s.LoadChapter(work, 3, "json", "en")
	require.NoError(t, err)
	require.Len(t, reloaded.Images, 2)
	assert.NotEmpty(t, reloaded.Images[0].LocalPath)
	assert.FileExists(t, reloaded.Images[0].LocalPath)
}

func TestSaveComicChapterKeepsSourceURLOnDownloadFailure(t *testing.T) {
	s := New(t.TempDir(), 2)
	work := testWork()
	env := core.ContentEnvelope{
		WorkID: work.ID, Number: 4, Kind: core.ContentComic,
		Images: []core.ImageRef{{Index: 1, SourceURL: "http://127.0.0.1:0/unreachable.jpg"}},
	}

	_, err := s.SaveChapter(context.Background(), work, env, "json", "en")
	require.NoError(t, err)

	reloaded, err := s.LoadChapter(work, 4, "json", "en")
	require.NoError(t, err)
	assert.Empty(t, reloaded.Images[0].LocalPath)
	assert.Equal(t, "http://127.0.0.1:0/unreachable.jpg", reloaded.Images[0].SourceURL)
}

func mustRel(t *testing.T, base, target string) string {
	t.Helper()
	rel, err := filepath.Rel(base, target)
	require.NoError(t, err)
	return filepath.ToSlash(rel)
}
