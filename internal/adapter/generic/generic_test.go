package generic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkforge/internal/core"
	"inkforge/internal/fetch"
)

const indexHTML = `<html><body>
<h1>Trash of the Count's Family</h1>
<div class="author">Yoo Ryung</div>
<div class="status">PUBLICANDOSE</div>
<div class="chapter-list">
  <li><a href="/ch2">Chapter 2: The Fall</a></li>
  <li><a href="/ch1">Chapter 1: The Beginning</a></li>
</div>
</body></html>`

const chapterHTML = `<html><body>
<article>Once upon a time, in a count's house.</article>
</body></html>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/series", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(indexHTML))
	})
	mux.HandleFunc("/ch1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chapterHTML))
	})
	return httptest.NewServer(mux)
}

func TestDiscoverSortsChaptersAscending(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	cfg := core.SourceConfig{
		Name:           "testsource",
		StatusSynonyms: map[string]string{"PUBLICANDOSE": "ongoing"},
	}
	client := fetch.New(fetch.Options{Timeout: 5e9, Retries: 0, MaxConnsPerHost: 2, UserAgent: "test"})
	adapter := New(cfg, client)

	work, chapters, err := adapter.Discover(context.Background(), srv.URL+"/series", 50)
	require.NoError(t, err)
	assert.Equal(t, "Trash of the Count's Family", work.Title)
	assert.Equal(t, core.StatusOngoing, work.Status)
	require.Len(t, chapters, 2)
	assert.Equal(t, float64(1), chapters[0].Number)
	assert.Equal(t, float64(2), chapters[1].Number)
}

func TestMaterializeExtractsContent(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	cfg := core.SourceConfig{Name: "testsource"}
	client := fetch.New(fetch.Options{Timeout: 5e9, Retries: 0, MaxConnsPerHost: 2, UserAgent: "test"})
	adapter := New(cfg, client)

	env, err := adapter.Materialize(context.Background(), core.Work{ID: "testsource-series"},
		core.ChapterDescriptor{Number: 1, Title: "Chapter 1", URL: srv.URL + "/ch1"})
	require.NoError(t, err)
	assert.Contains(t, env.PlainText, "count's house")
}
