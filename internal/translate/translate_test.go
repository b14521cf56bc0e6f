package translate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkforge/internal/core"
	"inkforge/internal/pipeline"
)

type stubBackend struct {
	translateFn func(ctx context.Context, html, targetLang, glossaryID string) (string, error)
	usage       core.UsageStats
	usageOK     bool
}

func (s *stubBackend) TranslateChunk(ctx context.Context, html, targetLang, glossaryID string) (string, error) {
	return s.translateFn(ctx, html, targetLang, glossaryID)
}

func (s *stubBackend) Usage(ctx context.Context) (core.UsageStats, bool, error) {
	return s.usage, s.usageOK, nil
}

func TestTranslatePinsGlossaryTerms(t *testing.T) {
	var seenChunks []string
	backend := &stubBackend{translateFn: func(ctx context.Context, html, targetLang, glossaryID string) (string, error) {
		seenChunks = append(seenChunks, html)
		return html, nil
	}}

	tr := New(backend, 5000)
	glossary := ExampleGlossary("en", "es")
	_, err := tr.Translate(context.Background(), "<p>The Shadow Monarch rose.</p>", glossary, "es")
	require.NoError(t, err)

	require.Len(t, seenChunks, 1)
	assert.Contains(t, seenChunks[0], "Monarca de las Sombras")
	assert.NotContains(t, seenChunks[0], "Shadow Monarch")
}

func TestTranslateFallsBackOnChunkFailure(t *testing.T) {
	backend := &stubBackend{translateFn: func(ctx context.Context, html, targetLang, glossaryID string) (string, error) {
		return "", assertErr{}
	}}

	tr := New(backend, 5000)
	out, err := tr.Translate(context.Background(), "<p>Untranslatable chunk</p>", core.Glossary{}, "es")
	require.NoError(t, err)
	assert.Contains(t, out, "Untranslatable chunk")
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestTranslateChunksLongFragment(t *testing.T) {
	var chunkCount int
	backend := &stubBackend{translateFn: func(ctx context.Context, html, targetLang, glossaryID string) (string, error) {
		chunkCount++
		return html, nil
	}}

	tr := New(backend, 50)
	paragraph := "<p>" + strings.Repeat("word ", 20) + "</p>"
	fragment := strings.Repeat(paragraph, 10)

	_, err := tr.Translate(context.Background(), fragment, core.Glossary{}, "es")
	require.NoError(t, err)
	assert.Greater(t, chunkCount, 1, "a long fragment must be split into multiple chunks")
}

func TestTranslateRefusesWhenQuotaExhausted(t *testing.T) {
	backend := &stubBackend{
		usage:   core.UsageStats{Used: 100, Limit: 100},
		usageOK: true,
		translateFn: func(ctx context.Context, html, targetLang, glossaryID string) (string, error) {
			t.Fatal("backend must not be called once the quota is exhausted")
			return "", nil
		},
	}

	tr := New(backend, 5000)
	_, err := tr.Translate(context.Background(), "<p>hi</p>", core.Glossary{}, "es")
	require.Error(t, err)

	var pipelineErr *pipeline.Error
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, pipeline.KindTranslationQuotaExceeded, pipelineErr.Kind())
}

type glossaryBindingBackend struct {
	stubBackend
	boundFor []core.Glossary
	bindID   string
}

func (b *glossaryBindingBackend) BindGlossary(ctx context.Context, glossary core.Glossary) (string, error) {
	b.boundFor = append(b.boundFor, glossary)
	return b.bindID, nil
}

func TestTranslateBindsGlossaryOnceAndReusesID(t *testing.T) {
	var seenGlossaryIDs []string
	backend := &glossaryBindingBackend{bindID: "gloss-123"}
	backend.translateFn = func(ctx context.Context, html, targetLang, glossaryID string) (string, error) {
		seenGlossaryIDs = append(seenGlossaryIDs, glossaryID)
		return html, nil
	}

	tr := New(backend, 5000)
	glossary := ExampleGlossary("en", "es")

	_, err := tr.Translate(context.Background(), "<p>one</p>", glossary, "es")
	require.NoError(t, err)
	_, err = tr.Translate(context.Background(), "<p>two</p>", glossary, "es")
	require.NoError(t, err)

	require.Len(t, backend.boundFor, 1, "the glossary must be bound only once per language pair")
	for _, id := range seenGlossaryIDs {
		assert.Equal(t, "gloss-123", id)
	}
}

func TestFreeBackendParsesSentenceArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[["Hola mundo","Hello world",null,null,1]]`))
	}))
	defer srv.Close()

	b := NewFreeBackend(srv.URL, "en")
	out, err := b.TranslateChunk(context.Background(), "Hello world", "es", "")
	require.NoError(t, err)
	assert.Equal(t, "Hola mundo", out)

	_, ok, err := b.Usage(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "free backend must report usage as unsupported")
}

func TestPaidBackendSendsTagHandlingHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "html", r.FormValue("tag_handling"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"translations":[{"text":"<p>Hola</p>"}]}`))
	}))
	defer srv.Close()

	b := NewPaidBackend("test-key", srv.URL)
	out, err := b.TranslateChunk(context.Background(), "<p>Hello</p>", "es", "")
	require.NoError(t, err)
	assert.Equal(t, "<p>Hola</p>", out)
}

func TestPaidBackendSendsGlossaryID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "gloss-456", r.FormValue("glossary_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"translations":[{"text":"<p>Hola</p>"}]}`))
	}))
	defer srv.Close()

	b := NewPaidBackend("test-key", srv.URL)
	_, err := b.TranslateChunk(context.Background(), "<p>Hello</p>", "es", "gloss-456")
	require.NoError(t, err)
}

func TestPaidBackendBindGlossaryLooksUpOnConflict(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch {
		case r.Method == http.MethodPost:
			w.WriteHeader(http.StatusConflict)
		case r.Method == http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"glossaries":[{"glossary_id":"existing-id","name":"inkforge-en-es"}]}`))
		}
	}))
	defer srv.Close()

	b := NewPaidBackend("test-key", srv.URL)
	id, err := b.BindGlossary(context.Background(), core.Glossary{SourceLanguage: "en", TargetLanguage: "es", Terms: map[string]string{"Ashborn": "Ashborn"}})
	require.NoError(t, err)
	assert.Equal(t, "existing-id", id)
	assert.Equal(t, 2, calls)
}

