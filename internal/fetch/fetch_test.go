package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkforge/internal/pipeline"
)

func TestFetchRawSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	c := New(Options{Timeout: 2 * time.Second, Retries: 1, MaxConnsPerHost: 2, UserAgent: "test"})
	res, err := c.Fetch(context.Background(), pipeline.FetchRequest{URL: srv.URL, Mode: pipeline.FetchRaw})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(res.Body), "hello")
}

func TestFetchRaw4xxIsTerminal(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(Options{Timeout: 2 * time.Second, Retries: 3, MaxConnsPerHost: 2, UserAgent: "test"})
	_, err := c.Fetch(context.Background(), pipeline.FetchRequest{URL: srv.URL, Mode: pipeline.FetchRaw})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "4xx responses must not be retried")
}

func TestFetchRaw5xxRetries(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(Options{Timeout: 2 * time.Second, Retries: 3, MaxConnsPerHost: 2, UserAgent: "test"})
	res, err := c.Fetch(context.Background(), pipeline.FetchRequest{URL: srv.URL, Mode: pipeline.FetchRaw})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "ok", string(res.Body))
}
