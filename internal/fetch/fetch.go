// Package fetch implements the Fetcher contract: raw HTTP retrieval via
// colly and headless-browser retrieval via chromedp, sharing one retry and
// backoff policy.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"inkforge/internal/logger"
	"inkforge/internal/pipeline"
)

// Options configures a Client.
type Options struct {
	Timeout             time.Duration
	Retries             int
	MaxConnsPerHost     int
	MaxIdleConnsPerHost int
	UserAgent           string
	ChromeExecutable    string // empty lets chromedp discover a binary
	DebugScreenshotDir  string
}

// Client implements pipeline.Fetcher for both raw and rendered modes. One
// Client owns at most one headless-browser allocator, lazily started on the
// first rendered fetch and torn down by Close.
type Client struct {
	opts    Options
	raw     *colly.Collector
	browser *browserPool
}

// New builds a Client. The raw collector is configured once and reused for
// every raw fetch; rendered fetches lazily allocate a browser on first use.
func New(opts Options) *Client {
	c := colly.NewCollector(colly.UserAgent(opts.UserAgent), colly.AllowURLRevisit())
	c.SetRequestTimeout(opts.Timeout)
	_ = c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: opts.MaxConnsPerHost,
	})
	return &Client{opts: opts, raw: c}
}

var _ pipeline.Fetcher = (*Client)(nil)

// Fetch performs a raw or rendered fetch according to req.Mode, retrying
// retryable failures with exponential backoff (1s, 2s, 3s, ...).
func (c *Client) Fetch(ctx context.Context, req pipeline.FetchRequest) (*pipeline.FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt <= c.opts.Retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			logger.Debug("retrying fetch", map[string]any{"url": req.URL, "attempt": attempt, "backoff": backoff.String()})
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var res *pipeline.FetchResult
		var err error
		switch req.Mode {
		case pipeline.FetchRendered:
			res, err = c.fetchRendered(ctx, req)
		default:
			res, err = c.fetchRaw(ctx, req)
		}
		if err == nil {
			return res, nil
		}

		lastErr = err
		if perr, ok := err.(*pipeline.Error); ok && pipeline.IsTerminal(perr.Kind()) {
			return nil, err
		}
		if perr, ok := err.(*pipeline.Error); ok && perr.Kind() == pipeline.KindFetchHTTP && isClientError(perr.Unwrap()) {
			return nil, err
		}
	}
	return nil, lastErr
}

func isClientError(err error) bool {
	he, ok := err.(*httpStatusError)
	return ok && he.status >= 400 && he.status < 500
}

type httpStatusError struct{ status int }

func (e *httpStatusError) Error() string { return fmt.Sprintf("http status %d", e.status) }

func (c *Client) fetchRaw(ctx context.Context, req pipeline.FetchRequest) (*pipeline.FetchResult, error) {
	var result pipeline.FetchResult
	var fetchErr error

	clone := c.raw.Clone()
	clone.OnResponse(func(r *colly.Response) {
		result = pipeline.FetchResult{
			URL:        req.URL,
			StatusCode: r.StatusCode,
			Body:       r.Body,
			FinalURL:   r.Request.URL.String(),
		}
		if r.StatusCode >= 400 {
			fetchErr = pipeline.NewError(pipeline.KindFetchHTTP, req.URL, &httpStatusError{status: r.StatusCode})
		}
	})
	clone.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		if status >= 400 && status < 500 {
			fetchErr = pipeline.NewError(pipeline.KindFetchHTTP, req.URL, &httpStatusError{status: status})
			return
		}
		fetchErr = pipeline.NewError(pipeline.KindFetchTimeout, req.URL, err)
	})

	visitErr := clone.Request(http.MethodGet, req.URL, nil, nil, nil)
	clone.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if visitErr != nil {
		return nil, pipeline.NewError(pipeline.KindFetchTimeout, req.URL, visitErr)
	}
	return &result, nil
}

// Close releases the headless-browser allocator, if one was started.
func (c *Client) Close() error {
	if c.browser != nil {
		return c.browser.close()
	}
	return nil
}
