package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"inkforge/internal/logger"
	"inkforge/internal/pipeline"
)

// browserPool owns one headless Chrome instance for the lifetime of a
// Client. Every rendered fetch opens its own tab against the shared
// allocator context; tabs never outlive their fetch.
type browserPool struct {
	allocCtx   context.Context
	allocCancel context.CancelFunc
}

func newBrowserPool(executable string) *browserPool {
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Headless)
	if executable != "" {
		opts = append(opts, chromedp.ExecPath(executable))
	}
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &browserPool{allocCtx: allocCtx, allocCancel: cancel}
}

func (p *browserPool) close() error {
	p.allocCancel()
	return nil
}

func (c *Client) fetchRendered(ctx context.Context, req pipeline.FetchRequest) (*pipeline.FetchResult, error) {
	if c.browser == nil {
		c.browser = newBrowserPool(c.opts.ChromeExecutable)
	}

	tabCtx, tabCancel := chromedp.NewContext(c.browser.allocCtx)
	defer tabCancel()
	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, c.opts.Timeout)
	defer timeoutCancel()

	var html string
	actions := []chromedp.Action{
		chromedp.Navigate(req.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		networkIdle(500 * time.Millisecond),
	}
	if req.Reveal != nil {
		if req.Reveal.ClickSelector != "" {
			actions = append(actions, clickIfPresent(req.Reveal.ClickSelector))
			if req.Reveal.WaitAfterClickMS > 0 {
				actions = append(actions, chromedp.Sleep(time.Duration(req.Reveal.WaitAfterClickMS)*time.Millisecond))
			}
		}
		if req.Reveal.ScrollToBottom {
			actions = append(actions, scrollToBottom())
		}
	}
	actions = append(actions, chromedp.OuterHTML("html", &html))

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if c.opts.DebugScreenshotDir != "" {
			c.saveDebugScreenshot(tabCtx, req.URL)
		}
		if ctx.Err() != nil || tabCtx.Err() == context.DeadlineExceeded {
			return nil, pipeline.NewError(pipeline.KindFetchTimeout, req.URL, err)
		}
		return nil, pipeline.NewError(pipeline.KindFetchRender, req.URL, err)
	}

	return &pipeline.FetchResult{
		URL:        req.URL,
		StatusCode: 200,
		Body:       []byte(html),
		FinalURL:   req.URL,
	}, nil
}

func (c *Client) saveDebugScreenshot(ctx context.Context, sourceURL string) {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return
	}
	name := fmt.Sprintf("debug_%d.png", time.Now().UnixNano())
	path := filepath.Join(c.opts.DebugScreenshotDir, name)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		logger.Warn("failed to write debug screenshot", map[string]any{"path": path, "error": err.Error()})
		return
	}
	logger.Debug("saved debug screenshot on render timeout", map[string]any{"url": sourceURL, "path": path})
}

// click performs a click on selector, waiting postDelay afterward. It is
// unexported and not called within this package; rendered fetches click
// through clickIfPresent as part of a RevealGesture.
func click(ctx context.Context, selector string, postDelay time.Duration) error {
	err := chromedp.Run(ctx,
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.Sleep(postDelay),
	)
	return err
}

// scrollToBottomIdle scrolls repeatedly until the page's scrollHeight stops
// growing for idleThreshold consecutive checks, guarding against infinite
// lazy-load grids.
func scrollToBottomIdle(ctx context.Context, idleThreshold int) error {
	var lastHeight int64
	stable := 0
	for stable < idleThreshold {
		var height int64
		if err := chromedp.Run(ctx,
			chromedp.Evaluate(`document.body.scrollHeight`, &height),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(300*time.Millisecond),
		); err != nil {
			return err
		}
		if height == lastHeight {
			stable++
		} else {
			stable = 0
		}
		lastHeight = height
	}
	return nil
}

func clickIfPresent(selector string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		var exists bool
		if err := chromedp.Evaluate(fmt.Sprintf(`!!document.querySelector(%q)`, selector), &exists).Do(ctx); err != nil {
			return err
		}
		if !exists {
			return nil
		}
		return chromedp.Click(selector, chromedp.ByQuery).Do(ctx)
	}
}

func scrollToBottom() chromedp.ActionFunc {
	return func(ctx context.Context) error {
		return scrollToBottomIdle(ctx, 2)
	}
}

func networkIdle(cushion time.Duration) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		time.Sleep(cushion)
		return nil
	}
}
