// Package crawl implements the discovery/crawl engine state machine used by
// adapters that discover their chapter list by following an in-page "next
// chapter" link chain rather than a single table-of-contents page.
package crawl

import (
	"context"

	"inkforge/internal/core"
	"inkforge/internal/logger"
	"inkforge/internal/pipeline"
)

// Step is one FETCH+PARSE result: zero or one chapter descriptor, the next
// URL to follow (empty when the chain has terminated), and whether the chain
// should stop here.
type Step struct {
	Chapter   *core.ChapterDescriptor
	NextURL   string
	Terminate bool
}

// StepFunc fetches and parses one page of the chain, given its URL.
type StepFunc func(ctx context.Context, url string) (Step, error)

// Run drives the START -> FETCH -> PARSE -> {EMIT, next?} -> loop state
// machine from seedURL, stopping at max chapters, a step that signals
// termination, a revisited URL (cycle detection), or a non-fatal step
// failure. A failure never discards chapters already collected: it ends the
// walk and returns the partial result together with the error that stopped
// it, so callers can decide whether a partial result is acceptable.
func Run(ctx context.Context, seedURL string, max int, step StepFunc) ([]core.ChapterDescriptor, error) {
	visited := make(map[string]bool)
	var chapters []core.ChapterDescriptor

	url := seedURL
	for url != "" && len(chapters) < max {
		if visited[url] {
			return chapters, pipeline.NewError(pipeline.KindCrawlCycle, "revisited url "+url, nil)
		}
		visited[url] = true

		select {
		case <-ctx.Done():
			return chapters, ctx.Err()
		default:
		}

		res, err := step(ctx, url)
		if err != nil {
			logger.Warn("crawl step failed, returning partial result", map[string]any{"url": url, "error": err.Error()})
			return chapters, pipeline.NewError(pipeline.KindCrawlPartial, "step failed at "+url, err)
		}

		if res.Chapter != nil {
			chapters = append(chapters, *res.Chapter)
		}
		if res.Terminate {
			break
		}
		url = res.NextURL
	}

	return chapters, nil
}
