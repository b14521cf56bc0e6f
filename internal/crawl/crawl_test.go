package crawl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkforge/internal/core"
)

func TestRunFollowsChainUntilTerminate(t *testing.T) {
	pages := map[string]Step{
		"p1": {Chapter: &core.ChapterDescriptor{Number: 1, Title: "One"}, NextURL: "p2"},
		"p2": {Chapter: &core.ChapterDescriptor{Number: 2, Title: "Two"}, NextURL: "p3"},
		"p3": {Terminate: true},
	}

	chapters, err := Run(context.Background(), "p1", 50, func(ctx context.Context, url string) (Step, error) {
		return pages[url], nil
	})
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	assert.Equal(t, float64(1), chapters[0].Number)
	assert.Equal(t, float64(2), chapters[1].Number)
}

func TestRunStopsAtMax(t *testing.T) {
	calls := 0
	chapters, err := Run(context.Background(), "p1", 2, func(ctx context.Context, url string) (Step, error) {
		calls++
		return Step{Chapter: &core.ChapterDescriptor{Number: float64(calls)}, NextURL: "next"}, nil
	})
	require.NoError(t, err)
	assert.Len(t, chapters, 2)
}

func TestRunDetectsCycle(t *testing.T) {
	chapters, err := Run(context.Background(), "p1", 50, func(ctx context.Context, url string) (Step, error) {
		return Step{Chapter: &core.ChapterDescriptor{Number: 1}, NextURL: "p1"}, nil
	})
	require.Error(t, err)
	assert.Len(t, chapters, 1, "the chapter seen before the cycle was detected is kept")
}

func TestRunReturnsPartialResultOnStepFailure(t *testing.T) {
	calls := 0
	chapters, err := Run(context.Background(), "p1", 50, func(ctx context.Context, url string) (Step, error) {
		calls++
		if calls == 2 {
			return Step{}, assertErr{}
		}
		return Step{Chapter: &core.ChapterDescriptor{Number: float64(calls)}, NextURL: "next"}, nil
	})
	require.Error(t, err)
	assert.Len(t, chapters, 1)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
