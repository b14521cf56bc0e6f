package sites

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRawTextPageFindsNumberTitleAndNextLink(t *testing.T) {
	body := "Some preamble\n12\nThe Count's Despair\nBody text goes here.\nCapítulo 13: https://pastebin.com/raw/xyz123\n"
	step := parseRawTextPage(body, ConvertPastebinToRaw)

	require.NotNil(t, step.Chapter)
	assert.Equal(t, float64(12), step.Chapter.Number)
	assert.Equal(t, "The Count's Despair", step.Chapter.Title)
	assert.Equal(t, "https://pastebin.com/raw/xyz123", step.NextURL)
	assert.False(t, step.Terminate)
}

func TestParseRawTextPageDateSentinelTerminates(t *testing.T) {
	body := "9\nFinal Chapter\nThe end.\nCapítulo 10: 25/12/2024\n"
	step := parseRawTextPage(body, ConvertPastebinToRaw)

	require.NotNil(t, step.Chapter)
	assert.Equal(t, float64(9), step.Chapter.Number)
	assert.True(t, step.Terminate)
	assert.Empty(t, step.NextURL)
}

func TestParseRawTextPageToleratesFractionalChapterNumber(t *testing.T) {
	body := "12.5\nInterlude\nBody text goes here.\nCapítulo 13: 01/01/2026\n"
	step := parseRawTextPage(body, ConvertPastebinToRaw)

	require.NotNil(t, step.Chapter)
	assert.Equal(t, 12.5, step.Chapter.Number)
	assert.True(t, step.Terminate)
}

func TestConvertPastebinToRaw(t *testing.T) {
	assert.Equal(t, "https://pastebin.com/raw/abc123", ConvertPastebinToRaw("https://pastebin.com/abc123"))
	assert.Equal(t, "https://pastebin.com/raw/abc123", ConvertPastebinToRaw("https://pastebin.com/raw/abc123"))
}

func TestIsAdOrPlaceholderImage(t *testing.T) {
	assert.True(t, isAdOrPlaceholderImage("https://cdn.example.com/ads/banner.png"))
	assert.True(t, isAdOrPlaceholderImage("https://cdn.example.com/pubadx/x.gif"))
	assert.False(t, isAdOrPlaceholderImage("https://cdn.example.com/page/042.jpg"))
}
