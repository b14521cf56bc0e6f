package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"inkforge/internal/core"
)

// FreeBackend wraps an unauthenticated translate endpoint shaped like the
// public Google Translate single-language-pair GET API (client=gtx, a JSON
// array of [[translated, original, ...], ...] sentence pairs), mirroring the
// original implementation's GoogleTranslator-based free path. It never
// reports usage, matching the spec's "unsupported" marker for this backend.
type FreeBackend struct {
	endpoint   string
	sourceLang string
	httpClient *http.Client
}

// NewFreeBackend builds a FreeBackend against endpoint, translating from
// sourceLang (or "auto" if empty).
func NewFreeBackend(endpoint, sourceLang string) *FreeBackend {
	if sourceLang == "" {
		sourceLang = "auto"
	}
	return &FreeBackend{endpoint: endpoint, sourceLang: sourceLang, httpClient: &http.Client{}}
}

// TranslateChunk ignores glossaryID: the free endpoint has no server-side
// glossary concept, matching the spec's "unsupported" posture for this
// backend.
func (b *FreeBackend) TranslateChunk(ctx context.Context, html, targetLang, glossaryID string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", b.sourceLang)
	q.Set("tl", targetLang)
	q.Set("dt", "t")
	q.Set("q", html)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("free translate endpoint status %d", resp.StatusCode)
	}

	var sentences [][]any
	if err := json.NewDecoder(resp.Body).Decode(&sentences); err != nil {
		return "", err
	}

	var out string
	for _, s := range sentences {
		if len(s) == 0 {
			continue
		}
		if text, ok := s[0].(string); ok {
			out += text
		}
	}
	if out == "" {
		return "", fmt.Errorf("free translate endpoint returned no sentences")
	}
	return out, nil
}

func (b *FreeBackend) Usage(ctx context.Context) (core.UsageStats, bool, error) {
	return core.UsageStats{}, false, nil
}
