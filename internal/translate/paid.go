package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"inkforge/internal/core"
)

// PaidBackend talks to a DeepL-shaped translation API: form-encoded POST with
// "text", "target_lang", and "tag_handling=html", an API-key auth header, a
// usage endpoint reporting (used, limit), and a glossaries endpoint for
// named server-side glossaries. No client library for this kind of API
// appears anywhere in the reference corpus, so this is a deliberately thin,
// justified net/http implementation (see DESIGN.md).
type PaidBackend struct {
	apiKey      string
	endpoint    string
	usageURL    string
	glossaryURL string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// NewPaidBackend builds a PaidBackend against endpoint (the translate
// endpoint) using apiKey, paced at no more than 10 requests/second.
func NewPaidBackend(apiKey, endpoint string) *PaidBackend {
	return &PaidBackend{
		apiKey:      apiKey,
		endpoint:    endpoint,
		usageURL:    deriveAPIURL(endpoint, "/v2/usage"),
		glossaryURL: deriveAPIURL(endpoint, "/v2/glossaries"),
		httpClient:  &http.Client{},
		limiter:     rate.NewLimiter(rate.Limit(10), 1),
	}
}

func deriveAPIURL(translateEndpoint, path string) string {
	u, err := url.Parse(translateEndpoint)
	if err != nil {
		return translateEndpoint
	}
	u.Path = path
	return u.String()
}

var _ GlossaryBinder = (*PaidBackend)(nil)

// TranslateChunk sends html for translation, binding glossaryID to the
// request when non-empty.
func (b *PaidBackend) TranslateChunk(ctx context.Context, html, targetLang, glossaryID string) (string, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("text", html)
	form.Set("target_lang", targetLang)
	form.Set("tag_handling", "html")
	if glossaryID != "" {
		form.Set("glossary_id", glossaryID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate API status %d", resp.StatusCode)
	}

	var payload struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if len(payload.Translations) == 0 {
		return "", fmt.Errorf("translate API returned no translations")
	}
	return payload.Translations[0].Text, nil
}

func (b *PaidBackend) Usage(ctx context.Context) (core.UsageStats, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.usageURL, nil)
	if err != nil {
		return core.UsageStats{}, true, err
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return core.UsageStats{}, true, err
	}
	defer func() { _ = resp.Body.Close() }()

	var payload struct {
		CharacterCount int64 `json:"character_count"`
		CharacterLimit int64 `json:"character_limit"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return core.UsageStats{}, true, err
	}

	stats := core.UsageStats{Used: payload.CharacterCount, Limit: payload.CharacterLimit}
	if payload.CharacterLimit > 0 {
		stats.Percent = float64(payload.CharacterCount) / float64(payload.CharacterLimit) * 100
	}
	return stats, true, nil
}

func glossaryName(glossary core.Glossary) string {
	return fmt.Sprintf("inkforge-%s-%s", glossary.SourceLanguage, glossary.TargetLanguage)
}

// BindGlossary creates a named glossary for glossary's language pair; if one
// by that name already exists (the API reports a conflict), it looks up and
// returns the existing glossary's id instead of failing.
func (b *PaidBackend) BindGlossary(ctx context.Context, glossary core.Glossary) (string, error) {
	name := glossaryName(glossary)

	entries := make([]string, 0, len(glossary.Terms))
	for source, target := range glossary.Terms {
		entries = append(entries, source+"\t"+target)
	}

	form := url.Values{}
	form.Set("name", name)
	form.Set("source_lang", glossary.SourceLanguage)
	form.Set("target_lang", glossary.TargetLanguage)
	form.Set("entries", strings.Join(entries, "\n"))
	form.Set("entries_format", "tsv")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.glossaryURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var payload struct {
			GlossaryID string `json:"glossary_id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return "", err
		}
		return payload.GlossaryID, nil
	case http.StatusConflict:
		return b.lookupGlossaryByName(ctx, name)
	default:
		return "", fmt.Errorf("create glossary API status %d", resp.StatusCode)
	}
}

func (b *PaidBackend) lookupGlossaryByName(ctx context.Context, name string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.glossaryURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("list glossaries API status %d", resp.StatusCode)
	}

	var payload struct {
		Glossaries []struct {
			GlossaryID string `json:"glossary_id"`
			Name       string `json:"name"`
		} `json:"glossaries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	for _, g := range payload.Glossaries {
		if g.Name == name {
			return g.GlossaryID, nil
		}
	}
	return "", fmt.Errorf("glossary %q not found after conflict", name)
}
