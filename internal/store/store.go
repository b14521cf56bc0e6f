// Package store implements the content-addressable filesystem cache: a
// deterministic directory layout under a configured root, atomic artifact
// writes, and bounded-concurrency image downloads for comic chapters.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"inkforge/internal/core"
	"inkforge/internal/logger"
	"inkforge/internal/pipeline"
)

const maxConcurrentImagesDefault = 8

// FilesystemStore implements pipeline.ContentStore against a root directory
// laid out as:
//
//	<root>/<work-title> - <work-id>/chapters/chapter_<N>_<format>_<lang>.<ext>
//	<root>/<work-title> - <work-id>/chapters/chapter_<N>_images/image_<NNN>.<ext>
type FilesystemStore struct {
	root            string
	maxConcImages   int
	httpClient      *http.Client
}

// New builds a FilesystemStore rooted at root. maxConcImages bounds
// in-flight per-chapter image downloads; 0 uses the default of 8.
func New(root string, maxConcImages int) *FilesystemStore {
	if maxConcImages <= 0 {
		maxConcImages = maxConcurrentImagesDefault
	}
	return &FilesystemStore{root: root, maxConcImages: maxConcImages, httpClient: &http.Client{}}
}

var _ pipeline.ContentStore = (*FilesystemStore)(nil)

func sanitizeComponent(s string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", "*", "-", "?", "-", "\"", "-", "<", "-", ">", "-", "|", "-")
	return strings.TrimSpace(replacer.Replace(s))
}

func (s *FilesystemStore) workDir(work core.Work) string {
	return filepath.Join(s.root, fmt.Sprintf("%s - %s", sanitizeComponent(work.Title), sanitizeComponent(work.ID)))
}

func (s *FilesystemStore) chaptersDir(work core.Work) string {
	return filepath.Join(s.workDir(work), "chapters")
}

func extForFormat(format string) string {
	switch format {
	case "epub":
		return "epub"
	case "txt":
		return "txt"
	case "json":
		return "json"
	default:
		return format
	}
}

// formatChapterNumber renders a fractional-capable chapter number without a
// spurious trailing ".0": 12 -> "12", 12.5 -> "12.5".
func formatChapterNumber(number float64) string {
	return strconv.FormatFloat(number, 'f', -1, 64)
}

func (s *FilesystemStore) chapterPath(work core.Work, number float64, format, lang string) string {
	name := fmt.Sprintf("chapter_%s_%s_%s.%s", formatChapterNumber(number), format, lang, extForFormat(format))
	return filepath.Join(s.chaptersDir(work), name)
}

func (s *FilesystemStore) chapterImagesDir(work core.Work, number float64) string {
	return filepath.Join(s.chaptersDir(work), fmt.Sprintf("chapter_%s_images", formatChapterNumber(number)))
}

// ChapterExists reports whether a chapter artifact of the given format and
// language is already cached for work.
func (s *FilesystemStore) ChapterExists(work core.Work, chapterNumber float64, format, lang string) (bool, error) {
	_, err := os.Stat(s.chapterPath(work, chapterNumber, format, lang))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, pipeline.NewError(pipeline.KindStoreIO, "stat chapter artifact", err)
}

// SaveChapter persists env under the deterministic path for work. Text
// chapters are written as JSON envelopes; comic chapters download their
// images first (up to maxConcImages concurrently, falling back to the
// original URL on a per-image failure) and then write the envelope with
// LocalPath populated.
func (s *FilesystemStore) SaveChapter(ctx context.Context, work core.Work, env core.ContentEnvelope, format, lang string) (string, error) {
	if err := os.MkdirAll(s.chaptersDir(work), 0o755); err != nil {
		return "", pipeline.NewError(pipeline.KindStoreIO, "create chapters dir", err)
	}

	if env.Kind == core.ContentComic && len(env.Images) > 0 {
		if err := s.downloadImages(ctx, work, env.Number, env.Images); err != nil {
			return "", err
		}
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", pipeline.NewError(pipeline.KindStoreIO, "marshal chapter envelope", err)
	}

	dst := s.chapterPath(work, env.Number, format, lang)
	if err := atomicWrite(dst, data); err != nil {
		return "", pipeline.NewError(pipeline.KindStoreIO, "write chapter artifact", err)
	}
	return dst, nil
}

// LoadChapter reads back a previously saved chapter artifact.
func (s *FilesystemStore) LoadChapter(work core.Work, chapterNumber float64, format, lang string) (core.ContentEnvelope, error) {
	data, err := os.ReadFile(s.chapterPath(work, chapterNumber, format, lang))
	if err != nil {
		return core.ContentEnvelope{}, pipeline.NewError(pipeline.KindStoreIO, "read chapter artifact", err)
	}
	var env core.ContentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return core.ContentEnvelope{}, pipeline.NewError(pipeline.KindStoreIO, "unmarshal chapter artifact", err)
	}
	return env, nil
}

// SaveBundle persists an assembled bundle file under the work's directory.
func (s *FilesystemStore) SaveBundle(ctx context.Context, work core.Work, filename string, data []byte) (string, error) {
	if err := os.MkdirAll(s.workDir(work), 0o755); err != nil {
		return "", pipeline.NewError(pipeline.KindStoreIO, "create work dir", err)
	}
	dst := filepath.Join(s.workDir(work), filename)
	if err := atomicWrite(dst, data); err != nil {
		return "", pipeline.NewError(pipeline.KindStoreIO, "write bundle", err)
	}
	return dst, nil
}

// BundleExists reports whether a bundle with filename is already cached.
func (s *FilesystemStore) BundleExists(work core.Work, filename string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.workDir(work), filename))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, pipeline.NewError(pipeline.KindStoreIO, "stat bundle", err)
}

// LoadBundle reads back a previously saved bundle file.
func (s *FilesystemStore) LoadBundle(work core.Work, filename string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.workDir(work), filename))
	if err != nil {
		return nil, pipeline.NewError(pipeline.KindStoreIO, "read bundle", err)
	}
	return data, nil
}

// atomicWrite writes data to a temp file in dst's directory and renames it
// into place, so a reader never observes a partially-written artifact.
func atomicWrite(dst string, data []byte) error {
	dir := filepath.Dir(dst)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%s", filepath.Base(dst), uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// downloadImages fetches each image in refs concurrently (bounded by
// maxConcImages), writing it under the chapter's images directory with a
// 3-digit zero-padded ordinal filename. A per-image failure is logged and the
// ref's SourceURL is left as the canonical reference; it never aborts the
// others.
func (s *FilesystemStore) downloadImages(ctx context.Context, work core.Work, chapterNumber float64, refs []core.ImageRef) error {
	dir := s.chapterImagesDir(work, chapterNumber)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pipeline.NewError(pipeline.KindStoreIO, "create chapter images dir", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcImages)

	for i := range refs {
		ref := &refs[i]
		g.Go(func() error {
			path, err := s.downloadOneImage(gctx, dir, *ref)
			if err != nil {
				logger.Warn("image download failed, keeping source URL", map[string]any{
					"work": work.ID, "chapter": chapterNumber, "index": ref.Index, "url": ref.SourceURL, "error": err.Error(),
				})
				return nil
			}
			ref.LocalPath = path
			return nil
		})
	}
	return g.Wait()
}

func (s *FilesystemStore) downloadOneImage(ctx context.Context, dir string, ref core.ImageRef) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.SourceURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	ext := extFromURL(ref.SourceURL)
	name := fmt.Sprintf("image_%03d.%s", ref.Index, ext)
	dst := filepath.Join(dir, name)
	if err := atomicWrite(dst, body); err != nil {
		return "", err
	}
	return dst, nil
}

func extFromURL(u string) string {
	clean := strings.SplitN(u, "?", 2)[0]
	ext := strings.TrimPrefix(filepath.Ext(clean), ".")
	if ext == "" {
		return "jpg"
	}
	return ext
}
