// Package adapter contains the filesystem, rule engine and persistence
// adapters the scan workflow depends on.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"

	m "sigscan.dev/pkg/sigscan/internal/model"
)

// ErrNotDirectory is returned when the scan root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// phpMIME is the content type used when sniffing files without a known extension.
const phpMIME = "text/x-php"

// DiscoverOptions controls which files discovery yields.
type DiscoverOptions struct {
	// Extensions selects files by suffix (".php"). Empty selects every regular file.
	Extensions []string
	// Exclude holds regular expressions matched against the slash-separated
	// path relative to the root. Matching directories are not descended.
	Exclude []string
	// SniffContent additionally accepts files whose detected content type is PHP.
	SniffContent bool
}

// SourceFSAdapter enumerates scan candidates under a root directory.
type SourceFSAdapter interface {
	Discover(ctx context.Context, root m.Path, opts DiscoverOptions) ([]m.File, error)
}

// LocalSourceFSAdapter discovers files on the local filesystem.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// Discover walks root in parallel and returns the matching regular files
// sorted by path. The root must exist and be readable; unreadable entries
// below it are logged and skipped. Symlinks are not followed.
func (a *LocalSourceFSAdapter) Discover(ctx context.Context, root m.Path, opts DiscoverOptions) ([]m.File, error) {
	rootPath := filepath.Clean(string(root))

	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %w: %s", ErrNotDirectory, root)
	}

	excludes, err := compileExcludes(opts.Exclude)
	if err != nil {
		return nil, err
	}

	extensions := normalizeExtensions(opts.Extensions)

	var (
		mu    sync.Mutex
		files []m.File
	)

	conf := &fastwalk.Config{
		Follow: false,
	}

	walkErr := fastwalk.Walk(conf, rootPath, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == rootPath {
				return err
			}

			slog.Warn("skipping unreadable entry", "path", path, "error", err)

			return nil
		}

		if path == rootPath {
			return nil
		}

		rel := relativePath(rootPath, path)

		if d.IsDir() {
			if matchesAny(excludes, rel) {
				slog.Debug("excluded directory", "path", path)
				return fs.SkipDir
			}

			return nil
		}

		if !d.Type().IsRegular() || matchesAny(excludes, rel) {
			return nil
		}

		file, ok := a.candidate(path, d, extensions, opts.SniffContent)
		if !ok {
			return nil
		}

		mu.Lock()
		files = append(files, file)
		mu.Unlock()

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", root, walkErr)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	slog.Debug("discovery finished", "root", root, "files", len(files))

	return files, nil
}

func (a *LocalSourceFSAdapter) candidate(path string, d fs.DirEntry, extensions []string, sniff bool) (m.File, bool) {
	file := m.File{Path: m.Path(path)}

	if !hasExtension(path, extensions) {
		if !sniff {
			return m.File{}, false
		}

		mtype, err := mimetype.DetectFile(path)
		if err != nil {
			slog.Warn("content detection failed", "path", path, "error", err)
			return m.File{}, false
		}

		if !mtype.Is(phpMIME) {
			return m.File{}, false
		}

		file.MIME = mtype.String()
	}

	if info, err := d.Info(); err == nil {
		file.Size = info.Size()
	}

	return file, true
}

func compileExcludes(patterns []string) ([]*regexp.Regexp, error) {
	excludes := make([]*regexp.Regexp, 0, len(patterns))

	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}

		excludes = append(excludes, re)
	}

	return excludes, nil
}

func matchesAny(excludes []*regexp.Regexp, rel string) bool {
	for _, re := range excludes {
		if re.MatchString(rel) {
			return true
		}
	}

	return false
}

func normalizeExtensions(extensions []string) []string {
	normalized := make([]string, 0, len(extensions))

	for _, ext := range extensions {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}

		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}

		normalized = append(normalized, strings.ToLower(ext))
	}

	return normalized
}

func hasExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}

	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range extensions {
		if ext == want {
			return true
		}
	}

	return false
}

func relativePath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}

	return filepath.ToSlash(rel)
}
