package assets

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/siete/assetforge/pkg/errors"
)

// Fetcher downloads remote files with a size cap.
type Fetcher interface {
	Download(ctx context.Context, url string, limit int64) ([]byte, error)
}

// MaxSVGSize caps remote and local SVG templates.
const MaxSVGSize = 10 << 20

// Loader reads SVG templates. Local paths must resolve inside one of the
// allowed directories.
type Loader struct {
	allowed []string
	fetch   Fetcher
}

// NewLoader creates a Loader confined to dirs. Directories that cannot be
// made absolute are ignored.
func NewLoader(fetch Fetcher, dirs ...string) *Loader {
	l := &Loader{fetch: fetch}
	for _, d := range dirs {
		if d == "" {
			continue
		}
		abs, err := filepath.Abs(d)
		if err != nil {
			continue
		}
		if real, err := filepath.EvalSymlinks(abs); err == nil {
			abs = real
		}
		l.allowed = append(l.allowed, abs)
	}
	return l
}

// LoadSVG returns the SVG source behind url. file:// URLs and bare paths are
// read from disk; http(s) URLs go through the Fetcher.
func (l *Loader) LoadSVG(ctx context.Context, url string) (string, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		if l.fetch == nil {
			return "", errors.New(errors.ErrCodeUnsupported, "remote svg templates are disabled")
		}
		data, err := l.fetch.Download(ctx, url, MaxSVGSize)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	path := strings.TrimPrefix(url, "file://")
	resolved, err := l.confine(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if os.IsNotExist(err) {
		return "", errors.Wrap(errors.ErrCodeNotFound, err, "svg template %s", path)
	}
	if err != nil {
		return "", err
	}
	if len(data) > MaxSVGSize {
		return "", errors.New(errors.ErrCodeInvalidSVG, "svg template %s exceeds %d bytes", path, MaxSVGSize)
	}
	return string(data), nil
}

// LoadAll loads every url concurrently and returns the sources in the same
// order. Repeated urls are loaded once. The first failure cancels the rest.
func (l *Loader) LoadAll(ctx context.Context, urls []string) ([]string, error) {
	index := make(map[string]int, len(urls))
	var unique []string
	for _, u := range urls {
		if _, ok := index[u]; !ok {
			index[u] = len(unique)
			unique = append(unique, u)
		}
	}

	loaded := make([]string, len(unique))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, u := range unique {
		g.Go(func() error {
			svg, err := l.LoadSVG(ctx, u)
			if err != nil {
				return err
			}
			loaded[i] = svg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = loaded[index[u]]
	}
	return out, nil
}

// confine resolves path and checks that it lies inside an allowed directory.
func (l *Loader) confine(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", path)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	for _, dir := range l.allowed {
		rel, err := filepath.Rel(dir, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return abs, nil
		}
	}
	return "", errors.New(errors.ErrCodePathDenied, "access denied: %s is outside allowed directories", path)
}
