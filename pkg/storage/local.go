package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/siete/assetforge/pkg/errors"
)

// Local stores buckets as directories under a root.
type Local struct {
	root    string
	baseURL string
}

// NewLocal creates a Local storage rooted at root. baseURL prefixes public
// URLs and may be empty for host-relative URLs.
func NewLocal(root, baseURL string) (*Local, error) {
	for b := range buckets {
		if err := os.MkdirAll(filepath.Join(root, b), 0o755); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", b, err)
		}
	}
	return &Local{root: root, baseURL: baseURL}, nil
}

// Root returns the storage root.
func (l *Local) Root() string { return l.root }

func (l *Local) Upload(_ context.Context, bucket, name string, data []byte, _ string) (string, error) {
	p, err := l.path(bucket, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s/%s: %w", bucket, name, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write %s/%s: %w", bucket, name, err)
	}
	return l.PublicURL(bucket, name), nil
}

func (l *Local) Open(_ context.Context, bucket, name string) (*Object, error) {
	p, err := l.path(bucket, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeNotFound, "%s/%s not found", bucket, name)
	}
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Object{ReadCloser: f, ContentType: DetectContentType(name), Size: info.Size()}, nil
}

func (l *Local) Delete(_ context.Context, bucket, name string) error {
	p, err := l.path(bucket, name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (l *Local) PublicURL(bucket, name string) string {
	return publicURL(l.baseURL, bucket, name)
}

func (l *Local) path(bucket, name string) (string, error) {
	if err := validate(bucket, name); err != nil {
		return "", err
	}
	return filepath.Join(l.root, bucket, filepath.FromSlash(name)), nil
}

var _ Storage = (*Local)(nil)
