// Package storage keeps uploaded files and rendered artifacts in named
// buckets and maps them to the public URLs the API serves them under.
//
// Two backends are provided: [Local] writes to a directory tree and
// [GridFS] stores files in MongoDB. Both publish objects at
// /api/<bucket>/<path>.
package storage

import (
	"context"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/siete/assetforge/pkg/errors"
)

// Buckets.
const (
	BucketUploads = "uploads"
	BucketRenders = "renders"
)

var buckets = map[string]bool{BucketUploads: true, BucketRenders: true}

// Object is an open stored file.
type Object struct {
	io.ReadCloser
	ContentType string
	Size        int64
}

// Storage stores files in buckets.
type Storage interface {
	// Upload stores data at name in bucket, replacing any previous object,
	// and returns its public URL.
	Upload(ctx context.Context, bucket, name string, data []byte, contentType string) (string, error)
	Open(ctx context.Context, bucket, name string) (*Object, error)
	Delete(ctx context.Context, bucket, name string) error
	PublicURL(bucket, name string) string
}

// ValidateBucket rejects unknown bucket names.
func ValidateBucket(bucket string) error {
	if !buckets[bucket] {
		return errors.New(errors.ErrCodeInvalidInput, "unknown bucket %q", bucket)
	}
	return nil
}

func validate(bucket, name string) error {
	if err := ValidateBucket(bucket); err != nil {
		return err
	}
	return errors.ValidatePath(name)
}

// publicURL joins base with /api/<bucket>/<name>.
func publicURL(base, bucket, name string) string {
	return strings.TrimRight(base, "/") + "/api/" + bucket + "/" + name
}

// DetectContentType guesses a MIME type from the file extension.
func DetectContentType(name string) string {
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(name))); t != "" {
		return t
	}
	return "application/octet-stream"
}
