package storage

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/siete/assetforge/pkg/errors"
)

// GridFS stores each bucket as a GridFS bucket of the same name.
type GridFS struct {
	db      *mongo.Database
	baseURL string
}

// NewGridFS creates GridFS storage in db.
func NewGridFS(db *mongo.Database, baseURL string) *GridFS {
	return &GridFS{db: db, baseURL: baseURL}
}

type fileDoc struct {
	ID       any    `bson:"_id"`
	Length   int64  `bson:"length"`
	Metadata bson.M `bson:"metadata"`
}

func (g *GridFS) bucket(ctx context.Context, name string) (*gridfs.Bucket, error) {
	if err := ValidateBucket(name); err != nil {
		return nil, err
	}
	b, err := gridfs.NewBucket(g.db, options.GridFSBucket().SetName(name))
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", name, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = b.SetReadDeadline(deadline)
		_ = b.SetWriteDeadline(deadline)
	}
	return b, nil
}

func (g *GridFS) Upload(ctx context.Context, bucket, name string, data []byte, contentType string) (string, error) {
	if err := validate(bucket, name); err != nil {
		return "", err
	}
	b, err := g.bucket(ctx, bucket)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = DetectContentType(name)
	}
	opts := options.GridFSUpload().SetMetadata(bson.D{
		{Key: "content_type", Value: contentType},
		{Key: "uploaded_at", Value: time.Now().UTC()},
	})
	if _, err := b.UploadFromStream(name, bytes.NewReader(data), opts); err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", bucket, name, err)
	}
	// Older revisions go after the new one is in place.
	files, err := g.files(ctx, b, name)
	if err == nil && len(files) > 1 {
		for _, f := range files[1:] {
			_ = b.Delete(f.ID)
		}
	}
	return g.PublicURL(bucket, name), nil
}

func (g *GridFS) Open(ctx context.Context, bucket, name string) (*Object, error) {
	if err := validate(bucket, name); err != nil {
		return nil, err
	}
	b, err := g.bucket(ctx, bucket)
	if err != nil {
		return nil, err
	}
	files, err := g.files(ctx, b, name)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New(errors.ErrCodeNotFound, "%s/%s not found", bucket, name)
	}
	f := files[0]
	stream, err := b.OpenDownloadStream(f.ID)
	if stderrors.Is(err, gridfs.ErrFileNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "%s/%s not found", bucket, name)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s/%s: %w", bucket, name, err)
	}
	ct, _ := f.Metadata["content_type"].(string)
	if ct == "" {
		ct = DetectContentType(name)
	}
	return &Object{ReadCloser: stream, ContentType: ct, Size: f.Length}, nil
}

func (g *GridFS) Delete(ctx context.Context, bucket, name string) error {
	if err := validate(bucket, name); err != nil {
		return err
	}
	b, err := g.bucket(ctx, bucket)
	if err != nil {
		return err
	}
	files, err := g.files(ctx, b, name)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := b.Delete(f.ID); err != nil && !stderrors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("delete %s/%s: %w", bucket, name, err)
		}
	}
	return nil
}

func (g *GridFS) PublicURL(bucket, name string) string {
	return publicURL(g.baseURL, bucket, name)
}

// files returns the revisions of name, newest first.
func (g *GridFS) files(ctx context.Context, b *gridfs.Bucket, name string) ([]fileDoc, error) {
	opts := options.GridFSFind().SetSort(bson.D{{Key: "uploadDate", Value: -1}})
	cur, err := b.Find(bson.M{"filename": name}, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", name, err)
	}
	var out []fileDoc
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return out, nil
}

var _ Storage = (*GridFS)(nil)
