// Package storage provides object-storage access over gocloud.dev blob.
// The s3 backend works with AWS S3, Backblaze B2, Cloudflare R2, and MinIO;
// the local backend maps buckets onto directories for offline use and tests.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/s3blob" // S3 driver
	"gocloud.dev/gcerrors"
)

// ErrNotFound is returned by Head when the key does not exist.
var ErrNotFound = errors.New("object not found")

// Object describes one listed remote object.
type Object struct {
	Key  string
	Size int64
}

// Config selects and parameterizes a storage backend.
type Config struct {
	Backend   string // "s3" | "local"
	Bucket    string
	Endpoint  string // custom endpoint for B2/MinIO/R2, empty for AWS
	Region    string
	LocalRoot string // base directory for the local backend
}

// Bucket is a handle to one bucket, scoped to the four operations the
// pipeline needs: list, head, get, put.
type Bucket struct {
	name   string
	scheme string
	b      *blob.Bucket
}

// Open opens a bucket for the configured backend.
func Open(ctx context.Context, cfg Config) (*Bucket, error) {
	switch cfg.Backend {
	case "s3":
		bucketURL := fmt.Sprintf("s3://%s", cfg.Bucket)

		params := url.Values{}
		if cfg.Region != "" {
			params.Set("region", cfg.Region)
		}
		if cfg.Endpoint != "" {
			params.Set("endpoint", cfg.Endpoint)
			params.Set("s3ForcePathStyle", "true")
		}
		if len(params) > 0 {
			bucketURL = bucketURL + "?" + params.Encode()
		}

		b, err := blob.OpenBucket(ctx, bucketURL)
		if err != nil {
			return nil, fmt.Errorf("open S3 bucket %s: %w", cfg.Bucket, err)
		}
		return &Bucket{name: cfg.Bucket, scheme: "s3", b: b}, nil

	case "local":
		dir := filepath.Join(cfg.LocalRoot, cfg.Bucket)
		b, err := fileblob.OpenBucket(dir, &fileblob.Options{CreateDir: true})
		if err != nil {
			return nil, fmt.Errorf("open local bucket %s: %w", dir, err)
		}
		return &Bucket{name: cfg.Bucket, scheme: "file", b: b}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// NewBucket wraps an already-open blob bucket. Used by tests with memblob.
func NewBucket(name, scheme string, b *blob.Bucket) *Bucket {
	return &Bucket{name: name, scheme: scheme, b: b}
}

// Name returns the bucket name.
func (s *Bucket) Name() string {
	return s.name
}

// URI returns a display URI for the given key.
func (s *Bucket) URI(key string) string {
	return fmt.Sprintf("%s://%s/%s", s.scheme, s.name, key)
}

// List returns all objects under prefix in storage-listing order.
func (s *Bucket) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object

	iter := s.b.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", s.URI(prefix), err)
		}
		if obj.IsDir {
			continue
		}
		objects = append(objects, Object{Key: obj.Key, Size: obj.Size})
	}

	return objects, nil
}

// Head returns the size of the object at key, or ErrNotFound.
func (s *Bucket) Head(ctx context.Context, key string) (int64, error) {
	attrs, err := s.b.Attributes(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return 0, fmt.Errorf("%s: %w", s.URI(key), ErrNotFound)
		}
		return 0, fmt.Errorf("head %s: %w", s.URI(key), err)
	}
	return attrs.Size, nil
}

// Exists reports whether the object at key exists.
func (s *Bucket) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.b.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", s.URI(key), err)
	}
	return ok, nil
}

// Download streams the object at key into the file at destPath. The parent
// directory must already exist. A failed download may leave a partial file;
// callers are expected to remove it.
func (s *Bucket) Download(ctx context.Context, key, destPath string) error {
	r, err := s.b.NewReader(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("open object %s: %w", s.URI(key), err)
	}
	defer r.Close()

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("download %s to %s: %w", s.URI(key), destPath, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", destPath, err)
	}
	return nil
}

// Upload streams the file at srcPath to the object at key.
func (s *Bucket) Upload(ctx context.Context, srcPath, key string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", srcPath, err)
	}
	defer f.Close()

	w, err := s.b.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("create writer for %s: %w", s.URI(key), err)
	}

	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return fmt.Errorf("upload %s to %s: %w", srcPath, s.URI(key), err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", s.URI(key), err)
	}
	return nil
}

// Close releases the underlying bucket connection.
func (s *Bucket) Close() error {
	if s.b != nil {
		return s.b.Close()
	}
	return nil
}
