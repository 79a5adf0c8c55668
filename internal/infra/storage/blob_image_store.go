// Package storage keeps member photos in a gocloud.dev blob bucket.
package storage

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"familydir/config"
	"familydir/internal/domain/lifecycle"
	"familydir/internal/domain/service"
	"familydir/internal/errors"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	// Bucket drivers selectable through images.bucketUrl.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

const defaultImageExt = ".jpg"

// BlobImageStore implements service.ImageStore on a gocloud.dev bucket.
type BlobImageStore struct {
	bucket        *blob.Bucket
	keyPrefix     string
	publicBaseURL string
	timeout       time.Duration
	logger        *slog.Logger
}

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// New opens the configured bucket and closes it when the application stops.
func New(params Params) (service.ImageStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), lifecycle.DefaultTimeout)
	defer cancel()

	store, err := Open(ctx, params.Config.Images, params.Logger)
	if err != nil {
		return nil, err
	}

	params.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return store.Close()
		},
	})

	return store, nil
}

// Open opens the bucket named by cfg.BucketURL.
func Open(ctx context.Context, cfg *config.ImagesConfig, logger *slog.Logger) (*BlobImageStore, error) {
	bucket, err := blob.OpenBucket(ctx, cfg.BucketURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open image bucket %q", cfg.BucketURL)
	}

	return &BlobImageStore{
		bucket:        bucket,
		keyPrefix:     strings.TrimPrefix(cfg.KeyPrefix, "/"),
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		timeout:       cfg.Timeout,
		logger:        logger,
	}, nil
}

// Upload writes the photo under a fresh key and returns that key as the reference.
func (s *BlobImageStore) Upload(ctx context.Context, upload *service.ImageUpload) (string, error) {
	if upload == nil || upload.Body == nil {
		return "", errors.New("empty image upload")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := s.keyPrefix + uuid.NewString() + imageExt(upload)

	w, err := s.bucket.NewWriter(ctx, key, &blob.WriterOptions{ContentType: upload.ContentType})
	if err != nil {
		return "", errors.Wrap(err, "failed to open image writer")
	}

	if _, err := io.Copy(w, upload.Body); err != nil {
		_ = w.Close()

		return "", errors.Wrap(err, "failed to write image")
	}

	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "failed to store image")
	}

	s.logger.DebugContext(ctx, "Image uploaded", slog.String("key", key))

	return key, nil
}

// Delete removes the object behind ref. Missing objects and external URLs are ignored.
func (s *BlobImageStore) Delete(ctx context.Context, ref string) error {
	if ref == "" || isAbsoluteURL(ref) {
		return nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.bucket.Delete(ctx, ref); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil
		}

		return errors.Wrap(err, "failed to delete image")
	}

	return nil
}

// URL renders ref for clients. Absolute URLs pass through unchanged.
func (s *BlobImageStore) URL(ref string) string {
	if ref == "" || isAbsoluteURL(ref) || s.publicBaseURL == "" {
		return ref
	}

	return s.publicBaseURL + "/" + strings.TrimPrefix(ref, "/")
}

// Read returns a reader for the object behind ref along with its content type.
func (s *BlobImageStore) Read(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	if ref == "" || isAbsoluteURL(ref) || strings.Contains(ref, "..") {
		return nil, "", errors.Wrapf(service.ErrImageNotFound, "image %q", ref)
	}

	r, err := s.bucket.NewReader(ctx, ref, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, "", errors.Wrapf(service.ErrImageNotFound, "image %q", ref)
		}

		return nil, "", errors.Wrap(err, "failed to open image")
	}

	return r, r.ContentType(), nil
}

// Close releases the bucket.
func (s *BlobImageStore) Close() error {
	return errors.WithStack(s.bucket.Close())
}

func (s *BlobImageStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, s.timeout)
}

func imageExt(upload *service.ImageUpload) string {
	if ext := strings.ToLower(path.Ext(upload.Filename)); ext != "" {
		return ext
	}

	if upload.ContentType != "" {
		if exts, err := mime.ExtensionsByType(upload.ContentType); err == nil && len(exts) > 0 {
			return exts[0]
		}
	}

	return defaultImageExt
}

func isAbsoluteURL(ref string) bool {
	u, err := url.Parse(ref)

	return err == nil && u.Scheme != "" && u.Host != ""
}
