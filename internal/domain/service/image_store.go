// Package service declares the ports the use cases need from adapters: images, maps, QR
// codes and credentials.
package service

import (
	"context"
	"io"

	"familydir/internal/errors"
)

// ErrImageNotFound is returned by ImageStore.Read when no image exists for a ref.
var ErrImageNotFound = errors.New("image not found")

// ImageUpload is a photo received from a client.
type ImageUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// ImageStore keeps member photos outside the member store.
type ImageStore interface {
	// Upload stores the image and returns an opaque reference to it.
	Upload(ctx context.Context, upload *ImageUpload) (string, error)

	// Delete removes the image behind ref.
	Delete(ctx context.Context, ref string) error

	// Read opens the image behind ref and reports its content type.
	Read(ctx context.Context, ref string) (io.ReadCloser, string, error)

	// URL renders ref as a client-facing URL. Empty refs render as "".
	URL(ref string) string
}
