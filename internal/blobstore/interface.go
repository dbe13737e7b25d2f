// Package blobstore is the external storage tier for asset content that
// exceeds the inline threshold.
package blobstore

import (
	"context"
	"io"
)

// PutResult describes one persisted content object.
type PutResult struct {
	SHA256    string
	SizeBytes int64
	BlobKey   string
}

// BlobStore is the byte-storage abstraction used by the asset service.
type BlobStore interface {
	Put(ctx context.Context, r io.Reader) (PutResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
