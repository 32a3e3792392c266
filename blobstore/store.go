// Package blobstore holds encrypted envelopes. A Store hands out an opaque
// locator on Put and returns the exact bytes on Get.
package blobstore

import "context"

// MaxBlobSize bounds a single blob (1 GB), including remote fetches.
const MaxBlobSize = 1 << 30

// Store is a content store for encrypted envelopes.
type Store interface {
	// Put stores data and returns its locator.
	Put(ctx context.Context, data []byte) (string, error)

	// Get returns the bytes stored under locator.
	Get(ctx context.Context, locator string) ([]byte, error)
}
