// Package blobstore persists raw replay bytes keyed by the owning record
// id. The blob always reflects the most recently accepted record state:
// writes overwrite unconditionally and no history is kept.
package blobstore

import (
	"context"

	"github.com/google/uuid"
)

type BlobStore interface {
	// Write stores the replay bytes for the record, replacing any
	// previous content.
	Write(ctx context.Context, id uuid.UUID, data []byte) error

	// Read returns the stored bytes, or common.ErrorNotFound.
	Read(ctx context.Context, id uuid.UUID) ([]byte, error)
}
