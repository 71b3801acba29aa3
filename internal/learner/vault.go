package learner

import (
	"context"
	"io"
)

// Vault caches immutable content-addressed payloads.
// All operations use io.Reader/io.Writer for streaming.
type Vault interface {
	// PutContent stores content identified by its reference.
	// The operation is idempotent: storing the same reference multiple times is safe.
	// size is the number of bytes that will be read from r.
	PutContent(ctx context.Context, ref string, r io.Reader, size int64) error

	// GetContent retrieves content by reference and writes it to w.
	// Returns an error wrapping ErrContentNotFound if the reference is not cached.
	GetContent(ctx context.Context, ref string, w io.Writer) error

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}
