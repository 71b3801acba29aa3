package learner

import (
	"context"

	"autolearner-go/internal/model"
)

// Ledger provides access to the on-chain content registry.
// Implementations never cache: every call reflects the ledger's current state.
type Ledger interface {
	// ListRecordIDs returns the identifiers of all records owned by owner,
	// in submission order (oldest first).
	ListRecordIDs(ctx context.Context, owner string) ([]string, error)

	// GetRecord returns the record with the given identifier.
	GetRecord(ctx context.Context, id string) (*model.ContentRecord, error)

	// Submit appends a new record attributed to identity and waits until the
	// ledger confirms it.
	Submit(ctx context.Context, identity Identity, sourceReference string) (*model.Receipt, error)
}
