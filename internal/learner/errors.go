package learner

import "errors"

var (
	// ErrUnauthenticated is returned when an operation needs an identity and none is connected.
	ErrUnauthenticated = errors.New("unauthenticated: no identity connected")

	// ErrInvalidSource is returned when a submission has a blank source reference.
	ErrInvalidSource = errors.New("source reference is empty")

	// ErrLedgerRead marks a failure to list or fetch records. It fails the whole load.
	ErrLedgerRead = errors.New("ledger read failed")

	// ErrLedgerWrite marks a rejected or failed submission.
	ErrLedgerWrite = errors.New("ledger write failed")

	// ErrAuxiliaryFetch marks a failed or malformed flashcard, quiz or audio payload.
	// It never escapes the accessor.
	ErrAuxiliaryFetch = errors.New("auxiliary content fetch failed")

	// ErrContentNotFound is returned by a Vault on a cache miss.
	ErrContentNotFound = errors.New("content not found")
)
