package learner

import (
	"context"
	"fmt"
	"strings"

	"autolearner-go/internal/model"
)

// Submit appends a new content record for the connected identity and returns
// the ledger's receipt. It does not touch the loaded view; callers reload.
// Ledger errors are returned wrapped with ErrLedgerWrite and are not retried.
func (a *Accessor) Submit(ctx context.Context, sourceReference string) (*model.Receipt, error) {
	identity, ok := a.identities.Current()
	if !ok || identity.IsZero() {
		return nil, ErrUnauthenticated
	}

	source := strings.TrimSpace(sourceReference)
	if source == "" {
		return nil, ErrInvalidSource
	}

	receipt, err := a.ledger.Submit(ctx, identity, source)
	if err != nil {
		a.logger.Error("submission failed", "identity", identity.Address, "source", source, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrLedgerWrite, err)
	}

	a.logger.Info("content submitted", "identity", identity.Address, "tx", receipt.TxHash, "record", receipt.RecordID)
	a.recordSubmission(identity.Address, source, receipt)
	return receipt, nil
}

// recordSubmission appends to the local log. The ledger already accepted the
// submission, so a log failure is only reported.
func (a *Accessor) recordSubmission(owner, source string, receipt *model.Receipt) {
	if a.submissions == nil {
		return
	}

	sub := &model.Submission{
		ID:              a.idgen.New(),
		Owner:           owner,
		SourceReference: source,
		TxHash:          receipt.TxHash,
		RecordID:        receipt.RecordID,
		SubmittedAt:     a.clock.Now(),
	}
	if err := a.submissions.RecordSubmission(sub); err != nil {
		a.logger.Warn("recording submission locally failed", "tx", receipt.TxHash, "error", err)
	}
}

// History returns the connected identity's most recent local submissions, newest first.
func (a *Accessor) History(limit int) ([]*model.Submission, error) {
	identity, ok := a.identities.Current()
	if !ok || identity.IsZero() {
		return nil, ErrUnauthenticated
	}
	if a.submissions == nil {
		return nil, nil
	}

	subs, err := a.submissions.ListSubmissions(identity.Address, limit)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	return subs, nil
}
