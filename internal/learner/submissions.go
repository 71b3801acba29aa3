package learner

import "autolearner-go/internal/model"

// SubmissionLog records submissions made from this host.
// The ledger remains the source of truth; the log only serves local history.
type SubmissionLog interface {
	// RecordSubmission appends a submission to the log.
	RecordSubmission(sub *model.Submission) error

	// ListSubmissions returns up to limit submissions by owner, newest first.
	ListSubmissions(owner string, limit int) ([]*model.Submission, error)

	// Close closes the underlying storage.
	Close() error
}
