package app

import "time"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation tracks the CLI command being run. Its ID tags every log line
// written during the command.
type Operation struct {
	ID         string
	Name       string
	Parameters string
	Status     string // StatusSuccess or StatusError
	StartedAt  time.Time
}

// NewOperation creates an operation started at now.
func NewOperation(name, parameters string, now time.Time) *Operation {
	return &Operation{
		ID:         now.UTC().Format("20060102T150405Z"),
		Name:       name,
		Parameters: parameters,
		Status:     StatusSuccess,
		StartedAt:  now,
	}
}

// Fail marks the operation as having failed.
func (op *Operation) Fail() {
	op.Status = StatusError
}

// Failed returns true if any step of the operation failed.
func (op *Operation) Failed() bool {
	return op.Status == StatusError
}

// Elapsed returns how long the operation has run as of now.
func (op *Operation) Elapsed(now time.Time) time.Duration {
	return now.Sub(op.StartedAt)
}
