package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"autolearner-go/internal/learner"
	"autolearner-go/internal/model"
)

// MemoryLedger is an in-process implementation of the Ledger interface.
// It behaves like the registry contract: ids are assigned sequentially from 1,
// records are never deleted, and a record can be marked processed once.
// This implementation is safe for concurrent use.
type MemoryLedger struct {
	clock learner.Clock

	mu      sync.RWMutex
	records map[string]*model.ContentRecord
	owners  map[string][]string // lowercased owner -> ids in submission order
	nextID  uint64
	blocks  uint64
}

var _ learner.Ledger = (*MemoryLedger)(nil)

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger(clock learner.Clock) *MemoryLedger {
	return &MemoryLedger{
		clock:   clock,
		records: make(map[string]*model.ContentRecord),
		owners:  make(map[string][]string),
	}
}

// ListRecordIDs returns the ids owned by owner in submission order.
func (l *MemoryLedger) ListRecordIDs(ctx context.Context, owner string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	return append([]string(nil), l.owners[strings.ToLower(owner)]...), nil
}

// GetRecord returns a copy of the record with the given id.
func (l *MemoryLedger) GetRecord(ctx context.Context, id string) (*model.ContentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.records[id]
	if !ok {
		return nil, fmt.Errorf("record %s does not exist", id)
	}
	cp := *rec
	return &cp, nil
}

// Submit appends a new unprocessed record owned by identity.
func (l *MemoryLedger) Submit(ctx context.Context, identity learner.Identity, sourceReference string) (*model.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if identity.IsZero() {
		return nil, fmt.Errorf("submission has no sender")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	l.blocks++
	id := strconv.FormatUint(l.nextID, 10)
	owner := strings.ToLower(identity.Address)

	l.records[id] = &model.ContentRecord{
		ID:              id,
		Owner:           identity.Address,
		SourceReference: sourceReference,
		SubmittedAt:     l.clock.Now(),
	}
	l.owners[owner] = append(l.owners[owner], id)

	return &model.Receipt{
		TxHash:      fmt.Sprintf("0x%064x", l.blocks),
		BlockNumber: l.blocks,
		RecordID:    id,
	}, nil
}

// MarkProcessed attaches the auxiliary references to a record, standing in
// for the external processing pipeline. A record can only be processed once.
func (l *MemoryLedger) MarkProcessed(id, flashcardRef, quizRef, audioRef string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[id]
	if !ok {
		return fmt.Errorf("record %s does not exist", id)
	}
	if rec.Processed {
		return fmt.Errorf("record %s is already processed", id)
	}

	rec.Processed = true
	rec.FlashcardReference = flashcardRef
	rec.QuizReference = quizRef
	rec.AudioReference = audioRef
	return nil
}
