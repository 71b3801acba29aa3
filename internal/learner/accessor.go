package learner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"autolearner-go/internal/model"
)

// maxConcurrentRecords bounds the number of record bodies fetched at once.
const maxConcurrentRecords = 8

// State is a copy of the accessor's committed view.
type State struct {
	Status    model.Status
	Identity  string // Address the view belongs to; empty when idle
	Materials []*model.Material
	Err       error
	LoadedAt  time.Time
}

// Accessor maintains an in-memory view of the active identity's content
// records and submits new ones. Loads may overlap; each load takes a
// generation number when it starts and only the newest one commits.
type Accessor struct {
	ledger      Ledger
	fetcher     ContentFetcher
	identities  IdentitySource
	submissions SubmissionLog
	logger      Logger
	clock       Clock
	idgen       IDGenerator

	mu         sync.Mutex
	generation uint64
	state      State
}

// NewAccessor creates an Accessor with the provided dependencies.
// submissions may be nil, in which case submissions are not logged locally.
func NewAccessor(ledger Ledger, fetcher ContentFetcher, identities IdentitySource, submissions SubmissionLog, logger Logger, clock Clock, idgen IDGenerator) *Accessor {
	return &Accessor{
		ledger:      ledger,
		fetcher:     fetcher,
		identities:  identities,
		submissions: submissions,
		logger:      logger,
		clock:       clock,
		idgen:       idgen,
		state:       State{Status: model.StatusIdle},
	}
}

// Snapshot returns a copy of the committed state.
func (a *Accessor) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.state
	s.Materials = append([]*model.Material(nil), a.state.Materials...)
	return s
}

// Material returns the committed material with the given record id.
func (a *Accessor) Material(id string) (*model.Material, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, m := range a.state.Materials {
		if m.Record.ID == id {
			return m, true
		}
	}
	return nil, false
}

// Load fetches the records owned by identity, newest first, and commits them
// as the accessor's view unless a newer load has started in the meantime.
// A zero identity is a no-op. Ledger failures fail the whole load and clear
// the view; auxiliary payload failures only empty the affected field.
func (a *Accessor) Load(ctx context.Context, identity Identity) ([]*model.Material, error) {
	if identity.IsZero() {
		return nil, nil
	}
	gen := a.begin(identity.Address)
	return a.finish(ctx, gen, identity.Address)
}

// Reload re-runs Load for the currently connected identity.
func (a *Accessor) Reload(ctx context.Context) ([]*model.Material, error) {
	identity, ok := a.identities.Current()
	if !ok || identity.IsZero() {
		return nil, ErrUnauthenticated
	}
	return a.Load(ctx, identity)
}

// Run loads the current identity's records and reloads them on every
// identity change until ctx is done. A disconnect returns the accessor to
// idle. Run waits for in-flight loads before returning.
func (a *Accessor) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	// Generations are taken synchronously in the callback so that the
	// order of identity changes, not goroutine scheduling, decides which
	// load commits last.
	follow := func(identity Identity, present bool) {
		if !present || identity.IsZero() {
			a.reset()
			return
		}
		gen := a.begin(identity.Address)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.finish(ctx, gen, identity.Address); err != nil {
				a.logger.Error("loading records failed", "identity", identity.Address, "error", err)
			}
		}()
	}

	cancel := a.identities.Subscribe(follow)

	<-ctx.Done()
	cancel()
	wg.Wait()
	return nil
}

// begin starts a new generation and moves the view to Loading.
func (a *Accessor) begin(address string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.generation++
	if !SameAddress(a.state.Identity, address) {
		a.state.Materials = nil
	}
	a.state.Status = model.StatusLoading
	a.state.Identity = address
	a.state.Err = nil
	return a.generation
}

// finish performs the load for a generation obtained from begin and commits the outcome.
func (a *Accessor) finish(ctx context.Context, gen uint64, address string) ([]*model.Material, error) {
	a.logger.Debug("loading records", "identity", address, "generation", gen)

	materials, err := a.load(ctx, address)
	a.commit(gen, address, materials, err)
	if err != nil {
		return nil, err
	}
	return materials, nil
}

// commit publishes a load outcome if gen is still the newest generation.
func (a *Accessor) commit(gen uint64, address string, materials []*model.Material, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if gen != a.generation {
		a.logger.Debug("discarding stale load", "identity", address, "generation", gen, "current", a.generation)
		return
	}

	if err != nil {
		a.state = State{Status: model.StatusFailed, Identity: address, Err: err}
		return
	}

	a.state = State{
		Status:    model.StatusReady,
		Identity:  address,
		Materials: materials,
		LoadedAt:  a.clock.Now(),
	}
	a.logger.Info("records loaded", "identity", address, "count", len(materials))
}

// reset drops the view and invalidates in-flight loads.
func (a *Accessor) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.generation++
	a.state = State{Status: model.StatusIdle}
	a.logger.Debug("identity disconnected, view cleared")
}

// load fetches and materialises all records of owner, newest first.
func (a *Accessor) load(ctx context.Context, owner string) ([]*model.Material, error) {
	ids, err := a.ledger.ListRecordIDs(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: listing records for %s: %w", ErrLedgerRead, owner, err)
	}

	materials := make([]*model.Material, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRecords)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			rec, err := a.ledger.GetRecord(gctx, id)
			if err != nil {
				return fmt.Errorf("%w: fetching record %s: %w", ErrLedgerRead, id, err)
			}
			if rec == nil {
				return fmt.Errorf("%w: record %s not found", ErrLedgerRead, id)
			}
			if rec.Owner != "" && !SameAddress(rec.Owner, owner) {
				a.logger.Warn("skipping record owned by another identity", "record", id, "owner", rec.Owner)
				return nil
			}
			materials[i] = a.materialize(gctx, rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Ledger order is oldest first; present newest first.
	out := make([]*model.Material, 0, len(materials))
	for i := len(materials) - 1; i >= 0; i-- {
		if materials[i] != nil {
			out = append(out, materials[i])
		}
	}
	return out, nil
}

// materialize resolves the auxiliary payloads of a processed record.
// Each payload is fetched concurrently; a failure leaves that field empty.
func (a *Accessor) materialize(ctx context.Context, rec *model.ContentRecord) *model.Material {
	m := &model.Material{Record: *rec}
	if !rec.Processed {
		return m
	}

	var g errgroup.Group
	if ref := rec.FlashcardReference; ref != "" {
		g.Go(func() error {
			cards, err := a.fetchFlashcards(ctx, ref)
			if err != nil {
				a.auxFailed(rec.ID, "flashcards", err)
				return nil
			}
			m.Flashcards = cards
			return nil
		})
	}
	if ref := rec.QuizReference; ref != "" {
		g.Go(func() error {
			quiz, err := a.fetchQuiz(ctx, ref)
			if err != nil {
				a.auxFailed(rec.ID, "quiz", err)
				return nil
			}
			m.Quiz = quiz
			return nil
		})
	}
	if ref := rec.AudioReference; ref != "" {
		g.Go(func() error {
			url, err := a.fetcher.Resolve(ctx, ref)
			if err != nil {
				a.auxFailed(rec.ID, "audio", fmt.Errorf("%w: audio %s: %w", ErrAuxiliaryFetch, ref, err))
				return nil
			}
			m.AudioURL = url
			return nil
		})
	}
	_ = g.Wait()

	return m
}

func (a *Accessor) fetchFlashcards(ctx context.Context, ref string) (model.FlashcardSet, error) {
	data, err := a.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: flashcards %s: %w", ErrAuxiliaryFetch, ref, err)
	}
	cards, err := DecodeFlashcards(data)
	if err != nil {
		return nil, fmt.Errorf("%w: flashcards %s: %w", ErrAuxiliaryFetch, ref, err)
	}
	return cards, nil
}

func (a *Accessor) fetchQuiz(ctx context.Context, ref string) (model.QuizSet, error) {
	data, err := a.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: quiz %s: %w", ErrAuxiliaryFetch, ref, err)
	}
	quiz, err := DecodeQuiz(data)
	if err != nil {
		return nil, fmt.Errorf("%w: quiz %s: %w", ErrAuxiliaryFetch, ref, err)
	}
	return quiz, nil
}

func (a *Accessor) auxFailed(recordID, field string, err error) {
	a.logger.Warn("auxiliary content unavailable", "record", recordID, "field", field, "error", err)
}
