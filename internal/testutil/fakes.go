package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"autolearner-go/internal/learner"
	"autolearner-go/internal/model"
)

// ScriptedLedger wraps a Ledger and lets tests inject failures, block
// listing calls per owner, and count calls. Configure it before use.
type ScriptedLedger struct {
	Inner learner.Ledger

	ListErr   error
	GetErr    map[string]error         // record id -> error
	SubmitErr error
	Gates     map[string]chan struct{} // lowercased owner -> closed to release ListRecordIDs
	Started   chan string              // receives the owner when ListRecordIDs is entered, if non-nil; buffer it

	mu          sync.Mutex
	listCalls   int
	getCalls    int
	submitCalls int
}

var _ learner.Ledger = (*ScriptedLedger)(nil)

// NewScriptedLedger wraps inner.
func NewScriptedLedger(inner learner.Ledger) *ScriptedLedger {
	return &ScriptedLedger{
		Inner:  inner,
		GetErr: make(map[string]error),
		Gates:  make(map[string]chan struct{}),
	}
}

func (l *ScriptedLedger) ListRecordIDs(ctx context.Context, owner string) ([]string, error) {
	l.mu.Lock()
	l.listCalls++
	err := l.ListErr
	gate := l.Gates[strings.ToLower(owner)]
	l.mu.Unlock()

	if l.Started != nil {
		l.Started <- owner
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return l.Inner.ListRecordIDs(ctx, owner)
}

func (l *ScriptedLedger) GetRecord(ctx context.Context, id string) (*model.ContentRecord, error) {
	l.mu.Lock()
	l.getCalls++
	err := l.GetErr[id]
	l.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return l.Inner.GetRecord(ctx, id)
}

func (l *ScriptedLedger) Submit(ctx context.Context, identity learner.Identity, sourceReference string) (*model.Receipt, error) {
	l.mu.Lock()
	l.submitCalls++
	err := l.SubmitErr
	l.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return l.Inner.Submit(ctx, identity, sourceReference)
}

// SetGate installs (or with a nil gate, removes) the gate for owner.
func (l *ScriptedLedger) SetGate(owner string, gate chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gate == nil {
		delete(l.Gates, strings.ToLower(owner))
		return
	}
	l.Gates[strings.ToLower(owner)] = gate
}

// SetListErr changes the listing failure; safe to call while loads run.
func (l *ScriptedLedger) SetListErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ListErr = err
}

// Calls returns the number of list, get and submit calls made so far.
func (l *ScriptedLedger) Calls() (list, get, submit int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listCalls, l.getCalls, l.submitCalls
}

// FakeFetcher serves payloads from memory and records every request.
type FakeFetcher struct {
	mu       sync.Mutex
	payloads map[string][]byte
	failures map[string]error
	calls    []string
}

var _ learner.ContentFetcher = (*FakeFetcher)(nil)

func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{
		payloads: make(map[string][]byte),
		failures: make(map[string]error),
	}
}

// Add makes ref resolvable to data.
func (f *FakeFetcher) Add(ref string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[ref] = data
}

// Fail makes every request for ref return err.
func (f *FakeFetcher) Fail(ref string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[ref] = err
}

// Calls returns the references requested so far.
func (f *FakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeFetcher) Fetch(_ context.Context, ref string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, ref)
	if err := f.failures[ref]; err != nil {
		return nil, err
	}
	data, ok := f.payloads[ref]
	if !ok {
		return nil, fmt.Errorf("no payload for %s", ref)
	}
	return data, nil
}

func (f *FakeFetcher) Resolve(ctx context.Context, ref string) (string, error) {
	if _, err := f.Fetch(ctx, ref); err != nil {
		return "", err
	}
	return "https://gateway.test/ipfs/" + ref, nil
}
