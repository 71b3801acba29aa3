package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"autolearner-go/internal/learner"
)

// MemoryVault is an in-memory content cache.
// Useful for testing and for a serve process that should not touch disk.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	name    string
	content map[string][]byte // ref -> payload
	mu      sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:    name,
		content: make(map[string][]byte),
	}
}

// PutContent stores content identified by its reference.
func (m *MemoryVault) PutContent(ctx context.Context, ref string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.content[ref] = data
	return nil
}

// GetContent retrieves content by reference.
func (m *MemoryVault) GetContent(ctx context.Context, ref string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	data, ok := m.content[ref]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", learner.ErrContentNotFound, ref)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}

	return nil
}

// Len returns the number of cached payloads.
func (m *MemoryVault) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.content)
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup(context.Context) error {
	return nil
}

// Compile-time check that MemoryVault implements learner.Vault interface
var _ learner.Vault = (*MemoryVault)(nil)
