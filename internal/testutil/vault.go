package testutil

import (
	"autolearner-go/internal/learner"
	"autolearner-go/internal/vault"
)

// NewTestVault creates a new in-memory content cache for testing.
func NewTestVault() learner.Vault {
	return vault.NewMemoryVault("test-cache")
}
