package learner

import (
	"crypto/ecdsa"
	"strings"
)

// Identity is the active user's handle on the ledger.
// Key is nil for watch-only identities, which can load but not submit.
type Identity struct {
	Address string
	Key     *ecdsa.PrivateKey
}

// IsZero reports whether the identity is absent.
func (i Identity) IsZero() bool {
	return strings.TrimSpace(i.Address) == ""
}

// CanSign reports whether the identity holds a signing key.
func (i Identity) CanSign() bool {
	return i.Key != nil
}

// SameAddress compares two ledger addresses case-insensitively.
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// IdentitySource supplies the current identity and reports changes to it.
type IdentitySource interface {
	// Current returns the active identity, or false if none is connected.
	Current() (Identity, bool)

	// Subscribe registers fn to be called after every identity change.
	// present is false when the identity was disconnected. If an identity
	// is connected at subscription time, fn is first called with it.
	// The returned function removes the subscription.
	Subscribe(fn func(identity Identity, present bool)) (cancel func())
}
