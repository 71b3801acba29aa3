package learner

import "context"

// ContentFetcher resolves content-addressed references.
// No authentication is required; references are immutable.
type ContentFetcher interface {
	// Fetch returns the raw bytes behind ref.
	Fetch(ctx context.Context, ref string) ([]byte, error)

	// Resolve confirms that ref is retrievable and returns a locator a
	// client can stream it from. Used for binary payloads such as audio.
	Resolve(ctx context.Context, ref string) (string, error)
}
