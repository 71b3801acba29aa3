package ipfs

import (
	"bytes"
	"context"
	"errors"

	"autolearner-go/internal/learner"
)

// CachedFetcher serves Fetch from a Vault before falling back to the
// wrapped fetcher. Payloads are immutable, so entries never expire.
// Cache failures are logged and otherwise ignored.
type CachedFetcher struct {
	inner  learner.ContentFetcher
	cache  learner.Vault
	logger learner.Logger
}

var _ learner.ContentFetcher = (*CachedFetcher)(nil)

// NewCachedFetcher wraps inner with cache. A nil cache returns inner unchanged.
func NewCachedFetcher(inner learner.ContentFetcher, cache learner.Vault, logger learner.Logger) learner.ContentFetcher {
	if cache == nil {
		return inner
	}
	return &CachedFetcher{inner: inner, cache: cache, logger: logger}
}

func (c *CachedFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	var buf bytes.Buffer
	err := c.cache.GetContent(ctx, ref, &buf)
	switch {
	case err == nil:
		c.logger.Debug("content cache hit", "ref", ref)
		return buf.Bytes(), nil
	case !errors.Is(err, learner.ErrContentNotFound):
		c.logger.Warn("content cache read failed", "ref", ref, "error", err)
	}

	data, err := c.inner.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}

	if err := c.cache.PutContent(ctx, ref, bytes.NewReader(data), int64(len(data))); err != nil {
		c.logger.Warn("content cache write failed", "ref", ref, "error", err)
	}
	return data, nil
}

// Resolve is not cached; the locator must point at the live gateway.
func (c *CachedFetcher) Resolve(ctx context.Context, ref string) (string, error) {
	return c.inner.Resolve(ctx, ref)
}
