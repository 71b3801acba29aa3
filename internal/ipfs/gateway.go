// Package ipfs fetches content-addressed payloads from an IPFS HTTP gateway.
package ipfs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"autolearner-go/internal/config"
	"autolearner-go/internal/learner"
)

// GatewayFetcher reads payloads through a path-style IPFS gateway
// (<gateway>/ipfs/<cid>). It is safe for concurrent use.
type GatewayFetcher struct {
	base     *url.URL
	client   *http.Client
	maxBytes int64
	timeout  time.Duration
	logger   learner.Logger
}

var _ learner.ContentFetcher = (*GatewayFetcher)(nil)

// NewGatewayFetcher creates a fetcher for the gateway at gatewayURL.
// A nil client uses http.DefaultClient. maxBytes <= 0 uses the config default.
// timeout <= 0 leaves requests bounded only by the caller's context.
func NewGatewayFetcher(gatewayURL string, client *http.Client, maxBytes int64, timeout time.Duration, logger learner.Logger) (*GatewayFetcher, error) {
	base, err := url.Parse(strings.TrimRight(gatewayURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing gateway url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("gateway url must be http or https: %q", gatewayURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if maxBytes <= 0 {
		maxBytes = config.DefaultMaxContentBytes
	}

	return &GatewayFetcher{
		base:     base,
		client:   client,
		maxBytes: maxBytes,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// NewGatewayFetcherFromConfig builds a GatewayFetcher from the content section.
func NewGatewayFetcherFromConfig(cfg config.ContentConfig, logger learner.Logger) (*GatewayFetcher, error) {
	gateway := cfg.GatewayURL
	if gateway == "" {
		gateway = config.DefaultGatewayURL
	}

	var timeout time.Duration
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parsing content timeout: %w", err)
		}
		timeout = d
	}

	return NewGatewayFetcher(gateway, nil, cfg.MaxBytes, timeout, logger)
}

// URL returns the gateway location of ref without contacting the gateway.
func (g *GatewayFetcher) URL(ref string) (string, error) {
	c, err := cid.Decode(ref)
	if err != nil {
		return "", fmt.Errorf("invalid content reference %q: %w", ref, err)
	}
	return g.base.JoinPath("ipfs", c.String()).String(), nil
}

// Fetch downloads the payload behind ref.
func (g *GatewayFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	target, err := g.URL(ref)
	if err != nil {
		return nil, err
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	resp, err := g.do(ctx, http.MethodGet, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("gateway returned %s for %s", resp.Status, ref)
	}
	if resp.ContentLength > g.maxBytes {
		return nil, fmt.Errorf("payload %s is %d bytes, limit is %d", ref, resp.ContentLength, g.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, g.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ref, err)
	}
	if int64(len(data)) > g.maxBytes {
		return nil, fmt.Errorf("payload %s exceeds %d bytes", ref, g.maxBytes)
	}

	g.logger.Debug("fetched content", "ref", ref, "bytes", len(data))
	return data, nil
}

// Resolve checks that the gateway serves ref and returns its URL.
// Gateways that reject HEAD are retried with a one-byte ranged GET.
func (g *GatewayFetcher) Resolve(ctx context.Context, ref string) (string, error) {
	target, err := g.URL(ref)
	if err != nil {
		return "", err
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	resp, err := g.do(ctx, http.MethodHead, target)
	if err != nil {
		return "", err
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return "", fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Range", "bytes=0-0")
		resp, err = g.client.Do(req)
		if err != nil {
			return "", fmt.Errorf("requesting %s: %w", ref, err)
		}
		resp.Body.Close()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("gateway returned %s for %s", resp.Status, ref)
	}
	return target, nil
}

func (g *GatewayFetcher) do(ctx context.Context, method, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", target, err)
	}
	return resp, nil
}

func (g *GatewayFetcher) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}
