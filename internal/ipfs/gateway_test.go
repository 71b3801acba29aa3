package ipfs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"autolearner-go/internal/config"
	"autolearner-go/internal/learner"
	"autolearner-go/internal/testutil"
)

// newTestGateway serves payloads keyed by CID under /ipfs/.
func newTestGateway(t *testing.T, payloads map[string][]byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		ref := strings.TrimPrefix(r.URL.Path, "/ipfs/")
		data, ok := payloads[ref]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestGatewayFetcher_Fetch(t *testing.T) {
	cards := []byte(`[{"front":"What is IPFS?","back":"A content-addressed network"}]`)
	ref := testutil.CIDFor(t, cards)
	missing := testutil.CIDFor(t, []byte("missing"))

	srv, hits := newTestGateway(t, map[string][]byte{ref: cards})
	g, err := NewGatewayFetcher(srv.URL, srv.Client(), 0, 0, learner.NewNopLogger())
	if err != nil {
		t.Fatalf("NewGatewayFetcher() error = %v", err)
	}

	tests := []struct {
		name     string
		ref      string
		want     string
		wantErr  bool
		wantHits int32
	}{
		{name: "existing payload", ref: ref, want: string(cards), wantHits: 1},
		{name: "gateway 404", ref: missing, wantErr: true, wantHits: 1},
		{name: "invalid reference never hits gateway", ref: "not-a-cid", wantErr: true, wantHits: 0},
		{name: "empty reference", ref: "", wantErr: true, wantHits: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := hits.Load()
			got, err := g.Fetch(context.Background(), tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Fetch() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && string(got) != tt.want {
				t.Errorf("Fetch() = %q, want %q", got, tt.want)
			}
			if delta := hits.Load() - before; delta != tt.wantHits {
				t.Errorf("gateway hits = %d, want %d", delta, tt.wantHits)
			}
		})
	}
}

func TestGatewayFetcher_MaxBytes(t *testing.T) {
	big := []byte(strings.Repeat("x", 64))
	ref := testutil.CIDFor(t, big)
	srv, _ := newTestGateway(t, map[string][]byte{ref: big})

	g, err := NewGatewayFetcher(srv.URL, srv.Client(), 16, 0, learner.NewNopLogger())
	if err != nil {
		t.Fatalf("NewGatewayFetcher() error = %v", err)
	}

	if _, err := g.Fetch(context.Background(), ref); err == nil {
		t.Error("Fetch() expected error for oversized payload")
	}
}

func TestGatewayFetcher_Timeout(t *testing.T) {
	data := []byte("slow")
	ref := testutil.CIDFor(t, data)

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	g, err := NewGatewayFetcher(srv.URL, srv.Client(), 0, 50*time.Millisecond, learner.NewNopLogger())
	if err != nil {
		t.Fatalf("NewGatewayFetcher() error = %v", err)
	}

	if _, err := g.Fetch(context.Background(), ref); err == nil {
		t.Error("Fetch() expected timeout error")
	}
}

func TestGatewayFetcher_Resolve(t *testing.T) {
	audio := []byte("ID3 fake mp3 bytes")
	ref := testutil.CIDFor(t, audio)
	missing := testutil.CIDFor(t, []byte("nope"))

	srv, _ := newTestGateway(t, map[string][]byte{ref: audio})
	g, err := NewGatewayFetcher(srv.URL+"/", srv.Client(), 0, 0, learner.NewNopLogger())
	if err != nil {
		t.Fatalf("NewGatewayFetcher() error = %v", err)
	}

	got, err := g.Resolve(context.Background(), ref)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if want := srv.URL + "/ipfs/" + ref; got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}

	if _, err := g.Resolve(context.Background(), missing); err == nil {
		t.Error("Resolve() expected error for missing content")
	}
}

func TestGatewayFetcher_ResolveWithoutHead(t *testing.T) {
	audio := []byte("audio")
	ref := testutil.CIDFor(t, audio)

	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		gotRange = r.Header.Get("Range")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(audio[:1])
	}))
	t.Cleanup(srv.Close)

	g, _ := NewGatewayFetcher(srv.URL, srv.Client(), 0, 0, learner.NewNopLogger())
	if _, err := g.Resolve(context.Background(), ref); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if gotRange != "bytes=0-0" {
		t.Errorf("Range header = %q, want %q", gotRange, "bytes=0-0")
	}
}

func TestNewGatewayFetcherFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ContentConfig
		wantErr bool
	}{
		{name: "defaults", cfg: config.ContentConfig{}},
		{name: "explicit timeout", cfg: config.ContentConfig{GatewayURL: "https://dweb.link", Timeout: "30s"}},
		{name: "bad timeout", cfg: config.ContentConfig{Timeout: "soon"}, wantErr: true},
		{name: "bad scheme", cfg: config.ContentConfig{GatewayURL: "ftp://gateway"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGatewayFetcherFromConfig(tt.cfg, learner.NewNopLogger())
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewGatewayFetcherFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && g.maxBytes != config.DefaultMaxContentBytes {
				t.Errorf("maxBytes = %d, want %d", g.maxBytes, config.DefaultMaxContentBytes)
			}
		})
	}
}
