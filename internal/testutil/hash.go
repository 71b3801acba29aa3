package testutil

import (
	"testing"

	"github.com/ipfs/go-cid"
)

// CIDFor returns the CIDv1 (raw codec, sha2-256) of data, matching what
// `ipfs add --raw-leaves` produces for small payloads.
func CIDFor(t *testing.T, data []byte) string {
	t.Helper()
	c, err := cid.V1Builder{Codec: cid.Raw, MhType: 0x12}.Sum(data)
	if err != nil {
		t.Fatalf("computing CID: %v", err)
	}
	return c.String()
}
