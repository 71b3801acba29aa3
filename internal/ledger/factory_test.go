package ledger

import (
	"context"
	"testing"

	"autolearner-go/internal/config"
	"autolearner-go/internal/learner"
	"autolearner-go/internal/testutil"
)

func TestNewLedgerFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LedgerConfig
		wantErr bool
	}{
		{name: "memory ledger", cfg: config.LedgerConfig{Type: "memory"}},
		{name: "celo with bad contract", cfg: config.LedgerConfig{Type: "celo", RPCURL: "http://127.0.0.1:1", ContractAddress: "nope"}, wantErr: true},
		{name: "celo with bad rpc scheme", cfg: config.LedgerConfig{Type: "celo", RPCURL: "gopher://x"}, wantErr: true},
		{name: "unknown type", cfg: config.LedgerConfig{Type: "bitcoin"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewLedgerFromConfig(context.Background(), tt.cfg, testutil.FixedClock(), learner.NewNopLogger())
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewLedgerFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if (got == nil) != tt.wantErr {
				t.Errorf("NewLedgerFromConfig() returned nil = %v", got == nil)
			}
			if c, ok := got.(interface{ Close() }); ok {
				c.Close()
			}
		})
	}
}
