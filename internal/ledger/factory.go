package ledger

import (
	"context"
	"fmt"

	"autolearner-go/internal/config"
	"autolearner-go/internal/learner"
)

// NewLedgerFromConfig creates a Ledger based on the ledger config type.
// Ledgers that hold a connection implement Close.
func NewLedgerFromConfig(ctx context.Context, cfg config.LedgerConfig, clock learner.Clock, logger learner.Logger) (learner.Ledger, error) {
	switch cfg.Type {
	case "celo":
		rpcURL := cfg.RPCURL
		if rpcURL == "" {
			rpcURL = config.DefaultRPCURL
		}
		contract := cfg.ContractAddress
		if contract == "" {
			contract = config.DefaultContractAddress
		}
		l, err := DialCelo(ctx, rpcURL, contract, logger)
		if err != nil {
			return nil, err
		}
		return l, nil
	case "memory":
		return NewMemoryLedger(clock), nil
	default:
		return nil, fmt.Errorf("unknown ledger type: %s", cfg.Type)
	}
}
