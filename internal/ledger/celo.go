package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"autolearner-go/internal/learner"
	"autolearner-go/internal/model"
)

// registryABI is the subset of the ContentRegistry contract used by autolearner.
const registryABI = `[
  {"type":"function","name":"getUserContentIds","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"}],
   "outputs":[{"name":"","type":"uint256[]"}]},
  {"type":"function","name":"getContent","stateMutability":"view",
   "inputs":[{"name":"id","type":"uint256"}],
   "outputs":[
     {"name":"owner","type":"address"},
     {"name":"sourceURI","type":"string"},
     {"name":"flashcardsCID","type":"string"},
     {"name":"quizCID","type":"string"},
     {"name":"audioCID","type":"string"},
     {"name":"timestamp","type":"uint256"},
     {"name":"processed","type":"bool"}]},
  {"type":"function","name":"submitContent","stateMutability":"nonpayable",
   "inputs":[{"name":"sourceURI","type":"string"}],
   "outputs":[{"name":"id","type":"uint256"}]},
  {"type":"event","name":"ContentSubmitted","anonymous":false,
   "inputs":[
     {"name":"id","type":"uint256","indexed":true},
     {"name":"owner","type":"address","indexed":true},
     {"name":"sourceURI","type":"string","indexed":false}]}
]`

// Backend is the JSON-RPC surface CeloLedger needs. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// CeloLedger implements the Ledger interface against the ContentRegistry
// contract on a Celo (EVM) chain.
type CeloLedger struct {
	backend  Backend
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
	logger   learner.Logger
	closer   func()

	mu      sync.Mutex
	chainID *big.Int
}

var _ learner.Ledger = (*CeloLedger)(nil)

// NewCeloLedger binds the registry contract at contractAddress on backend.
func NewCeloLedger(backend Backend, contractAddress string, logger learner.Logger) (*CeloLedger, error) {
	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("invalid contract address: %q", contractAddress)
	}

	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("parsing registry ABI: %w", err)
	}

	address := common.HexToAddress(contractAddress)
	return &CeloLedger{
		backend:  backend,
		address:  address,
		abi:      parsed,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		logger:   logger,
	}, nil
}

// DialCelo connects to the JSON-RPC endpoint at rpcURL and binds the registry contract.
// The caller must call Close when done.
func DialCelo(ctx context.Context, rpcURL, contractAddress string, logger learner.Logger) (*CeloLedger, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", rpcURL, err)
	}

	l, err := NewCeloLedger(client, contractAddress, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	l.closer = client.Close
	return l, nil
}

// Close releases the RPC connection if the ledger owns one.
func (l *CeloLedger) Close() {
	if l.closer != nil {
		l.closer()
	}
}

// ListRecordIDs calls getUserContentIds(owner).
func (l *CeloLedger) ListRecordIDs(ctx context.Context, owner string) ([]string, error) {
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("invalid owner address: %q", owner)
	}

	var out []interface{}
	if err := l.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getUserContentIds", common.HexToAddress(owner)); err != nil {
		return nil, fmt.Errorf("calling getUserContentIds: %w", err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("getUserContentIds returned %d values, want 1", len(out))
	}

	raw := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)
	ids := make([]string, len(raw))
	for i, id := range raw {
		ids[i] = id.String()
	}
	return ids, nil
}

// GetRecord calls getContent(id).
func (l *CeloLedger) GetRecord(ctx context.Context, id string) (*model.ContentRecord, error) {
	n, ok := new(big.Int).SetString(id, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid record id: %q", id)
	}

	var out []interface{}
	if err := l.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getContent", n); err != nil {
		return nil, fmt.Errorf("calling getContent(%s): %w", id, err)
	}
	if len(out) != 7 {
		return nil, fmt.Errorf("getContent returned %d values, want 7", len(out))
	}

	owner := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	timestamp := *abi.ConvertType(out[5], new(*big.Int)).(**big.Int)

	return &model.ContentRecord{
		ID:                 n.String(),
		Owner:              owner.Hex(),
		SourceReference:    *abi.ConvertType(out[1], new(string)).(*string),
		FlashcardReference: *abi.ConvertType(out[2], new(string)).(*string),
		QuizReference:      *abi.ConvertType(out[3], new(string)).(*string),
		AudioReference:     *abi.ConvertType(out[4], new(string)).(*string),
		SubmittedAt:        time.Unix(timestamp.Int64(), 0).UTC(),
		Processed:          *abi.ConvertType(out[6], new(bool)).(*bool),
	}, nil
}

// Submit sends submitContent(sourceReference) signed by identity and waits
// for the transaction to be mined.
func (l *CeloLedger) Submit(ctx context.Context, identity learner.Identity, sourceReference string) (*model.Receipt, error) {
	if !identity.CanSign() {
		return nil, fmt.Errorf("identity %s is watch-only and cannot sign", identity.Address)
	}

	chainID, err := l.chain(ctx)
	if err != nil {
		return nil, err
	}

	opts, err := bind.NewKeyedTransactorWithChainID(identity.Key, chainID)
	if err != nil {
		return nil, fmt.Errorf("creating transactor: %w", err)
	}
	opts.Context = ctx
	if !learner.SameAddress(opts.From.Hex(), identity.Address) {
		return nil, fmt.Errorf("signing key does not belong to %s", identity.Address)
	}

	tx, err := l.contract.Transact(opts, "submitContent", sourceReference)
	if err != nil {
		return nil, fmt.Errorf("sending submitContent: %w", err)
	}
	l.logger.Debug("transaction sent", "tx", tx.Hash().Hex())

	receipt, err := bind.WaitMined(ctx, l.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("waiting for %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
	}

	out := &model.Receipt{
		TxHash:   tx.Hash().Hex(),
		GasUsed:  receipt.GasUsed,
		RecordID: l.submittedID(receipt),
	}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return out, nil
}

// chain returns the backend's chain id, cached after the first call.
func (l *CeloLedger) chain(ctx context.Context) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.chainID != nil {
		return l.chainID, nil
	}
	id, err := l.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching chain id: %w", err)
	}
	l.chainID = id
	return id, nil
}

// submittedID extracts the new record id from the ContentSubmitted event.
func (l *CeloLedger) submittedID(receipt *types.Receipt) string {
	event, ok := l.abi.Events["ContentSubmitted"]
	if !ok {
		return ""
	}
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != l.address || len(lg.Topics) < 2 || lg.Topics[0] != event.ID {
			continue
		}
		return new(big.Int).SetBytes(lg.Topics[1].Bytes()).String()
	}
	return ""
}
