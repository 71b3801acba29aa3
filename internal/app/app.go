package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"autolearner-go/internal/config"
	"autolearner-go/internal/database"
	"autolearner-go/internal/ipfs"
	"autolearner-go/internal/learner"
	"autolearner-go/internal/ledger"
	"autolearner-go/internal/model"
	"autolearner-go/internal/server"
	"autolearner-go/internal/vault"
	"autolearner-go/internal/wallet"
)

// ErrNoWallet is returned when no address is available to connect.
var ErrNoWallet = errors.New("no wallet configured: run 'autolearner wallet init' or set wallet.address")

// LearnerApp is the application layer between the CLI and the record accessor.
// It constructs all dependencies from config, exposes high-level operations,
// and releases connections on Close.
type LearnerApp struct {
	cfg      *config.Config
	ledger   learner.Ledger
	cache    learner.Vault
	db       *database.SQLiteDatabase
	keys     *wallet.KeyStore
	session  *wallet.Session
	accessor *learner.Accessor
	logger   learner.Logger
	op       *Operation
	logFile  *os.File
}

// NewLearnerApp creates a fully wired LearnerApp from the given config.
// operation names the CLI command being run (e.g. "Submit", "Serve").
// The caller must call Close when done.
func NewLearnerApp(ctx context.Context, cfg *config.Config, operation string) (*LearnerApp, error) {
	op := NewOperation(operation, "", time.Now())

	level, err := LogLevel()
	if err != nil {
		return nil, err
	}
	slogger, logFile, err := newLogger(cfg.LogDir, op.ID, level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	a := &LearnerApp{
		cfg:     cfg,
		keys:    wallet.NewKeyStore(cfg.Wallet),
		session: wallet.NewSession(),
		logger:  logger,
		op:      op,
		logFile: logFile,
	}

	clock := learner.RealClock{}

	a.ledger, err = ledger.NewLedgerFromConfig(ctx, cfg.Ledger, clock, logger)
	if err != nil {
		a.release()
		return nil, fmt.Errorf("creating ledger: %w", err)
	}

	a.db, err = database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		a.release()
		return nil, fmt.Errorf("creating database: %w", err)
	}

	gateway, err := ipfs.NewGatewayFetcherFromConfig(cfg.Content, logger)
	if err != nil {
		a.release()
		return nil, fmt.Errorf("creating content fetcher: %w", err)
	}

	a.cache = a.openCache(ctx)
	fetcher := ipfs.NewCachedFetcher(gateway, a.cache, logger)

	a.accessor = learner.NewAccessor(a.ledger, fetcher, a.session, a.db, logger, clock, learner.UUIDGenerator{})
	logger.Debug("operation started", "operation", op.Name)
	return a, nil
}

// openCache builds the configured content cache. A cache that cannot be
// reached is disabled rather than failing the operation.
func (a *LearnerApp) openCache(ctx context.Context) learner.Vault {
	cache, err := vault.NewVaultFromConfig(ctx, a.cfg.Cache)
	if err != nil {
		a.logger.Warn("content cache disabled", "type", a.cfg.Cache.Type, "error", err)
		return nil
	}
	if cache == nil {
		return nil
	}
	if err := cache.ValidateSetup(ctx); err != nil {
		a.logger.Warn("content cache disabled", "type", a.cfg.Cache.Type, "error", err)
		closeQuietly(cache)
		return nil
	}
	return cache
}

// Accessor exposes the wired record accessor.
func (a *LearnerApp) Accessor() *learner.Accessor {
	return a.accessor
}

// Identity returns the connected identity, if any.
func (a *LearnerApp) Identity() (learner.Identity, bool) {
	return a.session.Current()
}

// ConnectWatchOnly connects the stored wallet address, or the configured
// watch-only address when no key store exists, without unlocking a key.
func (a *LearnerApp) ConnectWatchOnly() (learner.Identity, error) {
	addr, err := a.address()
	if err != nil {
		return learner.Identity{}, a.track(err)
	}
	identity := learner.Identity{Address: addr}
	if err := a.session.Connect(identity); err != nil {
		return learner.Identity{}, a.track(err)
	}
	a.logger.Info("identity connected", "identity", addr, "watch_only", true)
	return identity, nil
}

// Unlock decrypts the stored key and connects it as a signing identity.
func (a *LearnerApp) Unlock(passphrase string) (learner.Identity, error) {
	identity, err := a.keys.Unlock(passphrase)
	if err != nil {
		return learner.Identity{}, a.track(fmt.Errorf("unlocking wallet: %w", err))
	}
	if err := a.session.Connect(identity); err != nil {
		return learner.Identity{}, a.track(err)
	}
	a.logger.Info("identity connected", "identity", identity.Address, "watch_only", false)
	return identity, nil
}

// WalletConfigured reports whether an encrypted key is stored.
func (a *LearnerApp) WalletConfigured() bool {
	return a.keys.IsConfigured()
}

// Disconnect drops the connected identity.
func (a *LearnerApp) Disconnect() {
	a.session.Disconnect()
}

func (a *LearnerApp) address() (string, error) {
	if a.keys.IsConfigured() {
		return a.keys.Address()
	}
	if addr := strings.TrimSpace(a.cfg.Wallet.Address); addr != "" {
		return addr, nil
	}
	return "", ErrNoWallet
}

// List loads the connected identity's materials, newest first.
func (a *LearnerApp) List(ctx context.Context) ([]*model.Material, error) {
	materials, err := a.accessor.Reload(ctx)
	return materials, a.track(err)
}

// Show loads the connected identity's materials and returns the one with id.
func (a *LearnerApp) Show(ctx context.Context, id string) (*model.Material, error) {
	if _, err := a.accessor.Reload(ctx); err != nil {
		return nil, a.track(err)
	}
	m, ok := a.accessor.Material(id)
	if !ok {
		return nil, a.track(fmt.Errorf("record %s not found for this identity", id))
	}
	return m, nil
}

// Submit registers sourceReference on the ledger for the connected identity.
func (a *LearnerApp) Submit(ctx context.Context, sourceReference string) (*model.Receipt, error) {
	a.op.Parameters = sourceReference
	receipt, err := a.accessor.Submit(ctx, sourceReference)
	return receipt, a.track(err)
}

// History returns the connected identity's local submission log.
func (a *LearnerApp) History(limit int) ([]*model.Submission, error) {
	subs, err := a.accessor.History(limit)
	return subs, a.track(err)
}

// Serve runs the HTTP API on addr, keeping the accessor in step with the
// session, until ctx is done.
func (a *LearnerApp) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	if addr == "" {
		addr = config.DefaultServerAddr
	}
	a.op.Parameters = addr

	gin.SetMode(gin.ReleaseMode)
	router := server.NewRouter(server.RouterConfig{
		Service:        a.accessor,
		Logger:         a.logger,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.accessor.Run(gctx)
	})
	g.Go(func() error {
		return server.Serve(gctx, addr, router, a.logger)
	})
	return a.track(g.Wait())
}

// track marks the operation failed when err is non-nil and returns err.
func (a *LearnerApp) track(err error) error {
	if err != nil {
		a.op.Fail()
	}
	return err
}

// Close logs the operation outcome and closes all resources.
func (a *LearnerApp) Close() error {
	a.logger.Info("operation finished",
		"operation", a.op.Name,
		"status", a.op.Status,
		"duration", a.op.Elapsed(time.Now()).Round(time.Millisecond),
	)
	return a.release()
}

func (a *LearnerApp) release() error {
	var firstErr error

	if a.ledger != nil {
		closeQuietly(a.ledger)
	}
	if a.cache != nil {
		closeQuietly(a.cache)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// closeQuietly closes v if it holds a connection.
func closeQuietly(v any) {
	switch c := v.(type) {
	case interface{ Close() error }:
		c.Close()
	case interface{ Close() }:
		c.Close()
	}
}
