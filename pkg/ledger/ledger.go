// Package ledger runs contract state transitions one at a time against a
// key-value state store. Each transition either commits every write it made
// or none of them. Several ledgers may share one store: a transition whose
// reads were changed by another writer before it committed is re-run.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/clock"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/metrics"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	fieldNonce = "nonce"
	fieldCode  = "code"

	// maxCommitAttempts bounds re-runs of a transaction that keeps losing
	// the commit race against other writers on a shared store.
	maxCommitAttempts = 32
)

// systemAddress scopes ledger-level bookkeeping such as deploy nonces.
var systemAddress = common.Address{}

type LedgerConfig struct {
	Store   persistence.IStateStore
	Clock   clock.Clock
	Metrics *metrics.Metrics
}

type Ledger struct {
	mu      sync.Mutex
	store   persistence.IStateStore
	clock   clock.Clock
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewLedger(cfg *LedgerConfig, logger *zap.Logger) (*Ledger, error) {
	if cfg == nil || cfg.Store == nil {
		return nil, fmt.Errorf("ledger requires a state store")
	}
	c := cfg.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Ledger{
		store:   cfg.Store,
		clock:   c,
		metrics: cfg.Metrics,
		logger:  logger,
	}, nil
}

func (l *Ledger) Metrics() *metrics.Metrics {
	return l.metrics
}

// Execute runs fn as a single transaction from sender. Transactions are
// serialized. If fn returns an error every buffered write is discarded.
// fn may be called more than once when the store reports a conflict, so it
// must not have effects outside tx beyond assigning results.
func (l *Ledger) Execute(ctx context.Context, sender common.Address, fn func(tx *Tx) error) (*Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var (
		receipt *Receipt
		err     error
	)
	for attempt := 1; ; attempt++ {
		receipt, err = l.execute(ctx, sender, fn)
		if !errors.Is(err, persistence.ErrConflict) || attempt == maxCommitAttempts {
			break
		}
		l.logger.Sugar().Debugw("State changed before commit, re-running transaction",
			"sender", sender.Hex(),
			"attempt", attempt,
		)
	}
	l.metrics.ObserveTransaction(err)
	return receipt, err
}

func (l *Ledger) execute(ctx context.Context, sender common.Address, fn func(tx *Tx) error) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now, err := l.clock.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read clock: %w", err)
	}

	tx := newTx(ctx, l.store, sender, now)
	if err := fn(tx); err != nil {
		l.logger.Sugar().Debugw("Transaction reverted",
			"sender", sender.Hex(),
			"timestamp", now,
			"error", err,
		)
		return nil, err
	}

	if err := l.store.CompareAndCommit(tx.readSet(), tx.batch()); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	receipt := &Receipt{
		TxID:      uuid.New(),
		Sender:    sender,
		Timestamp: now,
		Events:    tx.events,
	}
	l.logger.Sugar().Debugw("Transaction committed",
		"txId", receipt.TxID.String(),
		"sender", sender.Hex(),
		"writes", len(tx.order),
		"events", len(tx.events),
	)
	return receipt, nil
}

// View runs fn against current state without committing anything.
func (l *Ledger) View(ctx context.Context, fn func(tx *Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now, err := l.clock.Now(ctx)
	if err != nil {
		return fmt.Errorf("failed to read clock: %w", err)
	}
	return fn(newTx(ctx, l.store, common.Address{}, now))
}

// Deploy creates a contract of the given kind. The address is derived the way
// CREATE derives it, from the deployer and its deploy count. init runs inside
// the same transaction, so a failing constructor leaves no trace.
func (l *Ledger) Deploy(ctx context.Context, deployer common.Address, kind string, init func(tx *Tx, addr common.Address) error) (common.Address, *Receipt, error) {
	var addr common.Address
	receipt, err := l.Execute(ctx, deployer, func(tx *Tx) error {
		nonceKey := AccountKey(systemAddress, fieldNonce, deployer)
		nonce, err := tx.GetUint64(nonceKey)
		if err != nil {
			return err
		}
		addr = crypto.CreateAddress(deployer, nonce)
		tx.SetUint64(nonceKey, nonce+1)
		tx.Set(Key(addr, fieldCode), []byte(kind))
		return init(tx, addr)
	})
	if err != nil {
		return common.Address{}, nil, err
	}
	receipt.Deployed = &addr

	l.logger.Sugar().Infow("Contract deployed",
		"kind", kind,
		"address", addr.Hex(),
		"deployer", deployer.Hex(),
	)
	return addr, receipt, nil
}

// RequireCode checks that addr holds a contract of the given kind.
func RequireCode(tx *Tx, addr common.Address, kind string) error {
	code, err := tx.Get(Key(addr, fieldCode))
	if err != nil {
		return err
	}
	if code == nil {
		return fmt.Errorf("%w: %s", ErrNoContract, addr.Hex())
	}
	if string(code) != kind {
		return fmt.Errorf("%w: %s is %s, not %s", ErrWrongContract, addr.Hex(), code, kind)
	}
	return nil
}

// CodeAt returns the kind of contract at addr, or "" if none.
func (l *Ledger) CodeAt(ctx context.Context, addr common.Address) (string, error) {
	var code []byte
	err := l.View(ctx, func(tx *Tx) error {
		var err error
		code, err = tx.Get(Key(addr, fieldCode))
		return err
	})
	return string(code), err
}

// OnlyOwner fails with ErrNotOwner unless the sender is owner.
func OnlyOwner(tx *Tx, owner common.Address) error {
	if tx.Sender() != owner {
		return ErrNotOwner
	}
	return nil
}
