// Package clock supplies the ledger's notion of "block timestamp".
package clock

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Clock returns the current timestamp in unix seconds.
type Clock interface {
	Now(ctx context.Context) (uint64, error)
}

// SystemClock reads the local wall clock.
type SystemClock struct{}

func (SystemClock) Now(context.Context) (uint64, error) {
	return uint64(time.Now().Unix()), nil
}

// ManualClock only moves when told to. Safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now uint64
}

func NewManualClock(start uint64) *ManualClock {
	return &ManualClock{now: start}
}

func (m *ManualClock) Now(context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now, nil
}

// Set jumps to an absolute timestamp.
func (m *ManualClock) Set(ts uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = ts
}

// Advance moves the clock forward by seconds.
func (m *ManualClock) Advance(seconds uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += seconds
	return m.now
}

// HeaderReader is the subset of ethclient.Client the RPC clock needs.
type HeaderReader interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// RPCClock follows the latest block timestamp of a chain. Header fetches are
// throttled; between fetches the last observed timestamp is returned.
type RPCClock struct {
	client  HeaderReader
	limiter *rate.Limiter
	logger  *zap.Logger

	mu   sync.Mutex
	last uint64
}

// NewRPCClock wraps an existing header source, refreshing at most once per interval.
func NewRPCClock(client HeaderReader, interval time.Duration, logger *zap.Logger) *RPCClock {
	return &RPCClock{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		logger:  logger,
	}
}

// DialRPCClock connects to an execution client over JSON-RPC.
func DialRPCClock(ctx context.Context, rpcURL string, interval time.Duration, logger *zap.Logger) (*RPCClock, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", rpcURL)
	}
	return NewRPCClock(client, interval, logger), nil
}

func (r *RPCClock) Now(ctx context.Context) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	allowed := r.limiter.Allow()
	if r.last != 0 && !allowed {
		return r.last, nil
	}

	header, err := r.client.HeaderByNumber(ctx, nil)
	if err != nil {
		if r.last != 0 {
			r.logger.Sugar().Warnw("Failed to refresh block timestamp, using last known", "error", err, "timestamp", r.last)
			return r.last, nil
		}
		return 0, errors.Wrap(err, "failed to fetch latest header")
	}

	// never let the clock run backwards across a reorg
	if header.Time > r.last {
		r.last = header.Time
	}
	r.logger.Sugar().Debugw("Refreshed block timestamp", "block", header.Number, "timestamp", r.last)
	return r.last, nil
}
