package testutil

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// MockChainHead implements clock.HeaderReader for testing.
// It produces headers without talking to a node; each mined block advances the
// timestamp by blockTime seconds.
type MockChainHead struct {
	logger       *zap.Logger
	currentBlock uint64
	timestamp    uint64
	blockTime    uint64
	mu           sync.Mutex
}

// NewMockChainHead creates a chain head at block 0 with the given genesis time.
func NewMockChainHead(genesisTime, blockTime uint64, logger *zap.Logger) *MockChainHead {
	return &MockChainHead{
		logger:    logger,
		timestamp: genesisTime,
		blockTime: blockTime,
	}
}

// HeaderByNumber returns the latest header when number is nil, otherwise the
// header at number if it has been mined.
func (m *MockChainHead) HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	block := m.currentBlock
	if number != nil {
		if !number.IsUint64() || number.Uint64() > m.currentBlock {
			return nil, fmt.Errorf("block %s not found", number)
		}
		block = number.Uint64()
	}

	ts := m.timestamp - (m.currentBlock-block)*m.blockTime
	return &ethtypes.Header{
		Number:     new(big.Int).SetUint64(block),
		Time:       ts,
		ParentHash: generateBlockHash(block - 1),
	}, nil
}

// MineBlocks advances the head by n blocks.
func (m *MockChainHead) MineBlocks(n uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentBlock += n
	m.timestamp += n * m.blockTime
	m.logger.Sugar().Debugw("MockChainHead mined blocks", "count", n, "head", m.currentBlock, "timestamp", m.timestamp)
	return m.currentBlock
}

// GetCurrentBlock returns the current block number
func (m *MockChainHead) GetCurrentBlock() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentBlock
}

// generateBlockHash generates a deterministic block hash for testing
func generateBlockHash(blockNumber uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(blockNumber))
}
