package testutil

import (
	"context"
	"testing"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/clock"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/ledger"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/logger"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence/memory"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/token"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// StartTime is the ledger clock's initial timestamp in every test airdrop.
const StartTime uint64 = 1_700_000_000

// InitialSupply is minted to the deployer when the test token is created.
const InitialSupply uint64 = 1_000_000_000

// TestAirdrop is an in-memory ledger with a deployed token and a whitelist tree.
type TestAirdrop struct {
	Ledger   *ledger.Ledger
	Clock    *clock.ManualClock
	Store    *memory.MemoryStateStore
	Token    *token.ERC20
	Deployer common.Address
	Leaves   []*types.Leaf
	Tree     *merkle.Tree
	Logger   *zap.Logger
}

// NewTestLedger creates an in-memory ledger whose clock starts at StartTime.
func NewTestLedger(t *testing.T) (*ledger.Ledger, *clock.ManualClock, *memory.MemoryStateStore) {
	t.Helper()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	store := memory.NewQuietMemoryStateStore()
	clk := clock.NewManualClock(StartTime)

	l, err := ledger.NewLedger(&ledger.LedgerConfig{Store: store, Clock: clk}, testLogger)
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}
	return l, clk, store
}

// NewTestAirdrop deploys a token and builds a tree with one leaf per amount.
func NewTestAirdrop(t *testing.T, amounts ...uint64) *TestAirdrop {
	t.Helper()
	l, clk, store := NewTestLedger(t)
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	deployer := TestAddress(0)

	tok, err := token.Deploy(context.Background(), l, deployer, "Airdrop Token", "AIR", deployer, uint256.NewInt(InitialSupply))
	if err != nil {
		t.Fatalf("Failed to deploy token: %v", err)
	}

	leaves := CreateTestLeaves(amounts...)
	var tree *merkle.Tree
	if len(leaves) > 0 {
		tree = CreateTestTree(t, leaves)
	}

	return &TestAirdrop{
		Ledger:   l,
		Clock:    clk,
		Store:    store,
		Token:    tok,
		Deployer: deployer,
		Leaves:   leaves,
		Tree:     tree,
		Logger:   testLogger,
	}
}

// Root returns the tree root.
func (a *TestAirdrop) Root() [32]byte {
	return a.Tree.Root()
}

// Proof returns the proof for the i-th leaf.
func (a *TestAirdrop) Proof(t *testing.T, i int) [][32]byte {
	t.Helper()
	return RequireProof(t, a.Tree, a.Leaves[i])
}

// Fund transfers amount from the deployer to to.
func (a *TestAirdrop) Fund(t *testing.T, to common.Address, amount uint64) {
	t.Helper()
	if _, err := a.Token.Transfer(context.Background(), a.Deployer, to, uint256.NewInt(amount)); err != nil {
		t.Fatalf("Failed to fund %s: %v", to.Hex(), err)
	}
}

// Balance returns account's token balance.
func (a *TestAirdrop) Balance(t *testing.T, account common.Address) uint64 {
	t.Helper()
	balance, err := a.Token.BalanceOf(context.Background(), account)
	if err != nil {
		t.Fatalf("Failed to read balance of %s: %v", account.Hex(), err)
	}
	return balance.Uint64()
}
