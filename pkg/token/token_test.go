package token

import (
	"context"
	"testing"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/clock"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/ledger"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/logger"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence/memory"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	deployer = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func setup(t *testing.T) (*ledger.Ledger, *ERC20) {
	t.Helper()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	l, err := ledger.NewLedger(&ledger.LedgerConfig{
		Store: memory.NewQuietMemoryStateStore(),
		Clock: clock.NewManualClock(1_000),
	}, testLogger)
	require.NoError(t, err)

	tok, err := Deploy(context.Background(), l, deployer, "Airdrop", "AIR", deployer, uint256.NewInt(1_000_000))
	require.NoError(t, err)
	return l, tok
}

func requireBalance(t *testing.T, tok *ERC20, account common.Address, want uint64) {
	t.Helper()
	got, err := tok.BalanceOf(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, want, got.Uint64(), "balance of %s", account.Hex())
}

func TestDeploy_MintsSupply(t *testing.T) {
	_, tok := setup(t)
	ctx := context.Background()

	supply, err := tok.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), supply.Uint64())
	requireBalance(t, tok, deployer, 1_000_000)

	meta, err := tok.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AIR", meta.Symbol)
	assert.Equal(t, uint8(18), meta.Decimals)
}

func TestAt(t *testing.T) {
	l, tok := setup(t)
	ctx := context.Background()

	bound, err := At(ctx, l, tok.Address())
	require.NoError(t, err)
	assert.Equal(t, tok.Address(), bound.Address())

	_, err = At(ctx, l, alice)
	require.ErrorIs(t, err, ledger.ErrNoContract)
}

func TestTransfer(t *testing.T) {
	_, tok := setup(t)
	ctx := context.Background()

	receipt, err := tok.Transfer(ctx, deployer, alice, uint256.NewInt(300))
	require.NoError(t, err)
	ev, ok := receipt.FindEvent("Transfer")
	require.True(t, ok)
	assert.Equal(t, alice, ev.Data.(*TransferEvent).To)

	requireBalance(t, tok, deployer, 999_700)
	requireBalance(t, tok, alice, 300)

	_, err = tok.Transfer(ctx, alice, bob, uint256.NewInt(301))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, "ERC20: transfer amount exceeds balance", err.Error())
	requireBalance(t, tok, alice, 300)

	_, err = tok.Transfer(ctx, alice, common.Address{}, uint256.NewInt(1))
	require.ErrorIs(t, err, ErrTransferToZero)

	// self transfer leaves the balance unchanged
	_, err = tok.Transfer(ctx, alice, alice, uint256.NewInt(100))
	require.NoError(t, err)
	requireBalance(t, tok, alice, 300)
}

func TestApproveAndTransferFrom(t *testing.T) {
	_, tok := setup(t)
	ctx := context.Background()

	_, err := tok.Approve(ctx, deployer, alice, uint256.NewInt(500))
	require.NoError(t, err)

	allowance, err := tok.Allowance(ctx, deployer, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), allowance.Uint64())

	_, err = tok.TransferFrom(ctx, alice, deployer, bob, uint256.NewInt(200))
	require.NoError(t, err)
	requireBalance(t, tok, bob, 200)

	allowance, err = tok.Allowance(ctx, deployer, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), allowance.Uint64())

	_, err = tok.TransferFrom(ctx, alice, deployer, bob, uint256.NewInt(301))
	require.ErrorIs(t, err, ErrInsufficientAllowance)
	assert.Equal(t, "ERC20: transfer amount exceeds allowance", err.Error())

	_, err = tok.Approve(ctx, deployer, common.Address{}, uint256.NewInt(1))
	require.ErrorIs(t, err, ErrApproveToZero)
}

func TestTransferFrom_InfiniteAllowance(t *testing.T) {
	_, tok := setup(t)
	ctx := context.Background()

	_, err := tok.Approve(ctx, deployer, alice, new(uint256.Int).SetAllOne())
	require.NoError(t, err)
	_, err = tok.TransferFrom(ctx, alice, deployer, bob, uint256.NewInt(10))
	require.NoError(t, err)

	allowance, err := tok.Allowance(ctx, deployer, alice)
	require.NoError(t, err)
	assert.True(t, allowance.Eq(new(uint256.Int).SetAllOne()))
}

func TestTransferFrom_AllowanceRestoredOnBalanceFailure(t *testing.T) {
	_, tok := setup(t)
	ctx := context.Background()

	_, err := tok.Transfer(ctx, deployer, alice, uint256.NewInt(5))
	require.NoError(t, err)
	_, err = tok.Approve(ctx, alice, bob, uint256.NewInt(100))
	require.NoError(t, err)

	_, err = tok.TransferFrom(ctx, bob, alice, bob, uint256.NewInt(50))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	allowance, err := tok.Allowance(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), allowance.Uint64())
}

func TestMint_Overflow(t *testing.T) {
	l, tok := setup(t)

	_, err := l.Execute(context.Background(), deployer, func(tx *ledger.Tx) error {
		return MintTx(tx, tok.Address(), alice, new(uint256.Int).SetAllOne())
	})
	require.ErrorIs(t, err, ErrSupplyOverflow)
}
