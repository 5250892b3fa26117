package converter

import (
	"context"
	"testing"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/ledger"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/testutil"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	*testutil.TestAirdrop
	newToken  *token.ERC20
	converter *Converter
	holder    common.Address
}

func setup(t *testing.T) *fixture {
	t.Helper()
	a := testutil.NewTestAirdrop(t)
	ctx := context.Background()

	issuer := testutil.TestAddress(500)
	newToken, err := token.Deploy(ctx, a.Ledger, issuer, "Airdrop Token v2", "AIR2", issuer, uint256.NewInt(10_000))
	require.NoError(t, err)

	c, err := Deploy(ctx, a.Ledger, a.Deployer, a.Token.Address(), newToken.Address())
	require.NoError(t, err)

	_, err = newToken.Transfer(ctx, issuer, c.Address(), uint256.NewInt(1000))
	require.NoError(t, err)

	holder := testutil.TestAddress(1)
	a.Fund(t, holder, 100)

	return &fixture{TestAirdrop: a, newToken: newToken, converter: c, holder: holder}
}

func (f *fixture) newBalance(t *testing.T, account common.Address) uint64 {
	t.Helper()
	b, err := f.newToken.BalanceOf(context.Background(), account)
	require.NoError(t, err)
	return b.Uint64()
}

func TestDeploy_ZeroAddresses(t *testing.T) {
	a := testutil.NewTestAirdrop(t)
	ctx := context.Background()

	_, err := Deploy(ctx, a.Ledger, a.Deployer, common.Address{}, a.Token.Address())
	require.ErrorIs(t, err, ledger.ErrZeroAddressInput)

	_, err = Deploy(ctx, a.Ledger, a.Deployer, a.Token.Address(), common.Address{})
	require.ErrorIs(t, err, ledger.ErrZeroAddressInput)
}

func TestConvert(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.Token.Approve(ctx, f.holder, f.converter.Address(), uint256.NewInt(100))
	require.NoError(t, err)

	// any caller may trigger the swap for the holder
	receipt, err := f.converter.Convert(ctx, testutil.TestAddress(777), f.holder)
	require.NoError(t, err)
	_, ok := receipt.FindEvent("Converted")
	assert.True(t, ok)

	assert.Equal(t, uint64(0), f.Balance(t, f.holder))
	assert.Equal(t, uint64(100), f.Balance(t, f.converter.Address()))
	assert.Equal(t, uint64(100), f.newBalance(t, f.holder))
	assert.Equal(t, uint64(900), f.newBalance(t, f.converter.Address()))
}

func TestConvert_NothingToConvert(t *testing.T) {
	f := setup(t)

	_, err := f.converter.Convert(context.Background(), f.holder, testutil.TestAddress(2))
	require.ErrorIs(t, err, ErrNothingToConvert)
	assert.Equal(t, "NothingToConvert", err.Error())
}

func TestConvert_InsufficientAllowance(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.Token.Approve(ctx, f.holder, f.converter.Address(), uint256.NewInt(99))
	require.NoError(t, err)

	_, err = f.converter.Convert(ctx, f.holder, f.holder)
	require.ErrorIs(t, err, token.ErrInsufficientAllowance)
	assert.Equal(t, uint64(100), f.Balance(t, f.holder))
}

func TestConvert_ReserveExhaustedRollsBack(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	whale := testutil.TestAddress(3)
	f.Fund(t, whale, 5000)
	_, err := f.Token.Approve(ctx, whale, f.converter.Address(), uint256.NewInt(5000))
	require.NoError(t, err)

	_, err = f.converter.Convert(ctx, whale, whale)
	require.ErrorIs(t, err, token.ErrInsufficientBalance)

	assert.Equal(t, uint64(5000), f.Balance(t, whale))
	assert.Equal(t, uint64(0), f.Balance(t, f.converter.Address()))
}

func TestAt(t *testing.T) {
	f := setup(t)

	bound, err := At(context.Background(), f.Ledger, f.converter.Address())
	require.NoError(t, err)
	assert.Equal(t, f.Token.Address(), bound.OldToken())
	assert.Equal(t, f.newToken.Address(), bound.NewToken())
}
