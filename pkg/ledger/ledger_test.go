package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/clock"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/logger"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence/memory"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func newTestLedger(t *testing.T) (*Ledger, *memory.MemoryStateStore, *clock.ManualClock) {
	t.Helper()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	store := memory.NewQuietMemoryStateStore()
	clk := clock.NewManualClock(1_700_000_000)
	l, err := NewLedger(&LedgerConfig{Store: store, Clock: clk}, testLogger)
	require.NoError(t, err)
	return l, store, clk
}

func TestNewLedger_RequiresStore(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	_, err := NewLedger(&LedgerConfig{}, testLogger)
	require.Error(t, err)
	_, err = NewLedger(nil, testLogger)
	require.Error(t, err)
}

func TestExecute_CommitsWrites(t *testing.T) {
	l, store, _ := newTestLedger(t)
	ctx := context.Background()
	key := AccountKey(bob, "balance", alice)

	receipt, err := l.Execute(ctx, alice, func(tx *Tx) error {
		assert.Equal(t, alice, tx.Sender())
		assert.Equal(t, uint64(1_700_000_000), tx.Timestamp())
		tx.SetUint256(key, uint256.NewInt(42))
		tx.Emit(bob, "Touched", map[string]string{"by": alice.Hex()})
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, alice, receipt.Sender)
	assert.Len(t, receipt.Events, 1)
	_, found := receipt.FindEvent("Touched")
	assert.True(t, found)

	raw, err := store.Get(key)
	require.NoError(t, err)
	v, err := persistence.UnmarshalUint256(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v.Uint64())
}

func TestExecute_RollsBackOnError(t *testing.T) {
	l, store, _ := newTestLedger(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := l.Execute(ctx, alice, func(tx *Tx) error {
		tx.SetBool(Key(bob, "flag"), true)
		tx.SetUint64(Key(bob, "counter"), 7)
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, store.Len())
}

func TestTx_ReadYourWrites(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	key := Key(bob, "x")

	_, err := l.Execute(ctx, alice, func(tx *Tx) error {
		tx.SetUint64(key, 1)
		return nil
	})
	require.NoError(t, err)

	_, err = l.Execute(ctx, alice, func(tx *Tx) error {
		v, err := tx.GetUint64(key)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), v)

		tx.Delete(key)
		v, err = tx.GetUint64(key)
		require.NoError(t, err)
		assert.Zero(t, v)

		tx.SetUint64(key, 5)
		v, err = tx.GetUint64(key)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), v)
		return nil
	})
	require.NoError(t, err)
}

func TestTx_TypedAccessors(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	type cfg struct {
		Root string `json:"root"`
	}

	_, err := l.Execute(ctx, alice, func(tx *Tx) error {
		zero, err := tx.GetUint256(Key(bob, "missing"))
		require.NoError(t, err)
		assert.True(t, zero.IsZero())

		flag, err := tx.GetBool(Key(bob, "missing"))
		require.NoError(t, err)
		assert.False(t, flag)

		tx.SetAddress(Key(bob, "owner"), alice)
		owner, err := tx.GetAddress(Key(bob, "owner"))
		require.NoError(t, err)
		assert.Equal(t, alice, owner)

		found, err := tx.GetJSON(Key(bob, "cfg"), &cfg{})
		require.NoError(t, err)
		assert.False(t, found)

		require.NoError(t, tx.SetJSON(Key(bob, "cfg"), &cfg{Root: "0x01"}))
		var got cfg
		found, err = tx.GetJSON(Key(bob, "cfg"), &got)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "0x01", got.Root)

		tx.SetUint256(Key(bob, "amt"), uint256.NewInt(3))
		tx.SetUint256(Key(bob, "amt"), uint256.NewInt(0))
		amt, err := tx.GetUint256(Key(bob, "amt"))
		require.NoError(t, err)
		assert.True(t, amt.IsZero())
		return nil
	})
	require.NoError(t, err)
}

func TestDeploy_CreateAddresses(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	first, receipt, err := l.Deploy(ctx, alice, "token", func(tx *Tx, addr common.Address) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, crypto.CreateAddress(alice, 0), first)
	require.NotNil(t, receipt.Deployed)
	assert.Equal(t, first, *receipt.Deployed)

	second, _, err := l.Deploy(ctx, alice, "token", func(tx *Tx, addr common.Address) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, crypto.CreateAddress(alice, 1), second)

	code, err := l.CodeAt(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "token", code)
}

func TestDeploy_FailedConstructorLeavesNoTrace(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	boom := errors.New("InvalidMerkleRoot")

	_, _, err := l.Deploy(ctx, alice, "claimer", func(tx *Tx, addr common.Address) error { return boom })
	require.ErrorIs(t, err, boom)

	// nonce was not consumed
	addr, _, err := l.Deploy(ctx, alice, "claimer", func(tx *Tx, addr common.Address) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, crypto.CreateAddress(alice, 0), addr)
}

func TestRequireCode(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	addr, _, err := l.Deploy(ctx, alice, "converter", func(tx *Tx, addr common.Address) error { return nil })
	require.NoError(t, err)

	err = l.View(ctx, func(tx *Tx) error {
		require.NoError(t, RequireCode(tx, addr, "converter"))
		require.ErrorIs(t, RequireCode(tx, addr, "token"), ErrWrongContract)
		require.ErrorIs(t, RequireCode(tx, bob, "token"), ErrNoContract)
		return nil
	})
	require.NoError(t, err)
}

func TestOnlyOwner(t *testing.T) {
	l, _, _ := newTestLedger(t)
	_, err := l.Execute(context.Background(), bob, func(tx *Tx) error {
		return OnlyOwner(tx, alice)
	})
	require.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, "Ownable: caller is not the owner", err.Error())
}

func TestView_DoesNotCommit(t *testing.T) {
	l, store, _ := newTestLedger(t)

	err := l.View(context.Background(), func(tx *Tx) error {
		tx.SetUint64(Key(bob, "x"), 1)
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, store.Len())
}

func TestExecute_CancelledContext(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := l.Execute(ctx, alice, func(tx *Tx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestExecute_Serialized(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	key := Key(bob, "counter")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Execute(ctx, alice, func(tx *Tx) error {
				v, err := tx.GetUint64(key)
				if err != nil {
					return err
				}
				tx.SetUint64(key, v+1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	err := l.View(ctx, func(tx *Tx) error {
		v, err := tx.GetUint64(key)
		require.NoError(t, err)
		assert.Equal(t, uint64(50), v)
		return nil
	})
	require.NoError(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t,
		"0x0000000000000000000000000000000000000b0b/balance/0x00000000000000000000000000000000000a11ce",
		string(AccountKey(bob, "balance", alice)),
	)
}

func TestOwnership(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	addr, receipt, err := l.Deploy(ctx, alice, "distributor", func(tx *Tx, addr common.Address) error {
		InitOwner(tx, addr)
		return nil
	})
	require.NoError(t, err)
	_, ok := receipt.FindEvent("OwnershipTransferred")
	assert.True(t, ok)

	_, err = l.Execute(ctx, bob, func(tx *Tx) error { return RequireOwner(tx, addr) })
	require.ErrorIs(t, err, ErrNotOwner)

	_, err = l.Execute(ctx, bob, func(tx *Tx) error { return TransferOwnershipTx(tx, addr, bob) })
	require.ErrorIs(t, err, ErrNotOwner)

	_, err = l.Execute(ctx, alice, func(tx *Tx) error { return TransferOwnershipTx(tx, addr, common.Address{}) })
	require.ErrorIs(t, err, ErrNewOwnerZero)

	_, err = l.Execute(ctx, alice, func(tx *Tx) error { return TransferOwnershipTx(tx, addr, bob) })
	require.NoError(t, err)

	_, err = l.Execute(ctx, bob, func(tx *Tx) error { return RequireOwner(tx, addr) })
	require.NoError(t, err)
}

func newSharedLedger(t *testing.T, store persistence.IStateStore, clk clock.Clock) *Ledger {
	t.Helper()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	l, err := NewLedger(&LedgerConfig{Store: store, Clock: clk}, testLogger)
	require.NoError(t, err)
	return l
}

func TestExecute_SharedStoreRerunsStaleTransaction(t *testing.T) {
	first, store, clk := newTestLedger(t)
	second := newSharedLedger(t, store, clk)
	ctx := context.Background()
	key := AccountKey(bob, "balance", alice)

	_, err := first.Execute(ctx, alice, func(tx *Tx) error {
		tx.SetUint256(key, uint256.NewInt(1000))
		return nil
	})
	require.NoError(t, err)

	attempts := 0
	_, err = first.Execute(ctx, alice, func(tx *Tx) error {
		attempts++
		balance, err := tx.GetUint256(key)
		if err != nil {
			return err
		}
		if attempts == 1 {
			// the other ledger pays out 200 between this read and the commit
			_, err := second.Execute(ctx, alice, func(tx *Tx) error {
				b, err := tx.GetUint256(key)
				if err != nil {
					return err
				}
				tx.SetUint256(key, new(uint256.Int).Sub(b, uint256.NewInt(200)))
				return nil
			})
			require.NoError(t, err)
		}
		tx.SetUint256(key, new(uint256.Int).Sub(balance, uint256.NewInt(100)))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	raw, err := store.Get(key)
	require.NoError(t, err)
	v, err := persistence.UnmarshalUint256(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(700), v.Uint64())
}

func TestExecute_SharedStoreGivesUpAfterRepeatedConflicts(t *testing.T) {
	first, store, clk := newTestLedger(t)
	second := newSharedLedger(t, store, clk)
	ctx := context.Background()
	key := Key(bob, "counter")

	attempts := 0
	_, err := first.Execute(ctx, alice, func(tx *Tx) error {
		attempts++
		v, err := tx.GetUint64(key)
		if err != nil {
			return err
		}
		_, err = second.Execute(ctx, alice, func(tx *Tx) error {
			n, err := tx.GetUint64(key)
			if err != nil {
				return err
			}
			tx.SetUint64(key, n+1)
			return nil
		})
		require.NoError(t, err)
		tx.SetUint64(key, v+100)
		return nil
	})
	require.ErrorIs(t, err, persistence.ErrConflict)
	assert.Equal(t, maxCommitAttempts, attempts)

	err = first.View(ctx, func(tx *Tx) error {
		v, err := tx.GetUint64(key)
		require.NoError(t, err)
		assert.Equal(t, uint64(maxCommitAttempts), v)
		return nil
	})
	require.NoError(t, err)
}

func TestExecute_SharedStoreConcurrentIncrements(t *testing.T) {
	first, store, clk := newTestLedger(t)
	second := newSharedLedger(t, store, clk)
	ctx := context.Background()
	key := Key(bob, "counter")

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		l := first
		if i%2 == 1 {
			l = second
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Execute(ctx, alice, func(tx *Tx) error {
				v, err := tx.GetUint64(key)
				if err != nil {
					return err
				}
				tx.SetUint64(key, v+1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	err := first.View(ctx, func(tx *Tx) error {
		v, err := tx.GetUint64(key)
		require.NoError(t, err)
		assert.Equal(t, uint64(40), v)
		return nil
	})
	require.NoError(t, err)
}
