package token

import (
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// The *Tx functions run inside a caller's ledger transaction, which is how
// contracts move tokens without committing half a state transition.

func balanceKey(token, account common.Address) []byte {
	return ledger.AccountKey(token, fieldBalance, account)
}

func allowanceKey(token, owner, spender common.Address) []byte {
	return ledger.Key(token, fieldAllowance, owner.Hex(), spender.Hex())
}

func BalanceOfTx(tx *ledger.Tx, token, account common.Address) (*uint256.Int, error) {
	if err := ledger.RequireCode(tx, token, Kind); err != nil {
		return nil, err
	}
	return tx.GetUint256(balanceKey(token, account))
}

func AllowanceTx(tx *ledger.Tx, token, owner, spender common.Address) (*uint256.Int, error) {
	if err := ledger.RequireCode(tx, token, Kind); err != nil {
		return nil, err
	}
	return tx.GetUint256(allowanceKey(token, owner, spender))
}

func TransferTx(tx *ledger.Tx, token, from, to common.Address, amount *uint256.Int) error {
	if err := ledger.RequireCode(tx, token, Kind); err != nil {
		return err
	}
	if from == (common.Address{}) {
		return ErrTransferFromZero
	}
	if to == (common.Address{}) {
		return ErrTransferToZero
	}
	if amount == nil {
		amount = new(uint256.Int)
	}

	fromBalance, err := tx.GetUint256(balanceKey(token, from))
	if err != nil {
		return err
	}
	if fromBalance.Lt(amount) {
		return ErrInsufficientBalance
	}
	tx.SetUint256(balanceKey(token, from), new(uint256.Int).Sub(fromBalance, amount))

	// total supply bounds every balance, so this cannot overflow
	toBalance, err := tx.GetUint256(balanceKey(token, to))
	if err != nil {
		return err
	}
	tx.SetUint256(balanceKey(token, to), new(uint256.Int).Add(toBalance, amount))

	tx.Emit(token, "Transfer", &TransferEvent{From: from, To: to, Value: amount.Clone()})
	return nil
}

func ApproveTx(tx *ledger.Tx, token, owner, spender common.Address, amount *uint256.Int) error {
	if err := ledger.RequireCode(tx, token, Kind); err != nil {
		return err
	}
	if spender == (common.Address{}) {
		return ErrApproveToZero
	}
	if amount == nil {
		amount = new(uint256.Int)
	}
	tx.SetUint256(allowanceKey(token, owner, spender), amount)
	tx.Emit(token, "Approval", &ApprovalEvent{Owner: owner, Spender: spender, Value: amount.Clone()})
	return nil
}

// TransferFromTx spends spender's allowance over from. An allowance of
// MaxUint256 is treated as infinite and never decremented.
func TransferFromTx(tx *ledger.Tx, token, spender, from, to common.Address, amount *uint256.Int) error {
	allowance, err := AllowanceTx(tx, token, from, spender)
	if err != nil {
		return err
	}
	if amount == nil {
		amount = new(uint256.Int)
	}
	if allowance.Lt(amount) {
		return ErrInsufficientAllowance
	}
	if !allowance.Eq(maxUint256) {
		tx.SetUint256(allowanceKey(token, from, spender), new(uint256.Int).Sub(allowance, amount))
	}
	return TransferTx(tx, token, from, to, amount)
}

// MintTx creates amount new tokens for to.
func MintTx(tx *ledger.Tx, token, to common.Address, amount *uint256.Int) error {
	if err := ledger.RequireCode(tx, token, Kind); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return ErrMintToZero
	}

	supply, err := tx.GetUint256(ledger.Key(token, fieldTotalSupply))
	if err != nil {
		return err
	}
	newSupply, overflow := new(uint256.Int).AddOverflow(supply, amount)
	if overflow {
		return ErrSupplyOverflow
	}
	tx.SetUint256(ledger.Key(token, fieldTotalSupply), newSupply)

	balance, err := tx.GetUint256(balanceKey(token, to))
	if err != nil {
		return err
	}
	tx.SetUint256(balanceKey(token, to), new(uint256.Int).Add(balance, amount))

	tx.Emit(token, "Transfer", &TransferEvent{From: common.Address{}, To: to, Value: amount.Clone()})
	return nil
}

var maxUint256 = new(uint256.Int).SetAllOne()
