package ledger

import (
	"github.com/ethereum/go-ethereum/common"
)

const fieldOwner = "owner"

// OwnershipTransferredEvent mirrors Ownable's OwnershipTransferred log.
type OwnershipTransferredEvent struct {
	PreviousOwner common.Address `json:"previousOwner"`
	NewOwner      common.Address `json:"newOwner"`
}

// InitOwner records the deployer as owner of contract.
func InitOwner(tx *Tx, contract common.Address) {
	tx.SetAddress(Key(contract, fieldOwner), tx.Sender())
	tx.Emit(contract, "OwnershipTransferred", &OwnershipTransferredEvent{NewOwner: tx.Sender()})
}

func OwnerOf(tx *Tx, contract common.Address) (common.Address, error) {
	return tx.GetAddress(Key(contract, fieldOwner))
}

// RequireOwner fails with ErrNotOwner unless the sender owns contract.
func RequireOwner(tx *Tx, contract common.Address) error {
	owner, err := OwnerOf(tx, contract)
	if err != nil {
		return err
	}
	return OnlyOwner(tx, owner)
}

// TransferOwnershipTx hands contract to newOwner. Only the current owner may call it.
func TransferOwnershipTx(tx *Tx, contract, newOwner common.Address) error {
	owner, err := OwnerOf(tx, contract)
	if err != nil {
		return err
	}
	if err := OnlyOwner(tx, owner); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return ErrNewOwnerZero
	}
	tx.SetAddress(Key(contract, fieldOwner), newOwner)
	tx.Emit(contract, "OwnershipTransferred", &OwnershipTransferredEvent{PreviousOwner: owner, NewOwner: newOwner})
	return nil
}
