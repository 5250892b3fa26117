// Package token implements ERC20 balances, allowances and transfers on the ledger.
package token

import (
	"context"
	"errors"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const Kind = "erc20"

const (
	fieldMeta        = "meta"
	fieldTotalSupply = "totalSupply"
	fieldBalance     = "balance"
	fieldAllowance   = "allowance"
)

var (
	ErrInsufficientBalance   = errors.New("ERC20: transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("ERC20: transfer amount exceeds allowance")
	ErrTransferToZero        = errors.New("ERC20: transfer to the zero address")
	ErrTransferFromZero      = errors.New("ERC20: transfer from the zero address")
	ErrApproveToZero         = errors.New("ERC20: approve to the zero address")
	ErrMintToZero            = errors.New("ERC20: mint to the zero address")
	ErrSupplyOverflow        = errors.New("ERC20: total supply overflow")
)

type Metadata struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// TransferEvent mirrors the ERC20 Transfer log.
type TransferEvent struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *uint256.Int   `json:"value"`
}

// ApprovalEvent mirrors the ERC20 Approval log.
type ApprovalEvent struct {
	Owner   common.Address `json:"owner"`
	Spender common.Address `json:"spender"`
	Value   *uint256.Int   `json:"value"`
}

// ERC20 is a handle to a token contract on a ledger.
type ERC20 struct {
	ledger  *ledger.Ledger
	address common.Address
}

// Deploy creates a token and mints supply to initialHolder.
func Deploy(ctx context.Context, l *ledger.Ledger, deployer common.Address, name, symbol string, initialHolder common.Address, supply *uint256.Int) (*ERC20, error) {
	addr, _, err := l.Deploy(ctx, deployer, Kind, func(tx *ledger.Tx, addr common.Address) error {
		if err := tx.SetJSON(ledger.Key(addr, fieldMeta), &Metadata{Name: name, Symbol: symbol, Decimals: 18}); err != nil {
			return err
		}
		if supply == nil || supply.IsZero() {
			return nil
		}
		return MintTx(tx, addr, initialHolder, supply)
	})
	if err != nil {
		return nil, err
	}
	return &ERC20{ledger: l, address: addr}, nil
}

// At binds to an existing token.
func At(ctx context.Context, l *ledger.Ledger, addr common.Address) (*ERC20, error) {
	err := l.View(ctx, func(tx *ledger.Tx) error {
		return ledger.RequireCode(tx, addr, Kind)
	})
	if err != nil {
		return nil, err
	}
	return &ERC20{ledger: l, address: addr}, nil
}

func (t *ERC20) Address() common.Address {
	return t.address
}

func (t *ERC20) Metadata(ctx context.Context) (*Metadata, error) {
	meta := &Metadata{}
	err := t.ledger.View(ctx, func(tx *ledger.Tx) error {
		_, err := tx.GetJSON(ledger.Key(t.address, fieldMeta), meta)
		return err
	})
	return meta, err
}

func (t *ERC20) TotalSupply(ctx context.Context) (*uint256.Int, error) {
	var supply *uint256.Int
	err := t.ledger.View(ctx, func(tx *ledger.Tx) error {
		var err error
		supply, err = tx.GetUint256(ledger.Key(t.address, fieldTotalSupply))
		return err
	})
	return supply, err
}

func (t *ERC20) BalanceOf(ctx context.Context, account common.Address) (*uint256.Int, error) {
	var balance *uint256.Int
	err := t.ledger.View(ctx, func(tx *ledger.Tx) error {
		var err error
		balance, err = BalanceOfTx(tx, t.address, account)
		return err
	})
	return balance, err
}

func (t *ERC20) Allowance(ctx context.Context, owner, spender common.Address) (*uint256.Int, error) {
	var allowance *uint256.Int
	err := t.ledger.View(ctx, func(tx *ledger.Tx) error {
		var err error
		allowance, err = AllowanceTx(tx, t.address, owner, spender)
		return err
	})
	return allowance, err
}

// Transfer moves amount from the caller to to.
func (t *ERC20) Transfer(ctx context.Context, caller, to common.Address, amount *uint256.Int) (*ledger.Receipt, error) {
	return t.ledger.Execute(ctx, caller, func(tx *ledger.Tx) error {
		return TransferTx(tx, t.address, tx.Sender(), to, amount)
	})
}

// Approve sets spender's allowance over the caller's balance.
func (t *ERC20) Approve(ctx context.Context, caller, spender common.Address, amount *uint256.Int) (*ledger.Receipt, error) {
	return t.ledger.Execute(ctx, caller, func(tx *ledger.Tx) error {
		return ApproveTx(tx, t.address, tx.Sender(), spender, amount)
	})
}

// TransferFrom moves amount from from to to, spending the caller's allowance.
func (t *ERC20) TransferFrom(ctx context.Context, caller, from, to common.Address, amount *uint256.Int) (*ledger.Receipt, error) {
	return t.ledger.Execute(ctx, caller, func(tx *ledger.Tx) error {
		return TransferFromTx(tx, t.address, tx.Sender(), from, to, amount)
	})
}
