// Package converter swaps an old token for a new one 1:1 out of its own reserve.
package converter

import (
	"context"
	"errors"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/ledger"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/metrics"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const Kind = "converter"

const (
	fieldOldToken = "oldToken"
	fieldNewToken = "newToken"
)

var ErrNothingToConvert = errors.New("NothingToConvert")

type ConvertedEvent struct {
	Account common.Address `json:"account"`
	Amount  *uint256.Int   `json:"amount"`
}

type Converter struct {
	ledger   *ledger.Ledger
	address  common.Address
	oldToken common.Address
	newToken common.Address
}

func Deploy(ctx context.Context, l *ledger.Ledger, deployer, oldToken, newToken common.Address) (*Converter, error) {
	addr, _, err := l.Deploy(ctx, deployer, Kind, func(tx *ledger.Tx, addr common.Address) error {
		if oldToken == (common.Address{}) || newToken == (common.Address{}) {
			return ledger.ErrZeroAddressInput
		}
		tx.SetAddress(ledger.Key(addr, fieldOldToken), oldToken)
		tx.SetAddress(ledger.Key(addr, fieldNewToken), newToken)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Converter{ledger: l, address: addr, oldToken: oldToken, newToken: newToken}, nil
}

func At(ctx context.Context, l *ledger.Ledger, addr common.Address) (*Converter, error) {
	c := &Converter{ledger: l, address: addr}
	err := l.View(ctx, func(tx *ledger.Tx) error {
		if err := ledger.RequireCode(tx, addr, Kind); err != nil {
			return err
		}
		var err error
		if c.oldToken, err = tx.GetAddress(ledger.Key(addr, fieldOldToken)); err != nil {
			return err
		}
		c.newToken, err = tx.GetAddress(ledger.Key(addr, fieldNewToken))
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Converter) Address() common.Address { return c.address }

func (c *Converter) OldToken() common.Address { return c.oldToken }

func (c *Converter) NewToken() common.Address { return c.newToken }

// Convert swaps account's entire old-token balance for the same amount of
// new token. Anyone may trigger it, but account must have approved the
// converter for its old-token balance.
func (c *Converter) Convert(ctx context.Context, caller, account common.Address) (*ledger.Receipt, error) {
	var amount *uint256.Int
	receipt, err := c.ledger.Execute(ctx, caller, func(tx *ledger.Tx) error {
		var err error
		amount, err = token.BalanceOfTx(tx, c.oldToken, account)
		if err != nil {
			return err
		}
		if amount.IsZero() {
			return ErrNothingToConvert
		}

		if err := token.TransferFromTx(tx, c.oldToken, c.address, account, c.address, amount); err != nil {
			return err
		}
		if err := token.TransferTx(tx, c.newToken, c.address, account, amount); err != nil {
			return err
		}
		tx.Emit(c.address, "Converted", &ConvertedEvent{Account: account, Amount: amount.Clone()})
		return nil
	})
	c.ledger.Metrics().ObserveClaim(metrics.ContractConverter, err)
	if err == nil {
		c.ledger.Metrics().ObservePayout(metrics.ContractConverter, amount)
	}
	return receipt, err
}
