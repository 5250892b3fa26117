// Package distributor pushes tokens from its owner to many accounts in one
// transaction.
package distributor

import (
	"context"
	"errors"
	"fmt"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/ledger"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/metrics"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const Kind = "distributor"

const fieldToken = "token"

var (
	ErrLengthMismatch = errors.New("accounts and amounts length mismatch")
	ErrNilAmount      = errors.New("amount must be set")
)

type DistributedEvent struct {
	TotalAmount *uint256.Int `json:"totalAmount"`
	Recipients  int          `json:"recipients"`
}

type Distributor struct {
	ledger  *ledger.Ledger
	address common.Address
	token   common.Address
}

// Deploy creates a distributor for tokenAddr, owned by deployer.
func Deploy(ctx context.Context, l *ledger.Ledger, deployer, tokenAddr common.Address) (*Distributor, error) {
	addr, _, err := l.Deploy(ctx, deployer, Kind, func(tx *ledger.Tx, addr common.Address) error {
		if tokenAddr == (common.Address{}) {
			return ledger.ErrZeroAddressInput
		}
		ledger.InitOwner(tx, addr)
		tx.SetAddress(ledger.Key(addr, fieldToken), tokenAddr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Distributor{ledger: l, address: addr, token: tokenAddr}, nil
}

// At binds to a distributor that was deployed earlier.
func At(ctx context.Context, l *ledger.Ledger, addr common.Address) (*Distributor, error) {
	d := &Distributor{ledger: l, address: addr}
	err := l.View(ctx, func(tx *ledger.Tx) error {
		if err := ledger.RequireCode(tx, addr, Kind); err != nil {
			return err
		}
		var err error
		d.token, err = tx.GetAddress(ledger.Key(addr, fieldToken))
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Distributor) Address() common.Address { return d.address }

func (d *Distributor) Token() common.Address { return d.token }

// Distribute pulls totalAmount from the owner through its allowance, then
// sends amounts[i] to accounts[i]. The sum of amounts is not checked against
// totalAmount; a shortfall fails the whole call on the first transfer that
// cannot be covered.
func (d *Distributor) Distribute(ctx context.Context, caller common.Address, totalAmount *uint256.Int, accounts []common.Address, amounts []*uint256.Int) (*ledger.Receipt, error) {
	receipt, err := d.ledger.Execute(ctx, caller, func(tx *ledger.Tx) error {
		if err := ledger.RequireOwner(tx, d.address); err != nil {
			return err
		}
		if len(accounts) != len(amounts) {
			return fmt.Errorf("%w: %d accounts, %d amounts", ErrLengthMismatch, len(accounts), len(amounts))
		}
		if totalAmount == nil {
			return fmt.Errorf("%w: total", ErrNilAmount)
		}
		for i, amount := range amounts {
			if amount == nil {
				return fmt.Errorf("%w: recipient %d", ErrNilAmount, i)
			}
		}

		if err := token.TransferFromTx(tx, d.token, d.address, tx.Sender(), d.address, totalAmount); err != nil {
			return err
		}
		for i, account := range accounts {
			if err := token.TransferTx(tx, d.token, d.address, account, amounts[i]); err != nil {
				return fmt.Errorf("recipient %d (%s): %w", i, account.Hex(), err)
			}
		}

		tx.Emit(d.address, "Distributed", &DistributedEvent{TotalAmount: totalAmount.Clone(), Recipients: len(accounts)})
		return nil
	})
	d.ledger.Metrics().ObserveClaim(metrics.ContractDistrib, err)
	if err == nil {
		d.ledger.Metrics().ObservePayout(metrics.ContractDistrib, totalAmount)
	}
	return receipt, err
}
