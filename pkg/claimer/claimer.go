// Package claimer is the immediate airdrop claimer: each whitelisted account
// may claim its full allocation once, until the claim time limit. After the
// limit the owner recovers whatever is left.
package claimer

import (
	"context"
	"errors"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/ledger"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/metrics"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/token"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const Kind = "claimer"

const (
	fieldConfig  = "config"
	fieldClaimed = "claimed"
)

var (
	ErrInvalidTokenAddress = errors.New("InvalidTokenAddress")
	ErrInvalidMerkleRoot   = errors.New("InvalidMerkleRoot")
	ErrInvalidTimeLimit    = errors.New("InvalidTimeLimit")
	ErrTimeLimitReached    = errors.New("TimeLimitReached")
	ErrAlreadyClaimed      = errors.New("AlreadyClaimed")
	ErrInvalidProof        = errors.New("InvalidProof")
	ErrTooEarly            = errors.New("TooEarly")
)

// Config is fixed at deployment.
type Config struct {
	Token          common.Address `json:"token"`
	MerkleRoot     types.Hash32   `json:"merkleRoot"`
	ClaimTimeLimit uint64         `json:"claimTimeLimit"`
}

type ClaimedEvent struct {
	Account common.Address `json:"account"`
	Amount  *uint256.Int   `json:"amount"`
}

type RecoveredEvent struct {
	Owner  common.Address `json:"owner"`
	Amount *uint256.Int   `json:"amount"`
}

type Claimer struct {
	ledger  *ledger.Ledger
	address common.Address
	config  Config
}

// Deploy creates a claimer owned by deployer. The contract holds no tokens
// until someone transfers the allocation total to its address.
func Deploy(ctx context.Context, l *ledger.Ledger, deployer, tokenAddr common.Address, merkleRoot [32]byte, claimTimeLimit uint64) (*Claimer, error) {
	cfg := Config{
		Token:          tokenAddr,
		MerkleRoot:     merkleRoot,
		ClaimTimeLimit: claimTimeLimit,
	}

	addr, _, err := l.Deploy(ctx, deployer, Kind, func(tx *ledger.Tx, addr common.Address) error {
		if tokenAddr == (common.Address{}) {
			return ErrInvalidTokenAddress
		}
		if merkleRoot == ([32]byte{}) {
			return ErrInvalidMerkleRoot
		}
		if claimTimeLimit <= tx.Timestamp() {
			return ErrInvalidTimeLimit
		}
		ledger.InitOwner(tx, addr)
		return tx.SetJSON(ledger.Key(addr, fieldConfig), &cfg)
	})
	if err != nil {
		return nil, err
	}

	return &Claimer{ledger: l, address: addr, config: cfg}, nil
}

// At binds to a claimer that was deployed earlier.
func At(ctx context.Context, l *ledger.Ledger, addr common.Address) (*Claimer, error) {
	c := &Claimer{ledger: l, address: addr}
	err := l.View(ctx, func(tx *ledger.Tx) error {
		if err := ledger.RequireCode(tx, addr, Kind); err != nil {
			return err
		}
		_, err := tx.GetJSON(ledger.Key(addr, fieldConfig), &c.config)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Claimer) Address() common.Address { return c.address }

func (c *Claimer) Config() Config { return c.config }

// Claim pays amount to caller if (caller, amount) is a leaf under the merkle
// root. The proof is only valid for the account it was generated for.
func (c *Claimer) Claim(ctx context.Context, caller common.Address, amount *uint256.Int, proof [][32]byte) (*ledger.Receipt, error) {
	receipt, err := c.ledger.Execute(ctx, caller, func(tx *ledger.Tx) error {
		return c.claim(tx, amount, proof)
	})
	c.ledger.Metrics().ObserveClaim(metrics.ContractClaimer, err)
	if err == nil {
		c.ledger.Metrics().ObservePayout(metrics.ContractClaimer, amount)
	}
	return receipt, err
}

func (c *Claimer) claim(tx *ledger.Tx, amount *uint256.Int, proof [][32]byte) error {
	if tx.Timestamp() > c.config.ClaimTimeLimit {
		return ErrTimeLimitReached
	}

	account := tx.Sender()
	claimedKey := ledger.AccountKey(c.address, fieldClaimed, account)
	claimed, err := tx.GetBool(claimedKey)
	if err != nil {
		return err
	}
	if claimed {
		return ErrAlreadyClaimed
	}

	leaf := &types.Leaf{Account: account, Amount: amount}
	if amount == nil || !merkle.VerifyLeaf(c.config.MerkleRoot, leaf, proof) {
		return ErrInvalidProof
	}

	tx.SetBool(claimedKey, true)
	if err := token.TransferTx(tx, c.config.Token, c.address, account, amount); err != nil {
		return err
	}
	tx.Emit(c.address, "Claimed", &ClaimedEvent{Account: account, Amount: amount.Clone()})
	return nil
}

// Recover sends the claimer's remaining balance to the owner once the claim
// window has closed.
func (c *Claimer) Recover(ctx context.Context, caller common.Address) (*ledger.Receipt, error) {
	return c.ledger.Execute(ctx, caller, func(tx *ledger.Tx) error {
		if err := ledger.RequireOwner(tx, c.address); err != nil {
			return err
		}
		if tx.Timestamp() <= c.config.ClaimTimeLimit {
			return ErrTooEarly
		}
		return recoverBalance(tx, c.config.Token, c.address)
	})
}

func recoverBalance(tx *ledger.Tx, tokenAddr, contract common.Address) error {
	balance, err := token.BalanceOfTx(tx, tokenAddr, contract)
	if err != nil {
		return err
	}
	owner := tx.Sender()
	if err := token.TransferTx(tx, tokenAddr, contract, owner, balance); err != nil {
		return err
	}
	tx.Emit(contract, "Recovered", &RecoveredEvent{Owner: owner, Amount: balance})
	return nil
}

// IsClaimed reports whether account has already claimed.
func (c *Claimer) IsClaimed(ctx context.Context, account common.Address) (bool, error) {
	var claimed bool
	err := c.ledger.View(ctx, func(tx *ledger.Tx) error {
		var err error
		claimed, err = tx.GetBool(ledger.AccountKey(c.address, fieldClaimed, account))
		return err
	})
	return claimed, err
}

// Owner returns the account allowed to recover.
func (c *Claimer) Owner(ctx context.Context) (common.Address, error) {
	var owner common.Address
	err := c.ledger.View(ctx, func(tx *ledger.Tx) error {
		var err error
		owner, err = ledger.OwnerOf(tx, c.address)
		return err
	})
	return owner, err
}

// TransferOwnership hands recovery rights to newOwner.
func (c *Claimer) TransferOwnership(ctx context.Context, caller, newOwner common.Address) (*ledger.Receipt, error) {
	return c.ledger.Execute(ctx, caller, func(tx *ledger.Tx) error {
		return ledger.TransferOwnershipTx(tx, c.address, newOwner)
	})
}
