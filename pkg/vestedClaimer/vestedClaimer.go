// Package vestedClaimer is the vested airdrop claimer. Whitelisted accounts
// release their allocation over time according to a Schedule, any number of
// times, until the release time limit.
package vestedClaimer

import (
	"context"
	"errors"
	"math"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/ledger"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/metrics"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/token"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const Kind = "vestedClaimer"

const (
	fieldConfig   = "config"
	fieldReleased = "released"
)

var (
	ErrInvalidMerkleRoot             = errors.New("InvalidMerkleRoot")
	ErrPastVestingStart              = errors.New("PastVestingStart")
	ErrInvalidVestingDuration        = errors.New("InvalidVestingDuration")
	ErrInvalidCliff                  = errors.New("InvalidCliff")
	ErrInvalidReleaseTimeLimit       = errors.New("InvalidReleaseTimeLimit")
	ErrReleaseTimeLimitReached       = errors.New("ReleaseTimeLimitReached")
	ErrInvalidMerkleProof            = errors.New("InvalidMerkleProof")
	ErrNothingToRelease              = errors.New("NothingToRelease")
	ErrReleaseTimeLimitNotYetReached = errors.New("ReleaseTimeLimitNotYetReached")
)

// Config is fixed at deployment. Constructor argument order is
// (token, merkleRoot, releaseTimeLimit, start, duration, cliff).
type Config struct {
	Token            common.Address `json:"token"`
	MerkleRoot       types.Hash32   `json:"merkleRoot"`
	ReleaseTimeLimit uint64         `json:"releaseTimeLimit"`
	Schedule         Schedule       `json:"schedule"`
}

type ReleasedEvent struct {
	Account       common.Address `json:"account"`
	Amount        *uint256.Int   `json:"amount"`
	TotalReleased *uint256.Int   `json:"totalReleased"`
}

type RecoveredEvent struct {
	Owner  common.Address `json:"owner"`
	Amount *uint256.Int   `json:"amount"`
}

type VestedClaimer struct {
	ledger  *ledger.Ledger
	address common.Address
	config  Config
}

func (c Config) validate(now uint64) error {
	if c.Token == (common.Address{}) {
		return ledger.ErrZeroAddressInput
	}
	if c.MerkleRoot == (types.Hash32{}) {
		return ErrInvalidMerkleRoot
	}
	s := c.Schedule
	if s.Start <= now {
		return ErrPastVestingStart
	}
	if s.Duration == 0 || s.Start > math.MaxUint64-s.Duration {
		return ErrInvalidVestingDuration
	}
	if s.Cliff < s.Start || s.Cliff > s.End() {
		return ErrInvalidCliff
	}
	if c.ReleaseTimeLimit < s.End() {
		return ErrInvalidReleaseTimeLimit
	}
	return nil
}

// Deploy creates a vested claimer owned by deployer.
func Deploy(ctx context.Context, l *ledger.Ledger, deployer, tokenAddr common.Address, merkleRoot [32]byte, releaseTimeLimit, start, duration, cliff uint64) (*VestedClaimer, error) {
	cfg := Config{
		Token:            tokenAddr,
		MerkleRoot:       merkleRoot,
		ReleaseTimeLimit: releaseTimeLimit,
		Schedule:         Schedule{Start: start, Duration: duration, Cliff: cliff},
	}

	addr, _, err := l.Deploy(ctx, deployer, Kind, func(tx *ledger.Tx, addr common.Address) error {
		if err := cfg.validate(tx.Timestamp()); err != nil {
			return err
		}
		ledger.InitOwner(tx, addr)
		return tx.SetJSON(ledger.Key(addr, fieldConfig), &cfg)
	})
	if err != nil {
		return nil, err
	}

	return &VestedClaimer{ledger: l, address: addr, config: cfg}, nil
}

// At binds to a vested claimer that was deployed earlier.
func At(ctx context.Context, l *ledger.Ledger, addr common.Address) (*VestedClaimer, error) {
	c := &VestedClaimer{ledger: l, address: addr}
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

func (c *VestedClaimer) Address() common.Address { return c.address }

func (c *VestedClaimer) Config() Config { return c.config }

// Release pays caller everything vested so far that it has not yet received.
// amount is the caller's total allocation as committed in the merkle tree.
func (c *VestedClaimer) Release(ctx context.Context, caller common.Address, amount *uint256.Int, proof [][32]byte) (*ledger.Receipt, error) {
	var due *uint256.Int
	receipt, err := c.ledger.Execute(ctx, caller, func(tx *ledger.Tx) error {
		var err error
		due, err = c.release(tx, amount, proof)
		return err
	})
	c.ledger.Metrics().ObserveClaim(metrics.ContractVested, err)
	if err == nil {
		c.ledger.Metrics().ObservePayout(metrics.ContractVested, due)
	}
	return receipt, err
}

func (c *VestedClaimer) release(tx *ledger.Tx, amount *uint256.Int, proof [][32]byte) (*uint256.Int, error) {
	now := tx.Timestamp()
	if now > c.config.ReleaseTimeLimit {
		return nil, ErrReleaseTimeLimitReached
	}

	account := tx.Sender()
	leaf := &types.Leaf{Account: account, Amount: amount}
	if amount == nil || !merkle.VerifyLeaf(c.config.MerkleRoot, leaf, proof) {
		return nil, ErrInvalidMerkleProof
	}

	releasedKey := ledger.AccountKey(c.address, fieldReleased, account)
	released, err := tx.GetUint256(releasedKey)
	if err != nil {
		return nil, err
	}

	due := c.config.Schedule.Due(amount, released, now)
	if due.IsZero() {
		return nil, ErrNothingToRelease
	}

	total := new(uint256.Int).Add(released, due)
	tx.SetUint256(releasedKey, total)
	if err := token.TransferTx(tx, c.config.Token, c.address, account, due); err != nil {
		return nil, err
	}
	tx.Emit(c.address, "Released", &ReleasedEvent{Account: account, Amount: due.Clone(), TotalReleased: total})
	return due, nil
}

// Recover sends the remaining balance to the owner once the release window has closed.
func (c *VestedClaimer) Recover(ctx context.Context, caller common.Address) (*ledger.Receipt, error) {
	return c.ledger.Execute(ctx, caller, func(tx *ledger.Tx) error {
		if err := ledger.RequireOwner(tx, c.address); err != nil {
			return err
		}
		if tx.Timestamp() <= c.config.ReleaseTimeLimit {
			return ErrReleaseTimeLimitNotYetReached
		}

		balance, err := token.BalanceOfTx(tx, c.config.Token, c.address)
		if err != nil {
			return err
		}
		if err := token.TransferTx(tx, c.config.Token, c.address, tx.Sender(), balance); err != nil {
			return err
		}
		tx.Emit(c.address, "Recovered", &RecoveredEvent{Owner: tx.Sender(), Amount: balance})
		return nil
	})
}

// Released returns the amount account has received so far.
func (c *VestedClaimer) Released(ctx context.Context, account common.Address) (*uint256.Int, error) {
	var released *uint256.Int
	err := c.ledger.View(ctx, func(tx *ledger.Tx) error {
		var err error
		released, err = tx.GetUint256(ledger.AccountKey(c.address, fieldReleased, account))
		return err
	})
	return released, err
}

// Releasable returns what account could release at t for an allocation of
// amount. The allocation is not checked against the merkle root.
func (c *VestedClaimer) Releasable(ctx context.Context, account common.Address, amount *uint256.Int, t uint64) (*uint256.Int, error) {
	released, err := c.Released(ctx, account)
	if err != nil {
		return nil, err
	}
	return c.config.Schedule.Due(amount, released, t), nil
}

func (c *VestedClaimer) Owner(ctx context.Context) (common.Address, error) {
	var owner common.Address
	err := c.ledger.View(ctx, func(tx *ledger.Tx) error {
		var err error
		owner, err = ledger.OwnerOf(tx, c.address)
		return err
	})
	return owner, err
}

func (c *VestedClaimer) TransferOwnership(ctx context.Context, caller, newOwner common.Address) (*ledger.Receipt, error) {
	return c.ledger.Execute(ctx, caller, func(tx *ledger.Tx) error {
		return ledger.TransferOwnershipTx(tx, c.address, newOwner)
	})
}
