package ledger

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

var (
	ErrNotOwner         = errors.New("Ownable: caller is not the owner")
	ErrZeroAddressInput = errors.New("ZeroAddressInput")
	ErrNewOwnerZero     = errors.New("Ownable: new owner is the zero address")
	ErrNoContract       = errors.New("no contract at address")
	ErrWrongContract    = errors.New("contract kind mismatch")
)

// Event is a log entry emitted by a contract during a transaction.
type Event struct {
	Contract common.Address `json:"contract"`
	Name     string         `json:"name"`
	Data     any            `json:"data"`
}

// Receipt describes a committed transaction.
type Receipt struct {
	TxID      uuid.UUID      `json:"txId"`
	Sender    common.Address `json:"sender"`
	Timestamp uint64         `json:"timestamp"`
	Events    []Event        `json:"events"`
	// Deployed is set when the transaction created a contract.
	Deployed *common.Address `json:"deployed,omitempty"`
}

// FindEvent returns the first event with the given name.
func (r *Receipt) FindEvent(name string) (Event, bool) {
	for _, e := range r.Events {
		if e.Name == name {
			return e, true
		}
	}
	return Event{}, false
}

// Key builds a state key scoped to a contract, e.g.
// 0xabc.../balance/0xdef...
func Key(contract common.Address, parts ...string) []byte {
	var b strings.Builder
	b.WriteString(strings.ToLower(contract.Hex()))
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(p)
	}
	return []byte(b.String())
}

// AccountKey is Key with a trailing account segment.
func AccountKey(contract common.Address, field string, account common.Address) []byte {
	return Key(contract, field, strings.ToLower(account.Hex()))
}
