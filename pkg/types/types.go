package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Leaf is a single (account, amount) allocation committed to a merkle tree.
type Leaf struct {
	Account common.Address
	Amount  *uint256.Int
}

// leafJSON is the wire form used by leaves files and proof APIs.
type leafJSON struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// NewLeaf creates a leaf with a uint64 amount. Mostly useful in tests.
func NewLeaf(account common.Address, amount uint64) *Leaf {
	return &Leaf{Account: account, Amount: uint256.NewInt(amount)}
}

// ParseLeaf parses a hex account and a base-10 amount.
func ParseLeaf(account string, amount string) (*Leaf, error) {
	addr, err := ParseAddress(account)
	if err != nil {
		return nil, err
	}
	amt, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	return &Leaf{Account: addr, Amount: amt}, nil
}

// ParseAddress validates and parses a 20-byte hex address.
func ParseAddress(s string) (common.Address, error) {
	trimmed := strings.TrimSpace(s)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address: %q", s)
	}
	return common.HexToAddress(trimmed), nil
}

// ParseAmount parses a base-10 unsigned 256-bit integer.
func ParseAmount(s string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}
	amt, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amt, nil
}

// Equal reports whether two leaves have the same account and amount.
func (l *Leaf) Equal(other *Leaf) bool {
	if l == nil || other == nil {
		return l == other
	}
	if l.Account != other.Account {
		return false
	}
	if l.Amount == nil || other.Amount == nil {
		return l.Amount == other.Amount
	}
	return l.Amount.Eq(other.Amount)
}

func (l *Leaf) String() string {
	amount := "<nil>"
	if l.Amount != nil {
		amount = l.Amount.Dec()
	}
	return fmt.Sprintf("%s:%s", l.Account.Hex(), amount)
}

func (l Leaf) MarshalJSON() ([]byte, error) {
	amount := "0"
	if l.Amount != nil {
		amount = l.Amount.Dec()
	}
	return json.Marshal(leafJSON{Account: l.Account.Hex(), Amount: amount})
}

func (l *Leaf) UnmarshalJSON(data []byte) error {
	var raw leafJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseLeaf(raw.Account, raw.Amount)
	if err != nil {
		return err
	}
	*l = *parsed
	return nil
}

// Hash32 is a 32-byte digest that encodes as 0x-prefixed hex in JSON.
type Hash32 [32]byte

func (h Hash32) Hex() string {
	return common.Hash(h).Hex()
}

func (h Hash32) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

func (h *Hash32) UnmarshalText(input []byte) error {
	var hash common.Hash
	if err := hash.UnmarshalText(input); err != nil {
		return err
	}
	*h = Hash32(hash)
	return nil
}

// ParseHash32 parses a 0x-prefixed 32-byte hex string.
func ParseHash32(s string) ([32]byte, error) {
	var h Hash32
	if err := h.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return [32]byte{}, fmt.Errorf("invalid 32-byte hex %q: %w", s, err)
	}
	return h, nil
}

// ToHash32s converts raw proof hashes to their JSON-friendly form.
func ToHash32s(in [][32]byte) []Hash32 {
	out := make([]Hash32, len(in))
	for i, h := range in {
		out[i] = h
	}
	return out
}

// FromHash32s converts JSON proof hashes back to raw arrays.
func FromHash32s(in []Hash32) [][32]byte {
	out := make([][32]byte, len(in))
	for i, h := range in {
		out[i] = h
	}
	return out
}
