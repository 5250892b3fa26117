package ledger

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type pendingWrite struct {
	value   []byte
	deleted bool
}

// Tx is a write-buffering view of ledger state. Reads see the transaction's
// own writes first; nothing reaches the store until the ledger commits.
// Every value fetched from the store is remembered, so repeated reads agree
// and the commit can be rejected if any of them went stale.
type Tx struct {
	ctx       context.Context
	sender    common.Address
	timestamp uint64
	store     persistence.IStateStore

	writes    map[string]pendingWrite
	order     []string
	reads     map[string][]byte
	readOrder []string
	events    []Event
}

func newTx(ctx context.Context, store persistence.IStateStore, sender common.Address, timestamp uint64) *Tx {
	return &Tx{
		ctx:       ctx,
		sender:    sender,
		timestamp: timestamp,
		store:     store,
		writes:    make(map[string]pendingWrite),
		reads:     make(map[string][]byte),
	}
}

// Sender is the account that submitted the transaction (msg.sender).
func (tx *Tx) Sender() common.Address { return tx.sender }

// Timestamp is the transaction's block time in unix seconds.
func (tx *Tx) Timestamp() uint64 { return tx.timestamp }

func (tx *Tx) Context() context.Context { return tx.ctx }

func (tx *Tx) Get(key []byte) ([]byte, error) {
	if w, ok := tx.writes[string(key)]; ok {
		if w.deleted {
			return nil, nil
		}
		return persistence.CopyBytes(w.value), nil
	}

	k := string(key)
	if v, ok := tx.reads[k]; ok {
		return persistence.CopyBytes(v), nil
	}
	v, err := tx.store.Get(key)
	if err != nil {
		return nil, err
	}
	tx.reads[k] = persistence.CopyBytes(v)
	tx.readOrder = append(tx.readOrder, k)
	return v, nil
}

func (tx *Tx) Set(key, value []byte) {
	if value == nil {
		value = []byte{}
	}
	tx.put(key, pendingWrite{value: persistence.CopyBytes(value)})
}

func (tx *Tx) Delete(key []byte) {
	tx.put(key, pendingWrite{deleted: true})
}

func (tx *Tx) put(key []byte, w pendingWrite) {
	k := string(key)
	if _, ok := tx.writes[k]; !ok {
		tx.order = append(tx.order, k)
	}
	tx.writes[k] = w
}

// GetUint256 reads an amount; missing keys read as zero.
func (tx *Tx) GetUint256(key []byte) (*uint256.Int, error) {
	data, err := tx.Get(key)
	if err != nil {
		return nil, err
	}
	v, err := persistence.UnmarshalUint256(data)
	if err != nil {
		return nil, fmt.Errorf("key %s: %w", key, err)
	}
	return v, nil
}

// SetUint256 stores an amount. Zero deletes the key.
func (tx *Tx) SetUint256(key []byte, v *uint256.Int) {
	if v == nil || v.IsZero() {
		tx.Delete(key)
		return
	}
	tx.Set(key, persistence.MarshalUint256(v))
}

func (tx *Tx) GetUint64(key []byte) (uint64, error) {
	data, err := tx.Get(key)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("key %s: invalid uint64 encoding of %d bytes", key, len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

func (tx *Tx) SetUint64(key []byte, v uint64) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	tx.Set(key, buf)
}

func (tx *Tx) GetBool(key []byte) (bool, error) {
	data, err := tx.Get(key)
	if err != nil {
		return false, err
	}
	return len(data) == 1 && data[0] == 1, nil
}

// SetBool stores a flag. False deletes the key.
func (tx *Tx) SetBool(key []byte, v bool) {
	if !v {
		tx.Delete(key)
		return
	}
	tx.Set(key, []byte{1})
}

func (tx *Tx) GetAddress(key []byte) (common.Address, error) {
	data, err := tx.Get(key)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(data), nil
}

func (tx *Tx) SetAddress(key []byte, addr common.Address) {
	tx.Set(key, addr.Bytes())
}

// GetJSON decodes the value under key into v. Returns false if the key is missing.
func (tx *Tx) GetJSON(key []byte, v any) (bool, error) {
	data, err := tx.Get(key)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := persistence.UnmarshalJSON(data, v); err != nil {
		return false, err
	}
	return true, nil
}

func (tx *Tx) SetJSON(key []byte, v any) error {
	data, err := persistence.MarshalJSON(v)
	if err != nil {
		return err
	}
	tx.Set(key, data)
	return nil
}

// Emit appends an event to the transaction's receipt.
func (tx *Tx) Emit(contract common.Address, name string, data any) {
	tx.events = append(tx.events, Event{Contract: contract, Name: name, Data: data})
}

// readSet lists every store value the transaction based its writes on.
func (tx *Tx) readSet() []persistence.Read {
	out := make([]persistence.Read, 0, len(tx.readOrder))
	for _, k := range tx.readOrder {
		out = append(out, persistence.Read{Key: []byte(k), Value: tx.reads[k]})
	}
	return out
}

func (tx *Tx) batch() []persistence.Write {
	out := make([]persistence.Write, 0, len(tx.order))
	for _, k := range tx.order {
		w := tx.writes[k]
		if w.deleted {
			out = append(out, persistence.Write{Key: []byte(k)})
			continue
		}
		out = append(out, persistence.Write{Key: []byte(k), Value: w.value})
	}
	return out
}
