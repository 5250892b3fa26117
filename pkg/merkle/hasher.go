package merkle

import (
	"bytes"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/types"
)

// PackedLeafLength is len(abi.encodePacked(address, uint256)).
const PackedLeafLength = 20 + 32

// PairHasher combines two child hashes into their parent.
// Implementations used with proof-position-free trees must be commutative.
type PairHasher func(a, b [32]byte) [32]byte

// PackLeaf returns abi.encodePacked(account, amount): the 20 address bytes
// followed by the amount as a 32-byte big-endian word.
func PackLeaf(leaf *types.Leaf) []byte {
	data := make([]byte, 0, PackedLeafLength)
	data = append(data, leaf.Account.Bytes()...)
	var amount [32]byte
	if leaf.Amount != nil {
		amount = leaf.Amount.Bytes32()
	}
	data = append(data, amount[:]...)
	return data
}

// HashLeaf computes keccak256(abi.encodePacked(account, amount)).
// This must stay bit-for-bit identical to the on-chain leaf derivation.
func HashLeaf(leaf *types.Leaf) [32]byte {
	return [32]byte(crypto.Keccak256Hash(PackLeaf(leaf)))
}

// CombineSorted hashes the two children in ascending byte order, so the
// parent does not depend on which side each child sits on.
func CombineSorted(a, b [32]byte) [32]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}

	h := sha3.NewLegacyKeccak256()
	h.Write(a[:])
	h.Write(b[:])

	var out [32]byte
	h.Sum(out[:0])
	return out
}
