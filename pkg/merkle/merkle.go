package merkle

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/types"
)

// BuildTree creates a binary merkle tree from airdrop leaves.
//
// Leaf hashes are sorted ascending before the tree is built (unless
// WithPreservedOrder is given), so any permutation of the same leaf list
// produces the same root. Parent nodes are keccak256 of the sorted pair.
// If a level has an odd number of nodes the last one is promoted unchanged,
// matching OpenZeppelin's MerkleProof and merkletreejs with sortPairs.
//
// Every account may appear at most once.
func BuildTree(leaves []*types.Leaf, opts ...BuildOption) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyLeaves
	}

	o := &buildOptions{hashPair: CombineSorted}
	for _, opt := range opts {
		opt(o)
	}

	seen := make(map[common.Address]struct{}, len(leaves))
	hashed := make([]hashedLeaf, len(leaves))
	for i, leaf := range leaves {
		if leaf == nil {
			return nil, fmt.Errorf("leaf %d: %w", i, ErrNilLeaf)
		}
		if _, dup := seen[leaf.Account]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAccount, leaf.Account.Hex())
		}
		seen[leaf.Account] = struct{}{}
		hashed[i] = hashedLeaf{leaf: leaf, hash: HashLeaf(leaf)}
	}

	if !o.preserveOrder {
		sort.Slice(hashed, func(i, j int) bool {
			return bytes.Compare(hashed[i].hash[:], hashed[j].hash[:]) < 0
		})
	}

	tree := &Tree{
		leaves:   make([]*types.Leaf, len(hashed)),
		index:    make(map[[32]byte]int, len(hashed)),
		hashPair: o.hashPair,
	}

	level := make([][32]byte, len(hashed))
	for i, hl := range hashed {
		tree.leaves[i] = hl.leaf
		tree.index[hl.hash] = i
		level[i] = hl.hash
	}

	tree.levels = append(tree.levels, level)
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, tree.hashPair(level[i], level[i+1]))
		}
		tree.levels = append(tree.levels, next)
		level = next
	}

	return tree, nil
}

type hashedLeaf struct {
	leaf *types.Leaf
	hash [32]byte
}

// Root returns the merkle root to anchor on-chain.
func (t *Tree) Root() [32]byte {
	return t.levels[len(t.levels)-1][0]
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	return len(t.leaves)
}

// Leaves returns the leaves in tree order.
func (t *Tree) Leaves() []*types.Leaf {
	out := make([]*types.Leaf, len(t.leaves))
	copy(out, t.leaves)
	return out
}

// LeafHashes returns the hashed leaves in tree order.
func (t *Tree) LeafHashes() [][32]byte {
	out := make([][32]byte, len(t.levels[0]))
	copy(out, t.levels[0])
	return out
}

// Contains reports whether the exact (account, amount) pair is in the tree.
func (t *Tree) Contains(leaf *types.Leaf) bool {
	if leaf == nil {
		return false
	}
	_, ok := t.index[HashLeaf(leaf)]
	return ok
}

// Proof returns the sibling path from the leaf to the root.
// A leaf the tree was not built from yields ErrLeafNotFound.
func (t *Tree) Proof(leaf *types.Leaf) ([][32]byte, error) {
	if leaf == nil {
		return nil, ErrNilLeaf
	}
	idx, ok := t.index[HashLeaf(leaf)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLeafNotFound, leaf)
	}
	return t.ProofAt(idx)
}

// ProofAt returns the proof for the leaf at the given tree position.
func (t *Tree) ProofAt(leafIndex int) ([][32]byte, error) {
	if leafIndex < 0 || leafIndex >= len(t.leaves) {
		return nil, fmt.Errorf("leaf index %d out of bounds (tree has %d leaves)", leafIndex, len(t.leaves))
	}

	proof := make([][32]byte, 0, len(t.levels)-1)
	index := leafIndex
	for level := 0; level < len(t.levels)-1; level++ {
		nodes := t.levels[level]

		sibling := index ^ 1
		// promoted nodes have no sibling on this level
		if sibling < len(nodes) {
			proof = append(proof, nodes[sibling])
		}
		index /= 2
	}

	return proof, nil
}

// VerifyProof walks the proof from leafHash using sorted-pair hashing and
// reports whether it reconstructs root.
func VerifyProof(root [32]byte, leafHash [32]byte, proof [][32]byte) bool {
	return VerifyProofWith(CombineSorted, root, leafHash, proof)
}

// VerifyProofWith is VerifyProof with a custom commutative pair hasher.
func VerifyProofWith(hashPair PairHasher, root [32]byte, leafHash [32]byte, proof [][32]byte) bool {
	computed := leafHash
	for _, sibling := range proof {
		computed = hashPair(computed, sibling)
	}
	return computed == root
}

// VerifyLeaf hashes leaf and verifies its proof against root.
func VerifyLeaf(root [32]byte, leaf *types.Leaf, proof [][32]byte) bool {
	if leaf == nil {
		return false
	}
	return VerifyProof(root, HashLeaf(leaf), proof)
}
