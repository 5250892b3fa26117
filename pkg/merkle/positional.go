package merkle

import (
	"fmt"

	merkletree "github.com/wealdtech/go-merkletree/v2"
	"github.com/wealdtech/go-merkletree/v2/keccak256"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/types"
)

// PositionalTree is a keccak256 merkle tree whose proofs carry the leaf
// index, so siblings are combined left/right instead of in sorted order.
// Leaves are the packed (account, amount) bytes, hashed by the tree itself,
// so leaf hashes are identical to HashLeaf. The tree is padded to a power of
// two, which means its root differs from Tree.Root for the same leaves.
type PositionalTree struct {
	tree  *merkletree.MerkleTree
	count int
}

// PositionalProof is an index-encoded inclusion proof.
type PositionalProof struct {
	Index  uint64     `json:"index"`
	Hashes [][32]byte `json:"hashes"`
}

// NewPositionalTree builds a positional tree over the leaves in input order.
func NewPositionalTree(leaves []*types.Leaf) (*PositionalTree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyLeaves
	}

	data := make([][]byte, len(leaves))
	for i, leaf := range leaves {
		if leaf == nil {
			return nil, fmt.Errorf("leaf %d: %w", i, ErrNilLeaf)
		}
		data[i] = PackLeaf(leaf)
	}

	tree, err := merkletree.NewTree(
		merkletree.WithData(data),
		merkletree.WithHashType(keccak256.New()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build positional tree: %w", err)
	}

	return &PositionalTree{tree: tree, count: len(leaves)}, nil
}

// Root returns the tree root.
func (p *PositionalTree) Root() [32]byte {
	var root [32]byte
	copy(root[:], p.tree.Root())
	return root
}

// Len returns the number of real (unpadded) leaves.
func (p *PositionalTree) Len() int {
	return p.count
}

// Proof generates the index-encoded proof for leaf.
func (p *PositionalTree) Proof(leaf *types.Leaf) (*PositionalProof, error) {
	if leaf == nil {
		return nil, ErrNilLeaf
	}
	proof, err := p.tree.GenerateProof(PackLeaf(leaf), 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLeafNotFound, leaf, err)
	}

	hashes := make([][32]byte, len(proof.Hashes))
	for i, h := range proof.Hashes {
		copy(hashes[i][:], h)
	}
	return &PositionalProof{Index: proof.Index, Hashes: hashes}, nil
}

// VerifyPositionalProof checks an index-encoded proof for leaf against root.
func VerifyPositionalProof(root [32]byte, leaf *types.Leaf, proof *PositionalProof) (bool, error) {
	if leaf == nil || proof == nil {
		return false, nil
	}

	hashes := make([][]byte, len(proof.Hashes))
	for i := range proof.Hashes {
		hashes[i] = proof.Hashes[i][:]
	}

	return merkletree.VerifyProofUsing(
		PackLeaf(leaf),
		false,
		&merkletree.Proof{Hashes: hashes, Index: proof.Index},
		[][]byte{root[:]},
		keccak256.New(),
	)
}
