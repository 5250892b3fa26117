package merkle

import (
	"errors"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/types"
)

var (
	ErrEmptyLeaves      = errors.New("cannot build merkle tree from empty leaf list")
	ErrDuplicateAccount = errors.New("duplicate account in leaf list")
	ErrLeafNotFound     = errors.New("leaf is not part of the tree")
	ErrNilLeaf          = errors.New("nil leaf")
)

// Tree is an immutable binary merkle tree over airdrop leaves.
// Pairs are combined with CombineSorted, so proofs carry no positions.
type Tree struct {
	// leaves in tree order, parallel to levels[0]
	leaves []*types.Leaf

	// levels[0] = leaf hashes, levels[len-1] = [root]
	levels [][][32]byte

	// leaf hash -> position in levels[0]
	index map[[32]byte]int

	hashPair PairHasher
}

type buildOptions struct {
	preserveOrder bool
	hashPair      PairHasher
}

type BuildOption func(*buildOptions)

// WithPreservedOrder keeps leaves in the order given instead of sorting them
// by hash. Use it to reproduce roots built by tools that do not sort leaves.
func WithPreservedOrder() BuildOption {
	return func(o *buildOptions) {
		o.preserveOrder = true
	}
}

// WithPairHasher overrides the node combine function.
func WithPairHasher(h PairHasher) BuildOption {
	return func(o *buildOptions) {
		if h != nil {
			o.hashPair = h
		}
	}
}
