package testutil

import (
	"fmt"
	"testing"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

// TestAddress returns a deterministic, non-zero address for index n.
func TestAddress(n int) common.Address {
	return common.HexToAddress(fmt.Sprintf("0x%040x", 0x1000+n))
}

// CreateTestLeaves creates one leaf per amount, for TestAddress(1), TestAddress(2), ...
func CreateTestLeaves(amounts ...uint64) []*types.Leaf {
	leaves := make([]*types.Leaf, len(amounts))
	for i, amount := range amounts {
		leaves[i] = types.NewLeaf(TestAddress(i+1), amount)
	}
	return leaves
}

// CreateTestTree builds a sorted-pair tree over leaves, failing the test on error.
func CreateTestTree(t *testing.T, leaves []*types.Leaf) *merkle.Tree {
	t.Helper()
	tree, err := merkle.BuildTree(leaves)
	if err != nil {
		t.Fatalf("Failed to build tree: %v", err)
	}
	return tree
}

// RequireProof returns the proof for leaf, failing the test if it is absent.
func RequireProof(t *testing.T, tree *merkle.Tree, leaf *types.Leaf) [][32]byte {
	t.Helper()
	proof, err := tree.Proof(leaf)
	if err != nil {
		t.Fatalf("Failed to get proof for %s: %v", leaf, err)
	}
	return proof
}
