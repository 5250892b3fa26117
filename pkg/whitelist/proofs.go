package whitelist

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

var ErrTokenTotalOverflow = errors.New("token total overflows uint256")

// Claim is one account's entry in a proofs file.
type Claim struct {
	Index  int            `json:"index"`
	Amount string         `json:"amount"`
	Proof  []types.Hash32 `json:"proof"`
}

// ProofsFile is everything a claim front-end needs: the root to check
// against and every account's amount and proof, keyed by checksummed address.
type ProofsFile struct {
	MerkleRoot types.Hash32     `json:"merkleRoot"`
	TokenTotal string           `json:"tokenTotal"`
	Claims     map[string]Claim `json:"claims"`
}

// BuildProofsFile generates a proof for every leaf of tree.
func BuildProofsFile(tree *merkle.Tree) (*ProofsFile, error) {
	total := new(uint256.Int)
	claims := make(map[string]Claim, tree.Len())

	for i, leaf := range tree.Leaves() {
		var overflow bool
		total, overflow = total.AddOverflow(total, leaf.Amount)
		if overflow {
			return nil, ErrTokenTotalOverflow
		}

		proof, err := tree.ProofAt(i)
		if err != nil {
			return nil, err
		}
		claims[leaf.Account.Hex()] = Claim{
			Index:  i,
			Amount: leaf.Amount.Dec(),
			Proof:  types.ToHash32s(proof),
		}
	}

	return &ProofsFile{
		MerkleRoot: tree.Root(),
		TokenTotal: total.Dec(),
		Claims:     claims,
	}, nil
}

// Lookup returns the leaf and proof for account.
func (p *ProofsFile) Lookup(account common.Address) (*types.Leaf, [][32]byte, bool) {
	claim, ok := p.Claims[account.Hex()]
	if !ok {
		return nil, nil, false
	}
	amount, err := types.ParseAmount(claim.Amount)
	if err != nil {
		return nil, nil, false
	}
	return &types.Leaf{Account: account, Amount: amount}, types.FromHash32s(claim.Proof), true
}

// Verify checks every proof against the root and that the amounts add up
// to TokenTotal.
func (p *ProofsFile) Verify() error {
	total := new(uint256.Int)
	for key, claim := range p.Claims {
		account, err := types.ParseAddress(key)
		if err != nil {
			return err
		}
		leaf, proof, ok := p.Lookup(account)
		if !ok {
			return fmt.Errorf("claim for %s has invalid amount %q", key, claim.Amount)
		}
		if !merkle.VerifyLeaf(p.MerkleRoot, leaf, proof) {
			return fmt.Errorf("proof for %s does not match root %s", key, p.MerkleRoot.Hex())
		}
		var overflow bool
		total, overflow = total.AddOverflow(total, leaf.Amount)
		if overflow {
			return ErrTokenTotalOverflow
		}
	}

	if total.Dec() != p.TokenTotal {
		return fmt.Errorf("token total mismatch: file says %s, claims add up to %s", p.TokenTotal, total.Dec())
	}
	return nil
}

func WriteProofsFile(path string, p *ProofsFile) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal proofs file")
	}
	return errors.Wrapf(os.WriteFile(path, append(data, '\n'), 0o644), "failed to write %s", path)
}

func LoadProofsFile(path string) (*ProofsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read proofs file %s", path)
	}
	p := &ProofsFile{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, errors.Wrapf(err, "failed to parse proofs file %s", path)
	}
	if p.Claims == nil {
		p.Claims = map[string]Claim{}
	}
	return p, nil
}
