// Package whitelist reads allocation lists and writes the root and proofs
// derived from them.
package whitelist

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/types"
	"github.com/pkg/errors"
)

type rawLeaf struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// LoadLeaves reads a leaves file. Files ending in .csv are read as
// "address,amount" rows; everything else as a JSON array of
// {"account": "0x..", "amount": "<decimal>"} objects.
func LoadLeaves(path string) ([]*types.Leaf, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open leaves file %s", path)
	}
	defer func() { _ = f.Close() }()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		leaves, err := ParseLeavesCSV(f)
		return leaves, errors.Wrapf(err, "failed to parse %s", path)
	}
	leaves, err := ParseLeaves(f)
	return leaves, errors.Wrapf(err, "failed to parse %s", path)
}

// ParseLeaves decodes a JSON leaves array. Accounts may be checksummed or
// lowercase hex; amounts are base-10 integers.
func ParseLeaves(r io.Reader) ([]*types.Leaf, error) {
	var raw []rawLeaf
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid leaves JSON: %w", err)
	}

	leaves := make([]*types.Leaf, len(raw))
	for i, rl := range raw {
		leaf, err := types.ParseLeaf(rl.Account, rl.Amount)
		if err != nil {
			return nil, fmt.Errorf("leaf %d: %w", i, err)
		}
		leaves[i] = leaf
	}
	return leaves, nil
}

// ParseLeavesCSV reads "address,amount" rows. Blank lines, lines starting
// with '#' and a leading "account,amount" header are skipped.
func ParseLeavesCSV(r io.Reader) ([]*types.Leaf, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	var leaves []*types.Leaf
	for row := 1; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("row %d: expected address,amount", row)
		}
		account, amount := strings.TrimSpace(record[0]), strings.TrimSpace(record[1])
		if row == 1 && strings.EqualFold(account, "account") {
			continue
		}
		leaf, err := types.ParseLeaf(account, amount)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		leaves = append(leaves, leaf)
	}
	return leaves, nil
}

// WriteLeaves writes leaves as an indented JSON array.
func WriteLeaves(path string, leaves []*types.Leaf) error {
	data, err := json.MarshalIndent(leaves, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal leaves")
	}
	return errors.Wrapf(os.WriteFile(path, append(data, '\n'), 0o644), "failed to write %s", path)
}
