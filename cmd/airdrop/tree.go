package main

import (
	"fmt"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/types"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/whitelist"
	"github.com/urfave/cli/v2"
)

func treeCommand() *cli.Command {
	leavesFlag := &cli.StringFlag{
		Name:     "leaves",
		Usage:    "Leaves file (JSON array of {account, amount}, or .csv)",
		Required: true,
	}
	preserveOrderFlag := &cli.BoolFlag{
		Name:  "preserve-order",
		Usage: "Keep leaves in file order instead of sorting them by hash",
	}

	return &cli.Command{
		Name:  "tree",
		Usage: "Build Merkle roots and proofs",
		Subcommands: []*cli.Command{
			{
				Name:  "build",
				Usage: "Build the tree and print the root, optionally writing every proof",
				Flags: []cli.Flag{
					leavesFlag,
					preserveOrderFlag,
					&cli.StringFlag{
						Name:  "out",
						Usage: "Write the proofs file here",
					},
				},
				Action: treeBuildCommand,
			},
			{
				Name:  "proof",
				Usage: "Print the proof for one account",
				Flags: []cli.Flag{
					leavesFlag,
					preserveOrderFlag,
					&cli.StringFlag{Name: "account", Required: true},
					&cli.StringFlag{Name: "amount", Required: true},
					&cli.BoolFlag{
						Name:  "positional",
						Usage: "Print an index-encoded proof from a padded, unsorted tree",
					},
				},
				Action: treeProofCommand,
			},
			{
				Name:  "verify",
				Usage: "Verify a proof against a root",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "root", Required: true},
					&cli.StringFlag{Name: "account", Required: true},
					&cli.StringFlag{Name: "amount", Required: true},
					&cli.StringFlag{
						Name:  "proof",
						Usage: "Comma separated 0x-prefixed sibling hashes",
					},
				},
				Action: treeVerifyCommand,
			},
			{
				Name:  "verify-file",
				Usage: "Check every proof in a proofs file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "proofs", Required: true},
				},
				Action: treeVerifyFileCommand,
			},
		},
	}
}

func buildTreeFromFlags(c *cli.Context) (*merkle.Tree, error) {
	leaves, err := whitelist.LoadLeaves(c.String("leaves"))
	if err != nil {
		return nil, err
	}
	var opts []merkle.BuildOption
	if c.Bool("preserve-order") {
		opts = append(opts, merkle.WithPreservedOrder())
	}
	tree, err := merkle.BuildTree(leaves, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build tree: %w", err)
	}
	return tree, nil
}

func treeBuildCommand(c *cli.Context) error {
	tree, err := buildTreeFromFlags(c)
	if err != nil {
		return err
	}

	proofs, err := whitelist.BuildProofsFile(tree)
	if err != nil {
		return err
	}

	if out := c.String("out"); out != "" {
		if err := whitelist.WriteProofsFile(out, proofs); err != nil {
			return err
		}
	}

	return printJSON(c, map[string]any{
		"merkleRoot": proofs.MerkleRoot,
		"tokenTotal": proofs.TokenTotal,
		"count":      tree.Len(),
	})
}

func treeProofCommand(c *cli.Context) error {
	leaf, err := leafFromFlags(c)
	if err != nil {
		return err
	}

	if c.Bool("positional") {
		leaves, err := whitelist.LoadLeaves(c.String("leaves"))
		if err != nil {
			return err
		}
		tree, err := merkle.NewPositionalTree(leaves)
		if err != nil {
			return err
		}
		proof, err := tree.Proof(leaf)
		if err != nil {
			return err
		}
		return printJSON(c, map[string]any{
			"merkleRoot": types.Hash32(tree.Root()),
			"index":      proof.Index,
			"proof":      types.ToHash32s(proof.Hashes),
		})
	}

	tree, err := buildTreeFromFlags(c)
	if err != nil {
		return err
	}
	proof, err := tree.Proof(leaf)
	if err != nil {
		return err
	}
	return printJSON(c, map[string]any{
		"merkleRoot": types.Hash32(tree.Root()),
		"account":    leaf.Account.Hex(),
		"amount":     leaf.Amount.Dec(),
		"proof":      types.ToHash32s(proof),
	})
}

func treeVerifyCommand(c *cli.Context) error {
	root, err := hashFlag(c, "root")
	if err != nil {
		return err
	}
	leaf, err := leafFromFlags(c)
	if err != nil {
		return err
	}
	proof, err := parseProof(c.String("proof"))
	if err != nil {
		return err
	}

	if !merkle.VerifyLeaf(root, leaf, proof) {
		return fmt.Errorf("proof for %s does not match root %s", leaf, types.Hash32(root).Hex())
	}
	_, err = fmt.Fprintln(c.App.Writer, "valid")
	return err
}

func treeVerifyFileCommand(c *cli.Context) error {
	proofs, err := whitelist.LoadProofsFile(c.String("proofs"))
	if err != nil {
		return err
	}
	if err := proofs.Verify(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "valid: %d claims, root %s\n", len(proofs.Claims), proofs.MerkleRoot.Hex())
	return err
}

func leafFromFlags(c *cli.Context) (*types.Leaf, error) {
	account, err := addressFlag(c, "account")
	if err != nil {
		return nil, err
	}
	amount, err := amountFlag(c, "amount")
	if err != nil {
		return nil, err
	}
	return &types.Leaf{Account: account, Amount: amount}, nil
}
