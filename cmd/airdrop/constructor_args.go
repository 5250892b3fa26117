package main

import (
	"fmt"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/config"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/util"
	"github.com/urfave/cli/v2"
)

func constructorArgsCommand() *cli.Command {
	return &cli.Command{
		Name:  "constructor-args",
		Usage: "ABI-encode constructor arguments for source verification",
		Subcommands: []*cli.Command{
			{
				Name: "token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "owner", Usage: "Initial holder of the supply", Required: true},
				},
				Action: func(c *cli.Context) error {
					owner, err := addressFlag(c, "owner")
					if err != nil {
						return err
					}
					return printEncoded(c)(util.EncodeTokenConstructorArgs(owner))
				},
			},
			{
				Name: "claimer",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "token", Required: true},
					&cli.StringFlag{Name: "merkle-root", Required: true},
					&cli.Uint64Flag{Name: "claim-time-limit", Required: true},
				},
				Action: func(c *cli.Context) error {
					params := &config.ClaimerParams{
						Token:          c.String("token"),
						MerkleRoot:     c.String("merkle-root"),
						ClaimTimeLimit: c.Uint64("claim-time-limit"),
					}
					if err := params.Validate(); err != nil {
						return err
					}
					token, _ := addressFlag(c, "token")
					root, err := hashFlag(c, "merkle-root")
					if err != nil {
						return err
					}
					return printEncoded(c)(util.EncodeClaimerConstructorArgs(token, root, params.ClaimTimeLimit))
				},
			},
			{
				Name: "vested-claimer",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "token", Required: true},
					&cli.StringFlag{Name: "merkle-root", Required: true},
					&cli.Uint64Flag{Name: "release-time-limit", Required: true},
					&cli.Uint64Flag{Name: "start", Required: true},
					&cli.Uint64Flag{Name: "duration", Required: true},
					&cli.Uint64Flag{Name: "cliff", Required: true},
				},
				Action: func(c *cli.Context) error {
					params := vestedParamsFromFlags(c)
					if err := params.Validate(); err != nil {
						return err
					}
					token, _ := addressFlag(c, "token")
					root, err := hashFlag(c, "merkle-root")
					if err != nil {
						return err
					}
					return printEncoded(c)(util.EncodeVestedClaimerConstructorArgs(
						token, root, params.ReleaseTimeLimit, params.Start, params.Duration, params.Cliff,
					))
				},
			},
			{
				Name: "distributor",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "token", Required: true},
				},
				Action: func(c *cli.Context) error {
					token, err := addressFlag(c, "token")
					if err != nil {
						return err
					}
					return printEncoded(c)(util.EncodeDistributorConstructorArgs(token))
				},
			},
			{
				Name: "converter",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "old-token", Required: true},
					&cli.StringFlag{Name: "new-token", Required: true},
				},
				Action: func(c *cli.Context) error {
					oldToken, err := addressFlag(c, "old-token")
					if err != nil {
						return err
					}
					newToken, err := addressFlag(c, "new-token")
					if err != nil {
						return err
					}
					return printEncoded(c)(util.EncodeConverterConstructorArgs(oldToken, newToken))
				},
			},
		},
	}
}

func vestedParamsFromFlags(c *cli.Context) *config.VestedClaimerParams {
	return &config.VestedClaimerParams{
		Token:            c.String("token"),
		MerkleRoot:       c.String("merkle-root"),
		ReleaseTimeLimit: c.Uint64("release-time-limit"),
		Start:            c.Uint64("start"),
		Duration:         c.Uint64("duration"),
		Cliff:            c.Uint64("cliff"),
	}
}

func printEncoded(c *cli.Context) func([]byte, error) error {
	return func(encoded []byte, err error) error {
		if err != nil {
			return fmt.Errorf("failed to encode constructor args: %w", err)
		}
		_, err = fmt.Fprintln(c.App.Writer, util.ToHex(encoded))
		return err
	}
}
