package main

import (
	"fmt"
	"log"
	"os"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/config"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "airdrop",
		Usage: "Merkle airdrop tooling",
		Description: `Builds Merkle whitelists for token airdrops and runs the claim contracts
against a local ledger.

This tool can:
- Build the Merkle root and per-account proofs from a leaves file
- Encode constructor arguments for block explorer verification
- Serve proofs over HTTP for claim front-ends
- Deploy and drive the token, claimer, vested claimer, distributor and
  converter against a persistent ledger`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to a YAML config file",
				EnvVars: []string{config.EnvAirdropConfigFile},
			},
			&cli.StringFlag{
				Name:    "persistence-type",
				Usage:   "State store backend: memory, badger or redis",
				EnvVars: []string{config.EnvAirdropPersistenceType},
			},
			&cli.StringFlag{
				Name:    "badger-path",
				Usage:   "Data directory for the badger store",
				EnvVars: []string{config.EnvAirdropBadgerPath},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis server address (host:port)",
				EnvVars: []string{config.EnvAirdropRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{config.EnvAirdropRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				EnvVars: []string{config.EnvAirdropRedisDB},
			},
			&cli.StringFlag{
				Name:    "redis-key-prefix",
				Usage:   "Prefix for every Redis key",
				EnvVars: []string{config.EnvAirdropRedisKeyPrefix},
			},
			&cli.StringFlag{
				Name:    "rpc-url",
				Aliases: []string{"rpc"},
				Usage:   "Ethereum RPC endpoint; when set the ledger clock follows the chain head",
				EnvVars: []string{config.EnvAirdropRPCURL},
			},
			&cli.Uint64Flag{
				Name:    "chain-id",
				Aliases: []string{"chain"},
				Usage:   fmt.Sprintf("Ethereum chain ID: %s", config.GetSupportedChainIDsString()),
				EnvVars: []string{config.EnvAirdropChainID},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvAirdropVerbose},
			},
		},
		Commands: []*cli.Command{
			treeCommand(),
			constructorArgsCommand(),
			serveCommand(),
			ledgerCommand(),
		},
	}
}
