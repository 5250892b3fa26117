package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/clock"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/config"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/ledger"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/logger"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence/factory"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func newLogger(c *cli.Context) (*zap.Logger, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return l, nil
}

// loadConfig layers explicitly set flags and env vars over the YAML file
// (if any) over the defaults.
func loadConfig(c *cli.Context) (*config.AirdropConfig, error) {
	cfg := config.NewDefaultAirdropConfig()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadAirdropConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("persistence-type") {
		cfg.Persistence.Type = persistence.Type(c.String("persistence-type"))
	}
	if c.IsSet("badger-path") {
		cfg.Persistence.BadgerPath = c.String("badger-path")
	}
	if c.IsSet("redis-address") {
		cfg.Persistence.Redis.Address = c.String("redis-address")
	}
	if c.IsSet("redis-password") {
		cfg.Persistence.Redis.Password = c.String("redis-password")
	}
	if c.IsSet("redis-db") {
		cfg.Persistence.Redis.DB = c.Int("redis-db")
	}
	if c.IsSet("redis-key-prefix") {
		cfg.Persistence.Redis.KeyPrefix = c.String("redis-key-prefix")
	}
	if c.IsSet("rpc-url") {
		cfg.RpcUrl = c.String("rpc-url")
	}
	if c.IsSet("chain-id") {
		cfg.ChainID = config.ChainId(c.Uint64("chain-id"))
	}
	if c.IsSet("verbose") {
		cfg.Debug = c.Bool("verbose")
		cfg.Verbose = c.Bool("verbose")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openLedger opens the configured state store and wraps it in a ledger. The
// returned func closes the store.
func openLedger(c *cli.Context, l *zap.Logger) (*ledger.Ledger, func(), error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}

	store, err := factory.NewStateStore(cfg.StoreConfig(), l)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open state store: %w", err)
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			l.Sugar().Warnw("Failed to close state store", "error", err)
		}
	}

	var clk clock.Clock = clock.SystemClock{}
	switch {
	case c.IsSet("at"):
		clk = clock.NewManualClock(c.Uint64("at"))
	case cfg.RpcUrl != "":
		rpcClock, err := clock.DialRPCClock(c.Context, cfg.RpcUrl, cfg.ClockPollInterval, l)
		if err != nil {
			closeStore()
			return nil, nil, err
		}
		clk = rpcClock
	}

	led, err := ledger.NewLedger(&ledger.LedgerConfig{Store: store, Clock: clk}, l)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	l.Sugar().Debugw("Opened ledger", "persistence", cfg.Persistence.Type, "chain", cfg.ChainName)
	return led, closeStore, nil
}

func printJSON(c *cli.Context, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}

func addressFlag(c *cli.Context, name string) (common.Address, error) {
	addr, err := types.ParseAddress(c.String(name))
	if err != nil {
		return common.Address{}, fmt.Errorf("--%s: %w", name, err)
	}
	return addr, nil
}

func amountFlag(c *cli.Context, name string) (*uint256.Int, error) {
	amt, err := types.ParseAmount(c.String(name))
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return amt, nil
}

func hashFlag(c *cli.Context, name string) ([32]byte, error) {
	h, err := types.ParseHash32(c.String(name))
	if err != nil {
		return [32]byte{}, fmt.Errorf("--%s: %w", name, err)
	}
	return h, nil
}

// parseProof splits a comma separated list of 32-byte hex hashes. An empty
// string is an empty proof.
func parseProof(s string) ([][32]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	proof := make([][32]byte, len(parts))
	for i, p := range parts {
		h, err := types.ParseHash32(p)
		if err != nil {
			return nil, fmt.Errorf("proof element %d: %w", i, err)
		}
		proof[i] = h
	}
	return proof, nil
}
