package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/claimer"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/server"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/testutil"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/vestedClaimer"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/whitelist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"airdrop"}, args...))
	return strings.TrimSpace(out.String()), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, out)
	return out
}

func writeLeaves(t *testing.T, dir string, amounts ...uint64) string {
	t.Helper()
	path := filepath.Join(dir, "leaves.json")
	require.NoError(t, whitelist.WriteLeaves(path, testutil.CreateTestLeaves(amounts...)))
	return path
}

func TestTreeCommands(t *testing.T) {
	dir := t.TempDir()
	leavesPath := writeLeaves(t, dir, 100, 200, 300)
	proofsPath := filepath.Join(dir, "proofs.json")

	out := mustRun(t, "tree", "build", "--leaves", leavesPath, "--out", proofsPath)
	var built struct {
		MerkleRoot string `json:"merkleRoot"`
		TokenTotal string `json:"tokenTotal"`
		Count      int    `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &built))
	assert.Equal(t, "600", built.TokenTotal)
	assert.Equal(t, 3, built.Count)

	pf, err := whitelist.LoadProofsFile(proofsPath)
	require.NoError(t, err)
	assert.Equal(t, built.MerkleRoot, pf.MerkleRoot.Hex())

	account := testutil.TestAddress(2).Hex()
	claim := pf.Claims[account]
	proof := make([]string, len(claim.Proof))
	for i, h := range claim.Proof {
		proof[i] = h.Hex()
	}

	t.Run("proof", func(t *testing.T) {
		out := mustRun(t, "tree", "proof", "--leaves", leavesPath, "--account", account, "--amount", "200")
		var resp struct {
			Proof []string `json:"proof"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, proof, resp.Proof)

		_, err := run(t, "tree", "proof", "--leaves", leavesPath, "--account", account, "--amount", "201")
		assert.Error(t, err)
	})

	t.Run("positional proof", func(t *testing.T) {
		out := mustRun(t, "tree", "proof", "--positional", "--leaves", leavesPath, "--account", account, "--amount", "200")
		var resp struct {
			Index uint64 `json:"index"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, uint64(1), resp.Index)
	})

	t.Run("verify", func(t *testing.T) {
		out := mustRun(t, "tree", "verify", "--root", built.MerkleRoot, "--account", account, "--amount", "200", "--proof", strings.Join(proof, ","))
		assert.Equal(t, "valid", out)

		_, err := run(t, "tree", "verify", "--root", built.MerkleRoot, "--account", account, "--amount", "300", "--proof", strings.Join(proof, ","))
		assert.Error(t, err)
	})

	t.Run("verify file", func(t *testing.T) {
		out := mustRun(t, "tree", "verify-file", "--proofs", proofsPath)
		assert.Contains(t, out, "valid: 3 claims")
	})

	t.Run("duplicate accounts are rejected", func(t *testing.T) {
		dup := filepath.Join(dir, "dup.csv")
		a := testutil.TestAddress(1).Hex()
		require.NoError(t, os.WriteFile(dup, []byte(fmt.Sprintf("%s,1\n%s,2\n", a, a)), 0o644))
		_, err := run(t, "tree", "build", "--leaves", dup)
		assert.Error(t, err)
	})
}

func TestConstructorArgsCommand(t *testing.T) {
	token := testutil.TestAddress(7).Hex()
	root := "0x" + strings.Repeat("11", 32)

	out := mustRun(t, "constructor-args", "claimer", "--token", token, "--merkle-root", root, "--claim-time-limit", "1800000000")
	assert.Len(t, out, 3*64)
	assert.Equal(t, strings.Repeat("11", 32), out[64:128])

	out = mustRun(t, "constructor-args", "vested-claimer", "--token", token, "--merkle-root", root,
		"--release-time-limit", "2000", "--start", "1000", "--duration", "500", "--cliff", "1200")
	assert.Len(t, out, 6*64)

	out = mustRun(t, "constructor-args", "converter", "--old-token", token, "--new-token", testutil.TestAddress(8).Hex())
	assert.Len(t, out, 2*64)

	_, err := run(t, "constructor-args", "vested-claimer", "--token", token, "--merkle-root", root,
		"--release-time-limit", "1499", "--start", "1000", "--duration", "500", "--cliff", "1200")
	assert.Error(t, err)
}

type deployed struct {
	Kind    string `json:"kind"`
	Address string `json:"address"`
}

func TestLedgerCommands(t *testing.T) {
	dir := t.TempDir()
	leavesPath := writeLeaves(t, dir, 100, 200, 300)
	proofsPath := filepath.Join(dir, "proofs.json")
	mustRun(t, "tree", "build", "--leaves", leavesPath, "--out", proofsPath)
	pf, err := whitelist.LoadProofsFile(proofsPath)
	require.NoError(t, err)

	store := []string{"--persistence-type", "badger", "--badger-path", filepath.Join(dir, "state")}
	deployer := testutil.TestAddress(0).Hex()
	alice := testutil.TestAddress(1).Hex()

	ledgerAt := func(sender string, at uint64, args ...string) []string {
		base := append([]string{}, store...)
		base = append(base, "ledger", "--sender", sender, "--at", fmt.Sprint(at))
		return append(base, args...)
	}
	deploy := func(args ...string) deployed {
		var d deployed
		require.NoError(t, json.Unmarshal([]byte(mustRun(t, ledgerAt(deployer, 1000, args...)...)), &d))
		return d
	}

	tok := deploy("deploy-token", "--supply", "1000000")
	assert.Equal(t, "erc20", tok.Kind)

	cl := deploy("deploy-claimer", "--token", tok.Address, "--merkle-root", pf.MerkleRoot.Hex(), "--claim-time-limit", "2000")
	assert.Equal(t, claimer.Kind, cl.Kind)

	mustRun(t, ledgerAt(deployer, 1000, "transfer", "--token", tok.Address, "--to", cl.Address, "--amount", "600")...)

	mustRun(t, ledgerAt(alice, 1500, "claim", "--contract", cl.Address, "--proofs", proofsPath)...)
	balance := mustRun(t, append(append([]string{}, store...), "ledger", "balance", "--token", tok.Address, "--account", alice)...)
	assert.Equal(t, "100", balance)

	_, err = run(t, ledgerAt(alice, 1500, "claim", "--contract", cl.Address, "--proofs", proofsPath)...)
	assert.ErrorIs(t, err, claimer.ErrAlreadyClaimed)

	_, err = run(t, ledgerAt(deployer, 1500, "recover", "--contract", cl.Address)...)
	assert.ErrorIs(t, err, claimer.ErrTooEarly)

	mustRun(t, ledgerAt(deployer, 2001, "recover", "--contract", cl.Address)...)
	balance = mustRun(t, append(append([]string{}, store...), "ledger", "balance", "--token", tok.Address, "--account", cl.Address)...)
	assert.Equal(t, "0", balance)

	t.Run("vested release through the proof server", func(t *testing.T) {
		srv, err := server.NewServer(&server.Config{Proofs: pf, RateLimitPerSec: 100, RateLimitBurst: 100}, nil)
		require.NoError(t, err)
		ts := httptest.NewServer(srv.GetHandler())
		defer ts.Close()
		defer func() { _ = srv.Shutdown(context.Background()) }()

		// vesting must start after the deploy time
		var vc deployed
		require.NoError(t, json.Unmarshal([]byte(mustRun(t, ledgerAt(deployer, 999, "deploy-vested-claimer",
			"--token", tok.Address, "--merkle-root", pf.MerkleRoot.Hex(),
			"--release-time-limit", "3000", "--start", "1000", "--duration", "1000", "--cliff", "1000")...)), &vc))
		assert.Equal(t, vestedClaimer.Kind, vc.Kind)
		mustRun(t, ledgerAt(deployer, 1000, "transfer", "--token", tok.Address, "--to", vc.Address, "--amount", "600")...)

		mustRun(t, ledgerAt(alice, 1500, "release", "--contract", vc.Address, "--proof-server", ts.URL)...)
		balance := mustRun(t, append(append([]string{}, store...), "ledger", "balance", "--token", tok.Address, "--account", alice)...)
		assert.Equal(t, "150", balance)

		out := mustRun(t, ledgerAt(alice, 1750, "releasable", "--contract", vc.Address, "--account", alice, "--amount", "100")...)
		var resp map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "50", resp["released"])
		assert.Equal(t, "25", resp["releasable"])
	})

	t.Run("distribute", func(t *testing.T) {
		d := deploy("deploy-distributor", "--token", tok.Address)
		mustRun(t, ledgerAt(deployer, 1000, "approve", "--token", tok.Address, "--spender", d.Address, "--amount", "max")...)
		mustRun(t, ledgerAt(deployer, 1000, "distribute", "--contract", d.Address, "--recipients", leavesPath)...)

		balance := mustRun(t, append(append([]string{}, store...), "ledger", "balance", "--token", tok.Address, "--account", testutil.TestAddress(3).Hex())...)
		assert.Equal(t, "300", balance)
	})

	t.Run("sender is required", func(t *testing.T) {
		_, err := run(t, append(append([]string{}, store...), "ledger", "deploy-distributor", "--token", tok.Address)...)
		assert.ErrorContains(t, err, "--sender")
	})
}
