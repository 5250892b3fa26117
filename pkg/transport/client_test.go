package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/server"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/testutil"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/whitelist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryConfig{
	MaxAttempts:     3,
	InitialBackoff:  time.Millisecond,
	MaxBackoff:      5 * time.Millisecond,
	BackoffMultiple: 2.0,
}

func newProofServer(t *testing.T) (*httptest.Server, *merkle.Tree) {
	t.Helper()
	tree := testutil.CreateTestTree(t, testutil.CreateTestLeaves(100, 200, 300))
	pf, err := whitelist.BuildProofsFile(tree)
	require.NoError(t, err)

	s, err := server.NewServer(&server.Config{Proofs: pf, RateLimitPerSec: 1000, RateLimitBurst: 1000}, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(s.GetHandler())
	t.Cleanup(func() {
		ts.Close()
		_ = s.Shutdown(context.Background())
	})
	return ts, tree
}

func TestClient_GetRootAndProof(t *testing.T) {
	ts, tree := newProofServer(t)
	c := NewClient(ts.URL+"/", nil).WithRetryConfig(fastRetry)

	root, err := c.GetRoot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tree.Root(), [32]byte(root.MerkleRoot))
	assert.Equal(t, 3, root.Count)

	leaf, proof, err := c.GetProof(context.Background(), testutil.TestAddress(3))
	require.NoError(t, err)
	assert.Equal(t, uint64(300), leaf.Amount.Uint64())
	assert.True(t, merkle.VerifyLeaf(tree.Root(), leaf, proof))
}

func TestClient_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "Account not found", http.StatusNotFound)
	}))
	defer ts.Close()

	_, _, err := NewClient(ts.URL, nil).WithRetryConfig(fastRetry).GetProof(context.Background(), testutil.TestAddress(9))
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"merkleRoot":"0x0000000000000000000000000000000000000000000000000000000000000001","tokenTotal":"1","count":1}`))
	}))
	defer ts.Close()

	root, err := NewClient(ts.URL, nil).WithRetryConfig(fastRetry).GetRoot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, root.Count)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL, nil).WithRetryConfig(fastRetry).GetRoot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), calls.Load())
}
