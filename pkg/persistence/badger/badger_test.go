package badger

import (
	"testing"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/logger"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerStateStore_Conformance(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	storetest.Run(t, func(t *testing.T) persistence.IStateStore {
		bs, err := NewBadgerStateStore(t.TempDir(), testLogger)
		require.NoError(t, err)
		return bs
	})
}

func TestBadgerStateStore_SurvivesRestart(t *testing.T) {
	tmpDir := t.TempDir()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	bs, err := NewBadgerStateStore(tmpDir, testLogger)
	require.NoError(t, err)

	require.NoError(t, bs.Commit([]persistence.Write{
		{Key: []byte("claimed/0xabc"), Value: []byte{1}},
	}))
	require.NoError(t, bs.Close())

	reopened, err := NewBadgerStateStore(tmpDir, testLogger)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	value, err := reopened.Get([]byte("claimed/0xabc"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, value)
}

func TestBadgerStateStore_SchemaKeyHidden(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	bs, err := NewBadgerStateStore(t.TempDir(), testLogger)
	require.NoError(t, err)
	defer func() { _ = bs.Close() }()

	count := 0
	require.NoError(t, bs.IteratePrefix(nil, func(key, value []byte) error {
		count++
		return nil
	}))
	assert.Zero(t, count, "metadata keys must not appear in state iteration")
}
