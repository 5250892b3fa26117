// Package storetest holds the behaviour every IStateStore backend must share.
package storetest

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory opens a fresh, empty store for one subtest.
type Factory func(t *testing.T) persistence.IStateStore

// Run exercises the shared IStateStore contract against a backend.
func Run(t *testing.T, newStore Factory) {
	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		defer func() { _ = s.Close() }()

		value, err := s.Get([]byte("missing"))
		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("CommitAndGet", func(t *testing.T) {
		s := newStore(t)
		defer func() { _ = s.Close() }()

		require.NoError(t, s.Commit([]persistence.Write{
			{Key: []byte("a"), Value: []byte("1")},
			{Key: []byte("b"), Value: []byte("2")},
		}))

		value, err := s.Get([]byte("a"))
		require.NoError(t, err)
		assert.Equal(t, []byte("1"), value)

		value, err = s.Get([]byte("b"))
		require.NoError(t, err)
		assert.Equal(t, []byte("2"), value)
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := newStore(t)
		defer func() { _ = s.Close() }()

		require.NoError(t, s.Commit([]persistence.Write{{Key: []byte("k"), Value: []byte("old")}}))
		require.NoError(t, s.Commit([]persistence.Write{{Key: []byte("k"), Value: []byte("new")}}))

		value, err := s.Get([]byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), value)
	})

	t.Run("NilValueDeletes", func(t *testing.T) {
		s := newStore(t)
		defer func() { _ = s.Close() }()

		require.NoError(t, s.Commit([]persistence.Write{{Key: []byte("k"), Value: []byte("v")}}))
		require.NoError(t, s.Commit([]persistence.Write{{Key: []byte("k")}}))

		value, err := s.Get([]byte("k"))
		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("LastWriteInBatchWins", func(t *testing.T) {
		s := newStore(t)
		defer func() { _ = s.Close() }()

		require.NoError(t, s.Commit([]persistence.Write{
			{Key: []byte("k"), Value: []byte("first")},
			{Key: []byte("k"), Value: []byte("second")},
		}))

		value, err := s.Get([]byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), value)
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		s := newStore(t)
		defer func() { _ = s.Close() }()

		require.NoError(t, s.Commit(nil))
	})

	t.Run("CompareAndCommitUnchanged", func(t *testing.T) {
		s := newStore(t)
		defer func() { _ = s.Close() }()

		require.NoError(t, s.Commit([]persistence.Write{{Key: []byte("bal"), Value: []byte("10")}}))
		require.NoError(t, s.CompareAndCommit(
			[]persistence.Read{{Key: []byte("bal"), Value: []byte("10")}, {Key: []byte("missing")}},
			[]persistence.Write{{Key: []byte("bal"), Value: []byte("7")}},
		))

		value, err := s.Get([]byte("bal"))
		require.NoError(t, err)
		assert.Equal(t, []byte("7"), value)
	})

	t.Run("CompareAndCommitConflict", func(t *testing.T) {
		s := newStore(t)
		defer func() { _ = s.Close() }()

		require.NoError(t, s.Commit([]persistence.Write{{Key: []byte("bal"), Value: []byte("10")}}))
		observed := []persistence.Read{{Key: []byte("bal"), Value: []byte("10")}}

		// another writer moves the balance after it was read
		require.NoError(t, s.Commit([]persistence.Write{{Key: []byte("bal"), Value: []byte("8")}}))

		err := s.CompareAndCommit(observed, []persistence.Write{
			{Key: []byte("bal"), Value: []byte("7")},
			{Key: []byte("other"), Value: []byte("x")},
		})
		require.ErrorIs(t, err, persistence.ErrConflict)

		value, err := s.Get([]byte("bal"))
		require.NoError(t, err)
		assert.Equal(t, []byte("8"), value)
		value, err = s.Get([]byte("other"))
		require.NoError(t, err)
		assert.Nil(t, value, "a conflicting batch must not be partially applied")
	})

	t.Run("CompareAndCommitKeyCreated", func(t *testing.T) {
		s := newStore(t)
		defer func() { _ = s.Close() }()

		observed := []persistence.Read{{Key: []byte("claimed")}}
		require.NoError(t, s.Commit([]persistence.Write{{Key: []byte("claimed"), Value: []byte{1}}}))

		err := s.CompareAndCommit(observed, []persistence.Write{{Key: []byte("claimed"), Value: []byte{1}}})
		require.ErrorIs(t, err, persistence.ErrConflict)
	})

	t.Run("IteratePrefixOrdered", func(t *testing.T) {
		s := newStore(t)
		defer func() { _ = s.Close() }()

		require.NoError(t, s.Commit([]persistence.Write{
			{Key: []byte("bal/c"), Value: []byte("3")},
			{Key: []byte("bal/a"), Value: []byte("1")},
			{Key: []byte("bal/b"), Value: []byte("2")},
			{Key: []byte("claimed/a"), Value: []byte("x")},
		}))

		var keys []string
		err := s.IteratePrefix([]byte("bal/"), func(key, value []byte) error {
			keys = append(keys, string(key))
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"bal/a", "bal/b", "bal/c"}, keys)
	})

	t.Run("IteratePrefixStopsOnError", func(t *testing.T) {
		s := newStore(t)
		defer func() { _ = s.Close() }()

		require.NoError(t, s.Commit([]persistence.Write{
			{Key: []byte("p/1"), Value: []byte("1")},
			{Key: []byte("p/2"), Value: []byte("2")},
		}))

		stop := errors.New("stop")
		visited := 0
		err := s.IteratePrefix([]byte("p/"), func(key, value []byte) error {
			visited++
			return stop
		})
		require.ErrorIs(t, err, stop)
		assert.Equal(t, 1, visited)
	})

	t.Run("ValuesAreCopied", func(t *testing.T) {
		s := newStore(t)
		defer func() { _ = s.Close() }()

		value := []byte("abc")
		require.NoError(t, s.Commit([]persistence.Write{{Key: []byte("k"), Value: value}}))
		value[0] = 'z'

		got, err := s.Get([]byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), got)
	})

	t.Run("ConcurrentCommits", func(t *testing.T) {
		s := newStore(t)
		defer func() { _ = s.Close() }()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				key := []byte(fmt.Sprintf("c/%02d", i))
				assert.NoError(t, s.Commit([]persistence.Write{{Key: key, Value: []byte{byte(i)}}}))
			}(i)
		}
		wg.Wait()

		count := 0
		require.NoError(t, s.IteratePrefix([]byte("c/"), func(key, value []byte) error {
			count++
			return nil
		}))
		assert.Equal(t, 20, count)
	})

	t.Run("HealthCheck", func(t *testing.T) {
		s := newStore(t)
		defer func() { _ = s.Close() }()

		require.NoError(t, s.HealthCheck())
	})

	t.Run("ClosedStore", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Close())
		require.NoError(t, s.Close(), "close must be idempotent")

		_, err := s.Get([]byte("k"))
		require.ErrorIs(t, err, persistence.ErrClosed)
		require.ErrorIs(t, s.Commit([]persistence.Write{{Key: []byte("k"), Value: []byte("v")}}), persistence.ErrClosed)
		require.ErrorIs(t, s.CompareAndCommit(nil, []persistence.Write{{Key: []byte("k"), Value: []byte("v")}}), persistence.ErrClosed)
		require.ErrorIs(t, s.IteratePrefix(nil, func(key, value []byte) error { return nil }), persistence.ErrClosed)
		require.ErrorIs(t, s.HealthCheck(), persistence.ErrClosed)
	})
}
