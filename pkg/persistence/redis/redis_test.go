package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/logger"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getTestRedisAddress returns the Redis address for testing.
// Uses REDIS_TEST_ADDRESS env var if set, otherwise defaults to localhost:6379.
func getTestRedisAddress() string {
	if addr := os.Getenv("REDIS_TEST_ADDRESS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// requireRedis skips the test if Redis is not available. Each call gets its
// own key prefix so tests sharing DB 15 never see each other's keys.
func requireRedis(t *testing.T) *RedisStateStore {
	t.Helper()

	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	cfg := &RedisConfig{
		Address:   getTestRedisAddress(),
		DB:        15, // Use DB 15 for tests to avoid conflicts
		KeyPrefix: fmt.Sprintf("test-%d:", time.Now().UnixNano()),
	}

	rs, err := NewRedisStateStore(cfg, testLogger)
	if err != nil {
		t.Skipf("Redis not available at %s: %v", cfg.Address, err)
		return nil
	}
	t.Cleanup(func() { cleanupRedis(cfg) })

	return rs
}

// cleanupRedis removes every key written under the test's prefix
func cleanupRedis(cfg *RedisConfig) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	rs, err := NewRedisStateStore(cfg, testLogger)
	if err != nil {
		return
	}
	defer func() { _ = rs.Close() }()

	ctx := context.Background()
	keys, err := rs.client.Keys(ctx, cfg.KeyPrefix+"*").Result()
	if err == nil && len(keys) > 0 {
		rs.client.Del(ctx, keys...)
	}
}

func TestRedisStateStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) persistence.IStateStore {
		return requireRedis(t)
	})
}

func TestRedisStateStore_NilConfig(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	_, err := NewRedisStateStore(nil, testLogger)
	require.Error(t, err)

	_, err = NewRedisStateStore(&RedisConfig{}, testLogger)
	require.Error(t, err)
}

func TestRedisStateStore_PrefixIsolation(t *testing.T) {
	rs := requireRedis(t)
	defer func() { _ = rs.Close() }()

	require.NoError(t, rs.Commit([]persistence.Write{
		{Key: []byte("bal/[a]"), Value: []byte("1")},
		{Key: []byte("bal/b"), Value: []byte("2")},
	}))

	var keys []string
	require.NoError(t, rs.IteratePrefix([]byte("bal/["), func(key, value []byte) error {
		keys = append(keys, string(key))
		return nil
	}))
	assert.Equal(t, []string{"bal/[a]"}, keys)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `a\*b\?c\[d\]e\\`, escapeGlob(`a*b?c[d]e\`))
	assert.Equal(t, "plain", escapeGlob("plain"))
}
