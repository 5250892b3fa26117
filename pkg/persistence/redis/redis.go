package redis

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key prefixes for namespacing in Redis
const (
	keyPrefixState       = "airdrop:state:"
	keySchemaVersion     = "airdrop:metadata:schema_version"
	currentSchemaVersion = "v1"

	scanBatchSize = 512
)

// RedisStateStore is a state store backed by Redis.
// Provides durable storage that several ledger processes can share; writes
// go through CompareAndCommit so concurrent transactions never interleave.
type RedisStateStore struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string // Custom prefix for all keys
	mu        sync.RWMutex
	closed    bool
}

var _ persistence.IStateStore = (*RedisStateStore)(nil)

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is an optional custom prefix for all keys (for multi-tenant setups).
	// If set, this prefix is prepended to all keys, e.g., "mainnet:" would result in
	// keys like "mainnet:airdrop:state:...". If empty, keys use the default "airdrop:" prefix.
	KeyPrefix string
}

// NewRedisStateStore creates a new Redis-backed state store.
func NewRedisStateStore(cfg *RedisConfig, logger *zap.Logger) (*RedisStateStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}

	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rs := &RedisStateStore{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rs.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if cfg.KeyPrefix != "" {
		logger.Sugar().Infow("Redis state store initialized", "address", cfg.Address, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)
	} else {
		logger.Sugar().Infow("Redis state store initialized", "address", cfg.Address, "db", cfg.DB)
	}

	return rs, nil
}

// prefixKey adds the custom key prefix (if configured) to a key
func (r *RedisStateStore) prefixKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + key
}

func (r *RedisStateStore) stateKey(key []byte) string {
	return r.prefixKey(keyPrefixState + string(key))
}

// initSchema initializes or validates the schema version
func (r *RedisStateStore) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if err == redis.Nil {
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}

	return nil
}

// Get retrieves the value stored under key
func (r *RedisStateStore) Get(key []byte) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrClosed
	}

	data, err := r.client.Get(context.Background(), r.stateKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read key %x", key)
	}

	return data, nil
}

// Commit applies the batch inside MULTI/EXEC so no reader observes a partial batch
func (r *RedisStateStore) Commit(writes []persistence.Write) error {
	return r.CompareAndCommit(nil, writes)
}

// CompareAndCommit WATCHes every read key, re-checks its value, then applies
// the batch in MULTI/EXEC. EXEC aborts if another client touched a watched
// key in between, which surfaces as ErrConflict.
func (r *RedisStateStore) CompareAndCommit(reads []persistence.Read, writes []persistence.Write) error {
	if len(writes) == 0 {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	ctx := context.Background()
	watched := make([]string, len(reads))
	for i, rd := range reads {
		watched[i] = r.stateKey(rd.Key)
	}

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		for i, rd := range reads {
			current, err := tx.Get(ctx, watched[i]).Bytes()
			if err == redis.Nil {
				current = nil
			} else if err != nil {
				return errors.Wrapf(err, "failed to read key %x", rd.Key)
			}
			if !bytes.Equal(current, rd.Value) {
				return fmt.Errorf("%w: key %x", persistence.ErrConflict, rd.Key)
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, w := range writes {
				if w.IsDelete() {
					pipe.Del(ctx, r.stateKey(w.Key))
					continue
				}
				pipe.Set(ctx, r.stateKey(w.Key), w.Value, 0)
			}
			return nil
		})
		return err
	}, watched...)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: %v", persistence.ErrConflict, err)
	}
	if errors.Is(err, persistence.ErrConflict) {
		return err
	}
	if err != nil {
		return errors.Wrapf(err, "failed to commit batch of %d writes", len(writes))
	}

	return nil
}

// IteratePrefix scans every key under prefix and visits them in ascending order.
// Redis has no ordered keyspace, so matching keys are collected with SCAN first.
func (r *RedisStateStore) IteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	ctx := context.Background()
	base := r.stateKey(nil)
	pattern := escapeGlob(r.stateKey(prefix)) + "*"

	var keys []string
	var cursor uint64
	for {
		batch, next, err := r.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return errors.Wrapf(err, "failed to scan prefix %x", prefix)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		value, err := r.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue // deleted between SCAN and GET
		}
		if err != nil {
			return errors.Wrapf(err, "failed to read key %s", key)
		}
		if err := fn([]byte(strings.TrimPrefix(key, base)), value); err != nil {
			return err
		}
	}
	return nil
}

// escapeGlob quotes the characters SCAN MATCH treats specially.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// Close shuts down the state store
func (r *RedisStateStore) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil // Already closed, idempotent
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	r.logger.Sugar().Info("Redis state store closed")
	return nil
}

// HealthCheck verifies the state store is operational
func (r *RedisStateStore) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	_, err := r.client.Get(ctx, r.prefixKey(keySchemaVersion)).Result()
	if err == redis.Nil {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	if err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}

	return nil
}
