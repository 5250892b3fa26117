package badger

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/persistence"
	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Key prefixes for namespacing
const (
	keyPrefixState       = "state:"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"
)

// BadgerStateStore is a production-ready state store using Badger.
// Provides durable, disk-based storage with ACID guarantees.
type BadgerStateStore struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

var _ persistence.IStateStore = (*BadgerStateStore)(nil)

// NewBadgerStateStore creates a new Badger-backed state store.
// The database is opened at the specified path with SyncWrites enabled for durability.
// A background goroutine is started for garbage collection.
func NewBadgerStateStore(dataPath string, logger *zap.Logger) (*BadgerStateStore, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bs := &BadgerStateStore{
		db:     db,
		logger: logger,
	}

	if err := bs.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bs.gcCancel = cancel
	bs.gcWg.Add(1)
	go bs.runGC(ctx)

	logger.Sugar().Infow("Badger state store initialized", "path", absPath)

	return bs, nil
}

// initSchema initializes or validates the schema version
func (b *BadgerStateStore) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var existingVersion string
		err = item.Value(func(val []byte) error {
			existingVersion = string(val)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}

		if existingVersion != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
		}

		return nil
	})
}

// runGC runs periodic garbage collection in the background
func (b *BadgerStateStore) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(0.5)
			if err != nil && err != badgerdb.ErrNoRewrite {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func stateKey(key []byte) []byte {
	out := make([]byte, 0, len(keyPrefixState)+len(key))
	out = append(out, keyPrefixState...)
	return append(out, key...)
}

// Get retrieves the value stored under key
func (b *BadgerStateStore) Get(key []byte) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrClosed
	}

	var value []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(stateKey(key))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read key %x", key)
	}

	return value, nil
}

// Commit applies the batch in a single badger transaction
func (b *BadgerStateStore) Commit(writes []persistence.Write) error {
	return b.CompareAndCommit(nil, writes)
}

// CompareAndCommit checks reads inside the same badger transaction that
// applies writes. Badger's own conflict detection covers writers racing
// between the check and the commit.
func (b *BadgerStateStore) CompareAndCommit(reads []persistence.Read, writes []persistence.Write) error {
	if len(writes) == 0 {
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}

	err := b.db.Update(func(txn *badgerdb.Txn) error {
		for _, r := range reads {
			current, err := readValue(txn, stateKey(r.Key))
			if err != nil {
				return err
			}
			if !bytes.Equal(current, r.Value) {
				return fmt.Errorf("%w: key %x", persistence.ErrConflict, r.Key)
			}
		}
		for _, w := range writes {
			if w.IsDelete() {
				if err := txn.Delete(stateKey(w.Key)); err != nil {
					return err
				}
				continue
			}
			if err := txn.Set(stateKey(w.Key), w.Value); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, badgerdb.ErrConflict) {
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

func readValue(txn *badgerdb.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err == badgerdb.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// IteratePrefix walks every key under prefix in ascending order
func (b *BadgerStateStore) IteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}

	fullPrefix := stateKey(prefix)
	return b.db.View(func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(fullPrefix); it.ValidForPrefix(fullPrefix); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return errors.Wrapf(err, "failed to read value for key %x", item.Key())
			}
			key := item.KeyCopy(nil)[len(keyPrefixState):]
			if err := fn(key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close shuts down the state store
func (b *BadgerStateStore) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil // Already closed, idempotent
	}
	b.closed = true
	b.mu.Unlock()

	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	b.logger.Sugar().Info("Badger state store closed")
	return nil
}

// HealthCheck verifies the state store is operational
func (b *BadgerStateStore) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return fmt.Errorf("schema version not found - database may be corrupted")
		}
		return err
	})
}
