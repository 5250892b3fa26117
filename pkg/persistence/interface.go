package persistence

// IStateStore is the key-value backend behind the ledger's world state:
// token balances and allowances, per-account claim and release records, and
// contract configuration.
// All implementations must be thread-safe.
//
// The interface supports:
// - Point reads (Get)
// - Atomic batch writes (Commit), so a transaction is applied all-or-nothing
// - Optimistic conflict checks on those batches (CompareAndCommit)
// - Ordered prefix scans (IteratePrefix)
// - Lifecycle management (close, health check)
type IStateStore interface {
	// Get retrieves the value stored under key.
	// Returns nil if the key doesn't exist, error only on storage failure.
	Get(key []byte) ([]byte, error)

	// Commit applies every write in the batch atomically: either all of them
	// become visible or none do. A write with a nil Value deletes the key.
	// An empty batch is a no-op.
	Commit(writes []Write) error

	// CompareAndCommit is Commit guarded by reads: the batch is applied only
	// if every key in reads still holds the recorded value, checked
	// atomically with the writes. Otherwise nothing is written and the
	// error wraps ErrConflict. Stores shared by several processes rely on
	// this to serialize transactions.
	CompareAndCommit(reads []Read, writes []Write) error

	// IteratePrefix calls fn for every key starting with prefix, in ascending
	// key order. Iteration stops at the first error returned by fn.
	IteratePrefix(prefix []byte, fn func(key, value []byte) error) error

	// Close cleanly shuts down the store.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations should return errors.
	Close() error

	// HealthCheck verifies the store is operational.
	// Returns nil if healthy, error describing the problem if not.
	HealthCheck() error
}
