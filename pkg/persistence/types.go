package persistence

import "errors"

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("persistence layer is closed")

// ErrConflict is returned by CompareAndCommit when a read precondition no
// longer holds because another writer changed the key.
var ErrConflict = errors.New("state changed since it was read")

// Write is a single entry of an atomic batch. A nil Value deletes Key.
type Write struct {
	Key   []byte
	Value []byte
}

// Read records the value a transaction observed for Key. A nil Value means
// the key was missing. Missing and empty values compare equal.
type Read struct {
	Key   []byte
	Value []byte
}

// IsDelete reports whether the write removes its key.
func (w Write) IsDelete() bool {
	return w.Value == nil
}

// Type names the available backends.
type Type string

const (
	TypeMemory Type = "memory"
	TypeBadger Type = "badger"
	TypeRedis  Type = "redis"
)

// SupportedTypes lists every backend accepted by configuration.
func SupportedTypes() []Type {
	return []Type{TypeMemory, TypeBadger, TypeRedis}
}
