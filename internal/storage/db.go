// Package storage provides database abstractions.
package storage

// DB is the interface for key-value storage.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix.
	// The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

// Batcher is implemented by DB backends that can group writes into a single
// atomic commit. A backend that doesn't implement it falls back to
// individual writes (see PrefixDB.NewBatch).
type Batcher interface {
	NewBatch() Batch
}

// Batch accumulates Put/Delete operations for one atomic Commit. The chain
// store writes a block's rows — the block itself, its hash pointer, its
// transaction records, the per-address history entries and the new tip —
// through a single Batch, so a crash mid-write never leaves a block
// recorded without its transactions. Stake snapshots are written
// separately, and balances are not stored.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error
}
