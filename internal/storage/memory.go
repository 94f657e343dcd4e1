package storage

import (
	"errors"
	"sort"
	"strings"
)

// MemoryDB implements DB using an in-memory map.
type MemoryDB struct {
	data map[string][]byte
}

// NewMemory creates a new in-memory database.
func NewMemory() *MemoryDB {
	return &MemoryDB{
		data: make(map[string][]byte),
	}
}

// Get retrieves a value by key.
func (m *MemoryDB) Get(key []byte) ([]byte, error) {
	v, ok := m.data[string(key)]
	if !ok {
		return nil, errors.New("key not found")
	}
	return v, nil
}

// Put stores a key-value pair.
func (m *MemoryDB) Put(key, value []byte) error {
	m.data[string(key)] = value
	return nil
}

// Delete removes a key.
func (m *MemoryDB) Delete(key []byte) error {
	delete(m.data, string(key))
	return nil
}

// Has checks if a key exists.
func (m *MemoryDB) Has(key []byte) (bool, error) {
	_, ok := m.data[string(key)]
	return ok, nil
}

// ForEach iterates over all keys with the given prefix in lexicographic key
// order, matching Badger's iterator so callers see the same ordering
// regardless of backend.
func (m *MemoryDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	p := string(prefix)
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, p) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := fn([]byte(k), append([]byte(nil), m.data[k]...)); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (m *MemoryDB) Close() error {
	return nil
}

// NewBatch returns a Batch that buffers writes and applies them to m on
// Commit, in the order they were added.
func (m *MemoryDB) NewBatch() Batch {
	return &memoryBatch{db: m}
}

type memoryBatch struct {
	db  *MemoryDB
	ops []func()
}

func (mb *memoryBatch) Put(key, value []byte) error {
	k, v := string(key), append([]byte(nil), value...)
	mb.ops = append(mb.ops, func() { mb.db.data[k] = v })
	return nil
}

func (mb *memoryBatch) Delete(key []byte) error {
	k := string(key)
	mb.ops = append(mb.ops, func() { delete(mb.db.data, k) })
	return nil
}

func (mb *memoryBatch) Commit() error {
	for _, op := range mb.ops {
		op()
	}
	return nil
}
