package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/fantasy-builders/grishinium/internal/token"
	"github.com/fantasy-builders/grishinium/pkg/block"
	"github.com/fantasy-builders/grishinium/pkg/tx"
	"github.com/fantasy-builders/grishinium/pkg/types"
)

// Key prefixes for the chain store's logical tables within one database
// file. Numeric key parts are fixed-width big-endian, so a prefix scan
// returns rows in index order.
var (
	prefixBlockByIndex = []byte("bi/") // bi/<index(8)> -> block JSON
	prefixBlockByHash  = []byte("bh/") // bh/<hash(32)> -> index(8)
	prefixTx           = []byte("tx/") // tx/<tx_id(32)> -> txRecord JSON
	prefixAddrTx       = []byte("at/") // at/<addr(20)><index(8)><pos(4)> -> tx_id(32)
	prefixStake        = []byte("st/") // st/<addr(20)> -> stake JSON
	keyTipIndex        = []byte("meta/tip_index")
)

// ChainStore persists the chain's blocks, its transaction index, and a
// rebuildable stake snapshot in a single storage.DB. Loading back what was
// saved reproduces the same chain: load(save(c)) == c.
type ChainStore struct {
	db DB
}

// NewChainStore wraps db as a chain store.
func NewChainStore(db DB) *ChainStore {
	return &ChainStore{db: db}
}

// txRecord is the persisted form of a transaction: the transaction itself
// plus enough of its containing block to answer "which block put this
// transaction on chain" without a second lookup.
type txRecord struct {
	Tx         *tx.Transaction `json:"tx"`
	BlockHash  types.Hash      `json:"block_hash"`
	BlockIndex uint64          `json:"block_index"`
}

func blockIndexKey(index uint64) []byte {
	key := make([]byte, len(prefixBlockByIndex)+8)
	copy(key, prefixBlockByIndex)
	binary.BigEndian.PutUint64(key[len(prefixBlockByIndex):], index)
	return key
}

func blockHashKey(hash types.Hash) []byte {
	key := make([]byte, len(prefixBlockByHash)+types.HashSize)
	copy(key, prefixBlockByHash)
	copy(key[len(prefixBlockByHash):], hash[:])
	return key
}

func txKey(id types.TxID) []byte {
	key := make([]byte, len(prefixTx)+types.HashSize)
	copy(key, prefixTx)
	copy(key[len(prefixTx):], id[:])
	return key
}

func addrTxKey(addr types.Address, index uint64, pos uint32) []byte {
	key := make([]byte, len(prefixAddrTx)+types.AddressSize+8+4)
	off := len(prefixAddrTx)
	copy(key, prefixAddrTx)
	copy(key[off:], addr[:])
	off += types.AddressSize
	binary.BigEndian.PutUint64(key[off:], index)
	off += 8
	binary.BigEndian.PutUint32(key[off:], pos)
	return key
}

func addrTxPrefix(addr types.Address) []byte {
	key := make([]byte, len(prefixAddrTx)+types.AddressSize)
	copy(key, prefixAddrTx)
	copy(key[len(prefixAddrTx):], addr[:])
	return key
}

func stakeKey(addr types.Address) []byte {
	key := make([]byte, len(prefixStake)+types.AddressSize)
	copy(key, prefixStake)
	copy(key[len(prefixStake):], addr[:])
	return key
}

// batchOrDirect returns a Batch backed by the store's DB when it supports
// atomic batching, or a lightweight direct-write stand-in otherwise. Either
// way SaveBlock's writes are collected through the same Put/Delete/Commit
// shape.
func (s *ChainStore) batchOrDirect() Batch {
	if batcher, ok := s.db.(Batcher); ok {
		return batcher.NewBatch()
	}
	return &directBatch{db: s.db}
}

// directBatch applies each write immediately; used only when the underlying
// DB implements neither Batcher.
type directBatch struct{ db DB }

func (d *directBatch) Put(key, value []byte) error { return d.db.Put(key, value) }
func (d *directBatch) Delete(key []byte) error      { return d.db.Delete(key) }
func (d *directBatch) Commit() error                { return nil }

// SaveBlock appends b to the store: the block itself, its hash->index
// pointer, a record per transaction, and each transaction's per-address
// index entries. All writes commit atomically, so a crash mid-save never
// leaves a block recorded with only some of its transactions indexed.
func (s *ChainStore) SaveBlock(b *block.Block) error {
	blockJSON, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal block %d: %w", b.Index, err)
	}

	batch := s.batchOrDirect()
	if err := batch.Put(blockIndexKey(b.Index), blockJSON); err != nil {
		return fmt.Errorf("put block %d: %w", b.Index, err)
	}

	indexBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(indexBytes, b.Index)
	if err := batch.Put(blockHashKey(b.Hash), indexBytes); err != nil {
		return fmt.Errorf("put block hash index: %w", err)
	}

	for pos, t := range b.Transactions {
		rec := txRecord{Tx: t, BlockHash: b.Hash, BlockIndex: b.Index}
		recJSON, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal tx %s: %w", t.TxID, err)
		}
		if err := batch.Put(txKey(t.TxID), recJSON); err != nil {
			return fmt.Errorf("put tx %s: %w", t.TxID, err)
		}

		if !t.Sender.IsZero() && !t.Sender.IsSystem() {
			if err := batch.Put(addrTxKey(t.Sender, b.Index, uint32(pos)), t.TxID[:]); err != nil {
				return fmt.Errorf("index tx %s for sender: %w", t.TxID, err)
			}
		}
		if t.Recipient != t.Sender && !t.Recipient.IsSystem() {
			if err := batch.Put(addrTxKey(t.Recipient, b.Index, uint32(pos)), t.TxID[:]); err != nil {
				return fmt.Errorf("index tx %s for recipient: %w", t.TxID, err)
			}
		}
	}

	if err := batch.Put(keyTipIndex, indexBytes); err != nil {
		return fmt.Errorf("put tip index: %w", err)
	}

	return batch.Commit()
}

// Tip returns the height of the most recently saved block and whether the
// store holds any block at all.
func (s *ChainStore) Tip() (height uint64, ok bool, err error) {
	raw, err := s.db.Get(keyTipIndex)
	if err != nil {
		return 0, false, nil
	}
	return binary.BigEndian.Uint64(raw), true, nil
}

// LoadBlock returns the block at the given height.
func (s *ChainStore) LoadBlock(index uint64) (*block.Block, error) {
	raw, err := s.db.Get(blockIndexKey(index))
	if err != nil {
		return nil, fmt.Errorf("load block %d: %w", index, err)
	}
	var b block.Block
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("unmarshal block %d: %w", index, err)
	}
	return &b, nil
}

// LoadBlockByHash returns the block with the given hash.
func (s *ChainStore) LoadBlockByHash(hash types.Hash) (*block.Block, error) {
	raw, err := s.db.Get(blockHashKey(hash))
	if err != nil {
		return nil, fmt.Errorf("load block by hash %s: %w", hash, err)
	}
	return s.LoadBlock(binary.BigEndian.Uint64(raw))
}

// LoadChain returns every saved block in index order, or an empty slice if
// nothing has been saved yet.
func (s *ChainStore) LoadChain() ([]*block.Block, error) {
	height, ok, err := s.Tip()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	chain := make([]*block.Block, 0, height+1)
	for i := uint64(0); i <= height; i++ {
		b, err := s.LoadBlock(i)
		if err != nil {
			return nil, err
		}
		chain = append(chain, b)
	}
	return chain, nil
}

// Transaction returns the transaction with the given id, along with the
// hash and height of the block it was included in.
func (s *ChainStore) Transaction(id types.TxID) (t *tx.Transaction, blockHash types.Hash, blockIndex uint64, err error) {
	raw, err := s.db.Get(txKey(id))
	if err != nil {
		return nil, types.Hash{}, 0, fmt.Errorf("load tx %s: %w", id, err)
	}
	var rec txRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, types.Hash{}, 0, fmt.Errorf("unmarshal tx %s: %w", id, err)
	}
	return rec.Tx, rec.BlockHash, rec.BlockIndex, nil
}

// HasTransaction reports whether a transaction with the given id has
// already been committed to the chain, used by block validation to reject
// duplicate tx_ids.
func (s *ChainStore) HasTransaction(id types.TxID) (bool, error) {
	return s.db.Has(txKey(id))
}

// TransactionsFor returns up to limit transactions touching addr, oldest
// first, skipping the first offset matches.
func (s *ChainStore) TransactionsFor(addr types.Address, limit, offset int) ([]*tx.Transaction, error) {
	var ids []types.TxID
	err := s.db.ForEach(addrTxPrefix(addr), func(_, value []byte) error {
		var id types.TxID
		copy(id[:], value)
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan address index for %s: %w", addr, err)
	}

	if offset >= len(ids) {
		return nil, nil
	}
	ids = ids[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}

	out := make([]*tx.Transaction, 0, len(ids))
	for _, id := range ids {
		t, _, _, err := s.Transaction(id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// SaveStakes overwrites the stake snapshot with the given set. The snapshot
// is rebuildable from the transaction log and exists only to make restart
// fast; LoadStakes returning nothing is not an error.
func (s *ChainStore) SaveStakes(stakes map[types.Address]token.Stake) error {
	var existing [][]byte
	if err := s.db.ForEach(prefixStake, func(key, _ []byte) error {
		k := append([]byte(nil), key...)
		existing = append(existing, k)
		return nil
	}); err != nil {
		return fmt.Errorf("scan existing stakes: %w", err)
	}
	for _, k := range existing {
		if err := s.db.Delete(k); err != nil {
			return fmt.Errorf("clear stake snapshot: %w", err)
		}
	}

	for addr, stake := range stakes {
		data, err := json.Marshal(stake)
		if err != nil {
			return fmt.Errorf("marshal stake for %s: %w", addr, err)
		}
		if err := s.db.Put(stakeKey(addr), data); err != nil {
			return fmt.Errorf("put stake for %s: %w", addr, err)
		}
	}
	return nil
}

// LoadStakes returns the persisted stake snapshot, or an empty map if none
// has been saved.
func (s *ChainStore) LoadStakes() (map[types.Address]token.Stake, error) {
	out := make(map[types.Address]token.Stake)
	err := s.db.ForEach(prefixStake, func(key, value []byte) error {
		var addr types.Address
		copy(addr[:], key[len(prefixStake):])
		var stake token.Stake
		if err := json.Unmarshal(value, &stake); err != nil {
			return fmt.Errorf("unmarshal stake: %w", err)
		}
		out[addr] = stake
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the underlying database.
func (s *ChainStore) Close() error {
	return s.db.Close()
}
