// Package mempool manages pending transactions waiting for block inclusion.
package mempool

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/fantasy-builders/grishinium/pkg/tx"
	"github.com/fantasy-builders/grishinium/pkg/types"
)

// Mempool errors.
var (
	ErrAlreadyExists = errors.New("transaction already in mempool")
	ErrPoolFull      = errors.New("mempool is full")
	ErrValidation    = errors.New("transaction failed validation")
	ErrOvercommitted = errors.New("sender's pending transactions already commit its full balance")
)

// DefaultMaxSize is the default number of transactions the pool holds
// before it starts evicting to make room for higher-fee entries.
const DefaultMaxSize = 100_000

// BalanceChecker is the read-only ledger view the pool needs to reject
// transactions a sender could never actually afford once its other
// pending transactions are considered. Satisfied by *token.Ledger.
type BalanceChecker interface {
	Balance(addr types.Address) uint64
}

// entry wraps a transaction with its fee, fee rate, and arrival order.
type entry struct {
	tx      *tx.Transaction
	fee     uint64
	feeRate float64 // fee per byte of the transaction's JSON encoding.
	seq     uint64  // monotonic arrival order, used to break fee-rate ties.
}

// Pool holds unconfirmed transactions, ordered for block inclusion by fee
// rate and evicted, when full, lowest fee rate first and oldest among
// ties.
type Pool struct {
	mu sync.RWMutex

	txs     map[types.TxID]*entry
	spend   map[types.Address]uint64 // sender -> amount+fee committed by its pending txs
	maxSize int
	nextSeq uint64

	balances BalanceChecker // nil disables the pending-balance check
}

// New creates an empty mempool backed by balances for pending-balance
// checks (nil disables that check, useful in tests). maxSize <= 0 uses
// DefaultMaxSize.
func New(balances BalanceChecker, maxSize int) *Pool {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Pool{
		txs:      make(map[types.TxID]*entry),
		spend:    make(map[types.Address]uint64),
		maxSize:  maxSize,
		balances: balances,
	}
}

// debit returns the amount t commits against its sender's balance, i.e.
// what a conflicting concurrent spend would need to also cover. System
// transactions (GENESIS/REWARD/FEE) have no sender and debit nothing.
func debit(t *tx.Transaction) uint64 {
	switch t.Type {
	case tx.TRANSFER, tx.STAKE:
		return t.Amount + t.Fee
	case tx.UNSTAKE:
		return t.Fee
	default:
		return 0
	}
}

// Add validates and admits a transaction, returning its fee. Duplicate
// tx_ids are rejected, as are transactions that would commit more of the
// sender's balance than it holds once its other pending transactions are
// accounted for.
func (p *Pool) Add(transaction *tx.Transaction) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.txs[transaction.TxID]; exists {
		return 0, ErrAlreadyExists
	}

	if err := transaction.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if transaction.TxID != transaction.Hash() {
		return 0, fmt.Errorf("%w: tx_id does not match recomputed hash", ErrValidation)
	}
	if err := transaction.VerifyAuthenticity(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	need := debit(transaction)
	if need > 0 && p.balances != nil {
		committed := p.spend[transaction.Sender]
		if committed+need > p.balances.Balance(transaction.Sender) {
			return 0, fmt.Errorf("%w: %s has %d committed, balance %d", ErrOvercommitted,
				transaction.Sender, committed+need, p.balances.Balance(transaction.Sender))
		}
	}

	size := encodedSize(transaction)
	var feeRate float64
	if size > 0 {
		feeRate = float64(transaction.Fee) / float64(size)
	}

	if len(p.txs) >= p.maxSize {
		lowestID, lowestRate := p.lowestFeeRateLocked()
		if feeRate <= lowestRate {
			return 0, ErrPoolFull
		}
		p.removeLocked(lowestID)
	}

	p.nextSeq++
	p.txs[transaction.TxID] = &entry{tx: transaction, fee: transaction.Fee, feeRate: feeRate, seq: p.nextSeq}
	if need > 0 {
		p.spend[transaction.Sender] += need
	}

	return transaction.Fee, nil
}

func encodedSize(t *tx.Transaction) int {
	data, err := json.Marshal(t)
	if err != nil {
		return 0
	}
	return len(data)
}

// Remove removes a transaction by id, if present.
func (p *Pool) Remove(id types.TxID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(id)
}

func (p *Pool) removeLocked(id types.TxID) {
	e, exists := p.txs[id]
	if !exists {
		return
	}
	if need := debit(e.tx); need > 0 {
		if remaining := p.spend[e.tx.Sender]; remaining <= need {
			delete(p.spend, e.tx.Sender)
		} else {
			p.spend[e.tx.Sender] = remaining - need
		}
	}
	delete(p.txs, id)
}

// RemoveConfirmed drops every transaction in txs, typically the contents
// of a block that was just committed.
func (p *Pool) RemoveConfirmed(txs []*tx.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range txs {
		p.removeLocked(t.TxID)
	}
}

// Has reports whether id is currently pending.
func (p *Pool) Has(id types.TxID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, exists := p.txs[id]
	return exists
}

// Get returns the pending transaction with the given id, or nil.
func (p *Pool) Get(id types.TxID) *tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, exists := p.txs[id]
	if !exists {
		return nil
	}
	return e.tx
}

// Count returns the number of pending transactions.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.txs)
}

// lowestFeeRateLocked returns the id and fee rate of the pool's worst
// entry. Must be called with p.mu held.
func (p *Pool) lowestFeeRateLocked() (types.TxID, float64) {
	var lowestID types.TxID
	lowestRate := math.MaxFloat64
	var lowestSeq uint64 = math.MaxUint64
	for id, e := range p.txs {
		if e.feeRate < lowestRate || (e.feeRate == lowestRate && e.seq < lowestSeq) {
			lowestRate = e.feeRate
			lowestID = id
			lowestSeq = e.seq
		}
	}
	return lowestID, lowestRate
}

// SelectForBlock returns up to limit pending transactions ordered by fee
// rate descending, ties broken by arrival order (oldest first). limit <= 0
// returns every pending transaction in that order.
func (p *Pool) SelectForBlock(limit int) []*tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries := p.sortedLocked()
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}

	out := make([]*tx.Transaction, len(entries))
	for i, e := range entries {
		out[i] = e.tx
	}
	return out
}

func (p *Pool) sortedLocked() []*entry {
	entries := make([]*entry, 0, len(p.txs))
	for _, e := range p.txs {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].feeRate != entries[j].feeRate {
			return entries[i].feeRate > entries[j].feeRate
		}
		return entries[i].seq < entries[j].seq
	})
	return entries
}
