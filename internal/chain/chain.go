// Package chain implements the blockchain state machine: the ordered
// block vector and the token ledger it folds into, block validation
// (spec.md §4.3), and fork choice between competing candidate chains.
package chain

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fantasy-builders/grishinium/internal/consensus"
	"github.com/fantasy-builders/grishinium/internal/errs"
	"github.com/fantasy-builders/grishinium/internal/storage"
	"github.com/fantasy-builders/grishinium/internal/token"
	"github.com/fantasy-builders/grishinium/pkg/block"
	"github.com/fantasy-builders/grishinium/pkg/tx"
	"github.com/fantasy-builders/grishinium/pkg/types"
)

// MaxClockSkewDefault is the default tolerance between a candidate
// block's timestamp and the local clock (spec.md §4.3 step 3).
const MaxClockSkewDefault = 120 * time.Second

// Chain owns the block vector and the ledger derived by folding it.
// Mutations (Append, Replace) are serialized by mu; readers take the
// read lock, matching the single read/write lock model of spec.md §5.
type Chain struct {
	mu     sync.RWMutex
	blocks []*block.Block
	ledger *token.Ledger
	store  *storage.ChainStore
	engine *consensus.Engine

	maxClockSkew time.Duration
}

// Open recovers a chain from store into ledger, replaying every saved
// block's transactions in order. ledger must be freshly constructed
// (token.New()) and must be the same instance engine was built from, so
// that validator selection observes the chain's state as it evolves.
// Returns a chain with no blocks if store is empty; callers must then
// call InitGenesis before Append/Replace will accept anything.
func Open(store *storage.ChainStore, ledger *token.Ledger, engine *consensus.Engine, maxClockSkew time.Duration) (*Chain, error) {
	if maxClockSkew <= 0 {
		maxClockSkew = MaxClockSkewDefault
	}

	saved, err := store.LoadChain()
	if err != nil {
		return nil, errs.New(errs.StorageCorrupt, fmt.Errorf("load chain: %w", err))
	}

	c := &Chain{store: store, ledger: ledger, engine: engine, maxClockSkew: maxClockSkew}
	for _, b := range saved {
		for _, t := range b.Transactions {
			if err := ledger.Apply(t, b.Timestamp); err != nil {
				return nil, errs.New(errs.StorageCorrupt, fmt.Errorf("replay block %d tx %s: %w", b.Index, t.TxID, err))
			}
			ledger.RecordHistory(t)
		}
	}
	c.blocks = saved
	return c, nil
}

// InitGenesis creates and commits the genesis block crediting founder
// with amount, for a chain that has no blocks yet. bootstrap is an
// optional, already-signed list of transactions appended after the mint
// (e.g. the founder staking enough to become the first validator — spec.md
// §4.4 has no path to a validator set from zero stake otherwise, since
// electing a proposer for block 1 needs a non-empty set before block 1
// exists). Genesis bypasses the normal append validation (no previous
// block, no proposer to check), but every bootstrap transaction still
// passes Validate and VerifyAuthenticity before being applied; the GENESIS
// mint itself is applied without those checks.
func (c *Chain) InitGenesis(founder types.Address, amount uint64, timestamp uint64, bootstrap []*tx.Transaction) (*block.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blocks) != 0 {
		return nil, errs.New(errs.BadIndex, fmt.Errorf("chain already has %d block(s)", len(c.blocks)))
	}

	genesisTx := tx.NewBuilder(tx.GENESIS).To(founder).WithAmount(amount).WithTimestamp(timestamp).BuildSystem()
	txs := append([]*tx.Transaction{genesisTx}, bootstrap...)
	genesis := block.NewBlock(0, types.Hash{}, timestamp, txs, types.Address{})
	genesis.SetHash()

	clone := c.ledger.Clone()
	for _, t := range txs {
		if t != genesisTx {
			if err := t.Validate(); err != nil {
				return nil, errs.New(classifyTxValidationErr(err), fmt.Errorf("bootstrap tx %s: %w", t.TxID, err))
			}
			if err := t.VerifyAuthenticity(); err != nil {
				return nil, errs.New(errs.BadSignature, fmt.Errorf("bootstrap tx %s: %w", t.TxID, err))
			}
		}
		if err := clone.Apply(t, timestamp); err != nil {
			return nil, errs.New(classifyLedgerErr(err), fmt.Errorf("apply genesis tx %s: %w", t.TxID, err))
		}
		clone.RecordHistory(t)
	}

	if err := c.store.SaveBlock(genesis); err != nil {
		return nil, errs.New(errs.StorageUnavailable, fmt.Errorf("save genesis: %w", err))
	}
	c.ledger.Adopt(clone)
	c.blocks = []*block.Block{genesis}
	return genesis, nil
}

// Tip returns the chain's last block. Panics if the chain has no blocks
// yet — callers must InitGenesis first; the orchestrator never lets the
// main loop run without one.
func (c *Chain) Tip() *block.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[len(c.blocks)-1]
}

// Height returns the index of the tip block (0 for genesis-only).
func (c *Chain) Height() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return uint64(len(c.blocks) - 1)
}

// Len returns the number of blocks, genesis included.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

// Blocks returns a copy of the chain's current block vector.
func (c *Chain) Blocks() []*block.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*block.Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// BlockAt returns the block at index i, or nil if out of range.
func (c *Chain) BlockAt(i uint64) *block.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i >= uint64(len(c.blocks)) {
		return nil
	}
	return c.blocks[i]
}

// Balance, Staked, and History delegate to the ledger under the read lock.
func (c *Chain) Balance(addr types.Address) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.Balance(addr)
}

func (c *Chain) Staked(addr types.Address) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.Staked(addr)
}

func (c *Chain) History(addr types.Address) []types.TxID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.History(addr)
}

// StakeInfo combines the ledger's staking view with whether addr is
// currently in the validator set.
func (c *Chain) StakeInfo(addr types.Address) (amount uint64, stakedAt uint64, canUnstake bool, isValidator bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	amount, stakedAt, canUnstake = c.ledger.StakeInfo(addr, c.blocks[len(c.blocks)-1].Timestamp)
	isValidator = c.engine.IsValidator(addr)
	return
}

// TotalSupply returns the ledger's total minted supply.
func (c *Chain) TotalSupply() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.TotalSupply()
}

// Stakes returns a snapshot of the current stake distribution, used by
// fork choice to weigh competing chains by their proposers' stake.
func (c *Chain) Stakes() map[types.Address]token.Stake {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.Stakes()
}

// NextReward returns the scheduled block reward for the block that would
// extend the current tip, the amount the orchestrator must mint in that
// block's REWARD transaction before handing it to Append (spec.md §4.2's
// halving schedule, §4.8's proposer loop).
func (c *Chain) NextReward() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.BlockReward(uint64(len(c.blocks)))
}

// BlockByHash returns the block whose hash matches h, or nil if none
// does. Used by the peer network's block-lookup endpoint.
func (c *Chain) BlockByHash(h types.Hash) *block.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, b := range c.blocks {
		if b.Hash == h {
			return b
		}
	}
	return nil
}

// HasTransaction reports whether a transaction with id is already on
// chain, by querying the durable store's transaction index.
func (c *Chain) HasTransaction(id types.TxID) (bool, error) {
	return c.store.HasTransaction(id)
}

// Transaction looks up a confirmed transaction by id.
func (c *Chain) Transaction(id types.TxID) (*tx.Transaction, types.Hash, uint64, error) {
	return c.store.Transaction(id)
}

// TransactionsFor returns up to limit transactions touching addr, oldest
// first, skipping offset matches — used by external read interfaces.
func (c *Chain) TransactionsFor(addr types.Address, limit, offset int) ([]*tx.Transaction, error) {
	return c.store.TransactionsFor(addr, limit, offset)
}

// Append validates candidate against the current tip (spec.md §4.3's
// seven-step algorithm) and, if it passes, applies its transactions and
// commits it. On any failure the chain and ledger are unchanged.
func (c *Chain) Append(candidate *block.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blocks) == 0 {
		return errs.New(errs.BadIndex, fmt.Errorf("chain has no genesis block yet"))
	}
	previous := c.blocks[len(c.blocks)-1]

	if err := checkLinkage(c.engine, c.maxClockSkew, candidate, previous); err != nil {
		return err
	}

	clone := c.ledger.Clone()
	if err := validateTransactions(clone, c.store.HasTransaction, candidate); err != nil {
		return err
	}

	if err := c.store.SaveBlock(candidate); err != nil {
		return errs.New(errs.StorageUnavailable, fmt.Errorf("save block %d: %w", candidate.Index, err))
	}

	c.ledger.Adopt(clone)
	c.blocks = append(c.blocks, candidate)
	return nil
}

// checkLinkage runs steps 1-5 of the block validation algorithm: index
// continuity, previous-hash linkage, timestamp bounds, hash integrity,
// and proposer correctness. These don't mutate the ledger, but proposer
// correctness does depend on its current stake distribution — engine is
// passed explicitly so Replace can check each candidate block against an
// engine wrapping the ledger being rebuilt, not the chain's live one.
func checkLinkage(engine *consensus.Engine, maxClockSkew time.Duration, candidate, previous *block.Block) error {
	if candidate.Index != previous.Index+1 {
		return errs.New(errs.BadIndex, fmt.Errorf("index %d != previous %d + 1", candidate.Index, previous.Index))
	}
	if candidate.PreviousHash != previous.Hash {
		return errs.New(errs.BadPreviousHash, fmt.Errorf("previous_hash %s != tip hash %s", candidate.PreviousHash, previous.Hash))
	}
	if candidate.Timestamp <= previous.Timestamp {
		return errs.New(errs.BadTimestamp, fmt.Errorf("timestamp %d must be greater than previous %d", candidate.Timestamp, previous.Timestamp))
	}
	maxFuture := uint64(time.Now().Add(maxClockSkew).Unix())
	if candidate.Timestamp > maxFuture {
		return errs.New(errs.BadTimestamp, fmt.Errorf("timestamp %d is more than %s ahead of now", candidate.Timestamp, maxClockSkew))
	}
	if candidate.ComputeHash() != candidate.Hash {
		return errs.New(errs.BadHash, fmt.Errorf("block %d hash does not match its content", candidate.Index))
	}
	expected, err := engine.ExpectedProposer(previous.Hash)
	if err != nil {
		return errs.New(errs.WrongProposer, fmt.Errorf("select expected proposer: %w", err))
	}
	if candidate.Validator != expected {
		return errs.New(errs.WrongProposer, fmt.Errorf("validator %s != expected proposer %s", candidate.Validator, expected))
	}
	return nil
}

// validateTransactions runs step 6 (per-transaction checks, applying
// each to ledger in order) and step 7 (reward uniqueness and amount) of
// the validation algorithm. hasTx reports whether a tx_id is already
// committed to the chain (Append checks the durable store; Replace,
// rebuilding from scratch, always passes a function that returns false).
func validateTransactions(ledger *token.Ledger, hasTx func(types.TxID) (bool, error), candidate *block.Block) error {
	expectedReward := ledger.BlockReward(candidate.Index)

	seenInBlock := make(map[types.TxID]bool, len(candidate.Transactions))
	var rewardTx *tx.Transaction
	rewardCount := 0

	for _, t := range candidate.Transactions {
		if err := t.Validate(); err != nil {
			return errs.New(classifyTxValidationErr(err), fmt.Errorf("tx %s: %w", t.TxID, err))
		}
		if t.TxID != t.Hash() {
			return errs.New(errs.BadHash, fmt.Errorf("tx %s: tx_id does not match recomputed hash", t.TxID))
		}
		if seenInBlock[t.TxID] {
			return errs.New(errs.DuplicateTxId, fmt.Errorf("tx %s duplicated within block %d", t.TxID, candidate.Index))
		}
		seenInBlock[t.TxID] = true

		already, err := hasTx(t.TxID)
		if err != nil {
			return errs.New(errs.StorageUnavailable, fmt.Errorf("check tx %s history: %w", t.TxID, err))
		}
		if already {
			return errs.New(errs.DuplicateTxId, fmt.Errorf("tx %s already on chain", t.TxID))
		}

		if err := t.VerifyAuthenticity(); err != nil {
			return errs.New(errs.BadSignature, fmt.Errorf("tx %s: %w", t.TxID, err))
		}

		if t.Type == tx.REWARD {
			rewardCount++
			rewardTx = t
		}

		if err := ledger.Apply(t, candidate.Timestamp); err != nil {
			return errs.New(classifyLedgerErr(err), fmt.Errorf("tx %s: %w", t.TxID, err))
		}
		ledger.RecordHistory(t)
	}

	if rewardCount > 1 {
		return errs.New(errs.BadReward, fmt.Errorf("block %d carries %d REWARD transactions, at most 1 allowed", candidate.Index, rewardCount))
	}
	if rewardCount == 1 {
		if rewardTx.Recipient != candidate.Validator {
			return errs.New(errs.BadReward, fmt.Errorf("reward recipient %s != proposer %s", rewardTx.Recipient, candidate.Validator))
		}
		if rewardTx.Amount != expectedReward {
			return errs.New(errs.BadReward, fmt.Errorf("reward amount %d != scheduled %d", rewardTx.Amount, expectedReward))
		}
	}
	return nil
}

// classifyTxValidationErr maps a tx.Validate failure to its error kind.
// The taxonomy has no generic "malformed transaction" kind beyond
// UnknownTxType and the signature kinds, so the remaining structural
// defects (wrong-sender, self-transfer, bad fee, zero amount/timestamp)
// fall back to BadSignature: none of them could have come from a
// correctly operating signer following the protocol.
func classifyTxValidationErr(err error) errs.Kind {
	switch {
	case errors.Is(err, tx.ErrUnknownType):
		return errs.UnknownTxType
	case errors.Is(err, tx.ErrTxIDMismatch):
		return errs.BadHash
	default:
		return errs.BadSignature
	}
}

// classifyLedgerErr maps a Ledger.Apply failure to its error kind.
func classifyLedgerErr(err error) errs.Kind {
	switch {
	case errors.Is(err, token.ErrInsufficientBalance):
		return errs.InsufficientBalance
	case errors.Is(err, token.ErrInsufficientStake):
		return errs.InsufficientStake
	case errors.Is(err, token.ErrStakeTooSmall):
		return errs.StakeTooSmall
	case errors.Is(err, token.ErrStakeLocked):
		return errs.StakeLocked
	case errors.Is(err, token.ErrSupplyCapExceeded):
		return errs.SupplyCapExceeded
	default:
		return errs.UnknownTxType
	}
}

// Replace performs a full-chain swap: candidate must be longer than the
// current chain and share its genesis block; every block from index 1
// onward is validated against a freshly rebuilt ledger before the swap
// commits. On any failure the current chain is unchanged.
func (c *Chain) Replace(candidate []*block.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(candidate) <= len(c.blocks) {
		return errs.New(errs.BadIndex, fmt.Errorf("candidate length %d is not longer than current %d", len(candidate), len(c.blocks)))
	}
	if len(c.blocks) == 0 {
		return errs.New(errs.BadPreviousHash, fmt.Errorf("no local genesis to compare against"))
	}
	// candidate[0].Hash is attacker-controlled data until it is recomputed
	// and checked: a peer could otherwise copy our genesis hash into the
	// field while substituting arbitrary genesis transactions underneath
	// it. Recomputing closes that gap, and validateTransactions below
	// still rejects any transaction whose tx_id doesn't match its own
	// content hash, so a matching block hash can't be paired with forged
	// transaction content either.
	if candidate[0].ComputeHash() != candidate[0].Hash {
		return errs.New(errs.BadHash, fmt.Errorf("candidate genesis hash does not match its own recomputed content hash"))
	}
	if candidate[0].Hash != c.blocks[0].Hash {
		return errs.New(errs.BadPreviousHash, fmt.Errorf("candidate chain does not share this chain's genesis"))
	}

	fresh := token.New()
	noneSeen := func(types.TxID) (bool, error) { return false, nil }
	if err := validateTransactions(fresh, noneSeen, candidate[0]); err != nil {
		return fmt.Errorf("replay candidate genesis: %w", err)
	}

	// Proposer eligibility must be checked against fresh's evolving stake
	// distribution, not the live chain's — a throwaway engine wraps it for
	// exactly the duration of this replay.
	freshEngine := consensus.New(fresh, c.engine.BlockIntervalTarget())

	for i := 1; i < len(candidate); i++ {
		if err := checkLinkage(freshEngine, c.maxClockSkew, candidate[i], candidate[i-1]); err != nil {
			return err
		}
		if err := validateTransactions(fresh, noneSeen, candidate[i]); err != nil {
			return err
		}
	}

	for _, b := range candidate {
		if err := c.store.SaveBlock(b); err != nil {
			return errs.New(errs.StorageUnavailable, fmt.Errorf("save block %d: %w", b.Index, err))
		}
	}
	if err := c.store.SaveStakes(fresh.Stakes()); err != nil {
		return errs.New(errs.StorageUnavailable, fmt.Errorf("save stake snapshot: %w", err))
	}

	c.ledger.Adopt(fresh)
	c.blocks = candidate
	return nil
}
