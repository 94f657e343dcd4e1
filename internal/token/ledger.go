// Package token implements the account-based ledger: balances, stakes,
// total supply, and the transaction-type effect table that mutates them.
package token

import (
	"errors"
	"fmt"

	"github.com/fantasy-builders/grishinium/pkg/tx"
	"github.com/fantasy-builders/grishinium/pkg/types"
)

// Protocol constants (spec.md §4.2).
const (
	BaseReward       = 50 * 100_000_000 // 50 tokens, 8 decimals
	HalvingInterval  = 210_000
	MaxHalvings      = 64
	MaxSupply        = 1_000_000_000 * 100_000_000 // 1B tokens, 8 decimals
	MinStake         = 100 * 100_000_000           // 100 tokens, 8 decimals
	StakeLockSeconds = 7 * 86400
)

// State-level errors. Apply is atomic: on any of these, the ledger is
// left exactly as it was before the call.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientStake   = errors.New("insufficient stake")
	ErrStakeTooSmall       = errors.New("resulting stake below the minimum")
	ErrStakeLocked         = errors.New("stake is still within its lock period")
	ErrSupplyCapExceeded   = errors.New("total supply would exceed the maximum")
	ErrInvalidType         = errors.New("unsupported transaction type")
)

// Stake records one address's locked balance and when it was last staked.
type Stake struct {
	Amount       uint64 `json:"amount"`
	StakedAtUnix uint64 `json:"staked_at"`
}

// Ledger is the derived account state obtained by replaying a chain's
// transactions in order. It holds no lock of its own: callers (the chain)
// are expected to serialize access under their own mutex, matching the
// single-writer concurrency model of §5.
type Ledger struct {
	balances    map[types.Address]uint64
	stakes      map[types.Address]Stake
	totalSupply uint64
	history     map[types.Address][]types.TxID
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		balances: make(map[types.Address]uint64),
		stakes:   make(map[types.Address]Stake),
		history:  make(map[types.Address][]types.TxID),
	}
}

// Balance returns addr's spendable balance.
func (l *Ledger) Balance(addr types.Address) uint64 {
	return l.balances[addr]
}

// Staked returns addr's currently staked amount.
func (l *Ledger) Staked(addr types.Address) uint64 {
	return l.stakes[addr].Amount
}

// StakeInfo returns the combined staking view for addr: amount, the
// timestamp it was staked at, and whether unstaking is currently allowed
// given nowUnix (typically the enclosing block's timestamp).
func (l *Ledger) StakeInfo(addr types.Address, nowUnix uint64) (amount uint64, stakedAt uint64, canUnstake bool) {
	s := l.stakes[addr]
	if s.Amount == 0 {
		return 0, 0, false
	}
	return s.Amount, s.StakedAtUnix, nowUnix-s.StakedAtUnix >= StakeLockSeconds
}

// TotalSupply returns the total token supply minted so far.
func (l *Ledger) TotalSupply() uint64 {
	return l.totalSupply
}

// History returns the ordered list of tx_ids addr appears in, oldest first.
func (l *Ledger) History(addr types.Address) []types.TxID {
	return l.history[addr]
}

// Stakes returns a snapshot of every staking address and its stake,
// used by the consensus engine to derive the validator set.
func (l *Ledger) Stakes() map[types.Address]Stake {
	out := make(map[types.Address]Stake, len(l.stakes))
	for k, v := range l.stakes {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy, used by the chain to validate a candidate
// block's effects against a scratch ledger before committing them (so a
// rejected block never leaves the real ledger partially mutated).
func (l *Ledger) Clone() *Ledger {
	clone := &Ledger{
		balances:    make(map[types.Address]uint64, len(l.balances)),
		stakes:      make(map[types.Address]Stake, len(l.stakes)),
		history:     make(map[types.Address][]types.TxID, len(l.history)),
		totalSupply: l.totalSupply,
	}
	for k, v := range l.balances {
		clone.balances[k] = v
	}
	for k, v := range l.stakes {
		clone.stakes[k] = v
	}
	for k, v := range l.history {
		h := make([]types.TxID, len(v))
		copy(h, v)
		clone.history[k] = h
	}
	return clone
}

// Adopt replaces l's contents with other's in place, preserving l's
// identity. The chain validates a candidate block against a Clone and,
// on success, Adopts it back into the live ledger rather than swapping
// pointers — long-lived holders of this *Ledger (notably the consensus
// engine, which reads Stakes() lazily) keep observing the update without
// being reconstructed.
func (l *Ledger) Adopt(other *Ledger) {
	l.balances = other.balances
	l.stakes = other.stakes
	l.history = other.history
	l.totalSupply = other.totalSupply
}

// BlockReward computes the scheduled reward for the block at the given
// height under the halving schedule, clamped so total_supply never
// exceeds MaxSupply.
func (l *Ledger) BlockReward(height uint64) uint64 {
	halvings := height / HalvingInterval
	var reward uint64
	if halvings >= MaxHalvings {
		reward = 0
	} else {
		reward = BaseReward >> halvings
	}
	remaining := MaxSupply - l.totalSupply
	if reward > remaining {
		reward = remaining
	}
	return reward
}

// Apply executes one transaction against the ledger, mutating balances,
// stakes, and total supply per the effect table (spec.md §4.2). The
// transaction must already have passed tx.Validate(); Apply only checks
// ledger state. On error the ledger is unchanged.
func (l *Ledger) Apply(t *tx.Transaction, blockTimestamp uint64) error {
	switch t.Type {
	case tx.GENESIS:
		return l.applyMint(t.Recipient, t.Amount)
	case tx.REWARD:
		return l.applyMint(t.Recipient, t.Amount)
	case tx.TRANSFER:
		return l.applyTransfer(t)
	case tx.STAKE:
		return l.applyStake(t, blockTimestamp)
	case tx.UNSTAKE:
		return l.applyUnstake(t, blockTimestamp)
	case tx.FEE:
		l.credit(t.Recipient, t.Amount)
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidType, t.Type)
	}
}

func (l *Ledger) applyMint(recipient types.Address, amount uint64) error {
	if l.totalSupply+amount > MaxSupply {
		return ErrSupplyCapExceeded
	}
	l.credit(recipient, amount)
	l.totalSupply += amount
	return nil
}

func (l *Ledger) applyTransfer(t *tx.Transaction) error {
	total := t.Amount + t.Fee
	if l.balances[t.Sender] < total {
		return ErrInsufficientBalance
	}
	l.balances[t.Sender] -= total
	l.credit(t.Recipient, t.Amount)
	return nil
}

func (l *Ledger) applyStake(t *tx.Transaction, blockTimestamp uint64) error {
	total := t.Amount + t.Fee
	if l.balances[t.Sender] < total {
		return ErrInsufficientBalance
	}

	current := l.stakes[t.Sender]
	newAmount := current.Amount + t.Amount
	if newAmount < MinStake {
		return ErrStakeTooSmall
	}

	l.balances[t.Sender] -= total
	l.stakes[t.Sender] = Stake{Amount: newAmount, StakedAtUnix: blockTimestamp}
	return nil
}

func (l *Ledger) applyUnstake(t *tx.Transaction, blockTimestamp uint64) error {
	current, ok := l.stakes[t.Sender]
	if !ok || current.Amount < t.Amount {
		return ErrInsufficientStake
	}
	if blockTimestamp-current.StakedAtUnix < StakeLockSeconds {
		return ErrStakeLocked
	}
	if l.balances[t.Sender] < t.Fee {
		return ErrInsufficientBalance
	}

	l.balances[t.Sender] -= t.Fee
	l.credit(t.Sender, t.Amount)

	remaining := current.Amount - t.Amount
	if remaining == 0 {
		delete(l.stakes, t.Sender)
	} else {
		l.stakes[t.Sender] = Stake{Amount: remaining, StakedAtUnix: current.StakedAtUnix}
	}
	return nil
}

func (l *Ledger) credit(addr types.Address, amount uint64) {
	l.balances[addr] += amount
}

// RecordHistory appends tx_id to every address the transaction touches.
// Called by the chain after a transaction has been successfully applied,
// once per block, in transaction order.
func (l *Ledger) RecordHistory(t *tx.Transaction) {
	l.appendHistory(t.Sender, t.TxID)
	if t.Recipient != t.Sender {
		l.appendHistory(t.Recipient, t.TxID)
	}
}

func (l *Ledger) appendHistory(addr types.Address, id types.TxID) {
	if addr.IsSystem() {
		return
	}
	l.history[addr] = append(l.history[addr], id)
}
