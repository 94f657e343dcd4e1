// Package consensus implements proof-of-stake validator selection:
// deterministic weighted proposer election over the token ledger's
// current stake distribution.
package consensus

import (
	"errors"
	"math/big"
	"sort"
	"time"

	"github.com/fantasy-builders/grishinium/internal/token"
	"github.com/fantasy-builders/grishinium/pkg/types"
)

// ValidatorCap is the maximum number of addresses in the validator set
// (top-K by stake).
const ValidatorCap = 100

// ErrNoValidators is returned by ProposerFor when the validator set is
// empty; block production must be suspended until some address stakes
// at least MinStake.
var ErrNoValidators = errors.New("no validators: stake floor not met by any address")

// Ledger is the read-only view of staking state the engine needs. It is
// satisfied by *token.Ledger.
type Ledger interface {
	Stakes() map[types.Address]token.Stake
}

// Engine answers proposer-eligibility questions as a pure function of the
// ledger's current stake distribution. It holds no private state of its
// own.
type Engine struct {
	ledger              Ledger
	blockIntervalTarget time.Duration
}

// New creates a consensus engine backed by ledger, targeting the given
// block interval (spec.md §4.4, canonical default 15s).
func New(ledger Ledger, blockIntervalTarget time.Duration) *Engine {
	return &Engine{ledger: ledger, blockIntervalTarget: blockIntervalTarget}
}

// BlockIntervalTarget returns the configured proposer cadence.
func (e *Engine) BlockIntervalTarget() time.Duration {
	return e.blockIntervalTarget
}

// Validators returns the current validator set: every address whose
// stake is at least token.MinStake, top ValidatorCap by stake amount,
// ties broken by address lexicographic order.
func (e *Engine) Validators() []types.Address {
	stakes := e.ledger.Stakes()
	eligible := make([]types.Address, 0, len(stakes))
	for addr, s := range stakes {
		if s.Amount >= token.MinStake {
			eligible = append(eligible, addr)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		si, sj := stakes[eligible[i]].Amount, stakes[eligible[j]].Amount
		if si != sj {
			return si > sj
		}
		return eligible[i].String() < eligible[j].String()
	})

	if len(eligible) > ValidatorCap {
		eligible = eligible[:ValidatorCap]
	}
	return eligible
}

// IsValidator reports whether addr is currently in the validator set.
func (e *Engine) IsValidator(addr types.Address) bool {
	for _, v := range e.Validators() {
		if v == addr {
			return true
		}
	}
	return false
}

// ProposerFor deterministically selects the validator eligible to
// propose the block following the one whose hash is seed. Validators are
// walked in their canonical order (stake descending, address ascending),
// weighted by stake; when the total stake is zero, the lexicographically
// first validator is selected; when the validator set is empty,
// ErrNoValidators is returned and block production must be suspended.
func (e *Engine) ProposerFor(seed types.Hash) (types.Address, error) {
	validators := e.Validators()
	if len(validators) == 0 {
		return types.Address{}, ErrNoValidators
	}

	stakes := e.ledger.Stakes()
	total := new(big.Int)
	for _, v := range validators {
		total.Add(total, new(big.Int).SetUint64(stakes[v].Amount))
	}

	if total.Sign() == 0 {
		return lexicographicallyFirst(validators), nil
	}

	s := new(big.Int).SetBytes(seed[:])
	r := new(big.Int).Mod(s, total)

	cumulative := new(big.Int)
	for _, v := range validators {
		cumulative.Add(cumulative, new(big.Int).SetUint64(stakes[v].Amount))
		if cumulative.Cmp(r) > 0 {
			return v, nil
		}
	}
	// Unreachable when total > 0: the final cumulative sum equals total > r.
	return lexicographicallyFirst(validators), nil
}

// ExpectedProposer returns the address allowed to propose the block that
// follows previousHash.
func (e *Engine) ExpectedProposer(previousHash types.Hash) (types.Address, error) {
	return e.ProposerFor(previousHash)
}

func lexicographicallyFirst(validators []types.Address) types.Address {
	first := validators[0]
	for _, v := range validators[1:] {
		if v.String() < first.String() {
			first = v
		}
	}
	return first
}
