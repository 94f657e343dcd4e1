package chain

import (
	"bytes"

	"github.com/fantasy-builders/grishinium/internal/token"
	"github.com/fantasy-builders/grishinium/pkg/block"
	"github.com/fantasy-builders/grishinium/pkg/types"
)

// ForkChoice picks the canonically preferred chain between a and b, per
// spec.md §4.3: longest valid chain wins; ties break by higher
// cumulative stake of unique proposers (looked up in currentStakes, the
// stake distribution the comparing node currently holds), then by lower
// numeric tip hash. Both arguments are assumed already individually
// valid — this is a pure comparison, not a validator.
func ForkChoice(a, b []*block.Block, currentStakes map[types.Address]token.Stake) []*block.Block {
	if len(a) != len(b) {
		if len(a) > len(b) {
			return a
		}
		return b
	}
	if len(a) == 0 {
		return a
	}

	sa := cumulativeProposerStake(a, currentStakes)
	sb := cumulativeProposerStake(b, currentStakes)
	if sa != sb {
		if sa > sb {
			return a
		}
		return b
	}

	tipA, tipB := a[len(a)-1].Hash, b[len(b)-1].Hash
	if bytes.Compare(tipA[:], tipB[:]) <= 0 {
		return a
	}
	return b
}

// cumulativeProposerStake sums currentStakes' amount for every distinct
// validator address that proposed a block in chain, ignoring the genesis
// block (whose Validator is the zero address, not a real proposer).
func cumulativeProposerStake(chain []*block.Block, currentStakes map[types.Address]token.Stake) uint64 {
	seen := make(map[types.Address]bool)
	var total uint64
	for _, b := range chain {
		if b.IsGenesis() || b.Validator.IsZero() || seen[b.Validator] {
			continue
		}
		seen[b.Validator] = true
		total += currentStakes[b.Validator].Amount
	}
	return total
}
