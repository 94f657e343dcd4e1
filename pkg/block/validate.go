package block

import (
	"errors"
	"fmt"

	"github.com/fantasy-builders/grishinium/pkg/tx"
)

// Structural validation errors. These check invariants a block satisfies
// on its own; linkage to the previous block, proposer eligibility, and
// reward correctness require chain/consensus state and are checked by
// internal/chain, not here.
var (
	ErrNoValidator        = errors.New("non-genesis block has no validator")
	ErrZeroTimestamp      = errors.New("block timestamp is zero")
	ErrBadHash            = errors.New("hash does not match block content")
	ErrDuplicateTxInBlock = errors.New("duplicate tx_id within block")
	ErrInvalidTx          = errors.New("block contains an invalid transaction")
	ErrTooManyRewards     = errors.New("block contains more than one REWARD transaction")
)

// Validate checks the block's self-contained structural invariants: every
// transaction is individually well-formed, tx_ids are unique within the
// block, the timestamp is set, a non-genesis block names a validator, and
// the carried hash matches the recomputed content hash. It does not check
// previous_hash linkage, proposer correctness, or reward amount — those
// depend on chain state and are the caller's responsibility.
func (b *Block) Validate() error {
	if b.Timestamp == 0 {
		return ErrZeroTimestamp
	}

	if !b.IsGenesis() && b.Validator.IsZero() {
		return ErrNoValidator
	}

	seen := make(map[string]struct{}, len(b.Transactions))
	rewards := 0
	for _, t := range b.Transactions {
		if t == nil {
			return fmt.Errorf("%w: nil transaction", ErrInvalidTx)
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidTx, t.TxID, err)
		}
		id := t.TxID.String()
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateTxInBlock, id)
		}
		seen[id] = struct{}{}

		if t.Type == tx.REWARD {
			rewards++
		}
	}
	if rewards > 1 {
		return ErrTooManyRewards
	}

	if b.ComputeHash() != b.Hash {
		return fmt.Errorf("%w: got %s, want %s", ErrBadHash, b.Hash, b.ComputeHash())
	}

	return nil
}
