package mempool

import (
	"fmt"

	"github.com/fantasy-builders/grishinium/pkg/tx"
)

// DefaultMaxTxSize is the maximum accepted transaction size, in bytes of
// its JSON encoding.
const DefaultMaxTxSize = 100_000

// Policy defines node-local transaction acceptance rules, separate from
// the consensus validation every transaction must also pass — policy is
// allowed to vary per node (a stricter operator can reject more), unlike
// tx.Validate and ledger.Apply.
type Policy struct {
	MaxTxSize int
}

// DefaultPolicy returns a policy with sensible defaults.
func DefaultPolicy() *Policy {
	return &Policy{MaxTxSize: DefaultMaxTxSize}
}

// Check validates a transaction against policy rules.
func (p *Policy) Check(transaction *tx.Transaction) error {
	size := encodedSize(transaction)
	if p.MaxTxSize > 0 && size > p.MaxTxSize {
		return fmt.Errorf("transaction too large: %d bytes, max %d", size, p.MaxTxSize)
	}
	return nil
}
