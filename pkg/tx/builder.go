package tx

import (
	"github.com/fantasy-builders/grishinium/pkg/crypto"
	"github.com/fantasy-builders/grishinium/pkg/types"
)

// Builder constructs transactions incrementally.
type Builder struct {
	tx *Transaction
}

// NewBuilder creates a new transaction builder of the given type.
func NewBuilder(t Type) *Builder {
	return &Builder{tx: &Transaction{Type: t}}
}

// From sets the sender address.
func (b *Builder) From(addr types.Address) *Builder {
	b.tx.Sender = addr
	return b
}

// To sets the recipient address.
func (b *Builder) To(addr types.Address) *Builder {
	b.tx.Recipient = addr
	return b
}

// WithAmount sets the transfer/stake/unstake/reward/genesis amount.
func (b *Builder) WithAmount(amount uint64) *Builder {
	b.tx.Amount = amount
	return b
}

// WithFee sets the fee offered to the block proposer.
func (b *Builder) WithFee(fee uint64) *Builder {
	b.tx.Fee = fee
	return b
}

// WithTimestamp sets the transaction's timestamp (seconds since epoch).
func (b *Builder) WithTimestamp(ts uint64) *Builder {
	b.tx.Timestamp = ts
	return b
}

// Sign computes the tx_id and signs it with key. Not valid for
// system-originated types (GENESIS/REWARD/FEE), which carry no signature;
// use BuildSystem for those, which sets Sender to types.SystemAddress and
// computes tx_id.
func (b *Builder) Sign(key *crypto.PrivateKey) error {
	return b.tx.Sign(key)
}

// BuildSystem finalizes a system-originated transaction (GENESIS, REWARD,
// or FEE), computing tx_id without a signature.
func (b *Builder) BuildSystem() *Transaction {
	b.tx.Sender = types.SystemAddress
	b.tx.TxID = b.tx.Hash()
	return b.tx
}

// Build returns the constructed transaction as-is. Call Sign first for
// non-system senders, or BuildSystem for system-originated types.
func (b *Builder) Build() *Transaction {
	return b.tx
}
