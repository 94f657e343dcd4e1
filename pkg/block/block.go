// Package block defines the block type, its canonical hash, and
// structural validation.
package block

import (
	"github.com/fantasy-builders/grishinium/pkg/crypto"
	"github.com/fantasy-builders/grishinium/pkg/tx"
	"github.com/fantasy-builders/grishinium/pkg/types"
)

// GenesisValidatorText is the sentinel validator value carried by block 0,
// which has no proposer.
const GenesisValidatorText = "genesis"

// Block is one entry in the chain: an ordered batch of transactions
// proposed by a validator, linked to its predecessor by hash.
type Block struct {
	Index        uint64            `json:"index"`
	PreviousHash types.Hash        `json:"previous_hash"`
	Timestamp    uint64            `json:"timestamp"`
	Transactions []*tx.Transaction `json:"transactions"`
	Validator    types.Address     `json:"validator"`
	// Signature is the proposer's signature over Hash, carried alongside
	// the block so peers can authenticate it independent of the relaying
	// gossip message. It is not itself part of the hashed content.
	Signature []byte     `json:"signature,omitempty"`
	Hash      types.Hash `json:"hash"`
}

// NewBlock constructs a block from its content fields, leaving Hash and
// Signature to be set by SetHash and Sign.
func NewBlock(index uint64, previousHash types.Hash, timestamp uint64, txs []*tx.Transaction, validator types.Address) *Block {
	return &Block{
		Index:        index,
		PreviousHash: previousHash,
		Timestamp:    timestamp,
		Transactions: txs,
		Validator:    validator,
	}
}

// ComputeHash returns the SHA-256 hash of the block's canonical
// serialization, excluding the hash and signature fields themselves.
func (b *Block) ComputeHash() types.Hash {
	return crypto.Hash(crypto.CanonicalSerialize(b.hashedFields()))
}

// SetHash computes and stores the block's hash.
func (b *Block) SetHash() {
	b.Hash = b.ComputeHash()
}

func (b *Block) hashedFields() map[string]interface{} {
	txIDs := make([]string, len(b.Transactions))
	for i, t := range b.Transactions {
		txIDs[i] = t.TxID.String()
	}
	return map[string]interface{}{
		"index":         b.Index,
		"previous_hash": b.PreviousHash.String(),
		"timestamp":     b.Timestamp,
		"transactions":  txIDs,
		"validator":     validatorField(b.Validator),
	}
}

// validatorField renders the validator address for hashing, honoring the
// "genesis" text sentinel for block 0 (which has no real address).
func validatorField(addr types.Address) string {
	if addr.IsZero() {
		return GenesisValidatorText
	}
	return addr.String()
}

// Sign computes the block's hash and signs it with the proposer's key.
func (b *Block) Sign(key *crypto.PrivateKey) error {
	b.SetHash()
	sig, err := key.Sign(b.Hash[:])
	if err != nil {
		return err
	}
	b.Signature = sig
	return nil
}

// VerifySignature checks the block's signature against the proposer's
// public key. Not meaningful for the genesis block, which carries none.
//
// Unused by Chain.Append/checkLinkage: the validation algorithm
// authenticates a block through its proposer-eligibility check
// (candidate.Validator must equal the stake-weighted expected proposer)
// rather than a signature check, so this is intentionally left for a
// caller that wants a second, independent authentication path (e.g. a
// peer wire handler verifying a gossiped block before it ever reaches
// Append).
func (b *Block) VerifySignature(validatorPubKey []byte) bool {
	return crypto.VerifySignature(b.Hash[:], b.Signature, validatorPubKey)
}

// IsGenesis reports whether this is the chain's first block.
func (b *Block) IsGenesis() bool {
	return b.Index == 0
}
