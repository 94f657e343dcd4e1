// Package tx defines transaction types and validation for the account-based
// token ledger.
package tx

import (
	"encoding/hex"
	"encoding/json"

	"github.com/fantasy-builders/grishinium/pkg/crypto"
	"github.com/fantasy-builders/grishinium/pkg/types"
)

// Type enumerates the kinds of transaction recognized by the ledger.
type Type string

const (
	TRANSFER Type = "TRANSFER"
	STAKE    Type = "STAKE"
	UNSTAKE  Type = "UNSTAKE"
	REWARD   Type = "REWARD"
	GENESIS  Type = "GENESIS"
	FEE      Type = "FEE"
)

// Transaction is an immutable record transferring the native token between
// addresses, staking or unstaking, or minting (GENESIS/REWARD/FEE, all
// sent by the system address).
type Transaction struct {
	TxID      types.TxID    `json:"tx_id"`
	Type      Type          `json:"tx_type"`
	Sender    types.Address `json:"sender"`
	Recipient types.Address `json:"recipient"`
	Amount    uint64        `json:"amount"`
	Fee       uint64        `json:"fee"`
	Timestamp uint64        `json:"timestamp"`
	Signature []byte        `json:"signature,omitempty"`
	// PubKey is the sender's compressed public key, carried alongside the
	// signature so a verifier can check both that the signature is valid
	// and that it was produced by the key Sender is the hash of, without
	// needing a recoverable signature scheme. Empty for system-originated
	// transactions, which carry neither a signature nor a key.
	PubKey []byte `json:"pub_key,omitempty"`
}

// transactionJSON mirrors Transaction with hex-encoded signature and key.
type transactionJSON struct {
	TxID      types.TxID    `json:"tx_id"`
	Type      Type          `json:"tx_type"`
	Sender    types.Address `json:"sender"`
	Recipient types.Address `json:"recipient"`
	Amount    uint64        `json:"amount"`
	Fee       uint64        `json:"fee"`
	Timestamp uint64        `json:"timestamp"`
	Signature string        `json:"signature,omitempty"`
	PubKey    string        `json:"pub_key,omitempty"`
}

func (t *Transaction) MarshalJSON() ([]byte, error) {
	j := transactionJSON{
		TxID:      t.TxID,
		Type:      t.Type,
		Sender:    t.Sender,
		Recipient: t.Recipient,
		Amount:    t.Amount,
		Fee:       t.Fee,
		Timestamp: t.Timestamp,
	}
	if len(t.Signature) > 0 {
		j.Signature = hex.EncodeToString(t.Signature)
	}
	if len(t.PubKey) > 0 {
		j.PubKey = hex.EncodeToString(t.PubKey)
	}
	return json.Marshal(j)
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	var j transactionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	t.TxID = j.TxID
	t.Type = j.Type
	t.Sender = j.Sender
	t.Recipient = j.Recipient
	t.Amount = j.Amount
	t.Fee = j.Fee
	t.Timestamp = j.Timestamp
	if j.Signature != "" {
		b, err := hex.DecodeString(j.Signature)
		if err != nil {
			return err
		}
		t.Signature = b
	}
	if j.PubKey != "" {
		b, err := hex.DecodeString(j.PubKey)
		if err != nil {
			return err
		}
		t.PubKey = b
	}
	return nil
}

// Hash computes the transaction id: SHA-256 over the canonical
// serialization of every field except tx_id, signature and pub_key.
func (t *Transaction) Hash() types.Hash {
	return crypto.Hash(crypto.CanonicalSerialize(t.signingFields()))
}

// SigningBytes returns the canonical bytes a sender signs and a verifier
// checks the signature against: the same preimage used to derive tx_id.
func (t *Transaction) SigningBytes() []byte {
	return crypto.CanonicalSerialize(t.signingFields())
}

func (t *Transaction) signingFields() map[string]interface{} {
	return map[string]interface{}{
		"tx_type":   string(t.Type),
		"sender":    t.Sender.String(),
		"recipient": t.Recipient.String(),
		"amount":    t.Amount,
		"fee":       t.Fee,
		"timestamp": t.Timestamp,
	}
}

// Sign computes the signing hash, signs it with key, and sets Signature,
// PubKey, and TxID on the transaction.
func (t *Transaction) Sign(key *crypto.PrivateKey) error {
	hash := t.Hash()
	sig, err := key.Sign(hash[:])
	if err != nil {
		return err
	}
	t.Signature = sig
	t.PubKey = key.PublicKey()
	t.TxID = hash
	return nil
}

// VerifySignature checks the transaction's signature against the sender's
// public key. System-sent transactions (GENESIS/REWARD/FEE) carry no
// signature and are exempt; callers must check IsSystemOriginated first.
func (t *Transaction) VerifySignature(senderPubKey []byte) bool {
	hash := t.Hash()
	return crypto.VerifySignature(hash[:], t.Signature, senderPubKey)
}

// IsSystemOriginated reports whether this transaction type is always sent
// from the system address and therefore carries no signature.
func (t Type) IsSystemOriginated() bool {
	switch t {
	case GENESIS, REWARD, FEE:
		return true
	default:
		return false
	}
}
