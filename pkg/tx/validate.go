package tx

import (
	"errors"
	"fmt"

	"github.com/fantasy-builders/grishinium/pkg/crypto"
	"github.com/fantasy-builders/grishinium/pkg/types"
)

// Structural validation errors. These check the invariants a transaction
// must satisfy on its own, independent of ledger state (balance/stake
// sufficiency is checked by the ledger's apply, not here).
var (
	ErrUnknownType        = errors.New("unknown transaction type")
	ErrZeroAmount         = errors.New("amount must be positive for this transaction type")
	ErrNonZeroFee         = errors.New("fee must be zero for this transaction type")
	ErrWrongSender        = errors.New("sender does not match transaction type")
	ErrMissingSignature   = errors.New("signature required for this sender")
	ErrInvalidSignature   = errors.New("signature does not verify")
	ErrZeroTimestamp      = errors.New("timestamp must be positive")
	ErrTxIDMismatch       = errors.New("tx_id does not match content hash")
	ErrSelfTransfer       = errors.New("sender and recipient must differ")
	ErrMissingPubKey      = errors.New("public key required for this sender")
	ErrPubKeyMismatch     = errors.New("public key does not hash to sender")
)

// Validate checks the structural invariants from the data model: amount
// positivity per type, fee rules, sender/type correspondence, and tx_id
// integrity. It does not check signature validity (VerifySignature does
// that, given the sender's public key) or ledger state.
func (t *Transaction) Validate() error {
	switch t.Type {
	case TRANSFER, STAKE, UNSTAKE, REWARD, GENESIS:
		if t.Amount == 0 {
			return fmt.Errorf("%w: %s", ErrZeroAmount, t.Type)
		}
	case FEE:
		// amount == 0 permitted for a fee sweep.
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, t.Type)
	}

	if t.Type == GENESIS || t.Type == REWARD {
		if t.Fee != 0 {
			return fmt.Errorf("%w: %s", ErrNonZeroFee, t.Type)
		}
	}

	if t.Type.IsSystemOriginated() {
		if !t.Sender.IsSystem() {
			return fmt.Errorf("%w: %s must be sent by system", ErrWrongSender, t.Type)
		}
	} else if t.Sender.IsSystem() {
		return fmt.Errorf("%w: %s must not be sent by system", ErrWrongSender, t.Type)
	}

	if !t.Sender.IsSystem() && len(t.Signature) == 0 {
		return ErrMissingSignature
	}

	if t.Timestamp == 0 {
		return ErrZeroTimestamp
	}

	if (t.Type == TRANSFER || t.Type == STAKE) && t.Sender == t.Recipient {
		return ErrSelfTransfer
	}

	expected := t.Hash()
	if t.TxID != (types.Hash{}) && t.TxID != expected {
		return fmt.Errorf("%w: got %s, want %s", ErrTxIDMismatch, t.TxID, expected)
	}

	return nil
}

// VerifySignatureIfRequired checks the transaction's signature against
// senderPubKey, unless the sender is the system address (which never
// signs). Callers must have already confirmed senderPubKey actually
// belongs to t.Sender (e.g. by deriving the address from it).
func (t *Transaction) VerifySignatureIfRequired(senderPubKey []byte) error {
	if t.Sender.IsSystem() {
		return nil
	}
	if !t.VerifySignature(senderPubKey) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifyAuthenticity checks, for a non-system transaction, that its
// embedded PubKey hashes to Sender and that Signature verifies under that
// key. System-originated transactions (GENESIS/REWARD/FEE) are always
// authentic — they carry neither a key nor a signature.
func (t *Transaction) VerifyAuthenticity() error {
	if t.Sender.IsSystem() {
		return nil
	}
	if crypto.AddressFromPubKey(t.PubKey) != t.Sender {
		return ErrPubKeyMismatch
	}
	return t.VerifySignatureIfRequired(t.PubKey)
}
