// Package crypto provides cryptographic primitives for the grishinium node:
// hashing, canonical serialization, keypair generation, and ECDSA sign/verify.
package crypto

import (
	"crypto/sha256"
	"encoding/json"

	"github.com/fantasy-builders/grishinium/pkg/types"
)

// Hash computes a SHA-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return sha256.Sum256(data)
}

// DoubleHash computes Hash(Hash(data)), used for address checksums.
func DoubleHash(data []byte) types.Hash {
	first := Hash(data)
	return Hash(first[:])
}

// AddressFromPubKey derives an account address from a compressed public key:
// address = Hash(compressed_pubkey)[:AddressSize].
func AddressFromPubKey(pubKey []byte) types.Address {
	h := Hash(pubKey)
	var addr types.Address
	copy(addr[:], h[:types.AddressSize])
	return addr
}

// CanonicalSerialize returns the canonical byte representation of a fields
// map: a JSON object with keys in lexicographic order, no insignificant
// whitespace, ASCII-only. The same function is used for transaction signing
// bytes and block hashing; callers pass every field except the ones the
// result is itself derived from or that carry the signer's credentials
// (tx_id, signature and pub_key for transactions; hash and signature for
// blocks). encoding/json already marshals map[string]interface{} keys (at
// every nesting level) in sorted order and emits no insignificant
// whitespace, so this is a thin, named wrapper rather than a hand-rolled
// encoder.
func CanonicalSerialize(fields map[string]interface{}) []byte {
	out, err := json.Marshal(fields)
	if err != nil {
		// fields is built internally from known-serializable types; a
		// failure here indicates a programming error, not bad input.
		panic("crypto: canonical_serialize: " + err.Error())
	}
	return out
}
