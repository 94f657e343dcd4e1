package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// AddressSize is the length of the address payload in bytes (pre-version,
// pre-checksum). This is the hash truncated to 20 bytes, same width as the
// account identifiers elsewhere in the codebase.
const AddressSize = 20

// AddressTextPrefix is the fixed textual prefix every address string carries,
// independent of the base58 payload.
const AddressTextPrefix = "GRS_"

// Network version bytes distinguishing mainnet and testnet addresses. They
// are the first byte covered by the checksum, so a mainnet address can never
// decode successfully against a testnet-configured node or vice versa.
const (
	MainnetVersion byte = 0x00
	TestnetVersion byte = 0x6f
)

// Reserved addresses with no keypair. "system" mints GENESIS/REWARD/FEE
// transactions; "staking_pool" is the bookkeeping recipient of STAKE.
const (
	SystemAddressText      = "system"
	StakingPoolAddressText = "staking_pool"
)

// activeVersion is the network version byte used by String() and
// MarshalJSON(). Set once at startup via SetAddressVersion().
var activeVersion = MainnetVersion

// SetAddressVersion sets the active network version byte (call once at startup).
func SetAddressVersion(v byte) {
	activeVersion = v
}

// GetAddressVersion returns the currently active network version byte.
func GetAddressVersion() byte {
	return activeVersion
}

// Address represents a 160-bit account identifier (public key hash).
type Address [AddressSize]byte

// IsZero returns true if the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// IsSystem reports whether this address is the reserved "system" sentinel.
// System addresses have no keypair; transactions from them never carry a
// signature.
func (a Address) IsSystem() bool {
	return a == SystemAddress
}

// IsStakingPool reports whether this address is the reserved bookkeeping
// recipient of STAKE transactions.
func (a Address) IsStakingPool() bool {
	return a == StakingPoolAddress
}

// String returns the address in its canonical text form. The two reserved
// addresses print as their fixed names; all others print as "GRS_" followed
// by base58(version || payload || checksum).
func (a Address) String() string {
	switch {
	case a.IsSystem():
		return SystemAddressText
	case a.IsStakingPool():
		return StakingPoolAddressText
	default:
		return EncodeAddress(activeVersion, a[:])
	}
}

// Hex returns the raw hex-encoded address payload without prefix or checksum.
func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

// Bytes returns a copy of the address payload as a byte slice.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	copy(b, a[:])
	return b
}

// MarshalJSON encodes the address as its canonical text form.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a canonical address string, raw hex, or one of the
// reserved sentinel names into an address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Address{}
		return nil
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// EncodeAddress assembles the canonical address string for a given version
// byte and payload: "GRS_" + base58(version || payload || checksum), where
// checksum is the first 4 bytes of sha256(sha256(version || payload)).
func EncodeAddress(version byte, payload []byte) string {
	buf := make([]byte, 0, 1+len(payload)+4)
	buf = append(buf, version)
	buf = append(buf, payload...)
	sum := doubleSHA256(buf)
	buf = append(buf, sum[:4]...)
	return AddressTextPrefix + base58.Encode(buf)
}

// ParseAddress parses a canonical "GRS_..." address, a reserved sentinel
// ("system", "staking_pool"), or a raw 40-char hex payload (used internally,
// e.g. genesis allocation files).
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("empty address")
	}

	switch s {
	case SystemAddressText:
		return SystemAddress, nil
	case StakingPoolAddressText:
		return StakingPoolAddress, nil
	}

	if strings.HasPrefix(s, AddressTextPrefix) {
		raw, err := base58.Decode(s[len(AddressTextPrefix):])
		if err != nil {
			return Address{}, fmt.Errorf("invalid base58 address: %w", err)
		}
		if len(raw) != 1+AddressSize+4 {
			return Address{}, fmt.Errorf("address payload must be %d bytes, got %d", 1+AddressSize+4, len(raw))
		}
		version := raw[0]
		payload := raw[1 : 1+AddressSize]
		checksum := raw[1+AddressSize:]
		sum := doubleSHA256(raw[:1+AddressSize])
		if !equalBytes(sum[:4], checksum) {
			return Address{}, fmt.Errorf("address checksum mismatch")
		}
		if version != activeVersion {
			return Address{}, fmt.Errorf("address network version %x does not match active network %x", version, activeVersion)
		}
		var a Address
		copy(a[:], payload)
		return a, nil
	}

	if isHex40(s) {
		return HexToAddress(s)
	}

	return Address{}, fmt.Errorf("invalid address: %q", s)
}

// HexToAddress converts a raw hex string to an Address.
// Returns an error if the string is not exactly 40 hex characters.
// For user-facing input, use ParseAddress instead.
func HexToAddress(s string) (Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != AddressSize {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(b))
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

// SystemAddress and StakingPoolAddress are fixed, non-derivable addresses
// used for system-originated transactions (GENESIS/REWARD/FEE) and the
// stake bookkeeping recipient, respectively. They are the all-zero address
// and the all-0xFF address; neither is reachable from any public key hash
// with overwhelming probability, and both are recognized by their reserved
// text names rather than by encoding/decoding a payload.
var (
	SystemAddress      = Address{}
	StakingPoolAddress = func() Address {
		var a Address
		for i := range a {
			a[i] = 0xFF
		}
		return a
	}()
)

func doubleSHA256(b []byte) [32]byte {
	first := sha256.Sum256(b)
	return sha256.Sum256(first[:])
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// isHex40 returns true if s is exactly 40 hex characters.
func isHex40(s string) bool {
	if len(s) != 40 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
