// Package errs defines the error-kind taxonomy surfaced at every
// subsystem boundary (spec.md §7): validation, state, storage, network,
// and lifecycle failures all carry a Kind alongside their cause, so a
// caller (an HTTP handler, a log line, a test) can branch on what went
// wrong without string-matching error text.
package errs

import "errors"

// Kind names one failure category from the taxonomy. The string values
// are what API responses and log lines show, so they're kept exactly as
// spec.md names them.
type Kind string

// Validation kinds: the candidate (block or transaction) is structurally
// or contextually invalid.
const (
	BadSignature       Kind = "BadSignature"
	BadHash            Kind = "BadHash"
	BadPreviousHash    Kind = "BadPreviousHash"
	BadIndex           Kind = "BadIndex"
	BadTimestamp       Kind = "BadTimestamp"
	UnknownTxType      Kind = "UnknownTxType"
	DuplicateTxId      Kind = "DuplicateTxId"
	DuplicateBlockHash Kind = "DuplicateBlockHash"
	WrongProposer      Kind = "WrongProposer"
	BadReward          Kind = "BadReward"
)

// State kinds: the candidate is well-formed but the ledger cannot apply it.
const (
	InsufficientBalance Kind = "InsufficientBalance"
	InsufficientStake   Kind = "InsufficientStake"
	StakeTooSmall       Kind = "StakeTooSmall"
	StakeLocked         Kind = "StakeLocked"
	SupplyCapExceeded   Kind = "SupplyCapExceeded"
)

// IO/storage kinds.
const (
	StorageCorrupt     Kind = "StorageCorrupt"
	StorageUnavailable Kind = "StorageUnavailable"
	SerializationError Kind = "SerializationError"
)

// Network kinds.
const (
	PeerUnreachable  Kind = "PeerUnreachable"
	PeerTimeout      Kind = "PeerTimeout"
	MalformedMessage Kind = "MalformedMessage"
)

// Lifecycle kinds.
const (
	NotReady     Kind = "NotReady"
	ShuttingDown Kind = "ShuttingDown"
)

// Error pairs a Kind with the underlying cause. Subsystems never swallow
// errors (spec.md §7's propagation policy); wrapping in an *Error instead
// of a bare fmt.Errorf lets a boundary (HTTP handler, log sink) recover
// the kind with KindOf without inspecting message text.
type Error struct {
	Kind  Kind
	Cause error
}

// New wraps cause with the given kind.
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is the same kind, so callers can write
// errors.Is(err, errs.New(errs.WrongProposer, nil)) — or, more simply,
// compare KindOf(err) == errs.WrongProposer directly.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Kind == e.Kind
}

// KindOf extracts the Kind carried by err, walking its Unwrap chain, or
// returns "" if neither err nor anything it wraps is an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
