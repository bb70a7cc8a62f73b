// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainengine

import "fmt"

// VerificationKind identifies which header-validation rule rejected a
// header, matching the validation pipeline steps in order.
type VerificationKind int

const (
	// VerifyParentUnknown means the header's parent is not yet in the
	// store; callers normally never see this as a VerificationError since
	// addHeader classifies it Orphan instead, but it is available to code
	// that drains the orphan buffer directly.
	VerifyParentUnknown VerificationKind = iota

	// VerifyBadPow means the header hash exceeds its own decompressed
	// target, or its bits exceed the network's maxTarget. AddHeader also
	// reports this kind for a header whose hash it rejected before,
	// whichever rule rejected it the first time.
	VerifyBadPow

	// VerifyBadRetarget means a retarget-height header's bits do not
	// match the recomputed expected bits.
	VerifyBadRetarget

	// VerifyBadBits means a non-retarget header's bits do not match its
	// parent's (or, on testnet, the scanned-back cursor's).
	VerifyBadBits
)

func (k VerificationKind) String() string {
	switch k {
	case VerifyParentUnknown:
		return "parent unknown"
	case VerifyBadPow:
		return "proof of work"
	case VerifyBadRetarget:
		return "retarget mismatch"
	case VerifyBadBits:
		return "bits mismatch"
	default:
		return "unknown verification failure"
	}
}

// VerificationError is returned by AddHeader when a header fails proof of
// work, a difficulty check, or (in a fuller engine) checkpoint agreement.
// Per the error-handling design, the peer that delivered it is disconnected
// and the header is never written to the store.
type VerificationError struct {
	Kind   VerificationKind
	Detail string
}

func (e VerificationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("verification error: %s", e.Kind)
	}
	return fmt.Sprintf("verification error: %s: %s", e.Kind, e.Detail)
}

// StorageError wraps a BlockStore failure encountered while validating or
// committing a header. It is fatal to the engine: the caller should stop
// feeding headers and surface the error to the embedder, per the
// chain-level escalation policy.
type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

// Unwrap allows errors.Is/errors.As to reach the underlying store error.
func (e StorageError) Unwrap() error {
	return e.Err
}
