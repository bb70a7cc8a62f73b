// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import "fmt"

// Kind identifies which failure closed a connection or failed a pending
// request, matching the error taxonomy for single-peer errors.
type Kind int

const (
	// Timeout means a ping went unanswered for 20 seconds, or the
	// handshake did not complete in time.
	Timeout Kind = iota

	// ProtocolViolation means the remote sent a message that doesn't
	// belong in the current state (a second version, a message before
	// the handshake completes, and so on).
	ProtocolViolation

	// CodecFailure means three or more framing errors arrived within 60
	// seconds; the connection is no longer trustworthy.
	CodecFailure

	// PeerTimeout means a single pending getdata/getheaders request
	// aged out after 30 seconds without a matching reply.
	PeerTimeout

	// DependencyLimit means a downloadDependencies BFS exceeded its depth
	// or wall-clock bound.
	DependencyLimit

	// Cancelled means the caller's context was cancelled before the
	// operation completed.
	Cancelled

	// NotInMempool means a mempool probe found the peer doesn't have the
	// transaction.
	NotInMempool

	// Closed means the connection is not usable for the operation: the
	// Peer is not in Ready (not yet, or no longer), or its handshake was
	// aborted.
	Closed
)

func (k Kind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case ProtocolViolation:
		return "protocol violation"
	case CodecFailure:
		return "codec failure"
	case PeerTimeout:
		return "peer timeout"
	case DependencyLimit:
		return "dependency limit"
	case Cancelled:
		return "cancelled"
	case NotInMempool:
		return "not in mempool"
	case Closed:
		return "closed"
	default:
		return "unknown peer error"
	}
}

// Error reports a peer-level failure: what kind, and (where relevant) the
// detail that identifies it.
type Error struct {
	Kind   Kind
	Detail string
}

func (e Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("peer: %s", e.Kind)
	}
	return fmt.Sprintf("peer: %s: %s", e.Kind, e.Detail)
}
