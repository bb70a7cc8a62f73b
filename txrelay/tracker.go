// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txrelay tracks transactions this node has submitted for relay:
// their broadcast status and, for a batch of locally related
// transactions, the order broadcast must happen in so a child is never
// relayed before the unconfirmed parent it spends. It replaces the
// fee/script-prioritized admission pool a full node would carry with the
// much smaller bookkeeping problem an SPV core actually has: "has this of
// mine gone out yet, and if it failed, why".
package txrelay

import (
	"context"
	"sync"

	"github.com/ltcsuite/ltcspv/chaincfg/chainhash"
	"github.com/ltcsuite/ltcspv/peer"
	"github.com/ltcsuite/ltcspv/peergroup"
	"github.com/ltcsuite/ltcspv/wire"
)

// Status is the relay state of a tracked transaction.
type Status int

const (
	// StatusPending means the transaction is waiting on an
	// in-flight-batch ancestor to relay first.
	StatusPending Status = iota

	// StatusRelayed means BroadcastTransaction observed at least one
	// peer request it via getdata.
	StatusRelayed

	// StatusFailed means the broadcast attempt returned an error; Err
	// on the Status call carries the reason.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRelayed:
		return "relayed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type entry struct {
	tx         *wire.MsgTx
	status     Status
	err        error
	waitingOn  int
	dependents []chainhash.Hash
}

// Tracker submits transactions for broadcast through a PeerGroup,
// deferring a transaction until any of its unconfirmed ancestors also
// submitted through this Tracker have relayed first.
type Tracker struct {
	group *peergroup.PeerGroup

	mu      sync.RWMutex
	entries map[chainhash.Hash]*entry
}

// NewTracker returns a Tracker that broadcasts through group.
func NewTracker(group *peergroup.PeerGroup) *Tracker {
	return &Tracker{
		group:   group,
		entries: make(map[chainhash.Hash]*entry),
	}
}

// Submit records tx and broadcasts it, unless it spends an output of
// another transaction submitted through this Tracker that hasn't relayed
// yet, in which case it is queued and broadcast automatically once that
// ancestor relays. Resubmitting an already-tracked txid is a no-op.
func (t *Tracker) Submit(ctx context.Context, tx *wire.MsgTx) error {
	txid := tx.TxHash()

	t.mu.Lock()
	if _, exists := t.entries[txid]; exists {
		t.mu.Unlock()
		return nil
	}

	var waitingOn []chainhash.Hash
	for _, op := range tx.PrevOutpoints() {
		if parent, ok := t.entries[op.Hash]; ok && parent.status == StatusPending {
			waitingOn = append(waitingOn, op.Hash)
		}
	}

	e := &entry{tx: tx, status: StatusPending, waitingOn: len(waitingOn)}
	t.entries[txid] = e
	for _, parentID := range waitingOn {
		parent := t.entries[parentID]
		parent.dependents = append(parent.dependents, txid)
	}
	ready := len(waitingOn) == 0
	t.mu.Unlock()

	if !ready {
		return nil
	}
	return t.relay(ctx, txid)
}

// relay broadcasts the transaction recorded under txid and, once it
// relays, releases any dependent queued behind it.
func (t *Tracker) relay(ctx context.Context, txid chainhash.Hash) error {
	t.mu.RLock()
	e, ok := t.entries[txid]
	t.mu.RUnlock()
	if !ok {
		return Error{Kind: NotTracked, Detail: txid.String()}
	}

	err := t.group.BroadcastTransaction(ctx, e.tx)

	t.mu.Lock()
	if err != nil {
		e.status = StatusFailed
		e.err = err
		t.mu.Unlock()
		log.Warnf("txrelay: broadcast %s failed: %v", txid, err)
		return err
	}
	e.status = StatusRelayed
	ready := e.dependents
	e.dependents = nil
	t.mu.Unlock()

	for _, depID := range ready {
		t.mu.Lock()
		dep, ok := t.entries[depID]
		if ok {
			dep.waitingOn--
		}
		fire := ok && dep.waitingOn <= 0 && dep.status == StatusPending
		t.mu.Unlock()
		if fire {
			// A dependent's relay is itself a blocking broadcast; run it
			// on its own goroutine so a long chain of submissions doesn't
			// serialize on the caller's stack.
			go func(id chainhash.Hash) {
				if err := t.relay(context.Background(), id); err != nil {
					log.Warnf("txrelay: dependent broadcast %s failed: %v", id, err)
				}
			}(depID)
		}
	}

	return nil
}

// Status reports txid's current relay status. The returned error is
// non-nil only when Status is StatusFailed, carrying the broadcast
// failure, or the txid was never Submitted (Kind NotTracked).
func (t *Tracker) Status(txid chainhash.Hash) (Status, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[txid]
	if !ok {
		return 0, Error{Kind: NotTracked, Detail: txid.String()}
	}
	return e.status, e.err
}

// Forget drops txid from the tracker, normally once the caller has seen
// it confirmed and no longer needs relay bookkeeping for it.
func (t *Tracker) Forget(txid chainhash.Hash) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, txid)
}

// VerifyDependencies walks tx's unconfirmed ancestry as the network sees
// it, via the elected download peer's DownloadDependencies. Unlike
// Submit's batch tracking (which only knows about transactions this
// Tracker itself submitted), this asks a remote peer directly, so it can
// catch an ancestor this node never submitted itself.
func (t *Tracker) VerifyDependencies(ctx context.Context, tx *wire.MsgTx, opts peer.DependencyOptions) ([]*wire.MsgTx, error) {
	dp := t.group.DownloadPeer()
	if dp == nil {
		return nil, Error{Kind: NoDownloadPeer}
	}
	return dp.DownloadDependencies(ctx, tx, opts)
}

// ProbeMempool asks the elected download peer whether its mempool
// currently holds txid, following peer.GetPeerMempoolTransaction's
// mempool-probe protocol.
func (t *Tracker) ProbeMempool(ctx context.Context, txid chainhash.Hash) (*wire.MsgTx, error) {
	dp := t.group.DownloadPeer()
	if dp == nil {
		return nil, Error{Kind: NoDownloadPeer}
	}
	return dp.GetPeerMempoolTransaction(ctx, txid)
}
