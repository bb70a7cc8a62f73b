// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"context"
	"time"

	"github.com/ltcsuite/ltcspv/chaincfg/chainhash"
	"github.com/ltcsuite/ltcspv/wire"
)

const (
	// defaultDependencyDepth bounds downloadDependencies's BFS absent an
	// explicit caller override.
	defaultDependencyDepth = 1000

	// defaultDependencyWallClock bounds the whole BFS call regardless of
	// how many ancestors remain unresolved.
	defaultDependencyWallClock = 60 * time.Second
)

// DependencyOptions tunes DownloadDependencies. The zero value selects the
// documented defaults.
type DependencyOptions struct {
	MaxDepth  int
	WallClock time.Duration
}

func (o DependencyOptions) withDefaults() DependencyOptions {
	if o.MaxDepth <= 0 {
		o.MaxDepth = defaultDependencyDepth
	}
	if o.WallClock <= 0 {
		o.WallClock = defaultDependencyWallClock
	}
	return o
}

// requestData issues a getdata for iv and waits for the matching tx,
// block, or notfound, honoring ctx, the connection's own quitCh, and the
// fixed 30-second pending-request timeout, whichever comes first.
func (p *Peer) requestData(ctx context.Context, iv *wire.InvVect) (dataResult, error) {
	if p.State() != StateReady {
		return dataResult{}, Error{Kind: Closed, Detail: "not ready"}
	}

	ch := p.pending.registerData(iv)
	getdata := &wire.MsgGetData{}
	if err := getdata.AddInvVect(iv); err != nil {
		p.pending.forgetData(iv)
		return dataResult{}, err
	}
	if err := p.Send(getdata); err != nil {
		p.pending.forgetData(iv)
		return dataResult{}, err
	}

	timer := time.NewTimer(pendingTimeout)
	defer timer.Stop()

	select {
	case res, ok := <-ch:
		if !ok {
			return dataResult{}, Error{Kind: Closed, Detail: "connection closed while waiting"}
		}
		return res, nil
	case <-timer.C:
		p.pending.forgetData(iv)
		return dataResult{}, Error{Kind: PeerTimeout, Detail: "getdata timed out"}
	case <-ctx.Done():
		p.pending.forgetData(iv)
		return dataResult{}, Error{Kind: Cancelled, Detail: ctx.Err().Error()}
	case <-p.quitCh:
		return dataResult{}, Error{Kind: Closed, Detail: "connection closed"}
	}
}

// GetPeerMempoolTransaction probes whether the remote's mempool holds
// txid: it sends a mempool request, waits up to the pending-request
// timeout for the remote to advertise txid via inv, and if it does,
// follows with a getdata to fetch it. A miss (no matching inv before the
// timeout) surfaces as Error{Kind: NotInMempool}.
func (p *Peer) GetPeerMempoolTransaction(ctx context.Context, txid chainhash.Hash) (*wire.MsgTx, error) {
	if p.State() != StateReady {
		return nil, Error{Kind: Closed, Detail: "not ready"}
	}

	invCh := p.pending.registerInv(txid)
	if err := p.Send(&wire.MsgMemPool{}); err != nil {
		p.pending.forgetInv(txid)
		return nil, err
	}

	timer := time.NewTimer(pendingTimeout)
	defer timer.Stop()

	select {
	case <-invCh:
		// Fall through to fetch below.
	case <-timer.C:
		p.pending.forgetInv(txid)
		return nil, Error{Kind: NotInMempool, Detail: txid.String()}
	case <-ctx.Done():
		p.pending.forgetInv(txid)
		return nil, Error{Kind: Cancelled, Detail: ctx.Err().Error()}
	case <-p.quitCh:
		return nil, Error{Kind: Closed, Detail: "connection closed"}
	}

	res, err := p.requestData(ctx, &wire.InvVect{Type: wire.InvTypeTx, Hash: txid})
	if err != nil {
		return nil, err
	}
	if res.notFound {
		return nil, Error{Kind: NotInMempool, Detail: txid.String()}
	}
	return res.tx, nil
}

// DownloadDependencies walks tx's unconfirmed ancestry breadth-first,
// fetching each input's previous transaction over this connection, and
// returns them topologically sorted children before parents. An ancestor
// the remote reports notfound is treated as already confirmed and
// skipped, not an error. Exceeding MaxDepth or WallClock returns the
// partial list gathered so far alongside Error{Kind: DependencyLimit}, per
// the "return partial list with error flag" policy; the peer is not
// disconnected for this.
func (p *Peer) DownloadDependencies(ctx context.Context, tx *wire.MsgTx, opts DependencyOptions) ([]*wire.MsgTx, error) {
	opts = opts.withDefaults()

	wallClockDeadline := time.Now().Add(opts.WallClock)
	wallClockCtx, cancelWallClock := context.WithDeadline(ctx, wallClockDeadline)
	defer cancelWallClock()

	seen := map[chainhash.Hash]bool{tx.TxHash(): true}
	result := make([]*wire.MsgTx, 0)

	queue := uniqueOutpointTxids(tx.PrevOutpoints())
	depth := 0

	for len(queue) > 0 {
		if depth >= opts.MaxDepth {
			return result, Error{Kind: DependencyLimit, Detail: "depth limit exceeded"}
		}
		if time.Now().After(wallClockDeadline) {
			return result, Error{Kind: DependencyLimit, Detail: "wall clock exceeded"}
		}
		depth++

		next := make([]chainhash.Hash, 0)
		for _, txid := range queue {
			if seen[txid] {
				continue
			}
			seen[txid] = true

			res, err := p.requestData(wallClockCtx, &wire.InvVect{Type: wire.InvTypeTx, Hash: txid})
			if err != nil {
				if pe, ok := err.(Error); ok && pe.Kind == Cancelled {
					if ctx.Err() != nil {
						return result, Error{Kind: Cancelled, Detail: "caller context cancelled"}
					}
					return result, Error{Kind: DependencyLimit, Detail: "wall clock exceeded"}
				}
				return result, err
			}
			if res.notFound || res.tx == nil {
				// Already confirmed into a block; nothing further to
				// walk from here.
				continue
			}

			result = append(result, res.tx)
			next = append(next, uniqueOutpointTxids(res.tx.PrevOutpoints())...)
		}
		queue = next
	}

	return result, nil
}

// uniqueOutpointTxids extracts the distinct txids referenced by outs,
// preserving first-seen order.
func uniqueOutpointTxids(outs []wire.OutPoint) []chainhash.Hash {
	seen := make(map[chainhash.Hash]bool, len(outs))
	out := make([]chainhash.Hash, 0, len(outs))
	for _, o := range outs {
		if seen[o.Hash] {
			continue
		}
		seen[o.Hash] = true
		out = append(out, o.Hash)
	}
	return out
}

