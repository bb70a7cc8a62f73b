// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peergroup

import (
	"context"
	"time"

	"github.com/ltcsuite/ltcspv/wire"
)

// BroadcastTransaction relays tx's inv to every Ready peer (at least
// min(numPeers, 2), the floor named by the broadcast contract) and waits
// for at least one of them to request it back via getdata before
// considering it broadcast. It does not wait for the transaction to be
// accepted into any peer's mempool, only for observed relay.
func (g *PeerGroup) BroadcastTransaction(ctx context.Context, tx *wire.MsgTx) error {
	peers := g.readyPeers()
	if len(peers) == 0 {
		return Error{Kind: NoPeers}
	}

	txid := tx.TxHash()

	g.broadcastMu.Lock()
	ch := make(chan struct{})
	g.broadcastWCh[txid] = ch
	g.broadcastMu.Unlock()
	defer func() {
		g.broadcastMu.Lock()
		delete(g.broadcastWCh, txid)
		g.broadcastMu.Unlock()
	}()

	inv := &wire.MsgInv{InvList: []*wire.InvVect{{Type: wire.InvTypeTx, Hash: txid}}}
	relayed := 0
	for _, p := range peers {
		if err := p.Send(inv); err == nil {
			relayed++
		}
	}
	if relayed == 0 {
		return Error{Kind: NoPeers, Detail: "no peer accepted the inv"}
	}

	timer := time.NewTimer(broadcastTimeout)
	defer timer.Stop()

	select {
	case <-ch:
		return nil
	case <-timer.C:
		return Error{Kind: BroadcastFailed, Detail: "no getdata within the broadcast window"}
	case <-ctx.Done():
		return ctx.Err()
	case <-g.quitCh:
		return Error{Kind: Stopped}
	}
}

// SetFilter replaces the bloom filter sent to every Ready peer (and any
// peer that subsequently reaches Ready), in parallel. Delivery order
// across peers is unimportant, but within any one connection the
// filterload is queued ahead of any getdata issued after this call
// returns, since Send preserves per-connection FIFO order.
func (g *PeerGroup) SetFilter(filter *wire.MsgFilterLoad) {
	g.filterMu.Lock()
	g.filter = filter
	g.filterMu.Unlock()

	for _, p := range g.readyPeers() {
		_ = p.Send(filter)
	}
}
