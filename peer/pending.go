// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"sync"

	"github.com/ltcsuite/ltcspv/chaincfg/chainhash"
	"github.com/ltcsuite/ltcspv/wire"
)

// dataResult is delivered to a getdata caller once the matching tx, block,
// or notfound arrives.
type dataResult struct {
	tx       *wire.MsgTx
	block    *wire.MsgBlock
	notFound bool
}

type invKey struct {
	typ  wire.InvType
	hash chainhash.Hash
}

// pendingTracker owns the inflightRequests map described in the
// concurrency model: single-threaded from the reader goroutine's
// perspective for completion, with registration and cancellation guarded
// by a mutex since those also happen from caller goroutines.
type pendingTracker struct {
	mtx        sync.Mutex
	dataReqs   map[invKey]chan dataResult
	headerReqs []chan *wire.MsgHeaders
	invWatch   map[chainhash.Hash]chan struct{}
}

func newPendingTracker() *pendingTracker {
	return &pendingTracker{
		dataReqs: make(map[invKey]chan dataResult),
		invWatch: make(map[chainhash.Hash]chan struct{}),
	}
}

// registerInv creates a pending entry that fires once an inv advertising
// txid (as a tx) arrives, for the mempool probe's "does the peer have it"
// half.
func (t *pendingTracker) registerInv(txid chainhash.Hash) chan struct{} {
	ch := make(chan struct{})
	t.mtx.Lock()
	t.invWatch[txid] = ch
	t.mtx.Unlock()
	return ch
}

func (t *pendingTracker) forgetInv(txid chainhash.Hash) {
	t.mtx.Lock()
	delete(t.invWatch, txid)
	t.mtx.Unlock()
}

// completeInv closes the watcher for any txid in msg that a caller is
// currently probing for via registerInv.
func (t *pendingTracker) completeInv(msg *wire.MsgInv) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	for _, iv := range msg.InvList {
		if iv.Type != wire.InvTypeTx {
			continue
		}
		if ch, ok := t.invWatch[iv.Hash]; ok {
			close(ch)
			delete(t.invWatch, iv.Hash)
		}
	}
}

// registerData creates a pending entry for a getdata of iv's type and
// hash. The returned channel receives exactly one dataResult, or nothing
// if the caller abandons the wait first (call forgetData to clean up in
// that case).
func (t *pendingTracker) registerData(iv *wire.InvVect) chan dataResult {
	ch := make(chan dataResult, 1)
	t.mtx.Lock()
	t.dataReqs[invKey{typ: iv.Type, hash: iv.Hash}] = ch
	t.mtx.Unlock()
	return ch
}

// forgetData removes a pending entry that the caller gave up waiting on
// (timeout or cancellation), so a late reply finds nothing to complete.
func (t *pendingTracker) forgetData(iv *wire.InvVect) {
	t.mtx.Lock()
	delete(t.dataReqs, invKey{typ: iv.Type, hash: iv.Hash})
	t.mtx.Unlock()
}

func (t *pendingTracker) takeData(key invKey) (chan dataResult, bool) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	ch, ok := t.dataReqs[key]
	if ok {
		delete(t.dataReqs, key)
	}
	return ch, ok
}

func (t *pendingTracker) completeTx(msg *wire.MsgTx) {
	key := invKey{typ: wire.InvTypeTx, hash: msg.TxHash()}
	if ch, ok := t.takeData(key); ok {
		ch <- dataResult{tx: msg}
	}
}

func (t *pendingTracker) completeBlock(msg *wire.MsgBlock) {
	key := invKey{typ: wire.InvTypeBlock, hash: msg.BlockHash()}
	if ch, ok := t.takeData(key); ok {
		ch <- dataResult{block: msg}
	}
}

// completeNotFound answers every inventory vector the remote reports it
// doesn't have; for a tx request this is treated as "already confirmed",
// per the dependency-download rule.
func (t *pendingTracker) completeNotFound(msg *wire.MsgNotFound) {
	for _, iv := range msg.InvList {
		key := invKey{typ: iv.Type, hash: iv.Hash}
		if ch, ok := t.takeData(key); ok {
			ch <- dataResult{notFound: true}
		}
	}
}

// registerHeaders creates a pending entry for an outstanding getheaders.
// Multiple may be outstanding at once; they complete in FIFO order, since
// a peer answers getheaders in the order it received them.
func (t *pendingTracker) registerHeaders() chan *wire.MsgHeaders {
	ch := make(chan *wire.MsgHeaders, 1)
	t.mtx.Lock()
	t.headerReqs = append(t.headerReqs, ch)
	t.mtx.Unlock()
	return ch
}

func (t *pendingTracker) forgetHeaders(ch chan *wire.MsgHeaders) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	for i, c := range t.headerReqs {
		if c == ch {
			t.headerReqs = append(t.headerReqs[:i], t.headerReqs[i+1:]...)
			return
		}
	}
}

func (t *pendingTracker) completeHeaders(msg *wire.MsgHeaders) {
	t.mtx.Lock()
	if len(t.headerReqs) == 0 {
		t.mtx.Unlock()
		return
	}
	ch := t.headerReqs[0]
	t.headerReqs = t.headerReqs[1:]
	t.mtx.Unlock()
	ch <- msg
}

// cancelAll closes every outstanding request's channel, called once the
// connection tears down so no caller is left waiting forever; a closed
// channel reads as the zero value, which callers treat as Error{Kind:
// Closed}.
func (t *pendingTracker) cancelAll() {
	t.mtx.Lock()
	dataReqs := t.dataReqs
	t.dataReqs = make(map[invKey]chan dataResult)
	headerReqs := t.headerReqs
	t.headerReqs = nil
	invWatch := t.invWatch
	t.invWatch = make(map[chainhash.Hash]chan struct{})
	t.mtx.Unlock()

	for _, ch := range dataReqs {
		close(ch)
	}
	for _, ch := range headerReqs {
		close(ch)
	}
	for _, ch := range invWatch {
		close(ch)
	}
}
