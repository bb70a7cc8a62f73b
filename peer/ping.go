// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"sync"
	"time"

	"github.com/ltcsuite/ltcspv/wire"
)

// pinger drives the 2-second liveness ping and keeps a ring buffer of
// round-trip samples for latency reporting and download-peer election.
type pinger struct {
	p *Peer

	mtx       sync.Mutex
	samples   [rttSamples]time.Duration
	count     int
	next      int
	outNonce  uint64
	outSentAt time.Time
	awaiting  bool
}

func newPinger(p *Peer) *pinger {
	return &pinger{p: p}
}

// loop sends a ping every pingInterval and disconnects the peer with
// Timeout if pongTimeout elapses without a matching pong.
func (pg *pinger) loop() {
	defer pg.p.wg.Done()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pg.sendPing()
		case <-pg.p.quitCh:
			return
		}
	}
}

func (pg *pinger) sendPing() {
	nonce, err := randomUint64()
	if err != nil {
		return
	}

	pg.mtx.Lock()
	if pg.awaiting {
		timedOut := time.Since(pg.outSentAt) > pongTimeout
		pg.mtx.Unlock()
		if timedOut {
			pg.p.Disconnect(Error{Kind: Timeout, Detail: "no pong within 20s"})
		}
		return
	}
	pg.outNonce = nonce
	pg.outSentAt = time.Now()
	pg.awaiting = true
	pg.mtx.Unlock()

	_ = pg.p.Send(&wire.MsgPing{Nonce: nonce})
}

// handlePong records a round-trip sample if nonce matches the outstanding
// ping; a pong for an older or unexpected nonce is ignored.
func (pg *pinger) handlePong(nonce uint64) {
	pg.mtx.Lock()
	defer pg.mtx.Unlock()

	if !pg.awaiting || nonce != pg.outNonce {
		return
	}
	pg.awaiting = false

	rtt := time.Since(pg.outSentAt)
	pg.samples[pg.next] = rtt
	pg.next = (pg.next + 1) % rttSamples
	if pg.count < rttSamples {
		pg.count++
	}
}

// mean returns the average of the recorded round-trip samples, or zero if
// none have completed yet.
func (pg *pinger) mean() time.Duration {
	pg.mtx.Lock()
	defer pg.mtx.Unlock()

	if pg.count == 0 {
		return 0
	}
	var total time.Duration
	for i := 0; i < pg.count; i++ {
		total += pg.samples[i]
	}
	return total / time.Duration(pg.count)
}
