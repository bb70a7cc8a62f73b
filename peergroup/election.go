// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peergroup

import (
	"math"
	"sort"
	"time"

	"github.com/ltcsuite/ltcspv/peer"
	"github.com/ltcsuite/ltcspv/wire"
)

// DownloadPeer returns the currently elected chain-download peer, or nil
// if none is elected (no Ready peer can serve blocks).
func (g *PeerGroup) DownloadPeer() *peer.Peer {
	g.electMu.Lock()
	defer g.electMu.Unlock()
	return g.downloadPeer
}

// maybeElect runs election only if no download peer is currently set,
// called opportunistically whenever a new peer reaches Ready.
func (g *PeerGroup) maybeElect() {
	g.electMu.Lock()
	need := g.downloadPeer == nil
	g.electMu.Unlock()
	if need {
		g.reelect()
	}
}

// reelect picks the Ready, block-serving peer with the greatest
// advertised bestHeight, breaking ties by lowest mean ping, and installs
// it as the download peer. A peer with no ping samples yet sorts after
// one with measured latency, since an untested connection is a worse bet
// than a known-fast one.
func (g *PeerGroup) reelect() {
	candidates := make([]*peer.Peer, 0)
	for _, p := range g.readyPeers() {
		if p.CanServeBlocks() {
			candidates = append(candidates, p)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		hi, hj := candidates[i].RemoteBestHeight(), candidates[j].RemoteBestHeight()
		if hi != hj {
			return hi > hj
		}
		return pingRank(candidates[i]) < pingRank(candidates[j])
	})

	g.electMu.Lock()
	defer g.electMu.Unlock()

	if len(candidates) == 0 {
		g.downloadPeer = nil
		return
	}
	g.downloadPeer = candidates[0]

	g.mu.Lock()
	if mp, ok := g.managed[g.downloadPeer.Addr()]; ok {
		mp.lastHeader = time.Now()
	}
	g.mu.Unlock()

	log.Infof("peergroup: elected %s as download peer", addrDisplay(g.downloadPeer))
}

func pingRank(p *peer.Peer) time.Duration {
	if mp := p.MeanPing(); mp > 0 {
		return mp
	}
	return time.Duration(math.MaxInt64)
}

// onHeaders feeds headers arriving on the elected download peer into
// HeaderSink. Headers received from any other peer are ignored: sync
// progress flows through exactly one connection at a time, per the
// election policy.
func (g *PeerGroup) onHeaders(p *peer.Peer, msg *wire.MsgHeaders) {
	if g.DownloadPeer() != p {
		return
	}
	if g.cfg.HeaderSink == nil {
		return
	}

	for _, h := range msg.Headers {
		_, err := g.cfg.HeaderSink.AddHeader(*h)
		if err != nil {
			log.Warnf("peergroup: %s offered a header rejected by HeaderSink: %v", p.Addr(), err)
			g.banPeer(p, err)
			return
		}
	}

	g.mu.Lock()
	if mp, ok := g.managed[p.Addr()]; ok {
		mp.lastHeader = time.Now()
	}
	g.mu.Unlock()
}

// banPeer excludes addr from reconnection for banDuration and disconnects
// it, used when the engine reports a validation violation on a header it
// supplied.
func (g *PeerGroup) banPeer(p *peer.Peer, reason error) {
	g.mu.Lock()
	g.bannedTil[p.Addr()] = time.Now().Add(banDuration)
	g.mu.Unlock()
	p.Disconnect(reason)
}

// stallWatchLoop reruns election if the current download peer has made no
// header progress for stallTimeout.
func (g *PeerGroup) stallWatchLoop() {
	defer g.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			g.checkStall()
		case <-g.quitCh:
			return
		}
	}
}

func (g *PeerGroup) checkStall() {
	dp := g.DownloadPeer()
	if dp == nil {
		g.reelect()
		return
	}

	g.mu.RLock()
	mp, ok := g.managed[dp.Addr()]
	var lastHeader time.Time
	if ok {
		lastHeader = mp.lastHeader
	}
	g.mu.RUnlock()

	if !ok || time.Since(lastHeader) < stallTimeout {
		return
	}

	log.Warnf("peergroup: download peer %s stalled, re-electing", dp.Addr())
	g.electMu.Lock()
	g.downloadPeer = nil
	g.electMu.Unlock()
	g.reelect()
}
