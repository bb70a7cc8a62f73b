// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peergroup manages the pool of outbound PeerConnections an SPV
// core keeps open: discovering addresses, dialing and reconnecting with
// backoff, electing a single chain-download peer, broadcasting
// transactions, and distributing bloom filter updates. It knows nothing
// about header validation itself; that is HeaderSink's job (normally a
// chainengine.Engine).
package peergroup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ltcsuite/ltcspv/addrmgr"
	"github.com/ltcsuite/ltcspv/chaincfg"
	"github.com/ltcsuite/ltcspv/chaincfg/chainhash"
	"github.com/ltcsuite/ltcspv/chainengine"
	"github.com/ltcsuite/ltcspv/peer"
	"github.com/ltcsuite/ltcspv/wire"
)

// defaultTargetSize is how many Ready connections PeerGroup maintains
// absent an explicit Config.TargetSize.
const defaultTargetSize = 4

// defaultSeedTimeout bounds a single DNS or HTTP seed lookup.
const defaultSeedTimeout = 5 * time.Second

// stallTimeout is how long the download peer may go without header
// progress before election reruns.
const stallTimeout = 60 * time.Second

// banDuration is how long a peer is excluded from reconnection after the
// engine reports a validation violation on a header it supplied.
const banDuration = time.Hour

// broadcastTimeout bounds how long broadcastTransaction waits for any
// relayed-to peer to request the transaction back via getdata.
const broadcastTimeout = 30 * time.Second

// maintainInterval is how often the connection-maintenance loop checks
// whether the pool is below target size and a backed-off address has come
// due.
const maintainInterval = 2 * time.Second

// HeaderSink receives headers downloaded through the elected download
// peer. chainengine.Engine satisfies this.
type HeaderSink interface {
	AddHeader(header wire.BlockHeader) (chainengine.Acceptance, error)
}

// Config carries everything PeerGroup needs to discover, connect to, and
// manage a pool of peers.
type Config struct {
	ChainParams *chaincfg.Params

	// Services are the service bits this side advertises to every peer
	// it dials.
	Services wire.ServiceFlag

	UserAgent   string
	BestHeight  func() int32
	ProxyAddr   string
	DialTimeout time.Duration

	// TargetSize is how many Ready connections to maintain. Zero
	// selects defaultTargetSize.
	TargetSize int

	// ExplicitAddrs are host:port addresses to seed the address pool
	// with directly, bypassing DNS/HTTP discovery.
	ExplicitAddrs []string

	// HTTPSeeds are URLs PeerGroup fetches once at Start, each expected
	// to return a newline-separated list of host:port addresses.
	HTTPSeeds []string

	// SeedTimeout bounds each individual DNS or HTTP seed lookup. Zero
	// selects defaultSeedTimeout.
	SeedTimeout time.Duration

	// HeaderSink receives headers downloaded through the elected
	// download peer.
	HeaderSink HeaderSink
}

func (c Config) withDefaults() Config {
	if c.TargetSize <= 0 {
		c.TargetSize = defaultTargetSize
	}
	if c.SeedTimeout <= 0 {
		c.SeedTimeout = defaultSeedTimeout
	}
	return c
}

// managedPeer pairs a Peer with the bookkeeping PeerGroup keeps about it.
type managedPeer struct {
	peer       *peer.Peer
	lastHeader time.Time
}

// PeerGroup owns a pool of PeerConnections: discovery, connection
// maintenance, download-peer election, broadcast, and filter
// distribution.
type PeerGroup struct {
	cfg   Config
	addrs *addrmgr.AddrManager

	mu        sync.RWMutex
	managed   map[string]*managedPeer
	snapshot  []*peer.Peer // copy-on-write, read without locking by broadcast paths
	backoff   map[string]*backoffState
	bannedTil map[string]time.Time

	electMu      sync.Mutex
	downloadPeer *peer.Peer

	filterMu sync.Mutex
	filter   *wire.MsgFilterLoad

	broadcastMu  sync.Mutex
	broadcastWCh map[chainhash.Hash]chan struct{}

	readyMu   sync.Mutex
	readyCond *sync.Cond

	quitCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a PeerGroup. Call Start to begin discovery and
// connection maintenance.
func New(cfg Config) *PeerGroup {
	cfg = cfg.withDefaults()
	g := &PeerGroup{
		cfg:          cfg,
		addrs:        addrmgr.New(),
		managed:      make(map[string]*managedPeer),
		backoff:      make(map[string]*backoffState),
		bannedTil:    make(map[string]time.Time),
		broadcastWCh: make(map[chainhash.Hash]chan struct{}),
		quitCh:       make(chan struct{}),
	}
	g.readyCond = sync.NewCond(&g.readyMu)
	return g
}

// Start resolves configured seeds into the address pool and begins
// maintaining TargetSize open connections.
func (g *PeerGroup) Start(ctx context.Context) {
	g.resolveSeeds(ctx)

	g.wg.Add(1)
	go g.maintainLoop()

	g.wg.Add(1)
	go g.stallWatchLoop()
}

// Stop propagates cancellation to every in-flight operation, disconnects
// every peer, and waits up to five seconds for the connections to finish
// closing; if some have not by then, it logs a warning and takes no further
// action on them.
func (g *PeerGroup) Stop() {
	close(g.quitCh)

	g.readyMu.Lock()
	g.readyCond.Broadcast()
	g.readyMu.Unlock()

	g.mu.RLock()
	peers := append([]*peer.Peer(nil), g.snapshot...)
	g.mu.RUnlock()

	for _, p := range peers {
		p.Disconnect(nil)
	}

	done := make(chan struct{})
	go func() {
		for _, p := range peers {
			p.WaitForDisconnect()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Warnf("peergroup: %d peer(s) still closing after join deadline", len(peers))
	}

	g.wg.Wait()
}

// Peers returns a snapshot of the currently managed peers. The slice is
// safe to range over concurrently with connects/disconnects; it will not
// reflect changes made after the call returns.
func (g *PeerGroup) Peers() []*peer.Peer {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*peer.Peer(nil), g.snapshot...)
}

// readyPeers returns the subset of Peers() currently in StateReady.
func (g *PeerGroup) readyPeers() []*peer.Peer {
	all := g.Peers()
	ready := make([]*peer.Peer, 0, len(all))
	for _, p := range all {
		if p.State() == peer.StateReady {
			ready = append(ready, p)
		}
	}
	return ready
}

// WaitForPeers blocks until at least n peers are Ready, ctx is cancelled,
// or the group is stopped.
func (g *PeerGroup) WaitForPeers(ctx context.Context, n int) error {
	done := make(chan struct{})
	go func() {
		g.readyMu.Lock()
		for len(g.readyPeers()) < n {
			select {
			case <-g.quitCh:
				g.readyMu.Unlock()
				return
			default:
			}
			g.readyCond.Wait()
		}
		g.readyMu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-g.quitCh:
		return Error{Kind: Stopped}
	}
}

// addPeerLocked installs p under addr and republishes the copy-on-write
// snapshot. Caller holds g.mu.
func (g *PeerGroup) addPeerLocked(addr string, p *peer.Peer) {
	g.managed[addr] = &managedPeer{peer: p}
	g.republishSnapshotLocked()
}

func (g *PeerGroup) removePeerLocked(addr string) {
	delete(g.managed, addr)
	g.republishSnapshotLocked()
}

func (g *PeerGroup) republishSnapshotLocked() {
	snap := make([]*peer.Peer, 0, len(g.managed))
	for _, mp := range g.managed {
		snap = append(snap, mp.peer)
	}
	g.snapshot = snap
}

func (g *PeerGroup) peerConfig(addr string) peer.Config {
	return peer.Config{
		ChainParams: g.cfg.ChainParams,
		Services:    g.cfg.Services,
		UserAgent:   g.cfg.UserAgent,
		BestHeight:  g.cfg.BestHeight,
		ProxyAddr:   g.cfg.ProxyAddr,
		DialTimeout: g.cfg.DialTimeout,
		Listeners: peer.Listeners{
			OnHeaders:    g.onHeaders,
			OnGetData:    g.onGetData,
			OnDisconnect: g.onDisconnect,
		},
	}
}

func (g *PeerGroup) onDisconnect(p *peer.Peer, err error) {
	g.mu.Lock()
	g.removePeerLocked(p.Addr())
	g.mu.Unlock()

	g.recordBackoff(p.Addr())

	g.electMu.Lock()
	wasDownloadPeer := g.downloadPeer == p
	if wasDownloadPeer {
		g.downloadPeer = nil
	}
	g.electMu.Unlock()
	if wasDownloadPeer {
		g.reelect()
	}

	log.Debugf("peergroup: %s disconnected: %v", p.Addr(), err)
}

func (g *PeerGroup) onGetData(p *peer.Peer, msg *wire.MsgGetData) {
	g.broadcastMu.Lock()
	defer g.broadcastMu.Unlock()
	for _, iv := range msg.InvList {
		if iv.Type != wire.InvTypeTx {
			continue
		}
		if ch, ok := g.broadcastWCh[iv.Hash]; ok {
			close(ch)
			delete(g.broadcastWCh, iv.Hash)
		}
	}
}

func (g *PeerGroup) applyCurrentFilter(p *peer.Peer) {
	g.filterMu.Lock()
	f := g.filter
	g.filterMu.Unlock()
	if f != nil {
		_ = p.Send(f)
	}
}

func addrDisplay(p *peer.Peer) string {
	return fmt.Sprintf("%s (%s)", p.Addr(), p.RemoteUserAgent())
}
