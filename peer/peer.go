// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peer implements one side of the Litecoin P2P wire connection: the
// Connecting -> Handshaking -> Ready -> Closing -> Closed state machine, the
// version/verack handshake, ping/pong liveness, request tracking, and
// transaction dependency download. It knows nothing about chain validation
// or which other peers exist; PeerGroup supplies that.
package peer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ltcsuite/ltcspv/chaincfg"
	"github.com/ltcsuite/ltcspv/wire"
)

// State is one stage of a Peer's lifecycle.
type State int32

const (
	// StateConnecting is the state from construction until the TCP
	// connection (or SOCKS5 tunnel) completes.
	StateConnecting State = iota

	// StateHandshaking is the state from TCP connect until both sides
	// have exchanged version and verack.
	StateHandshaking

	// StateReady is the state once the handshake completes; pings,
	// pending requests, and dependency downloads are only meaningful
	// here.
	StateReady

	// StateClosing is entered on I/O error, protocol violation, or an
	// explicit Disconnect; the reader and writer loops are unwinding.
	StateClosing

	// StateClosed is the terminal state once both loops have exited and
	// the socket is closed.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	// pingInterval is how often a Ready peer is pinged to measure
	// round-trip latency and detect a dead connection.
	pingInterval = 2 * time.Second

	// pongTimeout is how long a ping may go unanswered before the
	// connection is closed with reason Timeout.
	pongTimeout = 20 * time.Second

	// pendingTimeout is how long a single getdata/getheaders request may
	// go unanswered before it fails with PeerTimeout.
	pendingTimeout = 30 * time.Second

	// outboundQueueSize bounds how many outbound messages may be queued
	// before Send blocks; a peer that can't keep up with its own queue
	// applies backpressure to its caller rather than growing without
	// bound.
	outboundQueueSize = 100

	// rttSamples bounds the ring buffer of round-trip ping samples kept
	// for latency reporting and download-peer election.
	rttSamples = 20
)

// Listeners are callbacks for inbound messages, invoked on the Peer's own
// read goroutine in on-the-wire order. A listener that blocks stalls that
// one connection's further reads; it must not call back into the Peer
// under the connection's own lock (Disconnect and Send are both safe to
// call from a listener, since neither takes that lock while blocking on
// the network).
type Listeners struct {
	OnVersion  func(p *Peer, msg *wire.MsgVersion)
	OnVerAck   func(p *Peer)
	OnAddr     func(p *Peer, msg *wire.MsgAddr)
	OnInv      func(p *Peer, msg *wire.MsgInv)
	OnGetData  func(p *Peer, msg *wire.MsgGetData)
	OnNotFound func(p *Peer, msg *wire.MsgNotFound)
	OnHeaders  func(p *Peer, msg *wire.MsgHeaders)
	OnTx       func(p *Peer, msg *wire.MsgTx)
	OnBlock    func(p *Peer, msg *wire.MsgBlock)
	OnReject   func(p *Peer, msg *wire.MsgReject)

	// OnDisconnect fires exactly once, when the connection reaches
	// StateClosed, with the reason it closed.
	OnDisconnect func(p *Peer, err error)
}

// Config carries everything a Peer needs that isn't specific to one
// connection attempt.
type Config struct {
	// ChainParams selects the network: magic bytes and default port.
	ChainParams *chaincfg.Params

	// Services are the service bits this side advertises in its own
	// version message. An SPV core normally advertises none of
	// SFNodeNetwork, since it can't serve full blocks.
	Services wire.ServiceFlag

	// UserAgent is the version string sent in the version message, e.g.
	// "/ltcspv:0.1.0/".
	UserAgent string

	// BestHeight is consulted when constructing the outbound version
	// message's LastBlock field.
	BestHeight func() int32

	// ProxyAddr, if set, routes the outbound TCP connection through a
	// SOCKS5 proxy at this address instead of dialing directly.
	ProxyAddr string

	// Listeners are the inbound message callbacks for this peer.
	Listeners Listeners

	// DialTimeout bounds the TCP (or SOCKS5) connect step. Zero selects
	// a default of 10 seconds.
	DialTimeout time.Duration
}

// Peer is one P2P connection to a remote node.
type Peer struct {
	cfg  Config
	addr string

	state atomic.Int32

	connMtx sync.Mutex
	conn    net.Conn

	negMtx           sync.Mutex
	protocolVersion  uint32
	remoteServices   wire.ServiceFlag
	remoteUserAgent  string
	remoteBestHeight int32
	gotVersion       bool
	gotVerAck        bool
	versionCh        chan struct{}
	verAckCh         chan struct{}

	pending *pendingTracker
	ping    *pinger

	sendCh chan wire.Message
	quitCh chan struct{}
	quitMu sync.Once

	wg sync.WaitGroup

	closeErr atomic.Value // error
}

// NewOutbound constructs a Peer that will dial addr once Connect is called.
func NewOutbound(cfg Config, addr string) *Peer {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	p := &Peer{
		cfg:     cfg,
		addr:    addr,
		pending: newPendingTracker(),
		sendCh:  make(chan wire.Message, outboundQueueSize),
		quitCh:  make(chan struct{}),
	}
	p.ping = newPinger(p)
	p.state.Store(int32(StateConnecting))
	return p
}

// State returns the peer's current lifecycle state.
func (p *Peer) State() State {
	return State(p.state.Load())
}

func (p *Peer) setState(s State) {
	p.state.Store(int32(s))
}

// Addr returns the remote address this peer connects (or connected) to.
func (p *Peer) Addr() string { return p.addr }

// ProtocolVersion returns the negotiated protocol version, valid once
// State() is StateReady or later.
func (p *Peer) ProtocolVersion() uint32 {
	p.negMtx.Lock()
	defer p.negMtx.Unlock()
	return p.protocolVersion
}

// RemoteServices returns the service bits the remote advertised in its
// version message.
func (p *Peer) RemoteServices() wire.ServiceFlag {
	p.negMtx.Lock()
	defer p.negMtx.Unlock()
	return p.remoteServices
}

// CanServeBlocks reports whether the remote advertised NODE_NETWORK. A
// peer that didn't is demoted to serving-only and must not be selected as
// the chain download peer.
func (p *Peer) CanServeBlocks() bool {
	return p.RemoteServices().HasFlag(wire.SFNodeNetwork)
}

// RemoteUserAgent returns the remote's advertised user agent string.
func (p *Peer) RemoteUserAgent() string {
	p.negMtx.Lock()
	defer p.negMtx.Unlock()
	return p.remoteUserAgent
}

// RemoteBestHeight returns the chain height the remote advertised at
// handshake time. It is a point-in-time snapshot, not updated afterward.
func (p *Peer) RemoteBestHeight() int32 {
	p.negMtx.Lock()
	defer p.negMtx.Unlock()
	return p.remoteBestHeight
}

// MeanPing returns the mean of the peer's recorded round-trip ping
// samples, or zero if none have completed yet.
func (p *Peer) MeanPing() time.Duration {
	return p.ping.mean()
}

// Connect dials addr (through the configured SOCKS5 proxy if any),
// performs the version/verack handshake, and starts the reader, writer,
// and ping loops. It blocks until the handshake completes, fails, or ctx
// is cancelled.
func (p *Peer) Connect(ctx context.Context) error {
	if p.cfg.ChainParams == nil {
		p.setState(StateClosed)
		return errors.New("peer: Config.ChainParams is required")
	}

	dialCtx, cancel := context.WithTimeout(ctx, p.cfg.DialTimeout)
	defer cancel()

	conn, err := dial(dialCtx, p.cfg.ProxyAddr, p.addr)
	if err != nil {
		p.setState(StateClosed)
		return fmt.Errorf("peer: dial %s: %w", p.addr, err)
	}

	p.connMtx.Lock()
	p.conn = conn
	p.connMtx.Unlock()

	p.setState(StateHandshaking)

	p.wg.Add(2)
	go p.outHandler()
	go p.inHandler()

	if err := p.negotiateHandshake(ctx); err != nil {
		p.Disconnect(err)
		return err
	}

	p.setState(StateReady)
	p.wg.Add(1)
	go p.ping.loop()

	return nil
}

// Send queues msg for delivery. It is safe to call from any goroutine,
// including a Listeners callback. Returns Error{Kind: Closed} if the
// connection is already closing or closed.
func (p *Peer) Send(msg wire.Message) error {
	select {
	case p.sendCh <- msg:
		return nil
	case <-p.quitCh:
		return Error{Kind: Closed, Detail: "send after disconnect"}
	}
}

// Disconnect moves the peer to StateClosing (if not already past it) and
// begins tearing down the connection. reason is delivered to
// Listeners.OnDisconnect once teardown completes; it may be nil for a
// caller-requested close.
func (p *Peer) Disconnect(reason error) {
	p.quitMu.Do(func() {
		p.setState(StateClosing)
		if reason != nil {
			p.closeErr.Store(reason)
		}
		close(p.quitCh)
	})
}

// WaitForDisconnect blocks until the reader and writer loops have exited
// and the socket is closed.
func (p *Peer) WaitForDisconnect() {
	p.wg.Wait()
}

func (p *Peer) outHandler() {
	defer p.wg.Done()
	for {
		select {
		case msg := <-p.sendCh:
			p.writeMessage(msg)
		case <-p.quitCh:
			p.teardown()
			return
		}
	}
}

func (p *Peer) writeMessage(msg wire.Message) {
	p.connMtx.Lock()
	conn := p.conn
	p.connMtx.Unlock()
	if conn == nil {
		return
	}
	if err := wire.WriteMessage(conn, msg, p.negotiatedVersion(), p.cfg.ChainParams.Net); err != nil {
		p.Disconnect(fmt.Errorf("peer: write %s: %w", msg.Command(), err))
	}
}

func (p *Peer) negotiatedVersion() uint32 {
	v := p.ProtocolVersion()
	if v == 0 {
		return wire.ProtocolVersion
	}
	return v
}

// inHandler drains the socket until a read error, explicit Disconnect, or
// three codec errors within 60 seconds.
func (p *Peer) inHandler() {
	defer p.wg.Done()

	var codecFailures []time.Time
	for {
		p.connMtx.Lock()
		conn := p.conn
		p.connMtx.Unlock()
		if conn == nil {
			return
		}

		msg, _, err := wire.ReadMessage(conn, p.negotiatedVersion(), p.cfg.ChainParams.Net)
		select {
		case <-p.quitCh:
			return
		default:
		}
		if err != nil {
			var codecErr wire.CodecError
			if errors.As(err, &codecErr) {
				now := time.Now()
				codecFailures = append(codecFailures, now)
				codecFailures = pruneOlderThan(codecFailures, now.Add(-60*time.Second))
				if len(codecFailures) >= 3 {
					p.Disconnect(Error{Kind: CodecFailure, Detail: err.Error()})
					return
				}
				continue
			}
			p.Disconnect(fmt.Errorf("peer: read: %w", err))
			return
		}

		p.dispatch(msg)
	}
}

func pruneOlderThan(ts []time.Time, cutoff time.Time) []time.Time {
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// dispatch delivers one inbound message to its pending-request matcher
// (if any) and its Listeners callback, in that order, on the calling
// (reader) goroutine, preserving on-the-wire order.
func (p *Peer) dispatch(msg wire.Message) {
	switch m := msg.(type) {
	case *wire.MsgVersion:
		p.handleVersion(m)
	case *wire.MsgVerAck:
		p.handleVerAck()
	case *wire.MsgPing:
		_ = p.Send(&wire.MsgPong{Nonce: m.Nonce})
	case *wire.MsgPong:
		p.ping.handlePong(m.Nonce)
	case *wire.MsgAddr:
		if p.cfg.Listeners.OnAddr != nil {
			p.cfg.Listeners.OnAddr(p, m)
		}
	case *wire.MsgInv:
		p.pending.completeInv(m)
		if p.cfg.Listeners.OnInv != nil {
			p.cfg.Listeners.OnInv(p, m)
		}
	case *wire.MsgGetData:
		if p.cfg.Listeners.OnGetData != nil {
			p.cfg.Listeners.OnGetData(p, m)
		}
	case *wire.MsgNotFound:
		p.pending.completeNotFound(m)
		if p.cfg.Listeners.OnNotFound != nil {
			p.cfg.Listeners.OnNotFound(p, m)
		}
	case *wire.MsgHeaders:
		p.pending.completeHeaders(m)
		if p.cfg.Listeners.OnHeaders != nil {
			p.cfg.Listeners.OnHeaders(p, m)
		}
	case *wire.MsgTx:
		p.pending.completeTx(m)
		if p.cfg.Listeners.OnTx != nil {
			p.cfg.Listeners.OnTx(p, m)
		}
	case *wire.MsgBlock:
		p.pending.completeBlock(m)
		if p.cfg.Listeners.OnBlock != nil {
			p.cfg.Listeners.OnBlock(p, m)
		}
	case *wire.MsgReject:
		if p.cfg.Listeners.OnReject != nil {
			p.cfg.Listeners.OnReject(p, m)
		}
	}
}

func (p *Peer) teardown() {
	p.connMtx.Lock()
	conn := p.conn
	p.conn = nil
	p.connMtx.Unlock()
	if conn != nil {
		conn.Close()
	}
	p.pending.cancelAll()
	p.setState(StateClosed)

	var err error
	if v := p.closeErr.Load(); v != nil {
		err = v.(error)
	}
	if p.cfg.Listeners.OnDisconnect != nil {
		p.cfg.Listeners.OnDisconnect(p, err)
	}
}
