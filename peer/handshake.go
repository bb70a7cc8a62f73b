// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"net"
	"time"

	"github.com/ltcsuite/ltcspv/wire"
)

// negotiateHandshake runs the Handshaking state: send our version, wait
// for the remote's version and verack, and send our own verack. The
// negotiated protocol version and remote capabilities are recorded as soon
// as the remote's version message is handled. Message order is not
// checked here, and no message is rejected as a protocol violation.
func (p *Peer) negotiateHandshake(ctx context.Context) error {
	nonce, err := randomUint64()
	if err != nil {
		return err
	}

	if err := p.Send(p.localVersionMsg(nonce)); err != nil {
		return err
	}

	var gotVersion, gotVerAck bool
	deadline := time.NewTimer(p.cfg.DialTimeout)
	defer deadline.Stop()

	for !gotVersion || !gotVerAck {
		select {
		case <-ctx.Done():
			return Error{Kind: Cancelled, Detail: "handshake cancelled"}
		case <-deadline.C:
			return Error{Kind: Timeout, Detail: "handshake timed out"}
		case <-p.quitCh:
			return Error{Kind: Closed, Detail: "handshake aborted"}
		case <-p.versionReceived():
			gotVersion = true
		case <-p.verAckReceived():
			gotVerAck = true
		}
	}

	return p.Send(&wire.MsgVerAck{})
}

// versionCh and verAckCh are set up lazily so negotiateHandshake can wait
// on them without a race against dispatch, which may run on the reader
// goroutine before Connect finishes wiring up these channels.
func (p *Peer) versionReceived() <-chan struct{} {
	p.negMtx.Lock()
	defer p.negMtx.Unlock()
	if p.versionCh == nil {
		p.versionCh = make(chan struct{})
		if p.gotVersion {
			close(p.versionCh)
		}
	}
	return p.versionCh
}

func (p *Peer) verAckReceived() <-chan struct{} {
	p.negMtx.Lock()
	defer p.negMtx.Unlock()
	if p.verAckCh == nil {
		p.verAckCh = make(chan struct{})
		if p.gotVerAck {
			close(p.verAckCh)
		}
	}
	return p.verAckCh
}

func (p *Peer) handleVersion(msg *wire.MsgVersion) {
	p.negMtx.Lock()
	p.remoteServices = msg.Services
	p.remoteUserAgent = msg.UserAgent
	p.remoteBestHeight = msg.LastBlock
	p.protocolVersion = minUint32(wire.ProtocolVersion, uint32(msg.ProtocolVersion))
	p.gotVersion = true
	if p.versionCh != nil {
		close(p.versionCh)
		p.versionCh = nil
	} else {
		// Mark so a later call to versionReceived returns an
		// already-closed channel instead of waiting forever.
		ch := make(chan struct{})
		close(ch)
		p.versionCh = ch
	}
	p.negMtx.Unlock()

	if p.cfg.Listeners.OnVersion != nil {
		p.cfg.Listeners.OnVersion(p, msg)
	}
}

func (p *Peer) handleVerAck() {
	p.negMtx.Lock()
	p.gotVerAck = true
	if p.verAckCh != nil {
		close(p.verAckCh)
		p.verAckCh = nil
	} else {
		ch := make(chan struct{})
		close(ch)
		p.verAckCh = ch
	}
	p.negMtx.Unlock()

	if p.cfg.Listeners.OnVerAck != nil {
		p.cfg.Listeners.OnVerAck(p)
	}
}

func (p *Peer) localVersionMsg(nonce uint64) *wire.MsgVersion {
	var lastBlock int32
	if p.cfg.BestHeight != nil {
		lastBlock = p.cfg.BestHeight()
	}

	host, portStr, _ := net.SplitHostPort(p.addr)
	remoteAddr := wire.NetAddress{IP: net.ParseIP(host), Port: parsePort(portStr)}

	msg := &wire.MsgVersion{
		ProtocolVersion: int32(wire.ProtocolVersion),
		Services:        p.cfg.Services,
		Timestamp:       time.Now().Unix(),
		AddrYou:         remoteAddr,
		AddrMe:          wire.NetAddress{},
		Nonce:           nonce,
		UserAgent:       p.cfg.UserAgent,
		LastBlock:       lastBlock,
		DisableRelayTx:  false,
	}
	return msg
}

func randomUint64() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func minUint32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func parsePort(s string) uint16 {
	var port uint16
	for _, c := range s {
		if c < '0' || c > '9' {
			return port
		}
		port = port*10 + uint16(c-'0')
	}
	return port
}
