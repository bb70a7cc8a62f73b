// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peergroup_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ltcsuite/ltcspv/chaincfg"
	"github.com/ltcsuite/ltcspv/peergroup"
	"github.com/ltcsuite/ltcspv/wire"
)

// fakeRemote accepts one connection and lets a test drive the server side
// of the wire protocol directly against a real PeerGroup under test.
type fakeRemote struct {
	t    *testing.T
	ln   net.Listener
	conn net.Conn
}

func newFakeRemote(t *testing.T) *fakeRemote {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	return &fakeRemote{t: t, ln: ln}
}

func (r *fakeRemote) addr() string { return r.ln.Addr().String() }

func (r *fakeRemote) acceptAndHandshake(services wire.ServiceFlag, lastBlock int32) {
	r.t.Helper()
	connCh := make(chan net.Conn, 1)
	go func() {
		conn, err := r.ln.Accept()
		if err == nil {
			connCh <- conn
		}
	}()
	select {
	case conn := <-connCh:
		r.conn = conn
	case <-time.After(5 * time.Second):
		r.t.Fatal("timed out waiting for connection")
		return
	}

	if _, ok := r.readMessage().(*wire.MsgVersion); !ok {
		r.t.Fatal("expected version message first")
	}
	r.write(&wire.MsgVersion{
		ProtocolVersion: int32(wire.ProtocolVersion),
		Services:        services,
		LastBlock:       lastBlock,
		UserAgent:       "/fakeremote:0.0/",
	})
	r.write(&wire.MsgVerAck{})
	if _, ok := r.readMessage().(*wire.MsgVerAck); !ok {
		r.t.Fatal("expected verack")
	}
}

func (r *fakeRemote) readMessage() wire.Message {
	r.t.Helper()
	msg, _, err := wire.ReadMessage(r.conn, wire.ProtocolVersion, wire.RegTest)
	if err != nil {
		r.t.Fatalf("remote read: %v", err)
	}
	return msg
}

func (r *fakeRemote) write(msg wire.Message) {
	r.t.Helper()
	if err := wire.WriteMessage(r.conn, msg, wire.ProtocolVersion, wire.RegTest); err != nil {
		r.t.Fatalf("remote write: %v", err)
	}
}

func newGroup(t *testing.T, addrs []string) *peergroup.PeerGroup {
	t.Helper()
	g := peergroup.New(peergroup.Config{
		ChainParams:   &chaincfg.RegressionNetParams,
		UserAgent:     "/ltcspv-test:0.0/",
		ExplicitAddrs: addrs,
		TargetSize:    len(addrs),
		DialTimeout:   2 * time.Second,
	})
	t.Cleanup(g.Stop)
	return g
}

func TestWaitForPeersResolvesOnceReady(t *testing.T) {
	r1 := newFakeRemote(t)
	r2 := newFakeRemote(t)

	g := newGroup(t, []string{r1.addr(), r2.addr()})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	g.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); r1.acceptAndHandshake(wire.SFNodeNetwork, 100) }()
	go func() { defer wg.Done(); r2.acceptAndHandshake(wire.SFNodeNetwork, 200) }()
	wg.Wait()

	if err := g.WaitForPeers(ctx, 2); err != nil {
		t.Fatalf("WaitForPeers: %v", err)
	}
}

// TestElectionStaysThenMovesOnDisconnect exercises both halves of the
// election policy: the first Ready, block-serving peer is elected and
// stays elected even once a higher-height peer joins (election only
// reruns on disconnect, stall, or ban); once the incumbent disconnects,
// election reruns and prefers the remaining peer's greater bestHeight.
func TestElectionStaysThenMovesOnDisconnect(t *testing.T) {
	r1 := newFakeRemote(t)
	r2 := newFakeRemote(t)

	g := newGroup(t, []string{r1.addr(), r2.addr()})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	g.Start(ctx)

	r1.acceptAndHandshake(wire.SFNodeNetwork, 100)
	if err := g.WaitForPeers(ctx, 1); err != nil {
		t.Fatalf("WaitForPeers(1): %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for g.DownloadPeer() == nil && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	first := g.DownloadPeer()
	if first == nil || first.RemoteBestHeight() != 100 {
		t.Fatalf("expected the sole Ready peer (height 100) elected, got %v", first)
	}

	r2.acceptAndHandshake(wire.SFNodeNetwork, 500)
	if err := g.WaitForPeers(ctx, 2); err != nil {
		t.Fatalf("WaitForPeers(2): %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if g.DownloadPeer() != first {
		t.Fatal("expected the incumbent download peer to stay elected when a second peer joins")
	}

	r1.conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if dp := g.DownloadPeer(); dp != nil && dp.RemoteBestHeight() == 500 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("expected re-election to land on the remaining peer after the incumbent disconnected")
}

func TestBroadcastTransactionWaitsForGetData(t *testing.T) {
	r1 := newFakeRemote(t)

	g := newGroup(t, []string{r1.addr()})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	g.Start(ctx)

	r1.acceptAndHandshake(wire.SFNodeNetwork, 100)
	if err := g.WaitForPeers(ctx, 1); err != nil {
		t.Fatalf("WaitForPeers: %v", err)
	}

	tx := &wire.MsgTx{Version: 1, TxOut: []*wire.TxOut{{Value: 1, PkScript: []byte{0x51}}}}
	txid := tx.TxHash()

	done := make(chan struct{})
	go func() {
		defer close(done)
		msg := r1.readMessage()
		inv, ok := msg.(*wire.MsgInv)
		if !ok || len(inv.InvList) != 1 || inv.InvList[0].Hash != txid {
			t.Error("expected inv advertising the broadcast tx")
			return
		}
		r1.write(&wire.MsgGetData{InvList: inv.InvList})
	}()

	if err := g.BroadcastTransaction(ctx, tx); err != nil {
		t.Fatalf("BroadcastTransaction: %v", err)
	}
	<-done
}

func TestBroadcastTransactionNoPeers(t *testing.T) {
	g := newGroup(t, nil)

	tx := &wire.MsgTx{Version: 1, TxOut: []*wire.TxOut{{Value: 1, PkScript: []byte{0x51}}}}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := g.BroadcastTransaction(ctx, tx)
	var pe peergroup.Error
	if pe, _ = err.(peergroup.Error); pe.Kind != peergroup.NoPeers {
		t.Fatalf("expected NoPeers, got %v", err)
	}
}
