// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/ltcsuite/ltcspv/chaincfg"
	"github.com/ltcsuite/ltcspv/chaincfg/chainhash"
	"github.com/ltcsuite/ltcspv/peer"
	"github.com/ltcsuite/ltcspv/wire"
)

// fakeRemote accepts one connection on ln and lets the test drive its side
// of the wire protocol directly, bypassing the peer package entirely so
// the client under test is exercised against a real TCP socket.
type fakeRemote struct {
	t    *testing.T
	conn net.Conn
}

func acceptOne(t *testing.T, ln net.Listener) *fakeRemote {
	t.Helper()
	connCh := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		connCh <- conn
	}()
	select {
	case conn := <-connCh:
		return &fakeRemote{t: t, conn: conn}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for client to connect")
		return nil
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

// completeHandshake reads the client's version, answers with a version and
// verack of its own, and reads the client's verack.
func (r *fakeRemote) completeHandshake(services wire.ServiceFlag, lastBlock int32) {
	r.t.Helper()
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
		r.t.Fatal("expected verack to complete handshake")
	}
}

func newTestListener(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	return ln
}

func dialPeer(t *testing.T, ln net.Listener, services wire.ServiceFlag) (*peer.Peer, *fakeRemote) {
	t.Helper()

	p := peer.NewOutbound(peer.Config{
		ChainParams: &chaincfg.RegressionNetParams,
		Services:    wire.ServiceFlag(0),
		UserAgent:   "/ltcspv-test:0.0/",
	}, ln.Addr().String())

	type connectResult struct{ err error }
	resultCh := make(chan connectResult, 1)
	go func() {
		resultCh <- connectResult{p.Connect(context.Background())}
	}()

	remote := acceptOne(t, ln)
	remote.completeHandshake(services, 100)

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("Connect: %v", res.err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Connect to return")
	}

	return p, remote
}

func TestHandshakeReachesReady(t *testing.T) {
	ln := newTestListener(t)
	p, remote := dialPeer(t, ln, wire.SFNodeNetwork)
	defer remote.conn.Close()
	defer p.Disconnect(nil)

	if got := p.State(); got != peer.StateReady {
		t.Fatalf("expected StateReady, got %v", got)
	}
	if !p.CanServeBlocks() {
		t.Fatal("expected CanServeBlocks true when remote advertises SFNodeNetwork")
	}
	if got := p.RemoteBestHeight(); got != 100 {
		t.Fatalf("expected RemoteBestHeight 100, got %d", got)
	}
}

func TestHandshakeDemotesNonServingPeer(t *testing.T) {
	ln := newTestListener(t)
	p, remote := dialPeer(t, ln, 0)
	defer remote.conn.Close()
	defer p.Disconnect(nil)

	if p.CanServeBlocks() {
		t.Fatal("expected CanServeBlocks false when remote omits SFNodeNetwork")
	}
}

func TestPingAnsweredWithPong(t *testing.T) {
	ln := newTestListener(t)
	p, remote := dialPeer(t, ln, wire.SFNodeNetwork)
	defer remote.conn.Close()
	defer p.Disconnect(nil)

	remote.write(&wire.MsgPing{Nonce: 42})
	msg := remote.readMessage()
	pong, ok := msg.(*wire.MsgPong)
	if !ok {
		t.Fatalf("expected pong reply, got %T", msg)
	}
	if pong.Nonce != 42 {
		t.Fatalf("expected pong nonce 42, got %d", pong.Nonce)
	}
}

// sampleTx builds a minimal transaction with a single input spending
// prevTxid:0, distinguished from other sample transactions by lockTime.
func sampleTx(prevTxid chainhash.Hash, lockTime uint32) *wire.MsgTx {
	return &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Hash: prevTxid, Index: 0},
		}},
		TxOut:    []*wire.TxOut{{Value: 1, PkScript: []byte{0x51}}},
		LockTime: lockTime,
	}
}

// TestDownloadDependenciesChildrenFirst covers boundary scenario 4: a chain
// of 5 synthetic ancestor transactions, returned children before parents.
func TestDownloadDependenciesChildrenFirst(t *testing.T) {
	ln := newTestListener(t)
	p, remote := dialPeer(t, ln, wire.SFNodeNetwork)
	defer remote.conn.Close()
	defer p.Disconnect(nil)

	var confirmedAncestor chainhash.Hash
	confirmedAncestor[0] = 0xff

	txE := sampleTx(confirmedAncestor, 5)
	txD := sampleTx(txE.TxHash(), 4)
	txC := sampleTx(txD.TxHash(), 3)
	txB := sampleTx(txC.TxHash(), 2)
	txA := sampleTx(txB.TxHash(), 1)
	root := sampleTx(txA.TxHash(), 0)

	byHash := map[chainhash.Hash]*wire.MsgTx{
		txA.TxHash(): txA,
		txB.TxHash(): txB,
		txC.TxHash(): txC,
		txD.TxHash(): txD,
		txE.TxHash(): txE,
	}

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		for i := 0; i < 6; i++ {
			msg := remote.readMessage()
			getdata, ok := msg.(*wire.MsgGetData)
			if !ok {
				t.Errorf("expected getdata, got %T", msg)
				return
			}
			for _, iv := range getdata.InvList {
				if tx, ok := byHash[iv.Hash]; ok {
					remote.write(tx)
					continue
				}
				remote.write(&wire.MsgNotFound{InvList: []*wire.InvVect{iv}})
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := p.DownloadDependencies(ctx, root, peer.DependencyOptions{})
	if err != nil {
		t.Fatalf("DownloadDependencies: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 ancestors, got %d", len(got))
	}

	wantOrder := []*wire.MsgTx{txA, txB, txC, txD, txE}
	for i, want := range wantOrder {
		if got[i].TxHash() != want.TxHash() {
			t.Fatalf("position %d: expected txid %s, got %s", i, want.TxHash(), got[i].TxHash())
		}
	}

	<-serverDone
}

func TestGetPeerMempoolTransactionFound(t *testing.T) {
	ln := newTestListener(t)
	p, remote := dialPeer(t, ln, wire.SFNodeNetwork)
	defer remote.conn.Close()
	defer p.Disconnect(nil)

	var txid chainhash.Hash
	txid[0] = 0x01
	tx := sampleTx(txid, 0)
	tx.LockTime = 99 // distinguish from a zero-value MsgTx in assertions below

	go func() {
		if _, ok := remote.readMessage().(*wire.MsgMemPool); !ok {
			t.Error("expected mempool request")
			return
		}
		remote.write(&wire.MsgInv{InvList: []*wire.InvVect{{Type: wire.InvTypeTx, Hash: txid}}})

		msg := remote.readMessage()
		getdata, ok := msg.(*wire.MsgGetData)
		if !ok || len(getdata.InvList) != 1 || getdata.InvList[0].Hash != txid {
			t.Error("expected getdata for the advertised txid")
			return
		}
		remote.write(tx)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := p.GetPeerMempoolTransaction(ctx, txid)
	if err != nil {
		t.Fatalf("GetPeerMempoolTransaction: %v", err)
	}
	if got.LockTime != 99 {
		t.Fatalf("expected the fetched transaction, got %+v", got)
	}
}

// TestGetPeerMempoolTransactionNeverAdvertised covers the "peer doesn't
// have it" path: the probe's caller-supplied context expires before the
// peer ever advertises the txid.
func TestGetPeerMempoolTransactionNeverAdvertised(t *testing.T) {
	ln := newTestListener(t)
	p, remote := dialPeer(t, ln, wire.SFNodeNetwork)
	defer remote.conn.Close()
	defer p.Disconnect(nil)

	var txid chainhash.Hash
	txid[0] = 0x02

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.GetPeerMempoolTransaction(ctx, txid)
	var pe peer.Error
	if !errors.As(err, &pe) || pe.Kind != peer.Cancelled {
		t.Fatalf("expected Cancelled once the caller's context expired, got %v", err)
	}
}

func TestDisconnectClosesConnection(t *testing.T) {
	ln := newTestListener(t)
	p, remote := dialPeer(t, ln, wire.SFNodeNetwork)
	defer remote.conn.Close()

	p.Disconnect(nil)
	p.WaitForDisconnect()

	if got := p.State(); got != peer.StateClosed {
		t.Fatalf("expected StateClosed after Disconnect, got %v", got)
	}
}
