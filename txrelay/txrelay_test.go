// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txrelay_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ltcsuite/ltcspv/chaincfg"
	"github.com/ltcsuite/ltcspv/chaincfg/chainhash"
	"github.com/ltcsuite/ltcspv/peergroup"
	"github.com/ltcsuite/ltcspv/txrelay"
	"github.com/ltcsuite/ltcspv/wire"
)

// fakeRemote mirrors the harness in peergroup_test.go: a real TCP listener
// driven with raw wire messages against a real PeerGroup/Tracker pair.
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

func parentChildPair() (parent, child *wire.MsgTx) {
	parent = &wire.MsgTx{
		Version: 1,
		TxOut:   []*wire.TxOut{{Value: 5000, PkScript: []byte{0x51}}},
	}
	child = &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Hash: parent.TxHash(), Index: 0},
		}},
		TxOut: []*wire.TxOut{{Value: 4000, PkScript: []byte{0x51}}},
	}
	return parent, child
}

func TestSubmitBroadcastsImmediatelyWithNoDependency(t *testing.T) {
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
		inv, ok := r1.readMessage().(*wire.MsgInv)
		if !ok || len(inv.InvList) != 1 || inv.InvList[0].Hash != txid {
			t.Error("expected inv advertising the submitted tx")
			return
		}
		r1.write(&wire.MsgGetData{InvList: inv.InvList})
	}()

	tr := txrelay.NewTracker(g)
	if err := tr.Submit(ctx, tx); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-done

	status, err := tr.Status(txid)
	if err != nil || status != txrelay.StatusRelayed {
		t.Fatalf("expected StatusRelayed, got %v, %v", status, err)
	}
}

func TestSubmitDefersChildUntilParentRelays(t *testing.T) {
	r1 := newFakeRemote(t)
	g := newGroup(t, []string{r1.addr()})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	g.Start(ctx)
	r1.acceptAndHandshake(wire.SFNodeNetwork, 100)
	if err := g.WaitForPeers(ctx, 1); err != nil {
		t.Fatalf("WaitForPeers: %v", err)
	}

	parent, child := parentChildPair()
	parentID := parent.TxHash()
	childID := child.TxHash()

	tr := txrelay.NewTracker(g)

	// The remote answers each inv with a getdata, but holds back its answer
	// to the first one until release is closed, so the parent's broadcast
	// is still in flight when the child is submitted.
	relayed := make(chan chainhash.Hash, 2)
	release := make(chan struct{})
	go func() {
		for i := 0; i < 2; i++ {
			inv, ok := r1.readMessage().(*wire.MsgInv)
			if !ok || len(inv.InvList) != 1 {
				t.Error("expected a single-item inv")
				return
			}
			relayed <- inv.InvList[0].Hash
			if i == 0 {
				<-release
			}
			r1.write(&wire.MsgGetData{InvList: inv.InvList})
		}
	}()

	parentErr := make(chan error, 1)
	go func() { parentErr <- tr.Submit(ctx, parent) }()

	first := <-relayed
	if first != parentID {
		t.Fatalf("expected parent to relay before child, got %s want %s", first, parentID)
	}

	if err := tr.Submit(ctx, child); err != nil {
		t.Fatalf("Submit(child): %v", err)
	}

	status, _ := tr.Status(childID)
	if status != txrelay.StatusPending {
		t.Fatalf("expected child StatusPending while its parent is still relaying, got %v", status)
	}

	close(release)
	if err := <-parentErr; err != nil {
		t.Fatalf("Submit(parent): %v", err)
	}

	second := <-relayed
	if second != childID {
		t.Fatalf("expected child to relay after parent, got %s want %s", second, childID)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		status, _ = tr.Status(childID)
		if status == txrelay.StatusRelayed {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if status != txrelay.StatusRelayed {
		t.Fatalf("expected child StatusRelayed once its parent relays, got %v", status)
	}
}

func TestStatusAndForget(t *testing.T) {
	g := newGroup(t, nil)
	tr := txrelay.NewTracker(g)

	tx := &wire.MsgTx{Version: 1, TxOut: []*wire.TxOut{{Value: 1, PkScript: []byte{0x51}}}}
	txid := tx.TxHash()

	if _, err := tr.Status(txid); err == nil {
		t.Fatal("expected NotTracked before Submit")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = tr.Submit(ctx, tx)

	status, _ := tr.Status(txid)
	if status != txrelay.StatusFailed {
		t.Fatalf("expected StatusFailed broadcasting with no peers, got %v", status)
	}

	tr.Forget(txid)
	if _, err := tr.Status(txid); err == nil {
		t.Fatal("expected NotTracked after Forget")
	}
}
