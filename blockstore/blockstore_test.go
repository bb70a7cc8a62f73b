// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockstore_test

import (
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ltcsuite/ltcspv/blockstore"
	"github.com/ltcsuite/ltcspv/wire"
)

func sampleBlock(nonce uint32, work int64, height int32) *blockstore.StoredBlock {
	return &blockstore.StoredBlock{
		Header: wire.BlockHeader{
			Version:    1,
			Timestamp:  time.Unix(1317972665, 0),
			Bits:       0x1e0ffff0,
			Nonce:      nonce,
		},
		ChainWork: big.NewInt(work),
		Height:    height,
	}
}

func TestCompactRoundTrip(t *testing.T) {
	b := sampleBlock(2084524493, 12345, 0)
	encoded, err := blockstore.EncodeCompact(b)
	if err != nil {
		t.Fatalf("EncodeCompact: %v", err)
	}
	if len(encoded) != blockstore.CompactSize {
		t.Fatalf("expected %d bytes, got %d", blockstore.CompactSize, len(encoded))
	}

	decoded, err := blockstore.DecodeCompact(encoded)
	if err != nil {
		t.Fatalf("DecodeCompact: %v", err)
	}
	if decoded.Height != b.Height || decoded.Header.Nonce != b.Header.Nonce {
		t.Fatalf("round trip mismatch: got %+v", decoded)
	}
	if decoded.ChainWork.Cmp(b.ChainWork) != 0 {
		t.Fatalf("chainWork mismatch: got %v want %v", decoded.ChainWork, b.ChainWork)
	}
}

func TestCompactChainWorkOverflow(t *testing.T) {
	b := sampleBlock(0, 0, 0)
	b.ChainWork = new(big.Int).Lsh(big.NewInt(1), 97)
	if _, err := blockstore.EncodeCompact(b); err != blockstore.ErrChainWorkOverflow {
		t.Fatalf("expected ErrChainWorkOverflow, got %v", err)
	}
}

func TestMemStorePutIdempotent(t *testing.T) {
	s := blockstore.NewMemStore()
	b := sampleBlock(1, 10, 1)

	if err := s.Put(b); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if err := s.Put(b); err != nil {
		t.Fatalf("idempotent Put of the same block must succeed, got %v", err)
	}

	got, err := s.Get(b.Hash())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Header.Nonce != b.Header.Nonce {
		t.Fatalf("unexpected stored header: %+v", got.Header)
	}
}

func TestMemStorePutConflict(t *testing.T) {
	s := blockstore.NewMemStore()
	b := sampleBlock(1, 10, 1)
	if err := s.Put(b); err != nil {
		t.Fatalf("first Put: %v", err)
	}

	// Same header (same hash) but a different chainWork annotation — the
	// store must catch this as a conflict rather than silently keeping
	// whichever copy arrived first.
	conflicting := &blockstore.StoredBlock{
		Header:    b.Header,
		ChainWork: big.NewInt(999),
		Height:    b.Height,
	}
	if err := s.Put(conflicting); err != blockstore.ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestMemStoreGetNotFound(t *testing.T) {
	s := blockstore.NewMemStore()
	b := sampleBlock(1, 1, 1)
	if _, err := s.Get(b.Hash()); err != blockstore.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemStoreChainHead(t *testing.T) {
	s := blockstore.NewMemStore()
	if _, err := s.GetChainHead(); err != blockstore.ErrNotFound {
		t.Fatalf("expected ErrNotFound before any SetChainHead, got %v", err)
	}

	b := sampleBlock(7, 100, 5)
	if err := s.Put(b); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.SetChainHead(b); err != nil {
		t.Fatalf("SetChainHead: %v", err)
	}

	head, err := s.GetChainHead()
	if err != nil {
		t.Fatalf("GetChainHead: %v", err)
	}
	if head.Height != b.Height {
		t.Fatalf("unexpected head height: got %d want %d", head.Height, b.Height)
	}
}

func TestFileStorePutGetAndHead(t *testing.T) {
	dir := t.TempDir()
	store, err := blockstore.OpenFileStore(filepath.Join(dir, "blocks.dat"), filepath.Join(dir, "index"))
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	defer store.Close()

	b := sampleBlock(42, 999, 3)
	if err := store.Put(b); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(b); err != nil {
		t.Fatalf("idempotent Put: %v", err)
	}

	got, err := store.Get(b.Hash())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Header.Nonce != b.Header.Nonce || got.Height != b.Height {
		t.Fatalf("round trip mismatch: got %+v", got)
	}

	if err := store.SetChainHead(b); err != nil {
		t.Fatalf("SetChainHead: %v", err)
	}
	head, err := store.GetChainHead()
	if err != nil {
		t.Fatalf("GetChainHead: %v", err)
	}
	if head.Height != b.Height {
		t.Fatalf("unexpected head: %+v", head)
	}
}

func TestFileStoreRebuildIndex(t *testing.T) {
	dir := t.TempDir()
	blockPath := filepath.Join(dir, "blocks.dat")
	indexPath := filepath.Join(dir, "index")

	store, err := blockstore.OpenFileStore(blockPath, indexPath)
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}

	b1 := sampleBlock(1, 1, 0)
	b2 := sampleBlock(2, 2, 1)
	if err := store.Put(b1); err != nil {
		t.Fatalf("Put b1: %v", err)
	}
	if err := store.Put(b2); err != nil {
		t.Fatalf("Put b2: %v", err)
	}

	if err := store.RebuildIndex(); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}

	got, err := store.Get(b2.Hash())
	if err != nil {
		t.Fatalf("Get after rebuild: %v", err)
	}
	if got.Height != b2.Height {
		t.Fatalf("unexpected block after rebuild: %+v", got)
	}

	store.Close()
}
