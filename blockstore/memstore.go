// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockstore

import (
	"bytes"
	"sync"

	"github.com/ltcsuite/ltcspv/chaincfg/chainhash"
)

// MemStore is an in-memory BlockStore, used by tests and by callers who
// don't need the chain to outlive the process.
type MemStore struct {
	mtx    sync.RWMutex
	blocks map[chainhash.Hash]*StoredBlock
	head   *StoredBlock
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		blocks: make(map[chainhash.Hash]*StoredBlock),
	}
}

// Put inserts block keyed by its header hash. A second Put for a hash
// already present succeeds only if the stored record is byte-identical
// (header, chainWork, and height all match); otherwise it returns
// ErrConflict without mutating the store.
func (s *MemStore) Put(block *StoredBlock) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	hash := block.Hash()
	if existing, ok := s.blocks[hash]; ok {
		equal, err := recordsEqual(existing, block)
		if err != nil {
			return err
		}
		if !equal {
			return ErrConflict
		}
		return nil
	}

	s.blocks[hash] = block
	return nil
}

// Get returns the block stored under hash, or ErrNotFound.
func (s *MemStore) Get(hash chainhash.Hash) (*StoredBlock, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	block, ok := s.blocks[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return block, nil
}

// GetChainHead returns the current head, or ErrNotFound if SetChainHead
// has never been called.
func (s *MemStore) GetChainHead() (*StoredBlock, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if s.head == nil {
		return nil, ErrNotFound
	}
	return s.head, nil
}

// SetChainHead updates the head pointer. The referenced block need not
// already be stored via Put — callers that maintain Put/SetChainHead as
// separate steps typically Put first, but SetChainHead does not enforce
// the ordering since the contract only requires head reads be atomic
// with respect to Get, not with respect to Put.
func (s *MemStore) SetChainHead(block *StoredBlock) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.head = block
	return nil
}

// Close is a no-op for MemStore; there is nothing to flush.
func (s *MemStore) Close() error {
	return nil
}

// recordsEqual reports whether two StoredBlocks carry identical bytes once
// compacted, the definition of "byte-equal rewrite" the Put contract relies
// on: two headers can share a hash only via a header field each other
// already agrees on, so in practice this guards against a caller reusing a
// hash with a different chainWork or height annotation.
func recordsEqual(a, b *StoredBlock) (bool, error) {
	encodedA, err := EncodeCompact(a)
	if err != nil {
		return false, err
	}
	encodedB, err := EncodeCompact(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(encodedA, encodedB), nil
}
