// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockstore persists the header chain ChainEngine builds, keyed
// by header hash, with an atomic chain-head pointer. Two implementations
// satisfy the same contract: an in-memory map for tests and light usage,
// and a fixed-record append file backed by a goleveldb index for larger
// chains.
package blockstore

import (
	"errors"
	"math/big"

	"github.com/ltcsuite/ltcspv/chaincfg/chainhash"
	"github.com/ltcsuite/ltcspv/wire"
)

// ErrConflict is returned by Put when a block already exists under the
// same hash with different bytes than the one being inserted.
var ErrConflict = errors.New("blockstore: conflicting block for existing hash")

// ErrNotFound is returned by Get and GetChainHead when no block is stored
// under the requested key, or no chain head has been set yet.
var ErrNotFound = errors.New("blockstore: block not found")

// StoredBlock is a header together with the accumulated proof-of-work
// behind it and its height in the chain that contains it.
type StoredBlock struct {
	Header    wire.BlockHeader
	ChainWork *big.Int
	Height    int32
}

// Hash returns the header hash identifying this block.
func (b *StoredBlock) Hash() chainhash.Hash {
	return b.Header.BlockHash()
}

// BlockStore is the persistence contract ChainEngine relies on. Put is
// idempotent for byte-equal rewrites of an existing entry and returns
// ErrConflict otherwise; Get returns ErrNotFound for an absent hash.
// GetChainHead/SetChainHead are atomic with respect to concurrent Get
// calls — a reader never observes a head update interleaved with a
// concurrent Put of the block it points to.
type BlockStore interface {
	Put(block *StoredBlock) error
	Get(hash chainhash.Hash) (*StoredBlock, error)
	GetChainHead() (*StoredBlock, error)
	SetChainHead(block *StoredBlock) error
	Close() error
}
