// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainengine

import (
	"container/list"

	"github.com/ltcsuite/ltcspv/chaincfg/chainhash"
	"github.com/ltcsuite/ltcspv/wire"
)

// defaultMaxOrphans bounds the orphan buffer absent an explicit Config
// override. Mirrors the order of magnitude btcd-family nodes use for their
// orphan block pool.
const defaultMaxOrphans = 500

// orphanEntry is one buffered header together with the list element
// tracking its position in LRU order, so eviction is O(1).
type orphanEntry struct {
	header *wire.BlockHeader
	elem   *list.Element
}

// orphanBuffer holds headers whose parent hasn't arrived yet, indexed by
// their own hash and by the parent hash they're waiting on, with FIFO/LRU
// eviction once the buffer is full. Every access happens under the owning
// Engine's lock; this type has no locking of its own.
type orphanBuffer struct {
	maxEntries int
	order      *list.List // front = oldest
	byHash     map[chainhash.Hash]*orphanEntry
	byParent   map[chainhash.Hash][]chainhash.Hash
}

func newOrphanBuffer(maxEntries int) *orphanBuffer {
	if maxEntries <= 0 {
		maxEntries = defaultMaxOrphans
	}
	return &orphanBuffer{
		maxEntries: maxEntries,
		order:      list.New(),
		byHash:     make(map[chainhash.Hash]*orphanEntry),
		byParent:   make(map[chainhash.Hash][]chainhash.Hash),
	}
}

// contains reports whether hash is currently buffered as an orphan.
func (b *orphanBuffer) contains(hash chainhash.Hash) bool {
	_, ok := b.byHash[hash]
	return ok
}

// add buffers header, evicting the oldest entry first if the buffer is at
// capacity. A header already buffered is left untouched (not refreshed to
// most-recently-used: a header that keeps getting redelivered without its
// parent ever showing up should age out on schedule, not linger forever).
func (b *orphanBuffer) add(header *wire.BlockHeader) {
	hash := header.BlockHash()
	if _, ok := b.byHash[hash]; ok {
		return
	}

	if len(b.byHash) >= b.maxEntries {
		b.evictOldest()
	}

	elem := b.order.PushBack(hash)
	b.byHash[hash] = &orphanEntry{header: header, elem: elem}
	b.byParent[header.PrevBlock] = append(b.byParent[header.PrevBlock], hash)
}

func (b *orphanBuffer) evictOldest() {
	front := b.order.Front()
	if front == nil {
		return
	}
	oldest := front.Value.(chainhash.Hash)
	b.removeHash(oldest)
}

// removeHash drops hash from every index. Safe to call on a hash that isn't
// buffered.
func (b *orphanBuffer) removeHash(hash chainhash.Hash) {
	entry, ok := b.byHash[hash]
	if !ok {
		return
	}
	b.order.Remove(entry.elem)
	delete(b.byHash, hash)

	parent := entry.header.PrevBlock
	siblings := b.byParent[parent]
	for i, h := range siblings {
		if h == hash {
			siblings = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	if len(siblings) == 0 {
		delete(b.byParent, parent)
	} else {
		b.byParent[parent] = siblings
	}
}

// takeChildren removes and returns every orphan directly waiting on parent,
// in the order they were buffered. The caller drains these in a BFS over
// repeated takeChildren calls to process an arriving ancestor's whole
// orphaned descendant tree in topological order.
func (b *orphanBuffer) takeChildren(parent chainhash.Hash) []*wire.BlockHeader {
	hashes := b.byParent[parent]
	if len(hashes) == 0 {
		return nil
	}

	headers := make([]*wire.BlockHeader, 0, len(hashes))
	for _, h := range hashes {
		entry := b.byHash[h]
		headers = append(headers, entry.header)
	}

	// removeHash mutates b.byParent[parent] in place; snapshot first.
	for _, h := range append([]chainhash.Hash(nil), hashes...) {
		b.removeHash(h)
	}

	return headers
}
