// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainengine

import "github.com/ltcsuite/ltcspv/blockstore"

// connectBestChain makes newHead the chain head, detecting and handling a
// reorg if newHead doesn't simply extend the current head. Must be called
// with e.mtx held.
func (e *Engine) connectBestChain(newHead *blockstore.StoredBlock) error {
	oldHead, err := e.store.GetChainHead()
	if err != nil {
		return StorageError{Op: "get chain head", Err: err}
	}

	if newHead.Header.PrevBlock == oldHead.Hash() {
		if err := e.store.SetChainHead(newHead); err != nil {
			return StorageError{Op: "set chain head", Err: err}
		}
		e.notifyBestBlock(newHead)
		return nil
	}

	detached, attached, err := e.reorgPath(oldHead, newHead)
	if err != nil {
		return err
	}

	if err := e.store.SetChainHead(newHead); err != nil {
		return StorageError{Op: "set chain head", Err: err}
	}

	e.notifyReorganize(detached, attached)
	for _, sb := range attached {
		e.notifyBestBlock(sb)
	}

	return nil
}

// reorgPath walks oldHead and newHead back to their common ancestor. It
// returns the now-orphaned branch ordered tip-to-fork-point (detached) and
// the newly connected branch ordered fork-point-to-new-tip (attached),
// replaying transactions in fork order rather than discovery order per the
// reorg handling rule: walk to the fork point, then replay the new branch
// from there forward.
func (e *Engine) reorgPath(oldHead, newHead *blockstore.StoredBlock) (detached, attached []*blockstore.StoredBlock, err error) {
	left := oldHead
	right := newHead

	for left.Height > right.Height {
		detached = append(detached, left)
		left, err = e.store.Get(left.Header.PrevBlock)
		if err != nil {
			return nil, nil, StorageError{Op: "walk detached branch", Err: err}
		}
	}
	for right.Height > left.Height {
		attached = append(attached, right)
		right, err = e.store.Get(right.Header.PrevBlock)
		if err != nil {
			return nil, nil, StorageError{Op: "walk attached branch", Err: err}
		}
	}

	for left.Hash() != right.Hash() {
		detached = append(detached, left)
		attached = append(attached, right)
		left, err = e.store.Get(left.Header.PrevBlock)
		if err != nil {
			return nil, nil, StorageError{Op: "walk detached branch", Err: err}
		}
		right, err = e.store.Get(right.Header.PrevBlock)
		if err != nil {
			return nil, nil, StorageError{Op: "walk attached branch", Err: err}
		}
	}

	for i, j := 0, len(attached)-1; i < j; i, j = i+1, j-1 {
		attached[i], attached[j] = attached[j], attached[i]
	}

	return detached, attached, nil
}
