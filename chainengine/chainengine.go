// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainengine validates incoming block headers against a network's
// consensus rules and maintains the best chain in a BlockStore: proof of
// work, difficulty retargeting, and reorganization onto a heavier branch.
// It never inspects a transaction's script or a block's full body: those
// are out of scope for a header-only SPV core.
package chainengine

import (
	"errors"
	"math/big"
	"sync"

	"github.com/decred/dcrd/lru"

	"github.com/ltcsuite/ltcspv/blockstore"
	"github.com/ltcsuite/ltcspv/chaincfg"
	"github.com/ltcsuite/ltcspv/chaincfg/chainhash"
	"github.com/ltcsuite/ltcspv/wire"
)

// bigOne is reused across retarget arithmetic to avoid reallocating it.
var bigOne = big.NewInt(1)

// rejectedCacheSize bounds the LRU set of header hashes this engine has
// already determined fail verification, so a peer that keeps re-offering a
// known-bad header doesn't pay the full validation cost every time.
const rejectedCacheSize = 4096

// notifyQueueSize bounds the dispatch channel observer callbacks are queued
// on; a slow observer applies backpressure to AddHeader once it fills, but
// never runs an observer callback on the caller's own goroutine.
const notifyQueueSize = 64

// Acceptance classifies the outcome of AddHeader.
type Acceptance int

const (
	// Duplicate means the header (by hash) is already known to the store
	// or orphan buffer; nothing was written.
	Duplicate Acceptance = iota

	// Orphan means the header's parent isn't in the store yet; it has
	// been buffered and will be replayed once an ancestor arrives.
	Orphan

	// SideChain means the header extends a chain with less cumulative
	// work than the current head; it was stored but the head didn't
	// move.
	SideChain

	// BestChain means the header extended (or, via reorg, became) the
	// chain with the greatest cumulative work; the head moved.
	BestChain
)

func (a Acceptance) String() string {
	switch a {
	case Duplicate:
		return "duplicate"
	case Orphan:
		return "orphan"
	case SideChain:
		return "side chain"
	case BestChain:
		return "best chain"
	default:
		return "unknown"
	}
}

// Observer receives chain events. Callbacks run on a dedicated dispatch
// goroutine, never on the caller's own goroutine inside AddHeader's lock,
// so an observer that blocks or calls back into the engine cannot
// self-deadlock it.
type Observer interface {
	// OnBestBlock fires once per BestChain acceptance (including each
	// block replayed during a reorg's catch-up), most recent last.
	OnBestBlock(sb *blockstore.StoredBlock)

	// OnReorganize fires once per reorg, before the OnBestBlock calls for
	// the newly connected branch. detached is ordered tip-to-fork-point;
	// attached is ordered fork-point-to-new-tip.
	OnReorganize(detached, attached []*blockstore.StoredBlock)
}

// Config constructs an Engine.
type Config struct {
	// Params selects the network: genesis block, proof-of-work limit,
	// retarget constants.
	Params *chaincfg.Params

	// Store is the backing BlockStore. Required.
	Store blockstore.BlockStore

	// MaxOrphans bounds the orphan header buffer. Zero selects a default.
	MaxOrphans int
}

// ErrNilConfig is returned by New when Params or Store is nil.
var ErrNilConfig = errors.New("chainengine: Params and Store are required")

// Engine validates headers and tracks the best chain for one network.
type Engine struct {
	params *chaincfg.Params
	store  blockstore.BlockStore

	mtx      sync.Mutex
	orphans  *orphanBuffer
	rejected *lru.Cache[chainhash.Hash]

	obsMtx    sync.Mutex
	observers []Observer

	notifyCh chan func()
	quitCh   chan struct{}
	wg       sync.WaitGroup
}

// New constructs an Engine over store, seeding it with the network's
// genesis block if the store doesn't already have a chain head.
func New(cfg Config) (*Engine, error) {
	if cfg.Params == nil || cfg.Store == nil {
		return nil, ErrNilConfig
	}

	e := &Engine{
		params:   cfg.Params,
		store:    cfg.Store,
		orphans:  newOrphanBuffer(cfg.MaxOrphans),
		rejected: lru.New[chainhash.Hash](rejectedCacheSize),
		notifyCh: make(chan func(), notifyQueueSize),
		quitCh:   make(chan struct{}),
	}

	if err := e.ensureGenesis(); err != nil {
		return nil, err
	}

	e.wg.Add(1)
	go e.dispatchLoop()

	return e, nil
}

// ensureGenesis seeds store with the network's genesis block if it has no
// chain head yet. A store already seeded (from a checkpoint bundle, or from
// a prior run) is left untouched.
func (e *Engine) ensureGenesis() error {
	_, err := e.store.GetChainHead()
	if err == nil {
		return nil
	}
	if !errors.Is(err, blockstore.ErrNotFound) {
		return StorageError{Op: "get chain head", Err: err}
	}

	genesis := &blockstore.StoredBlock{
		Header:    e.params.GenesisBlock.Header,
		ChainWork: chaincfg.CalcWork(e.params.GenesisBlock.Header.Bits),
		Height:    0,
	}
	if err := e.store.Put(genesis); err != nil {
		return StorageError{Op: "put genesis", Err: err}
	}
	if err := e.store.SetChainHead(genesis); err != nil {
		return StorageError{Op: "set genesis head", Err: err}
	}
	return nil
}

// Subscribe registers o to receive future chain events. Not retroactive:
// o will not be called for blocks already accepted before Subscribe runs.
func (e *Engine) Subscribe(o Observer) {
	e.obsMtx.Lock()
	defer e.obsMtx.Unlock()
	e.observers = append(e.observers, o)
}

// Tip returns the current chain head, the block a peer's version message
// height and a peergroup.Config.BestHeight callback are both built from.
func (e *Engine) Tip() (*blockstore.StoredBlock, error) {
	return e.store.GetChainHead()
}

// ChainWorkAt returns the cumulative chain work of the stored block with
// the given hash, or false if that hash isn't in the store.
func (e *Engine) ChainWorkAt(hash chainhash.Hash) (*big.Int, bool) {
	sb, err := e.store.Get(hash)
	if err != nil {
		return nil, false
	}
	return sb.ChainWork, true
}

// AddHeader runs header through the validation pipeline and updates the
// store accordingly. See the package doc and DESIGN.md for the six
// validation steps.
func (e *Engine) AddHeader(header wire.BlockHeader) (Acceptance, error) {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	hash := header.BlockHash()

	if _, err := e.store.Get(hash); err == nil {
		return Duplicate, nil
	} else if !errors.Is(err, blockstore.ErrNotFound) {
		return Duplicate, StorageError{Op: "get header", Err: err}
	}

	if e.orphans.contains(hash) {
		return Duplicate, nil
	}

	if e.rejected.Contains(hash) {
		return Duplicate, VerificationError{Kind: VerifyBadPow, Detail: "previously rejected"}
	}

	parent, err := e.store.Get(header.PrevBlock)
	if err != nil {
		if errors.Is(err, blockstore.ErrNotFound) {
			e.orphans.add(&header)
			return Orphan, nil
		}
		return Duplicate, StorageError{Op: "get parent", Err: err}
	}

	sb, accept, verr := e.acceptHeader(parent, &header)
	if verr != nil {
		e.rejected.Add(hash)
		return Duplicate, verr
	}

	if err := e.store.Put(sb); err != nil {
		return Duplicate, StorageError{Op: "put header", Err: err}
	}

	if accept == BestChain {
		if err := e.connectBestChain(sb); err != nil {
			return Duplicate, err
		}
	}

	e.drainOrphans(hash)

	return accept, nil
}

// acceptHeader runs validation steps 2-5 (proof of work, retarget/bits,
// chain work) and decides BestChain vs SideChain by comparing chain work
// against the current head. It does not touch the store.
func (e *Engine) acceptHeader(parent *blockstore.StoredBlock, header *wire.BlockHeader) (*blockstore.StoredBlock, Acceptance, error) {
	hash := header.BlockHash()
	target := chaincfg.CompactToBig(header.Bits)

	if target.Sign() <= 0 || target.Cmp(e.params.PowLimit) > 0 {
		return nil, 0, VerificationError{Kind: VerifyBadPow, Detail: "bits exceed network pow limit"}
	}

	hashNum := hashToBig(hash)
	if hashNum.Cmp(target) > 0 {
		return nil, 0, VerificationError{Kind: VerifyBadPow, Detail: "hash exceeds target"}
	}

	expectedBits, err := e.expectedBits(parent, header)
	if err != nil {
		return nil, 0, err
	}
	if header.Bits != expectedBits {
		kind := VerifyBadBits
		if (parent.Height+1)%interval(e.params) == 0 {
			kind = VerifyBadRetarget
		}
		return nil, 0, VerificationError{Kind: kind, Detail: "bits mismatch against recomputed difficulty"}
	}

	chainWork := new(big.Int).Add(parent.ChainWork, chaincfg.CalcWork(header.Bits))

	sb := &blockstore.StoredBlock{
		Header:    *header,
		ChainWork: chainWork,
		Height:    parent.Height + 1,
	}

	head, err := e.store.GetChainHead()
	if err != nil {
		return nil, 0, StorageError{Op: "get chain head", Err: err}
	}

	if chainWork.Cmp(head.ChainWork) > 0 {
		return sb, BestChain, nil
	}
	return sb, SideChain, nil
}

// drainOrphans replays headers buffered against parentHash, and
// transitively their own waiting children, in topological (parent-before-
// child) order: a breadth-first walk over the orphan buffer's
// parent-indexed lists.
func (e *Engine) drainOrphans(parentHash chainhash.Hash) {
	queue := []chainhash.Hash{parentHash}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		children := e.orphans.takeChildren(parent)
		if len(children) == 0 {
			continue
		}
		sbParent, err := e.store.Get(parent)
		if err != nil {
			continue
		}
		for _, child := range children {
			sb, accept, verr := e.acceptHeader(sbParent, child)
			if verr != nil {
				e.rejected.Add(child.BlockHash())
				continue
			}
			if err := e.store.Put(sb); err != nil {
				continue
			}
			if accept == BestChain {
				if err := e.connectBestChain(sb); err != nil {
					continue
				}
			}
			queue = append(queue, child.BlockHash())
		}
	}
}

// hashToBig interprets a hash's internal (little-endian) bytes as a big.Int
// the same way CompactToBig's target does, so the two are comparable.
func hashToBig(hash chainhash.Hash) *big.Int {
	var reversed chainhash.Hash
	blen := len(hash)
	for i := 0; i < blen/2; i++ {
		reversed[i], reversed[blen-1-i] = hash[blen-1-i], hash[i]
	}
	return new(big.Int).SetBytes(reversed[:])
}

// Stop halts the observer dispatch goroutine and waits for it to exit.
func (e *Engine) Stop() {
	close(e.quitCh)
	e.wg.Wait()
}

func (e *Engine) dispatchLoop() {
	defer e.wg.Done()
	for {
		select {
		case fn := <-e.notifyCh:
			fn()
		case <-e.quitCh:
			// Drain anything already queued before exiting so an
			// observer never sees a gap followed by a stale event
			// after Stop returns.
			for {
				select {
				case fn := <-e.notifyCh:
					fn()
				default:
					return
				}
			}
		}
	}
}

func (e *Engine) notifyBestBlock(sb *blockstore.StoredBlock) {
	e.obsMtx.Lock()
	observers := append([]Observer(nil), e.observers...)
	e.obsMtx.Unlock()

	select {
	case e.notifyCh <- func() {
		for _, o := range observers {
			o.OnBestBlock(sb)
		}
	}:
	case <-e.quitCh:
	}
}

func (e *Engine) notifyReorganize(detached, attached []*blockstore.StoredBlock) {
	e.obsMtx.Lock()
	observers := append([]Observer(nil), e.observers...)
	e.obsMtx.Unlock()

	select {
	case e.notifyCh <- func() {
		for _, o := range observers {
			o.OnReorganize(detached, attached)
		}
	}:
	case <-e.quitCh:
	}
}
