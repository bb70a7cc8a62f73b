// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainengine

import (
	"math/big"
	"testing"
	"time"

	"github.com/ltcsuite/ltcspv/blockstore"
	"github.com/ltcsuite/ltcspv/chaincfg"
	"github.com/ltcsuite/ltcspv/wire"
)

// buildChain writes a chain of blockCount blocks (after genesis, at height
// 0) directly into store, each gapSeconds apart and carrying bits, and
// returns the tip. It bypasses AddHeader entirely so a retarget's exact
// arithmetic can be tested in isolation from header validation.
func buildChain(t *testing.T, store blockstore.BlockStore, genesis wire.BlockHeader, blockCount int, gapSeconds int64, bits uint32) *blockstore.StoredBlock {
	t.Helper()

	genesisSB := &blockstore.StoredBlock{
		Header:    genesis,
		ChainWork: chaincfg.CalcWork(genesis.Bits),
		Height:    0,
	}
	if err := store.Put(genesisSB); err != nil {
		t.Fatalf("Put genesis: %v", err)
	}

	tip := genesisSB
	for i := 1; i <= blockCount; i++ {
		h := wire.BlockHeader{
			Version:   1,
			PrevBlock: tip.Hash(),
			Timestamp: tip.Header.Timestamp.Add(time.Duration(gapSeconds) * time.Second),
			Bits:      bits,
			Nonce:     uint32(i),
		}
		sb := &blockstore.StoredBlock{
			Header:    h,
			ChainWork: new(big.Int).Add(tip.ChainWork, chaincfg.CalcWork(bits)),
			Height:    tip.Height + 1,
		}
		if err := store.Put(sb); err != nil {
			t.Fatalf("Put height %d: %v", sb.Height, err)
		}
		tip = sb
	}
	return tip
}

// TestCalcRetargetUnchangedTimespan covers boundary scenario 2: a retarget
// whose measured timespan exactly equals the network's target timespan
// must reproduce the parent's bits unchanged.
func TestCalcRetargetUnchangedTimespan(t *testing.T) {
	powLimit := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	powLimitBits := chaincfg.BigToCompact(powLimit)

	params := &chaincfg.Params{
		GenesisBlock: &wire.MsgBlock{Header: wire.BlockHeader{
			Version: 1, Timestamp: time.Unix(1_600_000_000, 0), Bits: powLimitBits,
		}},
		PowLimit:                    powLimit,
		PowLimitBits:                powLimitBits,
		TargetTimespan:              4 * time.Second,
		TargetTimePerBlock:          1 * time.Second,
		RetargetAdjustmentFactor:    4,
		AllowLegacyRetargetLookback: false,
	}

	store := blockstore.NewMemStore()
	// interval is 4; build 7 blocks past genesis so the second retarget's
	// parent (height 7) has a full 4-block lookback available without
	// running into genesis, sidestepping the legacy first-retarget
	// lookback quirk entirely.
	tip := buildChain(t, store, params.GenesisBlock.Header, 7, 1, powLimitBits)

	e := &Engine{params: params, store: store}

	got, err := e.calcRetarget(tip)
	if err != nil {
		t.Fatalf("calcRetarget: %v", err)
	}
	if got != powLimitBits {
		t.Fatalf("expected unchanged bits %#08x for an exact-timespan retarget, got %#08x", powLimitBits, got)
	}
}

// TestCalcRetargetClampsShortTimespan covers the other half of scenario 2:
// a measured timespan far below target is clamped to targetTimespan/factor
// before scaling, not used directly.
func TestCalcRetargetClampsShortTimespan(t *testing.T) {
	powLimit := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	powLimitBits := chaincfg.BigToCompact(powLimit)
	// A tighter starting target than PowLimit so there's room to tighten
	// further without clamping against PowLimit on the other side.
	startTarget := new(big.Int).Rsh(powLimit, 4)
	startBits := chaincfg.BigToCompact(startTarget)

	params := &chaincfg.Params{
		GenesisBlock: &wire.MsgBlock{Header: wire.BlockHeader{
			Version: 1, Timestamp: time.Unix(1_600_000_000, 0), Bits: startBits,
		}},
		PowLimit:                    powLimit,
		PowLimitBits:                powLimitBits,
		TargetTimespan:              400 * time.Second,
		TargetTimePerBlock:          100 * time.Second,
		RetargetAdjustmentFactor:    4,
		AllowLegacyRetargetLookback: false,
	}

	store := blockstore.NewMemStore()
	// Every gap is 1 second instead of the intended 100, so the measured
	// 4-second timespan is far below targetTimespan/4 (100s) and must be
	// clamped there before scaling.
	tip := buildChain(t, store, params.GenesisBlock.Header, 7, 1, startBits)

	e := &Engine{params: params, store: store}

	got, err := e.calcRetarget(tip)
	if err != nil {
		t.Fatalf("calcRetarget: %v", err)
	}

	gotTarget := chaincfg.CompactToBig(got)
	// Clamped timespan is targetTimespan/4, a quarter of targetTimespan,
	// so the new target should be roughly startTarget/4, strictly smaller
	// than startTarget, not startTarget/100 (the unclamped ratio).
	if gotTarget.Cmp(startTarget) >= 0 {
		t.Fatalf("expected a tighter target after a short-timespan retarget, got %v (was %v)", gotTarget, startTarget)
	}
	quarter := new(big.Int).Rsh(startTarget, 2)
	ratio := new(big.Int).Div(quarter, gotTarget)
	if ratio.Cmp(big.NewInt(2)) > 0 {
		t.Fatalf("clamped retarget should land near startTarget/4, got %v vs quarter %v", gotTarget, quarter)
	}
}
