// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainengine

import (
	"math/big"
	"time"

	"github.com/ltcsuite/ltcspv/blockstore"
	"github.com/ltcsuite/ltcspv/chaincfg"
	"github.com/ltcsuite/ltcspv/wire"
)

// interval is the number of blocks between difficulty retargets: the
// network's target timespan expressed in units of its target spacing.
// Mainnet's 3.5-day timespan over 150-second blocks gives 2016.
func interval(params *chaincfg.Params) int32 {
	return int32(params.TargetTimespan / params.TargetTimePerBlock)
}

// expectedBits computes the bits value header must carry given its parent,
// implementing validation steps 3 and 4: retarget at an interval boundary,
// otherwise the non-retarget bits-match-parent rule with its testnet
// scan-back exception.
func (e *Engine) expectedBits(parent *blockstore.StoredBlock, header *wire.BlockHeader) (uint32, error) {
	params := e.params
	iv := interval(params)
	nextHeight := parent.Height + 1

	if nextHeight%iv == 0 {
		return e.calcRetarget(parent)
	}

	if params.ReduceMinDifficulty {
		gap := header.Timestamp.Sub(parent.Header.Timestamp)

		// The 2012-02-16 testnet relaxation: a block arriving more than
		// MinDiffReductionTime after its parent may carry maxTarget
		// outright. Anything inside that window must match whatever
		// bits the scan-back cursor carries, since the parent's own
		// bits may themselves be a maxTarget left over from an earlier
		// gap.
		if gap > params.MinDiffReductionTime {
			return params.PowLimitBits, nil
		}
		return e.findPrevNonMinDifficulty(parent)
	}

	return parent.Header.Bits, nil
}

// calcRetarget implements validation step 3: look back interval blocks
// (or, for the historic one-off, interval-1 at the very first retarget
// when the network allows it), measure the elapsed timespan, clamp it,
// and scale the previous target by the ratio of measured to target
// timespan.
func (e *Engine) calcRetarget(parent *blockstore.StoredBlock) (uint32, error) {
	params := e.params
	iv := interval(params)
	nextHeight := parent.Height + 1

	lookback := iv
	if params.AllowLegacyRetargetLookback && nextHeight == iv {
		lookback = iv - 1
	}

	lookbackNode, err := e.ancestor(parent, lookback)
	if err != nil {
		return 0, err
	}

	actualTimespan := parent.Header.Timestamp.Sub(lookbackNode.Header.Timestamp)
	factor := params.RetargetAdjustmentFactor
	if factor <= 0 {
		factor = 4
	}
	minTimespan := params.TargetTimespan / time.Duration(factor)
	maxTimespan := params.TargetTimespan * time.Duration(factor)
	switch {
	case actualTimespan < minTimespan:
		actualTimespan = minTimespan
	case actualTimespan > maxTimespan:
		actualTimespan = maxTimespan
	}

	prevTarget := chaincfg.CompactToBig(parent.Header.Bits)
	timespanSecs := big.NewInt(int64(actualTimespan / time.Second))
	targetTimespanSecs := big.NewInt(int64(params.TargetTimespan / time.Second))

	newTarget := new(big.Int).Mul(prevTarget, timespanSecs)
	newTarget.Div(newTarget, targetTimespanSecs)

	maxMinusOne := new(big.Int).Sub(params.PowLimit, bigOne)
	if newTarget.Cmp(maxMinusOne) > 0 {
		// Overflow guard: halve the previous target before multiplying,
		// then restore the shift afterward, trading a bit of precision
		// for headroom against the network's maxTarget ceiling.
		newTarget = new(big.Int).Rsh(prevTarget, 1)
		newTarget.Mul(newTarget, timespanSecs)
		newTarget.Div(newTarget, targetTimespanSecs)
		newTarget.Lsh(newTarget, 1)
	}

	if newTarget.Cmp(params.PowLimit) > 0 {
		newTarget = params.PowLimit
	}

	// Converting to compact form is itself the "round to 24-bit compact
	// precision" step the validation rule calls for: the comparison
	// against the received header's bits happens on this compact value.
	return chaincfg.BigToCompact(newTarget), nil
}

// findPrevNonMinDifficulty walks back from parent past any maxTarget
// blocks left over from the testnet gap exception, stopping at the first
// block whose bits reflect the network's real difficulty (or a retarget
// boundary, or genesis).
func (e *Engine) findPrevNonMinDifficulty(parent *blockstore.StoredBlock) (uint32, error) {
	iv := interval(e.params)
	node := parent

	for node.Height%iv != 0 && node.Header.Bits == e.params.PowLimitBits && node.Height != 0 {
		prev, err := e.store.Get(node.Header.PrevBlock)
		if err != nil {
			return 0, StorageError{Op: "scan back for testnet difficulty", Err: err}
		}
		node = prev
	}

	return node.Header.Bits, nil
}

// ancestor returns the block distance blocks before from, stopping early
// at genesis if the chain is shorter than that (which should not happen
// for a validly linked chain, but is handled rather than indexed out of
// range).
func (e *Engine) ancestor(from *blockstore.StoredBlock, distance int32) (*blockstore.StoredBlock, error) {
	node := from
	for i := int32(0); i < distance; i++ {
		if node.Height == 0 {
			break
		}
		prev, err := e.store.Get(node.Header.PrevBlock)
		if err != nil {
			return nil, StorageError{Op: "walk ancestor", Err: err}
		}
		node = prev
	}
	return node, nil
}
