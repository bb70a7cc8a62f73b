// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import "math/big"

// CompactToBig converts a compact representation of a whole number N to a
// big.Int, negative when the sign bit described below is set. The
// representation is similar to IEEE754 floating
// point numbers: the high 8 bits are the unsigned exponent of base 256,
// the low 23 bits are the mantissa, and the high bit of the mantissa
// conventionally signals a negative number (never set for a valid target,
// but accepted here since headers are untrusted input).
//
// This is the bits<->target conversion every difficulty check and retarget
// computation in chainengine goes through; it is the same bit layout Bitcoin
// and Litecoin both inherited and is not specific to any one network.
func CompactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	isNegative := compact&0x00800000 != 0
	exponent := uint(compact >> 24)

	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}

	if isNegative {
		bn = bn.Neg(bn)
	}

	return bn
}

// BigToCompact converts a whole number N to a compact representation using
// the same encoding CompactToBig decodes. Rounding during the conversion
// means BigToCompact(CompactToBig(x)) may differ from x in the low bits of
// the mantissa; that loss of precision is intentional and is what a
// retarget computation's "round to compact precision" step relies on.
func BigToCompact(n *big.Int) uint32 {
	if n.Sign() == 0 {
		return 0
	}

	var mantissa uint32
	exponent := uint(len(n.Bytes()))

	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Set(n)
		mantissa = uint32(tn.Rsh(tn, 8*(exponent-3)).Bits()[0])
	}

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent<<24) | mantissa
	if compact != 0 && n.Sign() < 0 {
		compact |= 0x00800000
	}

	return compact
}

// CalcWork computes the work represented by block bits. Work is defined as
// the number of tries needed to solve a block in the average case; it is
// inversely proportional to the difficulty, i.e. smaller targets imply more
// work. The work formula is 2**256 / (target + 1), implemented with bit
// shifts so it never actually materializes a 2**256 big.Int literal.
func CalcWork(bits uint32) *big.Int {
	target := CompactToBig(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}

	denominator := new(big.Int).Add(target, bigOne)
	return new(big.Int).Div(oneLsh256, denominator)
}

// oneLsh256 is 1 shifted left 256 bits, used as the numerator in CalcWork.
var oneLsh256 = new(big.Int).Lsh(bigOne, 256)
