// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"github.com/ltcsuite/ltcspv/chaincfg/chainhash"
	"github.com/ltcsuite/ltcspv/wire"
)

// genesisPush encodes a CScript-style minimal data push: a one-byte length
// prefix followed by the data itself. The genesis coinbase script never
// needs the multi-byte OP_PUSHDATA forms since every element it carries
// (the initial bits constant, the block height placeholder, and the
// timestamp message) stays under 76 bytes.
func genesisPush(data []byte) []byte {
	return append([]byte{byte(len(data))}, data...)
}

// genesisCoinbaseTx is the coinbase transaction shared by the genesis block
// of every network: a single input carrying the launch headline as extra
// nonce data, and a single 50 LTC output paid to the same uncompressed
// public key Litecoin's mainnet genesis used.
var genesisCoinbaseTx = wire.MsgTx{
	Version: 1,
	TxIn: []*wire.TxIn{
		{
			PreviousOutPoint: wire.OutPoint{
				Hash:  chainhash.Hash{},
				Index: 0xffffffff,
			},
			SignatureScript: append(append(
				genesisPush([]byte{0xff, 0xff, 0x00, 0x1d}),
				genesisPush([]byte{0x04})...),
				genesisPush([]byte("NY Times 05/Oct/2011 Steve Jobs, Apple's Visionary Leader, Dies at 56"))...),
			Sequence: 0xffffffff,
		},
	},
	TxOut: []*wire.TxOut{
		{
			Value: 50 * 1e8,
			PkScript: append(genesisPush([]byte{
				0x04, 0x01, 0x84, 0x71, 0x0f, 0xa6, 0x89, 0xad,
				0x50, 0x23, 0x69, 0x0c, 0x80, 0xf3, 0xa4, 0x9c,
				0x8f, 0x13, 0xf8, 0xd4, 0x5b, 0x8c, 0x85, 0x7f,
				0xbc, 0xbc, 0x8b, 0xc4, 0xa8, 0xe4, 0xd3, 0xeb,
				0x4b, 0x10, 0xf4, 0xd4, 0x60, 0x4f, 0xa0, 0x8d,
				0xce, 0x60, 0x1a, 0xaf, 0x0f, 0x47, 0x02, 0x16,
				0xfe, 0x1b, 0x51, 0x85, 0x0b, 0x4a, 0xcf, 0x21,
				0xb1, 0x79, 0xc4, 0x50, 0x70, 0xac, 0x7b, 0x03,
				0xa9,
			}), 0xac), // OP_CHECKSIG
		},
	},
	LockTime: 0,
}

// genesisMerkleRoot is the hash of the lone coinbase transaction, derived
// directly from genesisCoinbaseTx rather than hardcoded, so it can never
// drift from the transaction bytes above.
var genesisMerkleRoot = genesisCoinbaseTx.TxHash()

// genesisHash is the mainnet genesis block hash.
var genesisHash = newHashFromStr("12a765e31ffd4059bada1e25190f6e98c99d9714d334efa41a195a7e7e04bfe2")

// genesisBlock is the first block of the main Litecoin network.
var genesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot,
		Timestamp:  time.Unix(1317972665, 0),
		Bits:       0x1e0ffff0,
		Nonce:      2084524493,
	},
	Transactions: []*wire.MsgTx{&genesisCoinbaseTx},
}

// testNet4GenesisHash is the test network (version 4) genesis block hash.
var testNet4GenesisHash = newHashFromStr("a0293e4bdea6e65ff16d81f56afd78f5a08f2c60d82bd0395bdbf1f4ae6c1cb1")

// testNet4GenesisBlock is the first block of the Litecoin test network
// (version 4). It carries the same coinbase as mainnet; only the header
// fields that gate difficulty and chain selection differ.
var testNet4GenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot,
		Timestamp:  time.Unix(1486949366, 0),
		Bits:       0x1e0ffff0,
		Nonce:      293345,
	},
	Transactions: []*wire.MsgTx{&genesisCoinbaseTx},
}

// regTestGenesisHash is the regression test network genesis block hash.
var regTestGenesisHash = newHashFromStr("530827f38f93b43ed12af0b3ad25a288dc02ed74d6d7857862df51fc56c416f9")

// regTestGenesisBlock is the first block of the regression test network,
// mined at the loosest difficulty so tests can extend the chain cheaply.
var regTestGenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot,
		Timestamp:  time.Unix(1296688602, 0),
		Bits:       0x207fffff,
		Nonce:      0,
	},
	Transactions: []*wire.MsgTx{&genesisCoinbaseTx},
}

// sigNetGenesisHash is the signet genesis block hash.
var sigNetGenesisHash = newHashFromStr("9084cf1afbbee9cef3322edabb91ddcce71fd1b2acdfd0c6dd6f5c8cc7e7fb1c")

// sigNetGenesisBlock is the first block of the signet test network.
var sigNetGenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot,
		Timestamp:  time.Unix(1598918400, 0),
		Bits:       0x1e0ffff0,
		Nonce:      52613770,
	},
	Transactions: []*wire.MsgTx{&genesisCoinbaseTx},
}
