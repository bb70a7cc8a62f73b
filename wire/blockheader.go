// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"github.com/ltcsuite/ltcspv/chaincfg/chainhash"
)

// MaxBlockHeaderPayload is the number of bytes a Litecoin block header
// takes on the wire: 4 version + 32 prev + 32 merkle root + 4 time +
// 4 bits + 4 nonce.
const MaxBlockHeaderPayload = 16 + (chainhash.HashSize * 2)

// BlockHeader defines the 80-byte fixed record identifying a block. It is
// immutable once constructed: callers must build a new value rather than
// mutate fields of a BlockHeader they intend to keep hashing consistently.
type BlockHeader struct {
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  time.Time
	Bits       uint32
	Nonce      uint32
}

// BlockHash computes the double-SHA256 hash of the 80-byte serialization of
// the header, little-endian, per the header hash contract.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, MaxBlockHeaderPayload))
	_ = writeBlockHeader(buf, h)
	return chainhash.DoubleHashH(buf.Bytes())
}

// Serialize encodes the header to w in the canonical 80-byte form.
func (h *BlockHeader) Serialize(w io.Writer) error {
	return writeBlockHeader(w, h)
}

// Deserialize decodes the header from the canonical 80-byte form.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	return readBlockHeader(r, h)
}

// NewBlockHeader returns a new BlockHeader built from its field values.
func NewBlockHeader(version int32, prevHash, merkleRoot *chainhash.Hash, bits, nonce uint32, timestamp time.Time) *BlockHeader {
	return &BlockHeader{
		Version:    version,
		PrevBlock:  *prevHash,
		MerkleRoot: *merkleRoot,
		Timestamp:  time.Unix(timestamp.Unix(), 0),
		Bits:       bits,
		Nonce:      nonce,
	}
}

func readBlockHeader(r io.Reader, h *BlockHeader) error {
	var buf [MaxBlockHeaderPayload]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return CodecError{Kind: ErrIO, Detail: err.Error()}
	}

	h.Version = int32(binary.LittleEndian.Uint32(buf[0:4]))
	if err := h.PrevBlock.SetBytes(buf[4 : 4+chainhash.HashSize]); err != nil {
		return CodecError{Kind: ErrIO, Detail: err.Error()}
	}
	off := 4 + chainhash.HashSize
	if err := h.MerkleRoot.SetBytes(buf[off : off+chainhash.HashSize]); err != nil {
		return CodecError{Kind: ErrIO, Detail: err.Error()}
	}
	off += chainhash.HashSize
	sec := binary.LittleEndian.Uint32(buf[off : off+4])
	h.Timestamp = time.Unix(int64(sec), 0)
	off += 4
	h.Bits = binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4
	h.Nonce = binary.LittleEndian.Uint32(buf[off : off+4])
	return nil
}

func writeBlockHeader(w io.Writer, h *BlockHeader) error {
	var buf [MaxBlockHeaderPayload]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.Version))
	copy(buf[4:4+chainhash.HashSize], h.PrevBlock[:])
	off := 4 + chainhash.HashSize
	copy(buf[off:off+chainhash.HashSize], h.MerkleRoot[:])
	off += chainhash.HashSize
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(h.Timestamp.Unix()))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], h.Bits)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], h.Nonce)
	_, err := w.Write(buf[:])
	return err
}
