// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/ltcsuite/ltcspv/chaincfg/chainhash"
)

// MaxTxInPerMessage and MaxTxOutPerMessage bound the number of inputs and
// outputs a single MsgTx will decode, derived from the minimum possible
// encoded size of an input/output so a hostile count can't force an
// unbounded allocation.
const (
	minTxInPayload      = 9 + chainhash.HashSize + 4
	minTxOutPayload     = 9
	MaxTxInPerMessage   = (MaxPayloadSize / minTxInPayload) + 1
	MaxTxOutPerMessage  = (MaxPayloadSize / minTxOutPayload) + 1
)

// OutPoint defines a txid and the index of the output it spends, the unit
// the chain engine and dependency-download BFS operate on.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// NewOutPoint returns a new OutPoint.
func NewOutPoint(hash *chainhash.Hash, index uint32) *OutPoint {
	return &OutPoint{Hash: *hash, Index: index}
}

func (o OutPoint) String() string {
	return o.Hash.String()
}

// TxIn defines a transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Witness          [][]byte
	Sequence         uint32
}

// TxOut defines a transaction output.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// MsgTx implements the Message interface. Only the fields the chain engine
// and peer layer actually consume are modeled: computing the txid and
// enumerating the outpoints a transaction spends. Script interpretation is
// out of scope for this core.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

// HasWitness reports whether any input carries witness data.
func (msg *MsgTx) HasWitness() bool {
	for _, ti := range msg.TxIn {
		if len(ti.Witness) > 0 {
			return true
		}
	}
	return false
}

// TxHash computes the txid: the double-SHA256 of the canonical
// (non-witness) serialization.
func (msg *MsgTx) TxHash() chainhash.Hash {
	var buf bytes.Buffer
	_ = msg.serialize(&buf, false)
	return chainhash.DoubleHashH(buf.Bytes())
}

// PrevOutpoints returns the set of outpoints this transaction spends, used
// by PeerConnection.downloadDependencies to walk the ancestor graph.
func (msg *MsgTx) PrevOutpoints() []OutPoint {
	out := make([]OutPoint, len(msg.TxIn))
	for i, ti := range msg.TxIn {
		out[i] = ti.PreviousOutPoint
	}
	return out
}

func (msg *MsgTx) Command() string { return CmdTx }

func (msg *MsgTx) MaxPayloadLength(pver uint32) uint32 {
	return MaxPayloadSize
}

func (msg *MsgTx) BtcEncode(w io.Writer, pver uint32) error {
	return msg.serialize(w, true)
}

func (msg *MsgTx) serialize(w io.Writer, withWitness bool) error {
	var vbuf [4]byte
	binary.LittleEndian.PutUint32(vbuf[:], uint32(msg.Version))
	if _, err := w.Write(vbuf[:]); err != nil {
		return err
	}

	hasWitness := withWitness && msg.HasWitness()
	if hasWitness {
		if _, err := w.Write([]byte{0x00, 0x01}); err != nil {
			return err
		}
	}

	if err := WriteVarInt(w, uint64(len(msg.TxIn))); err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		if err := writeHash(w, &ti.PreviousOutPoint.Hash); err != nil {
			return err
		}
		var ibuf [4]byte
		binary.LittleEndian.PutUint32(ibuf[:], ti.PreviousOutPoint.Index)
		if _, err := w.Write(ibuf[:]); err != nil {
			return err
		}
		if err := WriteVarBytes(w, ti.SignatureScript); err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(ibuf[:], ti.Sequence)
		if _, err := w.Write(ibuf[:]); err != nil {
			return err
		}
	}

	if err := WriteVarInt(w, uint64(len(msg.TxOut))); err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		var vbuf8 [8]byte
		binary.LittleEndian.PutUint64(vbuf8[:], uint64(to.Value))
		if _, err := w.Write(vbuf8[:]); err != nil {
			return err
		}
		if err := WriteVarBytes(w, to.PkScript); err != nil {
			return err
		}
	}

	if hasWitness {
		for _, ti := range msg.TxIn {
			if err := WriteVarInt(w, uint64(len(ti.Witness))); err != nil {
				return err
			}
			for _, item := range ti.Witness {
				if err := WriteVarBytes(w, item); err != nil {
					return err
				}
			}
		}
	}

	var lbuf [4]byte
	binary.LittleEndian.PutUint32(lbuf[:], msg.LockTime)
	_, err := w.Write(lbuf[:])
	return err
}

func (msg *MsgTx) BtcDecode(r io.Reader, pver uint32) error {
	var vbuf [4]byte
	if _, err := io.ReadFull(r, vbuf[:]); err != nil {
		return CodecError{Kind: ErrIO, Detail: err.Error()}
	}
	msg.Version = int32(binary.LittleEndian.Uint32(vbuf[:]))

	count, n, err := ReadVarInt(r, 4)
	if err != nil {
		return err
	}

	hasWitness := false
	if count == 0 {
		// Possible segwit marker: next byte is the flag.
		flag := make([]byte, 1)
		if _, err := io.ReadFull(r, flag); err != nil {
			return CodecError{Kind: ErrIO, Offset: 4 + n, Detail: err.Error()}
		}
		if flag[0] != 0x01 {
			return CodecError{Kind: ErrBadVarInt, Offset: 4 + n, Detail: "unexpected segwit flag"}
		}
		hasWitness = true
		count, n, err = ReadVarInt(r, 5+n)
		if err != nil {
			return err
		}
	}

	if count > uint64(MaxTxInPerMessage) {
		return CodecError{Kind: ErrOversizeField, Detail: "too many transaction inputs"}
	}

	msg.TxIn = make([]*TxIn, count)
	for i := range msg.TxIn {
		ti := &TxIn{}
		if err := readHash(r, &ti.PreviousOutPoint.Hash); err != nil {
			return CodecError{Kind: ErrIO, Detail: err.Error()}
		}
		var ibuf [4]byte
		if _, err := io.ReadFull(r, ibuf[:]); err != nil {
			return CodecError{Kind: ErrIO, Detail: err.Error()}
		}
		ti.PreviousOutPoint.Index = binary.LittleEndian.Uint32(ibuf[:])

		script, _, err := ReadVarBytes(r, 0, MaxScriptSize, "signature script")
		if err != nil {
			return err
		}
		ti.SignatureScript = script

		if _, err := io.ReadFull(r, ibuf[:]); err != nil {
			return CodecError{Kind: ErrIO, Detail: err.Error()}
		}
		ti.Sequence = binary.LittleEndian.Uint32(ibuf[:])
		msg.TxIn[i] = ti
	}

	outCount, _, err := ReadVarInt(r, 0)
	if err != nil {
		return err
	}
	if outCount > uint64(MaxTxOutPerMessage) {
		return CodecError{Kind: ErrOversizeField, Detail: "too many transaction outputs"}
	}
	msg.TxOut = make([]*TxOut, outCount)
	for i := range msg.TxOut {
		to := &TxOut{}
		var vbuf8 [8]byte
		if _, err := io.ReadFull(r, vbuf8[:]); err != nil {
			return CodecError{Kind: ErrIO, Detail: err.Error()}
		}
		to.Value = int64(binary.LittleEndian.Uint64(vbuf8[:]))

		script, _, err := ReadVarBytes(r, 0, MaxScriptSize, "pk script")
		if err != nil {
			return err
		}
		to.PkScript = script
		msg.TxOut[i] = to
	}

	if hasWitness {
		for _, ti := range msg.TxIn {
			wCount, _, err := ReadVarInt(r, 0)
			if err != nil {
				return err
			}
			ti.Witness = make([][]byte, wCount)
			for i := range ti.Witness {
				item, _, err := ReadVarBytes(r, 0, MaxScriptSize, "witness item")
				if err != nil {
					return err
				}
				ti.Witness[i] = item
			}
		}
	}

	var lbuf [4]byte
	if _, err := io.ReadFull(r, lbuf[:]); err != nil {
		return CodecError{Kind: ErrIO, Detail: err.Error()}
	}
	msg.LockTime = binary.LittleEndian.Uint32(lbuf[:])
	return nil
}
