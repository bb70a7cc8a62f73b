// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/ltcsuite/ltcspv/chaincfg/chainhash"
)

// MaxTxPerBlock bounds the number of transactions a single MsgBlock will
// decode; a minimal empty transaction is at least 10 bytes on the wire.
const MaxTxPerBlock = (MaxPayloadSize / 10) + 1

// MsgBlock implements the Message interface and represents a full block:
// a header plus its transactions.
type MsgBlock struct {
	Header       BlockHeader
	Transactions []*MsgTx
}

// BlockHash returns the hash of the block's header.
func (msg *MsgBlock) BlockHash() chainhash.Hash {
	return msg.Header.BlockHash()
}

func (msg *MsgBlock) Command() string { return CmdBlock }

func (msg *MsgBlock) MaxPayloadLength(pver uint32) uint32 { return MaxPayloadSize }

func (msg *MsgBlock) BtcEncode(w io.Writer, pver uint32) error {
	if err := msg.Header.Serialize(w); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(msg.Transactions))); err != nil {
		return err
	}
	for _, tx := range msg.Transactions {
		if err := tx.BtcEncode(w, pver); err != nil {
			return err
		}
	}
	return nil
}

func (msg *MsgBlock) BtcDecode(r io.Reader, pver uint32) error {
	if err := msg.Header.Deserialize(r); err != nil {
		return err
	}
	count, _, err := ReadVarInt(r, MaxBlockHeaderPayload)
	if err != nil {
		return err
	}
	if count > uint64(MaxTxPerBlock) {
		return CodecError{Kind: ErrOversizeField, Detail: "too many transactions in block"}
	}
	msg.Transactions = make([]*MsgTx, count)
	for i := range msg.Transactions {
		tx := &MsgTx{}
		if err := tx.BtcDecode(r, pver); err != nil {
			return err
		}
		msg.Transactions[i] = tx
	}
	return nil
}
