// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"io"

	"github.com/ltcsuite/ltcspv/chaincfg/chainhash"
)

// MaxBlockLocatorsPerMsg is the maximum number of block locator hashes
// allowed per message.
const MaxBlockLocatorsPerMsg = 500

// MaxHeadersPerMsg is the maximum number of block headers a single headers
// message can carry, matching the wire protocol's getheaders batch size.
const MaxHeadersPerMsg = 2000

// MsgGetHeaders implements the Message interface and requests a batch of
// headers starting after the most recent hash in BlockLocatorHashes that
// the remote peer recognizes.
type MsgGetHeaders struct {
	ProtocolVersion    uint32
	BlockLocatorHashes []*chainhash.Hash
	HashStop           chainhash.Hash
}

func (msg *MsgGetHeaders) AddBlockLocatorHash(hash *chainhash.Hash) error {
	if len(msg.BlockLocatorHashes)+1 > MaxBlockLocatorsPerMsg {
		return messageError(ErrOversizeField, "MsgGetHeaders.AddBlockLocatorHash", "too many locator hashes")
	}
	msg.BlockLocatorHashes = append(msg.BlockLocatorHashes, hash)
	return nil
}

func (msg *MsgGetHeaders) Command() string { return CmdGetHeaders }
func (msg *MsgGetHeaders) MaxPayloadLength(pver uint32) uint32 {
	return 4 + uint32(VarIntSerializeSize(MaxBlockLocatorsPerMsg)) + MaxBlockLocatorsPerMsg*chainhash.HashSize + chainhash.HashSize
}

func (msg *MsgGetHeaders) BtcEncode(w io.Writer, pver uint32) error {
	if err := binarySerializer.PutUint32(w, binary.LittleEndian, msg.ProtocolVersion); err != nil {
		return err
	}
	if len(msg.BlockLocatorHashes) > MaxBlockLocatorsPerMsg {
		return messageError(ErrOversizeField, "MsgGetHeaders.BtcEncode", "too many locator hashes")
	}
	if err := WriteVarInt(w, uint64(len(msg.BlockLocatorHashes))); err != nil {
		return err
	}
	for _, hash := range msg.BlockLocatorHashes {
		if err := writeHash(w, hash); err != nil {
			return err
		}
	}
	return writeHash(w, &msg.HashStop)
}

func (msg *MsgGetHeaders) BtcDecode(r io.Reader, pver uint32) error {
	pv, err := binarySerializer.Uint32(r, binary.LittleEndian)
	if err != nil {
		return CodecError{Kind: ErrIO, Detail: err.Error()}
	}
	msg.ProtocolVersion = pv

	count, _, err := ReadVarInt(r, 4)
	if err != nil {
		return err
	}
	if count > MaxBlockLocatorsPerMsg {
		return CodecError{Kind: ErrOversizeField, Detail: "too many locator hashes"}
	}
	msg.BlockLocatorHashes = make([]*chainhash.Hash, count)
	for i := range msg.BlockLocatorHashes {
		hash := &chainhash.Hash{}
		if err := readHash(r, hash); err != nil {
			return CodecError{Kind: ErrIO, Detail: err.Error()}
		}
		msg.BlockLocatorHashes[i] = hash
	}

	return readHash(r, &msg.HashStop)
}

// MsgHeaders implements the Message interface and delivers a batch of
// block headers in response to getheaders. Each header is followed on the
// wire by a transaction count, always zero for a pure headers message.
type MsgHeaders struct {
	Headers []*BlockHeader
}

func (msg *MsgHeaders) AddBlockHeader(bh *BlockHeader) error {
	if len(msg.Headers)+1 > MaxHeadersPerMsg {
		return messageError(ErrOversizeField, "MsgHeaders.AddBlockHeader", "too many headers")
	}
	msg.Headers = append(msg.Headers, bh)
	return nil
}

func (msg *MsgHeaders) Command() string { return CmdHeaders }
func (msg *MsgHeaders) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(MaxHeadersPerMsg)) + MaxHeadersPerMsg*(MaxBlockHeaderPayload+1)
}

func (msg *MsgHeaders) BtcEncode(w io.Writer, pver uint32) error {
	if len(msg.Headers) > MaxHeadersPerMsg {
		return messageError(ErrOversizeField, "MsgHeaders.BtcEncode", "too many headers")
	}
	if err := WriteVarInt(w, uint64(len(msg.Headers))); err != nil {
		return err
	}
	for _, bh := range msg.Headers {
		if err := bh.Serialize(w); err != nil {
			return err
		}
		if err := WriteVarInt(w, 0); err != nil {
			return err
		}
	}
	return nil
}

func (msg *MsgHeaders) BtcDecode(r io.Reader, pver uint32) error {
	count, _, err := ReadVarInt(r, 0)
	if err != nil {
		return err
	}
	if count > MaxHeadersPerMsg {
		return CodecError{Kind: ErrOversizeField, Detail: "too many headers"}
	}
	msg.Headers = make([]*BlockHeader, count)
	for i := range msg.Headers {
		bh := &BlockHeader{}
		if err := bh.Deserialize(r); err != nil {
			return err
		}
		txCount, _, err := ReadVarInt(r, 0)
		if err != nil {
			return err
		}
		if txCount != 0 {
			return CodecError{Kind: ErrBadVarInt, Detail: "headers message carried transactions"}
		}
		msg.Headers[i] = bh
	}
	return nil
}
