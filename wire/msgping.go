// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"io"
)

// MsgPing implements the Message interface and is sent periodically to
// check liveness and measure round-trip latency.
type MsgPing struct {
	Nonce uint64
}

func (msg *MsgPing) Command() string                    { return CmdPing }
func (msg *MsgPing) MaxPayloadLength(pver uint32) uint32 { return 8 }

func (msg *MsgPing) BtcEncode(w io.Writer, pver uint32) error {
	return binarySerializer.PutUint64(w, binary.LittleEndian, msg.Nonce)
}

func (msg *MsgPing) BtcDecode(r io.Reader, pver uint32) error {
	nonce, err := binarySerializer.Uint64(r, binary.LittleEndian)
	if err != nil {
		return CodecError{Kind: ErrIO, Detail: err.Error()}
	}
	msg.Nonce = nonce
	return nil
}

// MsgPong implements the Message interface and answers a MsgPing with the
// same nonce.
type MsgPong struct {
	Nonce uint64
}

func (msg *MsgPong) Command() string                    { return CmdPong }
func (msg *MsgPong) MaxPayloadLength(pver uint32) uint32 { return 8 }

func (msg *MsgPong) BtcEncode(w io.Writer, pver uint32) error {
	return binarySerializer.PutUint64(w, binary.LittleEndian, msg.Nonce)
}

func (msg *MsgPong) BtcDecode(r io.Reader, pver uint32) error {
	nonce, err := binarySerializer.Uint64(r, binary.LittleEndian)
	if err != nil {
		return CodecError{Kind: ErrIO, Detail: err.Error()}
	}
	msg.Nonce = nonce
	return nil
}
