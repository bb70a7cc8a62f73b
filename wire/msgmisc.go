// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"io"
)

// MsgMemPool implements the Message interface and requests the txids the
// remote peer currently holds in its mempool; it carries no payload.
type MsgMemPool struct{}

func (msg *MsgMemPool) Command() string                        { return CmdMemPool }
func (msg *MsgMemPool) MaxPayloadLength(pver uint32) uint32     { return 0 }
func (msg *MsgMemPool) BtcEncode(w io.Writer, pver uint32) error { return nil }
func (msg *MsgMemPool) BtcDecode(r io.Reader, pver uint32) error { return nil }

// MaxFilterLoadSize is the maximum size in bytes of a bloom filter.
const MaxFilterLoadSize = 36000

// MaxFilterAddDataSize is the maximum size in bytes of a filteradd item.
const MaxFilterAddDataSize = 520

// BloomUpdateType specifies how outputs matching a filter are automatically
// added to it.
type BloomUpdateType uint8

const (
	BloomUpdateNone         BloomUpdateType = 0
	BloomUpdateAll          BloomUpdateType = 1
	BloomUpdateP2PubkeyOnly BloomUpdateType = 2
)

// MsgFilterLoad implements the Message interface and replaces a peer's
// bloom filter with the embedder's. Every subsequent getdata issued on the
// connection after this message is sent MUST reflect the new filter.
type MsgFilterLoad struct {
	Filter    []byte
	HashFuncs uint32
	Tweak     uint32
	Flags     BloomUpdateType
}

func (msg *MsgFilterLoad) Command() string { return CmdFilterLoad }
func (msg *MsgFilterLoad) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(MaxFilterLoadSize)) + MaxFilterLoadSize + 9
}

func (msg *MsgFilterLoad) BtcEncode(w io.Writer, pver uint32) error {
	if len(msg.Filter) > MaxFilterLoadSize {
		return messageError(ErrOversizeField, "MsgFilterLoad.BtcEncode", "filter too large")
	}
	if err := WriteVarBytes(w, msg.Filter); err != nil {
		return err
	}
	if err := binarySerializer.PutUint32(w, binary.LittleEndian, msg.HashFuncs); err != nil {
		return err
	}
	if err := binarySerializer.PutUint32(w, binary.LittleEndian, msg.Tweak); err != nil {
		return err
	}
	return binarySerializer.PutUint8(w, uint8(msg.Flags))
}

func (msg *MsgFilterLoad) BtcDecode(r io.Reader, pver uint32) error {
	filter, _, err := ReadVarBytes(r, 0, MaxFilterLoadSize, "filter")
	if err != nil {
		return err
	}
	msg.Filter = filter

	msg.HashFuncs, err = binarySerializer.Uint32(r, binary.LittleEndian)
	if err != nil {
		return CodecError{Kind: ErrIO, Detail: err.Error()}
	}
	msg.Tweak, err = binarySerializer.Uint32(r, binary.LittleEndian)
	if err != nil {
		return CodecError{Kind: ErrIO, Detail: err.Error()}
	}
	flags, err := binarySerializer.Uint8(r)
	if err != nil {
		return CodecError{Kind: ErrIO, Detail: err.Error()}
	}
	msg.Flags = BloomUpdateType(flags)
	return nil
}

// MsgFilterAdd implements the Message interface and adds a single element
// to an already-loaded bloom filter.
type MsgFilterAdd struct {
	Data []byte
}

func (msg *MsgFilterAdd) Command() string { return CmdFilterAdd }
func (msg *MsgFilterAdd) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(MaxFilterAddDataSize)) + MaxFilterAddDataSize
}
func (msg *MsgFilterAdd) BtcEncode(w io.Writer, pver uint32) error {
	if len(msg.Data) > MaxFilterAddDataSize {
		return messageError(ErrOversizeField, "MsgFilterAdd.BtcEncode", "data too large")
	}
	return WriteVarBytes(w, msg.Data)
}
func (msg *MsgFilterAdd) BtcDecode(r io.Reader, pver uint32) error {
	data, _, err := ReadVarBytes(r, 0, MaxFilterAddDataSize, "data")
	if err != nil {
		return err
	}
	msg.Data = data
	return nil
}

// MsgFilterClear implements the Message interface and removes a
// previously-loaded bloom filter, reverting the peer to relaying
// everything.
type MsgFilterClear struct{}

func (msg *MsgFilterClear) Command() string                        { return CmdFilterClear }
func (msg *MsgFilterClear) MaxPayloadLength(pver uint32) uint32     { return 0 }
func (msg *MsgFilterClear) BtcEncode(w io.Writer, pver uint32) error { return nil }
func (msg *MsgFilterClear) BtcDecode(r io.Reader, pver uint32) error { return nil }

// RejectCode represents a numeric code sent in a reject message.
type RejectCode uint8

const (
	RejectMalformed       RejectCode = 0x01
	RejectInvalid         RejectCode = 0x10
	RejectObsolete        RejectCode = 0x11
	RejectDuplicate       RejectCode = 0x12
	RejectNonstandard     RejectCode = 0x40
	RejectDust            RejectCode = 0x41
	RejectInsufficientFee RejectCode = 0x42
	RejectCheckpoint      RejectCode = 0x43
)

// MsgReject implements the Message interface and explains why a previous
// message was rejected.
type MsgReject struct {
	Cmd    string
	Code   RejectCode
	Reason string
	Hash   [32]byte
}

func (msg *MsgReject) Command() string                    { return CmdReject }
func (msg *MsgReject) MaxPayloadLength(pver uint32) uint32 { return MaxPayloadSize }

func (msg *MsgReject) BtcEncode(w io.Writer, pver uint32) error {
	if err := WriteVarBytes(w, []byte(msg.Cmd)); err != nil {
		return err
	}
	if err := binarySerializer.PutUint8(w, uint8(msg.Code)); err != nil {
		return err
	}
	if err := WriteVarBytes(w, []byte(msg.Reason)); err != nil {
		return err
	}
	if msg.Cmd == CmdBlock || msg.Cmd == CmdTx {
		_, err := w.Write(msg.Hash[:])
		return err
	}
	return nil
}

func (msg *MsgReject) BtcDecode(r io.Reader, pver uint32) error {
	cmd, _, err := ReadVarBytes(r, 0, MaxUserAgentLen, "reject command")
	if err != nil {
		return err
	}
	msg.Cmd = string(cmd)

	code, err := binarySerializer.Uint8(r)
	if err != nil {
		return CodecError{Kind: ErrIO, Detail: err.Error()}
	}
	msg.Code = RejectCode(code)

	reason, _, err := ReadVarBytes(r, 0, MaxPayloadSize, "reject reason")
	if err != nil {
		return err
	}
	msg.Reason = string(reason)

	if msg.Cmd == CmdBlock || msg.Cmd == CmdTx {
		if _, err := io.ReadFull(r, msg.Hash[:]); err != nil {
			return CodecError{Kind: ErrIO, Detail: err.Error()}
		}
	}
	return nil
}
