// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"io"
)

// MaxUserAgentLen is the maximum allowed length for the user agent field in
// a version message.
const MaxUserAgentLen = 256

// MsgVersion implements the Message interface and represents the version
// handshake message exchanged on connect.
type MsgVersion struct {
	ProtocolVersion int32
	Services        ServiceFlag
	Timestamp       int64
	AddrYou         NetAddress
	AddrMe          NetAddress
	Nonce           uint64
	UserAgent       string
	LastBlock       int32
	DisableRelayTx  bool
}

func (msg *MsgVersion) Command() string { return CmdVersion }

func (msg *MsgVersion) MaxPayloadLength(pver uint32) uint32 { return 358 + MaxUserAgentLen }

func (msg *MsgVersion) AddService(service ServiceFlag) {
	msg.Services |= service
}

func (msg *MsgVersion) HasService(service ServiceFlag) bool {
	return msg.Services.HasFlag(service)
}

func (msg *MsgVersion) BtcEncode(w io.Writer, pver uint32) error {
	if err := binarySerializer.PutUint32(w, binary.LittleEndian, uint32(msg.ProtocolVersion)); err != nil {
		return err
	}
	if err := binarySerializer.PutUint64(w, binary.LittleEndian, uint64(msg.Services)); err != nil {
		return err
	}
	if err := binarySerializer.PutUint64(w, binary.LittleEndian, uint64(msg.Timestamp)); err != nil {
		return err
	}
	if err := writeNetAddress(w, &msg.AddrYou, false); err != nil {
		return err
	}
	if err := writeNetAddress(w, &msg.AddrMe, false); err != nil {
		return err
	}
	if err := binarySerializer.PutUint64(w, binary.LittleEndian, msg.Nonce); err != nil {
		return err
	}
	if len(msg.UserAgent) > MaxUserAgentLen {
		return messageError(ErrOversizeField, "MsgVersion.BtcEncode", "user agent too long")
	}
	if err := WriteVarBytes(w, []byte(msg.UserAgent)); err != nil {
		return err
	}
	if err := binarySerializer.PutUint32(w, binary.LittleEndian, uint32(msg.LastBlock)); err != nil {
		return err
	}
	return binarySerializer.PutUint8(w, boolToByte(!msg.DisableRelayTx))
}

func (msg *MsgVersion) BtcDecode(r io.Reader, pver uint32) error {
	pv, err := binarySerializer.Uint32(r, binary.LittleEndian)
	if err != nil {
		return CodecError{Kind: ErrIO, Detail: err.Error()}
	}
	msg.ProtocolVersion = int32(pv)

	svc, err := binarySerializer.Uint64(r, binary.LittleEndian)
	if err != nil {
		return CodecError{Kind: ErrIO, Detail: err.Error()}
	}
	msg.Services = ServiceFlag(svc)

	ts, err := binarySerializer.Uint64(r, binary.LittleEndian)
	if err != nil {
		return CodecError{Kind: ErrIO, Detail: err.Error()}
	}
	msg.Timestamp = int64(ts)

	if err := readNetAddress(r, &msg.AddrYou, false); err != nil {
		return err
	}
	if err := readNetAddress(r, &msg.AddrMe, false); err != nil {
		return err
	}

	msg.Nonce, err = binarySerializer.Uint64(r, binary.LittleEndian)
	if err != nil {
		return CodecError{Kind: ErrIO, Detail: err.Error()}
	}

	ua, _, err := ReadVarBytes(r, 0, MaxUserAgentLen, "user agent")
	if err != nil {
		return err
	}
	msg.UserAgent = string(ua)

	lb, err := binarySerializer.Uint32(r, binary.LittleEndian)
	if err != nil {
		return CodecError{Kind: ErrIO, Detail: err.Error()}
	}
	msg.LastBlock = int32(lb)

	relay, err := binarySerializer.Uint8(r)
	if err != nil {
		// Older peers omit the relay flag; default to relaying.
		msg.DisableRelayTx = false
		return nil
	}
	msg.DisableRelayTx = relay == 0
	return nil
}

func boolToByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// MsgVerAck implements the Message interface and acknowledges a version
// message, completing half of the handshake.
type MsgVerAck struct{}

func (msg *MsgVerAck) Command() string                        { return CmdVerAck }
func (msg *MsgVerAck) MaxPayloadLength(pver uint32) uint32     { return 0 }
func (msg *MsgVerAck) BtcEncode(w io.Writer, pver uint32) error { return nil }
func (msg *MsgVerAck) BtcDecode(r io.Reader, pver uint32) error { return nil }
