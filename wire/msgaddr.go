// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MaxAddrPerMsg is the maximum number of addresses in a single addr
// message, matching the legacy (pre-AddrV2) limit.
const MaxAddrPerMsg = 1000

// MsgAddr implements the Message interface and relays known peer
// addresses. PeerGroup does not consume it; its address pool is filled
// only from DNS seeds, HTTP seeds and explicit addresses.
type MsgAddr struct {
	AddrList []*NetAddress
}

func (msg *MsgAddr) AddAddress(na *NetAddress) error {
	if len(msg.AddrList)+1 > MaxAddrPerMsg {
		return messageError(ErrOversizeField, "MsgAddr.AddAddress", "too many addresses")
	}
	msg.AddrList = append(msg.AddrList, na)
	return nil
}

func (msg *MsgAddr) Command() string { return CmdAddr }

func (msg *MsgAddr) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(MaxAddrPerMsg)) + MaxAddrPerMsg*30
}

func (msg *MsgAddr) BtcEncode(w io.Writer, pver uint32) error {
	if len(msg.AddrList) > MaxAddrPerMsg {
		return messageError(ErrOversizeField, "MsgAddr.BtcEncode", "too many addresses")
	}
	if err := WriteVarInt(w, uint64(len(msg.AddrList))); err != nil {
		return err
	}
	for _, na := range msg.AddrList {
		if err := writeNetAddress(w, na, true); err != nil {
			return err
		}
	}
	return nil
}

func (msg *MsgAddr) BtcDecode(r io.Reader, pver uint32) error {
	count, _, err := ReadVarInt(r, 0)
	if err != nil {
		return err
	}
	if count > MaxAddrPerMsg {
		return CodecError{Kind: ErrOversizeField, Detail: "too many addresses"}
	}
	msg.AddrList = make([]*NetAddress, count)
	for i := range msg.AddrList {
		na := &NetAddress{}
		if err := readNetAddress(r, na, true); err != nil {
			return err
		}
		msg.AddrList[i] = na
	}
	return nil
}
