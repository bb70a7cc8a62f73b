// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ltcsuite/ltcspv/chaincfg/chainhash"
)

// InvType represents the allowed types of an inventory vector.
type InvType uint32

const (
	InvTypeError InvType = 0
	InvTypeTx    InvType = 1
	InvTypeBlock InvType = 2
	// InvTypeFilteredBlock advertises a merkle block matching a bloom
	// filter; this core only requests it, it never serves one.
	InvTypeFilteredBlock InvType = 3
)

func (t InvType) String() string {
	switch t {
	case InvTypeTx:
		return "MSG_TX"
	case InvTypeBlock:
		return "MSG_BLOCK"
	case InvTypeFilteredBlock:
		return "MSG_FILTERED_BLOCK"
	default:
		return fmt.Sprintf("Unknown InvType (%d)", uint32(t))
	}
}

// InvVect defines an inventory vector used to describe data, as specified
// in BIP0014, that a peer has knowledge of.
type InvVect struct {
	Type InvType
	Hash chainhash.Hash
}

const invVectSize = 4 + chainhash.HashSize

// MaxInvPerMsg is the maximum number of inventory vectors a single
// inv/getdata/notfound message can carry.
const MaxInvPerMsg = 50000

func readInvVect(r io.Reader, iv *InvVect) error {
	t, err := binarySerializer.Uint32(r, binary.LittleEndian)
	if err != nil {
		return CodecError{Kind: ErrIO, Detail: err.Error()}
	}
	iv.Type = InvType(t)
	return readHash(r, &iv.Hash)
}

func writeInvVect(w io.Writer, iv *InvVect) error {
	if err := binarySerializer.PutUint32(w, binary.LittleEndian, uint32(iv.Type)); err != nil {
		return err
	}
	return writeHash(w, &iv.Hash)
}

func encodeInvList(w io.Writer, invList []*InvVect) error {
	if len(invList) > MaxInvPerMsg {
		return messageError(ErrOversizeField, "encodeInvList", "too many inventory vectors")
	}
	if err := WriteVarInt(w, uint64(len(invList))); err != nil {
		return err
	}
	for _, iv := range invList {
		if err := writeInvVect(w, iv); err != nil {
			return err
		}
	}
	return nil
}

func decodeInvList(r io.Reader) ([]*InvVect, error) {
	count, _, err := ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}
	if count > MaxInvPerMsg {
		return nil, CodecError{Kind: ErrOversizeField, Detail: "too many inventory vectors"}
	}
	invList := make([]*InvVect, count)
	for i := range invList {
		iv := &InvVect{}
		if err := readInvVect(r, iv); err != nil {
			return nil, err
		}
		invList[i] = iv
	}
	return invList, nil
}

// MsgInv implements the Message interface and advertises known block or
// transaction hashes.
type MsgInv struct {
	InvList []*InvVect
}

func (msg *MsgInv) AddInvVect(iv *InvVect) error {
	if len(msg.InvList)+1 > MaxInvPerMsg {
		return messageError(ErrOversizeField, "MsgInv.AddInvVect", "too many inventory vectors")
	}
	msg.InvList = append(msg.InvList, iv)
	return nil
}

func (msg *MsgInv) Command() string { return CmdInv }
func (msg *MsgInv) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(MaxInvPerMsg)) + MaxInvPerMsg*invVectSize
}
func (msg *MsgInv) BtcEncode(w io.Writer, pver uint32) error { return encodeInvList(w, msg.InvList) }
func (msg *MsgInv) BtcDecode(r io.Reader, pver uint32) error {
	invList, err := decodeInvList(r)
	if err != nil {
		return err
	}
	msg.InvList = invList
	return nil
}

// MsgGetData implements the Message interface and requests the data
// described by a list of inventory vectors.
type MsgGetData struct {
	InvList []*InvVect
}

func (msg *MsgGetData) AddInvVect(iv *InvVect) error {
	if len(msg.InvList)+1 > MaxInvPerMsg {
		return messageError(ErrOversizeField, "MsgGetData.AddInvVect", "too many inventory vectors")
	}
	msg.InvList = append(msg.InvList, iv)
	return nil
}

func (msg *MsgGetData) Command() string { return CmdGetData }
func (msg *MsgGetData) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(MaxInvPerMsg)) + MaxInvPerMsg*invVectSize
}
func (msg *MsgGetData) BtcEncode(w io.Writer, pver uint32) error { return encodeInvList(w, msg.InvList) }
func (msg *MsgGetData) BtcDecode(r io.Reader, pver uint32) error {
	invList, err := decodeInvList(r)
	if err != nil {
		return err
	}
	msg.InvList = invList
	return nil
}

// MsgNotFound implements the Message interface and answers a getdata
// request for data the peer does not have.
type MsgNotFound struct {
	InvList []*InvVect
}

func (msg *MsgNotFound) Command() string { return CmdNotFound }
func (msg *MsgNotFound) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(MaxInvPerMsg)) + MaxInvPerMsg*invVectSize
}
func (msg *MsgNotFound) BtcEncode(w io.Writer, pver uint32) error { return encodeInvList(w, msg.InvList) }
func (msg *MsgNotFound) BtcDecode(r io.Reader, pver uint32) error {
	invList, err := decodeInvList(r)
	if err != nil {
		return err
	}
	msg.InvList = invList
	return nil
}
